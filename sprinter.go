// Package sprinter runs sprint lines through an external sprint script.
package sprinter

// Version is the sprinter release version.
const Version = "0.1.0"
