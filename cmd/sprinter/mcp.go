package main

import (
	"context"
	"fmt"
	"net/http"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/deixis/sprinter/internal/logging"
	sprintmcp "github.com/deixis/sprinter/internal/mcp"
)

func newMCPCmd(f *flags) *cli.Command {
	var (
		httpAddr     string
		instructions bool
	)

	return &cli.Command{
		Name:  "mcp",
		Usage: "Start the MCP server (stdio unless --http is set)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "http",
				Usage:       "start HTTP server on address (e.g. :9090)",
				Destination: &httpAddr,
			},
			&cli.BoolFlag{
				Name:        "instructions",
				Usage:       "print model instructions and exit",
				Destination: &instructions,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if instructions {
				_, err := fmt.Fprint(c.Root().Writer, sprintmcp.Instructions)
				return err
			}
			return serve(ctx, f, httpAddr)
		},
	}
}

func serve(ctx context.Context, f *flags, httpAddr string) error {
	e, err := newEnv(f)
	if err != nil {
		return err
	}
	defer e.close()

	server := sprintmcp.NewServer(e.engine, e.store, logging.Component("mcp"))

	if httpAddr != "" {
		return serveHTTP(ctx, server, httpAddr)
	}
	log.Info().Str("root", e.root).Msg("serving MCP over stdio")
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Info().Str("addr", addr).Msg("listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
