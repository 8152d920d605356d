package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_FromProjectRoot(t *testing.T) {
	dir := t.TempDir()
	data := "version: 1\nmodel: mistral:latest\ntimeout: 10m\noutput: buffered\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.ProjectRoot != dir {
		t.Errorf("ProjectRoot = %q, want %q", res.ProjectRoot, dir)
	}
	if res.Config.Version != 1 {
		t.Errorf("Config.Version = %d, want 1", res.Config.Version)
	}
	if got := res.Config.Model(); got != "mistral:latest" {
		t.Errorf("Model() = %q, want %q", got, "mistral:latest")
	}
	if got := res.Config.Timeout(); got != 10*time.Minute {
		t.Errorf("Timeout() = %v, want 10m", got)
	}
	if got := res.Config.Output(); got != OutputBuffered {
		t.Errorf("Output() = %q, want %q", got, OutputBuffered)
	}
}

func TestLoad_FromSubdirectory(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".cursor", "rules", "scripts"), 0o755); err != nil {
		t.Fatal(err)
	}

	sub := filepath.Join(root, "lib", "components")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := Load(sub)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.ProjectRoot != root {
		t.Errorf("ProjectRoot = %q, want %q", res.ProjectRoot, root)
	}
	want := filepath.Join(root, ".cursor", "rules", "scripts")
	if got := res.Config.ScriptsDir(res.ProjectRoot); got != want {
		t.Errorf("ScriptsDir() = %q, want %q", got, want)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	dir := t.TempDir()

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.ProjectRoot != dir {
		t.Errorf("ProjectRoot = %q, want %q (fallback to workspace)", res.ProjectRoot, dir)
	}

	cfg := res.Config
	if cfg.Script() != DefaultScript {
		t.Errorf("Script() = %q, want %q", cfg.Script(), DefaultScript)
	}
	if cfg.Model() != DefaultModel {
		t.Errorf("Model() = %q, want %q", cfg.Model(), DefaultModel)
	}
	if cfg.Artifact() != DefaultArtifact {
		t.Errorf("Artifact() = %q, want %q", cfg.Artifact(), DefaultArtifact)
	}
	if cfg.Timeout() != 0 {
		t.Errorf("Timeout() = %v, want 0 (no timeout)", cfg.Timeout())
	}
	if cfg.MaxOutputBytes() != DefaultMaxOutput {
		t.Errorf("MaxOutputBytes() = %d, want %d", cfg.MaxOutputBytes(), DefaultMaxOutput)
	}
	if cfg.QueueFile(dir) != filepath.Join(dir, DefaultQueueFile) {
		t.Errorf("QueueFile() = %q", cfg.QueueFile(dir))
	}
	if cfg.HistoryDir(dir) != "" {
		t.Errorf("HistoryDir() = %q, want empty", cfg.HistoryDir(dir))
	}
	if cfg.HistoryBackend() != HistoryJSON {
		t.Errorf("HistoryBackend() = %q, want %q", cfg.HistoryBackend(), HistoryJSON)
	}
	if cfg.CacheSize() != DefaultCacheSize {
		t.Errorf("CacheSize() = %d, want %d", cfg.CacheSize(), DefaultCacheSize)
	}
}

func TestLoad_AbsoluteScriptsDir(t *testing.T) {
	dir := t.TempDir()
	scripts := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("scripts_dir: "+scripts+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := res.Config.ScriptsDir(res.ProjectRoot); got != scripts {
		t.Errorf("ScriptsDir() = %q, want %q", got, scripts)
	}
}

func TestLoad_InvalidOutputMode(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("output: chunked\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for unknown output mode")
	}
}

func TestLoad_History(t *testing.T) {
	dir := t.TempDir()
	data := "history:\n  dir: .sprinter-runs\n  backend: sqlite\n  cache: 20\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := res.Config
	if got := cfg.HistoryDir(dir); got != filepath.Join(dir, ".sprinter-runs") {
		t.Errorf("HistoryDir() = %q", got)
	}
	if cfg.HistoryBackend() != HistorySQLite {
		t.Errorf("HistoryBackend() = %q, want %q", cfg.HistoryBackend(), HistorySQLite)
	}
	if cfg.CacheSize() != 20 {
		t.Errorf("CacheSize() = %d, want 20", cfg.CacheSize())
	}
}

func TestLoad_InvalidHistoryBackend(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("history:\n  backend: redis\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for unknown history backend")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("model: [unterminated\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir); err == nil {
		t.Fatal("expected parse error")
	}
}
