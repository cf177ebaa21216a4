package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "results_dir: /tmp/results\nworkers: 3\nollama_url: http://localhost:1234\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ResultsDir != "/tmp/results" || cfg.Workers != 3 || cfg.OllamaURL != "http://localhost:1234" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"results_dir":"/r","sd_bin":"/opt/sd"}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ResultsDir != "/r" || cfg.SDBin != "/opt/sd" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "results_dir=\"/r2\"\nworkers=2\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ResultsDir != "/r2" || cfg.Workers != 2 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadMissingResultsDir(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "workers: 1\n")
	_, err := Load(p)
	if err == nil {
		t.Fatalf("expected error for missing results_dir")
	}
	if !IsConfigError(err) {
		t.Fatalf("expected config error, got %T", err)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	if _, err := Load("/nonexistent/cfg.yaml"); err == nil {
		t.Fatalf("expected error on missing file")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	p2 := writeTempFile(t, d, "bad.yaml", "results_dir: [\n")
	if _, err := Load(p2); err == nil {
		t.Fatalf("expected yaml parse error")
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("PR_TEST_BASE", "/data")
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "results_dir: ${PR_TEST_BASE}/results\nllm_generation_defaults:\n  stop_file: ${PR_TEST_BASE}/stop.txt\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ResultsDir != "/data/results" {
		t.Fatalf("results_dir not expanded: %q", cfg.ResultsDir)
	}
	if got := cfg.LLMDefaults.String("stop_file"); got != "/data/stop.txt" {
		t.Fatalf("defaults not expanded: %q", got)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := RunConfig{ResultsDir: "/r"}
	cfg.ApplyDefaults()
	if cfg.OllamaURL != defaultOllamaURL {
		t.Fatalf("expected default ollama url, got %q", cfg.OllamaURL)
	}
	if cfg.SDBin != defaultSDBin || cfg.Workers != 1 || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.LLMPrompts != defaultLLMPrompts || cfg.ImageModels != defaultImageModels {
		t.Fatalf("unexpected file defaults: %+v", cfg)
	}
}
