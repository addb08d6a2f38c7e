package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("Parse failed: %s", err)
	}
	if cfg.Cache.Capacity != 4096 {
		t.Errorf("cache capacity = %d, want 4096", cfg.Cache.Capacity)
	}
	if cfg.Dispatch.SiteArity != 8 {
		t.Errorf("site arity = %d, want 8", cfg.Dispatch.SiteArity)
	}
	if cfg.Dispatch.Disabled {
		t.Error("dispatch disabled by default")
	}
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
cache:
  capacity: 128
dispatch:
  site_arity: 4
  disabled: true
max_eval_depth: 2000
state_path: .lume/state.db
`))
	if err != nil {
		t.Fatalf("Parse failed: %s", err)
	}
	if cfg.Cache.Capacity != 128 {
		t.Errorf("cache capacity = %d, want 128", cfg.Cache.Capacity)
	}
	if cfg.Dispatch.SiteArity != 4 || !cfg.Dispatch.Disabled {
		t.Errorf("dispatch = %+v", cfg.Dispatch)
	}
	if cfg.MaxEvalDepth != 2000 {
		t.Errorf("max_eval_depth = %d, want 2000", cfg.MaxEvalDepth)
	}
	if cfg.StatePath != ".lume/state.db" {
		t.Errorf("state_path = %q", cfg.StatePath)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []string{
		"cache:\n  capacity: -1",
		"dispatch:\n  site_arity: -2",
		"max_eval_depth: -5",
		"cache: [not, a, map]",
	}
	for _, input := range tests {
		if _, err := Parse([]byte(input)); err == nil {
			t.Errorf("Parse(%q) accepted invalid config", input)
		}
	}
}

func TestLoadResolvesStatePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte("state_path: cache.db"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %s", err)
	}
	if cfg.StatePath != filepath.Join(dir, "cache.db") {
		t.Errorf("state_path = %q, not resolved against the config dir", cfg.StatePath)
	}
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("max_eval_depth: 123"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Discover(nested)
	if err != nil {
		t.Fatalf("Discover failed: %s", err)
	}
	if cfg.MaxEvalDepth != 123 {
		t.Errorf("Discover did not find the parent config (depth = %d)", cfg.MaxEvalDepth)
	}
}

func TestDiscoverFallsBackToDefaults(t *testing.T) {
	cfg, err := Discover(t.TempDir())
	if err != nil {
		t.Fatalf("Discover failed: %s", err)
	}
	if cfg.Cache.Capacity != 4096 {
		t.Errorf("fallback config capacity = %d", cfg.Cache.Capacity)
	}
}
