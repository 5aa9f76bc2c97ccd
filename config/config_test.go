package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("GITLAB_HOST", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want default 8", cfg.Workers)
	}
	if cfg.PageSize != 100 {
		t.Errorf("PageSize = %d, want default 100", cfg.PageSize)
	}
	if cfg.Server != "" {
		t.Errorf("Server = %q, want empty", cfg.Server)
	}
}

func TestLoadServerFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("GITLAB_HOST", "gitlab.internal.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server != "gitlab.internal.example" {
		t.Errorf("Server = %q, want env value", cfg.Server)
	}
}

func TestLoadGlobalFile(t *testing.T) {
	t.Chdir(t.TempDir())
	confHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", confHome)

	dir := filepath.Join(confHome, "glinvent")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := "server: gitlab.corp.example\nworkers: 4\nexclude_groups:\n  - sandbox\naggregate:\n  notes: true\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server != "gitlab.corp.example" {
		t.Errorf("Server = %q", cfg.Server)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if len(cfg.ExcludeGroups) != 1 || cfg.ExcludeGroups[0] != "sandbox" {
		t.Errorf("ExcludeGroups = %v", cfg.ExcludeGroups)
	}
	if cfg.Aggregate == nil || cfg.Aggregate.Notes == nil || !*cfg.Aggregate.Notes {
		t.Error("Aggregate.Notes not loaded")
	}
}

func TestLocalOverridesGlobal(t *testing.T) {
	confHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", confHome)

	dir := filepath.Join(confHome, "glinvent")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	global := "server: gitlab.corp.example\nworkers: 4\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(global), 0o644); err != nil {
		t.Fatal(err)
	}

	workDir := t.TempDir()
	t.Chdir(workDir)
	local := "workers: 16\n"
	if err := os.WriteFile(filepath.Join(workDir, ".glinvent.yaml"), []byte(local), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Workers != 16 {
		t.Errorf("Workers = %d, want local override 16", cfg.Workers)
	}
	if cfg.Server != "gitlab.corp.example" {
		t.Errorf("Server = %q, want global value preserved", cfg.Server)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	workDir := t.TempDir()
	t.Chdir(workDir)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if err := os.WriteFile(filepath.Join(workDir, ".glinvent.yaml"), []byte("workers: [not a number"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestTokenFromEnv(t *testing.T) {
	t.Setenv("GITLAB_TOKEN", "glpat-secret")
	cfg := &Config{}
	if cfg.Token() != "glpat-secret" {
		t.Errorf("Token() = %q", cfg.Token())
	}
}
