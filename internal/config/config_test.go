package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Defaults()
	if cfg.SocketName != want.SocketName {
		t.Fatalf("SocketName = %q, want %q", cfg.SocketName, want.SocketName)
	}
	if cfg.IdleTimeout != want.IdleTimeout {
		t.Fatalf("IdleTimeout = %v, want %v", cfg.IdleTimeout, want.IdleTimeout)
	}
	if len(cfg.Backends) != len(want.Backends) || cfg.Backends[0] != want.Backends[0] {
		t.Fatalf("Backends = %v, want %v", cfg.Backends, want.Backends)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("JAYWL_SOCKET_NAME", "wayland-test")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SocketName != "wayland-test" {
		t.Fatalf("SocketName = %q, want wayland-test", cfg.SocketName)
	}
}

func TestLoadInvalidIdleTimeout(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("JAYWL_IDLE_TIMEOUT", "not-a-duration")

	if _, err := Load(nil); err == nil {
		t.Fatal("expected error for malformed idle_timeout")
	}
}

func TestLoadThemeMissingPathReturnsDefault(t *testing.T) {
	th, err := LoadTheme("")
	if err != nil {
		t.Fatalf("LoadTheme: %v", err)
	}
	if th.BorderWidth() != 4 {
		t.Fatalf("BorderWidth() = %d, want default 4", th.BorderWidth())
	}
}

func TestLoadThemeNonexistentFileReturnsDefault(t *testing.T) {
	th, err := LoadTheme(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadTheme: %v", err)
	}
	if th.BorderWidth() != 4 {
		t.Fatalf("BorderWidth() = %d, want default 4", th.BorderWidth())
	}
}

func TestLoadThemeAppliesOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "theme.yaml")
	if err := os.WriteFile(path, []byte("border_width: 9\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	th, err := LoadTheme(path)
	if err != nil {
		t.Fatalf("LoadTheme: %v", err)
	}
	if th.BorderWidth() != 9 {
		t.Fatalf("BorderWidth() = %d, want 9", th.BorderWidth())
	}
}

func TestLoadThemeMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "theme.yaml")
	if err := os.WriteFile(path, []byte("not: valid: yaml: [["), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadTheme(path); err == nil {
		t.Fatal("expected error for malformed theme file")
	}
}
