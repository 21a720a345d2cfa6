package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cdp-tools/cdpmirror/internal/config"
)

// TestNewMirrorCmd tests the mirror command creation.
func TestNewMirrorCmd(t *testing.T) {
	t.Parallel()

	cmd := NewMirrorCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "mirror [portal]" {
			t.Errorf("expected use 'mirror [portal]', got %q", cmd.Use)
		}
	})

	t.Run("has expected flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{
			"identifiant", "motdepasse", "output", "download-dir",
			"test", "headed", "nav-timeout", "download-timeout", "delay",
			"all", "batch", "config", "json", "markdown", "no-progress", "no-db",
		} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected flag %q", name)
			}
		}
	})

	t.Run("flag shorthands", func(t *testing.T) {
		t.Parallel()
		shorthands := map[string]string{
			"identifiant": "i",
			"motdepasse":  "p",
			"output":      "o",
			"test":        "t",
			"all":         "a",
			"batch":       "b",
			"config":      "c",
			"json":        "j",
			"markdown":    "m",
		}
		for name, short := range shorthands {
			flag := cmd.Flags().Lookup(name)
			if flag == nil {
				t.Fatalf("expected flag %q", name)
			}
			if flag.Shorthand != short {
				t.Errorf("flag %q shorthand = %q, want %q", name, flag.Shorthand, short)
			}
		}
	})
}

// parseMirrorFlags creates a mirror command with the given flags parsed.
func parseMirrorFlags(t *testing.T, flags ...string) *config.Config {
	t.Helper()

	cmd := NewMirrorCmd()
	if err := cmd.ParseFlags(flags); err != nil {
		t.Fatalf("ParseFlags() error: %v", err)
	}

	args := cmd.Flags().Args()
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		t.Fatalf("buildConfig() error: %v", err)
	}
	return cfg
}

// TestBuildConfig tests config construction from flags.
func TestBuildConfig(t *testing.T) {
	t.Run("flags populate config", func(t *testing.T) {
		cfg := parseMirrorFlags(t,
			"mp2i", "-i", "eleve@example.org", "-p", "secret",
			"-o", "/tmp/mirror", "--test", "--delay", "5s")

		if cfg.Portal != "mp2i" {
			t.Errorf("Portal = %q", cfg.Portal)
		}
		if cfg.Identifiant != "eleve@example.org" || cfg.MotDePasse != "secret" {
			t.Errorf("credentials not set: %q / %q", cfg.Identifiant, cfg.MotDePasse)
		}
		if cfg.OutputDir != "/tmp/mirror" {
			t.Errorf("OutputDir = %q", cfg.OutputDir)
		}
		if !cfg.TestMode {
			t.Error("TestMode not set")
		}
		if cfg.DownloadDelay != 5*time.Second {
			t.Errorf("DownloadDelay = %v", cfg.DownloadDelay)
		}
	})

	t.Run("headless by default, headed inverts", func(t *testing.T) {
		cfg := parseMirrorFlags(t, "mp2i", "-i", "a", "-p", "b")
		if !cfg.Headless {
			t.Error("expected headless by default")
		}

		cfg = parseMirrorFlags(t, "mp2i", "-i", "a", "-p", "b", "--headed")
		if cfg.Headless {
			t.Error("expected --headed to disable headless")
		}
	})

	t.Run("no-db disables persistence", func(t *testing.T) {
		cfg := parseMirrorFlags(t, "mp2i", "-i", "a", "-p", "b")
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB by default")
		}

		cfg = parseMirrorFlags(t, "mp2i", "-i", "a", "-p", "b", "--no-db")
		if cfg.SaveToDB {
			t.Error("expected --no-db to disable SaveToDB")
		}
	})

	t.Run("config file fills missing credentials", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yml")
		content := `portals:
  mp2i:
    identifiant: fichier@example.org
    motdepasse: motdufichier
    downloadDelaySeconds: 7
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cfg := parseMirrorFlags(t, "mp2i", "-c", configPath)
		if cfg.Identifiant != "fichier@example.org" {
			t.Errorf("Identifiant = %q", cfg.Identifiant)
		}
		if cfg.MotDePasse != "motdufichier" {
			t.Errorf("MotDePasse = %q", cfg.MotDePasse)
		}
		if cfg.DownloadDelay != 7*time.Second {
			t.Errorf("DownloadDelay = %v", cfg.DownloadDelay)
		}
	})

	t.Run("flags win over config file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.yml")
		content := `portals:
  mp2i:
    identifiant: fichier@example.org
    motdepasse: motdufichier
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cfg := parseMirrorFlags(t, "mp2i", "-c", configPath, "-i", "flag@example.org", "-p", "flagpass")
		if cfg.Identifiant != "flag@example.org" {
			t.Errorf("Identifiant = %q, want the flag value", cfg.Identifiant)
		}
		if cfg.MotDePasse != "flagpass" {
			t.Errorf("MotDePasse = %q, want the flag value", cfg.MotDePasse)
		}
	})

	t.Run("explicit missing config file errors", func(t *testing.T) {
		cmd := NewMirrorCmd()
		missing := filepath.Join(t.TempDir(), "nope.yml")
		if err := cmd.ParseFlags([]string{"-c", missing}); err != nil {
			t.Fatal(err)
		}

		_, err := buildConfig(cmd, []string{"mp2i"})
		if err == nil {
			t.Fatal("expected error for missing explicit config file")
		}
		if !strings.Contains(err.Error(), "not found") {
			t.Errorf("error = %v, want 'not found'", err)
		}
	})
}

// TestBuildConfigValidation tests that invalid flag combinations are
// rejected by Validate after construction.
func TestBuildConfigValidation(t *testing.T) {
	t.Parallel()

	t.Run("missing credentials", func(t *testing.T) {
		t.Parallel()
		cfg := parseMirrorFlags(t, "mp2i")
		if err := cfg.Validate(); !errors.Is(err, config.ErrMissingCredentials) {
			t.Errorf("Validate() = %v, want ErrMissingCredentials", err)
		}
	})

	t.Run("json and markdown conflict", func(t *testing.T) {
		t.Parallel()
		cfg := parseMirrorFlags(t, "mp2i", "-i", "a", "-p", "b", "--json", "--markdown")
		if err := cfg.Validate(); !errors.Is(err, config.ErrConflictingReportFormats) {
			t.Errorf("Validate() = %v, want ErrConflictingReportFormats", err)
		}
	})
}

// TestApplyPortalConfig tests merging a config-file portal entry.
func TestApplyPortalConfig(t *testing.T) {
	t.Parallel()

	t.Run("fills only empty fields", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		cfg.Identifiant = "keep@example.org"

		applyPortalConfig(cfg, config.PortalConfig{
			Identifiant:          "file@example.org",
			MotDePasse:           "frompc",
			OutputDir:            "/tmp/x",
			TestMode:             true,
			DownloadDelaySeconds: 3,
		})

		if cfg.Identifiant != "keep@example.org" {
			t.Errorf("Identifiant overwritten: %q", cfg.Identifiant)
		}
		if cfg.MotDePasse != "frompc" || cfg.OutputDir != "/tmp/x" {
			t.Errorf("empty fields not filled: %+v", cfg)
		}
		if !cfg.TestMode {
			t.Error("TestMode not applied")
		}
		if cfg.DownloadDelay != 3*time.Second {
			t.Errorf("DownloadDelay = %v", cfg.DownloadDelay)
		}
	})
}

// TestResolveOutputDir tests output directory resolution.
func TestResolveOutputDir(t *testing.T) {
	t.Run("explicit dir wins", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.OutputDir = "/tmp/explicit"

		dir, err := resolveOutputDir(cfg)
		if err != nil {
			t.Fatal(err)
		}
		if dir != "/tmp/explicit" {
			t.Errorf("dir = %q", dir)
		}
	})

	t.Run("default under home", func(t *testing.T) {
		cfg := config.NewConfig()

		dir, err := resolveOutputDir(cfg)
		if err != nil {
			t.Fatal(err)
		}
		if filepath.Base(dir) != config.DefaultOutputDirName {
			t.Errorf("dir = %q, want base %q", dir, config.DefaultOutputDirName)
		}
	})

	t.Run("test mode uses separate dir", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.TestMode = true

		dir, err := resolveOutputDir(cfg)
		if err != nil {
			t.Fatal(err)
		}
		if filepath.Base(dir) != config.TestOutputDirName {
			t.Errorf("dir = %q, want base %q", dir, config.TestOutputDirName)
		}
	})
}
