package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	if !cfg.Headless {
		t.Error("NewConfig() Headless = false, want true")
	}
	if cfg.NavigationTimeout != DefaultNavigationTimeout {
		t.Errorf("NavigationTimeout = %v, want %v", cfg.NavigationTimeout, DefaultNavigationTimeout)
	}
	if cfg.DownloadTimeout != DefaultDownloadTimeout {
		t.Errorf("DownloadTimeout = %v, want %v", cfg.DownloadTimeout, DefaultDownloadTimeout)
	}
	if cfg.DownloadDelay != DefaultDownloadDelay {
		t.Errorf("DownloadDelay = %v, want %v", cfg.DownloadDelay, DefaultDownloadDelay)
	}
	if cfg.BatchConcurrency != DefaultBatchConcurrency {
		t.Errorf("BatchConcurrency = %d, want %d", cfg.BatchConcurrency, DefaultBatchConcurrency)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := NewConfig()
		cfg.Portal = "mp2i-faidherbe"
		cfg.Identifiant = "eleve@example.org"
		cfg.MotDePasse = "secret"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*Config) {}, wantErr: nil},
		{
			name:    "no portal",
			mutate:  func(c *Config) { c.Portal = "" },
			wantErr: ErrNoPortal,
		},
		{
			name:    "missing password",
			mutate:  func(c *Config) { c.MotDePasse = "" },
			wantErr: ErrMissingCredentials,
		},
		{
			name:    "missing login",
			mutate:  func(c *Config) { c.Identifiant = "" },
			wantErr: ErrMissingCredentials,
		},
		{
			name:    "zero navigation timeout",
			mutate:  func(c *Config) { c.NavigationTimeout = 0 },
			wantErr: ErrInvalidNavigationTimeout,
		},
		{
			name:    "negative download timeout",
			mutate:  func(c *Config) { c.DownloadTimeout = -time.Second },
			wantErr: ErrInvalidDownloadTimeout,
		},
		{
			name:    "negative download delay",
			mutate:  func(c *Config) { c.DownloadDelay = -time.Second },
			wantErr: ErrInvalidDownloadDelay,
		},
		{
			name:    "conflicting report formats",
			mutate:  func(c *Config) { c.JSONSummary = true; c.MarkdownReport = true },
			wantErr: ErrConflictingReportFormats,
		},
		{
			name:    "zero batch concurrency",
			mutate:  func(c *Config) { c.BatchConcurrency = 0 },
			wantErr: ErrInvalidBatchConcurrency,
		},
		{
			name:    "all without portals",
			mutate:  func(c *Config) { c.All = true; c.Portal = "" },
			wantErr: ErrNoPortalsConfigured,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("valid file with defaults and overrides", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, DefaultConfigFile)
		content := `defaults:
  identifiant: eleve@example.org
  motdepasse: commun
portals:
  mp2i-faidherbe:
    testMode: true
  pcsi-fermat:
    motdepasse: autre
    outputDir: /srv/miroirs/pcsi
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cf, got, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		if got != path {
			t.Errorf("Load() path = %q, want %q", got, path)
		}

		mp2i := cf.GetPortalConfig("mp2i-faidherbe")
		if mp2i.Identifiant != "eleve@example.org" {
			t.Errorf("mp2i identifiant = %q, want default", mp2i.Identifiant)
		}
		if mp2i.MotDePasse != "commun" {
			t.Errorf("mp2i motdepasse = %q, want default", mp2i.MotDePasse)
		}
		if !mp2i.TestMode {
			t.Error("mp2i testMode = false, want true")
		}

		pcsi := cf.GetPortalConfig("pcsi-fermat")
		if pcsi.MotDePasse != "autre" {
			t.Errorf("pcsi motdepasse = %q, want override", pcsi.MotDePasse)
		}
		if pcsi.OutputDir != "/srv/miroirs/pcsi" {
			t.Errorf("pcsi outputDir = %q", pcsi.OutputDir)
		}
	})

	t.Run("explicit missing file", func(t *testing.T) {
		t.Parallel()

		_, _, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Load(absent) = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("empty portals section", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, DefaultConfigFile)
		if err := os.WriteFile(path, []byte("defaults:\n  identifiant: eleve@example.org\n"), 0600); err != nil {
			t.Fatal(err)
		}

		cf, _, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		if cf.Portals == nil {
			t.Error("Portals map not initialized")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, DefaultConfigFile)
		if err := os.WriteFile(path, []byte("portals: [not a map"), 0600); err != nil {
			t.Fatal(err)
		}

		if _, _, err := Load(path); err == nil {
			t.Error("Load(invalid yaml) = nil, want error")
		}
	})
}
