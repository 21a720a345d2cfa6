package config

// PortalConfig holds per-portal configuration for a single class portal.
// This allows mirroring several portals with different credentials and
// output directories from one config file.
type PortalConfig struct {
	// Identifiant is the login for this portal (usually an email).
	Identifiant string `yaml:"identifiant,omitempty"`

	// MotDePasse is the password for this portal. Storing it in the
	// config file is a convenience for --all runs; the file is written
	// 0600 by the init command for that reason.
	MotDePasse string `yaml:"motdepasse,omitempty"`

	// OutputDir overrides the mirror root for this portal.
	// If empty, the global default is used.
	OutputDir string `yaml:"outputDir,omitempty"`

	// TestMode bounds the run for this portal regardless of the
	// command-line flag.
	TestMode bool `yaml:"testMode,omitempty"`

	// DownloadDelaySeconds overrides the politeness pause between file
	// downloads. If zero, the global default is used.
	DownloadDelaySeconds int `yaml:"downloadDelaySeconds,omitempty"`
}

// File represents the structure of the .cdpmirror.yml configuration file.
type File struct {
	// Portals maps portal addresses (any accepted shape, typically the
	// bare class name) to their per-portal configurations.
	Portals map[string]PortalConfig `yaml:"portals,omitempty"`

	// Defaults contains default portal configuration applied to all
	// portals unless overridden in the per-portal configuration.
	Defaults PortalConfig `yaml:"defaults,omitempty"`
}

// GetPortalConfig returns the configuration for a specific portal.
// It merges the per-portal configuration with defaults.
func (cf *File) GetPortalConfig(portal string) PortalConfig {
	// Start with defaults
	result := cf.Defaults

	// Override with per-portal configuration if present
	if pc, ok := cf.Portals[portal]; ok {
		if pc.Identifiant != "" {
			result.Identifiant = pc.Identifiant
		}
		if pc.MotDePasse != "" {
			result.MotDePasse = pc.MotDePasse
		}
		if pc.OutputDir != "" {
			result.OutputDir = pc.OutputDir
		}
		if pc.TestMode {
			result.TestMode = true
		}
		if pc.DownloadDelaySeconds != 0 {
			result.DownloadDelaySeconds = pc.DownloadDelaySeconds
		}
	}

	return result
}

// PortalNames returns the portals named in the file, in map order.
// Callers that need stable order should sort the result.
func (cf *File) PortalNames() []string {
	names := make([]string, 0, len(cf.Portals))
	for name := range cf.Portals {
		names = append(names, name)
	}
	return names
}
