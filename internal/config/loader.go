package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".cdpmirror.yml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Load locates and parses the portal configuration file.
//
// With an explicit path the file must exist: the operator named it, so
// a missing file is ErrConfigNotFound. With no path the default name is
// tried in the working directory and then in the home directory, and a
// missing file simply yields an empty configuration.
//
// The second return is the path actually read, empty when no file was.
func Load(explicitPath string) (*File, string, error) {
	path, required := explicitPath, true
	if path == "" {
		path, required = defaultPath(), false
	}
	if path == "" {
		return emptyFile(), "", nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	switch {
	case err == nil:
	case os.IsNotExist(err):
		if required {
			return nil, "", fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return emptyFile(), "", nil
	default:
		return nil, "", err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, "", fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if cf.Portals == nil {
		cf.Portals = make(map[string]PortalConfig)
	}
	return &cf, path, nil
}

func emptyFile() *File {
	return &File{Portals: make(map[string]PortalConfig)}
}

// defaultPath returns the first existing default-named config file,
// trying the working directory before the home directory.
func defaultPath() string {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}

	for _, dir := range dirs {
		candidate := filepath.Join(dir, DefaultConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
