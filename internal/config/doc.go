// Package config provides configuration structures and utilities for
// cdpmirror. It defines the options for one mirror run (portal address,
// credentials, output layout, timeouts, test-mode caps), the YAML config
// file with per-portal overrides, and the XDG directory helpers used for
// the run-history database.
package config
