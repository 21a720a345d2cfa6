package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cdp-tools/cdpmirror/internal/config"
)

//go:embed templates/cdpmirror.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new cdpmirror configuration file",
		Long: `Initialize creates a new ` + config.DefaultConfigFile + ` configuration file in the
current directory.

The generated file includes:
- Commented examples for per-portal credentials and output directories
- Defaults applied to every portal
- Documentation for all available options

The file is written with mode 0600 because it may hold portal passwords.

Examples:
  # Create ` + config.DefaultConfigFile + ` in current directory
  cdpmirror init

  # Create config file at a specific path
  cdpmirror init -o ~/.config/cdpmirror/config.yml

  # Force overwrite existing file
  cdpmirror init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	// Check if file already exists
	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	// Read template from embedded filesystem
	content, err := configTemplate.ReadFile("templates/cdpmirror.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	// Create parent directories if needed
	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Passwords may live in this file
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Printf("Created configuration file: %s\n", outputPath)
	fmt.Println("\nEdit this file to configure your portals:")
	fmt.Println("  - Credentials per portal (identifiant, motdepasse)")
	fmt.Println("  - Output directory per portal")
	fmt.Println("  - Download pacing")

	return nil
}
