package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/cdp-tools/cdpmirror/internal/browser"
	"github.com/cdp-tools/cdpmirror/internal/config"
	"github.com/cdp-tools/cdpmirror/internal/database"
	"github.com/cdp-tools/cdpmirror/internal/journal"
	"github.com/cdp-tools/cdpmirror/internal/log"
	"github.com/cdp-tools/cdpmirror/internal/model"
	"github.com/cdp-tools/cdpmirror/internal/pipeline"
	"github.com/cdp-tools/cdpmirror/internal/report"
	"github.com/cdp-tools/cdpmirror/internal/storage"
)

// NewMirrorCmd creates the mirror command.
func NewMirrorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror [portal]",
		Short: "Mirror a class portal into an offline copy",
		Long: `Mirror logs into a cahier-de-prepa.fr class portal and copies it into a
self-contained offline directory: every page, every document, the static
assets, and two mapping files relating local names to portal identities.

The portal may be given as a full URL, a host-prefixed address, or just
the class name:

  cdpmirror mirror mp2i-faidherbe -i eleve@example.org -p secret

Examples:
  # Bounded test run (one directory, a few files) into a separate folder
  cdpmirror mirror mp2i-faidherbe -i eleve@example.org -p secret --test

  # Full mirror into a chosen directory
  cdpmirror mirror mp2i-faidherbe -o ~/archives/mp2i

  # Mirror every portal named in .cdpmirror.yml
  cdpmirror mirror --all

  # JSON summary on stdout for scripting
  cdpmirror mirror mp2i-faidherbe --json

Credentials can also come from the configuration file (see cdpmirror init).`,
		Args: cobra.MaximumNArgs(1),
		RunE: runMirrorCmd,
	}

	// Credentials
	cmd.Flags().StringP("identifiant", "i", "", "Portal login (usually an email address)")
	cmd.Flags().StringP("motdepasse", "p", "", "Portal password")

	// Output
	cmd.Flags().StringP("output", "o", "",
		"Mirror output directory (default: ~/"+config.DefaultOutputDirName+")")
	cmd.Flags().String("download-dir", "",
		"Browser download drop directory (default: a run-private temp dir)")

	// Crawl behavior
	cmd.Flags().BoolP("test", "t", false,
		"Bounded test run: first directory, a handful of pages and files")
	cmd.Flags().Bool("headed", false,
		"Run the browser with a visible window (for debugging login)")
	cmd.Flags().Duration("nav-timeout", config.DefaultNavigationTimeout,
		"Timeout for one rendered page fetch")
	cmd.Flags().Duration("download-timeout", config.DefaultDownloadTimeout,
		"Timeout waiting for one downloaded file")
	cmd.Flags().Duration("delay", config.DefaultDownloadDelay,
		"Politeness pause after each file download")

	// Batch
	cmd.Flags().BoolP("all", "a", false,
		"Mirror every portal named in the configuration file")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchConcurrency,
		"Number of portals mirrored concurrently with --all")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: "+config.DefaultConfigFile+" in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Print a JSON run summary (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Write RAPPORT.md into the mirror (mutually exclusive with --json)")
	cmd.Flags().Bool("no-progress", false, "Disable the progress indicator")
	cmd.Flags().Bool("no-db", false, "Do not record this run in the history database")

	return cmd
}

// runMirrorCmd executes the mirror command.
func runMirrorCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	cfg.Verbose = getVerboseFlag(cmd)
	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, finishing current item...")
		cancel()
	}()

	return runMirror(ctx, cfg, logger)
}

// buildConfig creates a Config from cobra command flags and the optional
// configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.Identifiant, err = cmd.Flags().GetString("identifiant")
	if err != nil {
		return nil, err
	}
	cfg.MotDePasse, err = cmd.Flags().GetString("motdepasse")
	if err != nil {
		return nil, err
	}
	cfg.OutputDir, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}
	cfg.DownloadDir, err = cmd.Flags().GetString("download-dir")
	if err != nil {
		return nil, err
	}
	cfg.TestMode, err = cmd.Flags().GetBool("test")
	if err != nil {
		return nil, err
	}
	headed, err := cmd.Flags().GetBool("headed")
	if err != nil {
		return nil, err
	}
	cfg.Headless = !headed

	cfg.NavigationTimeout, err = cmd.Flags().GetDuration("nav-timeout")
	if err != nil {
		return nil, err
	}
	cfg.DownloadTimeout, err = cmd.Flags().GetDuration("download-timeout")
	if err != nil {
		return nil, err
	}
	cfg.DownloadDelay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}
	cfg.All, err = cmd.Flags().GetBool("all")
	if err != nil {
		return nil, err
	}
	cfg.BatchConcurrency, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg.JSONSummary, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}
	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}
	cfg.NoProgress, err = cmd.Flags().GetBool("no-progress")
	if err != nil {
		return nil, err
	}
	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	cfg.DBDir = config.XDGDataDir()

	// Load the config file. An explicitly named file must exist; the
	// default lookup silently yields an empty config when absent.
	cfg.Portals, _, err = config.Load(cfg.ConfigFilePath)
	if err != nil {
		return nil, err
	}

	if len(args) == 1 {
		cfg.Portal = args[0]
	}

	// Flags win over the config file; the file fills in what flags left
	// empty for the named portal.
	if cfg.Portal != "" {
		applyPortalConfig(cfg, cfg.Portals.GetPortalConfig(cfg.Portal))
	}

	return cfg, nil
}

// applyPortalConfig fills empty Config fields from a per-portal config
// file entry.
func applyPortalConfig(cfg *config.Config, pc config.PortalConfig) {
	if cfg.Identifiant == "" {
		cfg.Identifiant = pc.Identifiant
	}
	if cfg.MotDePasse == "" {
		cfg.MotDePasse = pc.MotDePasse
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = pc.OutputDir
	}
	if pc.TestMode {
		cfg.TestMode = true
	}
	if pc.DownloadDelaySeconds > 0 {
		cfg.DownloadDelay = time.Duration(pc.DownloadDelaySeconds) * time.Second
	}
}

// resolveOutputDir returns the mirror root for a config, applying the
// home-directory default and the separate test-mode directory.
func resolveOutputDir(cfg *config.Config) (string, error) {
	if cfg.OutputDir != "" {
		return cfg.OutputDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	name := config.DefaultOutputDirName
	if cfg.TestMode {
		name = config.TestOutputDirName
	}
	return filepath.Join(home, name), nil
}

// runMirror executes a single-portal or batch mirror run.
func runMirror(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var db *database.DB
	if cfg.SaveToDB {
		var err error
		db, err = database.New(ctx, filepath.Join(cfg.DBDir, "history.db"), database.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()
	}

	if cfg.All {
		return runBatchMirror(ctx, cfg, db, logger)
	}

	pipe, run, cleanup, err := buildPortalRun(cfg, db, logger)
	if err != nil {
		return err
	}

	execErr := pipe.Execute(ctx, run)
	cleanup()

	if err := writeSummary(cfg, run); err != nil {
		return err
	}
	return execErr
}

// runBatchMirror mirrors every portal named in the config file.
func runBatchMirror(ctx context.Context, cfg *config.Config, db *database.DB, logger *slog.Logger) error {
	names := cfg.Portals.PortalNames()
	sort.Strings(names)

	factory := func(_ context.Context, name string) (*pipeline.Pipeline, *pipeline.Run, func(), error) {
		// Each portal gets its own config: credentials and output dir
		// come from its file entry, pacing and mode from the flags.
		portalCfg := *cfg
		portalCfg.Portal = name
		portalCfg.Identifiant = ""
		portalCfg.MotDePasse = ""
		portalCfg.OutputDir = ""
		applyPortalConfig(&portalCfg, cfg.Portals.GetPortalConfig(name))

		if portalCfg.Identifiant == "" || portalCfg.MotDePasse == "" {
			return nil, nil, nil, fmt.Errorf("portal %s: %w", name, config.ErrMissingCredentials)
		}
		return buildPortalRun(&portalCfg, db, logger)
	}

	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithBatchLogger(logger),
		pipeline.WithConcurrency(cfg.BatchConcurrency))

	results, err := bp.Process(ctx, names)

	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "%s: échec: %v\n", res.PortalName, res.Err)
			continue
		}
		if werr := writeSummary(cfg, res.Run); werr != nil {
			logger.Warn("could not write summary", "portal", res.PortalName, "error", werr)
		}
	}
	return err
}

// buildPortalRun assembles the pipeline and run state for one portal:
// output tree, journal, browser session, drop directory, progress bar.
// The returned cleanup must be called after Execute.
func buildPortalRun(cfg *config.Config, db *database.DB, logger *slog.Logger) (*pipeline.Pipeline, *pipeline.Run, func(), error) {
	portal, err := model.NewPortal(cfg.Portal)
	if err != nil {
		return nil, nil, nil, err
	}

	outputDir, err := resolveOutputDir(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := storage.New(outputDir)
	if err != nil {
		return nil, nil, nil, err
	}

	downloadDir := cfg.DownloadDir
	removeDownloadDir := false
	if downloadDir == "" {
		downloadDir, err = os.MkdirTemp("", "cdpmirror-dl-*")
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create download directory: %w", err)
		}
		removeDownloadDir = true
	}

	// The journal tees to stdout so the operator follows the run live;
	// --json keeps stdout machine-readable instead.
	var tee io.Writer
	if !cfg.JSONSummary {
		tee = os.Stdout
	}
	jrn := journal.NewFile(store.Abs(config.JournalFileName),
		config.JournalMaxSizeMB, config.JournalMaxBackups, tee)

	session, err := browser.NewSession(portal, downloadDir,
		browser.WithHeadless(cfg.Headless),
		browser.WithNavigationTimeout(cfg.NavigationTimeout),
		browser.WithLoginWait(config.DefaultLoginWait),
		browser.WithLogger(logger))
	if err != nil {
		return nil, nil, nil, err
	}

	run := pipeline.NewRun(cfg, portal)
	run.Summary.OutputDir = outputDir
	run.Creds = browser.Credentials{Identifiant: cfg.Identifiant, MotDePasse: cfg.MotDePasse}
	run.Session = session
	run.Store = store
	run.Journal = jrn
	run.DownloadDir = downloadDir
	run.DB = db
	run.RunID = database.NewRunID()

	var bar *progressbar.ProgressBar
	if !cfg.NoProgress && !cfg.JSONSummary {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("copie en cours"),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionShowCount(),
		)
		tick := func() { _ = bar.Add(1) }
		run.PageProgress = tick
		run.FileProgress = tick
	}

	pipe := pipeline.New(pipeline.WithLogger(logger))
	pipe.AddSteps(
		pipeline.NewConnectStep(logger),
		pipeline.NewCrawlStep(logger),
		pipeline.NewAssetsStep(logger),
		pipeline.NewMappingStep(),
		pipeline.NewReportStep(),
		pipeline.NewHistoryStep(logger),
	)

	cleanup := func() {
		if bar != nil {
			_ = bar.Finish()
		}
		if err := session.Close(); err != nil {
			logger.Warn("could not close browser", "error", err)
		}
		if err := jrn.Close(); err != nil {
			logger.Warn("could not close journal", "error", err)
		}
		if removeDownloadDir {
			if err := os.RemoveAll(downloadDir); err != nil {
				logger.Warn("could not remove download directory", "error", err)
			}
		}
	}
	return pipe, run, cleanup, nil
}

// writeSummary prints the end-of-run summary in the configured format.
func writeSummary(cfg *config.Config, run *pipeline.Run) error {
	if run == nil || run.Summary == nil {
		return nil
	}
	var w report.Writer
	if cfg.JSONSummary {
		w = report.NewJSONWriter(os.Stdout)
	} else {
		w = report.NewConsoleWriter(os.Stdout)
	}
	return w.Write(run.Summary)
}
