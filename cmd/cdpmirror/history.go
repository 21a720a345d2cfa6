package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cdp-tools/cdpmirror/internal/config"
	"github.com/cdp-tools/cdpmirror/internal/database"
	"github.com/cdp-tools/cdpmirror/internal/model"
)

// NewHistoryCmd creates the history command.
// This command inspects past mirror runs stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [portal]",
		Short: "List past mirror runs and compare their contents",
		Long: `History displays past mirror runs recorded in the run database.

Without flags it lists runs, newest first, optionally filtered to one
portal. With --diff it compares the portal's two most recent runs and
shows which pages and documents appeared, which vanished, and which
downloads newly failed between them.

Examples:
  # List all recorded runs
  cdpmirror history

  # List runs for one portal
  cdpmirror history mp2i-faidherbe

  # What changed between the last two mirrors of a portal
  cdpmirror history mp2i-faidherbe --diff

  # Compare the latest run against a specific earlier run
  cdpmirror history mp2i-faidherbe --diff --with-run-id 3f1c...

  # Output in JSON or Markdown format
  cdpmirror history mp2i-faidherbe --diff --json
  cdpmirror history mp2i-faidherbe --diff --markdown`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("diff", "d", false,
		"Compare the contents of the portal's two most recent runs")
	cmd.Flags().String("with-run-id", "",
		"Compare the latest run with a specific run (use the list to see IDs)")
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to list (0 for all)")
	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false, "Output the comparison in Markdown format")

	return cmd
}

// historyFormat selects the output rendering of a run comparison.
type historyFormat int

const (
	formatText historyFormat = iota
	formatJSON
	formatMarkdown
)

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	var portal string
	if len(args) == 1 {
		// Runs are recorded under the canonical portal URL, so "mp2i" and
		// "https://cahier-de-prepa.fr/mp2i/" hit the same history rows.
		p, err := model.NewPortal(args[0])
		if err != nil {
			return fmt.Errorf("invalid portal: %w", err)
		}
		portal = p.String()
	}

	diff, err := cmd.Flags().GetBool("diff")
	if err != nil {
		return err
	}
	withRunID, err := cmd.Flags().GetString("with-run-id")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	if jsonOutput && markdownOutput {
		return errors.New("--json and --markdown are mutually exclusive")
	}
	if diff && portal == "" {
		return errors.New("a portal is required for --diff")
	}

	format := formatText
	if jsonOutput {
		format = formatJSON
	}
	if markdownOutput {
		format = formatMarkdown
	}

	ctx := context.Background()

	db, err := database.New(ctx, filepath.Join(config.XDGDataDir(), "history.db"))
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	if diff {
		return runHistoryDiff(ctx, db, portal, withRunID, format)
	}
	return listRuns(ctx, db, portal, limit, jsonOutput)
}

// listRuns lists recorded runs, newest first.
func listRuns(ctx context.Context, db *database.DB, portal string, limit int, jsonOutput bool) error {
	runs, err := db.ListRuns(ctx, portal, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(runs)
	}

	if len(runs) == 0 {
		if portal != "" {
			fmt.Printf("No recorded runs for %s\n", portal)
		} else {
			fmt.Println("No recorded runs in the database.")
		}
		fmt.Println("\nUse 'cdpmirror mirror <portal>' to mirror a portal.")
		return nil
	}

	fmt.Printf("Recorded runs (%d):\n\n", len(runs))
	fmt.Printf("  %-36s  %-16s  %-19s  %-8s  %s\n",
		"ID", "Portal", "Date", "Duration", "Content")
	fmt.Println("  " + strings.Repeat("-", 96))

	for _, run := range runs {
		// Show the class segment, not the full portal URL.
		portalLabel := run.Portal
		if p, err := model.NewPortal(run.Portal); err == nil {
			portalLabel = p.Class()
		}
		fmt.Printf("  %-36s  %-16s  %-19s  %-8s  %s\n",
			run.ID,
			portalLabel,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Elapsed.Round(time.Second),
			formatRunContent(run),
		)
	}

	fmt.Println("\nUse 'cdpmirror history <portal> --diff' to compare the latest two runs.")
	return nil
}

// formatRunContent summarizes one run's content counters on a single line.
func formatRunContent(run database.RunInfo) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("%dp", run.PagesSaved))
	parts = append(parts, fmt.Sprintf("%df", run.FilesDownloaded))
	if run.PagesFailed > 0 || run.FilesFailed > 0 {
		parts = append(parts, fmt.Sprintf("%d en échec", run.PagesFailed+run.FilesFailed))
	}
	if run.TestMode {
		parts = append(parts, "test")
	}
	if run.Cancelled {
		parts = append(parts, "interrompu")
	}
	return strings.Join(parts, ", ")
}

// historyDiff is the result of comparing two runs of a portal.
type historyDiff struct {
	// Portal is the portal whose runs are compared.
	Portal string `json:"portail"`

	// OlderRunID and NewerRunID identify the compared runs.
	OlderRunID string `json:"run_precedent"`
	NewerRunID string `json:"run_courant"`

	// AddedPages and RemovedPages list pages fetched in only one run.
	AddedPages   []database.PageChange `json:"pages_ajoutees,omitempty"`
	RemovedPages []database.PageChange `json:"pages_disparues,omitempty"`

	// AddedFiles lists files the newer run has that the older lacks.
	AddedFiles []database.FileChange `json:"fichiers_ajoutes,omitempty"`

	// RemovedFiles lists files the older run has that the newer lacks.
	RemovedFiles []database.FileChange `json:"fichiers_disparus,omitempty"`

	// NewlyFailed lists downloads that failed in the newer run without
	// having failed in the older one.
	NewlyFailed []database.FileChange `json:"nouveaux_echecs,omitempty"`
}

// empty reports whether the two runs have identical content.
func (d historyDiff) empty() bool {
	return len(d.AddedPages) == 0 && len(d.RemovedPages) == 0 &&
		len(d.AddedFiles) == 0 && len(d.RemovedFiles) == 0 &&
		len(d.NewlyFailed) == 0
}

// runHistoryDiff compares the contents of two runs of a portal.
func runHistoryDiff(ctx context.Context, db *database.DB, portal, withRunID string, format historyFormat) error {
	runs, err := db.ListRuns(ctx, portal, 2)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		return fmt.Errorf("no recorded runs for %s", portal)
	}

	newer := runs[0]

	var olderID string
	if withRunID != "" {
		older, err := db.Run(ctx, withRunID)
		if err != nil {
			return err
		}
		if older.Portal != portal {
			return fmt.Errorf("run %s belongs to %s, not %s", withRunID, older.Portal, portal)
		}
		olderID = older.ID
	} else {
		if len(runs) < 2 {
			return fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(runs))
		}
		olderID = runs[1].ID
	}

	result := historyDiff{
		Portal:     portal,
		OlderRunID: olderID,
		NewerRunID: newer.ID,
	}

	result.AddedFiles, result.RemovedFiles, err = db.DiffRuns(ctx, olderID, newer.ID)
	if err != nil {
		return fmt.Errorf("failed to compare runs: %w", err)
	}
	result.AddedPages, result.RemovedPages, err = db.DiffPages(ctx, olderID, newer.ID)
	if err != nil {
		return fmt.Errorf("failed to compare pages: %w", err)
	}
	result.NewlyFailed, err = db.NewlyFailedFiles(ctx, olderID, newer.ID)
	if err != nil {
		return fmt.Errorf("failed to list new failures: %w", err)
	}

	switch format {
	case formatJSON:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	case formatMarkdown:
		return printHistoryDiffMarkdown(result)
	default:
		return printHistoryDiffText(result)
	}
}

// printHistoryDiffText writes a run comparison in human-readable form.
func printHistoryDiffText(result historyDiff) error {
	fmt.Printf("Comparaison des copies : %s\n", result.Portal)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("\nRun précédent : %s\n", result.OlderRunID)
	fmt.Printf("Run courant   : %s\n", result.NewerRunID)

	if result.empty() {
		fmt.Println("\nAucun changement : les deux copies ont le même contenu.")
		return nil
	}

	if len(result.AddedPages) > 0 {
		fmt.Printf("\nNouvelles pages (%d) :\n", len(result.AddedPages))
		for _, p := range result.AddedPages {
			fmt.Printf("  [+] %s (id=%s) -> %s\n", p.Title, p.RemoteKey, p.LocalFile)
		}
	}
	if len(result.RemovedPages) > 0 {
		fmt.Printf("\nPages disparues (%d) :\n", len(result.RemovedPages))
		for _, p := range result.RemovedPages {
			fmt.Printf("  [-] %s (id=%s)\n", p.Title, p.RemoteKey)
		}
	}

	if len(result.AddedFiles) > 0 {
		fmt.Printf("\nNouveaux fichiers (%d) :\n", len(result.AddedFiles))
		for _, f := range result.AddedFiles {
			fmt.Printf("  [+] %s (id=%s, %s)\n",
				f.Title, f.RemoteKey, model.FormatSize(f.SizeBytes))
		}
	}
	if len(result.RemovedFiles) > 0 {
		fmt.Printf("\nFichiers disparus (%d) :\n", len(result.RemovedFiles))
		for _, f := range result.RemovedFiles {
			fmt.Printf("  [-] %s (id=%s)\n", f.Title, f.RemoteKey)
		}
	}

	if len(result.NewlyFailed) > 0 {
		fmt.Printf("\nNouveaux échecs de téléchargement (%d) :\n", len(result.NewlyFailed))
		for _, f := range result.NewlyFailed {
			fmt.Printf("  [!] %s (id=%s) : %s\n", f.Title, f.RemoteKey, f.Reason)
		}
	}

	return nil
}

// printHistoryDiffMarkdown writes a run comparison as Markdown.
func printHistoryDiffMarkdown(result historyDiff) error {
	fmt.Printf("# Comparaison des copies : %s\n\n", result.Portal)
	fmt.Printf("| Run | ID |\n|---|---|\n")
	fmt.Printf("| Précédent | `%s` |\n", result.OlderRunID)
	fmt.Printf("| Courant | `%s` |\n", result.NewerRunID)

	if result.empty() {
		fmt.Println("\nAucun changement : les deux copies ont le même contenu.")
		return nil
	}

	if len(result.AddedPages) > 0 {
		fmt.Printf("\n## Nouvelles pages (%d)\n\n", len(result.AddedPages))
		for _, p := range result.AddedPages {
			fmt.Printf("- **%s** (id=%s) -> `%s`\n", p.Title, p.RemoteKey, p.LocalFile)
		}
	}
	if len(result.RemovedPages) > 0 {
		fmt.Printf("\n## Pages disparues (%d)\n\n", len(result.RemovedPages))
		for _, p := range result.RemovedPages {
			fmt.Printf("- ~~%s~~ (id=%s)\n", p.Title, p.RemoteKey)
		}
	}
	if len(result.AddedFiles) > 0 {
		fmt.Printf("\n## Nouveaux fichiers (%d)\n\n", len(result.AddedFiles))
		for _, f := range result.AddedFiles {
			fmt.Printf("- **%s** (id=%s, %s)\n", f.Title, f.RemoteKey, model.FormatSize(f.SizeBytes))
		}
	}
	if len(result.RemovedFiles) > 0 {
		fmt.Printf("\n## Fichiers disparus (%d)\n\n", len(result.RemovedFiles))
		for _, f := range result.RemovedFiles {
			fmt.Printf("- ~~%s~~ (id=%s)\n", f.Title, f.RemoteKey)
		}
	}
	if len(result.NewlyFailed) > 0 {
		fmt.Printf("\n## Nouveaux échecs de téléchargement (%d)\n\n", len(result.NewlyFailed))
		for _, f := range result.NewlyFailed {
			fmt.Printf("- **%s** (id=%s) : %s\n", f.Title, f.RemoteKey, f.Reason)
		}
	}

	return nil
}
