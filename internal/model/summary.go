package model

import "time"

// FailedFile identifies one file whose download terminally failed,
// with enough context to retry it manually later.
type FailedFile struct {
	// RemoteKey is the numeric file id.
	RemoteKey string `json:"id"`

	// DisplayName is the human title from the click target.
	DisplayName string `json:"titre"`

	// Reason is the short failure description.
	Reason string `json:"erreur"`
}

// RunSummary is the end-of-run tally reported to the operator and stored
// with the run record. It must tolerate partial data: a cancelled or
// failure-heavy run still produces a complete, valid summary.
type RunSummary struct {
	// Portal is the canonical portal base URL.
	Portal string `json:"portal"`

	// OutputDir is the mirror root the run wrote into.
	OutputDir string `json:"output_dir"`

	// TestMode records whether the bounded test caps were active.
	TestMode bool `json:"test_mode"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Elapsed is the total wall-clock duration of the run.
	Elapsed time.Duration `json:"elapsed"`

	// PagesSaved counts pages whose rewritten body was persisted.
	PagesSaved int `json:"pages_saved"`

	// PagesFailed counts pages that terminally failed.
	PagesFailed int `json:"pages_failed"`

	// FilesDownloaded counts artifacts that landed in the file store.
	FilesDownloaded int `json:"files_downloaded"`

	// FailedFiles enumerates files that terminally failed.
	FailedFiles []FailedFile `json:"failed_files,omitempty"`

	// AssetsMirrored counts static assets copied into assets/.
	AssetsMirrored int `json:"assets_mirrored"`

	// AssetsFailed counts static assets that could not be fetched.
	AssetsFailed int `json:"assets_failed"`

	// UnresolvedRefs counts references left unrewritten because no
	// identifier could be extracted.
	UnresolvedRefs int `json:"unresolved_refs"`

	// Cancelled records whether the run was interrupted by the operator.
	Cancelled bool `json:"cancelled,omitempty"`
}

// FilesFailed returns the number of terminally failed files.
func (s *RunSummary) FilesFailed() int { return len(s.FailedFiles) }

// HasFailures reports whether any page, file, or asset failed.
func (s *RunSummary) HasFailures() bool {
	return s.PagesFailed > 0 || len(s.FailedFiles) > 0 || s.AssetsFailed > 0
}
