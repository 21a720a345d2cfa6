package download

import "errors"

// Download errors.
var (
	// ErrDownloadTimeout is returned when no new completed artifact
	// appears in the drop directory within the download timeout. The
	// orchestrator treats it as a per-file failure, not a run failure.
	ErrDownloadTimeout = errors.New("download: timed out waiting for artifact")

	// ErrFileLimitReached is returned once the orchestrator has
	// downloaded its configured maximum number of files. The scheduler
	// stops dispatching file work when it sees it.
	ErrFileLimitReached = errors.New("download: file limit reached")
)
