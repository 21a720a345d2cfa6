package model

// PageStatus tracks the lifecycle of a RemotePage.
// A page transitions from pending to exactly one terminal state.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons. The String() method provides the stable
// spelling used in the database and journal.
type PageStatus int

const (
	// PageStatusPending indicates the page has been discovered but not fetched.
	PageStatusPending PageStatus = iota

	// PageStatusFetched indicates the rewritten page body was persisted.
	PageStatusFetched

	// PageStatusFailed indicates the fetch failed terminally
	// (navigation timeout or logged-out shell).
	PageStatusFailed
)

// String returns the stable spelling of the page status.
func (s PageStatus) String() string {
	switch s {
	case PageStatusPending:
		return "pending"
	case PageStatusFetched:
		return "fetched"
	case PageStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is a terminal state.
func (s PageStatus) Terminal() bool {
	return s == PageStatusFetched || s == PageStatusFailed
}

// FileStatus tracks the lifecycle of a RemoteFile.
// A file transitions from pending to exactly one terminal state.
type FileStatus int

const (
	// FileStatusPending indicates the file has been referenced but not downloaded.
	FileStatusPending FileStatus = iota

	// FileStatusDownloaded indicates the artifact landed in the file store
	// and its stable alias exists.
	FileStatusDownloaded

	// FileStatusFailed indicates the download timed out or produced no artifact.
	FileStatusFailed
)

// String returns the stable spelling of the file status.
func (s FileStatus) String() string {
	switch s {
	case FileStatusPending:
		return "pending"
	case FileStatusDownloaded:
		return "downloaded"
	case FileStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is a terminal state.
func (s FileStatus) Terminal() bool {
	return s == FileStatusDownloaded || s == FileStatusFailed
}
