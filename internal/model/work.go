package model

// WorkKind distinguishes the two kinds of traversal work.
type WorkKind int

const (
	// PageWork is a pending page fetch.
	PageWork WorkKind = iota

	// FileWork is a pending file download.
	FileWork
)

// String returns the stable spelling of the work kind.
func (k WorkKind) String() string {
	if k == FileWork {
		return "file"
	}
	return "page"
}

// WorkItem is a pending unit of traversal emitted by the resolver the first
// time a remote key is seen. It is ephemeral: consumed by the scheduler or
// the download orchestrator and never persisted.
type WorkItem struct {
	// Kind distinguishes page fetches from file downloads.
	Kind WorkKind

	// RemoteKey identifies the target page or file.
	RemoteKey string

	// Title is the anchor text of the reference that discovered the target.
	Title string

	// SourceContext is the remote key of the page the reference came from.
	SourceContext string
}
