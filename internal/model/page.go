package model

// Reserved page keys for the two root pages saved before any directory
// is walked. They live in the registry beside the numeric directory keys
// so link rewriting and the mapping snapshot treat them uniformly.
const (
	// PageKeyIndex is the remote key of the portal landing page.
	PageKeyIndex = "index"

	// PageKeyDocs is the remote key of the document listing page.
	PageKeyDocs = "docs"
)

// PageRecord represents one distinct logical navigation target on the portal.
// Directory pages are keyed by the opaque numeric id of the docs?rep=<id>
// endpoint; the two roots use the reserved keys above.
//
// Invariant: RemoteKey is unique across all pages ever seen and LocalID never
// changes once assigned. Records are never deleted.
type PageRecord struct {
	// RemoteKey distinguishes this page from all others on the portal.
	RemoteKey string `json:"remote_key"`

	// LocalID is the stable local identifier derived from RemoteKey.
	// For this portal the numeric directory id is already deterministic
	// and collision-free, so LocalID equals RemoteKey.
	LocalID string `json:"local_id"`

	// Title is the human label extracted from the click target.
	Title string `json:"title"`

	// OriginalURL is the portal-relative form recorded in the mapping,
	// e.g. "docs?rep=213", or the page name for the roots.
	OriginalURL string `json:"original_url"`

	// Status is the lifecycle state; transitions to terminal exactly once.
	Status PageStatus `json:"status"`

	// FailureReason holds the short failure description for failed pages.
	FailureReason string `json:"failure_reason,omitempty"`
}

// Filename returns the on-disk name of the page in the mirror root.
// Directory pages become docs_rep_<localId>.html; the roots keep their
// well-known names so a browser can open index.html directly.
func (p *PageRecord) Filename() string {
	return PageFilename(p.LocalID)
}

// PageFilename maps a page local id to its on-disk filename.
func PageFilename(localID string) string {
	switch localID {
	case PageKeyIndex:
		return "index.html"
	case PageKeyDocs:
		return "docs.html"
	default:
		return "docs_rep_" + localID + ".html"
	}
}

// PageOriginalURL maps a page remote key to the portal-relative URL
// recorded in the mapping file.
func PageOriginalURL(remoteKey string) string {
	switch remoteKey {
	case PageKeyIndex:
		return "index"
	case PageKeyDocs:
		return "docs"
	default:
		return "docs?rep=" + remoteKey
	}
}
