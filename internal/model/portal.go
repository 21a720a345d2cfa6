package model

import (
	"errors"
	"fmt"
	"strings"
)

// Portal errors.
var (
	// ErrEmptyPortal is returned when the portal input is empty.
	ErrEmptyPortal = errors.New("portal address cannot be empty")
	// ErrInvalidPortal is returned when the input cannot be normalized
	// into a portal address.
	ErrInvalidPortal = errors.New("invalid portal address")
)

// DefaultPortalHost is the host serving the document portals.
// Each class has its own portal under https://<host>/<class>/.
const DefaultPortalHost = "cahier-de-prepa.fr"

// Portal is an immutable value object representing one class portal.
// It normalizes the many ways operators write the address (full URL,
// host-prefixed, or just the class name) into a single canonical base URL.
type Portal struct {
	class   string // class segment, e.g. "mp2i-faidherbe"
	baseURL string // canonical base, e.g. "https://cahier-de-prepa.fr/mp2i-faidherbe/"
}

// NewPortal creates a Portal from operator input. Accepted shapes:
//
//	https://cahier-de-prepa.fr/ma-classe/
//	http://cahier-de-prepa.fr/ma-classe
//	cahier-de-prepa.fr/ma-classe
//	ma-classe
//
// All normalize to "https://cahier-de-prepa.fr/ma-classe/".
func NewPortal(raw string) (Portal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Portal{}, ErrEmptyPortal
	}
	s = strings.TrimRight(s, "/")

	// Strip scheme and host prefixes down to the class segment.
	for _, prefix := range []string{
		"https://" + DefaultPortalHost + "/",
		"http://" + DefaultPortalHost + "/",
		DefaultPortalHost + "/",
	} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			break
		}
	}

	// Whatever remains must be a bare class segment. A slash here means
	// the input pointed at a different host or a nested path.
	if s == "" || strings.Contains(s, "/") || strings.Contains(s, "://") {
		return Portal{}, fmt.Errorf("%w: %q", ErrInvalidPortal, raw)
	}

	return Portal{
		class:   s,
		baseURL: "https://" + DefaultPortalHost + "/" + s + "/",
	}, nil
}

// Class returns the class segment of the portal.
func (p Portal) Class() string { return p.class }

// BaseURL returns the canonical base URL with a trailing slash.
func (p Portal) BaseURL() string { return p.baseURL }

// DocsURL returns the URL of the document listing page.
func (p Portal) DocsURL() string { return p.baseURL + "docs" }

// DirectoryURL returns the URL of a directory listing page by remote key.
func (p Portal) DirectoryURL(remoteKey string) string {
	return p.baseURL + "docs?rep=" + remoteKey
}

// DownloadURL returns the session-gated download endpoint for a file key.
func (p Portal) DownloadURL(remoteKey string) string {
	return p.baseURL + "download?id=" + remoteKey
}

// AssetURL returns the URL of a static asset relative to the portal base.
func (p Portal) AssetURL(relative string) string {
	return p.baseURL + relative
}

// String returns the canonical base URL.
func (p Portal) String() string { return p.baseURL }

// IsZero reports whether the portal has not been initialized.
func (p Portal) IsZero() bool { return p.baseURL == "" }
