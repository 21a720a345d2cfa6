package model

import "fmt"

// FilesDirName is the directory inside the mirror root holding downloaded
// artifacts and their stable aliases.
const FilesDirName = "fichiers"

// FileRecord represents one distinct downloadable artifact, keyed by the
// opaque numeric id of the download?id=<id> endpoint.
//
// Local identity for files is a two-part scheme: the stable symbolic name
// equals RemoteKey (so cross-references between pages are insensitive to the
// real filename), and RealFileName records where the bytes actually live
// once downloaded.
//
// Invariant: RemoteKey is unique; RealFileName is unique on disk (collisions
// are disambiguated by the file store, never silently overwritten). Many
// pages may reference the same file; it is downloaded at most once.
type FileRecord struct {
	// RemoteKey is the opaque numeric file id from the download endpoint.
	RemoteKey string `json:"remote_key"`

	// LocalID is the stable symbolic name, equal to RemoteKey.
	LocalID string `json:"local_id"`

	// DisplayName is the human title from the click target, possibly
	// diacritic-bearing and unsafe as a raw link target.
	DisplayName string `json:"display_name"`

	// RealFileName is the sanitized name under which the bytes are stored,
	// empty until the download completes.
	RealFileName string `json:"real_file_name,omitempty"`

	// OriginPage is the remote key of the page where this file was first
	// referenced. Lookup only, not ownership.
	OriginPage string `json:"origin_page,omitempty"`

	// SizeBytes is the artifact size, recorded after a successful download.
	SizeBytes int64 `json:"size_bytes,omitempty"`

	// Status is the lifecycle state; transitions to terminal exactly once.
	Status FileStatus `json:"status"`

	// FailureReason holds the short failure description for failed files.
	FailureReason string `json:"failure_reason,omitempty"`
}

// AliasPath returns the mirror-relative stable alias path, e.g. "fichiers/719".
func (f *FileRecord) AliasPath() string {
	return FilesDirName + "/" + f.LocalID
}

// FormatSize renders a byte count the way the run journal reports it.
func FormatSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d octets", n)
	case n < 1024*1024:
		return fmt.Sprintf("%d Ko", n/1024)
	default:
		return fmt.Sprintf("%d Mo", n/(1024*1024))
	}
}
