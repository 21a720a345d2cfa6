package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cdp-tools/cdpmirror/internal/model"
)

// File permissions for the mirror tree. Pages and artifacts are meant to
// be opened in a browser, so they are world-readable; directories follow
// the usual group-readable convention.
const (
	dirPerm  = 0750
	filePerm = 0644
)

// Store owns the mirror's on-disk layout:
//
//	<root>/index.html, docs.html, docs_rep_<id>.html
//	<root>/fichiers/<realFileName> + <root>/fichiers/<id> aliases
//	<root>/assets/{css,js,fonts}/...
//	<root>/mapping_pages.json, mapping_fichiers.json, mirror.log
//
// All paths handed to Store methods are relative to the root; the Store
// is the only component that touches the mirror tree directly.
type Store struct {
	root string
}

// New creates a Store rooted at the given directory and materializes the
// mirror layout (fichiers/, assets/css, assets/js, assets/fonts).
func New(root string) (*Store, error) {
	s := &Store{root: root}
	for _, dir := range []string{
		root,
		filepath.Join(root, model.FilesDirName),
		filepath.Join(root, "assets", "css"),
		filepath.Join(root, "assets", "js"),
		filepath.Join(root, "assets", "fonts"),
	} {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return nil, fmt.Errorf("failed to create mirror directory: %w", err)
		}
	}
	return s, nil
}

// Root returns the mirror root directory.
func (s *Store) Root() string { return s.root }

// Abs resolves a mirror-relative path to an absolute one.
func (s *Store) Abs(rel string) string {
	return filepath.Join(s.root, rel)
}

// WriteText writes a UTF-8 text file (page body, mapping JSON) under the
// mirror root. The write goes through a temporary file renamed into
// place, so an interrupt never leaves a half-written page behind.
func (s *Store) WriteText(rel, content string) error {
	target := s.Abs(rel)

	tmp, err := os.CreateTemp(filepath.Dir(target), ".cdpmirror-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", rel, err)
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to chmod %s: %w", rel, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", rel, err)
	}
	return nil
}

// MoveFile moves an artifact from an absolute source path (the download
// drop directory) into the mirror at the given relative path. A plain
// rename is tried first; cross-device moves fall back to copy+remove.
func (s *Store) MoveFile(src, rel string) error {
	dst := s.Abs(rel)

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	// Rename fails across filesystems (drop dir on tmpfs, mirror on
	// disk is a common split). Copy then remove.
	in, err := os.Open(src) //nolint:gosec // Source is the run-private drop directory
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm) //nolint:gosec // Destination is inside the mirror root
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", rel, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("failed to copy artifact to %s: %w", rel, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", rel, err)
	}
	return os.Remove(src)
}

// CreateAlias creates the stable alias fichiers/<localID> resolving to
// the real artifact fichiers/<realFileName>. A relative symlink keeps the
// mirror relocatable; where symlinks are unsupported (some filesystems,
// Windows without privileges) the alias degrades to a byte copy so
// rewritten links still work.
func (s *Store) CreateAlias(localID, realFileName string) error {
	aliasPath := filepath.Join(s.root, model.FilesDirName, localID)

	// Replace a stale alias from an earlier run over the same output dir.
	if _, err := os.Lstat(aliasPath); err == nil {
		if err := os.Remove(aliasPath); err != nil {
			return fmt.Errorf("failed to remove stale alias %s: %w", localID, err)
		}
	}

	if err := os.Symlink(realFileName, aliasPath); err == nil {
		return nil
	}

	realPath := filepath.Join(s.root, model.FilesDirName, realFileName)
	in, err := os.Open(realPath) //nolint:gosec // Path is inside the mirror root
	if err != nil {
		return fmt.Errorf("failed to open artifact for alias copy: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(aliasPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm) //nolint:gosec // Path is inside the mirror root
	if err != nil {
		return fmt.Errorf("failed to create alias %s: %w", localID, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(aliasPath)
		return fmt.Errorf("failed to copy alias %s: %w", localID, err)
	}
	return out.Close()
}

// ArtifactExists reports whether a file (or alias) exists under fichiers/.
func (s *Store) ArtifactExists(name string) bool {
	_, err := os.Lstat(filepath.Join(s.root, model.FilesDirName, name))
	return err == nil
}

// UniqueArtifactName disambiguates a sanitized filename against the
// files already stored under fichiers/. Collisions get a deterministic
// " (2)", " (3)", ... suffix before the extension; an existing artifact
// is never silently overwritten.
func (s *Store) UniqueArtifactName(name string) string {
	if !s.ArtifactExists(name) {
		return name
	}

	ext := filepath.Ext(name)
	stem := name[:len(name)-len(ext)]
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		if !s.ArtifactExists(candidate) {
			return candidate
		}
	}
}

// ArtifactSize returns the byte size of a stored artifact.
func (s *Store) ArtifactSize(name string) (int64, error) {
	info, err := os.Stat(filepath.Join(s.root, model.FilesDirName, name))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// WriteBinary writes raw bytes (a mirrored static asset) under the
// mirror root.
func (s *Store) WriteBinary(rel string, data []byte) error {
	if err := os.WriteFile(s.Abs(rel), data, filePerm); err != nil { //nolint:gosec // Pages and assets are meant to be readable
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return nil
}
