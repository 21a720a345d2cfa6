package report

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cdp-tools/cdpmirror/internal/model"
	"github.com/cdp-tools/cdpmirror/internal/storage"
)

// Mapping file names inside the mirror root. They are part of the
// mirror's on-disk contract.
const (
	MappingPagesFile = "mapping_pages.json"
	MappingFilesFile = "mapping_fichiers.json"
)

// MappingWriter persists the registry snapshot as the two mapping files
// that let a reader (or a later tool) translate local names back to
// portal identities.
type MappingWriter struct {
	store *storage.Store
}

// NewMappingWriter creates a MappingWriter over the given store.
func NewMappingWriter(store *storage.Store) *MappingWriter {
	return &MappingWriter{store: store}
}

// WriteSnapshot writes mapping_pages.json and mapping_fichiers.json.
// Entries are ordered by key (numerically where keys are numeric) so
// the files diff cleanly between runs over the same portal.
func (m *MappingWriter) WriteSnapshot(snap *model.MappingSnapshot) error {
	pages, err := marshalOrdered(snap.Pages, snap.PageKeys())
	if err != nil {
		return fmt.Errorf("failed to marshal page mapping: %w", err)
	}
	if err := m.store.WriteText(MappingPagesFile, pages); err != nil {
		return err
	}

	files, err := marshalOrdered(snap.Files, snap.FileKeys())
	if err != nil {
		return fmt.Errorf("failed to marshal file mapping: %w", err)
	}
	return m.store.WriteText(MappingFilesFile, files)
}

// marshalOrdered renders a mapping as an indented JSON object whose
// entries follow the given key order. encoding/json sorts map keys
// lexically, which would interleave "10" between "1" and "2"; building
// the object by hand keeps the numeric order readers expect.
func marshalOrdered[V any](entries map[string]V, keys []string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, key := range keys {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  ")

		k, err := json.Marshal(key)
		if err != nil {
			return "", err
		}
		buf.Write(k)
		buf.WriteString(": ")

		v, err := json.MarshalIndent(entries[key], "  ", "  ")
		if err != nil {
			return "", err
		}
		buf.Write(v)
	}
	if len(keys) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	return buf.String(), nil
}
