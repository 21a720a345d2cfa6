// Package report renders run results.
//
// # Overview
//
// Three summary writers share the Writer interface: console (the plain
// text block printed at the end of a run), JSON (for scripting), and
// Markdown (RAPPORT.md written into the mirror so the archive documents
// itself). NewMultiWriter fans one summary out to several destinations.
//
// The MappingWriter is separate: it persists the registry snapshot as
// mapping_pages.json and mapping_fichiers.json, the durable translation
// tables between local names and portal identities. Their shape and key
// order are part of the mirror's on-disk contract.
package report
