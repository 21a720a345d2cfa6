package model

import (
	"sort"
	"strconv"
)

// PageMapping is the durable projection of one PageRecord, written to
// mapping_pages.json keyed by the page's local id.
//
// The field names are part of the mirror's on-disk contract; tools built
// against the original mapping files rely on them, so they are not
// translated.
type PageMapping struct {
	// Fichier is the local HTML filename, e.g. "docs_rep_213.html".
	Fichier string `json:"fichier"`

	// NomComplet is the full human label of the navigation target.
	NomComplet string `json:"nom_complet"`

	// URLOriginale is the portal-relative source URL, e.g. "docs?rep=213".
	URLOriginale string `json:"url_originale"`

	// TexteClique is the anchor text that led to this page.
	TexteClique string `json:"texte_clique"`

	// Echec marks pages whose fetch terminally failed. Absent for
	// successful entries to keep the file shape stable.
	Echec bool `json:"echec,omitempty"`
}

// FileMapping is the durable projection of one FileRecord, written to
// mapping_fichiers.json keyed by the file's local id.
type FileMapping struct {
	// FichierReel is the sanitized real filename inside fichiers/.
	// Empty when the download failed.
	FichierReel string `json:"fichier_reel"`

	// LienSymbolique is the stable alias name inside fichiers/.
	// Empty when the download failed, since no alias is created.
	LienSymbolique string `json:"lien_symbolique"`

	// Titre is the human title from the click target.
	Titre string `json:"titre"`

	// Repo is the label of the directory where the file was first seen.
	Repo string `json:"repo"`

	// Echec marks files whose download terminally failed.
	Echec bool `json:"echec,omitempty"`
}

// MappingSnapshot is a consistent point-in-time export of the registry,
// limited to entities that reached a terminal state. It is the source for
// both mapping files and for the run-history database.
type MappingSnapshot struct {
	// Pages maps page local ids to their mapping records.
	Pages map[string]PageMapping `json:"pages"`

	// Files maps file local ids to their mapping records.
	Files map[string]FileMapping `json:"files"`
}

// PageKeys returns the page local ids in stable order.
func (s *MappingSnapshot) PageKeys() []string {
	return SortKeys(s.Pages)
}

// FileKeys returns the file local ids in stable order.
func (s *MappingSnapshot) FileKeys() []string {
	return SortKeys(s.Files)
}

// SortKeys orders map keys numerically where both parse as integers
// (the common case for directory and file ids) and lexically otherwise,
// so snapshots and failure lists diff cleanly between runs.
func SortKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}
