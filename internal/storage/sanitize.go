package storage

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxFileNameRunes caps sanitized filenames. Display titles on the
// portal are free text and occasionally paste-bombed; 200 runes keeps
// names comfortably under every filesystem's limit.
const maxFileNameRunes = 200

// SanitizeFileName turns a file's display title into a safe on-disk
// name, appending the artifact's extension when the title lacks it.
//
// The rules preserve what makes the name readable (letters with
// diacritics, digits, spaces, hyphens, dots) and drop everything else:
// slashes, quotes, colons and the rest of the characters that are
// illegal or surprising in filenames. Runs of whitespace collapse to a
// single space. Overlong names are truncated with a trailing ellipsis.
//
// The display-safe name is deliberately separate from the stable alias
// (the numeric id): links target the alias, so this name can favor
// humans over URL-safety.
func SanitizeFileName(displayName, ext string) string {
	// NFC first so a decomposed "é" (e + combining accent) survives the
	// rune filter as a single letter instead of losing its accent.
	name := norm.NFC.String(displayName)

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '_' || r == '-' || r == '.':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	name = strings.Join(strings.Fields(b.String()), " ")

	if runes := []rune(name); len(runes) > maxFileNameRunes {
		name = string(runes[:maxFileNameRunes-3]) + "..."
	}

	if name == "" {
		name = "fichier"
	}

	if ext != "" && !strings.HasSuffix(name, ext) {
		name += ext
	}

	return name
}
