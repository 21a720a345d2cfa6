package journal

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	at := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	return func() time.Time { return at }
}

func TestLogLineShape(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	j := New(&buf, WithClock(fixedClock()))

	j.Log("Page sauvegardée: %s", "docs_rep_213.html")

	got := buf.String()
	want := "[2025-03-14 15:09:26] Page sauvegardée: docs_rep_213.html\n"
	if got != want {
		t.Errorf("Log() wrote %q, want %q", got, want)
	}
}

func TestSectionBanner(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	j := New(&buf, WithClock(fixedClock()))

	j.Section("DÉBUT DU TÉLÉCHARGEMENT")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Section() wrote %d lines, want 3", len(lines))
	}
	if !strings.Contains(lines[0], strings.Repeat("=", 60)) {
		t.Errorf("first banner line missing separator: %q", lines[0])
	}
	if !strings.Contains(lines[1], "DÉBUT DU TÉLÉCHARGEMENT") {
		t.Errorf("banner missing title: %q", lines[1])
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "[2025-03-14 15:09:26] ") {
			t.Errorf("banner line missing timestamp prefix: %q", line)
		}
	}
}

func TestNewFileWritesAndTees(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "mirror.log")
	var tee bytes.Buffer

	j := NewFile(path, 10, 3, &tee, WithClock(fixedClock()))
	j.Log("Connexion réussie")
	if err := j.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading journal file: %v", err)
	}
	if !strings.Contains(string(data), "Connexion réussie") {
		t.Errorf("journal file missing line: %q", string(data))
	}
	if tee.String() != string(data) {
		t.Errorf("tee output %q differs from file %q", tee.String(), string(data))
	}
}

func TestCloseWithoutFile(t *testing.T) {
	t.Parallel()

	j := New(&bytes.Buffer{})
	if err := j.Close(); err != nil {
		t.Errorf("Close() on writer-backed journal = %v, want nil", err)
	}
}
