package download

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cdp-tools/cdpmirror/internal/journal"
	"github.com/cdp-tools/cdpmirror/internal/model"
	"github.com/cdp-tools/cdpmirror/internal/registry"
	"github.com/cdp-tools/cdpmirror/internal/storage"
)

// dropTrigger simulates the browser by writing an artifact into the drop
// directory when the download fires.
type dropTrigger struct {
	dir     string
	name    string
	content string
}

func (d *dropTrigger) TriggerDownload(_ context.Context, _ string) error {
	if d.name == "" {
		return nil
	}
	return os.WriteFile(filepath.Join(d.dir, d.name), []byte(d.content), 0644)
}

func newTestOrchestrator(t *testing.T, trigger Trigger, jbuf *bytes.Buffer, opts ...OrchestratorOption) (*Orchestrator, *registry.Registry, *storage.Store) {
	t.Helper()

	store, err := storage.New(filepath.Join(t.TempDir(), "mirror"))
	if err != nil {
		t.Fatal(err)
	}
	reg := registry.New()

	dropDir := trigger.(*dropTrigger).dir
	w := NewWatcher(dropDir, 10*time.Millisecond, 2*time.Second)

	o := NewOrchestrator(trigger, w, store, reg, journal.New(jbuf), opts...)
	return o, reg, store
}

func TestDownloadStoresArtifactAndAlias(t *testing.T) {
	t.Parallel()

	dropDir := t.TempDir()
	trigger := &dropTrigger{dir: dropDir, name: "download.pdf", content: "contenu du poly"}
	var jbuf bytes.Buffer
	o, reg, store := newTestOrchestrator(t, trigger, &jbuf)

	reg.ResolveFile("719", "Capitalisme et liberté", "213")
	item := model.WorkItem{Kind: model.FileWork, RemoteKey: "719", Title: "Capitalisme et liberté", SourceContext: "213"}

	if err := o.Download(context.Background(), item); err != nil {
		t.Fatalf("Download() error: %v", err)
	}

	rec, ok := reg.File("719")
	if !ok {
		t.Fatal("file 719 missing from registry")
	}
	if rec.Status != model.FileStatusDownloaded {
		t.Errorf("status = %s, want downloaded", rec.Status)
	}
	if rec.RealFileName != "Capitalisme et liberté.pdf" {
		t.Errorf("RealFileName = %q, want %q", rec.RealFileName, "Capitalisme et liberté.pdf")
	}
	if rec.SizeBytes != int64(len("contenu du poly")) {
		t.Errorf("SizeBytes = %d, want %d", rec.SizeBytes, len("contenu du poly"))
	}

	// The alias fichiers/719 resolves to the stored artifact.
	got, err := os.ReadFile(store.Abs(filepath.Join(model.FilesDirName, "719")))
	if err != nil {
		t.Fatalf("reading alias: %v", err)
	}
	if string(got) != "contenu du poly" {
		t.Errorf("alias content = %q", got)
	}

	// The drop directory is empty again.
	entries, err := os.ReadDir(dropDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("drop directory still holds %d entries", len(entries))
	}

	if !strings.Contains(jbuf.String(), "Téléchargé: Capitalisme et liberté.pdf") {
		t.Errorf("journal missing download line: %s", jbuf.String())
	}
}

func TestDownloadTimeoutMarksFileFailed(t *testing.T) {
	t.Parallel()

	trigger := &dropTrigger{dir: t.TempDir()} // never drops anything
	var jbuf bytes.Buffer
	o, reg, _ := newTestOrchestrator(t, trigger, &jbuf)
	o.watcher = NewWatcher(trigger.dir, 10*time.Millisecond, 100*time.Millisecond)

	reg.ResolveFile("720", "Poly perdu", "213")
	item := model.WorkItem{Kind: model.FileWork, RemoteKey: "720", Title: "Poly perdu", SourceContext: "213"}

	if err := o.Download(context.Background(), item); err != nil {
		t.Fatalf("Download() error: %v, want nil for a per-file failure", err)
	}

	rec, _ := reg.File("720")
	if rec.Status != model.FileStatusFailed {
		t.Errorf("status = %s, want failed", rec.Status)
	}
	if !strings.Contains(jbuf.String(), "ECHEC téléchargement: Poly perdu") {
		t.Errorf("journal missing failure line: %s", jbuf.String())
	}
}

func TestDownloadLimit(t *testing.T) {
	t.Parallel()

	trigger := &dropTrigger{dir: t.TempDir(), name: "a.pdf", content: "x"}
	var jbuf bytes.Buffer
	o, reg, _ := newTestOrchestrator(t, trigger, &jbuf, WithLimit(1))

	reg.ResolveFile("1", "Premier", "docs")
	reg.ResolveFile("2", "Second", "docs")

	if err := o.Download(context.Background(), model.WorkItem{Kind: model.FileWork, RemoteKey: "1", Title: "Premier"}); err != nil {
		t.Fatalf("first Download() error: %v", err)
	}
	err := o.Download(context.Background(), model.WorkItem{Kind: model.FileWork, RemoteKey: "2", Title: "Second"})
	if !errors.Is(err, ErrFileLimitReached) {
		t.Errorf("second Download() = %v, want ErrFileLimitReached", err)
	}

	// The capped file stays pending, not failed.
	rec, _ := reg.File("2")
	if rec.Status != model.FileStatusPending {
		t.Errorf("capped file status = %s, want pending", rec.Status)
	}
}

func TestDownloadDisambiguatesCollidingNames(t *testing.T) {
	t.Parallel()

	trigger := &dropTrigger{dir: t.TempDir(), name: "download.pdf", content: "v1"}
	var jbuf bytes.Buffer
	o, reg, _ := newTestOrchestrator(t, trigger, &jbuf)

	reg.ResolveFile("10", "DM n°3", "docs")
	reg.ResolveFile("11", "DM n°3", "docs")

	if err := o.Download(context.Background(), model.WorkItem{Kind: model.FileWork, RemoteKey: "10", Title: "DM n°3"}); err != nil {
		t.Fatal(err)
	}
	trigger.content = "v2"
	if err := o.Download(context.Background(), model.WorkItem{Kind: model.FileWork, RemoteKey: "11", Title: "DM n°3"}); err != nil {
		t.Fatal(err)
	}

	first, _ := reg.File("10")
	second, _ := reg.File("11")
	if first.RealFileName == second.RealFileName {
		t.Errorf("colliding titles stored under the same name %q", first.RealFileName)
	}
	if !strings.Contains(second.RealFileName, "(2)") {
		t.Errorf("second artifact = %q, want a \" (2)\" suffix", second.RealFileName)
	}
}

func TestDownloadProgressCallback(t *testing.T) {
	t.Parallel()

	trigger := &dropTrigger{dir: t.TempDir(), name: "a.pdf", content: "x"}
	var jbuf bytes.Buffer

	var ticks int
	o, reg, _ := newTestOrchestrator(t, trigger, &jbuf, WithProgress(func() { ticks++ }))

	reg.ResolveFile("5", "Cours", "docs")
	if err := o.Download(context.Background(), model.WorkItem{Kind: model.FileWork, RemoteKey: "5", Title: "Cours"}); err != nil {
		t.Fatal(err)
	}
	if ticks != 1 {
		t.Errorf("progress ticks = %d, want 1", ticks)
	}
}
