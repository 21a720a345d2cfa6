package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// mtimeSkew tolerates drop-directory filesystems whose modification
// times lag the wall clock slightly.
const mtimeSkew = 2 * time.Second

// partialSuffixes are the in-progress spellings browsers use while a
// download streams. An artifact carrying one of these is not done.
var partialSuffixes = []string{".crdownload", ".part", ".download"}

// Watcher observes the session-private drop directory the browser saves
// downloads into. Completion is detected by difference: a before-set is
// taken right before the download is triggered, and the first stable new
// entry that is not a partial file is the artifact.
type Watcher struct {
	dir     string
	poll    time.Duration
	timeout time.Duration
}

// NewWatcher creates a Watcher over the given drop directory.
func NewWatcher(dir string, poll, timeout time.Duration) *Watcher {
	return &Watcher{dir: dir, poll: poll, timeout: timeout}
}

// Snapshot records the names currently present in the drop directory.
// Call it immediately before triggering a download; Await only reports
// entries absent from the snapshot.
func (w *Watcher) Snapshot() (map[string]struct{}, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read drop directory: %w", err)
	}
	before := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		before[e.Name()] = struct{}{}
	}
	return before, nil
}

// Await polls the drop directory until a new, completed artifact appears
// and returns its absolute path. An artifact counts only when it was
// absent from the before-set, carries no partial suffix, was modified
// after the trigger time, and has kept a stable size across two
// consecutive polls.
//
// Returns ErrDownloadTimeout when the timeout elapses and the context
// error when the run is cancelled mid-wait.
func (w *Watcher) Await(ctx context.Context, before map[string]struct{}, start time.Time) (string, error) {
	deadline := time.Now().Add(w.timeout)

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	// Stability tracking: the same name must report the same size on two
	// consecutive polls before it is trusted. Chromium renames the
	// .crdownload away at completion, but other engines truncate and
	// rewrite in place.
	var lastName string
	var lastSize int64 = -1

	for {
		name, size, err := w.candidate(before, start)
		if err != nil {
			return "", err
		}
		if name != "" {
			if name == lastName && size == lastSize {
				return filepath.Join(w.dir, name), nil
			}
			lastName, lastSize = name, size
		} else {
			lastName, lastSize = "", -1
		}

		if time.Now().After(deadline) {
			return "", ErrDownloadTimeout
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// candidate scans the drop directory for a completed new artifact and
// returns its name and current size, or "" when none qualifies yet.
func (w *Watcher) candidate(before map[string]struct{}, start time.Time) (string, int64, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read drop directory: %w", err)
	}

	for _, e := range entries {
		name := e.Name()
		if _, seen := before[name]; seen {
			continue
		}
		if e.IsDir() || isPartial(name) || strings.HasPrefix(name, ".") {
			continue
		}

		info, err := e.Info()
		if err != nil {
			// Completed and renamed between ReadDir and Info; retry on
			// the next poll.
			continue
		}
		if info.ModTime().Before(start.Add(-mtimeSkew)) {
			continue
		}
		return name, info.Size(), nil
	}
	return "", 0, nil
}

// isPartial reports whether the name is an in-progress download.
func isPartial(name string) bool {
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
