package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/cdp-tools/cdpmirror/internal/model"
)

// Event is one append-only entry in the registry's history: a key seen for
// the first time or a terminal transition. The run-history database stores
// the event stream so that resumability could later be added without
// redesigning the registry.
type Event struct {
	// Seq is the 1-based position of the event within the run.
	Seq int64

	// Kind is one of page_seen, page_fetched, page_failed, file_seen,
	// file_downloaded, file_failed.
	Kind string

	// RemoteKey identifies the affected page or file.
	RemoteKey string

	// Detail carries the title on first sight and the failure reason on
	// failed transitions.
	Detail string

	// At is when the event was recorded.
	At time.Time
}

// Registry assigns and remembers stable local identifiers for remote pages
// and remote files. It is the sole authority answering "is this already
// known, and under what local identity".
type Registry struct {
	mu     sync.RWMutex
	pages  map[string]*model.PageRecord
	files  map[string]*model.FileRecord
	events []Event
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		pages: make(map[string]*model.PageRecord),
		files: make(map[string]*model.FileRecord),
	}
}

// ResolvePage returns the local id for a page remote key, creating the
// record on first sight. The created flag tells the caller whether this
// call was the first sight; callers emit traversal work only when it is
// true, which is what makes check-and-create race free.
//
// Repeat calls return the existing local id and never mutate the stored
// title or status.
func (r *Registry) ResolvePage(remoteKey, title string) (localID string, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.pages[remoteKey]; ok {
		return p.LocalID, false
	}

	p := &model.PageRecord{
		RemoteKey:   remoteKey,
		LocalID:     localPageID(remoteKey),
		Title:       title,
		OriginalURL: model.PageOriginalURL(remoteKey),
		Status:      model.PageStatusPending,
	}
	r.pages[remoteKey] = p
	r.record("page_seen", remoteKey, title)
	return p.LocalID, true
}

// ResolveFile returns the local id for a file remote key, creating the
// record on first sight. originPage is the remote key of the page holding
// the first reference; it is recorded for lookup only and ignored on
// repeat calls.
func (r *Registry) ResolveFile(remoteKey, displayName, originPage string) (localID string, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.files[remoteKey]; ok {
		return f.LocalID, false
	}

	f := &model.FileRecord{
		RemoteKey:   remoteKey,
		LocalID:     localFileID(remoteKey),
		DisplayName: displayName,
		OriginPage:  originPage,
		Status:      model.FileStatusPending,
	}
	r.files[remoteKey] = f
	r.record("file_seen", remoteKey, displayName)
	return f.LocalID, true
}

// localPageID derives the page local id from the remote key. The portal's
// numeric directory ids are already stable and collision free, so the key
// itself is the id; deriving rather than counting keeps local names
// identical across separate runs of the same portal.
func localPageID(remoteKey string) string { return remoteKey }

// localFileID derives the file local id (the stable symbolic name) from
// the remote key.
func localFileID(remoteKey string) string { return remoteKey }

// MarkPageFetched transitions a page to fetched. It returns a registry
// invariant violation if the key is unknown or the page is already
// terminal.
func (r *Registry) MarkPageFetched(remoteKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pages[remoteKey]
	if !ok {
		return fmt.Errorf("%w: page %q", ErrUnknownKey, remoteKey)
	}
	if p.Status.Terminal() {
		return fmt.Errorf("%w: page %q is %s", ErrAlreadyTerminal, remoteKey, p.Status)
	}
	p.Status = model.PageStatusFetched
	r.record("page_fetched", remoteKey, "")
	return nil
}

// MarkPageFailed transitions a page to failed, keeping the reason for the
// final report. Same invariants as MarkPageFetched.
func (r *Registry) MarkPageFailed(remoteKey, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pages[remoteKey]
	if !ok {
		return fmt.Errorf("%w: page %q", ErrUnknownKey, remoteKey)
	}
	if p.Status.Terminal() {
		return fmt.Errorf("%w: page %q is %s", ErrAlreadyTerminal, remoteKey, p.Status)
	}
	p.Status = model.PageStatusFailed
	p.FailureReason = reason
	r.record("page_failed", remoteKey, reason)
	return nil
}

// MarkFileDownloaded transitions a file to downloaded, recording the real
// filename the artifact was stored under and its size.
func (r *Registry) MarkFileDownloaded(remoteKey, realFileName string, sizeBytes int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.files[remoteKey]
	if !ok {
		return fmt.Errorf("%w: file %q", ErrUnknownKey, remoteKey)
	}
	if f.Status.Terminal() {
		return fmt.Errorf("%w: file %q is %s", ErrAlreadyTerminal, remoteKey, f.Status)
	}
	f.Status = model.FileStatusDownloaded
	f.RealFileName = realFileName
	f.SizeBytes = sizeBytes
	r.record("file_downloaded", remoteKey, realFileName)
	return nil
}

// MarkFileFailed transitions a file to failed, keeping the reason for the
// final report. Same invariants as MarkFileDownloaded.
func (r *Registry) MarkFileFailed(remoteKey, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.files[remoteKey]
	if !ok {
		return fmt.Errorf("%w: file %q", ErrUnknownKey, remoteKey)
	}
	if f.Status.Terminal() {
		return fmt.Errorf("%w: file %q is %s", ErrAlreadyTerminal, remoteKey, f.Status)
	}
	f.Status = model.FileStatusFailed
	f.FailureReason = reason
	r.record("file_failed", remoteKey, reason)
	return nil
}

// Page returns a copy of the record for a page remote key.
func (r *Registry) Page(remoteKey string) (model.PageRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.pages[remoteKey]
	if !ok {
		return model.PageRecord{}, false
	}
	return *p, true
}

// File returns a copy of the record for a file remote key.
func (r *Registry) File(remoteKey string) (model.FileRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.files[remoteKey]
	if !ok {
		return model.FileRecord{}, false
	}
	return *f, true
}

// Pages returns copies of all page records in stable key order.
func (r *Registry) Pages() []model.PageRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make(map[string]struct{}, len(r.pages))
	for k := range r.pages {
		keys[k] = struct{}{}
	}
	out := make([]model.PageRecord, 0, len(r.pages))
	for _, k := range model.SortKeys(keys) {
		out = append(out, *r.pages[k])
	}
	return out
}

// Files returns copies of all file records in stable key order.
func (r *Registry) Files() []model.FileRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.FileRecord, 0, len(r.files))
	for _, k := range sortedFileKeys(r.files) {
		out = append(out, *r.files[k])
	}
	return out
}

// Stats is a point-in-time census of the registry used by the scheduler's
// progress logging and the final summary.
type Stats struct {
	PagesSeen       int
	PagesFetched    int
	PagesFailed     int
	FilesSeen       int
	FilesDownloaded int
	FilesFailed     int
}

// Stats returns the current census.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var s Stats
	s.PagesSeen = len(r.pages)
	s.FilesSeen = len(r.files)
	for _, p := range r.pages {
		switch p.Status {
		case model.PageStatusFetched:
			s.PagesFetched++
		case model.PageStatusFailed:
			s.PagesFailed++
		}
	}
	for _, f := range r.files {
		switch f.Status {
		case model.FileStatusDownloaded:
			s.FilesDownloaded++
		case model.FileStatusFailed:
			s.FilesFailed++
		}
	}
	return s
}

// FailedFiles returns the terminally failed files in stable key order,
// ready for the final report.
func (r *Registry) FailedFiles() []model.FailedFile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var failed []model.FailedFile
	for _, key := range sortedFileKeys(r.files) {
		f := r.files[key]
		if f.Status == model.FileStatusFailed {
			failed = append(failed, model.FailedFile{
				RemoteKey:   f.RemoteKey,
				DisplayName: f.DisplayName,
				Reason:      f.FailureReason,
			})
		}
	}
	return failed
}

// Snapshot exports a consistent point-in-time view of all terminal records
// as mapping records. Pending records (possible after cancellation) are
// excluded: the mapping files never contain half-written entities, only
// completed ones plus failed ones explicitly flagged.
func (r *Registry) Snapshot() *model.MappingSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := &model.MappingSnapshot{
		Pages: make(map[string]model.PageMapping, len(r.pages)),
		Files: make(map[string]model.FileMapping, len(r.files)),
	}

	for key, p := range r.pages {
		if !p.Status.Terminal() {
			continue
		}
		m := model.PageMapping{
			Fichier:      p.Filename(),
			NomComplet:   p.Title,
			URLOriginale: p.OriginalURL,
			TexteClique:  p.Title,
		}
		if p.Status == model.PageStatusFailed {
			m.Fichier = ""
			m.Echec = true
		}
		snap.Pages[localPageID(key)] = m
	}

	for key, f := range r.files {
		if !f.Status.Terminal() {
			continue
		}
		m := model.FileMapping{
			Titre: f.DisplayName,
			Repo:  r.originLabel(f.OriginPage),
		}
		if f.Status == model.FileStatusDownloaded {
			m.FichierReel = f.RealFileName
			m.LienSymbolique = f.LocalID
		} else {
			m.Echec = true
		}
		snap.Files[localFileID(key)] = m
	}

	return snap
}

// originLabel resolves a file's origin page key to that page's human label.
// Callers must hold at least the read lock.
func (r *Registry) originLabel(originPage string) string {
	if p, ok := r.pages[originPage]; ok {
		return p.Title
	}
	return ""
}

// Events returns a copy of the append-only event stream.
func (r *Registry) Events() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// record appends an event. Callers must hold the write lock.
func (r *Registry) record(kind, remoteKey, detail string) {
	r.events = append(r.events, Event{
		Seq:       int64(len(r.events) + 1),
		Kind:      kind,
		RemoteKey: remoteKey,
		Detail:    detail,
		At:        time.Now(),
	})
}

// sortedFileKeys orders file keys numerically where possible so failure
// lists are stable between runs.
func sortedFileKeys(files map[string]*model.FileRecord) []string {
	tmp := make(map[string]struct{}, len(files))
	for k := range files {
		tmp[k] = struct{}{}
	}
	return model.SortKeys(tmp)
}
