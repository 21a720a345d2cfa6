package journal

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// timestampLayout is the layout of the timestamp prefixing each line.
// It is part of the journal's on-disk shape.
const timestampLayout = "2006-01-02 15:04:05"

// sectionWidth is the width of section banner separators.
const sectionWidth = 60

// Journal writes the run journal: one timestamped line per noteworthy
// event (connect, page saved, file found, download result). The journal
// is a produced artifact of the mirror, written into the mirror root,
// distinct from the operator-facing diagnostic logger.
type Journal struct {
	mu     sync.Mutex
	sink   io.Writer
	closer io.Closer
	now    func() time.Time
}

// Option configures a Journal.
type Option func(*Journal)

// WithClock sets the time source. Tests use this to produce
// deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) {
		j.now = now
	}
}

// New creates a Journal writing to the given sink.
func New(sink io.Writer, opts ...Option) *Journal {
	j := &Journal{
		sink: sink,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// NewFile creates a Journal writing to the given file path with size
// rotation, optionally tee'd to a second writer (typically stdout, so the
// operator sees the journal live the way the original console output
// worked).
//
// Design decision: The sink rotates via lumberjack because a full-site
// run journals one line per page and per file; rotation bounds the disk
// footprint of a runaway site without the journal going silent.
func NewFile(path string, maxSizeMB, maxBackups int, tee io.Writer, opts ...Option) *Journal {
	rotating := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}

	var sink io.Writer = rotating
	if tee != nil {
		sink = io.MultiWriter(rotating, tee)
	}

	j := New(sink, opts...)
	j.closer = rotating
	return j
}

// Log writes one timestamped journal line.
func (j *Journal) Log(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()

	line := fmt.Sprintf(format, args...)
	fmt.Fprintf(j.sink, "[%s] %s\n", j.now().Format(timestampLayout), line)
}

// Section writes a banner separating the journal into phases
// (connection, crawl, assets, mappings, summary).
func (j *Journal) Section(title string) {
	separator := strings.Repeat("=", sectionWidth)
	j.Log("%s", separator)
	j.Log("  %s", title)
	j.Log("%s", separator)
}

// Close closes the underlying rotating file, if any.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closer == nil {
		return nil
	}
	return j.closer.Close()
}
