package model

import (
	"testing"
)

func TestPageFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		localID string
		want    string
	}{
		{name: "directory page", localID: "213", want: "docs_rep_213.html"},
		{name: "index root", localID: PageKeyIndex, want: "index.html"},
		{name: "docs root", localID: PageKeyDocs, want: "docs.html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := PageFilename(tt.localID); got != tt.want {
				t.Errorf("PageFilename(%q) = %q, want %q", tt.localID, got, tt.want)
			}
		})
	}
}

func TestPageOriginalURL(t *testing.T) {
	t.Parallel()

	if got := PageOriginalURL("213"); got != "docs?rep=213" {
		t.Errorf("PageOriginalURL(213) = %q, want %q", got, "docs?rep=213")
	}
	if got := PageOriginalURL(PageKeyIndex); got != "index" {
		t.Errorf("PageOriginalURL(index) = %q, want %q", got, "index")
	}
}

func TestStatusTerminal(t *testing.T) {
	t.Parallel()

	if PageStatusPending.Terminal() {
		t.Error("PageStatusPending.Terminal() = true, want false")
	}
	if !PageStatusFetched.Terminal() || !PageStatusFailed.Terminal() {
		t.Error("terminal page statuses not reported as terminal")
	}
	if FileStatusPending.Terminal() {
		t.Error("FileStatusPending.Terminal() = true, want false")
	}
	if !FileStatusDownloaded.Terminal() || !FileStatusFailed.Terminal() {
		t.Error("terminal file statuses not reported as terminal")
	}
}

func TestFormatSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		n    int64
		want string
	}{
		{name: "bytes", n: 512, want: "512 octets"},
		{name: "kilobytes", n: 2048, want: "2 Ko"},
		{name: "megabytes", n: 3 * 1024 * 1024, want: "3 Mo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := FormatSize(tt.n); got != tt.want {
				t.Errorf("FormatSize(%d) = %q, want %q", tt.n, got, tt.want)
			}
		})
	}
}

func TestMappingSnapshotKeyOrder(t *testing.T) {
	t.Parallel()

	snap := &MappingSnapshot{
		Pages: map[string]PageMapping{
			"213":   {},
			"7":     {},
			"1044":  {},
			"index": {},
			"docs":  {},
		},
	}

	got := snap.PageKeys()
	want := []string{"7", "213", "1044", "docs", "index"}
	if len(got) != len(want) {
		t.Fatalf("PageKeys() returned %d keys, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("PageKeys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFileRecordAliasPath(t *testing.T) {
	t.Parallel()

	f := &FileRecord{RemoteKey: "719", LocalID: "719"}
	if got := f.AliasPath(); got != "fichiers/719" {
		t.Errorf("AliasPath() = %q, want %q", got, "fichiers/719")
	}
}

func TestRunSummaryHasFailures(t *testing.T) {
	t.Parallel()

	clean := &RunSummary{PagesSaved: 3, FilesDownloaded: 2}
	if clean.HasFailures() {
		t.Error("HasFailures() = true for clean run")
	}

	failed := &RunSummary{FailedFiles: []FailedFile{{RemoteKey: "719", DisplayName: "Capitalisme et liberté"}}}
	if !failed.HasFailures() {
		t.Error("HasFailures() = false with a failed file")
	}
	if failed.FilesFailed() != 1 {
		t.Errorf("FilesFailed() = %d, want 1", failed.FilesFailed())
	}
}
