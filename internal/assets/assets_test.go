package assets

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cdp-tools/cdpmirror/internal/journal"
	"github.com/cdp-tools/cdpmirror/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "mirror"))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestFetchMirrorsAssets(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/css/style.min.css":
			if r.URL.RawQuery != "v=1202" {
				t.Errorf("style.min.css query = %q, want v=1202", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte("body{margin:0}"))
		case "/js/jquery.min.js":
			_, _ = w.Write([]byte("/*jquery*/"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	store := newTestStore(t)
	var jbuf bytes.Buffer
	m := NewMirror(srv.URL+"/", store, journal.New(&jbuf), WithAssets([]Asset{
		{Remote: "css/style.min.css?v=1202", Local: "assets/css/style.min.css"},
		{Remote: "js/jquery.min.js", Local: "assets/js/jquery.min.js"},
	}))

	fetched, failed, err := m.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if fetched != 2 || failed != 0 {
		t.Errorf("Fetch() = (%d fetched, %d failed), want (2, 0)", fetched, failed)
	}

	css, err := os.ReadFile(store.Abs("assets/css/style.min.css"))
	if err != nil {
		t.Fatalf("reading mirrored stylesheet: %v", err)
	}
	if string(css) != "body{margin:0}" {
		t.Errorf("stylesheet content = %q", css)
	}

	if !strings.Contains(jbuf.String(), "Asset copié: assets/css/style.min.css") {
		t.Errorf("journal missing asset line: %s", jbuf.String())
	}
}

func TestFetchToleratesMissingAsset(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/js/jquery.min.js" {
			_, _ = w.Write([]byte("/*jquery*/"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	store := newTestStore(t)
	var jbuf bytes.Buffer
	m := NewMirror(srv.URL+"/", store, journal.New(&jbuf), WithAssets([]Asset{
		{Remote: "fonts/icomoon.woff?1210", Local: "assets/fonts/icomoon.woff"},
		{Remote: "js/jquery.min.js", Local: "assets/js/jquery.min.js"},
	}))

	fetched, failed, err := m.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if fetched != 1 || failed != 1 {
		t.Errorf("Fetch() = (%d fetched, %d failed), want (1, 1)", fetched, failed)
	}
	if !strings.Contains(jbuf.String(), "ECHEC asset: fonts/icomoon.woff?1210") {
		t.Errorf("journal missing failure line: %s", jbuf.String())
	}

	// The missing font never materialized on disk.
	if _, err := os.Stat(store.Abs("assets/fonts/icomoon.woff")); !os.IsNotExist(err) {
		t.Errorf("missing asset exists on disk: %v", err)
	}
}

func TestDefaultAssetsCoverTheMirrorLayout(t *testing.T) {
	t.Parallel()

	for _, a := range DefaultAssets {
		if !strings.HasPrefix(a.Local, "assets/") {
			t.Errorf("asset %q stored outside assets/: %q", a.Remote, a.Local)
		}
		if strings.Contains(a.Local, "?") {
			t.Errorf("asset %q keeps its query in the local path: %q", a.Remote, a.Local)
		}
	}
}
