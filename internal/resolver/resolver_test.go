package resolver

import (
	"strings"
	"testing"

	"github.com/cdp-tools/cdpmirror/internal/model"
	"github.com/cdp-tools/cdpmirror/internal/registry"
)

// newTestResolver builds a resolver for the mp2i portal over a fresh
// registry.
func newTestResolver(t *testing.T) (*Resolver, *registry.Registry) {
	t.Helper()

	portal, err := model.NewPortal("mp2i")
	if err != nil {
		t.Fatal(err)
	}
	reg := registry.New()
	return New(portal, reg), reg
}

func TestRewriteDirectoryAndFileRefs(t *testing.T) {
	t.Parallel()

	r, _ := newTestResolver(t)

	body := `<html><body>
<p class="rep"><a href="docs?rep=213">Fiches de lecture</a></p>
<p class="doc"><a href="download?id=719">Capitalisme et liberté</a></p>
</body></html>`

	res, err := r.Rewrite(body, model.PageKeyDocs)
	if err != nil {
		t.Fatalf("Rewrite() error: %v", err)
	}

	if !strings.Contains(res.Body, `href="docs_rep_213.html"`) {
		t.Errorf("directory ref not rewritten: %s", res.Body)
	}
	if !strings.Contains(res.Body, `href="fichiers/719"`) {
		t.Errorf("file ref not rewritten: %s", res.Body)
	}

	if len(res.Work) != 2 {
		t.Fatalf("Rewrite() emitted %d work items, want 2", len(res.Work))
	}
	if res.Work[0].Kind != model.PageWork || res.Work[0].RemoteKey != "213" {
		t.Errorf("work[0] = %+v, want page 213", res.Work[0])
	}
	if res.Work[0].Title != "Fiches de lecture" {
		t.Errorf("work[0] title = %q", res.Work[0].Title)
	}
	if res.Work[1].Kind != model.FileWork || res.Work[1].RemoteKey != "719" {
		t.Errorf("work[1] = %+v, want file 719", res.Work[1])
	}
	if res.Work[1].SourceContext != model.PageKeyDocs {
		t.Errorf("work[1] source = %q, want docs", res.Work[1].SourceContext)
	}
}

func TestRewriteFirstSightOnly(t *testing.T) {
	t.Parallel()

	r, _ := newTestResolver(t)

	// Two distinct pages both link to file 719.
	pageA := `<html><body><a href="download?id=719">Capitalisme et liberté</a></body></html>`
	pageB := `<html><body><a href="download?id=719">le même fichier</a></body></html>`

	resA, err := r.Rewrite(pageA, "213")
	if err != nil {
		t.Fatal(err)
	}
	resB, err := r.Rewrite(pageB, "214")
	if err != nil {
		t.Fatal(err)
	}

	if len(resA.Work) != 1 {
		t.Errorf("first page emitted %d work items, want 1", len(resA.Work))
	}
	if len(resB.Work) != 0 {
		t.Errorf("second page emitted %d work items, want 0", len(resB.Work))
	}

	// Both rewritten pages point at the same alias.
	for _, body := range []string{resA.Body, resB.Body} {
		if !strings.Contains(body, `href="fichiers/719"`) {
			t.Errorf("page does not reference fichiers/719: %s", body)
		}
	}
}

func TestRewriteSelfLinkNoReEnqueue(t *testing.T) {
	t.Parallel()

	r, reg := newTestResolver(t)

	// The scheduler resolved page 213 before fetching it.
	reg.ResolvePage("213", "Fiches de lecture")

	body := `<html><body><a href="docs?rep=213">recharger</a></body></html>`
	res, err := r.Rewrite(body, "213")
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Work) != 0 {
		t.Errorf("self link emitted %d work items, want 0", len(res.Work))
	}
	if !strings.Contains(res.Body, `href="docs_rep_213.html"`) {
		t.Errorf("self link not rewritten: %s", res.Body)
	}
}

func TestRewriteIdempotence(t *testing.T) {
	t.Parallel()

	r, _ := newTestResolver(t)

	body := `<html><body>
<a href="docs?rep=213">Fiches</a>
<a href="download?id=719">Capitalisme</a>
<a href="recent">Récemment</a>
<link rel="stylesheet" href="css/style.min.css?v=1202"/>
</body></html>`

	first, err := r.Rewrite(body, model.PageKeyDocs)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Rewrite(first.Body, model.PageKeyDocs)
	if err != nil {
		t.Fatal(err)
	}

	if second.Body != first.Body {
		t.Errorf("second pass changed the body:\nfirst:  %s\nsecond: %s", first.Body, second.Body)
	}
	if len(second.Work) != 0 {
		t.Errorf("second pass emitted %d work items, want 0", len(second.Work))
	}
}

func TestRewriteRootAliases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		href string
		want string
	}{
		{href: ".", want: "index.html"},
		{href: "./", want: "index.html"},
		{href: "index", want: "index.html"},
		{href: "docs", want: "docs.html"},
		{href: "docs.html", want: "docs.html"},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			t.Parallel()

			r, _ := newTestResolver(t)

			res, err := r.Rewrite(`<html><body><a href="`+tt.href+`">lien</a></body></html>`, "213")
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(res.Body, `href="`+tt.want+`"`) {
				t.Errorf("href %q not rewritten to %q: %s", tt.href, tt.want, res.Body)
			}
			if len(res.Work) != 0 {
				t.Errorf("root alias emitted work: %+v", res.Work)
			}
		})
	}
}

func TestRewriteNeutralizesChrome(t *testing.T) {
	t.Parallel()

	r, _ := newTestResolver(t)

	body := `<html><body>
<a href="agenda">Agenda</a>
<a href="mail">Messages</a>
<a href="notescolles?semaine=3">Colles</a>
<a href=".?page=2">Suivant</a>
</body></html>`

	res, err := r.Rewrite(body, model.PageKeyIndex)
	if err != nil {
		t.Fatal(err)
	}

	if got := strings.Count(res.Body, `href="#"`); got != 4 {
		t.Errorf("neutralized %d chrome links, want 4: %s", got, res.Body)
	}
	if res.Stats.Neutralized != 4 {
		t.Errorf("Stats.Neutralized = %d, want 4", res.Stats.Neutralized)
	}
}

func TestRewriteAssetRefs(t *testing.T) {
	t.Parallel()

	r, _ := newTestResolver(t)

	body := `<html><head>
<link rel="stylesheet" href="css/style.min.css?v=1202"/>
<link rel="stylesheet" href="css/icones.min.css?v=1200"/>
<script src="js/jquery.min.js"></script>
<script src="js/commun.min.js?v=1200"></script>
</head><body></body></html>`

	res, err := r.Rewrite(body, model.PageKeyIndex)
	if err != nil {
		t.Fatal(err)
	}

	wants := []string{
		`href="assets/css/style.min.css"`,
		`href="assets/css/icones.min.css"`,
		`src="assets/js/jquery.min.js"`,
		`src="assets/js/commun.min.js"`,
	}
	for _, want := range wants {
		if !strings.Contains(res.Body, want) {
			t.Errorf("asset not redirected, missing %s in: %s", want, res.Body)
		}
	}
	if res.Stats.AssetRefs != 4 {
		t.Errorf("Stats.AssetRefs = %d, want 4", res.Stats.AssetRefs)
	}
}

func TestRewriteUnresolvedLeftIntact(t *testing.T) {
	t.Parallel()

	r, _ := newTestResolver(t)

	body := `<html><body>
<a href="download?id=">fichier sans id</a>
<a href="docs?rep=">répertoire sans id</a>
</body></html>`

	res, err := r.Rewrite(body, "213")
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(res.Body, `href="download?id="`) {
		t.Errorf("unresolved file ref was modified: %s", res.Body)
	}
	if !strings.Contains(res.Body, `href="docs?rep="`) {
		t.Errorf("unresolved page ref was modified: %s", res.Body)
	}
	if res.Stats.Unresolved != 2 {
		t.Errorf("Stats.Unresolved = %d, want 2", res.Stats.Unresolved)
	}
	if len(res.Work) != 0 {
		t.Errorf("unresolved refs emitted work: %+v", res.Work)
	}
}

func TestRewritePassesThroughExternalAndInert(t *testing.T) {
	t.Parallel()

	r, _ := newTestResolver(t)

	hrefs := []string{
		"https://example.org/page",
		"mailto:prof@example.org",
		"javascript:void(0)",
		"#section",
		"fichiers/719",
		"assets/css/style.min.css",
		"docs_rep_213.html",
	}

	var sb strings.Builder
	sb.WriteString("<html><body>")
	for _, h := range hrefs {
		sb.WriteString(`<a href="` + h + `">x</a>`)
	}
	sb.WriteString("</body></html>")

	res, err := r.Rewrite(sb.String(), "213")
	if err != nil {
		t.Fatal(err)
	}

	for _, h := range hrefs {
		if !strings.Contains(res.Body, `href="`+h+`"`) {
			t.Errorf("href %q did not pass through: %s", h, res.Body)
		}
	}
	if len(res.Work) != 0 {
		t.Errorf("pass-through refs emitted work: %+v", res.Work)
	}
}

func TestRewriteAbsoluteEndpointURLs(t *testing.T) {
	t.Parallel()

	r, _ := newTestResolver(t)

	body := `<html><body>
<a href="https://cahier-de-prepa.fr/mp2i/docs?rep=213">Fiches</a>
<a href="https://cahier-de-prepa.fr/mp2i/download?id=719&amp;inline">Poly</a>
</body></html>`

	res, err := r.Rewrite(body, model.PageKeyDocs)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(res.Body, `href="docs_rep_213.html"`) {
		t.Errorf("absolute directory URL not rewritten: %s", res.Body)
	}
	if !strings.Contains(res.Body, `href="fichiers/719"`) {
		t.Errorf("absolute download URL not rewritten: %s", res.Body)
	}
}

func TestRewriteForeignHostEndpointLookalikes(t *testing.T) {
	t.Parallel()

	r, reg := newTestResolver(t)

	// Another site whose paths mimic the portal's endpoints is still
	// external: no rewrite, no work, no registry entry.
	hrefs := []string{
		"https://autre-site.example/download?id=5",
		"https://autre-classe.example/docs?rep=42",
		"//autre-site.example/mp2i/download?id=7",
	}

	var sb strings.Builder
	sb.WriteString("<html><body>")
	for _, h := range hrefs {
		sb.WriteString(`<a href="` + h + `">ailleurs</a>`)
	}
	sb.WriteString("</body></html>")

	res, err := r.Rewrite(sb.String(), model.PageKeyDocs)
	if err != nil {
		t.Fatal(err)
	}

	for _, h := range hrefs {
		if !strings.Contains(res.Body, `href="`+h+`"`) {
			t.Errorf("foreign href %q did not pass through: %s", h, res.Body)
		}
	}
	if len(res.Work) != 0 {
		t.Errorf("foreign hrefs emitted work: %+v", res.Work)
	}
	if res.Stats.FileRefs != 0 || res.Stats.PageRefs != 0 {
		t.Errorf("foreign hrefs counted as rewrites: %+v", res.Stats)
	}
	if _, ok := reg.File("5"); ok {
		t.Error("foreign file id 5 registered")
	}
	if _, ok := reg.Page("42"); ok {
		t.Error("foreign page id 42 registered")
	}
}

func TestRewriteRootAliasStatsIdempotent(t *testing.T) {
	t.Parallel()

	r, _ := newTestResolver(t)

	body := `<html><body>
<a href="index">Accueil</a>
<a href="docs">Documents</a>
</body></html>`

	first, err := r.Rewrite(body, "213")
	if err != nil {
		t.Fatal(err)
	}
	if first.Stats.PageRefs != 2 {
		t.Fatalf("first pass PageRefs = %d, want 2", first.Stats.PageRefs)
	}

	// A second pass sees index.html and docs.html and counts nothing.
	second, err := r.Rewrite(first.Body, "213")
	if err != nil {
		t.Fatal(err)
	}
	if second.Stats.PageRefs != 0 {
		t.Errorf("second pass PageRefs = %d, want 0", second.Stats.PageRefs)
	}
}

func TestExtractQueryID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		href   string
		marker string
		want   string
	}{
		{href: "download?id=719", marker: "id=", want: "719"},
		{href: "download?id=719&inline=1", marker: "id=", want: "719"},
		{href: "docs?rep=213#haut", marker: "rep=", want: "213"},
		{href: "download?id=", marker: "id=", want: ""},
		{href: "docs", marker: "rep=", want: ""},
	}

	for _, tt := range tests {
		if got := extractQueryID(tt.href, tt.marker); got != tt.want {
			t.Errorf("extractQueryID(%q, %q) = %q, want %q", tt.href, tt.marker, got, tt.want)
		}
	}
}
