package resolver

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/cdp-tools/cdpmirror/internal/model"
	"github.com/cdp-tools/cdpmirror/internal/registry"
)

// Resolver rewrites one raw page body so every reference resolves inside
// the mirror, registering newly discovered pages and files along the way.
//
// Design decision: We parse with golang.org/x/net/html rather than
// regex because:
//  1. It correctly handles the malformed HTML dynamic sites emit
//  2. Attribute rewriting in a DOM walk cannot corrupt text content
//  3. Serializing the tree back gives us idempotence for free
type Resolver struct {
	// reg is the identity registry; resolve calls there are the only
	// side effect of rewriting.
	reg *registry.Registry

	// base is the portal's base URL. Absolute references are rewrite
	// candidates only when they point under it.
	base string

	// logger for unresolved-reference diagnostics.
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets a custom logger for the resolver.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New creates a Resolver for one portal, backed by the given registry.
func New(portal model.Portal, reg *registry.Registry, opts ...Option) *Resolver {
	r := &Resolver{
		reg:    reg,
		base:   portal.BaseURL(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Stats counts what one rewrite pass did, for the journal and the
// end-of-run summary.
type Stats struct {
	// PageRefs is the number of references rewritten to local pages.
	PageRefs int

	// FileRefs is the number of references rewritten to file aliases.
	FileRefs int

	// AssetRefs is the number of references redirected into assets/.
	AssetRefs int

	// Neutralized is the number of portal-chrome links pointed at "#".
	Neutralized int

	// Unresolved is the number of endpoint-shaped references whose
	// identifier could not be extracted; they are left unrewritten.
	Unresolved int
}

// Result is the outcome of rewriting one page body.
type Result struct {
	// Body is the rewritten HTML document.
	Body string

	// Work lists the pages and files seen for the first time in this
	// body, in document order.
	Work []model.WorkItem

	// Stats tallies the rewrites performed.
	Stats Stats
}

// Rewrite parses the body, rewrites every reference to its local form,
// and returns the serialized document plus the newly discovered work.
//
// Rewriting is a pure function of (body, registry state) except for the
// side effect of registering new keys: running it twice over an
// unchanged body against an unchanged registry returns the same body and
// no work, because already-local references pass through untouched and
// the registry reports no first sights.
func (r *Resolver) Rewrite(body, pageKey string) (*Result, error) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page %s: %w", pageKey, err)
	}

	res := &Result{}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			r.processElement(n, pageKey, res)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	var sb strings.Builder
	if err := html.Render(&sb, doc); err != nil {
		return nil, fmt.Errorf("failed to render page %s: %w", pageKey, err)
	}
	res.Body = sb.String()

	return res, nil
}

// processElement rewrites the reference attribute of one element, if any.
func (r *Resolver) processElement(n *html.Node, pageKey string, res *Result) {
	switch n.Data {
	case "a":
		if href := getAttr(n, "href"); href != "" {
			rewritten := r.rewriteRef(href, anchorText(n), pageKey, res)
			if rewritten != href {
				setAttr(n, "href", rewritten)
			}
		}
	case "link":
		// Stylesheets and icons share the css/ prefix handling.
		if href := getAttr(n, "href"); href != "" {
			if local, ok := localAssetPath(href); ok {
				setAttr(n, "href", local)
				res.Stats.AssetRefs++
			}
		}
	case "script", "img":
		if src := getAttr(n, "src"); src != "" {
			if local, ok := localAssetPath(src); ok {
				setAttr(n, "src", local)
				res.Stats.AssetRefs++
			}
		}
	}
}

// rewriteRef classifies one anchor reference and returns its local form.
// References that are already local, external, or inert come back
// unchanged.
func (r *Resolver) rewriteRef(href, clickText, pageKey string, res *Result) string {
	href = strings.TrimSpace(href)

	// Inert references: fragments, script handlers, mail links.
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") {
		return href
	}

	// Already rewritten (idempotence): local asset, alias, or page paths.
	if strings.HasPrefix(href, "assets/") ||
		strings.HasPrefix(href, model.FilesDirName+"/") ||
		(strings.HasPrefix(href, "docs_rep_") && strings.HasSuffix(href, ".html")) {
		return href
	}

	// Absolute references on a foreign host stay external, even when
	// their path mimics the portal's endpoints.
	if isAbsolute(href) && !r.ownPortalURL(href) {
		return href
	}

	// File download endpoint: download?id=<id>, relative or absolute.
	if strings.Contains(href, "download?id=") {
		id := extractQueryID(href, "id=")
		if id == "" {
			res.Stats.Unresolved++
			r.logger.Warn("unresolved file reference", "href", href, "page", pageKey)
			return href
		}
		localID, created := r.reg.ResolveFile(id, clickText, pageKey)
		if created {
			res.Work = append(res.Work, model.WorkItem{
				Kind:          model.FileWork,
				RemoteKey:     id,
				Title:         clickText,
				SourceContext: pageKey,
			})
		}
		res.Stats.FileRefs++
		return model.FilesDirName + "/" + localID
	}

	// Directory navigation endpoint: docs?rep=<id> or relative ?rep=<id>.
	if strings.Contains(href, "docs?rep=") || strings.HasPrefix(href, "?rep=") {
		id := extractQueryID(href, "rep=")
		if id == "" {
			res.Stats.Unresolved++
			r.logger.Warn("unresolved page reference", "href", href, "page", pageKey)
			return href
		}
		localID, created := r.reg.ResolvePage(id, clickText)
		if created {
			res.Work = append(res.Work, model.WorkItem{
				Kind:          model.PageWork,
				RemoteKey:     id,
				Title:         clickText,
				SourceContext: pageKey,
			})
		}
		res.Stats.PageRefs++
		return model.PageFilename(localID)
	}

	// Root aliases. Already-local forms pass through uncounted so a
	// second pass over a rewritten body tallies nothing.
	switch href {
	case "index.html", "docs.html":
		return href
	case ".", "./", "index":
		res.Stats.PageRefs++
		return "index.html"
	case "docs":
		res.Stats.PageRefs++
		return "docs.html"
	}

	// Portal chrome with no offline counterpart.
	if isChromeLink(href) {
		res.Stats.Neutralized++
		return "#"
	}

	// Static asset paths referenced from anchors.
	if local, ok := localAssetPath(href); ok {
		res.Stats.AssetRefs++
		return local
	}

	// External or unknown: pass through unchanged.
	return href
}

// isAbsolute reports whether a reference carries a host of its own,
// with a scheme or scheme-relative.
func isAbsolute(href string) bool {
	return strings.Contains(href, "://") || strings.HasPrefix(href, "//")
}

// ownPortalURL reports whether an absolute reference points inside the
// portal. Scheme-relative references are compared without the scheme.
func (r *Resolver) ownPortalURL(href string) bool {
	if strings.HasPrefix(href, r.base) {
		return true
	}
	if i := strings.Index(r.base, "//"); i >= 0 {
		return strings.HasPrefix(href, r.base[i:])
	}
	return false
}

// chromeLinks are portal surfaces that only exist with a live session
// (agenda, mail, colles, preferences). Offline they dead-end, so their
// links are neutralized rather than left pointing at the live site.
var chromeLinks = map[string]bool{
	"recent":      true,
	"agenda":      true,
	"mail":        true,
	"notescolles": true,
	"prefs":       true,
	"blogcdp":     true,
}

func isChromeLink(href string) bool {
	if chromeLinks[href] {
		return true
	}
	return strings.HasPrefix(href, "notescolles?") || strings.HasPrefix(href, ".?")
}

// localAssetPath maps a portal asset reference (css/..., js/...,
// fonts/..., with or without a cache-busting query) to its mirrored
// location under assets/.
func localAssetPath(ref string) (string, bool) {
	for _, prefix := range []string{"css/", "js/", "fonts/"} {
		if strings.HasPrefix(ref, prefix) {
			// Drop the cache-busting query; the mirrored copy is
			// whatever version was live at crawl time.
			if i := strings.IndexByte(ref, '?'); i >= 0 {
				ref = ref[:i]
			}
			return "assets/" + ref, true
		}
	}
	return "", false
}

// extractQueryID pulls the value of a query parameter out of a reference
// the way the portal writes them: the value runs from after the marker to
// the next '&' or '#'. Returns "" when nothing follows the marker.
func extractQueryID(href, marker string) string {
	i := strings.LastIndex(href, marker)
	if i < 0 {
		return ""
	}
	id := href[i+len(marker):]
	if j := strings.IndexAny(id, "&#"); j >= 0 {
		id = id[:j]
	}
	return id
}

// anchorText returns the trimmed visible text of an anchor, the human
// label recorded as page title or file display name.
func anchorText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
			walk(gc)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// setAttr replaces an attribute value on an HTML node.
func setAttr(n *html.Node, key, val string) {
	for i, attr := range n.Attr {
		if attr.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
