// Package assets mirrors the portal's static chrome (stylesheets,
// scripts, icon font) into the assets/ tree of the mirror.
//
// The asset set is fixed: the portal software serves identical chrome to
// every class, and the rewriter redirects css/, js/ and fonts/
// references into assets/ accordingly. Assets are public, so they are
// fetched with a plain HTTP client instead of the browser session, and
// a failed asset never fails the run.
package assets
