// Package main provides the entry point for the cdpmirror CLI.
//
// cdpmirror copies an authenticated cahier-de-prepa.fr class portal into
// a self-contained offline mirror: pages, documents, and static assets,
// with every link rewritten to work from the local filesystem.
//
// Usage:
//
//	cdpmirror mirror <portal>
//	cdpmirror mirror --all
//	cdpmirror history
//
// See --help for all available options.
package main

// main is the entry point for cdpmirror.
func main() {
	Execute()
}
