// Package snapshot reads manually exported account lists (CSV or TSV) and
// exposes them as a static account source. Files are read on every search and
// are never written or refreshed by this tool.
package snapshot
