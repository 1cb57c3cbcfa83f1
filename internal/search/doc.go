// Package search runs one query against every configured account source and
// collects exactly one result per source, in configured order. A failing source
// produces an error result for that source only.
package search
