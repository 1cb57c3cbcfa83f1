package identity

import (
	"strings"

	"golang.org/x/text/cases"
)

// Matches reports whether the case-folded query is contained in the case-folded
// primary identifier or any secondary identifier. An empty query matches every identity.
func Matches(query string, candidate Identity) bool {
	foldedQuery := foldCase(query)

	if strings.Contains(foldCase(candidate.Identifier), foldedQuery) {
		return true
	}

	for _, secondaryIdentifier := range candidate.SecondaryIdentifiers {
		if strings.Contains(foldCase(secondaryIdentifier), foldedQuery) {
			return true
		}
	}

	return false
}

// MatchingIdentities returns the identities accepted by Matches, preserving input order.
func MatchingIdentities(query string, candidates []Identity) []Identity {
	matched := make([]Identity, 0)
	for _, candidate := range candidates {
		if Matches(query, candidate) {
			matched = append(matched, candidate)
		}
	}
	return matched
}

// foldCase builds a fresh Caser per call; cases.Caser is stateful and must not be
// shared between goroutines.
func foldCase(value string) string {
	return cases.Fold().String(value)
}
