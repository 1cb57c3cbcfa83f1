package search

import (
	"github.com/temirov/offboard/internal/identity"
	"github.com/temirov/offboard/internal/sources"
)

// Outcome is the state of one source after a search.
type Outcome string

// Search outcomes.
const (
	OutcomeNoMatch Outcome = Outcome("no_match")
	OutcomeMatched Outcome = Outcome("matched")
	OutcomeError   Outcome = Outcome("error")
)

// Match pairs a matched identity with the properties its source described.
type Match struct {
	Identifier string              `json:"identifier" yaml:"identifier"`
	Properties identity.Properties `json:"properties" yaml:"properties"`
}

// Result is the outcome of searching one source.
type Result struct {
	SourceName   string             `json:"source" yaml:"source"`
	Capability   sources.Capability `json:"capability" yaml:"capability"`
	Checked      bool               `json:"checked" yaml:"checked"`
	Outcome      Outcome            `json:"outcome" yaml:"outcome"`
	Matches      []Match            `json:"matches,omitempty" yaml:"matches,omitempty"`
	ErrorKind    sources.ErrorKind  `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty" yaml:"error_message,omitempty"`
}

// Report is the full answer to one query.
type Report struct {
	Query   string   `json:"query" yaml:"query"`
	Results []Result `json:"results" yaml:"results"`
}

// HasErrors reports whether any source failed.
func (report Report) HasErrors() bool {
	for _, result := range report.Results {
		if result.Outcome == OutcomeError {
			return true
		}
	}
	return false
}

// MatchCount returns the number of matches across all sources.
func (report Report) MatchCount() int {
	matchCount := 0
	for _, result := range report.Results {
		matchCount += len(result.Matches)
	}
	return matchCount
}
