package httpapi

import "strings"

const (
	linkRelationParameterConstant  = "rel"
	linkRelationNextConstant       = "next"
	linkParameterSeparatorConstant = ";"
	linkKeyValueSeparatorConstant  = "="
)

// Link is a single entry of an RFC 5988 Link header.
type Link struct {
	URL        string
	Parameters map[string]string
}

// Links is the parsed content of one or more Link headers.
type Links []Link

// Parameter returns the named link parameter, lower-cased name lookup.
func (link Link) Parameter(name string) string {
	return link.Parameters[strings.ToLower(name)]
}

// Next returns the link whose relation is "next".
func (links Links) Next() (Link, bool) {
	return links.Relation(linkRelationNextConstant)
}

// Relation returns the first link carrying the provided relation type.
func (links Links) Relation(relation string) (Link, bool) {
	for _, link := range links {
		for _, relationValue := range strings.Fields(link.Parameter(linkRelationParameterConstant)) {
			if strings.EqualFold(relationValue, relation) {
				return link, true
			}
		}
	}
	return Link{}, false
}

// ParseLinks parses Link header values. Malformed entries are skipped.
func ParseLinks(headerValues ...string) Links {
	var parsedLinks Links
	for _, headerValue := range headerValues {
		for _, segment := range splitLinkSegments(headerValue) {
			link, parsed := parseLinkSegment(segment)
			if parsed {
				parsedLinks = append(parsedLinks, link)
			}
		}
	}
	return parsedLinks
}

// splitLinkSegments splits on commas outside of angle brackets and quoted strings.
func splitLinkSegments(headerValue string) []string {
	var segments []string
	var current strings.Builder
	insideAngleBrackets := false
	insideQuotes := false

	for _, character := range headerValue {
		switch {
		case character == '"' && !insideAngleBrackets:
			insideQuotes = !insideQuotes
		case character == '<' && !insideQuotes:
			insideAngleBrackets = true
		case character == '>' && !insideQuotes:
			insideAngleBrackets = false
		case character == ',' && !insideQuotes && !insideAngleBrackets:
			segments = append(segments, current.String())
			current.Reset()
			continue
		}
		current.WriteRune(character)
	}
	if current.Len() > 0 {
		segments = append(segments, current.String())
	}
	return segments
}

func parseLinkSegment(segment string) (Link, bool) {
	trimmedSegment := strings.TrimSpace(segment)
	if !strings.HasPrefix(trimmedSegment, "<") {
		return Link{}, false
	}
	closingIndex := strings.Index(trimmedSegment, ">")
	if closingIndex < 0 {
		return Link{}, false
	}

	link := Link{
		URL:        strings.TrimSpace(trimmedSegment[1:closingIndex]),
		Parameters: map[string]string{},
	}

	for _, rawParameter := range strings.Split(trimmedSegment[closingIndex+1:], linkParameterSeparatorConstant) {
		trimmedParameter := strings.TrimSpace(rawParameter)
		if len(trimmedParameter) == 0 {
			continue
		}
		parameterName, parameterValue, hasValue := strings.Cut(trimmedParameter, linkKeyValueSeparatorConstant)
		normalizedName := strings.ToLower(strings.TrimSpace(parameterName))
		if !hasValue {
			link.Parameters[normalizedName] = ""
			continue
		}
		link.Parameters[normalizedName] = strings.Trim(strings.TrimSpace(parameterValue), "\"")
	}

	return link, len(link.URL) > 0
}
