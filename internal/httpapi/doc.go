// Package httpapi provides the small JSON-over-HTTP client shared by the live
// account sources, including RFC 5988 Link header parsing for cursor pagination.
package httpapi
