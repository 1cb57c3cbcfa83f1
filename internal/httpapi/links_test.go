package httpapi_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/offboard/internal/httpapi"
)

func TestParseLinksSentryStyle(testInstance *testing.T) {
	headerValue := `<https://sentry.io/api/0/organizations/mozilla/members/?&cursor=100:-1:1>; rel="previous"; results="false"; cursor="100:-1:1", ` +
		`<https://sentry.io/api/0/organizations/mozilla/members/?&cursor=100:1:0>; rel="next"; results="true"; cursor="100:1:0"`

	links := httpapi.ParseLinks(headerValue)
	require.Len(testInstance, links, 2)

	previousLink, hasPrevious := links.Relation("previous")
	require.True(testInstance, hasPrevious)
	require.Equal(testInstance, "false", previousLink.Parameter("results"))

	nextLink, hasNext := links.Next()
	require.True(testInstance, hasNext)
	require.Equal(testInstance, "https://sentry.io/api/0/organizations/mozilla/members/?&cursor=100:1:0", nextLink.URL)
	require.Equal(testInstance, "true", nextLink.Parameter("Results"))
	require.Equal(testInstance, "100:1:0", nextLink.Parameter("cursor"))
}

func TestParseLinksIgnoresMalformedEntries(testInstance *testing.T) {
	links := httpapi.ParseLinks(`garbage, <https://example.test/a,b>; rel="next last"`, "")
	require.Len(testInstance, links, 1)
	require.Equal(testInstance, "https://example.test/a,b", links[0].URL)

	lastLink, hasLast := links.Relation("last")
	require.True(testInstance, hasLast)
	require.Equal(testInstance, links[0], lastLink)

	_, hasNext := httpapi.Links(nil).Next()
	require.False(testInstance, hasNext)
}
