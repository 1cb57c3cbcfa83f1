package grafana_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/offboard/internal/identity"
	"github.com/temirov/offboard/internal/sources"
	"github.com/temirov/offboard/internal/sources/grafana"
)

const testGrafanaTokenConstant = "glsa_test"

func newGrafanaServer(testInstance *testing.T, users []map[string]any, pageSize int) *httptest.Server {
	testInstance.Helper()
	return httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		if request.Header.Get("Authorization") != "Bearer "+testGrafanaTokenConstant {
			responseWriter.WriteHeader(http.StatusUnauthorized)
			return
		}
		if request.URL.Path != "/api/org/users/search" {
			responseWriter.WriteHeader(http.StatusNotFound)
			return
		}
		page, _ := strconv.Atoi(request.URL.Query().Get("page"))
		start := (page - 1) * pageSize
		end := start + pageSize
		if start > len(users) {
			start = len(users)
		}
		if end > len(users) {
			end = len(users)
		}
		_ = json.NewEncoder(responseWriter).Encode(map[string]any{
			"totalCount": len(users),
			"orgUsers":   users[start:end],
			"page":       page,
			"perPage":    pageSize,
		})
	}))
}

func TestListIdentitiesPaginates(testInstance *testing.T) {
	users := []map[string]any{
		{"userId": 1, "email": "akahn@example.com", "login": "akahn", "name": "Alice Kahn", "role": "Admin", "lastSeenAtAge": "2 days"},
		{"userId": 2, "email": "bsmith@example.com", "login": "bsmith", "name": "Bob Smith", "role": "Viewer", "lastSeenAtAge": "1 year"},
		{"userId": 3, "email": "ckahn@example.com", "login": "ckahn", "name": "", "role": "Editor"},
	}
	server := newGrafanaServer(testInstance, users, 2)
	defer server.Close()

	source, sourceError := grafana.New(grafana.Configuration{
		Name:       "Yardstick",
		BaseURL:    server.URL,
		Token:      testGrafanaTokenConstant,
		PageSize:   2,
		HTTPClient: server.Client(),
	})
	require.NoError(testInstance, sourceError)
	require.Equal(testInstance, sources.CapabilityLive, source.Capability())

	identities, listError := source.ListIdentities(context.Background(), "")
	require.NoError(testInstance, listError)
	require.Len(testInstance, identities, 3)

	require.Equal(testInstance, "akahn@example.com", identities[0].Identifier)
	require.Equal(testInstance, []string{"akahn", "Alice Kahn"}, identities[0].SecondaryIdentifiers)
	require.Equal(testInstance, identity.Properties{
		{Name: "login", Value: "akahn"},
		{Name: "name", Value: "Alice Kahn"},
		{Name: "role", Value: "Admin"},
		{Name: "last_seen", Value: "2 days"},
	}, source.Describe(identities[0]))
	require.Equal(testInstance, "ckahn@example.com", identities[2].Identifier)
}

func TestListIdentitiesUnauthorizedIsUnavailable(testInstance *testing.T) {
	server := newGrafanaServer(testInstance, nil, 10)
	defer server.Close()

	source, sourceError := grafana.New(grafana.Configuration{
		Name:       "Yardstick",
		BaseURL:    server.URL,
		Token:      "expired",
		HTTPClient: server.Client(),
	})
	require.NoError(testInstance, sourceError)

	_, listError := source.ListIdentities(context.Background(), "kahn")
	var unavailableError *sources.UnavailableError
	require.True(testInstance, errors.As(listError, &unavailableError))
	require.Contains(testInstance, listError.Error(), "401")
}

func TestListIdentitiesMalformedPayloadIsFormatError(testInstance *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		_, _ = responseWriter.Write([]byte(`<html>login</html>`))
	}))
	defer server.Close()

	source, sourceError := grafana.New(grafana.Configuration{Name: "Yardstick", BaseURL: server.URL, Token: "t", HTTPClient: server.Client()})
	require.NoError(testInstance, sourceError)

	_, listError := source.ListIdentities(context.Background(), "kahn")
	require.Equal(testInstance, sources.ErrorKindFormat, sources.ClassifyError(listError))
}

func TestNewRequiresConfiguration(testInstance *testing.T) {
	_, missingTokenError := grafana.New(grafana.Configuration{Name: "Yardstick", BaseURL: "https://yardstick.example", HTTPClient: http.DefaultClient})
	require.True(testInstance, sources.IsConfigurationError(missingTokenError))

	_, missingURLError := grafana.New(grafana.Configuration{Name: "Yardstick", Token: "t", HTTPClient: http.DefaultClient})
	require.True(testInstance, sources.IsConfigurationError(missingURLError))

	_, missingNameError := grafana.New(grafana.Configuration{BaseURL: "https://yardstick.example", Token: "t", HTTPClient: http.DefaultClient})
	require.True(testInstance, sources.IsConfigurationError(missingNameError))
}
