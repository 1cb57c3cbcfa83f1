package credentials_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/offboard/internal/credentials"
)

func TestParseTokenSource(testInstance *testing.T) {
	testCases := []struct {
		name           string
		value          string
		expectedSource credentials.TokenSource
		expectError    bool
	}{
		{
			name:           "bare_environment_name",
			value:          "SENTRY_API_TOKEN",
			expectedSource: credentials.TokenSource{Type: credentials.TokenSourceTypeEnvironment, Reference: "SENTRY_API_TOKEN"},
		},
		{
			name:           "explicit_environment",
			value:          " env: YARDSTICK_API_TOKEN ",
			expectedSource: credentials.TokenSource{Type: credentials.TokenSourceTypeEnvironment, Reference: "YARDSTICK_API_TOKEN"},
		},
		{
			name:           "file_reference",
			value:          "FILE:/run/secrets/newrelic",
			expectedSource: credentials.TokenSource{Type: credentials.TokenSourceTypeFile, Reference: "/run/secrets/newrelic"},
		},
		{name: "empty", value: "  ", expectError: true},
		{name: "environment_without_name", value: "env:", expectError: true},
		{name: "file_without_path", value: "file: ", expectError: true},
		{name: "unsupported_type", value: "vault:secret/path", expectError: true},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			source, parseError := credentials.ParseTokenSource(testCase.value)
			if testCase.expectError {
				require.Error(subTest, parseError)
				return
			}
			require.NoError(subTest, parseError)
			require.Equal(subTest, testCase.expectedSource, source)
		})
	}
}

func TestTokenResolverResolveToken(testInstance *testing.T) {
	environment := map[string]string{
		"SENTRY_API_TOKEN": "  sentry-secret \n",
		"BLANK_TOKEN":      "   ",
	}
	files := map[string]string{
		"/secrets/newrelic": "nr-secret\n",
		"/secrets/empty":    "\n",
	}

	resolver := credentials.NewTokenResolver(
		func(key string) (string, bool) {
			value, found := environment[key]
			return value, found
		},
		func(path string) ([]byte, error) {
			contents, found := files[path]
			if !found {
				return nil, errors.New("file not found")
			}
			return []byte(contents), nil
		},
	)

	testCases := []struct {
		name          string
		source        credentials.TokenSource
		expectedToken string
		expectError   bool
	}{
		{name: "environment", source: credentials.TokenSource{Type: credentials.TokenSourceTypeEnvironment, Reference: "SENTRY_API_TOKEN"}, expectedToken: "sentry-secret"},
		{name: "environment_missing", source: credentials.TokenSource{Type: credentials.TokenSourceTypeEnvironment, Reference: "MISSING"}, expectError: true},
		{name: "environment_blank", source: credentials.TokenSource{Type: credentials.TokenSourceTypeEnvironment, Reference: "BLANK_TOKEN"}, expectError: true},
		{name: "file", source: credentials.TokenSource{Type: credentials.TokenSourceTypeFile, Reference: "/secrets/newrelic"}, expectedToken: "nr-secret"},
		{name: "file_missing", source: credentials.TokenSource{Type: credentials.TokenSourceTypeFile, Reference: "/secrets/missing"}, expectError: true},
		{name: "file_empty", source: credentials.TokenSource{Type: credentials.TokenSourceTypeFile, Reference: "/secrets/empty"}, expectError: true},
		{name: "unsupported", source: credentials.TokenSource{Type: credentials.TokenSourceType("vault"), Reference: "x"}, expectError: true},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			token, resolveError := resolver.ResolveToken(context.Background(), testCase.source)
			if testCase.expectError {
				require.Error(subTest, resolveError)
				return
			}
			require.NoError(subTest, resolveError)
			require.Equal(subTest, testCase.expectedToken, token)
		})
	}
}

func TestTokenResolverHonorsCancelledContext(testInstance *testing.T) {
	resolver := credentials.NewTokenResolver(func(string) (string, bool) { return "token", true }, nil)
	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	_, resolveError := resolver.ResolveToken(cancelledContext, credentials.TokenSource{Type: credentials.TokenSourceTypeEnvironment, Reference: "ANY"})
	require.ErrorIs(testInstance, resolveError, context.Canceled)
}

func TestMask(testInstance *testing.T) {
	require.Equal(testInstance, "********cdef", credentials.Mask("0123456789abcdef"[4:]))
	require.Equal(testInstance, "***", credentials.Mask("abc"))
	require.Equal(testInstance, "", credentials.Mask(""))
}
