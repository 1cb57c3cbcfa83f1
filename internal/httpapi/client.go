package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	acceptHeaderNameConstant              = "Accept"
	contentTypeHeaderNameConstant         = "Content-Type"
	userAgentHeaderNameConstant           = "User-Agent"
	jsonMediaTypeConstant                 = "application/json"
	defaultUserAgentConstant              = "offboard"
	linkHeaderNameConstant                = "Link"
	maximumResponseBytesConstant          = 16 << 20
	statusErrorBodyPreviewBytesConstant   = 256
	baseURLRequiredMessageConstant        = "base url must be provided"
	httpClientRequiredMessageConstant     = "http client must be provided"
	schemeAndHostRequiredMessageConstant  = "scheme and host are required"
	baseURLParseErrorTemplateConstant     = "invalid base url %q: %w"
	requestBuildErrorTemplateConstant     = "unable to build %s request for %s: %w"
	requestExecutionErrorTemplateConstant = "%s %s failed: %w"
	responseReadErrorTemplateConstant     = "unable to read response from %s: %w"
	payloadEncodingErrorTemplateConstant  = "unable to encode request payload: %w"
	statusErrorTemplateConstant           = "%s %s returned status %d"
	statusErrorWithBodyTemplateConstant   = "%s %s returned status %d: %s"
)

// HTTPClient is satisfied by *http.Client.
type HTTPClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// Configuration describes how to reach an API endpoint.
type Configuration struct {
	BaseURL             string
	AuthorizationHeader string
	AuthorizationValue  string
	UserAgent           string
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
	Links      Links
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

// Error describes the unexpected status.
func (statusError *StatusError) Error() string {
	if len(statusError.Body) == 0 {
		return fmt.Sprintf(statusErrorTemplateConstant, statusError.Method, statusError.URL, statusError.StatusCode)
	}
	return fmt.Sprintf(statusErrorWithBodyTemplateConstant, statusError.Method, statusError.URL, statusError.StatusCode, statusError.Body)
}

// Client issues authenticated JSON requests relative to a base URL.
type Client struct {
	httpClient HTTPClient
	baseURL    *url.URL
	headers    http.Header
}

// NewClient validates the configuration and constructs a Client.
func NewClient(httpClient HTTPClient, configuration Configuration) (*Client, error) {
	if httpClient == nil {
		return nil, errors.New(httpClientRequiredMessageConstant)
	}

	trimmedBaseURL := strings.TrimSpace(configuration.BaseURL)
	if len(trimmedBaseURL) == 0 {
		return nil, errors.New(baseURLRequiredMessageConstant)
	}

	parsedBaseURL, parseError := url.Parse(trimmedBaseURL)
	if parseError != nil {
		return nil, fmt.Errorf(baseURLParseErrorTemplateConstant, trimmedBaseURL, parseError)
	}
	if len(parsedBaseURL.Scheme) == 0 || len(parsedBaseURL.Host) == 0 {
		return nil, fmt.Errorf(baseURLParseErrorTemplateConstant, trimmedBaseURL, errors.New(schemeAndHostRequiredMessageConstant))
	}

	headers := http.Header{}
	headers.Set(acceptHeaderNameConstant, jsonMediaTypeConstant)
	userAgent := strings.TrimSpace(configuration.UserAgent)
	if len(userAgent) == 0 {
		userAgent = defaultUserAgentConstant
	}
	headers.Set(userAgentHeaderNameConstant, userAgent)
	if len(configuration.AuthorizationHeader) > 0 && len(configuration.AuthorizationValue) > 0 {
		headers.Set(configuration.AuthorizationHeader, configuration.AuthorizationValue)
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    parsedBaseURL,
		headers:    headers,
	}, nil
}

// ResolveURL resolves a path relative to the base URL. Absolute URLs, such as
// pagination links, are returned unchanged.
func (client *Client) ResolveURL(pathOrURL string, query url.Values) string {
	reference, parseError := url.Parse(pathOrURL)
	if parseError != nil {
		return pathOrURL
	}

	var resolved *url.URL
	if reference.IsAbs() {
		resolved = reference
	} else {
		joined := *client.baseURL
		if len(reference.Path) > 0 {
			joined.Path = strings.TrimSuffix(client.baseURL.Path, "/") + "/" + strings.TrimPrefix(reference.Path, "/")
			joined.RawPath = ""
		}
		if len(reference.RawQuery) > 0 {
			joined.RawQuery = reference.RawQuery
		}
		resolved = &joined
	}

	if len(query) > 0 {
		mergedQuery := resolved.Query()
		for queryKey, queryValues := range query {
			mergedQuery.Del(queryKey)
			for _, queryValue := range queryValues {
				mergedQuery.Add(queryKey, queryValue)
			}
		}
		resolved.RawQuery = mergedQuery.Encode()
	}

	return resolved.String()
}

// Get performs a GET request and returns the response when the status is 2xx.
func (client *Client) Get(executionContext context.Context, pathOrURL string, query url.Values) (Response, error) {
	return client.do(executionContext, http.MethodGet, client.ResolveURL(pathOrURL, query), nil)
}

// GetJSON performs a GET request and decodes the JSON body into target.
func (client *Client) GetJSON(executionContext context.Context, pathOrURL string, query url.Values, target any) (Links, error) {
	response, requestError := client.Get(executionContext, pathOrURL, query)
	if requestError != nil {
		return nil, requestError
	}
	if decodeError := json.Unmarshal(response.Body, target); decodeError != nil {
		return nil, &DecodeError{URL: client.ResolveURL(pathOrURL, query), Cause: decodeError}
	}
	return response.Links, nil
}

// Post sends a request body with the provided content type.
func (client *Client) Post(executionContext context.Context, pathOrURL string, contentType string, body []byte) (Response, error) {
	return client.doWithContentType(executionContext, http.MethodPost, client.ResolveURL(pathOrURL, nil), contentType, body)
}

// PostJSON encodes payload as JSON and posts it.
func (client *Client) PostJSON(executionContext context.Context, pathOrURL string, payload any) (Response, error) {
	encodedPayload, encodeError := json.Marshal(payload)
	if encodeError != nil {
		return Response{}, fmt.Errorf(payloadEncodingErrorTemplateConstant, encodeError)
	}
	return client.Post(executionContext, pathOrURL, jsonMediaTypeConstant, encodedPayload)
}

func (client *Client) do(executionContext context.Context, method string, targetURL string, body []byte) (Response, error) {
	return client.doWithContentType(executionContext, method, targetURL, "", body)
}

func (client *Client) doWithContentType(executionContext context.Context, method string, targetURL string, contentType string, body []byte) (Response, error) {
	if executionContext == nil {
		executionContext = context.Background()
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	request, requestError := http.NewRequestWithContext(executionContext, method, targetURL, bodyReader)
	if requestError != nil {
		return Response{}, fmt.Errorf(requestBuildErrorTemplateConstant, method, targetURL, requestError)
	}
	for headerName, headerValues := range client.headers {
		for _, headerValue := range headerValues {
			request.Header.Add(headerName, headerValue)
		}
	}
	if len(contentType) > 0 {
		request.Header.Set(contentTypeHeaderNameConstant, contentType)
	}

	httpResponse, executionError := client.httpClient.Do(request)
	if executionError != nil {
		return Response{}, fmt.Errorf(requestExecutionErrorTemplateConstant, method, targetURL, executionError)
	}
	defer httpResponse.Body.Close()

	responseBody, readError := io.ReadAll(io.LimitReader(httpResponse.Body, maximumResponseBytesConstant))
	if readError != nil {
		return Response{}, fmt.Errorf(responseReadErrorTemplateConstant, targetURL, readError)
	}

	if httpResponse.StatusCode < http.StatusOK || httpResponse.StatusCode >= http.StatusMultipleChoices {
		return Response{}, &StatusError{
			Method:     method,
			URL:        targetURL,
			StatusCode: httpResponse.StatusCode,
			Body:       previewBody(responseBody),
		}
	}

	return Response{
		StatusCode: httpResponse.StatusCode,
		Body:       responseBody,
		Links:      ParseLinks(httpResponse.Header.Values(linkHeaderNameConstant)...),
	}, nil
}

func previewBody(body []byte) string {
	trimmedBody := strings.TrimSpace(string(body))
	if len(trimmedBody) > statusErrorBodyPreviewBytesConstant {
		return trimmedBody[:statusErrorBodyPreviewBytesConstant]
	}
	return trimmedBody
}
