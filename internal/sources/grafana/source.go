// Package grafana lists organization users of a Grafana instance through the
// HTTP API using a service account token.
package grafana

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/temirov/offboard/internal/httpapi"
	"github.com/temirov/offboard/internal/identity"
	"github.com/temirov/offboard/internal/sources"
)

const (
	organizationUsersSearchPathConstant = "/api/org/users/search"
	queryParameterConstant              = "query"
	pageParameterConstant               = "page"
	perPageParameterConstant            = "perpage"
	authorizationHeaderConstant         = "Authorization"
	bearerPrefixConstant                = "Bearer "
	defaultPageSizeConstant             = 1000
	maximumPagesConstant                = 1000
	nameRequiredMessageConstant         = "grafana source name must be provided"
	tokenRequiredMessageConstant        = "grafana token must be provided"
	sourceFieldTemplateConstant         = "sources[%s]"
	pageLimitExceededTemplateConstant   = "pagination exceeded %d pages"
	propertyLoginConstant               = "login"
	propertyNameConstant                = "name"
	propertyRoleConstant                = "role"
	propertyLastSeenConstant            = "last_seen"
)

// Configuration describes a Grafana instance.
type Configuration struct {
	Name       string
	BaseURL    string
	Token      string
	PageSize   int
	HTTPClient httpapi.HTTPClient
}

// Source reads organization users from Grafana.
type Source struct {
	name     string
	client   *httpapi.Client
	pageSize int
}

type organizationUser struct {
	UserID        int64  `json:"userId"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Login         string `json:"login"`
	Role          string `json:"role"`
	LastSeenAtAge string `json:"lastSeenAtAge"`
}

type searchResponse struct {
	TotalCount int                `json:"totalCount"`
	OrgUsers   []organizationUser `json:"orgUsers"`
	Page       int                `json:"page"`
	PerPage    int                `json:"perPage"`
}

// New validates the configuration and constructs a Grafana source.
func New(configuration Configuration) (*Source, error) {
	trimmedName := strings.TrimSpace(configuration.Name)
	if len(trimmedName) == 0 {
		return nil, sources.NewConfigurationError("", nameRequiredMessageConstant)
	}
	fieldName := fmt.Sprintf(sourceFieldTemplateConstant, trimmedName)

	trimmedToken := strings.TrimSpace(configuration.Token)
	if len(trimmedToken) == 0 {
		return nil, sources.NewConfigurationError(fieldName, tokenRequiredMessageConstant)
	}

	client, clientError := httpapi.NewClient(configuration.HTTPClient, httpapi.Configuration{
		BaseURL:             configuration.BaseURL,
		AuthorizationHeader: authorizationHeaderConstant,
		AuthorizationValue:  bearerPrefixConstant + trimmedToken,
	})
	if clientError != nil {
		return nil, sources.NewConfigurationError(fieldName, clientError.Error())
	}

	pageSize := configuration.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSizeConstant
	}

	return &Source{name: trimmedName, client: client, pageSize: pageSize}, nil
}

// Name returns the configured source name.
func (source *Source) Name() string {
	return source.name
}

// Capability reports the live capability.
func (source *Source) Capability() sources.Capability {
	return sources.CapabilityLive
}

// ListIdentities pages through the organization user search. Grafana filters
// by login, email, and name on the server.
func (source *Source) ListIdentities(executionContext context.Context, query string) ([]identity.Identity, error) {
	identities := make([]identity.Identity, 0)
	for page := 1; page <= maximumPagesConstant; page++ {
		parameters := url.Values{}
		parameters.Set(queryParameterConstant, query)
		parameters.Set(pageParameterConstant, strconv.Itoa(page))
		parameters.Set(perPageParameterConstant, strconv.Itoa(source.pageSize))

		var response searchResponse
		if _, requestError := source.client.GetJSON(executionContext, organizationUsersSearchPathConstant, parameters, &response); requestError != nil {
			return nil, sources.NewRemoteError(source.name, requestError)
		}

		for _, user := range response.OrgUsers {
			identities = append(identities, toIdentity(user))
		}

		if len(response.OrgUsers) == 0 || len(identities) >= response.TotalCount {
			return identities, nil
		}
	}

	return nil, sources.NewUnavailableError(source.name, fmt.Errorf(pageLimitExceededTemplateConstant, maximumPagesConstant))
}

// Describe returns login, name, role, and last-seen age.
func (source *Source) Describe(identityRecord identity.Identity) identity.Properties {
	return identityRecord.Properties.Clone()
}

func toIdentity(user organizationUser) identity.Identity {
	return identity.New(user.Email, user.Login, user.Name).
		WithProperty(propertyLoginConstant, user.Login).
		WithProperty(propertyNameConstant, user.Name).
		WithProperty(propertyRoleConstant, user.Role).
		WithProperty(propertyLastSeenConstant, user.LastSeenAtAge)
}
