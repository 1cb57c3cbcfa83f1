// Package newrelic lists users of a New Relic organization through NerdGraph.
package newrelic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/temirov/offboard/internal/httpapi"
	"github.com/temirov/offboard/internal/identity"
	"github.com/temirov/offboard/internal/sources"
)

const (
	defaultEndpointConstant           = "https://api.newrelic.com/graphql"
	apiKeyHeaderConstant              = "API-Key"
	usersQueryConstant                = "{ actor { organization { userManagement { authenticationDomains { authenticationDomains { name users { users { id name email lastActive type { displayName } } } } } } } } }"
	queryFieldConstant                = "query"
	errorsPathConstant                = "errors"
	errorMessagePathConstant          = "message"
	authenticationDomainsPathConstant = "data.actor.organization.userManagement.authenticationDomains.authenticationDomains"
	domainNamePathConstant            = "name"
	domainUsersPathConstant           = "users.users"
	userEmailPathConstant             = "email"
	userNamePathConstant              = "name"
	userTypePathConstant              = "type.displayName"
	userLastActivePathConstant        = "lastActive"
	errorMessageSeparatorConstant     = "; "
	nameRequiredMessageConstant       = "newrelic source name must be provided"
	tokenRequiredMessageConstant      = "newrelic api key must be provided"
	sourceFieldTemplateConstant       = "sources[%s]"
	invalidPayloadMessageConstant     = "response is not valid JSON"
	missingDomainsMessageConstant     = "response does not contain authentication domains"
	graphQLErrorsTemplateConstant     = "graphql errors: %s"
	propertyNameConstant              = "name"
	propertyTypeConstant              = "type"
	propertyLastActiveConstant        = "last_active"
	propertyDomainConstant            = "domain"
)

// Configuration describes a NerdGraph endpoint and user API key.
type Configuration struct {
	Name       string
	Endpoint   string
	Token      string
	HTTPClient httpapi.HTTPClient
}

// Source reads users from every authentication domain of the organization.
type Source struct {
	name   string
	client *httpapi.Client
}

// New validates the configuration and constructs a New Relic source.
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

	endpoint := strings.TrimSpace(configuration.Endpoint)
	if len(endpoint) == 0 {
		endpoint = defaultEndpointConstant
	}

	client, clientError := httpapi.NewClient(configuration.HTTPClient, httpapi.Configuration{
		BaseURL:             endpoint,
		AuthorizationHeader: apiKeyHeaderConstant,
		AuthorizationValue:  trimmedToken,
	})
	if clientError != nil {
		return nil, sources.NewConfigurationError(fieldName, clientError.Error())
	}

	return &Source{name: trimmedName, client: client}, nil
}

// Name returns the configured source name.
func (source *Source) Name() string {
	return source.name
}

// Capability reports the live capability.
func (source *Source) Capability() sources.Capability {
	return sources.CapabilityLive
}

// ListIdentities posts the user management query. NerdGraph has no server-side
// user filter, so the query argument is not sent.
func (source *Source) ListIdentities(executionContext context.Context, query string) ([]identity.Identity, error) {
	response, requestError := source.client.PostJSON(executionContext, "", map[string]string{queryFieldConstant: usersQueryConstant})
	if requestError != nil {
		return nil, sources.NewRemoteError(source.name, requestError)
	}
	return source.parseUsers(response.Body)
}

// Describe returns name, user type, last activity, and authentication domain.
func (source *Source) Describe(identityRecord identity.Identity) identity.Properties {
	return identityRecord.Properties.Clone()
}

func (source *Source) parseUsers(payload []byte) ([]identity.Identity, error) {
	if !gjson.ValidBytes(payload) {
		return nil, sources.NewFormatError(source.name, 0, errors.New(invalidPayloadMessageConstant))
	}
	parsedPayload := gjson.ParseBytes(payload)

	graphQLErrors := parsedPayload.Get(errorsPathConstant)
	if graphQLErrors.IsArray() && len(graphQLErrors.Array()) > 0 {
		messages := make([]string, 0, len(graphQLErrors.Array()))
		for _, graphQLError := range graphQLErrors.Array() {
			messages = append(messages, graphQLError.Get(errorMessagePathConstant).String())
		}
		return nil, sources.NewUnavailableError(source.name, fmt.Errorf(graphQLErrorsTemplateConstant, strings.Join(messages, errorMessageSeparatorConstant)))
	}

	domains := parsedPayload.Get(authenticationDomainsPathConstant)
	if !domains.IsArray() {
		return nil, sources.NewFormatError(source.name, 0, errors.New(missingDomainsMessageConstant))
	}

	identities := make([]identity.Identity, 0)
	for _, domain := range domains.Array() {
		domainName := domain.Get(domainNamePathConstant).String()
		for _, user := range domain.Get(domainUsersPathConstant).Array() {
			userName := user.Get(userNamePathConstant).String()
			identities = append(identities, identity.New(user.Get(userEmailPathConstant).String(), userName).
				WithProperty(propertyNameConstant, userName).
				WithProperty(propertyTypeConstant, user.Get(userTypePathConstant).String()).
				WithProperty(propertyLastActiveConstant, user.Get(userLastActivePathConstant).String()).
				WithProperty(propertyDomainConstant, domainName))
		}
	}
	return identities, nil
}
