// Package sentry lists the members of a Sentry organization together with the
// teams each member belongs to.
//
// Sentry has no endpoint that returns the teams of a single member, so the
// source lists every team and its members and builds the reverse lookup.
// Team member lists are fetched a few at a time.
package sentry

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/temirov/offboard/internal/httpapi"
	"github.com/temirov/offboard/internal/identity"
	"github.com/temirov/offboard/internal/sources"
)

const (
	defaultBaseURLConstant              = "https://sentry.io"
	organizationTeamsPathTemplate       = "/api/0/organizations/%s/teams/"
	teamMembersPathTemplate             = "/api/0/teams/%s/%s/members/"
	organizationMembersPathTemplate     = "/api/0/organizations/%s/members/"
	authorizationHeaderConstant         = "Authorization"
	bearerPrefixConstant                = "Bearer "
	resultsLinkParameterConstant        = "results"
	resultsAvailableValueConstant       = "true"
	maximumPagesConstant                = 1000
	teamFetchConcurrencyConstant        = 8
	teamSeparatorConstant               = ", "
	trueValueConstant                   = "true"
	nameRequiredMessageConstant         = "sentry source name must be provided"
	organizationRequiredMessageConstant = "sentry organization must be provided"
	tokenRequiredMessageConstant        = "sentry token must be provided"
	sourceFieldTemplateConstant         = "sources[%s]"
	pageLimitExceededTemplateConstant   = "pagination of %s exceeded %d pages"
	propertyNameConstant                = "name"
	propertyRoleConstant                = "role"
	propertyTeamsConstant               = "teams"
	propertyPendingConstant             = "pending"
)

// Configuration describes a Sentry organization.
type Configuration struct {
	Name         string
	BaseURL      string
	Organization string
	Token        string
	HTTPClient   httpapi.HTTPClient
}

// Source reads organization members from Sentry.
type Source struct {
	name         string
	organization string
	client       *httpapi.Client
}

type team struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type member struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	OrgRole string `json:"orgRole"`
	Pending bool   `json:"pending"`
}

// New validates the configuration and constructs a Sentry source.
func New(configuration Configuration) (*Source, error) {
	trimmedName := strings.TrimSpace(configuration.Name)
	if len(trimmedName) == 0 {
		return nil, sources.NewConfigurationError("", nameRequiredMessageConstant)
	}
	fieldName := fmt.Sprintf(sourceFieldTemplateConstant, trimmedName)

	trimmedOrganization := strings.TrimSpace(configuration.Organization)
	if len(trimmedOrganization) == 0 {
		return nil, sources.NewConfigurationError(fieldName, organizationRequiredMessageConstant)
	}

	trimmedToken := strings.TrimSpace(configuration.Token)
	if len(trimmedToken) == 0 {
		return nil, sources.NewConfigurationError(fieldName, tokenRequiredMessageConstant)
	}

	baseURL := strings.TrimSpace(configuration.BaseURL)
	if len(baseURL) == 0 {
		baseURL = defaultBaseURLConstant
	}

	client, clientError := httpapi.NewClient(configuration.HTTPClient, httpapi.Configuration{
		BaseURL:             baseURL,
		AuthorizationHeader: authorizationHeaderConstant,
		AuthorizationValue:  bearerPrefixConstant + trimmedToken,
	})
	if clientError != nil {
		return nil, sources.NewConfigurationError(fieldName, clientError.Error())
	}

	return &Source{name: trimmedName, organization: trimmedOrganization, client: client}, nil
}

// Name returns the configured source name.
func (source *Source) Name() string {
	return source.name
}

// Capability reports the live capability.
func (source *Source) Capability() sources.Capability {
	return sources.CapabilityLive
}

// ListIdentities returns every organization member with their team names.
func (source *Source) ListIdentities(executionContext context.Context, query string) ([]identity.Identity, error) {
	organizationSegment := url.PathEscape(source.organization)

	teams, teamsError := collectPages[team](executionContext, source.client, fmt.Sprintf(organizationTeamsPathTemplate, organizationSegment))
	if teamsError != nil {
		return nil, sources.NewRemoteError(source.name, teamsError)
	}

	teamMemberLists := make([][]member, len(teams))
	fetchGroup, fetchContext := errgroup.WithContext(executionContext)
	fetchGroup.SetLimit(teamFetchConcurrencyConstant)
	for teamIndex, organizationTeam := range teams {
		teamMembersPath := fmt.Sprintf(teamMembersPathTemplate, organizationSegment, url.PathEscape(organizationTeam.Slug))
		fetchGroup.Go(func() error {
			teamMembers, membersError := collectPages[member](fetchContext, source.client, teamMembersPath)
			if membersError != nil {
				return membersError
			}
			teamMemberLists[teamIndex] = teamMembers
			return nil
		})
	}
	if fetchError := fetchGroup.Wait(); fetchError != nil {
		return nil, sources.NewRemoteError(source.name, fetchError)
	}

	teamsByMember := make(map[string][]string)
	for teamIndex, organizationTeam := range teams {
		for _, teamMember := range teamMemberLists[teamIndex] {
			memberKey := strings.ToLower(strings.TrimSpace(teamMember.Email))
			teamsByMember[memberKey] = append(teamsByMember[memberKey], teamDisplayName(organizationTeam))
		}
	}

	members, organizationMembersError := collectPages[member](executionContext, source.client, fmt.Sprintf(organizationMembersPathTemplate, organizationSegment))
	if organizationMembersError != nil {
		return nil, sources.NewRemoteError(source.name, organizationMembersError)
	}

	identities := make([]identity.Identity, 0, len(members))
	for _, organizationMember := range members {
		memberKey := strings.ToLower(strings.TrimSpace(organizationMember.Email))
		identities = append(identities, toIdentity(organizationMember, teamsByMember[memberKey]))
	}

	return identities, nil
}

// Describe returns name, role, teams, and pending invitation state.
func (source *Source) Describe(identityRecord identity.Identity) identity.Properties {
	return identityRecord.Properties.Clone()
}

func toIdentity(organizationMember member, teamNames []string) identity.Identity {
	role := organizationMember.OrgRole
	if len(strings.TrimSpace(role)) == 0 {
		role = organizationMember.Role
	}

	identityRecord := identity.New(organizationMember.Email, organizationMember.Name).
		WithProperty(propertyNameConstant, organizationMember.Name).
		WithProperty(propertyRoleConstant, role).
		WithProperty(propertyTeamsConstant, strings.Join(teamNames, teamSeparatorConstant))
	if organizationMember.Pending {
		identityRecord = identityRecord.WithProperty(propertyPendingConstant, trueValueConstant)
	}
	return identityRecord
}

func teamDisplayName(organizationTeam team) string {
	if len(strings.TrimSpace(organizationTeam.Name)) > 0 {
		return organizationTeam.Name
	}
	return organizationTeam.Slug
}

// collectPages follows Sentry cursor pagination: a next link is only followed
// while it advertises results="true".
func collectPages[T any](executionContext context.Context, client *httpapi.Client, firstPagePath string) ([]T, error) {
	collected := make([]T, 0)
	nextPageURL := firstPagePath
	for pageIndex := 0; pageIndex < maximumPagesConstant; pageIndex++ {
		var page []T
		links, requestError := client.GetJSON(executionContext, nextPageURL, nil, &page)
		if requestError != nil {
			return nil, requestError
		}
		collected = append(collected, page...)

		nextLink, hasNext := links.Next()
		if !hasNext || nextLink.Parameter(resultsLinkParameterConstant) != resultsAvailableValueConstant {
			return collected, nil
		}
		nextPageURL = nextLink.URL
	}
	return nil, fmt.Errorf(pageLimitExceededTemplateConstant, firstPagePath, maximumPagesConstant)
}
