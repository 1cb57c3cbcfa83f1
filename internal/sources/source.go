package sources

import (
	"context"

	"github.com/temirov/offboard/internal/identity"
)

// Capability distinguishes sources queried live from static exports.
type Capability string

// Supported capabilities.
const (
	CapabilityLive     Capability = Capability("live")
	CapabilitySnapshot Capability = Capability("snapshot")
)

// Source enumerates the identities held by one account system.
type Source interface {
	Name() string
	Capability() Capability
	// ListIdentities returns the identities known to the source. The query is a
	// server-side filtering hint; callers re-validate every returned identity.
	ListIdentities(executionContext context.Context, query string) ([]identity.Identity, error)
	// Describe returns the properties rendered for a matched identity.
	Describe(identityRecord identity.Identity) identity.Properties
}
