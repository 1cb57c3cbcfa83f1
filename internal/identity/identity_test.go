package identity_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/offboard/internal/identity"
)

func TestNewDropsBlankSecondaryIdentifiers(testInstance *testing.T) {
	record := identity.New("  akahn@example.com ", "", "  ", "Alice Kahn")
	require.Equal(testInstance, "akahn@example.com", record.Identifier)
	require.Equal(testInstance, []string{"Alice Kahn"}, record.SecondaryIdentifiers)
}

func TestWithPropertyKeepsOrderAndSkipsEmptyValues(testInstance *testing.T) {
	base := identity.New("akahn@example.com")
	record := base.
		WithProperty("role", "Admin").
		WithProperty("teams", "").
		WithProperty("last_seen", "2 days")

	require.Equal(testInstance, identity.Properties{
		{Name: "role", Value: "Admin"},
		{Name: "last_seen", Value: "2 days"},
	}, record.Properties)
	require.Empty(testInstance, base.Properties)

	roleValue, roleFound := record.Properties.Lookup("role")
	require.True(testInstance, roleFound)
	require.Equal(testInstance, "Admin", roleValue)

	_, teamsFound := record.Properties.Lookup("teams")
	require.False(testInstance, teamsFound)

	require.Equal(testInstance, "role: Admin, last_seen: 2 days", record.Properties.String())
}

func TestPropertiesCloneIsIndependent(testInstance *testing.T) {
	original := identity.Properties{{Name: "role", Value: "Admin"}}
	cloned := original.Clone()
	cloned[0].Value = "Viewer"
	require.Equal(testInstance, "Admin", original[0].Value)
	require.Nil(testInstance, identity.Properties(nil).Clone())
}
