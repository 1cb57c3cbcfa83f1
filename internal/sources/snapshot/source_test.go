package snapshot_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/offboard/internal/identity"
	"github.com/temirov/offboard/internal/sources"
	"github.com/temirov/offboard/internal/sources/snapshot"
)

const (
	testSolarWindsContentConstant = "# org, account, name, role, last_logged_in\n" +
		"mozilla-pingdom,akahn@example.com,Alice Kahn,Admin,2024-01-05\n" +
		"mozilla-papertrail,bsmith@example.com,Bob Smith,Member,\n"
	testDeadMansSnitchContentConstant = "#case,name,account\n" +
		"1234,Alice Kahn,akahn@example.com\n"
)

func writeSnapshotFile(testInstance *testing.T, fileName string, content string) string {
	testInstance.Helper()
	filePath := filepath.Join(testInstance.TempDir(), fileName)
	require.NoError(testInstance, os.WriteFile(filePath, []byte(content), 0o600))
	return filePath
}

func presetLayout(testInstance *testing.T, preset snapshot.Preset) snapshot.Layout {
	testInstance.Helper()
	layout, layoutError := snapshot.PresetLayout(string(preset))
	require.NoError(testInstance, layoutError)
	return layout
}

func TestListIdentitiesSolarWindsPreset(testInstance *testing.T) {
	filePath := writeSnapshotFile(testInstance, "solarwinds_users.csv", testSolarWindsContentConstant)

	source, sourceError := snapshot.New(snapshot.Configuration{
		Name:   "SolarWinds",
		Path:   filePath,
		Layout: presetLayout(testInstance, snapshot.PresetSolarWinds),
	})
	require.NoError(testInstance, sourceError)
	require.Equal(testInstance, sources.CapabilitySnapshot, source.Capability())
	require.Equal(testInstance, "SolarWinds", source.Name())

	identities, listError := source.ListIdentities(context.Background(), "kahn")
	require.NoError(testInstance, listError)
	require.Len(testInstance, identities, 2)

	require.Equal(testInstance, "akahn@example.com", identities[0].Identifier)
	require.Equal(testInstance, []string{"Alice Kahn"}, identities[0].SecondaryIdentifiers)
	require.Equal(testInstance, identity.Properties{
		{Name: "org", Value: "mozilla-pingdom"},
		{Name: "name", Value: "Alice Kahn"},
		{Name: "role", Value: "Admin"},
		{Name: "last_logged_in", Value: "2024-01-05"},
	}, source.Describe(identities[0]))

	_, hasLastLogin := source.Describe(identities[1]).Lookup("last_logged_in")
	require.False(testInstance, hasLastLogin)
}

func TestListIdentitiesDeadMansSnitchPreset(testInstance *testing.T) {
	filePath := writeSnapshotFile(testInstance, "deadmanssnitch_users.csv", testDeadMansSnitchContentConstant)

	source, sourceError := snapshot.New(snapshot.Configuration{
		Name:   "DeadMansSnitch",
		Path:   filePath,
		Layout: presetLayout(testInstance, snapshot.PresetDeadMansSnitch),
	})
	require.NoError(testInstance, sourceError)

	identities, listError := source.ListIdentities(context.Background(), "")
	require.NoError(testInstance, listError)
	require.Len(testInstance, identities, 1)
	caseValue, caseFound := identities[0].Properties.Lookup("case")
	require.True(testInstance, caseFound)
	require.Equal(testInstance, "1234", caseValue)
}

func TestListIdentitiesWithHeaderAndTabDelimiter(testInstance *testing.T) {
	filePath := writeSnapshotFile(testInstance, "user_list.tsv", "Email\tName\tLast Seen\nakahn@example.com\tAlice Kahn\t2 years\n")

	source, sourceError := snapshot.New(snapshot.Configuration{
		Name:      "Grafana export",
		Path:      filePath,
		Delimiter: `\t`,
		HasHeader: true,
		Layout: snapshot.Layout{
			Columns:          []string{"email", "name", "last seen"},
			IdentifierColumn: "email",
		},
	})
	require.NoError(testInstance, sourceError)

	identities, listError := source.ListIdentities(context.Background(), "")
	require.NoError(testInstance, listError)
	require.Len(testInstance, identities, 1)
	require.Equal(testInstance, "akahn@example.com", identities[0].Identifier)
	require.Equal(testInstance, "name: Alice Kahn, last seen: 2 years", identities[0].Properties.String())
}

func TestListIdentitiesMapsColumnsByHeaderPosition(testInstance *testing.T) {
	filePath := writeSnapshotFile(testInstance, "user_list.csv", "Name,Last Seen,Email\nAlice Kahn,2 years,akahn@example.com\n")

	source, sourceError := snapshot.New(snapshot.Configuration{
		Name:      "Grafana export",
		Path:      filePath,
		HasHeader: true,
		Layout: snapshot.Layout{
			Columns:          []string{"email", "name", "last seen"},
			IdentifierColumn: "email",
			SecondaryColumns: []string{"name"},
		},
	})
	require.NoError(testInstance, sourceError)

	identities, listError := source.ListIdentities(context.Background(), "akahn")
	require.NoError(testInstance, listError)
	require.Len(testInstance, identities, 1)
	require.Equal(testInstance, "akahn@example.com", identities[0].Identifier)
	require.Equal(testInstance, []string{"Alice Kahn"}, identities[0].SecondaryIdentifiers)
	require.Equal(testInstance, "name: Alice Kahn, last seen: 2 years", identities[0].Properties.String())
}

func TestListIdentitiesSkipsIndentedComments(testInstance *testing.T) {
	content := "  # org, account, name, role, last_logged_in\n" +
		"mozilla-pingdom,akahn@example.com,Alice Kahn,Admin,2024-01-05\n" +
		"\t# trailing note\n" +
		"mozilla-papertrail,bsmith@example.com,Bob Smith,Member,"
	filePath := writeSnapshotFile(testInstance, "solarwinds_users.csv", content)

	source, sourceError := snapshot.New(snapshot.Configuration{
		Name:   "SolarWinds",
		Path:   filePath,
		Layout: presetLayout(testInstance, snapshot.PresetSolarWinds),
	})
	require.NoError(testInstance, sourceError)

	identities, listError := source.ListIdentities(context.Background(), "acc")
	require.NoError(testInstance, listError)
	require.Len(testInstance, identities, 2)
	require.Equal(testInstance, "akahn@example.com", identities[0].Identifier)
	require.Equal(testInstance, "bsmith@example.com", identities[1].Identifier)
}

func TestListIdentitiesReportsPhysicalLineAfterComments(testInstance *testing.T) {
	filePath := writeSnapshotFile(testInstance, "deadmanssnitch_users.csv", "   #case,name,account\n\n1234,Alice Kahn,akahn@example.com\n5678,Bob Smith\n")

	source, sourceError := snapshot.New(snapshot.Configuration{
		Name:   "DeadMansSnitch",
		Path:   filePath,
		Layout: presetLayout(testInstance, snapshot.PresetDeadMansSnitch),
	})
	require.NoError(testInstance, sourceError)

	_, listError := source.ListIdentities(context.Background(), "")
	var formatError *sources.FormatError
	require.True(testInstance, errors.As(listError, &formatError), "unexpected error %v", listError)
	require.Equal(testInstance, 4, formatError.Line)
}

func TestListIdentitiesAcceptsStrayQuotes(testInstance *testing.T) {
	filePath := writeSnapshotFile(testInstance, "deadmanssnitch_users.csv", "1234,Alice \"AK\" Kahn,akahn@example.com\n5678,Bob Smith,bsmith@example.com\n")

	source, sourceError := snapshot.New(snapshot.Configuration{
		Name:   "DeadMansSnitch",
		Path:   filePath,
		Layout: presetLayout(testInstance, snapshot.PresetDeadMansSnitch),
	})
	require.NoError(testInstance, sourceError)

	identities, listError := source.ListIdentities(context.Background(), "")
	require.NoError(testInstance, listError)
	require.Len(testInstance, identities, 2)
	require.Equal(testInstance, []string{`Alice "AK" Kahn`}, identities[0].SecondaryIdentifiers)
	require.Equal(testInstance, "bsmith@example.com", identities[1].Identifier)
}

func TestListIdentitiesFormatErrors(testInstance *testing.T) {
	testCases := []struct {
		name         string
		content      string
		hasHeader    bool
		expectedLine int
		expectedText string
	}{
		{
			name:         "wrong_field_count",
			content:      "1234,Alice Kahn,akahn@example.com\n5678,Bob Smith\n",
			expectedLine: 2,
			expectedText: "expected 3 fields, found 2",
		},
		{
			name:         "empty_identifier",
			content:      "#header\n1234,Alice Kahn,\n",
			expectedLine: 2,
			expectedText: `column "account" is empty`,
		},
		{
			name:         "missing_header_column",
			content:      "case,name,email\n1234,Alice Kahn,akahn@example.com\n",
			hasHeader:    true,
			expectedLine: 1,
			expectedText: `header is missing expected column "account"`,
		},
		{
			name:         "duplicate_header_column",
			content:      "# exported 2024-03-01\ncase,name,Name\n1234,Alice Kahn,akahn@example.com\n",
			hasHeader:    true,
			expectedLine: 2,
			expectedText: `header declares column "name" more than once`,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			filePath := writeSnapshotFile(subTest, "export.csv", testCase.content)
			source, sourceError := snapshot.New(snapshot.Configuration{
				Name:      "DeadMansSnitch",
				Path:      filePath,
				HasHeader: testCase.hasHeader,
				Layout:    presetLayout(subTest, snapshot.PresetDeadMansSnitch),
			})
			require.NoError(subTest, sourceError)

			identities, listError := source.ListIdentities(context.Background(), "")
			require.Nil(subTest, identities)

			var formatError *sources.FormatError
			require.True(subTest, errors.As(listError, &formatError), "unexpected error %v", listError)
			require.Equal(subTest, testCase.expectedLine, formatError.Line)
			require.Contains(subTest, formatError.Error(), testCase.expectedText)
			require.Equal(subTest, sources.ErrorKindFormat, sources.ClassifyError(listError))
		})
	}
}

func TestListIdentitiesMissingFileIsUnavailable(testInstance *testing.T) {
	source, sourceError := snapshot.New(snapshot.Configuration{
		Name:   "DeadMansSnitch",
		Path:   filepath.Join(testInstance.TempDir(), "missing.csv"),
		Layout: presetLayout(testInstance, snapshot.PresetDeadMansSnitch),
	})
	require.NoError(testInstance, sourceError)

	_, listError := source.ListIdentities(context.Background(), "kahn")
	var unavailableError *sources.UnavailableError
	require.True(testInstance, errors.As(listError, &unavailableError))
	require.ErrorIs(testInstance, listError, os.ErrNotExist)
}

func TestListIdentitiesUsesOpenerAndHonorsContext(testInstance *testing.T) {
	openCount := 0
	source, sourceError := snapshot.New(snapshot.Configuration{
		Name:   "DeadMansSnitch",
		Path:   "virtual.csv",
		Layout: presetLayout(testInstance, snapshot.PresetDeadMansSnitch),
		Opener: func(path string) (io.ReadCloser, error) {
			openCount++
			return io.NopCloser(strings.NewReader(testDeadMansSnitchContentConstant)), nil
		},
	})
	require.NoError(testInstance, sourceError)

	firstIdentities, firstError := source.ListIdentities(context.Background(), "")
	require.NoError(testInstance, firstError)
	secondIdentities, secondError := source.ListIdentities(context.Background(), "")
	require.NoError(testInstance, secondError)
	require.Equal(testInstance, firstIdentities, secondIdentities)
	require.Equal(testInstance, 2, openCount)

	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()
	_, cancelledError := source.ListIdentities(cancelledContext, "")
	require.Equal(testInstance, sources.ErrorKindUnavailable, sources.ClassifyError(cancelledError))
	require.ErrorIs(testInstance, cancelledError, context.Canceled)
}

func TestNewValidatesConfiguration(testInstance *testing.T) {
	validLayout := snapshot.Layout{Columns: []string{"account", "name"}, IdentifierColumn: "account"}

	testCases := []struct {
		name          string
		configuration snapshot.Configuration
	}{
		{name: "missing_name", configuration: snapshot.Configuration{Path: "users.csv", Layout: validLayout}},
		{name: "missing_path", configuration: snapshot.Configuration{Name: "Export", Layout: validLayout}},
		{name: "missing_columns", configuration: snapshot.Configuration{Name: "Export", Path: "users.csv", Layout: snapshot.Layout{IdentifierColumn: "account"}}},
		{name: "missing_identifier", configuration: snapshot.Configuration{Name: "Export", Path: "users.csv", Layout: snapshot.Layout{Columns: []string{"account"}}}},
		{name: "unknown_identifier", configuration: snapshot.Configuration{Name: "Export", Path: "users.csv", Layout: snapshot.Layout{Columns: []string{"account"}, IdentifierColumn: "email"}}},
		{name: "unknown_secondary", configuration: snapshot.Configuration{Name: "Export", Path: "users.csv", Layout: snapshot.Layout{Columns: []string{"account"}, IdentifierColumn: "account", SecondaryColumns: []string{"name"}}}},
		{name: "duplicate_column", configuration: snapshot.Configuration{Name: "Export", Path: "users.csv", Layout: snapshot.Layout{Columns: []string{"account", "Account"}, IdentifierColumn: "account"}}},
		{name: "long_delimiter", configuration: snapshot.Configuration{Name: "Export", Path: "users.csv", Layout: validLayout, Delimiter: ";;"}},
		{name: "reserved_delimiter", configuration: snapshot.Configuration{Name: "Export", Path: "users.csv", Layout: validLayout, Delimiter: "#"}},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			_, sourceError := snapshot.New(testCase.configuration)
			require.Error(subTest, sourceError)
			require.True(subTest, sources.IsConfigurationError(sourceError))
		})
	}
}

func TestPresetLayout(testInstance *testing.T) {
	layout, layoutError := snapshot.PresetLayout(" SolarWinds ")
	require.NoError(testInstance, layoutError)
	require.Equal(testInstance, []string{"org", "account", "name", "role", "last_logged_in"}, layout.Columns)

	layout.Columns[0] = "mutated"
	pristineLayout, _ := snapshot.PresetLayout("solarwinds")
	require.Equal(testInstance, "org", pristineLayout.Columns[0])

	_, unknownError := snapshot.PresetLayout("pagerduty")
	require.Error(testInstance, unknownError)
	require.ElementsMatch(testInstance, []string{"solarwinds", "deadmanssnitch"}, snapshot.PresetNames())
}
