package credentials_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/offboard/internal/credentials"
)

const (
	testEnvironmentFileNameConstant    = ".env"
	testEnvironmentFileContentConstant = "OFFBOARD_TEST_SENTRY_TOKEN=from-file\nOFFBOARD_TEST_PRESET_TOKEN=from-file\n"
)

func TestLoadEnvironmentFileExportsMissingVariables(testInstance *testing.T) {
	environmentFilePath := filepath.Join(testInstance.TempDir(), testEnvironmentFileNameConstant)
	require.NoError(testInstance, os.WriteFile(environmentFilePath, []byte(testEnvironmentFileContentConstant), 0o600))

	testInstance.Setenv("OFFBOARD_TEST_PRESET_TOKEN", "from-environment")
	testInstance.Setenv("OFFBOARD_TEST_SENTRY_TOKEN", "")
	require.NoError(testInstance, os.Unsetenv("OFFBOARD_TEST_SENTRY_TOKEN"))

	loaded, loadError := credentials.LoadEnvironmentFile(environmentFilePath, true)
	require.NoError(testInstance, loadError)
	require.True(testInstance, loaded)

	require.Equal(testInstance, "from-file", os.Getenv("OFFBOARD_TEST_SENTRY_TOKEN"))
	require.Equal(testInstance, "from-environment", os.Getenv("OFFBOARD_TEST_PRESET_TOKEN"))
}

func TestLoadEnvironmentFileMissing(testInstance *testing.T) {
	missingPath := filepath.Join(testInstance.TempDir(), "absent.env")

	loaded, optionalError := credentials.LoadEnvironmentFile(missingPath, false)
	require.NoError(testInstance, optionalError)
	require.False(testInstance, loaded)

	_, requiredError := credentials.LoadEnvironmentFile(missingPath, true)
	require.Error(testInstance, requiredError)

	loaded, emptyPathError := credentials.LoadEnvironmentFile("  ", true)
	require.NoError(testInstance, emptyPathError)
	require.False(testInstance, loaded)
}
