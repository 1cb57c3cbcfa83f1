package flags

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChoiceSetUsage(testInstance *testing.T) {
	testCases := []struct {
		name           string
		defaultChoice  string
		choices        []string
		description    string
		expectedOutput string
	}{
		{
			name:           "DefaultFirstChoice",
			defaultChoice:  "text",
			choices:        []string{"text", "json"},
			description:    "Report format.",
			expectedOutput: "`<TEXT|json>` Report format.",
		},
		{
			name:           "DefaultLaterChoice",
			defaultChoice:  "console",
			choices:        []string{"structured", "console"},
			description:    "Log encoding.",
			expectedOutput: "`<structured|CONSOLE>` Log encoding.",
		},
		{
			name:           "EmptyDescription",
			defaultChoice:  "info",
			choices:        []string{"debug", "info"},
			description:    "  ",
			expectedOutput: "`<debug|INFO>`",
		},
		{
			name:           "DuplicateAndBlankChoicesIgnored",
			defaultChoice:  "yaml",
			choices:        []string{"YAML", "yaml", " ", "csv"},
			description:    "Pick one.",
			expectedOutput: "`<YAML|csv>` Pick one.",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			choiceSet := NewChoiceSet("format", testCase.defaultChoice, testCase.choices)
			require.Equal(subTest, testCase.expectedOutput, choiceSet.Usage(testCase.description))
		})
	}
}

func TestChoiceSetResolve(testInstance *testing.T) {
	choiceSet := NewChoiceSet("log level", "info", []string{"debug", "info", "warn", "error"})

	testCases := []struct {
		name            string
		value           string
		expectedChoice  string
		expectedMessage string
	}{
		{name: "Exact", value: "warn", expectedChoice: "warn"},
		{name: "CaseInsensitive", value: " DEBUG ", expectedChoice: "debug"},
		{name: "EmptyUsesDefault", value: "", expectedChoice: "info"},
		{name: "Unsupported", value: "verbose", expectedMessage: `unsupported log level "verbose" (expected one of debug, info, warn, error)`},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			resolvedChoice, resolveError := choiceSet.Resolve(testCase.value)
			if len(testCase.expectedMessage) > 0 {
				require.EqualError(subTest, resolveError, testCase.expectedMessage)
				return
			}
			require.NoError(subTest, resolveError)
			require.Equal(subTest, testCase.expectedChoice, resolvedChoice)
		})
	}
}
