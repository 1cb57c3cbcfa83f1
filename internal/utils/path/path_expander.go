// Package pathutils expands user supplied file paths.
package pathutils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	tildeSymbolConstant                          = "~"
	environmentReferenceMarkerConstant           = "$"
	unresolvedEnvironmentReferencePrefixConstant = "${"
	unresolvedEnvironmentReferenceSuffixConstant = "}"
)

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// EnvironmentLookup obtains an environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// PathExpander resolves environment references and a leading home shortcut in
// configured paths such as snapshot exports and metrics textfiles.
type PathExpander struct {
	homeDirectoryProvider HomeDirectoryProvider
	environmentLookup     EnvironmentLookup
	homeDirectory         string
	homeDirectoryError    error
	initializationGuard   sync.Once
}

// NewPathExpander constructs a PathExpander backed by the operating system.
func NewPathExpander() *PathExpander {
	return NewPathExpanderWithLookups(nil, nil)
}

// NewPathExpanderWithLookups constructs a PathExpander with custom collaborators.
// Nil collaborators default to the operating system.
func NewPathExpanderWithLookups(homeDirectoryProvider HomeDirectoryProvider, environmentLookup EnvironmentLookup) *PathExpander {
	if homeDirectoryProvider == nil {
		homeDirectoryProvider = os.UserHomeDir
	}
	if environmentLookup == nil {
		environmentLookup = os.LookupEnv
	}
	return &PathExpander{
		homeDirectoryProvider: homeDirectoryProvider,
		environmentLookup:     environmentLookup,
	}
}

// Expand substitutes $NAME and ${NAME} references that are set, then replaces
// a leading "~" or "~/" with the home directory. Unset references are kept
// verbatim.
func (expander *PathExpander) Expand(candidatePath string) string {
	if expander == nil || len(candidatePath) == 0 {
		return candidatePath
	}

	expandedPath := candidatePath
	if strings.Contains(expandedPath, environmentReferenceMarkerConstant) {
		expandedPath = os.Expand(expandedPath, expander.lookupReference)
	}

	return expander.expandHome(expandedPath)
}

func (expander *PathExpander) lookupReference(variableName string) string {
	if value, found := expander.environmentLookup(variableName); found {
		return value
	}
	return unresolvedEnvironmentReferencePrefixConstant + variableName + unresolvedEnvironmentReferenceSuffixConstant
}

func (expander *PathExpander) expandHome(candidatePath string) string {
	if !strings.HasPrefix(candidatePath, tildeSymbolConstant) {
		return candidatePath
	}

	remainder := strings.TrimPrefix(candidatePath, tildeSymbolConstant)
	if len(remainder) > 0 && remainder[0] != '/' && remainder[0] != os.PathSeparator {
		return candidatePath
	}

	resolvedHomeDirectory := expander.resolveHomeDirectory()
	if len(resolvedHomeDirectory) == 0 {
		return candidatePath
	}
	if len(remainder) == 0 {
		return resolvedHomeDirectory
	}
	return filepath.Join(resolvedHomeDirectory, remainder[1:])
}

func (expander *PathExpander) resolveHomeDirectory() string {
	expander.initializationGuard.Do(func() {
		expander.homeDirectory, expander.homeDirectoryError = expander.homeDirectoryProvider()
	})
	if expander.homeDirectoryError != nil {
		return ""
	}
	return expander.homeDirectory
}
