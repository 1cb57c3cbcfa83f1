package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	tokenSourceSeparatorConstant               = ":"
	environmentTokenSourceTypeValueConstant    = "env"
	fileTokenSourceTypeValueConstant           = "file"
	tokenSourceMissingErrorMessageConstant     = "credential reference must be provided"
	environmentNameMissingErrorMessageConstant = "credential environment variable name must be provided"
	filePathMissingErrorMessageConstant        = "credential file path must be provided"
	environmentTokenMissingTemplateConstant    = "credential environment variable %s is not set"
	fileReadErrorTemplateConstant              = "unable to read credential file %s: %w"
	fileTokenEmptyErrorTemplateConstant        = "credential file %s is empty"
	unsupportedTokenSourceTemplateConstant     = "unsupported credential reference type %q"
	maskCharacterConstant                      = "*"
	maskVisibleSuffixLengthConstant            = 4
)

// TokenSourceType enumerates the supported token retrieval mechanisms.
type TokenSourceType string

// Token source type enumerations.
const (
	TokenSourceTypeEnvironment TokenSourceType = TokenSourceType(environmentTokenSourceTypeValueConstant)
	TokenSourceTypeFile        TokenSourceType = TokenSourceType(fileTokenSourceTypeValueConstant)
)

// TokenSource specifies where a credential lives.
type TokenSource struct {
	Type      TokenSourceType
	Reference string
}

// String renders the declaration without revealing the token.
func (source TokenSource) String() string {
	return string(source.Type) + tokenSourceSeparatorConstant + source.Reference
}

// TokenResolver retrieves authentication tokens from configured sources.
type TokenResolver interface {
	ResolveToken(resolutionContext context.Context, source TokenSource) (string, error)
}

// EnvironmentLookup obtains an environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// FileReader reads the contents of a file path.
type FileReader func(path string) ([]byte, error)

// NewTokenResolver creates a token resolver. Nil collaborators default to the
// process environment and the local file system.
func NewTokenResolver(environmentLookup EnvironmentLookup, fileReader FileReader) TokenResolver {
	resolvedEnvironmentLookup := environmentLookup
	if resolvedEnvironmentLookup == nil {
		resolvedEnvironmentLookup = os.LookupEnv
	}

	resolvedFileReader := fileReader
	if resolvedFileReader == nil {
		resolvedFileReader = os.ReadFile
	}

	return &tokenResolver{
		environmentLookup: resolvedEnvironmentLookup,
		fileReader:        resolvedFileReader,
	}
}

// ParseTokenSource interprets "env:NAME", "file:/path", or a bare environment variable name.
func ParseTokenSource(sourceValue string) (TokenSource, error) {
	trimmedValue := strings.TrimSpace(sourceValue)
	if len(trimmedValue) == 0 {
		return TokenSource{}, errors.New(tokenSourceMissingErrorMessageConstant)
	}

	sourceType, reference, hasSeparator := strings.Cut(trimmedValue, tokenSourceSeparatorConstant)
	if !hasSeparator {
		return TokenSource{Type: TokenSourceTypeEnvironment, Reference: trimmedValue}, nil
	}

	normalizedType := strings.ToLower(strings.TrimSpace(sourceType))
	trimmedReference := strings.TrimSpace(reference)

	switch normalizedType {
	case environmentTokenSourceTypeValueConstant:
		if len(trimmedReference) == 0 {
			return TokenSource{}, errors.New(environmentNameMissingErrorMessageConstant)
		}
		return TokenSource{Type: TokenSourceTypeEnvironment, Reference: trimmedReference}, nil
	case fileTokenSourceTypeValueConstant:
		if len(trimmedReference) == 0 {
			return TokenSource{}, errors.New(filePathMissingErrorMessageConstant)
		}
		return TokenSource{Type: TokenSourceTypeFile, Reference: trimmedReference}, nil
	default:
		return TokenSource{}, fmt.Errorf(unsupportedTokenSourceTemplateConstant, normalizedType)
	}
}

// Mask hides all but the last few characters of a token for log output.
func Mask(token string) string {
	if len(token) <= maskVisibleSuffixLengthConstant {
		return strings.Repeat(maskCharacterConstant, len(token))
	}
	hiddenLength := len(token) - maskVisibleSuffixLengthConstant
	return strings.Repeat(maskCharacterConstant, hiddenLength) + token[hiddenLength:]
}

type tokenResolver struct {
	environmentLookup EnvironmentLookup
	fileReader        FileReader
}

func (resolver *tokenResolver) ResolveToken(resolutionContext context.Context, source TokenSource) (string, error) {
	if contextError := contextErr(resolutionContext); contextError != nil {
		return "", contextError
	}

	switch source.Type {
	case TokenSourceTypeEnvironment:
		value, found := resolver.environmentLookup(source.Reference)
		trimmedValue := strings.TrimSpace(value)
		if !found || len(trimmedValue) == 0 {
			return "", fmt.Errorf(environmentTokenMissingTemplateConstant, source.Reference)
		}
		return trimmedValue, nil
	case TokenSourceTypeFile:
		contents, readError := resolver.fileReader(source.Reference)
		if readError != nil {
			return "", fmt.Errorf(fileReadErrorTemplateConstant, source.Reference, readError)
		}
		trimmedValue := strings.TrimSpace(string(contents))
		if len(trimmedValue) == 0 {
			return "", fmt.Errorf(fileTokenEmptyErrorTemplateConstant, source.Reference)
		}
		return trimmedValue, nil
	default:
		return "", fmt.Errorf(unsupportedTokenSourceTemplateConstant, source.Type)
	}
}

func contextErr(resolutionContext context.Context) error {
	if resolutionContext == nil {
		return nil
	}
	return resolutionContext.Err()
}
