package factory

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/offboard/internal/credentials"
	"github.com/temirov/offboard/internal/httpapi"
	"github.com/temirov/offboard/internal/sources"
	"github.com/temirov/offboard/internal/sources/grafana"
	"github.com/temirov/offboard/internal/sources/newrelic"
	"github.com/temirov/offboard/internal/sources/sentry"
	"github.com/temirov/offboard/internal/sources/snapshot"
	pathutils "github.com/temirov/offboard/internal/utils/path"
)

const (
	sourcesFieldConstant              = "sources"
	sourceSelectionFieldConstant      = "source"
	sourceFieldTemplateConstant       = "sources[%d]"
	namedSourceFieldTemplateConstant  = "sources[%s]"
	tokenFieldTemplateConstant        = "sources[%s].with.token"
	noSourcesMessageConstant          = "at least one source must be configured"
	nameRequiredMessageConstant       = "source name must be provided"
	duplicateNameTemplateConstant     = "source name %q is configured more than once"
	unknownKindTemplateConstant       = "unsupported source kind %q (expected one of %s)"
	unknownSelectionTemplateConstant  = "no configured source is named %q"
	kindListSeparatorConstant         = ", "
	credentialResolvedMessageConstant = "Credential resolved"
	sourceLogFieldConstant            = "source"
	credentialLogFieldConstant        = "credential"
	maskedTokenLogFieldConstant       = "token"
)

// Dependencies are the collaborators injected into every adapter.
type Dependencies struct {
	TokenResolver credentials.TokenResolver
	HTTPClient    httpapi.HTTPClient
	PathExpander  *pathutils.PathExpander
	FileOpener    snapshot.FileOpener
	Logger        *zap.Logger
}

// Builder constructs adapters from definitions.
type Builder struct {
	tokenResolver credentials.TokenResolver
	httpClient    httpapi.HTTPClient
	pathExpander  *pathutils.PathExpander
	fileOpener    snapshot.FileOpener
	logger        *zap.Logger
}

// NewBuilder fills missing dependencies with process defaults.
func NewBuilder(dependencies Dependencies) *Builder {
	tokenResolver := dependencies.TokenResolver
	if tokenResolver == nil {
		tokenResolver = credentials.NewTokenResolver(nil, nil)
	}

	httpClient := dependencies.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	pathExpander := dependencies.PathExpander
	if pathExpander == nil {
		pathExpander = pathutils.NewPathExpander()
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Builder{
		tokenResolver: tokenResolver,
		httpClient:    httpClient,
		pathExpander:  pathExpander,
		fileOpener:    dependencies.FileOpener,
		logger:        logger,
	}
}

// Build validates every definition and returns the adapters in configured
// order. When selectedNames is non-empty only the named sources are built;
// names are compared case-insensitively.
func (builder *Builder) Build(executionContext context.Context, definitions []Definition, selectedNames []string) ([]sources.Source, error) {
	if len(definitions) == 0 {
		return nil, sources.NewConfigurationError(sourcesFieldConstant, noSourcesMessageConstant)
	}

	seenNames := make(map[string]struct{}, len(definitions))
	for definitionIndex := range definitions {
		trimmedName := strings.TrimSpace(definitions[definitionIndex].Name)
		if len(trimmedName) == 0 {
			return nil, sources.NewConfigurationError(fmt.Sprintf(sourceFieldTemplateConstant, definitionIndex), nameRequiredMessageConstant)
		}
		nameKey := strings.ToLower(trimmedName)
		if _, duplicate := seenNames[nameKey]; duplicate {
			return nil, sources.NewConfigurationError(sourcesFieldConstant, fmt.Sprintf(duplicateNameTemplateConstant, trimmedName))
		}
		seenNames[nameKey] = struct{}{}
	}

	selection := make(map[string]struct{}, len(selectedNames))
	for _, selectedName := range selectedNames {
		trimmedSelection := strings.TrimSpace(selectedName)
		if len(trimmedSelection) == 0 {
			continue
		}
		selectionKey := strings.ToLower(trimmedSelection)
		if _, configured := seenNames[selectionKey]; !configured {
			return nil, sources.NewConfigurationError(sourceSelectionFieldConstant, fmt.Sprintf(unknownSelectionTemplateConstant, trimmedSelection))
		}
		selection[selectionKey] = struct{}{}
	}

	builtSources := make([]sources.Source, 0, len(definitions))
	for _, definition := range definitions {
		sourceName := strings.TrimSpace(definition.Name)
		if len(selection) > 0 {
			if _, selected := selection[strings.ToLower(sourceName)]; !selected {
				continue
			}
		}

		builtSource, buildError := builder.buildSource(executionContext, sourceName, definition)
		if buildError != nil {
			return nil, buildError
		}
		builtSources = append(builtSources, builtSource)
	}

	return builtSources, nil
}

func (builder *Builder) buildSource(executionContext context.Context, sourceName string, definition Definition) (sources.Source, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(string(definition.Kind)))) {
	case KindGrafana:
		return builder.buildGrafana(executionContext, sourceName, definition.Options)
	case KindSentry:
		return builder.buildSentry(executionContext, sourceName, definition.Options)
	case KindNewRelic:
		return builder.buildNewRelic(executionContext, sourceName, definition.Options)
	case KindSnapshot:
		return builder.buildSnapshot(sourceName, definition.Options)
	default:
		return nil, sources.NewConfigurationError(
			fmt.Sprintf(namedSourceFieldTemplateConstant, sourceName),
			fmt.Sprintf(unknownKindTemplateConstant, definition.Kind, strings.Join(Kinds(), kindListSeparatorConstant)),
		)
	}
}

func (builder *Builder) buildGrafana(executionContext context.Context, sourceName string, rawOptions map[string]any) (sources.Source, error) {
	var options grafanaOptions
	if decodeError := decodeOptions(sourceName, rawOptions, &options); decodeError != nil {
		return nil, decodeError
	}
	token, tokenError := builder.resolveToken(executionContext, sourceName, options.Token)
	if tokenError != nil {
		return nil, tokenError
	}
	grafanaSource, sourceError := grafana.New(grafana.Configuration{
		Name:       sourceName,
		BaseURL:    options.BaseURL,
		Token:      token,
		PageSize:   options.PageSize,
		HTTPClient: builder.httpClient,
	})
	if sourceError != nil {
		return nil, sourceError
	}
	return grafanaSource, nil
}

func (builder *Builder) buildSentry(executionContext context.Context, sourceName string, rawOptions map[string]any) (sources.Source, error) {
	var options sentryOptions
	if decodeError := decodeOptions(sourceName, rawOptions, &options); decodeError != nil {
		return nil, decodeError
	}
	token, tokenError := builder.resolveToken(executionContext, sourceName, options.Token)
	if tokenError != nil {
		return nil, tokenError
	}
	sentrySource, sourceError := sentry.New(sentry.Configuration{
		Name:         sourceName,
		BaseURL:      options.BaseURL,
		Organization: options.Organization,
		Token:        token,
		HTTPClient:   builder.httpClient,
	})
	if sourceError != nil {
		return nil, sourceError
	}
	return sentrySource, nil
}

func (builder *Builder) buildNewRelic(executionContext context.Context, sourceName string, rawOptions map[string]any) (sources.Source, error) {
	var options newRelicOptions
	if decodeError := decodeOptions(sourceName, rawOptions, &options); decodeError != nil {
		return nil, decodeError
	}
	token, tokenError := builder.resolveToken(executionContext, sourceName, options.Token)
	if tokenError != nil {
		return nil, tokenError
	}
	newRelicSource, sourceError := newrelic.New(newrelic.Configuration{
		Name:       sourceName,
		Endpoint:   options.Endpoint,
		Token:      token,
		HTTPClient: builder.httpClient,
	})
	if sourceError != nil {
		return nil, sourceError
	}
	return newRelicSource, nil
}

func (builder *Builder) buildSnapshot(sourceName string, rawOptions map[string]any) (sources.Source, error) {
	var options snapshotOptions
	if decodeError := decodeOptions(sourceName, rawOptions, &options); decodeError != nil {
		return nil, decodeError
	}

	layout := snapshot.Layout{}
	if len(strings.TrimSpace(options.Preset)) > 0 {
		presetLayout, presetError := snapshot.PresetLayout(options.Preset)
		if presetError != nil {
			return nil, sources.NewConfigurationError(fmt.Sprintf(namedSourceFieldTemplateConstant, sourceName), presetError.Error())
		}
		layout = presetLayout
	}
	if len(options.Columns) > 0 {
		layout.Columns = options.Columns
	}
	if len(strings.TrimSpace(options.Identifier)) > 0 {
		layout.IdentifierColumn = options.Identifier
	}
	if len(options.Secondary) > 0 {
		layout.SecondaryColumns = options.Secondary
	}

	snapshotSource, sourceError := snapshot.New(snapshot.Configuration{
		Name:      sourceName,
		Path:      builder.pathExpander.Expand(strings.TrimSpace(options.Path)),
		Layout:    layout,
		Delimiter: options.Delimiter,
		HasHeader: options.Header,
		Opener:    builder.fileOpener,
	})
	if sourceError != nil {
		return nil, sourceError
	}
	return snapshotSource, nil
}

func (builder *Builder) resolveToken(executionContext context.Context, sourceName string, tokenReference string) (string, error) {
	fieldName := fmt.Sprintf(tokenFieldTemplateConstant, sourceName)

	tokenSource, parseError := credentials.ParseTokenSource(tokenReference)
	if parseError != nil {
		return "", sources.NewConfigurationError(fieldName, parseError.Error())
	}

	token, resolveError := builder.tokenResolver.ResolveToken(executionContext, tokenSource)
	if resolveError != nil {
		return "", sources.NewConfigurationError(fieldName, resolveError.Error())
	}

	builder.logger.Debug(credentialResolvedMessageConstant,
		zap.String(sourceLogFieldConstant, sourceName),
		zap.Stringer(credentialLogFieldConstant, tokenSource),
		zap.String(maskedTokenLogFieldConstant, credentials.Mask(token)),
	)
	return token, nil
}
