package find

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/offboard/internal/credentials"
	"github.com/temirov/offboard/internal/httpapi"
	"github.com/temirov/offboard/internal/metrics"
	"github.com/temirov/offboard/internal/report"
	"github.com/temirov/offboard/internal/search"
	"github.com/temirov/offboard/internal/sources/factory"
	"github.com/temirov/offboard/internal/sources/snapshot"
	"github.com/temirov/offboard/internal/utils"
	"github.com/temirov/offboard/internal/utils/flags"
	pathutils "github.com/temirov/offboard/internal/utils/path"
)

const (
	commandUseConstant                     = "find <query>"
	commandShortDescriptionConstant        = "Locate the accounts of a departing user"
	commandLongDescriptionConstant         = "find searches every configured account source for an email or name fragment and reports, per source, whether a matching account exists. Sources that cannot be checked are reported with the reason."
	commandExampleConstant                 = "  offboard find akahn\n  offboard find kahn@example.com --format json --source Sentry"
	formatFlagNameConstant                 = "format"
	formatFlagDescriptionConstant          = "Report format."
	sourceFlagNameConstant                 = "source"
	sourceFlagDescriptionConstant          = "Search only the named source (repeatable)."
	timeoutFlagNameConstant                = "timeout"
	timeoutFlagDescriptionConstant         = "Maximum time spent on a single source."
	concurrencyFlagNameConstant            = "concurrency"
	concurrencyFlagDescriptionConstant     = "Number of sources searched in parallel."
	metricsFileFlagNameConstant            = "metrics-file"
	metricsFileFlagDescriptionConstant     = "Write Prometheus textfile metrics for the run to this path."
	renderErrorTemplateConstant            = "unable to write report: %w"
	metricsErrorTemplateConstant           = "unable to record metrics: %w"
	sourcesBuiltMessageConstant            = "Account sources configured"
	metricsWrittenMessageConstant          = "Metrics textfile written"
	sourceNamesFieldNameConstant           = "sources"
	metricsFileFieldNameConstant           = "metrics_file"
	configurationFileFieldNameConstant     = "config_file"
	environmentFileLoadedFieldNameConstant = "env_file_loaded"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current find configuration.
type ConfigurationProvider func() CommandConfiguration

// CommandBuilder assembles the find command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	HTTPClient            httpapi.HTTPClient
	TokenResolver         credentials.TokenResolver
	PathExpander          *pathutils.PathExpander
	FileOpener            snapshot.FileOpener
	Clock                 func() time.Time
}

type commandOptions struct {
	query         string
	format        report.Format
	selectedNames []string
	timeout       time.Duration
	concurrency   int
	metricsFile   string
	definitions   []factory.Definition
}

// Build constructs the cobra command for account lookups.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:     commandUseConstant,
		Short:   commandShortDescriptionConstant,
		Long:    commandLongDescriptionConstant,
		Example: commandExampleConstant,
		Args:    cobra.ExactArgs(1),
		RunE:    builder.run,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().String(formatFlagNameConstant, "", flags.NewChoiceSet(formatFlagNameConstant, defaults.Format, report.FormatNames()).Usage(formatFlagDescriptionConstant))
	command.Flags().StringArray(sourceFlagNameConstant, nil, sourceFlagDescriptionConstant)
	command.Flags().Duration(timeoutFlagNameConstant, defaults.Timeout, timeoutFlagDescriptionConstant)
	command.Flags().Int(concurrencyFlagNameConstant, defaults.Concurrency, concurrencyFlagDescriptionConstant)
	command.Flags().String(metricsFileFlagNameConstant, "", metricsFileFlagDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	options, optionsError := builder.parseOptions(command, arguments)
	if optionsError != nil {
		return optionsError
	}

	logger := builder.resolveLogger()
	executionContext := command.Context()

	sourceBuilder := factory.NewBuilder(factory.Dependencies{
		TokenResolver: builder.TokenResolver,
		HTTPClient:    builder.HTTPClient,
		PathExpander:  builder.PathExpander,
		FileOpener:    builder.FileOpener,
		Logger:        logger,
	})
	configuredSources, buildError := sourceBuilder.Build(executionContext, options.definitions, options.selectedNames)
	if buildError != nil {
		return buildError
	}

	sourceNames := make([]string, 0, len(configuredSources))
	for _, configuredSource := range configuredSources {
		sourceNames = append(sourceNames, configuredSource.Name())
	}
	runMetadata, _ := utils.NewCommandContextAccessor().RunMetadata(executionContext)
	logger.Debug(sourcesBuiltMessageConstant,
		zap.Strings(sourceNamesFieldNameConstant, sourceNames),
		zap.String(configurationFileFieldNameConstant, runMetadata.ConfigurationFilePath),
		zap.Bool(environmentFileLoadedFieldNameConstant, runMetadata.EnvironmentFileLoaded),
	)

	serviceDependencies := search.ServiceDependencies{
		Sources: configuredSources,
		Logger:  logger,
		Clock:   builder.Clock,
	}
	var recorder *metrics.Recorder
	if len(options.metricsFile) > 0 {
		recorder = metrics.NewRecorder()
		serviceDependencies.Observer = recorder
	}

	service, serviceError := search.NewService(serviceDependencies, search.Options{
		Timeout:     options.timeout,
		Concurrency: options.concurrency,
	})
	if serviceError != nil {
		return serviceError
	}

	searchReport := service.Search(executionContext, options.query)

	if renderError := report.Render(command.OutOrStdout(), options.format, searchReport); renderError != nil {
		return fmt.Errorf(renderErrorTemplateConstant, renderError)
	}

	if recorder != nil {
		recorder.MarkCompleted(builder.now())
		if writeError := recorder.WriteTextfile(options.metricsFile); writeError != nil {
			return fmt.Errorf(metricsErrorTemplateConstant, writeError)
		}
		logger.Debug(metricsWrittenMessageConstant, zap.String(metricsFileFieldNameConstant, options.metricsFile))
	}

	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command, arguments []string) (commandOptions, error) {
	configuration := builder.resolveConfiguration()

	formatValue := configuration.Format
	if command.Flags().Changed(formatFlagNameConstant) {
		formatFlagValue, formatFlagError := command.Flags().GetString(formatFlagNameConstant)
		if formatFlagError != nil {
			return commandOptions{}, formatFlagError
		}
		formatValue = formatFlagValue
	}
	format, formatError := report.ParseFormat(formatValue)
	if formatError != nil {
		return commandOptions{}, formatError
	}

	selectedNames, sourceFlagError := command.Flags().GetStringArray(sourceFlagNameConstant)
	if sourceFlagError != nil {
		return commandOptions{}, sourceFlagError
	}

	timeoutValue := configuration.Timeout
	if command.Flags().Changed(timeoutFlagNameConstant) {
		timeoutFlagValue, timeoutFlagError := command.Flags().GetDuration(timeoutFlagNameConstant)
		if timeoutFlagError != nil {
			return commandOptions{}, timeoutFlagError
		}
		timeoutValue = timeoutFlagValue
	}

	concurrencyValue := configuration.Concurrency
	if command.Flags().Changed(concurrencyFlagNameConstant) {
		concurrencyFlagValue, concurrencyFlagError := command.Flags().GetInt(concurrencyFlagNameConstant)
		if concurrencyFlagError != nil {
			return commandOptions{}, concurrencyFlagError
		}
		concurrencyValue = concurrencyFlagValue
	}

	metricsFileValue := configuration.MetricsFile
	if command.Flags().Changed(metricsFileFlagNameConstant) {
		metricsFileFlagValue, metricsFileFlagError := command.Flags().GetString(metricsFileFlagNameConstant)
		if metricsFileFlagError != nil {
			return commandOptions{}, metricsFileFlagError
		}
		metricsFileValue = strings.TrimSpace(metricsFileFlagValue)
	}

	query := ""
	if len(arguments) > 0 {
		query = arguments[0]
	}

	return commandOptions{
		query:         query,
		format:        format,
		selectedNames: selectedNames,
		timeout:       timeoutValue,
		concurrency:   concurrencyValue,
		metricsFile:   builder.resolvePathExpander().Expand(metricsFileValue),
		definitions:   configuration.Sources,
	}, nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	configuration := DefaultCommandConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}
	return configuration.sanitize()
}

func (builder *CommandBuilder) resolvePathExpander() *pathutils.PathExpander {
	if builder.PathExpander != nil {
		return builder.PathExpander
	}
	return pathutils.NewPathExpander()
}

func (builder *CommandBuilder) now() time.Time {
	if builder.Clock != nil {
		return builder.Clock()
	}
	return time.Now()
}
