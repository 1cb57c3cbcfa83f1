package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/offboard/internal/credentials"
	"github.com/temirov/offboard/internal/find"
	"github.com/temirov/offboard/internal/utils"
	"github.com/temirov/offboard/internal/utils/flags"
)

const (
	applicationNameConstant                 = "offboard"
	applicationShortDescriptionConstant     = "Find the accounts a departing user holds across services"
	applicationLongDescriptionConstant      = "offboard checks the configured live services and exported snapshots for accounts that belong to a departing user and reports, per source, whether an account was found."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Path to the offboard configuration file listing account sources."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Diagnostic log level written to standard error."
	logLevelSubjectConstant                 = "log level"
	logFormatSubjectConstant                = "log format"
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Diagnostic log encoding written to standard error."
	environmentFileFlagNameConstant         = "env-file"
	environmentFileFlagUsageConstant        = "Dotenv file exported into the environment before configuration is read."
	defaultEnvironmentFilePathConstant      = ".env"
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	findConfigurationKeyConstant            = "find"
	environmentPrefixConstant               = "OFFBOARD"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	environmentFileFieldConstant            = "env_file"
	environmentFileLoadedFieldConstant      = "env_file_loaded"
	configurationLoadErrorTemplateConstant  = "unable to load offboard configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to build diagnostic logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush diagnostic logger: %w"
	commandBuildErrorTemplateConstant       = "unable to build offboard commands: %w"
)

var (
	logLevelChoices = flags.NewChoiceSet(logLevelSubjectConstant, string(utils.LogLevelInfo), []string{
		string(utils.LogLevelDebug),
		string(utils.LogLevelInfo),
		string(utils.LogLevelWarn),
		string(utils.LogLevelError),
	})
	logFormatChoices = flags.NewChoiceSet(logFormatSubjectConstant, string(utils.LogFormatConsole), []string{
		string(utils.LogFormatStructured),
		string(utils.LogFormatConsole),
	})
)

// ApplicationConfiguration is the decoded offboard configuration file.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Find   find.CommandConfiguration      `mapstructure:"find"`
}

// ApplicationCommonConfiguration holds the diagnostic logging settings.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Application owns the offboard root command and the state shared by its subcommands.
type Application struct {
	rootCommand              *cobra.Command
	configurationLoader      *utils.ConfigurationLoader
	loggerFactory            *utils.LoggerFactory
	logger                   *zap.Logger
	configuration            ApplicationConfiguration
	configurationMetadata    utils.LoadedConfiguration
	configurationFilePath    string
	logLevelFlagValue        string
	logFormatFlagValue       string
	environmentFileFlagValue string
	commandContextAccessor   utils.CommandContextAccessor
	findCommandBuilder       *find.CommandBuilder
	commandBuildError        error
}

type subcommandBuilder interface {
	Build() (*cobra.Command, error)
}

// NewApplication builds the offboard command tree.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		utils.DefaultSearchPaths(applicationNameConstant),
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelChoices.Usage(logLevelFlagUsageConstant))
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatChoices.Usage(logFormatFlagUsageConstant))
	cobraCommand.PersistentFlags().StringVar(&application.environmentFileFlagValue, environmentFileFlagNameConstant, defaultEnvironmentFilePathConstant, environmentFileFlagUsageConstant)

	application.findCommandBuilder = &find.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		ConfigurationProvider: func() find.CommandConfiguration {
			return application.configuration.Find
		},
	}
	application.registerSubcommand(cobraCommand, application.findCommandBuilder)

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the command tree and flushes the diagnostic logger.
func (application *Application) Execute() error {
	if application.commandBuildError != nil {
		return fmt.Errorf(commandBuildErrorTemplateConstant, application.commandBuildError)
	}
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute runs offboard with the process arguments.
func Execute() error {
	return NewApplication().Execute()
}

// registerSubcommand attaches the built command to parent. Build failures are
// kept and returned by Execute.
func (application *Application) registerSubcommand(parent *cobra.Command, builder subcommandBuilder) {
	command, buildError := builder.Build()
	if buildError != nil {
		application.commandBuildError = errors.Join(application.commandBuildError, buildError)
		return
	}
	parent.AddCommand(command)
}

func (application *Application) setArguments(arguments []string) {
	application.rootCommand.SetArgs(arguments)
}

func (application *Application) setOutput(outputWriter io.Writer) {
	application.rootCommand.SetOut(outputWriter)
	application.rootCommand.SetErr(outputWriter)
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	environmentFilePath := strings.TrimSpace(application.environmentFileFlagValue)
	environmentFileRequired := application.persistentFlagChanged(command, environmentFileFlagNameConstant)
	environmentFileLoaded, environmentFileError := credentials.LoadEnvironmentFile(environmentFilePath, environmentFileRequired)
	if environmentFileError != nil {
		return environmentFileError
	}

	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatConsole),
	}
	for configurationKey, configurationValue := range find.DefaultConfigurationValues(findConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	logLevel, logLevelError := logLevelChoices.Resolve(application.configuration.Common.LogLevel)
	if logLevelError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, logLevelError)
	}
	logFormat, logFormatError := logFormatChoices.Resolve(application.configuration.Common.LogFormat)
	if logFormatError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, logFormatError)
	}

	logger, loggerCreationError := application.loggerFactory.CreateLogger(utils.LogLevel(logLevel), utils.LogFormat(logFormat))
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
		zap.String(environmentFileFieldConstant, environmentFilePath),
		zap.Bool(environmentFileLoadedFieldConstant, environmentFileLoaded),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithRunMetadata(command.Context(), utils.RunMetadata{
			ConfigurationFilePath: application.configurationMetadata.ConfigFileUsed,
			EnvironmentFilePath:   environmentFilePath,
			EnvironmentFileLoaded: environmentFileLoaded,
		})
		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

func (application *Application) flushLogger() error {
	if syncError := application.syncLoggerInstance(application.logger); syncError != nil {
		return syncError
	}
	return nil
}

func (application *Application) syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
