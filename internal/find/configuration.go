package find

import (
	"strings"
	"time"

	"github.com/temirov/offboard/internal/report"
	"github.com/temirov/offboard/internal/search"
	"github.com/temirov/offboard/internal/sources/factory"
)

const (
	formatConfigurationKeyConstant      = "format"
	timeoutConfigurationKeyConstant     = "timeout"
	concurrencyConfigurationKeyConstant = "concurrency"
	metricsFileConfigurationKeyConstant = "metrics_file"
	configurationKeySeparatorConstant   = "."
)

// CommandConfiguration captures configuration values for the find command.
type CommandConfiguration struct {
	Format      string               `mapstructure:"format"`
	Timeout     time.Duration        `mapstructure:"timeout"`
	Concurrency int                  `mapstructure:"concurrency"`
	MetricsFile string               `mapstructure:"metrics_file"`
	Sources     []factory.Definition `mapstructure:"sources"`
}

// DefaultCommandConfiguration provides baseline values for the find command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Format:      string(report.FormatText),
		Timeout:     search.DefaultTimeout,
		Concurrency: search.DefaultConcurrency,
		MetricsFile: "",
		Sources:     nil,
	}
}

// DefaultConfigurationValues exposes the defaults keyed under rootKey for the configuration loader.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	prefix := strings.TrimSuffix(strings.TrimSpace(rootKey), configurationKeySeparatorConstant)
	if len(prefix) > 0 {
		prefix += configurationKeySeparatorConstant
	}
	return map[string]any{
		prefix + formatConfigurationKeyConstant:      defaults.Format,
		prefix + timeoutConfigurationKeyConstant:     defaults.Timeout.String(),
		prefix + concurrencyConfigurationKeyConstant: defaults.Concurrency,
		prefix + metricsFileConfigurationKeyConstant: defaults.MetricsFile,
	}
}

// sanitize trims configuration values and restores defaults for unusable ones.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	sanitized := configuration
	defaults := DefaultCommandConfiguration()

	sanitized.Format = strings.TrimSpace(configuration.Format)
	if len(sanitized.Format) == 0 {
		sanitized.Format = defaults.Format
	}
	if sanitized.Timeout <= 0 {
		sanitized.Timeout = defaults.Timeout
	}
	if sanitized.Concurrency <= 0 {
		sanitized.Concurrency = defaults.Concurrency
	}
	sanitized.MetricsFile = strings.TrimSpace(configuration.MetricsFile)
	sanitized.Sources = append([]factory.Definition(nil), configuration.Sources...)

	return sanitized
}
