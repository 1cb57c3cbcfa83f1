package factory

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/temirov/offboard/internal/sources"
)

const (
	optionsTagNameConstant              = "mapstructure"
	listSeparatorConstant               = ","
	optionsFieldTemplateConstant        = "sources[%s].with"
	optionsDecodeErrorTemplateConstant  = "invalid options: %v"
	optionsDecoderErrorTemplateConstant = "unable to prepare options decoder: %v"
)

// Kind identifies an adapter implementation.
type Kind string

// Supported source kinds.
const (
	KindGrafana  Kind = Kind("grafana")
	KindSentry   Kind = Kind("sentry")
	KindNewRelic Kind = Kind("newrelic")
	KindSnapshot Kind = Kind("snapshot")
)

// Kinds lists the supported source kinds.
func Kinds() []string {
	return []string{string(KindGrafana), string(KindSentry), string(KindNewRelic), string(KindSnapshot)}
}

// Definition is one configured account source.
type Definition struct {
	Name    string         `mapstructure:"name" yaml:"name" json:"name"`
	Kind    Kind           `mapstructure:"kind" yaml:"kind" json:"kind"`
	Options map[string]any `mapstructure:"with" yaml:"with" json:"with"`
}

type grafanaOptions struct {
	BaseURL  string `mapstructure:"base_url"`
	Token    string `mapstructure:"token"`
	PageSize int    `mapstructure:"page_size"`
}

type sentryOptions struct {
	BaseURL      string `mapstructure:"base_url"`
	Organization string `mapstructure:"organization"`
	Token        string `mapstructure:"token"`
}

type newRelicOptions struct {
	Endpoint string `mapstructure:"endpoint"`
	Token    string `mapstructure:"token"`
}

type snapshotOptions struct {
	Path       string   `mapstructure:"path"`
	Preset     string   `mapstructure:"preset"`
	Columns    []string `mapstructure:"columns"`
	Identifier string   `mapstructure:"identifier"`
	Secondary  []string `mapstructure:"secondary"`
	Delimiter  string   `mapstructure:"delimiter"`
	Header     bool     `mapstructure:"header"`
}

// decodeOptions decodes the free-form "with" block into a typed option
// struct. Unknown keys are rejected.
func decodeOptions(sourceName string, rawOptions map[string]any, target any) error {
	fieldName := fmt.Sprintf(optionsFieldTemplateConstant, sourceName)

	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToSliceHookFunc(listSeparatorConstant),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		TagName:          optionsTagNameConstant,
		Result:           target,
	})
	if decoderError != nil {
		return sources.NewConfigurationError(fieldName, fmt.Sprintf(optionsDecoderErrorTemplateConstant, decoderError))
	}

	if decodeError := decoder.Decode(normalizeOptionKeys(rawOptions)); decodeError != nil {
		return sources.NewConfigurationError(fieldName, fmt.Sprintf(optionsDecodeErrorTemplateConstant, decodeError))
	}
	return nil
}

func normalizeOptionKeys(rawOptions map[string]any) map[string]any {
	normalized := make(map[string]any, len(rawOptions))
	for optionKey, optionValue := range rawOptions {
		normalized[strings.ToLower(strings.TrimSpace(optionKey))] = optionValue
	}
	return normalized
}
