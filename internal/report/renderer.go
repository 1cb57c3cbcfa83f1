package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/temirov/offboard/internal/search"
)

const (
	textHeaderTemplateConstant           = "Offboarding %s\n\n"
	textSourceTemplateConstant           = "%s [%s] checked=%t: %s\n"
	textMatchTemplateConstant            = "  - %s\n"
	textPropertyTemplateConstant         = "      %s: %s\n"
	textNoMatchConstant                  = "no match"
	textErrorTemplateConstant            = "error: %s: %s"
	textMatchCountSingularConstant       = "1 match"
	textMatchCountPluralTemplateConstant = "%d matches"
	jsonIndentConstant                   = "  "
	yamlIndentConstant                   = 2
	renderErrorTemplateConstant          = "unable to render %s report: %w"
	csvSourceColumnConstant              = "source"
	csvCapabilityColumnConstant          = "capability"
	csvOutcomeColumnConstant             = "outcome"
	csvIdentifierColumnConstant          = "identifier"
	csvPropertiesColumnConstant          = "properties"
	csvErrorKindColumnConstant           = "error_kind"
	csvErrorMessageColumnConstant        = "error_message"
)

type renderFunction func(writer io.Writer, searchReport search.Report) error

var renderers = map[Format]renderFunction{
	FormatText: renderText,
	FormatJSON: renderJSON,
	FormatYAML: renderYAML,
	FormatCSV:  renderCSV,
}

// Render writes searchReport to writer in the requested format.
func Render(writer io.Writer, format Format, searchReport search.Report) error {
	renderer, supported := renderers[format]
	if !supported {
		_, parseError := ParseFormat(string(format))
		return parseError
	}
	if renderError := renderer(writer, searchReport); renderError != nil {
		return fmt.Errorf(renderErrorTemplateConstant, format, renderError)
	}
	return nil
}

func renderText(writer io.Writer, searchReport search.Report) error {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf(textHeaderTemplateConstant, searchReport.Query))

	for _, result := range searchReport.Results {
		builder.WriteString(fmt.Sprintf(textSourceTemplateConstant, result.SourceName, result.Capability, result.Checked, summarize(result)))
		for _, match := range result.Matches {
			builder.WriteString(fmt.Sprintf(textMatchTemplateConstant, match.Identifier))
			for _, property := range match.Properties {
				builder.WriteString(fmt.Sprintf(textPropertyTemplateConstant, property.Name, property.Value))
			}
		}
	}

	_, writeError := io.WriteString(writer, builder.String())
	return writeError
}

func summarize(result search.Result) string {
	switch result.Outcome {
	case search.OutcomeError:
		return fmt.Sprintf(textErrorTemplateConstant, result.ErrorKind, result.ErrorMessage)
	case search.OutcomeMatched:
		if len(result.Matches) == 1 {
			return textMatchCountSingularConstant
		}
		return fmt.Sprintf(textMatchCountPluralTemplateConstant, len(result.Matches))
	default:
		return textNoMatchConstant
	}
}

func renderJSON(writer io.Writer, searchReport search.Report) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", jsonIndentConstant)
	return encoder.Encode(searchReport)
}

func renderYAML(writer io.Writer, searchReport search.Report) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(yamlIndentConstant)
	if encodeError := encoder.Encode(searchReport); encodeError != nil {
		return encodeError
	}
	return encoder.Close()
}

// renderCSV writes one row per match, or a single row for a source without
// matches. Properties are flattened into one "name: value, ..." cell.
func renderCSV(writer io.Writer, searchReport search.Report) error {
	csvWriter := csv.NewWriter(writer)
	rows := [][]string{{
		csvSourceColumnConstant,
		csvCapabilityColumnConstant,
		csvOutcomeColumnConstant,
		csvIdentifierColumnConstant,
		csvPropertiesColumnConstant,
		csvErrorKindColumnConstant,
		csvErrorMessageColumnConstant,
	}}

	for _, result := range searchReport.Results {
		if len(result.Matches) == 0 {
			rows = append(rows, []string{
				result.SourceName,
				string(result.Capability),
				string(result.Outcome),
				"",
				"",
				string(result.ErrorKind),
				result.ErrorMessage,
			})
			continue
		}
		for _, match := range result.Matches {
			rows = append(rows, []string{
				result.SourceName,
				string(result.Capability),
				string(result.Outcome),
				match.Identifier,
				match.Properties.String(),
				"",
				"",
			})
		}
	}

	if writeError := csvWriter.WriteAll(rows); writeError != nil {
		return writeError
	}
	return csvWriter.Error()
}
