package report

import (
	"fmt"
	"strings"
)

const unsupportedFormatTemplateConstant = "unsupported output format %q (expected one of %s)"

// Format selects an output encoding.
type Format string

// Supported output formats.
const (
	FormatText Format = Format("text")
	FormatJSON Format = Format("json")
	FormatYAML Format = Format("yaml")
	FormatCSV  Format = Format("csv")
)

// FormatNames lists the supported formats, default first.
func FormatNames() []string {
	return []string{string(FormatText), string(FormatJSON), string(FormatYAML), string(FormatCSV)}
}

// ParseFormat resolves a case-insensitive format name. An empty value selects text.
func ParseFormat(formatValue string) (Format, error) {
	normalizedFormat := Format(strings.ToLower(strings.TrimSpace(formatValue)))
	if len(normalizedFormat) == 0 {
		return FormatText, nil
	}
	for _, formatName := range FormatNames() {
		if Format(formatName) == normalizedFormat {
			return normalizedFormat, nil
		}
	}
	return "", fmt.Errorf(unsupportedFormatTemplateConstant, formatValue, strings.Join(FormatNames(), ", "))
}
