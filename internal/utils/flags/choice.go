// Package flags formats and validates enumerated command-line flag values.
package flags

import (
	"fmt"
	"strings"
)

const (
	choicePlaceholderPrefixConstant   = "<"
	choicePlaceholderSuffixConstant   = ">"
	choiceSeparatorConstant           = "|"
	choiceListSeparatorConstant       = ", "
	choiceUsageEmptyTemplateConstant  = "`%s`"
	choiceUsageFullTemplateConstant   = "`%s` %s"
	unsupportedChoiceTemplateConstant = "unsupported %s %q (expected one of %s)"
)

// ChoiceSet is an ordered, case-insensitive set of accepted flag values with a default.
type ChoiceSet struct {
	subject       string
	defaultChoice string
	choices       []string
}

// NewChoiceSet builds a choice set. Blank and repeated choices are dropped; subject
// names the value in error messages.
func NewChoiceSet(subject string, defaultChoice string, choices []string) ChoiceSet {
	normalizedChoices := make([]string, 0, len(choices))
	seenChoices := make(map[string]struct{}, len(choices))
	for _, choice := range choices {
		normalizedChoice := normalizeChoice(choice)
		if len(normalizedChoice) == 0 {
			continue
		}
		if _, seen := seenChoices[normalizedChoice]; seen {
			continue
		}
		seenChoices[normalizedChoice] = struct{}{}
		normalizedChoices = append(normalizedChoices, normalizedChoice)
	}

	return ChoiceSet{
		subject:       strings.TrimSpace(subject),
		defaultChoice: normalizeChoice(defaultChoice),
		choices:       normalizedChoices,
	}
}

// Usage renders the choices as a placeholder with the default upper-cased, followed by description.
func (choiceSet ChoiceSet) Usage(description string) string {
	displayedChoices := make([]string, 0, len(choiceSet.choices))
	for _, choice := range choiceSet.choices {
		if choice == choiceSet.defaultChoice {
			displayedChoices = append(displayedChoices, strings.ToUpper(choice))
			continue
		}
		displayedChoices = append(displayedChoices, choice)
	}
	placeholder := choicePlaceholderPrefixConstant + strings.Join(displayedChoices, choiceSeparatorConstant) + choicePlaceholderSuffixConstant

	trimmedDescription := strings.TrimSpace(description)
	if len(trimmedDescription) == 0 {
		return fmt.Sprintf(choiceUsageEmptyTemplateConstant, placeholder)
	}
	return fmt.Sprintf(choiceUsageFullTemplateConstant, placeholder, trimmedDescription)
}

// Resolve normalizes value to one of the choices. An empty value resolves to the default.
func (choiceSet ChoiceSet) Resolve(value string) (string, error) {
	normalizedValue := normalizeChoice(value)
	if len(normalizedValue) == 0 {
		normalizedValue = choiceSet.defaultChoice
	}
	for _, choice := range choiceSet.choices {
		if choice == normalizedValue {
			return choice, nil
		}
	}
	return "", fmt.Errorf(unsupportedChoiceTemplateConstant, choiceSet.subject, strings.TrimSpace(value), strings.Join(choiceSet.choices, choiceListSeparatorConstant))
}

func normalizeChoice(choice string) string {
	return strings.ToLower(strings.TrimSpace(choice))
}
