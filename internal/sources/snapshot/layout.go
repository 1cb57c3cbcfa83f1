package snapshot

import (
	"errors"
	"fmt"
	"strings"
)

const (
	columnsRequiredMessageConstant         = "at least one column must be configured"
	blankColumnMessageConstant             = "column names must be non-empty"
	duplicateColumnTemplateConstant        = "column %q is declared more than once"
	identifierColumnMissingMessageConstant = "identifier column must be configured"
	unknownColumnTemplateConstant          = "column %q is not part of the configured columns"
	unknownPresetTemplateConstant          = "unknown snapshot preset %q"
)

// Preset names a column layout of a known export.
type Preset string

// Known export presets.
const (
	PresetSolarWinds     Preset = Preset("solarwinds")
	PresetDeadMansSnitch Preset = Preset("deadmanssnitch")
)

// Layout describes the fixed column set of an export and which columns identify an account.
type Layout struct {
	Columns          []string
	IdentifierColumn string
	SecondaryColumns []string
}

var presetLayouts = map[Preset]Layout{
	PresetSolarWinds: {
		Columns:          []string{"org", "account", "name", "role", "last_logged_in"},
		IdentifierColumn: "account",
		SecondaryColumns: []string{"name"},
	},
	PresetDeadMansSnitch: {
		Columns:          []string{"case", "name", "account"},
		IdentifierColumn: "account",
		SecondaryColumns: []string{"name"},
	},
}

// PresetLayout returns the layout registered for the preset name.
func PresetLayout(presetName string) (Layout, error) {
	layout, found := presetLayouts[Preset(strings.ToLower(strings.TrimSpace(presetName)))]
	if !found {
		return Layout{}, fmt.Errorf(unknownPresetTemplateConstant, presetName)
	}
	return Layout{
		Columns:          append([]string{}, layout.Columns...),
		IdentifierColumn: layout.IdentifierColumn,
		SecondaryColumns: append([]string{}, layout.SecondaryColumns...),
	}, nil
}

// PresetNames lists the registered preset names.
func PresetNames() []string {
	return []string{string(PresetSolarWinds), string(PresetDeadMansSnitch)}
}

type resolvedLayout struct {
	columns          []string
	identifierIndex  int
	secondaryIndexes []int
}

func (layout Layout) resolve() (resolvedLayout, error) {
	if len(layout.Columns) == 0 {
		return resolvedLayout{}, errors.New(columnsRequiredMessageConstant)
	}

	columnIndexes := make(map[string]int, len(layout.Columns))
	normalizedColumns := make([]string, 0, len(layout.Columns))
	for columnIndex, columnName := range layout.Columns {
		normalizedName := normalizeColumnName(columnName)
		if len(normalizedName) == 0 {
			return resolvedLayout{}, errors.New(blankColumnMessageConstant)
		}
		if _, exists := columnIndexes[normalizedName]; exists {
			return resolvedLayout{}, fmt.Errorf(duplicateColumnTemplateConstant, normalizedName)
		}
		columnIndexes[normalizedName] = columnIndex
		normalizedColumns = append(normalizedColumns, normalizedName)
	}

	identifierName := normalizeColumnName(layout.IdentifierColumn)
	if len(identifierName) == 0 {
		return resolvedLayout{}, errors.New(identifierColumnMissingMessageConstant)
	}
	identifierIndex, identifierFound := columnIndexes[identifierName]
	if !identifierFound {
		return resolvedLayout{}, fmt.Errorf(unknownColumnTemplateConstant, identifierName)
	}

	secondaryIndexes := make([]int, 0, len(layout.SecondaryColumns))
	for _, secondaryColumn := range layout.SecondaryColumns {
		secondaryName := normalizeColumnName(secondaryColumn)
		secondaryIndex, secondaryFound := columnIndexes[secondaryName]
		if !secondaryFound {
			return resolvedLayout{}, fmt.Errorf(unknownColumnTemplateConstant, secondaryName)
		}
		secondaryIndexes = append(secondaryIndexes, secondaryIndex)
	}

	return resolvedLayout{
		columns:          normalizedColumns,
		identifierIndex:  identifierIndex,
		secondaryIndexes: secondaryIndexes,
	}, nil
}

// configuredPositions reads the columns in their configured order.
func (layout resolvedLayout) configuredPositions() []int {
	positions := make([]int, len(layout.columns))
	for columnIndex := range positions {
		positions[columnIndex] = columnIndex
	}
	return positions
}

func normalizeColumnName(columnName string) string {
	return strings.ToLower(strings.TrimSpace(columnName))
}
