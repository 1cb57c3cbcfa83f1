package snapshot

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/temirov/offboard/internal/identity"
	"github.com/temirov/offboard/internal/sources"
)

const (
	defaultDelimiterConstant              = ','
	defaultCommentCharacterConstant       = '#'
	nameRequiredMessageConstant           = "snapshot source name must be provided"
	pathRequiredMessageConstant           = "snapshot file path must be provided"
	fieldCountTemplateConstant            = "expected %d fields, found %d"
	emptyIdentifierTemplateConstant       = "column %q is empty"
	missingHeaderColumnTemplateConstant   = "header is missing expected column %q"
	duplicateHeaderColumnTemplateConstant = "header declares column %q more than once"
	emptyFileMessageConstant              = "file contains no header row"
	invalidDelimiterTemplateConstant      = "delimiter %q must be a single character"
	reservedDelimiterTemplateConstant     = "delimiter %q is reserved"
	sourceFieldTemplateConstant           = "sources[%s]"
)

// FileOpener opens a snapshot file for reading.
type FileOpener func(path string) (io.ReadCloser, error)

// Configuration describes one snapshot export.
type Configuration struct {
	Name      string
	Path      string
	Layout    Layout
	Delimiter string
	HasHeader bool
	Opener    FileOpener
}

// Source serves identities parsed from an exported file.
type Source struct {
	name      string
	path      string
	layout    resolvedLayout
	delimiter rune
	hasHeader bool
	opener    FileOpener
}

// New validates the configuration and builds a snapshot source.
func New(configuration Configuration) (*Source, error) {
	trimmedName := strings.TrimSpace(configuration.Name)
	if len(trimmedName) == 0 {
		return nil, sources.NewConfigurationError("", nameRequiredMessageConstant)
	}
	fieldName := fmt.Sprintf(sourceFieldTemplateConstant, trimmedName)

	trimmedPath := strings.TrimSpace(configuration.Path)
	if len(trimmedPath) == 0 {
		return nil, sources.NewConfigurationError(fieldName, pathRequiredMessageConstant)
	}

	layout, layoutError := configuration.Layout.resolve()
	if layoutError != nil {
		return nil, sources.NewConfigurationError(fieldName, layoutError.Error())
	}

	delimiter, delimiterError := parseDelimiter(configuration.Delimiter)
	if delimiterError != nil {
		return nil, sources.NewConfigurationError(fieldName, delimiterError.Error())
	}

	opener := configuration.Opener
	if opener == nil {
		opener = func(path string) (io.ReadCloser, error) {
			return os.Open(path)
		}
	}

	return &Source{
		name:      trimmedName,
		path:      trimmedPath,
		layout:    layout,
		delimiter: delimiter,
		hasHeader: configuration.HasHeader,
		opener:    opener,
	}, nil
}

// Name returns the configured source name.
func (source *Source) Name() string {
	return source.name
}

// Capability reports the snapshot capability.
func (source *Source) Capability() sources.Capability {
	return sources.CapabilitySnapshot
}

// Path returns the file the source reads.
func (source *Source) Path() string {
	return source.path
}

// ListIdentities parses every row of the export. The query is ignored because
// the file has no server-side filtering.
func (source *Source) ListIdentities(executionContext context.Context, query string) ([]identity.Identity, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return nil, sources.NewUnavailableError(source.name, contextError)
	}

	fileReader, openError := source.opener(source.path)
	if openError != nil {
		return nil, sources.NewUnavailableError(source.name, openError)
	}
	defer fileReader.Close()

	csvReader := csv.NewReader(newCommentSkippingReader(fileReader))
	csvReader.Comma = source.delimiter
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true
	csvReader.LazyQuotes = true
	csvReader.ReuseRecord = false

	columnPositions := source.layout.configuredPositions()
	if source.hasHeader {
		headerPositions, headerError := source.readHeaderPositions(csvReader)
		if headerError != nil {
			return nil, headerError
		}
		columnPositions = headerPositions
	}

	identities := make([]identity.Identity, 0)
	for {
		if contextError := executionContext.Err(); contextError != nil {
			return nil, sources.NewUnavailableError(source.name, contextError)
		}

		record, readError := csvReader.Read()
		if errors.Is(readError, io.EOF) {
			break
		}
		if readError != nil {
			return nil, source.translateReadError(readError)
		}

		lineNumber, _ := csvReader.FieldPos(0)
		identityRecord, recordError := source.parseRecord(record, columnPositions, lineNumber)
		if recordError != nil {
			return nil, recordError
		}
		identities = append(identities, identityRecord)
	}

	return identities, nil
}

// Describe returns every non-identifier column captured for the identity.
func (source *Source) Describe(identityRecord identity.Identity) identity.Properties {
	return identityRecord.Properties.Clone()
}

// readHeaderPositions maps every configured column to its position in the
// header row. The header must name each configured column exactly once.
func (source *Source) readHeaderPositions(csvReader *csv.Reader) ([]int, error) {
	headerRecord, readError := csvReader.Read()
	if errors.Is(readError, io.EOF) {
		return nil, sources.NewFormatError(source.name, 0, errors.New(emptyFileMessageConstant))
	}
	if readError != nil {
		return nil, source.translateReadError(readError)
	}

	headerLine, _ := csvReader.FieldPos(0)
	headerIndexes := make(map[string]int, len(headerRecord))
	for headerIndex, headerCell := range headerRecord {
		headerName := normalizeColumnName(headerCell)
		if _, duplicate := headerIndexes[headerName]; duplicate {
			return nil, sources.NewFormatError(source.name, headerLine, fmt.Errorf(duplicateHeaderColumnTemplateConstant, headerName))
		}
		headerIndexes[headerName] = headerIndex
	}

	positions := make([]int, 0, len(source.layout.columns))
	for _, expectedColumn := range source.layout.columns {
		headerIndex, present := headerIndexes[expectedColumn]
		if !present {
			return nil, sources.NewFormatError(source.name, headerLine, fmt.Errorf(missingHeaderColumnTemplateConstant, expectedColumn))
		}
		positions = append(positions, headerIndex)
	}
	if len(headerRecord) != len(source.layout.columns) {
		return nil, sources.NewFormatError(source.name, headerLine, fmt.Errorf(fieldCountTemplateConstant, len(source.layout.columns), len(headerRecord)))
	}

	return positions, nil
}

// parseRecord reads configured column i from record[columnPositions[i]].
func (source *Source) parseRecord(record []string, columnPositions []int, lineNumber int) (identity.Identity, error) {
	if len(record) != len(source.layout.columns) {
		return identity.Identity{}, sources.NewFormatError(source.name, lineNumber, fmt.Errorf(fieldCountTemplateConstant, len(source.layout.columns), len(record)))
	}

	identifierValue := strings.TrimSpace(record[columnPositions[source.layout.identifierIndex]])
	if len(identifierValue) == 0 {
		return identity.Identity{}, sources.NewFormatError(source.name, lineNumber, fmt.Errorf(emptyIdentifierTemplateConstant, source.layout.columns[source.layout.identifierIndex]))
	}

	secondaryValues := make([]string, 0, len(source.layout.secondaryIndexes))
	for _, secondaryIndex := range source.layout.secondaryIndexes {
		secondaryValues = append(secondaryValues, record[columnPositions[secondaryIndex]])
	}

	identityRecord := identity.New(identifierValue, secondaryValues...)
	for columnIndex, columnName := range source.layout.columns {
		if columnIndex == source.layout.identifierIndex {
			continue
		}
		identityRecord = identityRecord.WithProperty(columnName, record[columnPositions[columnIndex]])
	}

	return identityRecord, nil
}

func (source *Source) translateReadError(readError error) error {
	var parseError *csv.ParseError
	if errors.As(readError, &parseError) {
		return sources.NewFormatError(source.name, parseError.Line, parseError.Err)
	}
	return sources.NewUnavailableError(source.name, readError)
}

func parseDelimiter(delimiterValue string) (rune, error) {
	switch delimiterValue {
	case "":
		return defaultDelimiterConstant, nil
	case `\t`, "tab":
		return '\t', nil
	}
	if utf8.RuneCountInString(delimiterValue) != 1 {
		return 0, fmt.Errorf(invalidDelimiterTemplateConstant, delimiterValue)
	}
	delimiter, _ := utf8.DecodeRuneInString(delimiterValue)
	switch delimiter {
	case '"', '\r', '\n', defaultCommentCharacterConstant, utf8.RuneError:
		return 0, fmt.Errorf(reservedDelimiterTemplateConstant, delimiterValue)
	}
	return delimiter, nil
}
