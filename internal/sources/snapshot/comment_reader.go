package snapshot

import (
	"bufio"
	"bytes"
	"io"
)

const lineFeedCharacterConstant = '\n'

// commentSkippingReader blanks every line whose first non-blank character is
// the comment marker. The line feed is kept so parse errors still report the
// physical line of the export.
type commentSkippingReader struct {
	lineReader *bufio.Reader
	pending    []byte
	finalError error
}

func newCommentSkippingReader(reader io.Reader) *commentSkippingReader {
	return &commentSkippingReader{lineReader: bufio.NewReader(reader)}
}

func (reader *commentSkippingReader) Read(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	for len(reader.pending) == 0 {
		if reader.finalError != nil {
			return 0, reader.finalError
		}
		line, readError := reader.lineReader.ReadBytes(lineFeedCharacterConstant)
		if readError != nil {
			reader.finalError = readError
		}
		if isCommentLine(line) {
			line = nil
			if readError == nil {
				line = []byte{lineFeedCharacterConstant}
			}
		}
		reader.pending = line
	}

	copiedCount := copy(buffer, reader.pending)
	reader.pending = reader.pending[copiedCount:]
	return copiedCount, nil
}

func isCommentLine(line []byte) bool {
	trimmedLine := bytes.TrimSpace(line)
	return len(trimmedLine) > 0 && trimmedLine[0] == defaultCommentCharacterConstant
}
