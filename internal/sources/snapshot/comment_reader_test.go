package snapshot

import (
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"
)

func TestCommentSkippingReaderBlanksCommentLines(testInstance *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "leading_comment", input: "# header\nrow,1\n", expected: "\nrow,1\n"},
		{name: "indented_comment", input: "  \t# header\r\nrow,1\n", expected: "\nrow,1\n"},
		{name: "comment_without_line_feed", input: "row,1\n  # end", expected: "row,1\n"},
		{name: "hash_inside_row", input: "row,#1\n", expected: "row,#1\n"},
		{name: "empty", input: "", expected: ""},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			filtered, readError := io.ReadAll(iotest.OneByteReader(newCommentSkippingReader(strings.NewReader(testCase.input))))
			require.NoError(subTest, readError)
			require.Equal(subTest, testCase.expected, string(filtered))
		})
	}
}
