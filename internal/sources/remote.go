package sources

import (
	"errors"

	"github.com/temirov/offboard/internal/httpapi"
)

// NewRemoteError wraps a failed API exchange for the named source. Responses
// that arrived but could not be decoded become format errors; transport,
// authentication, and status failures become unavailability.
func NewRemoteError(sourceName string, requestError error) error {
	var decodeError *httpapi.DecodeError
	if errors.As(requestError, &decodeError) {
		return NewFormatError(sourceName, 0, requestError)
	}
	return NewUnavailableError(sourceName, requestError)
}
