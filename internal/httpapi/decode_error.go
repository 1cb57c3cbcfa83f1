package httpapi

import "fmt"

const decodeErrorTemplateConstant = "unable to decode response from %s: %v"

// DecodeError reports a 2xx response whose body could not be decoded.
type DecodeError struct {
	URL   string
	Cause error
}

// Error describes the decoding failure.
func (decodeError *DecodeError) Error() string {
	return fmt.Sprintf(decodeErrorTemplateConstant, decodeError.URL, decodeError.Cause)
}

// Unwrap exposes the underlying cause.
func (decodeError *DecodeError) Unwrap() error {
	return decodeError.Cause
}
