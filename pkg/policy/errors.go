package policy

import "errors"

// ErrMalformedInput matches every *MalformedInputError via errors.Is.
var ErrMalformedInput = errors.New("malformed policy input")

const (
	reasonInvalidJSON     = "invalid JSON"
	reasonMissingDocument = "PolicyDocument field is required in the format."
)

// MalformedInputError is returned when the input is not JSON or does not
// look like a role policy at all.
type MalformedInputError struct {
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedInput
}
