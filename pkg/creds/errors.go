package creds

import (
	"errors"
	"fmt"
)

// ErrEncoding is matched by every EncodingError.
var ErrEncoding = errors.New("control block encoding error")

// EncodingError reports a control block field outside its encodable range.
type EncodingError struct {
	// Field is the name of the offending field.
	Field string

	// Value is the rejected value.
	Value int64

	// Max is the largest value the field can hold.
	Max int64
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("control block field %s=%d out of range [0, %d]", e.Field, e.Value, e.Max)
}

// Is makes errors.Is(err, ErrEncoding) succeed.
func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}
