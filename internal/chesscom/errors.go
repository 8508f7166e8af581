package chesscom

import (
	"errors"
	"fmt"
)

// ErrDataUnavailable matches every DataUnavailableError.
var ErrDataUnavailable = errors.New("data unavailable")

// DataUnavailableError is returned when a refresh succeeded but did not
// produce a value for the requested field.
type DataUnavailableError struct {
	Entity string
	Field  string
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("%s: %s unavailable", e.Entity, e.Field)
}

func (e *DataUnavailableError) Is(target error) bool {
	return target == ErrDataUnavailable
}
