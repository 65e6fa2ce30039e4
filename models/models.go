package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is wrapped by every input validation failure.
var ErrValidation = errors.New("validation failed")

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("record not found")
