package query

import (
	"errors"
	"fmt"
)

// MissingParameterError is returned when a request carries no usable search
// parameter. Param names the single required parameter for endpoints that
// only accept one; it is empty when any search parameter would do.
type MissingParameterError struct {
	Param string
}

func (e *MissingParameterError) Error() string {
	if e.Param != "" {
		return "Missing query param: " + e.Param
	}
	return "At least one search parameter is required"
}

// ValidationError reports a parameter outside the allowed length bounds.
type ValidationError struct {
	Param   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Param + " " + e.Message
}

// InvalidLimitError reports a limit that is not a positive integer under the
// reject policy.
type InvalidLimitError struct {
	Value string
}

func (e *InvalidLimitError) Error() string {
	return "Invalid limit parameter: must be a positive number"
}

// UnknownFieldError reports a field-specific query on a field that has no
// configured weight.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("Unknown search field: %s", e.Field)
}

// IsClientError reports whether err (or anything it wraps) was caused by the
// caller's input rather than by the service.
func IsClientError(err error) bool {
	var (
		missing *MissingParameterError
		invalid *ValidationError
		limit   *InvalidLimitError
		unknown *UnknownFieldError
	)
	return errors.As(err, &missing) ||
		errors.As(err, &invalid) ||
		errors.As(err, &limit) ||
		errors.As(err, &unknown)
}
