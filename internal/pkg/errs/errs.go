/*
Package errs provides custom error types and application-level error code constants.

This file defines the CustomError struct, which implements the standard Go error interface
and carries a business code, a user-facing message and an HTTP status code.
*/
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"santorini/internal/pkg/logx"
)

// CustomError is the custom error structure used throughout the application.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int `json:"code"`

	// Message is the user-facing error description.
	Message string `json:"message"`

	// Status is the HTTP status code used when the error is returned over HTTP.
	Status int `json:"-"`
}

// Error implements the standard Go error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// NewError constructs a *CustomError from a predefined error code.
// details are printf arguments for message templates containing verbs.
// Unknown codes fall back to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &unknownErr
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else {
			logx.Warn("Details provided for error without formatting placeholders. Details ignored.", "code", code)
		}
	}

	return &customErr
}

// From converts any error into a *CustomError, mapping foreign errors to ErrUnknown.
func From(err error) *CustomError {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr
	}

	logx.Error(err, "Handling unclassified error as ErrUnknown")
	return NewError(ErrUnknown)
}
