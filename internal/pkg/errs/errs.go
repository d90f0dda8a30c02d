/*
Package errs defines the error type every protocol and HTTP failure is reported with.

A CustomError carries a stable numeric code, the text shown to the client (it is also
the error string of a failed acknowledgement) and the HTTP status used when the error
ends an HTTP request.
*/
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"roomchat/internal/pkg/logx"
)

type CustomError struct {
	Code    int
	Message string
	Status  int
}

func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// NewError returns a fresh copy of the error registered for code. details fill the
// message template's verbs; for ErrUnknown an error in details[0] is logged instead.
// Unregistered codes yield ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	tmpl, ok := errorMap[code]
	if !ok {
		logx.Error(
			fmt.Errorf("code %d is not registered", code),
			"Unknown error code requested",
			"requested_code", code,
		)
		tmpl = errorMap[ErrUnknown]
		return &tmpl
	}

	customErr := tmpl
	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	switch {
	case len(details) == 0:
	case code == ErrUnknown:
		if cause, ok := details[0].(error); ok {
			logx.Error(cause, "Handling ErrUnknown with underlying error")
		}
	case strings.Contains(customErr.Message, "%"):
		customErr.Message = fmt.Sprintf(customErr.Message, details...)
	default:
		logx.Warn("Error details ignored: message has no format verbs.", "code", code)
	}

	return &customErr
}

// IsValidation reports whether err is a join validation failure
// (empty fields or a username collision).
func IsValidation(err error) bool {
	return HasCode(err, ErrUserFieldsRequired) || HasCode(err, ErrUsernameTaken)
}

// HasCode reports whether err is a non-nil *CustomError with the given code.
func HasCode(err error, code int) bool {
	var customErr *CustomError
	if !errors.As(err, &customErr) || customErr == nil {
		return false
	}
	return customErr.Code == code
}
