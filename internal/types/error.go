package types

import "fmt"

// CustomError carries an HTTP status code and a response type label through
// the Fiber error handler.
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

// NewForbiddenError builds the 403 error used by the auth middleware.
func NewForbiddenError(message, errorType string) *CustomError {
	return &CustomError{
		Code:    403,
		Message: message,
		Type:    errorType,
	}
}
