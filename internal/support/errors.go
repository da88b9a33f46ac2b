package support

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for callers. The HTTP layer maps codes to status codes.
type Code string

const (
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeNotFound             Code = "NOT_FOUND"
	CodeConversationNotFound Code = "CONVERSATION_NOT_FOUND"
	CodeBadRequest           Code = "BAD_REQUEST"
)

// Error is a coded, user-facing domain error.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func Unauthorized(msg string) error         { return &Error{Code: CodeUnauthorized, Message: msg} }
func NotFound(msg string) error             { return &Error{Code: CodeNotFound, Message: msg} }
func ConversationNotFound(msg string) error { return &Error{Code: CodeConversationNotFound, Message: msg} }
func BadRequest(msg string) error           { return &Error{Code: CodeBadRequest, Message: msg} }

// AsError unwraps err into a domain error, if it is one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HasCode reports whether err is a domain error with the given code.
func HasCode(err error, code Code) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}
