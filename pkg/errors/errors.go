package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound          = "NOT_FOUND"
	CodeBadRequest        = "BAD_REQUEST"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeConflict          = "CONFLICT"
	CodeInternal          = "INTERNAL_ERROR"
	CodeTooManyRequests   = "TOO_MANY_REQUESTS"
	CodeCapacityExceeded  = "CAPACITY_EXCEEDED"
	CodeAlreadyMember     = "ALREADY_MEMBER"
	CodeNotMember         = "NOT_MEMBER"
	CodeNotAuthorized     = "NOT_AUTHORIZED"
	CodeInvalidInviteCode = "INVALID_INVITE_CODE"
	CodeBanned            = "BANNED"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code string, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    CodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

func Unauthorized(message string, err error) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

func Forbidden(message string, err error) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
		Status:  http.StatusForbidden,
		Err:     err,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
		Status:  http.StatusConflict,
	}
}

// Internal wraps a backend failure. The cause is kept for logging and
// errors.Unwrap but never rendered to clients.
func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func TooManyRequests(message string) *AppError {
	return &AppError{
		Code:    CodeTooManyRequests,
		Message: message,
		Status:  http.StatusTooManyRequests,
	}
}

// Domain validation failures raised by the group and DM layers.

func CapacityExceeded(groupID string) *AppError {
	return &AppError{
		Code:    CodeCapacityExceeded,
		Message: fmt.Sprintf("group %s is full", groupID),
		Status:  http.StatusConflict,
	}
}

func AlreadyMember(groupID string) *AppError {
	return &AppError{
		Code:    CodeAlreadyMember,
		Message: fmt.Sprintf("already a member of group %s", groupID),
		Status:  http.StatusConflict,
	}
}

func NotMember(groupID string) *AppError {
	return &AppError{
		Code:    CodeNotMember,
		Message: fmt.Sprintf("not a member of group %s", groupID),
		Status:  http.StatusConflict,
	}
}

func NotAuthorized(message string) *AppError {
	return &AppError{
		Code:    CodeNotAuthorized,
		Message: message,
		Status:  http.StatusForbidden,
	}
}

func InvalidInviteCode(code string) *AppError {
	return &AppError{
		Code:    CodeInvalidInviteCode,
		Message: fmt.Sprintf("invalid invite code %q", code),
		Status:  http.StatusNotFound,
	}
}

func Banned(groupID string) *AppError {
	return &AppError{
		Code:    CodeBanned,
		Message: fmt.Sprintf("banned from group %s", groupID),
		Status:  http.StatusForbidden,
	}
}

func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Wrap returns err unchanged when it already is an AppError, otherwise it
// wraps it as an internal failure.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return Internal(message, err)
}

// CodeOf returns the AppError code carried by err, INTERNAL_ERROR for any
// other error, and "" for nil.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}
