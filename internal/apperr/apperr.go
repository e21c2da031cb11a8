// Package apperr carries HTTP-aware application errors.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")
)

// AppError is an error with the status code and message a handler should
// answer with. Details is optional free text returned next to the message.
type AppError struct {
	Code    int
	Message string
	Details string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func BadRequest(message string) *AppError {
	return New(http.StatusBadRequest, message, ErrInvalidInput)
}

func NotFound(message string) *AppError {
	return New(http.StatusNotFound, message, ErrNotFound)
}

func Unauthorized() *AppError {
	return New(http.StatusUnauthorized, "Unauthorized", ErrUnauthorized)
}

// Internal wraps err as a 500 whose details carry err's text.
func Internal(message string, err error) *AppError {
	e := New(http.StatusInternalServerError, message, err)
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

// MapError maps any error to an AppError. Existing AppErrors in the chain
// are returned as is; sentinel errors get their status code.
func MapError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return New(http.StatusBadRequest, "Invalid request", err)
	case errors.Is(err, ErrNotFound):
		return New(http.StatusNotFound, "Resource not found", err)
	case errors.Is(err, ErrUnauthorized):
		return New(http.StatusUnauthorized, "Unauthorized", err)
	}
	return New(http.StatusInternalServerError, "Internal server error", err)
}
