package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error kinds
const (
	KindValidation   = "validation"
	KindNotFound     = "not_found"
	KindStorage      = "storage"
	KindNotification = "notification"
	KindTimeout      = "timeout"
	KindCanceled     = "canceled"
	KindInternal     = "internal"
)

// FieldError names one offending request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError rejects a request before anything is written.
type ValidationError struct {
	Fields          []FieldError
	MissingPizzaIDs []int64
}

func (e *ValidationError) Error() string {
	if len(e.MissingPizzaIDs) > 0 {
		ids := make([]string, len(e.MissingPizzaIDs))
		for i, id := range e.MissingPizzaIDs {
			ids[i] = fmt.Sprint(id)
		}
		return "pizzas not found: " + strings.Join(ids, ", ")
	}

	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Kind() string { return KindValidation }

// NewValidation builds a single-field validation error.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// NotFoundError is returned when an order or pizza id does not exist.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %d", e.Entity, e.ID)
}

func (e *NotFoundError) Kind() string { return KindNotFound }

// StorageError wraps a persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Kind() string { return KindStorage }

// Storage wraps err unless it is nil or already classified.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var k kinder
	if errors.As(err, &k) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// NotificationError is a failed operator notification. It is logged, never returned to callers.
type NotificationError struct {
	Channel string
	Err     error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification via %s failed: %v", e.Channel, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

func (e *NotificationError) Kind() string { return KindNotification }

// kinder is satisfied by the error types above.
type kinder interface {
	Kind() string
}

// Kind classifies err.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	var k kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	default:
		return KindInternal
	}
}

var kindToStatus = map[string]int{
	KindValidation: http.StatusBadRequest,
	KindNotFound:   http.StatusNotFound,
	KindTimeout:    http.StatusGatewayTimeout,
	KindCanceled:   http.StatusRequestTimeout,
}

// HTTPStatus maps err to a response status code.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if s, ok := kindToStatus[Kind(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// AsValidation unwraps a ValidationError.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}
