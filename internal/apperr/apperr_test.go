package apperr

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", NewValidation("phone", "is required"), KindValidation},
		{"wrapped validation", fmt.Errorf("place: %w", &ValidationError{MissingPizzaIDs: []int64{1}}), KindValidation},
		{"not found", &NotFoundError{Entity: "order", ID: 3}, KindNotFound},
		{"storage", &StorageError{Op: "insert", Err: sql.ErrConnDone}, KindStorage},
		{"notification", &NotificationError{Channel: "telegram", Err: errors.New("boom")}, KindNotification},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"canceled", context.Canceled, KindCanceled},
		{"plain", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(NewValidation("items", "required")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(&NotFoundError{Entity: "order", ID: 1}))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(&StorageError{Op: "x", Err: errors.New("y")}))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
	assert.Equal(t, http.StatusGatewayTimeout, HTTPStatus(context.DeadlineExceeded))
}

func TestStorageKeepsClassifiedErrors(t *testing.T) {
	nf := &NotFoundError{Entity: "pizza", ID: 9}
	assert.Same(t, nf, Storage("get pizza", nf))
	assert.Nil(t, Storage("noop", nil))

	err := Storage("insert order", sql.ErrTxDone)
	var se *StorageError
	assert.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, sql.ErrTxDone)
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{MissingPizzaIDs: []int64{3, 7}}
	assert.Equal(t, "pizzas not found: 3, 7", err.Error())

	err = &ValidationError{Fields: []FieldError{{Field: "phone", Message: "is required"}, {Field: "address", Message: "is required"}}}
	assert.Equal(t, "validation failed: phone: is required; address: is required", err.Error())
}

func TestHelpers(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("wrap: %w", &NotFoundError{Entity: "order", ID: 1})))
	assert.False(t, IsNotFound(errors.New("x")))

	ve, ok := AsValidation(fmt.Errorf("wrap: %w", NewValidation("a", "b")))
	assert.True(t, ok)
	assert.Equal(t, "a", ve.Fields[0].Field)
}
