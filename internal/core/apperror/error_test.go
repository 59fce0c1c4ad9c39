package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewInternal(cause)

	assert.Contains(t, err.Error(), CodeInternal)
	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, cause)
}

func TestIsCode_ThroughWrapping(t *testing.T) {
	err := NewInsufficientStock("p1", "5", "3")
	wrapped := fmt.Errorf("apply movements: %w", err)

	assert.True(t, IsCode(wrapped, CodeInsufficientStock))
	assert.False(t, IsCode(wrapped, CodeNotFound))
	assert.False(t, IsCode(errors.New("plain"), CodeInsufficientStock))
}

func TestGetHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, GetHTTPStatus(NewValidation("bad")))
	assert.Equal(t, http.StatusNotFound, GetHTTPStatus(NewNotFound("purchase", "x")))
	assert.Equal(t, http.StatusUnprocessableEntity, GetHTTPStatus(NewInsufficientStockToRevert("p1", "4", "2")))
	assert.Equal(t, http.StatusConflict, GetHTTPStatus(NewConcurrencyConflict(errors.New("40001"))))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("plain")))
}

func TestWithDetail(t *testing.T) {
	err := NewValidation("invalid quantity").WithDetail("field", "quantity")
	assert.Equal(t, "quantity", err.Details["field"])
}
