package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stretchr/testify/assert"
)

func TestTaxonomy(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name   string
		err    error
		match  func(error) bool
		status int
	}{
		{"validation", Validation("content is empty"), IsValidation, http.StatusBadRequest},
		{"not found", NotFound("note not found", goerr.V("id", 7)), IsNotFound, http.StatusNotFound},
		{"dependency", Dependency(cause, "embedding failed"), IsDependency, http.StatusBadGateway},
		{"dependency without cause", Dependency(nil, "no embedder"), IsDependency, http.StatusBadGateway},
		{"schema", Schema(cause, "corrupt vector"), IsSchema, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.match(tt.err))
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, tt.match(wrapped), "match must survive fmt wrapping")
		})
	}
}

func TestDependencyKeepsCause(t *testing.T) {
	cause := errors.New("timeout")
	err := Dependency(cause, "summarize failed")
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrDependency)
	assert.False(t, IsValidation(err))
}

func TestHTTPStatus_plainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
}
