package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error wins", New(ErrInvalidInput, http.StatusUnprocessableEntity, "bad offset"), http.StatusUnprocessableEntity},
		{"wrapped criterion", fmt.Errorf("building criteria: %w", ErrUnknownCriterion), http.StatusBadRequest},
		{"invalid query", ErrInvalidQuery, http.StatusBadRequest},
		{"not found", ErrDocumentNotFound, http.StatusNotFound},
		{"shard", fmt.Errorf("shard 3: %w", ErrShardUnavailable), http.StatusServiceUnavailable},
		{"timeout", ErrTimeout, http.StatusGatewayTimeout},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	err := Newf(ErrInvalidInput, http.StatusBadRequest, "limit %d out of range", -1)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "invalid input: limit -1 out of range", err.Error())
}
