package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"wrapped invalid input", fmt.Errorf("%w: page must be >= 1", ErrInvalidInput), ErrInvalidInput},
		{"wrapped not found", fmt.Errorf("product %w", ErrNotFound), ErrNotFound},
		{"forbidden", ErrForbidden, ErrForbidden},
		{"unauthenticated", fmt.Errorf("missing token: %w", ErrUnauthenticated), ErrUnauthenticated},
		{"conflict", fmt.Errorf("%w: insufficient stock", ErrConflict), ErrConflict},
		{"driver error", errors.New("connection reset by peer"), ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}
