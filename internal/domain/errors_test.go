package domain

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"format", fmt.Errorf("%w: short buffer", ErrFormat), "format"},
		{"configuration", fmt.Errorf("%w: bad grid", ErrConfiguration), "configuration"},
		{"io wrapping os error", fmt.Errorf("%w: open x: %w", ErrIO, os.ErrNotExist), "io"},
		{"boundary", fmt.Errorf("load: %w", ErrBoundary), "boundary"},
		{"other", errors.New("boom"), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}
