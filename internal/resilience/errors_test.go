package resilience

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("invalid coordinates"), false},
		{"explicit", NewTransientError(errors.New("busy"), 503), true},
		{"wrapped", eris.Wrap(NewTransientError(errors.New("busy"), 503), "geocode: reverse"), true},
		{"net timeout", fmt.Errorf("get: %w", timeoutErr{}), true},
		{"reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"message", errors.New("read tcp: i/o timeout"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestFromStatus(t *testing.T) {
	base := errors.New("status")
	assert.True(t, IsTransient(FromStatus(base, 429)))
	assert.True(t, IsTransient(FromStatus(base, 504)))
	assert.False(t, IsTransient(FromStatus(base, 400)))
	assert.Same(t, base, FromStatus(base, 404))
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	te := NewTransientError(inner, 502)
	assert.ErrorIs(t, te, inner)
	assert.Equal(t, "inner", te.Error())
	assert.Equal(t, 502, te.StatusCode)
}
