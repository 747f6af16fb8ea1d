package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type staticSource struct {
	code string
	err  error
}

func (s staticSource) AccessCode(context.Context) (string, error) {
	return s.code, s.err
}

func TestVerify(t *testing.T) {
	gate := NewGate(staticSource{code: "1234"}, nil)
	ctx := context.Background()

	assert.True(t, gate.Verify(ctx, "1234"))
	assert.True(t, gate.Verify(ctx, " 1234 "))
	assert.True(t, gate.Verify(ctx, "1234\n"))
	assert.False(t, gate.Verify(ctx, "12345"))
	assert.False(t, gate.Verify(ctx, "123"))
	assert.False(t, gate.Verify(ctx, ""))
}

func TestVerifyTrimsStoredCode(t *testing.T) {
	gate := NewGate(staticSource{code: "  abcd "}, nil)
	assert.True(t, gate.Verify(context.Background(), "abcd"))
}

func TestVerifyFailsClosed(t *testing.T) {
	ctx := context.Background()

	assert.False(t, NewGate(staticSource{err: errors.New("timeout")}, nil).Verify(ctx, "1234"))
	assert.False(t, NewGate(staticSource{code: "   "}, nil).Verify(ctx, ""))
	assert.False(t, NewGate(staticSource{code: ""}, nil).Verify(ctx, ""))
}
