package access

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// CodeSource yields the stored shared access code.
type CodeSource interface {
	AccessCode(ctx context.Context) (string, error)
}

// Gate checks caller-supplied codes against the single shared secret.
type Gate struct {
	source CodeSource
	logger *zap.Logger
}

// NewGate wires a gate over the given code source.
func NewGate(source CodeSource, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{source: source, logger: logger}
}

// Verify reports whether code matches the stored access code once both are
// trimmed of surrounding whitespace. Lookup failures and an empty stored code
// never match.
func (g *Gate) Verify(ctx context.Context, code string) bool {
	stored, err := g.source.AccessCode(ctx)
	if err != nil {
		g.logger.Error("access code lookup failed", zap.Error(err))
		return false
	}

	stored = strings.TrimSpace(stored)
	if stored == "" {
		g.logger.Warn("stored access code is empty")
		return false
	}

	return strings.TrimSpace(code) == stored
}
