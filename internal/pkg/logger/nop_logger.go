package logger

import "go.uber.org/zap"

// NewNopLogger returns a logger that discards everything. Handy in tests and
// for optional dependencies.
func NewNopLogger() *ZapLogger {
	return &ZapLogger{logger: zap.NewNop()}
}
