package auth

import "go.uber.org/zap"

type zapLogger struct {
	s *zap.SugaredLogger
}

var _ Logger = (*zapLogger)(nil)

// NewZapLogger adapts a zap logger to the Logger interface used across
// this package.
func NewZapLogger(l *zap.Logger) Logger {
	return &zapLogger{s: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (z *zapLogger) Debug(format string, args ...any) {
	z.s.Debugf(format, args...)
}

func (z *zapLogger) Info(format string, args ...any) {
	z.s.Infof(format, args...)
}

func (z *zapLogger) Warn(format string, args ...any) {
	z.s.Warnf(format, args...)
}

func (z *zapLogger) Error(format string, args ...any) {
	z.s.Errorf(format, args...)
}
