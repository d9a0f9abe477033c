package whatsapp

import (
	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"
)

// zapLogger adapts a zap logger to the protocol library's logger interface.
type zapLogger struct {
	logger *zap.SugaredLogger
}

// NewLogger returns a waLog.Logger writing to logger.
func NewLogger(logger *zap.Logger) waLog.Logger {
	return &zapLogger{logger: logger.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l *zapLogger) Debugf(msg string, args ...any) { l.logger.Debugf(msg, args...) }
func (l *zapLogger) Infof(msg string, args ...any)  { l.logger.Infof(msg, args...) }
func (l *zapLogger) Warnf(msg string, args ...any)  { l.logger.Warnf(msg, args...) }
func (l *zapLogger) Errorf(msg string, args ...any) { l.logger.Errorf(msg, args...) }

func (l *zapLogger) Sub(module string) waLog.Logger {
	return &zapLogger{logger: l.logger.Named(module)}
}
