package logger

import (
	"github.com/golang/glog"
)

// GlogLogger implements the Logger interface on top of glog with a configurable call depth,
// so the reported file:line is the caller of the package level helpers.
type GlogLogger struct {
	depth int
}

// Debugf logs at glog verbosity 1.
func (logger *GlogLogger) Debugf(msg string, args ...any) {
	if glog.V(1) {
		glog.InfoDepthf(logger.depth, msg, args...)
	}
}

func (logger *GlogLogger) Infof(msg string, args ...any) {
	glog.InfoDepthf(logger.depth, msg, args...)
}

func (logger *GlogLogger) Warnf(msg string, args ...any) {
	glog.WarningDepthf(logger.depth, msg, args...)
}

func (logger *GlogLogger) Errorf(msg string, args ...any) {
	glog.ErrorDepthf(logger.depth, msg, args...)
}

// Fatalf logs and then exits the application.
func (logger *GlogLogger) Fatalf(msg string, args ...any) {
	glog.FatalDepthf(logger.depth, msg, args...)
}

func NewGlogLogger() Logger {
	return &GlogLogger{
		depth: 2,
	}
}
