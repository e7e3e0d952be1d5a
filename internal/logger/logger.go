package logger

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type contextKey struct{}

var defaultLogger = logrus.New()
var defaultEntry = logrus.NewEntry(defaultLogger)

// Configure sets the level and output format ("text" or "json") of the process logger.
func Configure(level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	defaultLogger.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "json":
		defaultLogger.SetFormatter(&logrus.JSONFormatter{})
	default:
		defaultLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// SetLoggerOptions applies optionsFunc to the process logger.
func SetLoggerOptions(optionsFunc func(logger *logrus.Logger)) {
	optionsFunc(defaultLogger)
}

func NewContextWithFields(parent context.Context, fields logrus.Fields) context.Context {
	return context.WithValue(parent, contextKey{}, For(parent).WithFields(fields))
}

// For returns the entry stored in ctx, or the process logger.
func For(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return defaultEntry
	}

	// If ctx is a *gin.Context, get the underlying request context
	if gc, ok := ctx.(*gin.Context); ok {
		if gc.Request == nil {
			return defaultEntry
		}
		ctx = gc.Request.Context()
	}

	if entry, ok := ctx.Value(contextKey{}).(*logrus.Entry); ok {
		return entry.WithContext(ctx)
	}
	return defaultEntry.WithContext(ctx)
}
