package util

import (
	"cloud.google.com/go/logging"
	"context"
	"fmt"
	"github.com/ajjensen13/gke"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	valuesKey
)

// WithLoggerValue returns a copy of ctx whose log entries carry key=val in
// addition to any values already attached. ctx itself is not modified.
func WithLoggerValue(ctx context.Context, key string, val interface{}) context.Context {
	prev := LoggerValues(ctx)
	next := make(map[string]interface{}, len(prev)+1)
	for k, v := range prev {
		next[k] = v
	}
	next[key] = val
	return context.WithValue(ctx, valuesKey, next)
}

func WithLogger(ctx context.Context, lg gke.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, lg)
}

func LoggerValues(ctx context.Context) map[string]interface{} {
	vs, _ := ctx.Value(valuesKey).(map[string]interface{})
	return vs
}

type payload struct {
	Message string
	Values  map[string]interface{}
}

func (p payload) String() string {
	return p.Message
}

// Logf writes to the logger stored in ctx. It does nothing when ctx carries no logger.
func Logf(ctx context.Context, severity logging.Severity, format string, argv ...interface{}) {
	lg, ok := ctx.Value(loggerKey).(gke.Logger)
	if !ok {
		return
	}

	entry := logging.Entry{
		Severity: severity,
		Payload:  payload{Message: fmt.Sprintf(format, argv...), Values: LoggerValues(ctx)},
	}
	gke.SetupSourceLocation(&entry, 1)
	lg.Log(entry)
}
