// Package logging builds the zap logger and logs bus events.
package logging

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	eventbus "github.com/linkgraph/linkgraph/internal/eventbus"
	events "github.com/linkgraph/linkgraph/internal/events"
	executor "github.com/linkgraph/linkgraph/internal/executor"
	reqid "github.com/linkgraph/linkgraph/internal/reqid"
)

// New returns a logger writing to stderr. format is "console" or "json".
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "log level %q", level)
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	switch format {
	case "json":
		enc = zapcore.NewJSONEncoder(cfg)
	case "console", "":
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(cfg)
	default:
		return nil, errors.Errorf("unknown log format %q", format)
	}
	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), lvl)
	return zap.New(core, zap.AddCaller()), nil
}

// Subscribe logs queries, failed executions, panics and HTTP accesses
// published on the global bus. The returned func removes the handlers.
func Subscribe(logger *zap.Logger) (unsubscribe func()) {
	l := &subscriber{logger: logger}
	return l.register()
}

type subscriber struct {
	logger *zap.Logger
}

func (s *subscriber) register() func() {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLStart) {
			s.with(ctx).Info("handling query",
				zap.String("query", e.Query),
				zap.String("operation", e.OperationName))
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
			if len(e.Errors) == 0 {
				return
			}
			l := s.with(ctx)
			l.Error("could not execute query",
				zap.String("query", e.Query),
				zap.Int("errors", len(e.Errors)))
			for _, err := range e.Errors {
				var gqlErr executor.GraphQLError
				if !errors.As(err, &gqlErr) || gqlErr.Type != executor.ErrorDataFetching || gqlErr.Cause == nil {
					continue
				}
				l.Error("field resolution failed",
					zap.String("message", gqlErr.Message),
					zap.Stringer("path", gqlErr.Path),
					zap.String("stack", fmt.Sprintf("%+v", gqlErr.Cause)))
			}
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLPanic) {
			s.with(ctx).Error("panic while executing query",
				zap.String("query", e.Query),
				zap.Any("panic", e.Value),
				zap.ByteString("stack", e.Stack))
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			s.with(ctx).Debug("http request",
				zap.String("method", e.Request.Method),
				zap.String("path", e.Request.URL.Path),
				zap.Int("status", e.Status),
				zap.Duration("duration", e.Duration))
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (s *subscriber) with(ctx context.Context) *zap.Logger {
	if id, ok := reqid.FromContext(ctx); ok {
		return s.logger.With(zap.Int64("request_id", id))
	}
	return s.logger
}
