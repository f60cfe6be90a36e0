// Package action provides the screenshot handlers the event loop dispatches
// to. A handler receives the absolute path of one new file and reports
// success or failure; the loop logs failures and moves on.
//
// Available handlers: [Log], [Move], [Exec] and [Upload]. [Chain] runs
// several in order.
package action

import (
	"context"
	"fmt"
	"log/slog"
)

// ///////////////////////////////////////////////
// Handler
// ///////////////////////////////////////////////

// Handler reacts to one new screenshot.
type Handler interface {
	Handle(ctx context.Context, path string) error
}

// HandlerFunc adapts an ordinary function to [Handler].
type HandlerFunc func(ctx context.Context, path string) error

// Handle calls f(ctx, path).
func (f HandlerFunc) Handle(ctx context.Context, path string) error {
	return f(ctx, path)
}

// Chain runs handlers in order and stops at the first error. Handlers later
// in the chain see the path returned by [Relocated] if an earlier handler
// moved the file.
type Chain []Handler

// Handle implements [Handler].
func (c Chain) Handle(ctx context.Context, path string) error {
	for i, h := range c {
		var moved string
		ctx = withRelocation(ctx, &moved)
		if err := h.Handle(ctx, path); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		if moved != "" {
			path = moved
		}
	}
	return nil
}

// ///////////////////////////////////////////////
// Dispatch Context
// ///////////////////////////////////////////////

type ctxKey int

const (
	dispatchIDKey ctxKey = iota
	loggerKey
	relocationKey
)

// WithDispatch returns a context carrying the dispatch id and a logger
// already tagged with it.
func WithDispatch(ctx context.Context, id string, logger *slog.Logger) context.Context {
	ctx = context.WithValue(ctx, dispatchIDKey, id)
	return context.WithValue(ctx, loggerKey, logger.With("dispatch_id", id))
}

// DispatchID returns the id set by [WithDispatch], or "".
func DispatchID(ctx context.Context) string {
	id, _ := ctx.Value(dispatchIDKey).(string)
	return id
}

// Logger returns the logger set by [WithDispatch], or [slog.Default].
func Logger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

func withRelocation(ctx context.Context, dst *string) context.Context {
	return context.WithValue(ctx, relocationKey, dst)
}

// Relocated tells an enclosing [Chain] that the file now lives at path.
// Outside a chain it does nothing.
func Relocated(ctx context.Context, path string) {
	if dst, ok := ctx.Value(relocationKey).(*string); ok && dst != nil {
		*dst = path
	}
}
