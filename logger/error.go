package logger

import (
	"context"
	"log/slog"
)

// AnnotateError attaches slog attributes to err. Loggers built by
// ConfigureLogging add the attributes to any record that logs err, also
// when err is wrapped or part of an aggregate. Returns nil for a nil err.
//
//	if err := tx.Commit(); err != nil {
//	    return logger.AnnotateError(err, "scope_id", id, "step", "commit")
//	}
func AnnotateError(err error, args ...any) error {
	if err == nil {
		return nil
	}

	return &annotatedError{err: err, attrs: argsToAttrs(args)}
}

func argsToAttrs(args []any) []slog.Attr {
	var attrs []slog.Attr

	for len(args) > 0 {
		switch key := args[0].(type) {
		case slog.Attr:
			attrs = append(attrs, key)
			args = args[1:]
		case string:
			if len(args) == 1 {
				attrs = append(attrs, slog.Any("!BADKEY", key))
				args = nil

				continue
			}

			attrs = append(attrs, slog.Any(key, args[1]))
			args = args[2:]
		default:
			attrs = append(attrs, slog.Any("!BADKEY", key))
			args = args[1:]
		}
	}

	return attrs
}

type annotatedError struct {
	err   error
	attrs []slog.Attr
}

func (e *annotatedError) Error() string { return e.err.Error() }

func (e *annotatedError) Unwrap() error { return e.err }

// errorAttrs collects the annotations found anywhere in the tree of err.
func errorAttrs(err error) []slog.Attr {
	var attrs []slog.Attr

	var walk func(error)

	walk = func(err error) {
		if err == nil {
			return
		}

		if annotated, ok := err.(*annotatedError); ok { //nolint:errorlint
			attrs = append(attrs, annotated.attrs...)
		}

		switch wrapped := err.(type) { //nolint:errorlint
		case interface{ Unwrap() error }:
			walk(wrapped.Unwrap())
		case interface{ Unwrap() []error }:
			for _, inner := range wrapped.Unwrap() {
				walk(inner)
			}
		}
	}

	walk(err)

	return attrs
}

// annotationHandler lifts the annotations of logged errors into the record.
type annotationHandler struct {
	inner slog.Handler
}

// NewAnnotationHandler wraps inner so that records logging an annotated
// error also carry its attributes. ConfigureLogging installs it already.
func NewAnnotationHandler(inner slog.Handler) slog.Handler {
	if h, ok := inner.(*annotationHandler); ok {
		return h
	}

	return &annotationHandler{inner: inner}
}

var _ slog.Handler = (*annotationHandler)(nil)

func (h *annotationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *annotationHandler) Handle(ctx context.Context, record slog.Record) error {
	var extra []slog.Attr

	record.Attrs(func(attr slog.Attr) bool {
		if err, ok := attr.Value.Any().(error); ok {
			extra = append(extra, errorAttrs(err)...)
		}

		return true
	})

	if len(extra) == 0 {
		return h.inner.Handle(ctx, record)
	}

	record = record.Clone()
	record.AddAttrs(extra...)

	return h.inner.Handle(ctx, record)
}

func (h *annotationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &annotationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *annotationHandler) WithGroup(name string) slog.Handler {
	return &annotationHandler{inner: h.inner.WithGroup(name)}
}
