// Package middleware provides request-scoped logging, tracing, metrics and rate limiting.
package middleware

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logger is the global structured logger instance used throughout the application.
var Logger = NewLogger(os.Stdout, os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))

// RequestFields identify the request a log record was written for.
type RequestFields struct {
	RequestID string
	UserID    string
	TraceID   string
}

type requestFieldsKey struct{}

// WithRequestFields returns a copy of ctx carrying f.
func WithRequestFields(ctx context.Context, f RequestFields) context.Context {
	return context.WithValue(ctx, requestFieldsKey{}, f)
}

// RequestFieldsFrom returns the fields stored by WithRequestFields.
func RequestFieldsFrom(ctx context.Context) (RequestFields, bool) {
	f, ok := ctx.Value(requestFieldsKey{}).(RequestFields)
	return f, ok
}

// requestHandler appends the request fields found in the record's context.
type requestHandler struct {
	slog.Handler
}

func (h requestHandler) Handle(ctx context.Context, r slog.Record) error {
	if f, ok := RequestFieldsFrom(ctx); ok {
		if f.RequestID != "" {
			r.AddAttrs(slog.String("request_id", f.RequestID))
		}
		if f.UserID != "" {
			r.AddAttrs(slog.String("user_id", f.UserID))
		}
		if f.TraceID != "" {
			r.AddAttrs(slog.String("trace_id", f.TraceID))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h requestHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return requestHandler{h.Handler.WithAttrs(attrs)}
}

func (h requestHandler) WithGroup(name string) slog.Handler {
	return requestHandler{h.Handler.WithGroup(name)}
}

// NewLogger writes JSON in production and text elsewhere. level accepts the
// slog level names; anything unparseable means info.
func NewLogger(w io.Writer, env, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(env) {
	case "production", "prod":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(requestHandler{handler})
}

// ContextMiddleware copies the request ID, user ID and trace ID from Fiber
// locals into the request context so services log them.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var f RequestFields
		f.RequestID, _ = c.Locals("requestid").(string)
		f.UserID, _ = c.Locals("userID").(string)
		f.TraceID, _ = c.Locals("traceID").(string)

		c.SetUserContext(WithRequestFields(c.UserContext(), f))
		return c.Next()
	}
}

// StructuredLogger logs one record per request. Health probes log at debug.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		attrs := []slog.Attr{
			slog.Int("status", status),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes", len(c.Response().Body())),
			slog.String("user_agent", c.Get(fiber.HeaderUserAgent)),
		}

		level := slog.LevelInfo
		msg := "request processed"
		switch {
		case err != nil:
			attrs = append(attrs, slog.String("error", err.Error()))
			level, msg = slog.LevelError, "request failed"
		case status >= fiber.StatusInternalServerError:
			level = slog.LevelError
		case status >= fiber.StatusBadRequest:
			level = slog.LevelWarn
		case strings.HasPrefix(c.Path(), "/health"):
			level = slog.LevelDebug
		}
		Logger.LogAttrs(c.UserContext(), level, msg, attrs...)

		return err
	}
}
