package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/go-chi/httplog/v3"
)

// New builds the JSON logger shared by the HTTP access log and the domain
// services. Attribute names follow the ECS schema used by httplog.
func New(w io.Writer, level, env string) *slog.Logger {
	format := httplog.SchemaECS.Concise(env != "production")
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: format.ReplaceAttr,
	})
	return slog.New(handler).With(
		slog.String("app", "phpayroll"),
		slog.String("env", env),
	)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RequestOptions configures httplog.RequestLogger for the router.
func RequestOptions(level string) *httplog.Options {
	return &httplog.Options{
		Level:  ParseLevel(level),
		Schema: httplog.SchemaECS,
	}
}
