package logging

import (
	"io"
	"log/slog"
	"os"
)

// Logger is the process-wide structured logger. Setup replaces it once the
// command-line flags are parsed.
var Logger = slog.New(newHandler(os.Stderr, false, slog.LevelInfo))

func newHandler(w io.Writer, jsonOutput bool, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if jsonOutput {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Setup points Logger at w (stderr when nil). Verbose enables debug
// records; jsonOutput switches to one JSON object per line.
func Setup(verbose bool, jsonOutput bool, w io.Writer) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if w == nil {
		w = os.Stderr
	}
	Logger = slog.New(newHandler(w, jsonOutput, level))
}

func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

// ForAccount returns l scoped to one account. The token is masked.
func ForAccount(l *slog.Logger, label, token string) *slog.Logger {
	return l.With("account", label, "token", Mask(token))
}

// Mask shortens a secret to its first and last four characters so that
// tokens can appear in logs without being usable.
func Mask(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "…" + secret[len(secret)-4:]
}
