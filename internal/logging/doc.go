// Package logging provides logging utilities for centic-ctl.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for the claim loop (via slog)
//   - User output: Formatted messages for end users (via lipgloss)
//
// # Structured Logging
//
// Structured logs are written using slog and controlled by verbosity settings:
//
//	logging.Info("claiming task", "account", label, "task", id)
//	logging.Warn("task no longer available", "task", id)
//
// Tokens must never be logged verbatim; pass them through Mask first.
//
// # User Output
//
// User-facing messages are prefixed with a styled status glyph:
//
//	logging.UserInfo("Loaded %d tokens", n)
//	logging.UserSuccess("Claimed %d tasks", n)
//	logging.UserWarning("Running without proxy")
//	logging.UserError("Fetching tasks failed: %v", err)
//
// Output destinations:
//   - UserInfo, UserSuccess: stdout
//   - UserWarning, UserError: stderr
package logging
