// Package logging configures slog handlers and shared attribute helpers
// used across the reelsmith daemon and CLI.
package logging
