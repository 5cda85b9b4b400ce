// Package logging wraps log/slog with the helpers the engine uses
// everywhere: JSON/text constructors gated by LOG_LEVEL, a source-ID
// carried through context so every line emitted while fetching one source
// correlates, and logger-in-context plumbing for code that only receives a
// context.Context.
//
//	ctx = logging.WithSourceIDValue(ctx, "bbc")
//	logging.WithSourceID(ctx, logger).Info("fetch complete")
package logging
