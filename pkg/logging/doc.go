// Package logging builds the slog loggers used by the matching engine,
// comparator and plugin manager.
//
//	logger := logging.New(logging.Config{Level: logging.LevelDebug, Format: logging.FormatJSON})
//	engine := matching.NewEngine(nil, matching.WithLogger(logger))
//
// Components take a *slog.Logger option and fall back to Nop.
package logging
