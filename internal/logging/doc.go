// Package logging constructs the slog loggers used across taskherd.
//
// It provides a console handler for interactive use, a JSON handler for
// machine consumption, attribute helpers so call sites stay terse, and a
// no-op logger for tests.
package logging
