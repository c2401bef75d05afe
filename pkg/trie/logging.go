// pkg/trie/logging.go
package trie

import "github.com/sirupsen/logrus"

// logger is the minimal surface Trie needs for optional logging. Trie
// logs only the Retry restarts of Insert and Remove; node retirement,
// prune commits and epoch advances are not logged. Never
// consulted on the hot Get path. Mirrors the narrow interface rclone's
// fs layer accepts for injected loggers rather than requiring a
// concrete *logrus.Logger, so a caller can adapt any leveled logger.
type logger interface {
	Debugf(format string, args ...any)
}

// discardLogger is the default: every call is a no-op, so a Trie built
// with New never pays for formatting a log line it didn't ask for.
type discardLogger struct{}

func (discardLogger) Debugf(string, ...any) {}

// logrusLogger adapts a *logrus.Logger to logger.
// Use SetLogger(NewLogrusLogger(l)) to route lifecycle events through
// the caller's existing logrus configuration.
type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger wraps l for use with Trie.SetLogger.
func NewLogrusLogger(l *logrus.Logger) logger {
	return logrusLogger{entry: logrus.NewEntry(l)}
}

func (l logrusLogger) Debugf(format string, args ...any) {
	l.entry.Debugf(format, args...)
}
