package logs

import (
	"io"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var (
	verbose atomic.Bool
	std     atomic.Pointer[logrus.Logger]
)

func init() {
	l := logrus.New()
	l.SetOutput(io.Discard)
	std.Store(l)
}

// Setup builds the process logger writing to w. Verbose mode switches to the
// text formatter at debug level; otherwise JSON lines at info level.
func Setup(w io.Writer, v bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	if v {
		l.SetLevel(logrus.DebugLevel)
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000000",
			DisableColors:   true,
		})
	} else {
		l.SetLevel(logrus.InfoLevel)
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	verbose.Store(v)
	std.Store(l)
	return l
}

// L returns the process logger.
func L() *logrus.Logger {
	return std.Load()
}

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return L().WithField("component", name)
}

// Verbose reports whether verbose logging is enabled.
func Verbose() bool {
	return verbose.Load()
}

// LogV prints a formatted log message only when verbose logging is enabled.
func LogV(format string, args ...interface{}) {
	if verbose.Load() {
		L().Debugf(format, args...)
	}
}
