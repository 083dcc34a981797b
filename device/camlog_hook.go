package device

import (
	"log"
	"strings"
	_ "unsafe"

	"github.com/svanichkin/effectcam/logs"
)

// gocam prints its configuration dump to stdout, which belongs to the
// terminal renderer here. Route it into the verbose log instead.
//
//go:linkname gocamLogger github.com/svanichkin/gocam.camLog
var gocamLogger *log.Logger

func init() {
	if gocamLogger == nil {
		return
	}
	gocamLogger.SetOutput(gocamLogWriter{})
	gocamLogger.SetFlags(0)
	gocamLogger.SetPrefix("")
}

type gocamLogWriter struct{}

func (gocamLogWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\r\n")
	if msg == "" {
		return len(p), nil
	}
	logs.LogV("%s", strings.TrimSpace(strings.TrimPrefix(msg, "[gocam]")))
	return len(p), nil
}
