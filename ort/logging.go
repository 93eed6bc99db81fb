// logging.go - Log-Level der Engine und Weiterleitung nach slog
// Enthält: LoggingLevel, ParseLoggingLevel, forwardLog

package ort

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/boydjohnson/onnxruntime/logutil"
)

// LoggingLevel mirrors OrtLoggingLevel.
type LoggingLevel int32

const (
	LoggingLevelVerbose LoggingLevel = iota
	LoggingLevelInfo
	LoggingLevelWarning
	LoggingLevelError
	LoggingLevelFatal
)

var loggingLevelNames = []string{"verbose", "info", "warning", "error", "fatal"}

func (l LoggingLevel) String() string {
	if l >= 0 && int(l) < len(loggingLevelNames) {
		return loggingLevelNames[l]
	}
	return fmt.Sprintf("level(%d)", int32(l))
}

// ParseLoggingLevel parses a level name as accepted by ORT_LOG_SEVERITY.
func ParseLoggingLevel(s string) (LoggingLevel, error) {
	for i, name := range loggingLevelNames {
		if strings.EqualFold(s, name) {
			return LoggingLevel(i), nil
		}
	}
	return LoggingLevelWarning, fmt.Errorf("ort: unknown logging level %q", s)
}

// slogLevel maps native severities onto slog levels
func (l LoggingLevel) slogLevel() slog.Level {
	switch {
	case l <= LoggingLevelVerbose:
		return logutil.LevelTrace
	case l == LoggingLevelInfo:
		return slog.LevelDebug
	case l == LoggingLevelWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// forwardLog is installed as the native logger. It runs on engine threads
// and must never panic back into native code.
func forwardLog(severity LoggingLevel, category, logID, location, message string) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "ort: dropped native log message: %v\n", r)
		}
	}()

	slog.Log(context.TODO(), severity.slogLevel(), message,
		"category", category,
		"logid", logID,
		"location", location,
	)
}
