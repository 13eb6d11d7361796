package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

var Logger = logrus.New()

// Init routes logs to a file under the data directory. The terminal belongs
// to the TUI, so there is no stdout fallback; if the file cannot be opened
// logs are discarded.
func Init(dataDir, level string) {
	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})

	switch level {
	case "debug":
		Logger.SetLevel(logrus.DebugLevel)
	case "warn":
		Logger.SetLevel(logrus.WarnLevel)
	case "error":
		Logger.SetLevel(logrus.ErrorLevel)
	default:
		Logger.SetLevel(logrus.InfoLevel)
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		Logger.SetOutput(io.Discard)
		return
	}

	logPath := filepath.Join(dataDir, "rentlink.log")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		Logger.SetOutput(io.Discard)
		return
	}
	Logger.SetOutput(file)
}

// WithComponent tags log entries with the subsystem that produced them.
func WithComponent(name string) *logrus.Entry {
	return Logger.WithField("component", name)
}
