package tools

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

var Log = logrus.New()

// InitLogger configures the shared logger. An empty level means info.
func InitLogger(level string) error {
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableColors:   false,
		PadLevelText:    true,
	})

	if level == "" {
		level = logrus.InfoLevel.String()
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	Log.SetLevel(lvl)
	return nil
}

func LogSyncSummary(category string, total, created, existing, failed int) {
	Log.Infof("[%s] total=%d created=%d existing=%d failed=%d", category, total, created, existing, failed)
}
