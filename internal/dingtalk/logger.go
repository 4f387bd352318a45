package dingtalk

import (
	"fmt"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/tools"
	"github.com/sirupsen/logrus"
)

// leveledLogger routes retryablehttp logging into the shared logrus logger.
type leveledLogger struct {
	log *logrus.Logger
}

var _ retryablehttp.LeveledLogger = leveledLogger{}

func (l leveledLogger) entry(keysAndValues []interface{}) *logrus.Entry {
	fields := logrus.Fields{"component": "dingtalk"}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return l.log.WithFields(fields)
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.entry(keysAndValues).Error(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry(keysAndValues).Debug(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.entry(keysAndValues).Debug(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.entry(keysAndValues).Warn(msg)
}

func newLeveledLogger() leveledLogger {
	return leveledLogger{log: tools.Log}
}
