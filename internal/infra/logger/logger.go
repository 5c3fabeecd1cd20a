// internal/infra/logger/logger.go
package logger

import (
	"os"
	"strings"

	"course_outreach/internal/domain/outreach"
	"course_outreach/internal/infra/config"

	"github.com/sirupsen/logrus"
)

// Log is the global logger instance
var Log = logrus.New()

// Init initializes the global logger based on application configuration.
func Init(cfg *config.AppConfig) {
	Log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		Log.Warnf("Invalid log level '%s', defaulting to 'info'. Error: %v", cfg.LogLevel, err)
		Log.SetLevel(logrus.InfoLevel)
	} else {
		Log.SetLevel(level)
	}

	if isStructured(cfg.Environment) {
		Log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00", // ISO8601
		})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			ForceColors:     true,
		})
	}

	Log.Info("Logger initialized successfully.")
	Log.Debugf("Log level set to: %s", Log.GetLevel().String())
	Log.Debugf("Log format set for environment: %s", cfg.Environment)
}

func isStructured(environment string) bool {
	env := strings.ToLower(environment)
	return env == "production" || env == "staging"
}

// Get returns the configured global logger.
func Get() *logrus.Logger {
	return Log
}

// StuckLogger reports students who have exhausted a message family at warn
// level.
type StuckLogger struct {
	entry *logrus.Entry
}

func NewStuckLogger(entry *logrus.Entry) *StuckLogger {
	return &StuckLogger{entry: entry.WithField("component", "selector")}
}

func (l *StuckLogger) Stuck(studentID string, milestone outreach.MilestoneKind, note string) {
	l.entry.WithFields(logrus.Fields{
		"student_id": studentID,
		"milestone":  milestone.String(),
	}).Warn(note)
}
