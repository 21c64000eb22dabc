package logger

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// New builds a structured logger. Format "text" switches to the
// human-readable formatter; anything else logs JSON.
func New(level, format string, out io.Writer) *logrus.Logger {
	log := logrus.New()

	if out == nil {
		out = os.Stdout
	}
	log.SetOutput(out)

	if format == "text" {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "ts",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	log.SetLevel(logrus.InfoLevel)
	if level != "" {
		if lvl, err := logrus.ParseLevel(level); err == nil {
			log.SetLevel(lvl)
		}
	}

	return log
}

// ForService tags every entry with the service name.
func ForService(log *logrus.Logger, service string) *logrus.Entry {
	return log.WithField("service", service)
}

// WithRequestID adds the request id to the entry if one is set.
func WithRequestID(log logrus.FieldLogger, requestID string) logrus.FieldLogger {
	if requestID == "" {
		return log
	}
	return log.WithField("request_id", requestID)
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
