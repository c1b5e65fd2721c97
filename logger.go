package gatewayclient

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is satisfied by *logrus.Logger and *logrus.Entry.
type Logger = logrus.FieldLogger

func nopLogger() Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
