package core

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger builds a logrus.Logger at the given level, writing to out. An
// unparseable level falls back to Info rather than failing startup.
func NewLogger(level string, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}
