package logging

import (
	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/internal/config"
)

// New builds a logrus.Logger from LoggingConfig, defaulting to info/text
// when a field is empty or invalid rather than failing startup over a log
// setting.
func New(cfg config.LoggingConfig) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return log
}
