// Package logging builds the logrus logger shared by the container, the
// store and the inspector.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/km-arc/portal-runtime/framework/config"
)

// New creates a logger from the log section of the configuration.
// Unknown levels fall back to info.
//
//	log := logging.New(cfg.Log, cfg.App.Name)
//	log.WithField("service", "theme").Debug("resolved")
func New(cfg config.LogConfig, appName string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if appName != "" {
		log.AddHook(appHook{name: appName})
	}
	return log
}

// Discard returns a logger that drops everything. Used as the default when no
// logger is injected.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// appHook stamps every entry with the application name.
type appHook struct{ name string }

func (h appHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h appHook) Fire(e *logrus.Entry) error {
	if _, ok := e.Data["app"]; !ok {
		e.Data["app"] = h.name
	}
	return nil
}
