package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/portal-runtime/framework/config"
	"github.com/km-arc/portal-runtime/framework/logging"
)

func TestNew_LevelAndFormat(t *testing.T) {
	log := logging.New(config.LogConfig{Level: "debug", Format: "json"}, "portal")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	log := logging.New(config.LogConfig{Level: "chatty"}, "")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}

func TestNew_StampsAppName(t *testing.T) {
	log := logging.New(config.LogConfig{Level: "info", Format: "json"}, "admin")
	var buf bytes.Buffer
	log.SetOutput(&buf)

	log.WithField("service", "theme").Info("resolved")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "admin", entry["app"])
	assert.Equal(t, "theme", entry["service"])
}

func TestDiscard(t *testing.T) {
	log := logging.Discard()
	log.Info("dropped") // must not panic
	assert.NotNil(t, log.Out)
}
