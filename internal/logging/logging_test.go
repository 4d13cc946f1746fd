package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fivetwenty-io/armclient/internal/logging"
)

func TestLogrusLogger(t *testing.T) {
	t.Parallel()

	base, hook := test.NewNullLogger()
	base.SetLevel(log.DebugLevel)

	logger := logging.NewLogrusLogger(base)

	logger.Debug("ARM Request", map[string]interface{}{"method": "GET"})
	logger.Info("info", nil)
	logger.Warn("warn", nil)
	logger.Error("ARM Response Error", map[string]interface{}{"status_code": 500})

	entries := hook.AllEntries()
	require.Len(t, entries, 4)
	assert.Equal(t, log.DebugLevel, entries[0].Level)
	assert.Equal(t, "GET", entries[0].Data["method"])
	assert.Equal(t, log.WarnLevel, entries[2].Level)
	assert.Equal(t, log.ErrorLevel, entries[3].Level)
	assert.Equal(t, 500, entries[3].Data["status_code"])
}

func TestNewLogrus(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	logger, err := logging.NewLogrus(&out, "info", logging.FormatJSON)
	require.NoError(t, err)

	logger.Debug("hidden", nil)
	logger.Info("shown", map[string]interface{}{"operation": "ResourceClient.Get"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "ResourceClient.Get", entry["operation"])

	_, err = logging.NewLogrus(&out, "loud", logging.FormatText)
	require.Error(t, err)
}

func TestZapLogger(t *testing.T) {
	t.Parallel()

	core, recorded := observer.New(zapcore.DebugLevel)
	logger := logging.NewZapLogger(zap.New(core))

	logger.Debug("HTTP Request", map[string]interface{}{"url": "https://x/a", "method": "GET"})
	logger.Error("ARM Response Error", map[string]interface{}{"status_code": 409})

	entries := recorded.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "HTTP Request", entries[0].Message)
	assert.Equal(t, map[string]interface{}{"url": "https://x/a", "method": "GET"}, entries[0].ContextMap())
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, int64(409), entries[1].ContextMap()["status_code"])
}

func TestNewZapJSON(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	logger, err := logging.NewZap(&out, "warn", logging.FormatJSON)
	require.NoError(t, err)

	logger.Info("hidden", nil)
	logger.Warn("throttled", map[string]interface{}{"retry_after": "5"})
	require.NoError(t, logger.Sync())

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &entry))
	assert.Equal(t, "throttled", entry["msg"])
	assert.Equal(t, "5", entry["retry_after"])

	_, err = logging.NewZap(&out, "loud", logging.FormatJSON)
	require.Error(t, err)
}
