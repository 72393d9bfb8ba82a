package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogrusAdapter(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		format      string
		expectLevel logrus.Level
	}{
		{name: "debug text", level: "debug", format: "text", expectLevel: logrus.DebugLevel},
		{name: "info json", level: "info", format: "json", expectLevel: logrus.InfoLevel},
		{name: "warn text", level: "warn", format: "text", expectLevel: logrus.WarnLevel},
		{name: "invalid level defaults to info", level: "loud", format: "text", expectLevel: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogrusAdapter(tt.level, tt.format)
			adapter, ok := logger.(*LogrusAdapter)
			require.True(t, ok)
			assert.Equal(t, tt.expectLevel, adapter.logger.Level)

			if tt.format == "json" {
				assert.IsType(t, &logrus.JSONFormatter{}, adapter.logger.Formatter)
			} else {
				assert.IsType(t, &logrus.TextFormatter{}, adapter.logger.Formatter)
			}
		})
	}
}

func TestLogrusAdapter_FieldsAndError(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})

	logger := NewLogrusAdapterFromLogger(base).
		WithField(FieldUserID, "u1").
		WithError(errors.New("boom"))
	logger.Info("import confirmed", F(FieldCount, 3))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "import confirmed", entry["msg"])
	assert.Equal(t, "u1", entry[FieldUserID])
	assert.Equal(t, float64(3), entry[FieldCount])
	assert.Equal(t, "boom", entry["error"])
}

func TestLogrusAdapter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogrusAdapter("warn", "text").(*LogrusAdapter)
	logger.SetOutput(&buf)

	logger.Debug("hidden")
	logger.Info("hidden too")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestMockLogger_SharesSinkWithChildren(t *testing.T) {
	mock := NewMockLogger()
	child := mock.WithFields(F(FieldImportID, "imp-1"))
	child.Debug("row rejected", F(FieldReason, "bad amount"))
	mock.Info("done")

	entries := mock.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "DEBUG", entries[0].Level)
	assert.Equal(t, []Field{F(FieldImportID, "imp-1"), F(FieldReason, "bad amount")}, entries[0].Fields)
	assert.True(t, mock.HasEntry("INFO", "done"))
	assert.Len(t, mock.EntriesByLevel("DEBUG"), 1)

	mock.Clear()
	assert.Empty(t, mock.Entries())
}

func TestOrDefault(t *testing.T) {
	assert.NotNil(t, OrDefault(nil))
	mock := NewMockLogger()
	assert.Same(t, mock, OrDefault(mock))
}
