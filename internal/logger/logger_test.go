package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"ERROR":   LevelError,
		" fatal ": LevelFatal,
		"off":     LevelOff,
		"info":    LevelInfo,
		"verbose": LevelInfo,
	}
	for input, want := range tests {
		t.Run(input, func(t *testing.T) {
			assert.Equal(t, want, ParseLevel(input))
		})
	}
}

func TestZeroLogger_WritesDefaultFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewZeroLogger(&buf, LevelInfo, Fields{"service": "optionsdesk"})

	l.Info("option created", map[string]interface{}{"option_id": 7})

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "option created", line["message"])
	assert.Equal(t, "optionsdesk", line["service"])
	assert.EqualValues(t, 7, line["option_id"])
}

func TestZeroLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewZeroLogger(&buf, LevelError, nil)

	l.Info("dropped", nil)
	assert.Zero(t, buf.Len())

	l.Error(errors.New("boom"), nil)
	assert.Contains(t, buf.String(), "boom")

	buf.Reset()
	l.SetLevel(LevelDebug)
	l.Debug("visible", nil)
	assert.Contains(t, buf.String(), "visible")
}

func TestNullLogger(t *testing.T) {
	var l Logger = NewNullLogger()
	assert.NotPanics(t, func() {
		l.Info("x", nil)
		l.Error(errors.New("x"), nil)
		l.Debug("x", nil)
		l.SetLevel(LevelOff)
	})
}
