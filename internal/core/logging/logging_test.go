package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// Setup mutates global state, so these tests do not run in parallel.

func TestSetup_Levels(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	cases := map[int]zerolog.Level{
		-1: zerolog.WarnLevel,
		0:  zerolog.WarnLevel,
		1:  zerolog.InfoLevel,
		2:  zerolog.DebugLevel,
		3:  zerolog.TraceLevel,
		9:  zerolog.TraceLevel,
	}
	for verbosity, want := range cases {
		var buf bytes.Buffer
		Setup(verbosity, &buf)
		assert.Equal(t, want, zerolog.GlobalLevel(), "verbosity %d", verbosity)
	}
}

func TestGetLogger_TagsComponent(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	Setup(1, &buf)
	logger := GetLogger("scaffold")
	logger.Info().Msg("hello")

	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "scaffold")
}

func TestSetup_QuietByDefault(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	Setup(0, &buf)
	logger := GetLogger("scaffold")
	logger.Info().Msg("should not appear")
	logger.Warn().Msg("visible warning")

	assert.NotContains(t, buf.String(), "should not appear")
	assert.Contains(t, buf.String(), "visible warning")
}

func TestLogOperationStart(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	Setup(2, &buf)
	done := LogOperationStart(GetLogger("test"), "flatten")
	done()

	assert.Contains(t, buf.String(), "Operation started")
	assert.Contains(t, buf.String(), "Operation completed")
	assert.Contains(t, buf.String(), "flatten")
}
