package utils

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel(" WARN "))
	assert.Equal(t, zerolog.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("verbose"))
}

func TestInitLoggerHonorsLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	InitLogger()
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	t.Setenv("LOG_LEVEL", "")
	InitLogger()
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
