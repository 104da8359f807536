package logging

import (
	"bytes"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
)

func TestNewDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Output: &buf})
	assert.Equal(t, hclog.Info, logger.GetLevel())
}

func TestNewFallsBackOnUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "not-a-level", Output: &buf})
	assert.Equal(t, hclog.Info, logger.GetLevel())
}

func TestNewRespectsExplicitLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "debug", Output: &buf})
	assert.Equal(t, hclog.Debug, logger.GetLevel())
}

func TestDiscardSuppressesOutput(t *testing.T) {
	logger := Discard()
	logger.Info("should not panic or write anywhere")
	assert.NotNil(t, logger)
}
