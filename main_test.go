package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunReturnsErrorWithoutJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	err := run()
	assert.EqualError(t, err, "JWT_SECRET is required")
}

func TestRunReturnsConfigError(t *testing.T) {
	t.Setenv("CHAT_POLL_INTERVAL", "soon")

	err := run()
	assert.ErrorContains(t, err, "load config:")
}
