package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPassword(t *testing.T) {
	assert.Equal(t, "postgres://app:***@db:5432/shorts", maskPassword("postgres://app:secret@db:5432/shorts"))
	assert.Equal(t, "postgres://db:5432/shorts", maskPassword("postgres://db:5432/shorts"))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"collect", "metrics", "flows", "api", "scheduler", "test-db"} {
		assert.True(t, names[want], want)
	}
}
