package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot(t *testing.T) {
	cmd := Root()

	require.NotNil(t, cmd)
	assert.Equal(t, "tpunanny", cmd.Use)
	assert.Equal(t, "Keep a fleet of preemptible TPU workers alive", cmd.Short)
}

func TestRoot_HasSubcommands(t *testing.T) {
	cmd := Root()

	subcommands := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}

	for _, expected := range []string{"babysit", "reap", "status", "version"} {
		assert.True(t, subcommands[expected], "Expected subcommand %s not found", expected)
	}
	assert.Len(t, cmd.Commands(), 4)
}

func TestRoot_VerbosityFlag(t *testing.T) {
	cmd := Root()
	require.NoError(t, cmd.PersistentFlags().Parse([]string{"-v", "2"}))
	assert.Equal(t, 2, verbosity(cmd))
}
