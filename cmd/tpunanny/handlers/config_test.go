package handlers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/tpunanny/internal/config"
	"github.com/imamik/tpunanny/internal/util/ptr"
)

func TestLoadConfig_FlagsOnly(t *testing.T) {
	origExists := fileExists
	defer func() { fileExists = origExists }()
	fileExists = func(string) bool { return false }

	cfg, err := loadConfig("", Overrides{
		Project:         "research",
		Zone:            "us-east5-a",
		AcceleratorType: "v5p-8",
		Indices:         []int{0, 1},
		Spot:            ptr.To(false),
	})
	require.NoError(t, err)

	assert.Equal(t, config.ProviderTPU, cfg.Provider)
	assert.Equal(t, "tn-v5p-8", cfg.WorkerPrefix)
	assert.Equal(t, []int{0, 1}, cfg.Indices)
	assert.False(t, cfg.UseSpot())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	content := `
project: research
zone: us-east5-a
acceleratorType: v5p-8
indices: [0]
intervals:
  poll: 2m
reaper:
  concurrency: 8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := loadConfig(path, Overrides{
		AcceleratorType: "v6e-16",
		Indices:         []int{3, 4},
		Concurrency:     ptr.To(2),
	})
	require.NoError(t, err)

	assert.Equal(t, "research", cfg.Project)
	assert.Equal(t, "v6e-16", cfg.AcceleratorType)
	// The prefix follows the overridden accelerator type.
	assert.Equal(t, "tn-v6e-16", cfg.WorkerPrefix)
	assert.Equal(t, []int{3, 4}, cfg.Indices)
	assert.Equal(t, 2*time.Minute, cfg.Intervals.Poll)
	assert.Equal(t, 2, cfg.Reaper.Concurrency)
}

func TestLoadConfig_DefaultFile(t *testing.T) {
	origExists, origRead := fileExists, readConfigFile
	defer func() { fileExists, readConfigFile = origExists, origRead }()

	var readPath string
	fileExists = func(path string) bool { return path == DefaultConfigFile }
	readConfigFile = func(path string) (*config.Fleet, error) {
		readPath = path
		return &config.Fleet{Project: "from-default"}, nil
	}

	cfg, err := loadConfig("", Overrides{})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfigFile, readPath)
	assert.Equal(t, "from-default", cfg.Project)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"), Overrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestOverrides_EmptyKeepsFileValues(t *testing.T) {
	cfg := &config.Fleet{Project: "p", Zone: "z", StreamLogs: true}
	cfg.Reaper.IncludeFailed = true

	Overrides{}.apply(cfg)

	assert.Equal(t, "p", cfg.Project)
	assert.Equal(t, "z", cfg.Zone)
	assert.True(t, cfg.StreamLogs)
	assert.True(t, cfg.Reaper.IncludeFailed)
}
