package pathtype_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"git.fiblab.net/sim/pathtype/pathtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, pathtype.DefaultConfig().Validate())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pathtype.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
hovCostDivisorWork: 2.5
walkTimeWeight: 1.5
useBikeClassWeights: true
bikeClassWeights:
  class1: -0.2
  worst: 0.4
transitWeights:
  r: 0.8
deterministicSelection: true
`), 0o644))

	cfg, err := pathtype.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2.5, cfg.HOVCostDivisorWork)
	// 未出现的字段保持默认值
	assert.Equal(t, 2.0, cfg.HOVCostDivisorOther)
	assert.Equal(t, 1.5, cfg.WalkTimeWeight)
	assert.True(t, cfg.UseBikeClassWeights)
	assert.Equal(t, -0.2, cfg.BikeClassWeights.Class1)
	assert.Equal(t, 0.4, cfg.BikeClassWeights.Worst)
	assert.Equal(t, 0.8, cfg.TransitWeights.R)
	assert.Equal(t, 200.0, cfg.AvailablePathUpperTimeLimit)
	assert.True(t, cfg.DeterministicSelection)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := pathtype.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pathChoiceScaleFactor: 0\n"), 0o644))
	_, err = pathtype.LoadConfig(path)
	assert.ErrorContains(t, err, "pathChoiceScaleFactor")
}

func TestConfigValidate(t *testing.T) {
	cfg := pathtype.DefaultConfig()
	cfg.HOVCostDivisorOther = -1
	cfg.AvailablePathUpperTimeLimit = math.Inf(1)
	cfg.AutoOperatingCostPerDistanceUnit = -0.1
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "hovCostDivisorOther")
	assert.ErrorContains(t, err, "availablePathUpperTimeLimit")
	assert.ErrorContains(t, err, "autoOperatingCostPerDistanceUnit")

	_, err = pathtype.New(cfg, newFakeLookup())
	assert.Error(t, err)
	_, err = pathtype.New(pathtype.DefaultConfig(), nil)
	assert.Error(t, err)
}
