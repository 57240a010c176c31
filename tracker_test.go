package eyeguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerRegistry_ShouldListBackendsInStableOrder(t *testing.T) {
	assert := assert.New(t)

	names := TrackerNames()
	assert.Contains(names, "pigo")
	assert.IsIncreasing(names)
}

func TestTrackerRegistry_UnknownBackendShouldFail(t *testing.T) {
	assert := assert.New(t)

	_, err := NewTracker("bogus", DefaultTrackerConfig())
	assert.Error(err)
	assert.Contains(err.Error(), "bogus")
}

func TestTrackerRegistry_RegisteredBackendShouldBeConstructed(t *testing.T) {
	assert := assert.New(t)

	RegisterTracker("stub-test", func(cfg TrackerConfig) (Tracker, error) {
		return &stubTracker{}, nil
	})
	defer delete(trackerRegistry, "stub-test")

	tr, err := NewTracker("stub-test", DefaultTrackerConfig())
	assert.NoError(err)
	assert.Equal("stub", tr.Method())
}

func TestPigoTracker_MissingCascadeShouldFail(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultTrackerConfig()
	cfg.CascadeDir = t.TempDir()

	_, err := NewTracker("pigo", cfg)
	assert.Error(err)
}

func TestConfig_ValidationShouldRejectBadThreshold(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	assert.NoError(cfg.Validate())

	cfg.PupilThreshold = -1
	assert.Error(cfg.Validate())

	cfg = DefaultConfig()
	cfg.PupilThreshold = 256
	assert.Error(cfg.Validate())
}

func TestConfig_DefaultsShouldMatchFieldTestedValues(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig()
	assert.Equal("pigo", cfg.Tracker)
	assert.Equal(50, cfg.PupilThreshold)
	assert.InDelta(0.7, cfg.Monitor.PerclosThreshold, 1e-9)
	assert.Equal(120, cfg.Monitor.WindowSize)
	assert.Equal(5, cfg.Monitor.OutOfFrameThreshold)
	assert.InDelta(0.02, cfg.Classifier.ClosedRatio, 1e-9)
}
