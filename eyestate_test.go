package eyeguard

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

// flatRegion is an eye crop with no vertical structure at all, the
// projection signature of a closed lid.
func flatRegion(value uint8) *EyeRegion {
	return &EyeRegion{Img: grayImage(20, 20, value)}
}

// openRegion has a dark upper half and a bright lower half, a strongly
// asymmetric projection typical of an open eye.
func openRegion() *EyeRegion {
	img := grayImage(20, 20, 30)
	for y := 10; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.SetGray(x, y, color.Gray{Y: 220})
		}
	}
	return &EyeRegion{Img: img}
}

// stripedRegion keeps every row sum identical while carrying a high
// intensity variance and large foreground blobs. It defeats the projection
// ratio without triggering either corroboration signal.
func stripedRegion() *EyeRegion {
	img := grayImage(20, 20, 0)
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			if (x/5)%2 == 1 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return &EyeRegion{Img: img}
}

func newClassifier(t *testing.T, cfg ClassifierConfig) *EyeStateClassifier {
	t.Helper()
	c, err := NewEyeStateClassifier(cfg)
	assert.NoError(t, err)
	return c
}

func TestClassifier_LocatedPupilShouldWinOverEverything(t *testing.T) {
	assert := assert.New(t)
	c := newClassifier(t, DefaultConfig().Classifier)

	pupil := PupilEstimate{X: 10, Y: 10, Diameter: 6, Present: true}
	assert.Equal(EyeOpen, c.Classify(flatRegion(80), pupil, HintClosed))
}

func TestClassifier_FlatRegionShouldReadClosed(t *testing.T) {
	assert := assert.New(t)
	c := newClassifier(t, DefaultConfig().Classifier)

	assert.Equal(EyeClosed, c.Classify(flatRegion(80), PupilEstimate{}, HintUnknown))
}

func TestClassifier_OpenProjectionShouldReadOpen(t *testing.T) {
	assert := assert.New(t)
	c := newClassifier(t, DefaultConfig().Classifier)

	assert.Equal(EyeOpen, c.Classify(openRegion(), PupilEstimate{}, HintUnknown))
}

func TestClassifier_MissingRegionShouldDefaultOpen(t *testing.T) {
	assert := assert.New(t)
	c := newClassifier(t, DefaultConfig().Classifier)

	assert.Equal(EyeOpen, c.Classify(nil, PupilEstimate{}, HintUnknown))
}

func TestClassifier_TrackerOpenHintShouldBeTrusted(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig().Classifier
	cfg.UseTrackerState = true
	c := newClassifier(t, cfg)

	// The flat region alone would read closed; the hint overrides it.
	assert.Equal(EyeOpen, c.Classify(flatRegion(80), PupilEstimate{}, HintOpen))
}

func TestClassifier_TrackerClosedHintNeedsCorroboration(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig().Classifier
	cfg.UseTrackerState = true
	c := newClassifier(t, cfg)

	assert.Equal(EyeClosed, c.Classify(flatRegion(80), PupilEstimate{}, HintClosed))
	assert.Equal(EyeOpen, c.Classify(openRegion(), PupilEstimate{}, HintClosed))
}

func TestClassifier_HintsIgnoredWhenTrackerStateDisabled(t *testing.T) {
	assert := assert.New(t)
	c := newClassifier(t, DefaultConfig().Classifier)

	assert.Equal(EyeOpen, c.Classify(openRegion(), PupilEstimate{}, HintClosed))
}

func TestClassifier_MultiMethodShouldCorroborateFlatRegion(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig().Classifier
	cfg.MultiMethod = true
	c := newClassifier(t, cfg)

	// Flat region: projection says closed, histogram variance agrees.
	assert.Equal(EyeClosed, c.Classify(flatRegion(100), PupilEstimate{}, HintUnknown))
}

func TestClassifier_MultiMethodShouldVetoUncorroboratedClosure(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig().Classifier
	cfg.MultiMethod = true
	c := newClassifier(t, cfg)

	region := stripedRegion()

	// Single method closes on the flat projection alone.
	single := newClassifier(t, DefaultConfig().Classifier)
	assert.Equal(EyeClosed, single.Classify(region, PupilEstimate{}, HintUnknown))

	// Multi method finds no second opinion and stays open.
	assert.Equal(EyeOpen, c.Classify(region, PupilEstimate{}, HintUnknown))
}

func TestClassifier_FuseShouldCloseOnEitherEye(t *testing.T) {
	assert := assert.New(t)
	c := newClassifier(t, DefaultConfig().Classifier)

	assert.Equal(EyeOpen, c.Fuse(EyeOpen, EyeOpen))
	assert.Equal(EyeClosed, c.Fuse(EyeClosed, EyeOpen))
	assert.Equal(EyeClosed, c.Fuse(EyeOpen, EyeClosed))
	assert.Equal(EyeClosed, c.Fuse(EyeClosed, EyeClosed))
}

func TestClassifier_InvalidConfigShouldFail(t *testing.T) {
	assert := assert.New(t)

	cfg := DefaultConfig().Classifier
	cfg.MultiMethod = true
	cfg.HistogramThreshold = 0

	_, err := NewEyeStateClassifier(cfg)
	assert.Error(err)

	cfg = DefaultConfig().Classifier
	cfg.ClosedRatio = -1
	_, err = NewEyeStateClassifier(cfg)
	assert.Error(err)
}

func TestEyeState_StringValues(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("open", EyeOpen.String())
	assert.Equal("closed", EyeClosed.String())
	assert.Equal("left", LeftEye.String())
	assert.Equal("right", RightEye.String())
}
