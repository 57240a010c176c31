package eyeguard

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

// syntheticEye builds an eye-like region: a bright sclera background with a
// dark pupil disc at the given center.
func syntheticEye(w, h, cx, cy, r int, side EyeSide) *EyeRegion {
	img := grayImage(w, h, 200)
	drawDisc(img, cx, cy, r, 30)
	return &EyeRegion{Img: img, Side: side}
}

func TestLocatePupil_ShouldFindCenteredDarkDisc(t *testing.T) {
	assert := assert.New(t)

	region := syntheticEye(40, 30, 20, 20, 4, LeftEye)
	est := LocatePupil(region, DefaultPupilThreshold)

	assert.True(est.Present)
	assert.InDelta(20, est.X, 3)
	assert.InDelta(20, est.Y, 3)

	assert.True(est.HasDiameter())
	assert.Greater(est.Diameter, 4.0)
	assert.Less(est.Diameter, 16.0)
}

func TestLocatePupil_UniformRegionShouldYieldAbsent(t *testing.T) {
	assert := assert.New(t)

	region := &EyeRegion{Img: grayImage(40, 30, 180), Side: LeftEye}
	est := LocatePupil(region, DefaultPupilThreshold)

	assert.False(est.Present)
	assert.False(est.HasDiameter())
	assert.Equal(PupilEstimate{}, est)
}

func TestLocatePupil_ShouldIgnoreEyebrowBand(t *testing.T) {
	assert := assert.New(t)

	// A dark blob confined to the excluded top band must not be reported.
	region := syntheticEye(40, 30, 20, 4, 3, LeftEye)
	est := LocatePupil(region, DefaultPupilThreshold)

	assert.False(est.Present)
}

func TestLocatePupil_ShouldRejectOffCenterCandidate(t *testing.T) {
	assert := assert.New(t)

	// The centroid filter discards blobs hugging the region border.
	region := syntheticEye(60, 30, 3, 20, 2, LeftEye)
	est := LocatePupil(region, DefaultPupilThreshold)

	assert.False(est.Present)
}

func TestLocatePupil_DegenerateRegionShouldYieldAbsent(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(PupilEstimate{}, LocatePupil(nil, DefaultPupilThreshold))

	empty := &EyeRegion{Img: image.NewGray(image.Rect(0, 0, 0, 0))}
	assert.Equal(PupilEstimate{}, LocatePupil(empty, DefaultPupilThreshold))
}

func TestLocatePupilAt_HintInsideContourShouldMeasureDiameter(t *testing.T) {
	assert := assert.New(t)

	region := syntheticEye(40, 30, 20, 20, 4, RightEye)
	est := LocatePupilAt(region, DefaultPupilThreshold, image.Pt(20, 20))

	assert.True(est.Present)
	assert.Equal(20, est.X)
	assert.Equal(20, est.Y)
	assert.True(est.HasDiameter())
	assert.Greater(est.Diameter, 4.0)
	assert.Less(est.Diameter, 16.0)
}

func TestLocatePupilAt_MissedHintShouldKeepCoordinates(t *testing.T) {
	assert := assert.New(t)

	// Nothing binarizes to foreground, so only the hint location survives.
	region := &EyeRegion{Img: grayImage(40, 30, 180), Side: RightEye}
	est := LocatePupilAt(region, DefaultPupilThreshold, image.Pt(12, 9))

	assert.True(est.Present)
	assert.Equal(12, est.X)
	assert.Equal(9, est.Y)
	assert.False(est.HasDiameter())
	assert.Zero(est.Diameter)
}

func TestLocatePupilAt_NearMissShouldSnapToClosestContour(t *testing.T) {
	assert := assert.New(t)

	region := syntheticEye(40, 30, 20, 15, 4, LeftEye)
	// Three pixels outside the disc boundary, within the snap distance.
	est := LocatePupilAt(region, DefaultPupilThreshold, image.Pt(27, 15))

	assert.True(est.Present)
	assert.Equal(27, est.X)
	assert.Equal(15, est.Y)
	assert.True(est.HasDiameter())
}

func TestContourDiameter_EstimatorsShouldAgreeOnDisc(t *testing.T) {
	assert := assert.New(t)

	img := grayImage(30, 30, 0)
	drawDisc(img, 15, 15, 6, 255)

	contours := FindContours(img)
	assert.Len(contours, 1)

	d := contourDiameter(contours[0])
	assert.InDelta(12.0, d, 2.5)
}
