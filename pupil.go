package eyeguard

import (
	"image"
	"math"

	"github.com/ken001111/eyeguard/utils"
)

// Geometric acceptance filters for pupil candidate contours. The values
// were tuned on recorded eye crops; cutting the top of the region removes
// most eyebrow and shadow contamination before any thresholding happens.
const (
	eyebrowExclusion  = 0.4  // fraction of the region height excluded at the top
	minPupilAreaRatio = 0.01 // candidate area lower bound, relative to the search region
	maxPupilAreaRatio = 0.3  // candidate area upper bound
	maxCenterOffset   = 0.4  // horizontal centroid offset bound, relative to half width
	minCircularity    = 0.3
	hintSnapDistance  = 5.0 // pixels a contour may miss the hint by and still be accepted

	areaWeight       = 0.7
	centralityWeight = 0.3

	pupilBlurRadius = 2
)

// PupilEstimate is the result of a pupil localization attempt. The zero
// value is the absent estimate. X and Y are relative to the owning eye
// region's origin, never to the full frame. A diameter of zero means no
// diameter could be measured even though a location is known.
type PupilEstimate struct {
	X, Y     int
	Diameter float64
	Present  bool
}

// HasDiameter reports whether a strictly positive diameter was measured.
func (p PupilEstimate) HasDiameter() bool {
	return p.Present && p.Diameter > 0
}

// isolateIris binarizes an eye image so that the dark iris/pupil blob
// stands out as foreground: smoothing, locally normalized thresholding,
// then close-and-open to seal the blob and drop speckle.
func isolateIris(img *image.Gray, threshold int) *image.Gray {
	filtered := BlurGray(img, pupilBlurRadius)
	// Map the caller threshold onto the adaptive offset; the default of 50
	// lands on the offset the pipeline was tuned with.
	offset := utils.Max(1, threshold/25)
	bin := AdaptiveThreshold(filtered, offset)
	return MorphOpen(MorphClose(bin, 2), 1)
}

// LocatePupil finds the pupil inside an eye region without any external
// hint and estimates its diameter. The search is restricted to the lower
// part of the region. Degenerate inputs yield the absent estimate, never
// an error.
func LocatePupil(region *EyeRegion, threshold int) PupilEstimate {
	if region.Empty() {
		return PupilEstimate{}
	}
	b := region.Img.Bounds()
	w, h := b.Dx(), b.Dy()

	top := int(float64(h) * eyebrowExclusion)
	roi := region.Img.SubImage(image.Rect(b.Min.X, b.Min.Y+top, b.Max.X, b.Max.Y)).(*image.Gray)
	roiH := h - top
	if w == 0 || roiH == 0 {
		return PupilEstimate{}
	}

	contours := FindContours(isolateIris(roi, threshold))

	var (
		roiArea = float64(w * roiH)
		minArea = roiArea * minPupilAreaRatio
		maxArea = roiArea * maxPupilAreaRatio

		best      Contour
		bestScore = math.Inf(-1)
		bestX     float64
		bestY     float64
	)
	for _, c := range contours {
		if c.Perimeter() == 0 {
			continue
		}
		area := c.Area()
		if area < minArea || area > maxArea {
			continue
		}
		cx, cy := c.Centroid()
		if math.Abs(cx-float64(w)/2) > float64(w)*maxCenterOffset {
			continue
		}
		if c.Circularity() < minCircularity {
			continue
		}

		// Prefer larger, more centered candidates. The centrality term is
		// normalized to [0, 1] and scaled by the area cap so both weights
		// operate on a comparable magnitude.
		centrality := 1 - (math.Abs(cx-float64(w)/2)/(float64(w)/2)+
			math.Abs(cy-float64(roiH)/2)/(float64(roiH)/2))/2
		centrality = utils.Max(0, centrality)

		score := areaWeight*area + centralityWeight*centrality*maxArea
		if score > bestScore {
			bestScore = score
			best = c
			bestX, bestY = cx, cy
		}
	}
	if best == nil {
		return PupilEstimate{}
	}

	return PupilEstimate{
		X:        int(math.Round(bestX)),
		Y:        int(math.Round(bestY)) + top,
		Diameter: contourDiameter(best),
		Present:  true,
	}
}

// LocatePupilAt measures the pupil diameter around a known center supplied
// by an external landmark source. The whole eye image is binarized and the
// contour containing the hint is measured; a contour missing the hint by
// less than the snap distance is still accepted. When no contour qualifies
// the hint coordinates are kept with an absent diameter.
func LocatePupilAt(region *EyeRegion, threshold int, hint image.Point) PupilEstimate {
	if region.Empty() {
		return PupilEstimate{}
	}
	est := PupilEstimate{X: hint.X, Y: hint.Y, Present: true}

	contours := FindContours(isolateIris(region.Img, threshold))

	var (
		best    Contour
		closest Contour
		minDist = math.MaxFloat64
	)
	for _, c := range contours {
		// The boundary counts as inside.
		d := c.PointPolygonTest(hint)
		if d >= 0 {
			best = c
			break
		}
		if -d < minDist {
			minDist = -d
			closest = c
		}
	}
	if best == nil && minDist < hintSnapDistance {
		best = closest
	}
	if best != nil {
		est.Diameter = contourDiameter(best)
	}
	return est
}

// contourDiameter estimates the pupil diameter as the mean of four
// independent estimators computed on the winning contour. Averaging damps
// the sensitivity of any single estimator to partial occlusion and
// lighting noise.
func contourDiameter(c Contour) float64 {
	if len(c) == 0 {
		return 0
	}
	_, _, r := c.MinEnclosingCircle()
	circle := 2 * r

	br := c.BoundingRect()
	box := float64(utils.Max(br.Dx(), br.Dy()))

	var equiv float64
	if area := c.Area(); area > 0 {
		equiv = 2 * math.Sqrt(area/math.Pi)
	}

	ellipse := circle
	if major, _, ok := c.EllipseAxes(); ok {
		ellipse = major
	}

	var sum float64
	var n int
	for _, d := range []float64{circle, box, equiv, ellipse} {
		if d > 0 {
			sum += d
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
