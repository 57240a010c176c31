package eyeguard

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// EyeSide tags an eye region with the eye it was cropped from.
type EyeSide int

const (
	LeftEye EyeSide = iota
	RightEye
)

func (s EyeSide) String() string {
	if s == LeftEye {
		return "left"
	}
	return "right"
}

// EyeRegion is a grayscale sub-image holding a single eye and nothing else.
// Origin is the offset of the crop inside the parent frame, so pupil
// coordinates computed on the region can be mapped back to frame space.
// Regions are owned transiently per frame and discarded after classification.
type EyeRegion struct {
	Img    *image.Gray
	Origin image.Point
	Side   EyeSide
}

// Empty reports whether the region holds no usable pixel data.
func (e *EyeRegion) Empty() bool {
	return e == nil || e.Img == nil || e.Img.Bounds().Dx() == 0 || e.Img.Bounds().Dy() == 0
}

// ToGray converts any image type to *image.Gray with min-point at (0, 0).
func ToGray(img image.Image) *image.Gray {
	if src, ok := img.(*image.Gray); ok {
		if src.Bounds().Min.X == 0 && src.Bounds().Min.Y == 0 {
			return src
		}
	}
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return dst
}

// grayValues flattens the region pixels into a float64 slice, row major.
func grayValues(img *image.Gray) []float64 {
	b := img.Bounds()
	vals := make([]float64, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			vals = append(vals, float64(img.GrayAt(x, y).Y))
		}
	}
	return vals
}
