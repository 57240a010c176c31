// Single channel adaptation of the StackBlur algorithm described here:
// http://incubator.quasimondo.com/processing/fast_blur_deluxe.php

package eyeguard

import (
	"image"
)

type blurstack struct {
	v    uint32
	next *blurstack
}

// BlurGray runs a stack blur pass over a grayscale image and returns the
// smoothed copy. It is used to suppress sensor noise ahead of binarization
// while keeping the pupil edges mostly intact. The source image is left
// untouched and a radius smaller than one yields a plain copy.
func BlurGray(src *image.Gray, radius int) *image.Gray {
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()

	dst := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dst.SetGray(x, y, src.GrayAt(b.Min.X+x, b.Min.Y+y))
		}
	}
	if radius < 1 || width < 1 || height < 1 {
		return dst
	}

	var (
		stackEnd, stackIn, stackOut *blurstack

		widthMinus1  = width - 1
		heightMinus1 = height - 1
		radiusPlus1  = radius + 1
		sumFactor    = uint32(radiusPlus1) * uint32(radiusPlus1+1) / 2
		// The stack weights are triangular, so they add up to (radius+1)^2.
		norm = uint32(radiusPlus1) * uint32(radiusPlus1)
	)

	stackStart := &blurstack{}
	stack := stackStart
	for i := 1; i < radius+radius+1; i++ {
		stack.next = &blurstack{}
		stack = stack.next
		if i == radiusPlus1 {
			stackEnd = stack
		}
	}
	stack.next = stackStart

	yi, yw := 0, 0
	for y := 0; y < height; y++ {
		var inSum, sum uint32

		pv := uint32(dst.Pix[yi])
		outSum := uint32(radiusPlus1) * pv
		sum += sumFactor * pv

		stack = stackStart
		for i := 0; i < radiusPlus1; i++ {
			stack.v = pv
			stack = stack.next
		}
		for i := 1; i < radiusPlus1; i++ {
			d := i
			if widthMinus1 < i {
				d = widthMinus1
			}
			pv = uint32(dst.Pix[yi+d])
			stack.v = pv
			sum += pv * uint32(radiusPlus1-i)
			inSum += pv
			stack = stack.next
		}

		stackIn = stackStart
		stackOut = stackEnd
		for x := 0; x < width; x++ {
			dst.Pix[yi] = uint8(sum / norm)

			sum -= outSum
			outSum -= stackIn.v

			p := x + radius + 1
			if p > widthMinus1 {
				p = widthMinus1
			}
			stackIn.v = uint32(dst.Pix[yw+p])
			inSum += stackIn.v
			sum += inSum
			stackIn = stackIn.next

			pv = stackOut.v
			outSum += pv
			inSum -= pv
			stackOut = stackOut.next

			yi++
		}
		yw += width
	}

	for x := 0; x < width; x++ {
		var inSum, sum uint32

		yi = x
		pv := uint32(dst.Pix[yi])
		outSum := uint32(radiusPlus1) * pv
		sum += sumFactor * pv

		stack = stackStart
		for i := 0; i < radiusPlus1; i++ {
			stack.v = pv
			stack = stack.next
		}

		yp := 0
		for i := 1; i < radiusPlus1; i++ {
			if i <= heightMinus1 {
				yp += width
			}
			pv = uint32(dst.Pix[yp+x])
			stack.v = pv
			sum += pv * uint32(radiusPlus1-i)
			inSum += pv
			stack = stack.next
		}

		stackIn = stackStart
		stackOut = stackEnd
		for y := 0; y < height; y++ {
			dst.Pix[yi] = uint8(sum / norm)

			sum -= outSum
			outSum -= stackIn.v

			p := y + radius + 1
			if p > heightMinus1 {
				p = heightMinus1
			}
			stackIn.v = uint32(dst.Pix[p*width+x])
			inSum += stackIn.v
			sum += inSum
			stackIn = stackIn.next

			pv = stackOut.v
			outSum += pv
			inSum -= pv
			stackOut = stackOut.next

			yi += width
		}
	}
	return dst
}
