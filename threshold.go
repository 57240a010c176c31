package eyeguard

import (
	"image"
)

// adaptiveBlockSize is the side of the neighborhood window used by the
// locally normalized threshold.
const adaptiveBlockSize = 11

// AdaptiveThreshold binarizes a grayscale image against the mean of each
// pixel's local neighborhood, producing an inverted binary image: pixels
// darker than their surroundings by more than the offset become foreground
// (255). Local normalization separates the dark pupil from other dark
// areas such as eyebrows and shadows, which a fixed threshold cannot do
// under uneven lighting.
func AdaptiveThreshold(src *image.Gray, offset int) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return dst
	}

	// Summed-area table with one extra row and column of zeros.
	integral := make([]int64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var rowSum int64
		for x := 0; x < w; x++ {
			rowSum += int64(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			integral[(y+1)*(w+1)+x+1] = integral[y*(w+1)+x+1] + rowSum
		}
	}

	half := adaptiveBlockSize / 2
	for y := 0; y < h; y++ {
		y0, y1 := max(0, y-half), min(h-1, y+half)
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-half), min(w-1, x+half)

			area := int64(x1-x0+1) * int64(y1-y0+1)
			sum := integral[(y1+1)*(w+1)+x1+1] -
				integral[y0*(w+1)+x1+1] -
				integral[(y1+1)*(w+1)+x0] +
				integral[y0*(w+1)+x0]
			mean := sum / area

			if int64(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y) < mean-int64(offset) {
				dst.Pix[y*dst.Stride+x] = 255
			}
		}
	}
	return dst
}

// OtsuThreshold binarizes a grayscale image with the threshold maximizing
// the between-class variance of the intensity histogram. Pixels above the
// threshold become foreground (255).
func OtsuThreshold(src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	total := w * h
	if total == 0 {
		return dst
	}

	var hist [256]int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[src.GrayAt(x, y).Y]++
		}
	}

	var sumAll float64
	for i, n := range hist {
		sumAll += float64(i) * float64(n)
	}

	var (
		sumBack, wBack float64
		bestVar        float64
		threshold      int
	)
	for t := 0; t < 256; t++ {
		wBack += float64(hist[t])
		if wBack == 0 {
			continue
		}
		wFore := float64(total) - wBack
		if wFore == 0 {
			break
		}
		sumBack += float64(t) * float64(hist[t])

		mBack := sumBack / wBack
		mFore := (sumAll - sumBack) / wFore
		between := wBack * wFore * (mBack - mFore) * (mBack - mFore)
		if between > bestVar {
			bestVar = between
			threshold = t
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if int(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y) > threshold {
				dst.Pix[y*dst.Stride+x] = 255
			}
		}
	}
	return dst
}

// Dilate grows the binary foreground by a 3x3 kernel, iterations times.
func Dilate(src *image.Gray, iterations int) *image.Gray {
	return morph(src, iterations, true)
}

// Erode shrinks the binary foreground by a 3x3 kernel, iterations times.
func Erode(src *image.Gray, iterations int) *image.Gray {
	return morph(src, iterations, false)
}

// MorphClose closes small gaps in the foreground: dilate then erode.
func MorphClose(src *image.Gray, iterations int) *image.Gray {
	return Erode(Dilate(src, iterations), iterations)
}

// MorphOpen removes small speckle from the foreground: erode then dilate.
func MorphOpen(src *image.Gray, iterations int) *image.Gray {
	return Dilate(Erode(src, iterations), iterations)
}

func morph(src *image.Gray, iterations int, dilate bool) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	cur := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cur.Pix[y*cur.Stride+x] = src.GrayAt(b.Min.X+x, b.Min.Y+y).Y
		}
	}

	for it := 0; it < iterations; it++ {
		next := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out := !dilate
			kernel:
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := x+dx, y+dy
						// Pixels outside the image count as background.
						on := nx >= 0 && ny >= 0 && nx < w && ny < h &&
							cur.Pix[ny*cur.Stride+nx] != 0
						if dilate && on {
							out = true
							break kernel
						}
						if !dilate && !on {
							out = false
							break kernel
						}
					}
				}
				if out {
					next.Pix[y*next.Stride+x] = 255
				}
			}
		}
		cur = next
	}
	return cur
}
