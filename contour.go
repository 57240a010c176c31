package eyeguard

import (
	"image"
	"math"
)

// Contour is the closed external boundary of a foreground blob, in pixel
// coordinates of the binary image it was traced from.
type Contour []image.Point

// Moore neighborhood in clockwise order, starting west.
var mooreOffsets = [8]image.Point{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

// FindContours extracts the external boundary of every 8-connected
// foreground component of a binary image, by Moore neighbor tracing.
// Components are visited in raster order.
func FindContours(bin *image.Gray) []Contour {
	b := bin.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	fg := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && bin.GrayAt(b.Min.X+x, b.Min.Y+y).Y != 0
	}

	visited := make([]bool, w*h)
	var contours []Contour

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !fg(x, y) || visited[y*w+x] {
				continue
			}
			start := image.Pt(x, y)
			contours = append(contours, traceBoundary(fg, start, w, h))
			markComponent(fg, visited, start, w, h)
		}
	}
	return contours
}

// traceBoundary walks the component boundary clockwise starting from its
// raster-order first pixel, whose west neighbor is guaranteed background.
func traceBoundary(fg func(x, y int) bool, start image.Point, w, h int) Contour {
	contour := Contour{start}
	prev := start.Add(mooreOffsets[0])
	cur := start

	// The walk revisits the start once when the boundary closes; the hard
	// bound covers degenerate one pixel wide spurs.
	for step := 0; step < 4*w*h+8; step++ {
		from := 0
		for i, off := range mooreOffsets {
			if cur.Add(off) == prev {
				from = i
				break
			}
		}

		next := cur
		found := false
		for i := 1; i <= 8; i++ {
			off := mooreOffsets[(from+i)%8]
			n := cur.Add(off)
			if fg(n.X, n.Y) {
				next = n
				found = true
				break
			}
			prev = n
		}
		if !found {
			// Isolated pixel.
			return contour
		}
		if next == start && len(contour) > 1 {
			return contour
		}
		contour = append(contour, next)
		cur = next
	}
	return contour
}

// markComponent flood fills the 8-connected component as visited.
func markComponent(fg func(x, y int) bool, visited []bool, start image.Point, w, h int) {
	stack := []image.Point{start}
	visited[start.Y*w+start.X] = true
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, off := range mooreOffsets {
			n := p.Add(off)
			if fg(n.X, n.Y) && !visited[n.Y*w+n.X] {
				visited[n.Y*w+n.X] = true
				stack = append(stack, n)
			}
		}
	}
}

// Area returns the polygon area enclosed by the contour (shoelace formula).
func (c Contour) Area() float64 {
	if len(c) < 3 {
		return 0
	}
	var sum float64
	for i, p := range c {
		q := c[(i+1)%len(c)]
		sum += float64(p.X)*float64(q.Y) - float64(q.X)*float64(p.Y)
	}
	return math.Abs(sum) / 2
}

// Perimeter returns the closed arc length of the contour.
func (c Contour) Perimeter() float64 {
	if len(c) < 2 {
		return 0
	}
	var sum float64
	for i, p := range c {
		q := c[(i+1)%len(c)]
		sum += math.Hypot(float64(q.X-p.X), float64(q.Y-p.Y))
	}
	return sum
}

// Circularity returns 4*pi*area/perimeter^2, the unit circle scoring 1.
// Zero perimeter contours score zero.
func (c Contour) Circularity() float64 {
	p := c.Perimeter()
	if p == 0 {
		return 0
	}
	return 4 * math.Pi * c.Area() / (p * p)
}

// Centroid returns the center of mass of the enclosed polygon, falling back
// to the mean of the boundary points for degenerate contours.
func (c Contour) Centroid() (float64, float64) {
	if len(c) == 0 {
		return 0, 0
	}
	var cx, cy, a float64
	for i, p := range c {
		q := c[(i+1)%len(c)]
		cross := float64(p.X)*float64(q.Y) - float64(q.X)*float64(p.Y)
		cx += (float64(p.X) + float64(q.X)) * cross
		cy += (float64(p.Y) + float64(q.Y)) * cross
		a += cross
	}
	if a != 0 {
		return cx / (3 * a), cy / (3 * a)
	}
	var sx, sy float64
	for _, p := range c {
		sx += float64(p.X)
		sy += float64(p.Y)
	}
	n := float64(len(c))
	return sx / n, sy / n
}

// BoundingRect returns the axis aligned bounding box of the contour.
func (c Contour) BoundingRect() image.Rectangle {
	if len(c) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: c[0], Max: c[0].Add(image.Pt(1, 1))}
	for _, p := range c[1:] {
		if p.X < r.Min.X {
			r.Min.X = p.X
		}
		if p.Y < r.Min.Y {
			r.Min.Y = p.Y
		}
		if p.X >= r.Max.X {
			r.Max.X = p.X + 1
		}
		if p.Y >= r.Max.Y {
			r.Max.Y = p.Y + 1
		}
	}
	return r
}

// MinEnclosingCircle returns the center and radius of the smallest circle
// containing every contour point (Welzl's algorithm).
func (c Contour) MinEnclosingCircle() (cx, cy, r float64) {
	pts := make([][2]float64, len(c))
	for i, p := range c {
		pts[i] = [2]float64{float64(p.X), float64(p.Y)}
	}
	circle := welzl(pts, nil)
	return circle[0], circle[1], circle[2]
}

func welzl(pts, boundary [][2]float64) [3]float64 {
	if len(pts) == 0 || len(boundary) == 3 {
		return trivialCircle(boundary)
	}
	p := pts[len(pts)-1]
	c := welzl(pts[:len(pts)-1], boundary)
	if dist2(p[0], p[1], c[0], c[1]) <= c[2]*c[2]+1e-9 {
		return c
	}
	next := make([][2]float64, len(boundary), len(boundary)+1)
	copy(next, boundary)
	return welzl(pts[:len(pts)-1], append(next, p))
}

func trivialCircle(b [][2]float64) [3]float64 {
	switch len(b) {
	case 0:
		return [3]float64{0, 0, 0}
	case 1:
		return [3]float64{b[0][0], b[0][1], 0}
	case 2:
		cx, cy := (b[0][0]+b[1][0])/2, (b[0][1]+b[1][1])/2
		return [3]float64{cx, cy, math.Sqrt(dist2(cx, cy, b[0][0], b[0][1]))}
	}
	return circumcircle(b[0], b[1], b[2])
}

func circumcircle(a, b, c [2]float64) [3]float64 {
	ax, ay := a[0], a[1]
	bx, by := b[0]-ax, b[1]-ay
	cx, cy := c[0]-ax, c[1]-ay

	d := 2 * (bx*cy - by*cx)
	if d == 0 {
		// Collinear points: fall back to the widest pair.
		best := [3]float64{}
		pairs := [][2][2]float64{{a, b}, {a, c}, {b, c}}
		for _, pr := range pairs {
			ux, uy := (pr[0][0]+pr[1][0])/2, (pr[0][1]+pr[1][1])/2
			r := math.Sqrt(dist2(ux, uy, pr[0][0], pr[0][1]))
			if r > best[2] {
				best = [3]float64{ux, uy, r}
			}
		}
		return best
	}
	ux := (cy*(bx*bx+by*by) - by*(cx*cx+cy*cy)) / d
	uy := (bx*(cx*cx+cy*cy) - cx*(bx*bx+by*by)) / d
	return [3]float64{ax + ux, ay + uy, math.Hypot(ux, uy)}
}

func dist2(x0, y0, x1, y1 float64) float64 {
	dx, dy := x1-x0, y1-y0
	return dx*dx + dy*dy
}

// EllipseAxes fits an ellipse of inertia to the boundary points and returns
// the major and minor axis lengths. At least five points are required,
// matching the minimum for a determined ellipse fit.
func (c Contour) EllipseAxes() (major, minor float64, ok bool) {
	if len(c) < 5 {
		return 0, 0, false
	}
	var mx, my float64
	for _, p := range c {
		mx += float64(p.X)
		my += float64(p.Y)
	}
	n := float64(len(c))
	mx /= n
	my /= n

	var mu20, mu02, mu11 float64
	for _, p := range c {
		dx, dy := float64(p.X)-mx, float64(p.Y)-my
		mu20 += dx * dx
		mu02 += dy * dy
		mu11 += dx * dy
	}
	mu20 /= n
	mu02 /= n
	mu11 /= n

	common := math.Sqrt(math.Pow((mu20-mu02)/2, 2) + mu11*mu11)
	l1 := (mu20+mu02)/2 + common
	l2 := (mu20+mu02)/2 - common
	if l2 < 0 {
		l2 = 0
	}
	// Boundary points of an ellipse have a variance of half the squared
	// semi-axis along each principal direction.
	return 2 * math.Sqrt(2*l1), 2 * math.Sqrt(2*l2), true
}

// PointPolygonTest returns the signed distance from a point to the contour:
// positive inside, negative outside and zero on the boundary.
func (c Contour) PointPolygonTest(pt image.Point) float64 {
	if len(c) == 0 {
		return -math.MaxFloat64
	}
	px, py := float64(pt.X), float64(pt.Y)

	minDist := math.MaxFloat64
	inside := false
	for i, a := range c {
		b := c[(i+1)%len(c)]
		ax, ay := float64(a.X), float64(a.Y)
		bx, by := float64(b.X), float64(b.Y)

		if d := segmentDist(px, py, ax, ay, bx, by); d < minDist {
			minDist = d
		}

		// Even-odd ray cast.
		if (ay > py) != (by > py) {
			xCross := ax + (py-ay)*(bx-ax)/(by-ay)
			if px < xCross {
				inside = !inside
			}
		}
	}
	if minDist < 1e-9 {
		return 0
	}
	if inside {
		return minDist
	}
	return -minDist
}

func segmentDist(px, py, ax, ay, bx, by float64) float64 {
	dx, dy := bx-ax, by-ay
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Sqrt(dist2(px, py, ax, ay))
	}
	t := ((px-ax)*dx + (py-ay)*dy) / l2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return math.Sqrt(dist2(px, py, ax+t*dx, ay+t*dy))
}
