package transform

import (
	"gonum.org/v1/gonum/mat"
)

// Point is a single 2-D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// homogeneous converts a point set to an N x 3 matrix of homogeneous row
// vectors [x y 1]. The caller must not pass an empty set.
func homogeneous(pts []Point) *mat.Dense {
	h := mat.NewDense(len(pts), 3, nil)
	for i, p := range pts {
		h.Set(i, 0, p.X)
		h.Set(i, 1, p.Y)
		h.Set(i, 2, 1)
	}
	return h
}

// dehomogenize converts N x 3 homogeneous row vectors back to points,
// dividing each row by its w component.
func dehomogenize(h mat.Matrix) []Point {
	n, _ := h.Dims()
	pts := make([]Point, n)
	for i := range pts {
		w := h.At(i, 2)
		pts[i] = Point{X: h.At(i, 0) / w, Y: h.At(i, 1) / w}
	}
	return pts
}

// centroid returns the mean of a non-empty point set.
func centroid(pts []Point) (x, y float64) {
	for _, p := range pts {
		x += p.X
		y += p.Y
	}
	n := float64(len(pts))
	return x / n, y / n
}
