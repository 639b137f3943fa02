// Package trixel maps geographic coordinates onto the hierarchical
// triangular mesh (HTM) used by the trixel sensor network. A trixel ID
// encodes the path from one of the eight root triangles down to the cell
// containing a location: two bits per subdivision level below the root.
package trixel

import (
	"math"
	"math/bits"

	"github.com/trixelnet/contributor/pkg/errors"
)

// MaxSupportedDepth is the finest subdivision level the mesh supports.
const MaxSupportedDepth = 24

// ID identifies a single trixel. Root trixels occupy 8..15, each
// subdivision appends two bits: child = parent<<2 | index.
type ID uint64

// containment tolerance for points that fall exactly on a trixel edge
const edgeEpsilon = -1e-12

type vector struct {
	x, y, z float64
}

var rootVertices = [6]vector{
	{0, 0, 1},
	{1, 0, 0},
	{0, 1, 0},
	{-1, 0, 0},
	{0, -1, 0},
	{0, 0, -1},
}

// Root triangles in ID order 8..15 (S0-S3, N0-N3), indices into rootVertices.
var rootFaces = [8][3]int{
	{1, 5, 2},
	{2, 5, 3},
	{3, 5, 4},
	{4, 5, 1},
	{1, 0, 4},
	{4, 0, 3},
	{3, 0, 2},
	{2, 0, 1},
}

// Locate returns the trixel containing the given coordinate at the given
// depth. Depth 0 selects one of the eight root trixels. The result is
// deterministic: identical inputs always produce the identical ID, points
// on a shared edge resolve to the lowest-numbered candidate.
func Locate(latitude, longitude float64, depth int) (ID, error) {
	if depth < 0 || depth > MaxSupportedDepth {
		return 0, errors.ErrInvalidDepth
	}

	p := toVector(latitude, longitude)

	var v0, v1, v2 vector
	id := ID(0)
	for i, face := range rootFaces {
		a := rootVertices[face[0]]
		b := rootVertices[face[1]]
		c := rootVertices[face[2]]
		if contains(a, b, c, p) {
			id = ID(8 + i)
			v0, v1, v2 = a, b, c

			break
		}
	}
	if id == 0 {
		// Numerically on a root seam; snap to the nearest face center.
		face := nearestRootFace(p)
		id = ID(8 + face)
		v0 = rootVertices[rootFaces[face][0]]
		v1 = rootVertices[rootFaces[face][1]]
		v2 = rootVertices[rootFaces[face][2]]
	}

	for level := 0; level < depth; level++ {
		w0 := midpoint(v1, v2)
		w1 := midpoint(v0, v2)
		w2 := midpoint(v0, v1)

		switch {
		case contains(v0, w2, w1, p):
			id = id<<2 | 0
			v1, v2 = w2, w1
		case contains(v1, w0, w2, p):
			id = id<<2 | 1
			v0, v1, v2 = v1, w0, w2
		case contains(v2, w1, w0, p):
			id = id<<2 | 2
			v0, v1, v2 = v2, w1, w0
		default:
			id = id<<2 | 3
			v0, v1, v2 = w0, w1, w2
		}
	}

	return id, nil
}

// Depth reports the subdivision level encoded in an ID.
func Depth(id ID) int {
	return (bits.Len64(uint64(id)) - 4) / 2
}

// Parent returns the enclosing trixel one level up. Root trixels are their
// own parent.
func Parent(id ID) ID {
	if id < 32 {
		return id
	}

	return id >> 2
}

func toVector(latitude, longitude float64) vector {
	lat := latitude * math.Pi / 180
	lon := longitude * math.Pi / 180

	return vector{
		x: math.Cos(lat) * math.Cos(lon),
		y: math.Cos(lat) * math.Sin(lon),
		z: math.Sin(lat),
	}
}

func contains(a, b, c, p vector) bool {
	return dot(cross(a, b), p) >= edgeEpsilon &&
		dot(cross(b, c), p) >= edgeEpsilon &&
		dot(cross(c, a), p) >= edgeEpsilon
}

func nearestRootFace(p vector) int {
	best := 0
	bestDot := math.Inf(-1)
	for i, face := range rootFaces {
		center := normalize(vector{
			x: rootVertices[face[0]].x + rootVertices[face[1]].x + rootVertices[face[2]].x,
			y: rootVertices[face[0]].y + rootVertices[face[1]].y + rootVertices[face[2]].y,
			z: rootVertices[face[0]].z + rootVertices[face[1]].z + rootVertices[face[2]].z,
		})
		if d := dot(center, p); d > bestDot {
			bestDot = d
			best = i
		}
	}

	return best
}

func midpoint(a, b vector) vector {
	return normalize(vector{x: a.x + b.x, y: a.y + b.y, z: a.z + b.z})
}

func normalize(v vector) vector {
	n := math.Sqrt(v.x*v.x + v.y*v.y + v.z*v.z)

	return vector{x: v.x / n, y: v.y / n, z: v.z / n}
}

func cross(a, b vector) vector {
	return vector{
		x: a.y*b.z - a.z*b.y,
		y: a.z*b.x - a.x*b.z,
		z: a.x*b.y - a.y*b.x,
	}
}

func dot(a, b vector) float64 {
	return a.x*b.x + a.y*b.y + a.z*b.z
}
