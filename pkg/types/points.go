package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// maxCoord bounds each coordinate so it fits an int on every platform.
const maxCoord = math.MaxInt32

// Point is a voxel coordinate (x, y, z).
type Point [3]int

// PointSet is an ordered, non-empty list of points.
type PointSet struct {
	Points []Point
}

// ParsePointSet decodes a bracketed array such as "[[70,172,86],[105,161,180]]".
// Fractional coordinates are truncated toward zero.
func ParsePointSet(s string) (PointSet, error) {
	var ps PointSet
	s = strings.TrimSpace(s)
	if s == "" {
		return ps, fmt.Errorf("empty point set")
	}
	var raw [][]float64
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return ps, fmt.Errorf("invalid point set: %w", err)
	}
	if len(raw) == 0 {
		return ps, fmt.Errorf("empty point set")
	}
	ps.Points = make([]Point, 0, len(raw))
	for i, p := range raw {
		if len(p) != 3 {
			return PointSet{}, fmt.Errorf("invalid point set: point %d has %d components, want 3", i, len(p))
		}
		for _, v := range p {
			if math.Abs(math.Trunc(v)) > maxCoord {
				return PointSet{}, fmt.Errorf("invalid point set: point %d coordinate %g out of range", i, v)
			}
		}
		ps.Points = append(ps.Points, Point{int(p[0]), int(p[1]), int(p[2])})
	}
	return ps, nil
}

func (ps PointSet) Len() int { return len(ps.Points) }

func (ps PointSet) Empty() bool { return len(ps.Points) == 0 }

// JSON returns the bracketed-array form sent to the server.
func (ps PointSet) JSON() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, p := range ps.Points {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "[%d,%d,%d]", p[0], p[1], p[2])
	}
	b.WriteByte(']')
	return b.String()
}

// Bounds returns the per-axis minimum and maximum over all points.
// The zero values are returned for an empty set.
func (ps PointSet) Bounds() (min, max Point) {
	for i, p := range ps.Points {
		for a := 0; a < 3; a++ {
			if i == 0 || p[a] < min[a] {
				min[a] = p[a]
			}
			if i == 0 || p[a] > max[a] {
				max[a] = p[a]
			}
		}
	}
	return min, max
}
