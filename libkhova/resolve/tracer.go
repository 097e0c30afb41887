// Package resolve traces the circles a resolution of a link diagram splits into.
//
// A resolution assigns a 0- or 1-smoothing to every crossing (bit k for crossing k).  Smoothings are
// defined relative to orientation, so the resolution is XORed with the crossing-sign mask before its
// bits select the local step taken at each crossing.
package resolve

import (
	"github.com/fine-structures/khova.SDK/khova"
)

// Circle is a closed walk through link-code positions, recorded as (visited, stepped) pairs and
// starting at its smallest position.
type Circle []int32

const consumed = int32(-1)

// Tracer resolves a Link.  It holds no mutable state and is safe for concurrent use.
type Tracer struct {
	code     []int32
	mask     uint64
	numCross int
	unlinked int
}

func New(L khova.Link) *Tracer {
	code := L.Code()
	signs := L.Signs()

	t := &Tracer{
		code:     make([]int32, len(code)),
		numCross: L.NumCrossings(),
	}
	for i, c := range code {
		t.code[i] = int32(c)
	}
	for k := len(signs) - 1; k >= 0; k-- {
		t.mask <<= 1
		if signs[k] {
			t.mask |= 1
		}
	}
	for _, compo := range L.Gauss() {
		if len(compo) == 0 {
			t.unlinked++
		}
	}
	return t
}

// NumCrossings returns the crossing count n; resolutions range over [0, 2^n).
func (t *Tracer) NumCrossings() int {
	return t.numCross
}

// NumResolutions returns 2^n.
func (t *Tracer) NumResolutions() uint64 {
	return uint64(1) << t.numCross
}

// Mask returns the crossing-sign mask (bit k is set if crossing k is positive).
func (t *Tracer) Mask() uint64 {
	return t.mask
}

// Unlinked returns the number of crossing-free components, each adding one circle to every resolution.
func (t *Tracer) Unlinked() int {
	return t.unlinked
}

// CircleCount returns the number of circles of the given resolution, including unlinked circles.
func (t *Tracer) CircleCount(resol uint64) int {
	count, _ := t.trace(resol, false)
	return count + t.unlinked
}

// Circles returns the circles of the given resolution that pass through at least one crossing,
// ordered by their smallest position.  Unlinked circles are not listed.
func (t *Tracer) Circles(resol uint64) []Circle {
	_, circles := t.trace(resol, true)
	return circles
}

// localStep moves from end pos to the end it is joined to inside its crossing.
//
//	marker bit 1:  0 <-> 1, 2 <-> 3
//	marker bit 0:  0 <-> 3, 1 <-> 2
func localStep(pos int32, bit uint64) int32 {
	if bit == 1 {
		return pos ^ 1
	}
	base := pos &^ 3
	return base + 3 - (pos - base)
}

func (t *Tracer) trace(resol uint64, keepCircles bool) (count int, circles []Circle) {
	marker := resol ^ t.mask
	code := make([]int32, len(t.code))
	copy(code, t.code)

	for start := range code {
		if code[start] == consumed {
			continue
		}

		var circle Circle
		pos := int32(start)
		for {
			code[pos] = consumed
			next := localStep(pos, (marker>>(pos/4))&1)
			if keepCircles {
				circle = append(circle, pos, next)
			}
			pos = code[next]
			code[next] = consumed
			if code[pos] == consumed {
				break
			}
		}

		count++
		if keepCircles {
			circles = append(circles, circle)
		}
	}

	return count, circles
}
