// Package differential builds the matrices of the Khovanov differential between adjacent cells.
package differential

import (
	"math/bits"
	"slices"
	"sync"

	"github.com/fine-structures/khova.SDK/khova"
	"github.com/fine-structures/khova.SDK/libkhova/chains"
	"github.com/fine-structures/khova.SDK/libkhova/resolve"
	"github.com/fine-structures/khova.SDK/libkhova/zmatrix"
	"github.com/pkg/errors"
)

// MoveKind says whether changing a smoothing joins two circles or cuts one in two.
type MoveKind int8

const (
	Merge MoveKind = iota + 1
	Split
)

func (k MoveKind) String() string {
	switch k {
	case Merge:
		return "merge"
	case Split:
		return "split"
	}
	return "invalid"
}

// Move describes the edge of the cube from resolution r1 to r2 = r1 | 1<<Crossing.
//
// From lists the indices of the circles of r1 that the edge touches; To lists those of r2.  A Merge
// has len(From) == 2, len(To) == 1 and a Split the reverse.
type Move struct {
	Kind     MoveKind
	Crossing int
	From     []int
	To       []int
}

// Builder computes differential entries for one link.  It is safe for concurrent use.
type Builder struct {
	tracer  *resolve.Tracer
	circles sync.Map // uint64 -> []resolve.Circle
}

func New(tracer *resolve.Tracer) *Builder {
	return &Builder{
		tracer: tracer,
	}
}

func (b *Builder) circlesOf(resol uint64) []resolve.Circle {
	if v, ok := b.circles.Load(resol); ok {
		return v.([]resolve.Circle)
	}
	v, _ := b.circles.LoadOrStore(resol, b.tracer.Circles(resol))
	return v.([]resolve.Circle)
}

// EdgeSign returns the sign of the cube edge leaving resolution r1 along crossing k of an n-crossing link:
// +1 if n-k-1 minus the number of 1-smoothings above k is even, else -1.
func EdgeSign(n int, r1 uint64, k int) int {
	if (n-k-1-bits.OnesCount64(r1>>(k+1)))%2 == 0 {
		return 1
	}
	return -1
}

// Move returns the edge from r1 to r2, or false if r2 is not r1 with one more 1-smoothing.
func (b *Builder) Move(r1, r2 uint64) (Move, bool) {
	x := r1 ^ r2
	if bits.OnesCount64(x) != 1 || r1&r2 != r1 {
		return Move{}, false
	}

	c1 := b.circlesOf(r1)
	c2 := b.circlesOf(r2)
	mv := Move{
		Crossing: bits.TrailingZeros64(x),
		From:     touched(c1, c2),
		To:       touched(c2, c1),
	}

	switch {
	case len(mv.From) == 2 && len(mv.To) == 1:
		mv.Kind = Merge
	case len(mv.From) == 1 && len(mv.To) == 2:
		mv.Kind = Split
	default:
		return Move{}, false
	}
	return mv, true
}

// touched returns the indices of the circles of a that are not also circles of b.
func touched(a, b []resolve.Circle) []int {
	var idx []int
	for i, ci := range a {
		found := false
		for _, cj := range b {
			if slices.Equal(ci, cj) {
				found = true
				break
			}
		}
		if !found {
			idx = append(idx, i)
		}
	}
	return idx
}

// dropBits removes the bits at the given (ascending) positions from m, shifting higher bits down.
func dropBits(m uint64, idx []int) uint64 {
	for i := len(idx) - 1; i >= 0; i-- {
		k := idx[i]
		low := m & (uint64(1)<<k - 1)
		m = (m>>(k+1))<<k | low
	}
	return m
}

func bit(m uint64, k int) uint64 {
	return (m >> k) & 1
}

// apply reports whether the edge maps labeling m1 to labeling m2 with a nonzero coefficient.
func (mv *Move) apply(m1, m2 uint64) bool {
	if dropBits(m1, mv.From) != dropBits(m2, mv.To) {
		return false
	}

	switch mv.Kind {
	case Merge:
		a, c, out := bit(m1, mv.From[0]), bit(m1, mv.From[1]), bit(m2, mv.To[0])
		return (a != c && out == 0) || (a == 1 && c == 1 && out == 1)
	case Split:
		in, a, c := bit(m1, mv.From[0]), bit(m2, mv.To[0]), bit(m2, mv.To[1])
		return (a != c && in == 1) || (in == 0 && a == 0 && c == 0)
	}
	return false
}

// Entry returns the coefficient of the differential from generator from to generator to: 0 or ±1.
func (b *Builder) Entry(from, to chains.Generator) int {
	mv, ok := b.Move(from.Resolution, to.Resolution)
	if !ok || !mv.apply(from.Labeling, to.Labeling) {
		return 0
	}
	return EdgeSign(b.tracer.NumCrossings(), from.Resolution, mv.Crossing)
}

// Build returns the differential from src to dst with one row per dst generator and one column per src
// generator.  Either cell may be nil (absent); the result is then degenerate with 0 rows or 0 cols.
func (b *Builder) Build(src, dst *chains.Cell) (*zmatrix.Matrix, error) {
	rows, cols := dst.Len(), src.Len()
	if rows == 0 || cols == 0 {
		if rows == 0 && cols == 0 {
			return nil, errors.Wrap(khova.ErrBadDimension, "both cells absent")
		}
		return zmatrix.Empty(rows, cols)
	}

	D, err := zmatrix.Zero(rows, cols)
	if err != nil {
		return nil, err
	}

	type edge struct{ r1, r2 uint64 }
	moves := make(map[edge]*Move)
	n := b.tracer.NumCrossings()

	for c, from := range src.Generators {
		for r, to := range dst.Generators {
			e := edge{from.Resolution, to.Resolution}
			mv, seen := moves[e]
			if !seen {
				if m, ok := b.Move(e.r1, e.r2); ok {
					mv = &m
				}
				moves[e] = mv
			}
			if mv != nil && mv.apply(from.Labeling, to.Labeling) {
				D.Set(r, c, int64(EdgeSign(n, from.Resolution, mv.Crossing)))
			}
		}
	}
	return D, nil
}
