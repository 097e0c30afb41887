package zmatrix

import (
	"context"
	"sort"
	"sync"

	"github.com/fine-structures/khova.SDK/khova"
	"github.com/pkg/errors"
)

// BiComplex holds the differentials of a bigraded chain complex: the matrix set at (i, j) maps the
// chain group at (i, j) to the one at (i+1, j).
//
// Differentials may be set concurrently; each Bigrading is set at most once.
type BiComplex struct {
	mu    sync.Mutex
	diffs map[khova.Bigrading]*Matrix
}

func NewBiComplex() *BiComplex {
	return &BiComplex{
		diffs: make(map[khova.Bigrading]*Matrix),
	}
}

// SetDiff stores the differential leaving the given Bigrading.
func (cx *BiComplex) SetDiff(at khova.Bigrading, D *Matrix) error {
	cx.mu.Lock()
	defer cx.mu.Unlock()

	if _, exists := cx.diffs[at]; exists {
		return errors.Wrapf(khova.ErrBadDimension, "differential at (%d, %d) already set", at.I, at.J)
	}
	cx.diffs[at] = D
	return nil
}

// Diff returns the differential leaving the given Bigrading, or nil.
func (cx *BiComplex) Diff(at khova.Bigrading) *Matrix {
	cx.mu.Lock()
	defer cx.mu.Unlock()
	return cx.diffs[at]
}

// Len returns the number of differentials set.
func (cx *BiComplex) Len() int {
	cx.mu.Lock()
	defer cx.mu.Unlock()
	return len(cx.diffs)
}

// Gradings returns the Bigradings with a differential set, ordered by J and then I.
func (cx *BiComplex) Gradings() []khova.Bigrading {
	cx.mu.Lock()
	gradings := make([]khova.Bigrading, 0, len(cx.diffs))
	for g := range cx.diffs {
		gradings = append(gradings, g)
	}
	cx.mu.Unlock()

	sort.Slice(gradings, func(a, b int) bool {
		return gradings[a].Compare(gradings[b]) < 0
	})
	return gradings
}

// SNFSolver computes homology from Smith normal forms.
//
// At each (i, j) with a differential set, the chain group has dimension D(i,j).Cols() and
//
//	H(i, j) = Z^(dim - rank D(i,j) - rank D(i-1,j))  +  Z/d for each invariant d > 1 of D(i-1,j)
type SNFSolver struct{}

func (SNFSolver) Solve(ctx context.Context, cx *BiComplex) (khova.Homology, error) {
	gradings := cx.Gradings()

	invariants := make(map[khova.Bigrading][]int64, len(gradings))
	for _, g := range gradings {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(khova.ErrCancelled, err.Error())
		}
		invariants[g] = cx.Diff(g).SmithInvariants()
	}

	H := make(khova.Homology)
	for _, g := range gradings {
		D := cx.Diff(g)
		dim := D.Cols()
		rank := dim - len(invariants[g])

		var torsion []int64
		prev := khova.Bigrading{I: g.I - 1, J: g.J}
		if Din := cx.Diff(prev); Din != nil {
			if Din.Rows() != dim {
				return nil, errors.Wrapf(khova.ErrBadDimension, "D(%d, %d) has %d rows but D(%d, %d) has %d cols",
					prev.I, prev.J, Din.Rows(), g.I, g.J, dim)
			}
			rank -= len(invariants[prev])
			for _, d := range invariants[prev] {
				if d > 1 {
					torsion = append(torsion, d)
				}
			}
		}

		G := khova.Group{Rank: rank, Torsion: torsion}
		if !G.IsTrivial() {
			H[g] = G
		}
	}

	return H, nil
}
