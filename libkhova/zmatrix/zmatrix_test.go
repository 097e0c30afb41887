package zmatrix

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fine-structures/khova.SDK/khova"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNew(t *testing.T, cells [][]int64) *Matrix {
	M, err := New(cells)
	require.NoError(t, err)
	return M
}

func TestNewAndAccess(t *testing.T) {
	M := mustNew(t, [][]int64{{1, 0, -1}, {0, 2, 0}})
	assert.Equal(t, 2, M.Rows())
	assert.Equal(t, 3, M.Cols())
	assert.Equal(t, int64(-1), M.At(0, 2))
	assert.Equal(t, 3, M.NonZero())

	M.Set(1, 1, 0)
	assert.Equal(t, 2, M.NonZero())

	_, err := New([][]int64{{1, 2}, {3}})
	assert.True(t, errors.Is(err, khova.ErrBadDimension))

	var out strings.Builder
	M.WriteAsString(&out)
	assert.True(t, strings.HasPrefix(out.String(), "2 x 3\n"))
}

func TestEmpty(t *testing.T) {
	E, err := Empty(0, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, E.Rows())
	assert.Equal(t, 4, E.Cols())
	assert.True(t, E.IsZero())
	assert.Empty(t, E.SmithInvariants())

	E, err = Empty(3, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, E.Rows())

	for _, dims := range [][2]int{{0, 0}, {2, 2}, {-1, 0}} {
		_, err = Empty(dims[0], dims[1])
		assert.True(t, errors.Is(err, khova.ErrBadDimension), "%v", dims)
	}
}

func TestMul(t *testing.T) {
	A := mustNew(t, [][]int64{{1, 2}, {3, 4}})
	B := mustNew(t, [][]int64{{0, 1}, {1, 0}})
	P, err := A.Mul(B)
	require.NoError(t, err)
	assert.Equal(t, mustNew(t, [][]int64{{2, 1}, {4, 3}}), P)

	_, err = A.Mul(mustNew(t, [][]int64{{1, 2, 3}}))
	assert.True(t, errors.Is(err, khova.ErrBadDimension))
}

func TestSmithInvariants(t *testing.T) {
	cases := []struct {
		cells [][]int64
		want  []int64
	}{
		{[][]int64{{2, 4, 4}, {-6, 6, 12}, {10, -4, -16}}, []int64{2, 6, 12}},
		{[][]int64{{2, 0}, {0, 3}}, []int64{1, 6}},
		{[][]int64{{1, 1}, {1, -1}}, []int64{1, 2}},
		{[][]int64{{0, 0}, {0, 0}}, nil},
		{[][]int64{{4, 6}}, []int64{2}},
		{[][]int64{{1, 2}, {2, 4}, {3, 6}}, []int64{1}},
	}
	for _, tc := range cases {
		M := mustNew(t, tc.cells)
		before := M.Clone()
		assert.Equal(t, tc.want, M.SmithInvariants(), "%v", tc.cells)
		assert.Equal(t, before, M, "SmithInvariants modified its input")
		assert.Equal(t, len(tc.want), M.Rank())
	}
}

// Cellular chain complex of RP^2, one cell per dimension: C2 -2-> C1 -0-> C0.
func TestSolveTorsion(t *testing.T) {
	cx := NewBiComplex()

	d0, _ := Empty(0, 1)
	require.NoError(t, cx.SetDiff(khova.Bigrading{I: -2, J: 0}, mustNew(t, [][]int64{{2}})))
	require.NoError(t, cx.SetDiff(khova.Bigrading{I: -1, J: 0}, mustNew(t, [][]int64{{0}})))
	require.NoError(t, cx.SetDiff(khova.Bigrading{I: 0, J: 0}, d0))
	assert.Equal(t, 3, cx.Len())

	H, err := SNFSolver{}.Solve(context.Background(), cx)
	require.NoError(t, err)
	assert.True(t, khova.Homology{
		{I: -1, J: 0}: {Torsion: []int64{2}},
		{I: 0, J: 0}:  {Rank: 1},
	}.IsEqual(H), "%v", H)
}

func TestSolveExact(t *testing.T) {
	cx := NewBiComplex()
	require.NoError(t, cx.SetDiff(khova.Bigrading{I: 0, J: 1}, mustNew(t, [][]int64{{1, 0}, {0, -1}})))
	D, _ := Empty(0, 2)
	require.NoError(t, cx.SetDiff(khova.Bigrading{I: 1, J: 1}, D))

	H, err := SNFSolver{}.Solve(context.Background(), cx)
	require.NoError(t, err)
	assert.Empty(t, H)
}

func TestSolveInconsistent(t *testing.T) {
	cx := NewBiComplex()
	require.NoError(t, cx.SetDiff(khova.Bigrading{I: 0, J: 1}, mustNew(t, [][]int64{{1, 0}, {0, 1}, {1, 1}})))
	require.NoError(t, cx.SetDiff(khova.Bigrading{I: 1, J: 1}, mustNew(t, [][]int64{{1, 1}})))

	_, err := SNFSolver{}.Solve(context.Background(), cx)
	assert.True(t, errors.Is(err, khova.ErrBadDimension))

	err = cx.SetDiff(khova.Bigrading{I: 0, J: 1}, mustNew(t, [][]int64{{1}}))
	assert.True(t, errors.Is(err, khova.ErrBadDimension))
}

func TestSolveCancelled(t *testing.T) {
	cx := NewBiComplex()
	require.NoError(t, cx.SetDiff(khova.Bigrading{I: 0, J: 1}, mustNew(t, [][]int64{{1}})))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := SNFSolver{}.Solve(ctx, cx)
	assert.True(t, errors.Is(err, khova.ErrCancelled))
}
