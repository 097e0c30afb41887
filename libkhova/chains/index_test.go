package chains

import (
	"testing"

	"github.com/fine-structures/khova.SDK/khova"
	"github.com/fine-structures/khova.SDK/libkhova/link"
	"github.com/fine-structures/khova.SDK/libkhova/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildIndex(L *link.Link) *Index {
	tr := resolve.New(L)
	neg, pos := L.CrossingCounts()

	idx := NewIndex()
	for r := uint64(0); r < tr.NumResolutions(); r++ {
		c := tr.CircleCount(r)
		for m := uint64(0); m < uint64(1)<<c; m++ {
			idx.Add(Generator{r, m}, Grade(r, m, c, neg, pos))
		}
	}
	return idx
}

func TestUnknotGenerators(t *testing.T) {
	idx := buildIndex(link.MustParse("unknot", "[]"))

	assert.Equal(t, 2, idx.TotalGenerators())
	assert.Equal(t, 2, idx.TotalCells())
	assert.Equal(t, []khova.Bigrading{{0, -1}, {0, 1}}, idx.Gradings())
	assert.Equal(t, []Generator{{0, 0}}, idx.At(khova.Bigrading{0, -1}).Generators)
	assert.Equal(t, []Generator{{0, 1}}, idx.At(khova.Bigrading{0, 1}).Generators)
}

func TestTrefoilCells(t *testing.T) {
	idx := buildIndex(link.MustParse("3_1", "[+1-2+3-1+2-3] +++"))

	assert.Equal(t, 30, idx.TotalGenerators())
	assert.Equal(t, 12, idx.TotalCells())
	assert.Equal(t, []int{1, 3, 5, 7, 9}, idx.JGradings())

	sizes := map[khova.Bigrading]int{}
	for _, g := range idx.Gradings() {
		sizes[g] = idx.At(g).Len()
	}
	assert.Equal(t, map[khova.Bigrading]int{
		{0, 1}: 1,
		{0, 3}: 2, {1, 3}: 3, {2, 3}: 3, {3, 3}: 1,
		{0, 5}: 1, {1, 5}: 3, {2, 5}: 6, {3, 5}: 3,
		{2, 7}: 3, {3, 7}: 3,
		{3, 9}: 1,
	}, sizes)

	atJ := idx.CellsAtJ(7)
	require.Len(t, atJ, 2)
	assert.Equal(t, 3, atJ[2].Len())
	assert.Nil(t, idx.CellsAtJ(2))
	assert.Nil(t, idx.CellsAtJ(-1))
	assert.Nil(t, idx.CellsAtJ(11))

	for _, j := range idx.JGradings() {
		n := 0
		for i, cell := range idx.CellsAtJ(j) {
			assert.Equal(t, khova.Bigrading{I: i, J: j}, cell.Grading)
			n++
		}
		expect := 0
		for _, g := range idx.Gradings() {
			if g.J == j {
				expect++
			}
		}
		assert.Equal(t, expect, n, "j = %d", j)
	}
	assert.Len(t, idx.CellsAtJ(1), 1)
	assert.Len(t, idx.CellsAtJ(9), 1)
	assert.Len(t, idx.CellsAtJ(3), 4)
	assert.Nil(t, idx.At(khova.Bigrading{1, 7}))

	assert.Equal(t, map[int]int64{1: 1, 3: 1, 5: 1, 9: -1}, idx.Euler())
}

func TestGeneratorsUnique(t *testing.T) {
	idx := buildIndex(link.MustParse("", "braid(3: 1 -2 1 -2)"))

	seen := map[Generator]bool{}
	for _, g := range idx.Gradings() {
		for _, gen := range idx.At(g).Generators {
			require.False(t, seen[gen], "%v", gen)
			seen[gen] = true
		}
	}
	assert.Equal(t, idx.TotalGenerators(), len(seen))
}

func TestGrade(t *testing.T) {
	assert.Equal(t, khova.Bigrading{I: 0, J: 1}, Grade(0, 1, 1, 0, 0))
	assert.Equal(t, khova.Bigrading{I: 0, J: -1}, Grade(0, 0, 1, 0, 0))

	// all-1 resolution of the trefoil, three v+ circles
	assert.Equal(t, khova.Bigrading{I: 3, J: 9}, Grade(7, 7, 3, 0, 3))

	var nilCell *Cell
	assert.Equal(t, 0, nilCell.Len())
}
