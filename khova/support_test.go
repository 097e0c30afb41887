package khova

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trefoil() Homology {
	return Homology{
		{0, 1}: {Rank: 1},
		{0, 3}: {Rank: 1},
		{2, 5}: {Rank: 1},
		{3, 7}: {Torsion: []int64{2}},
		{3, 9}: {Rank: 1},
	}
}

func TestHomologyEntries(t *testing.T) {
	entries := trefoil().Entries()
	require.Len(t, entries, 5)

	var got []Bigrading
	for _, e := range entries {
		got = append(got, e.Bigrading)
	}
	assert.Equal(t, []Bigrading{{0, 1}, {0, 3}, {2, 5}, {3, 7}, {3, 9}}, got)
	assert.Equal(t, 4, trefoil().TotalRank())
}

func TestHomologyEuler(t *testing.T) {
	chi := trefoil().Euler()
	assert.Equal(t, map[int]int64{1: 1, 3: 1, 5: 1, 9: -1}, chi)
	assert.Equal(t, "q + q^3 + q^5 - q^9", FormatLaurent(chi, "q"))
	assert.Equal(t, "-2q^-3 + 1 + q", FormatLaurent(map[int]int64{-3: -2, 0: 1, 1: 1}, "q"))
	assert.Equal(t, "0", FormatLaurent(nil, "q"))
}

func TestHomologyIsEqual(t *testing.T) {
	H := trefoil()
	assert.True(t, H.IsEqual(trefoil()))

	H[Bigrading{3, 7}] = Group{Torsion: []int64{3}}
	assert.False(t, H.IsEqual(trefoil()))

	delete(H, Bigrading{3, 7})
	assert.False(t, H.IsEqual(trefoil()))
}

func TestHomologyWriteAsString(t *testing.T) {
	var out strings.Builder
	trefoil().WriteAsString(&out, PrintOpts{Torsion: true, Euler: true})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "   3    7   Z/2", lines[3])
	assert.Equal(t, "chi = q + q^3 + q^5 - q^9", lines[5])

	out.Reset()
	trefoil().WriteAsString(&out, PrintOpts{})
	assert.NotContains(t, out.String(), "Z/2")
}

func TestGroupString(t *testing.T) {
	assert.Equal(t, "0", Group{}.String())
	assert.Equal(t, "Z", Group{Rank: 1}.String())
	assert.Equal(t, "Z^3 + Z/2 + Z/4", Group{Rank: 3, Torsion: []int64{2, 4}}.String())
}

func TestRunState(t *testing.T) {
	assert.Equal(t, "Solving", Solving.String())
	assert.False(t, Solving.IsTerminal())
	assert.True(t, Cancelled.IsTerminal())
	assert.Equal(t, "RunState(?)", RunState(42).String())
}

func TestCatalogContextClose(t *testing.T) {
	ctx := NewCatalogContext()
	ctx.Close()
	<-ctx.Done()
}
