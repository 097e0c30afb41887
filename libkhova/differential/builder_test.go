package differential

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/fine-structures/khova.SDK/khova"
	"github.com/fine-structures/khova.SDK/libkhova/chains"
	"github.com/fine-structures/khova.SDK/libkhova/link"
	"github.com/fine-structures/khova.SDK/libkhova/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(L *link.Link) (*Builder, *chains.Index) {
	tr := resolve.New(L)
	neg, pos := L.CrossingCounts()

	idx := chains.NewIndex()
	for r := uint64(0); r < tr.NumResolutions(); r++ {
		c := tr.CircleCount(r)
		for m := uint64(0); m < uint64(1)<<c; m++ {
			idx.Add(chains.Generator{Resolution: r, Labeling: m}, chains.Grade(r, m, c, neg, pos))
		}
	}
	return New(tr), idx
}

func randomBraids(count int) []*link.Link {
	rng := rand.New(rand.NewSource(1))
	links := make([]*link.Link, 0, count)
	for len(links) < count {
		strands := 2 + rng.Intn(3)
		word := make([]int, 1+rng.Intn(6))
		for i := range word {
			word[i] = 1 + rng.Intn(strands-1)
			if rng.Intn(2) == 0 {
				word[i] = -word[i]
			}
		}
		L, err := link.FromBraid(fmt.Sprintf("braid%v", word), strands, word)
		if err != nil {
			continue
		}
		links = append(links, L)
	}
	return links
}

func TestDropBits(t *testing.T) {
	assert.Equal(t, uint64(0b101), dropBits(0b1101, []int{2}))
	assert.Equal(t, uint64(0b111), dropBits(0b11010, []int{0, 2}))
	assert.Equal(t, uint64(0b1011), dropBits(0b1011, nil))
	assert.Equal(t, uint64(1), dropBits(1<<63|1, []int{63}))
}

func TestEdgeSign(t *testing.T) {
	// three crossings, from resolution 000
	assert.Equal(t, 1, EdgeSign(3, 0, 0))
	assert.Equal(t, -1, EdgeSign(3, 0, 1))
	assert.Equal(t, 1, EdgeSign(3, 0, 2))

	// 1-smoothings above k flip the sign
	assert.Equal(t, -1, EdgeSign(3, 0b100, 0))
	assert.Equal(t, 1, EdgeSign(3, 0b110, 0))
}

func TestSquaresAnticommute(t *testing.T) {
	n := 5
	for r := uint64(0); r < 1<<n; r++ {
		for k := 0; k < n; k++ {
			for l := k + 1; l < n; l++ {
				if r&(1<<k) != 0 || r&(1<<l) != 0 {
					continue
				}
				viaK := EdgeSign(n, r, k) * EdgeSign(n, r|1<<k, l)
				viaL := EdgeSign(n, r, l) * EdgeSign(n, r|1<<l, k)
				require.Equal(t, -viaK, viaL, "r=%b k=%d l=%d", r, k, l)
			}
		}
	}
}

func TestMoves(t *testing.T) {
	for _, L := range randomBraids(30) {
		b, _ := setup(L)
		n := L.NumCrossings()
		for r := uint64(0); r < b.tracer.NumResolutions(); r++ {
			for k := 0; k < n; k++ {
				r2 := r | 1<<k
				if r2 == r {
					_, ok := b.Move(r, r^1<<k)
					require.False(t, ok)
					continue
				}
				mv, ok := b.Move(r, r2)
				require.True(t, ok, "%s r=%b k=%d", L.Name(), r, k)
				assert.Equal(t, k, mv.Crossing)

				delta := b.tracer.CircleCount(r2) - b.tracer.CircleCount(r)
				switch mv.Kind {
				case Merge:
					assert.Equal(t, -1, delta)
				case Split:
					assert.Equal(t, 1, delta)
				default:
					t.Fatalf("%s: bad move %v", L.Name(), mv.Kind)
				}
			}
		}
		if n >= 2 {
			_, ok := b.Move(0, 3)
			assert.False(t, ok)
		}
	}
}

func TestTrefoilEntries(t *testing.T) {
	b, idx := setup(link.MustParse("3_1", "[+1-2+3-1+2-3] +++"))

	// (0,1) is the single all-v- generator at resolution 0 and nothing lies at (1,1)
	src := idx.At(khova.Bigrading{I: 0, J: 1})
	D, err := b.Build(src, idx.At(khova.Bigrading{I: 1, J: 1}))
	require.NoError(t, err)
	assert.Equal(t, 0, D.Rows())
	assert.Equal(t, 1, D.Cols())

	D, err = b.Build(idx.At(khova.Bigrading{I: 0, J: 3}), idx.At(khova.Bigrading{I: 1, J: 3}))
	require.NoError(t, err)
	assert.Equal(t, 3, D.Rows())
	assert.Equal(t, 2, D.Cols())
	assert.Equal(t, 1, D.Rank())

	for c, from := range idx.At(khova.Bigrading{I: 0, J: 3}).Generators {
		for r, to := range idx.At(khova.Bigrading{I: 1, J: 3}).Generators {
			assert.Equal(t, D.At(r, c), int64(b.Entry(from, to)))
		}
	}

	// no entries between resolutions that are not adjacent
	assert.Equal(t, 0, b.Entry(chains.Generator{Resolution: 0}, chains.Generator{Resolution: 3}))
	assert.Equal(t, 0, b.Entry(chains.Generator{Resolution: 1}, chains.Generator{Resolution: 0}))
}

func TestBuildDegenerate(t *testing.T) {
	b, idx := setup(link.MustParse("unknot", "[]"))

	cell := idx.At(khova.Bigrading{I: 0, J: 1})
	D, err := b.Build(nil, cell)
	require.NoError(t, err)
	assert.Equal(t, 1, D.Rows())
	assert.Equal(t, 0, D.Cols())

	_, err = b.Build(nil, nil)
	assert.True(t, errors.Is(err, khova.ErrBadDimension))
}

func TestSquareIsZero(t *testing.T) {
	links := append(randomBraids(30),
		link.MustParse("3_1", "[+1-2+3-1+2-3] +++"),
		link.MustParse("L2a1", "[+1-2][+2-1] ++"),
	)

	for _, L := range links {
		b, idx := setup(L)
		for _, g := range idx.Gradings() {
			mid := idx.At(khova.Bigrading{I: g.I + 1, J: g.J})
			dst := idx.At(khova.Bigrading{I: g.I + 2, J: g.J})
			if mid == nil || dst == nil {
				continue
			}
			D1, err := b.Build(idx.At(g), mid)
			require.NoError(t, err)
			D2, err := b.Build(mid, dst)
			require.NoError(t, err)

			P, err := D2.Mul(D1)
			require.NoError(t, err)
			require.True(t, P.IsZero(), "%s at (%d, %d)", L.Name(), g.I, g.J)
		}
	}
}
