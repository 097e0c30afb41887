// Package chains enumerates the generators of the Khovanov chain complex and groups them by bigrading.
package chains

import (
	"math"
	"math/bits"

	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/fine-structures/khova.SDK/khova"
)

// Generator is a chain generator: a resolution and a labeling of its circles (bit m set denotes v+ on circle m).
type Generator struct {
	Resolution uint64
	Labeling   uint64
}

// Cell is the set of generators sharing a Bigrading, in insertion order.
type Cell struct {
	Grading    khova.Bigrading
	Generators []Generator
}

func (cell *Cell) Len() int {
	if cell == nil {
		return 0
	}
	return len(cell.Generators)
}

// Grade returns the Bigrading of the generator (resol, labeling) given the resolution's circle count
// and the link's negative and positive crossing counts.
func Grade(resol, labeling uint64, circles, negCross, posCross int) khova.Bigrading {
	i := bits.OnesCount64(resol) - negCross
	j := i + 2*bits.OnesCount64(labeling) - circles - negCross + posCross
	return khova.Bigrading{I: i, J: j}
}

// Index groups generators by Bigrading.
//
// Lookups go through a flat map; the red-black tree keeps the populated gradings ordered by (J, I)
// so enumeration is deterministic.
type Index struct {
	cells  map[khova.Bigrading]*Cell
	order  *redblacktree.Tree
	numGen int
}

func bigradingComparator(a, b interface{}) int {
	return a.(khova.Bigrading).Compare(b.(khova.Bigrading))
}

func NewIndex() *Index {
	return &Index{
		cells: make(map[khova.Bigrading]*Cell),
		order: redblacktree.NewWith(bigradingComparator),
	}
}

// Add inserts g into the cell at the given Bigrading.
func (idx *Index) Add(g Generator, at khova.Bigrading) {
	cell := idx.cells[at]
	if cell == nil {
		cell = &Cell{Grading: at}
		idx.cells[at] = cell
		idx.order.Put(at, cell)
	}
	cell.Generators = append(cell.Generators, g)
	idx.numGen++
}

// At returns the cell at the given Bigrading or nil if it holds no generators.
func (idx *Index) At(at khova.Bigrading) *Cell {
	return idx.cells[at]
}

// CellsAtJ returns the cells of quantum grading j, keyed by I.
func (idx *Index) CellsAtJ(j int) map[int]*Cell {
	node, found := idx.order.Ceiling(khova.Bigrading{I: math.MinInt, J: j})
	if !found {
		return nil
	}

	var cells map[int]*Cell
	for it := idx.order.IteratorAt(node); ; {
		g := it.Key().(khova.Bigrading)
		if g.J != j {
			break
		}
		if cells == nil {
			cells = make(map[int]*Cell)
		}
		cells[g.I] = it.Value().(*Cell)
		if !it.Next() {
			break
		}
	}
	return cells
}

// JGradings returns the populated quantum gradings in ascending order.
func (idx *Index) JGradings() []int {
	var js []int
	for it := idx.order.Iterator(); it.Next(); {
		j := it.Key().(khova.Bigrading).J
		if len(js) == 0 || js[len(js)-1] != j {
			js = append(js, j)
		}
	}
	return js
}

// Gradings returns every populated Bigrading, ordered by J and then I.
func (idx *Index) Gradings() []khova.Bigrading {
	gradings := make([]khova.Bigrading, 0, idx.order.Size())
	for it := idx.order.Iterator(); it.Next(); {
		gradings = append(gradings, it.Key().(khova.Bigrading))
	}
	return gradings
}

// TotalCells returns the number of populated Bigradings.
func (idx *Index) TotalCells() int {
	return len(idx.cells)
}

// TotalGenerators returns the number of generators added.
func (idx *Index) TotalGenerators() int {
	return idx.numGen
}

// Euler returns the graded Euler characteristic of the chain complex: for each j, the alternating sum
// over i of the cell sizes.  It equals the Euler characteristic of its homology.
func (idx *Index) Euler() map[int]int64 {
	chi := make(map[int]int64)
	for g, cell := range idx.cells {
		if g.I%2 == 0 {
			chi[g.J] += int64(cell.Len())
		} else {
			chi[g.J] -= int64(cell.Len())
		}
	}
	for j, c := range chi {
		if c == 0 {
			delete(chi, j)
		}
	}
	return chi
}
