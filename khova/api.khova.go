package khova

import (
	"io"
)

const (

	// MaxCrossings is the largest crossing count a Link may have.
	// A resolution is a bit per crossing and the cube has 2^MaxCrossings vertices.
	MaxCrossings = 21

	// MaxNameLen is the max length of a Link name.
	MaxNameLen = 32
)

// Link is an immutable snapshot of a link diagram, as produced upstream by a diagram editor or parser.
//
// The link code is a flat array of 4*NumCrossings() strand-ends: end p sits at crossing p/4 and Code()[p]
// is the end it joins when every crossing is given its 0-smoothing.
type Link interface {
	Name() string

	// NumComponents returns the number of closed curves of the diagram.
	NumComponents() int

	// NumCrossings returns the number of crossings of the diagram.
	NumCrossings() int

	// Signs returns a copy of the crossing signs (true denotes a positive crossing).
	Signs() []bool

	// Gauss returns a copy of the Gauss code, one signed crossing sequence per component (+c over, -c under).
	Gauss() [][]int

	// Code returns a copy of the link code.
	Code() []int

	WriteAsString(out io.Writer)
}

// RunState is the state of a homology computation.
type RunState int32

const (
	NotStarted RunState = iota
	BuildingGenerators
	BuildingDifferentials
	Solving
	Completed
	Cancelled
	Failed
)

var runStateNames = [...]string{
	"NotStarted",
	"BuildingGenerators",
	"BuildingDifferentials",
	"Solving",
	"Completed",
	"Cancelled",
	"Failed",
}

func (s RunState) String() string {
	if s < 0 || int(s) >= len(runStateNames) {
		return "RunState(?)"
	}
	return runStateNames[s]
}

// IsTerminal returns true once a run can no longer change state.
func (s RunState) IsTerminal() bool {
	return s >= Completed
}

// Bigrading is a homological grading I and a quantum grading J.
type Bigrading struct {
	I int
	J int
}

// Compare orders Bigradings by J and then by I.
func (g Bigrading) Compare(other Bigrading) int {
	if g.J != other.J {
		if g.J < other.J {
			return -1
		}
		return 1
	}
	if g.I != other.I {
		if g.I < other.I {
			return -1
		}
		return 1
	}
	return 0
}

// Group is a finitely generated abelian group: Z^Rank plus Z/t for each t in Torsion.
type Group struct {
	Rank    int
	Torsion []int64
}

// IsTrivial returns true if this Group is the zero group.
func (G Group) IsTrivial() bool {
	return G.Rank == 0 && len(G.Torsion) == 0
}

// Homology maps each Bigrading to its homology group.  Trivial groups are omitted.
type Homology map[Bigrading]Group

// HomologyEntry is a single (Bigrading, Group) pair of a Homology.
type HomologyEntry struct {
	Bigrading
	Group
}

// CatalogContext is a container for open / active Catalog instances.
type CatalogContext interface {

	// Attaches the given Catalog to this context.
	AttachCatalog(cat Catalog)

	// Detaches the given Catalog from this context.
	DetachCatalog(cat Catalog)

	// Closes all open catalogs and then closes.
	Close()

	// Signals when Close() completed and all open Catalogs have been closed
	Done() <-chan struct{}
}

// CatalogOpts specifies params for opening a Catalog
type CatalogOpts struct {
	DbPathName string // omit for in-memory db
	ReadOnly   bool   // open in read-only mode
}

// CatalogEntry is a computed Homology as stored in a Catalog.
type CatalogEntry struct {
	Name     string
	Homology Homology
}

// OnEntryHit is used to return entries from a Catalog.
type OnEntryHit chan<- CatalogEntry

// Catalog caches computed homologies keyed by the link data that determines them.
type Catalog interface {

	// Returns true if this catalog was opened for read-only access.
	IsReadOnly() bool

	// Lookup returns the Homology previously stored for L, if any.
	Lookup(L Link) (Homology, bool, error)

	// Store records H as the Homology of L, replacing any previous entry.
	Store(L Link, H Homology) error

	// NumEntries returns the number of stored homologies.
	NumEntries() int64

	// Select sends every stored entry to onHit.
	Select(onHit OnEntryHit) error

	Close() error
}

// PrintOpts specifies what is printed when printing a Homology
type PrintOpts struct {
	Label   string // Prefix label
	Torsion bool   // If set, torsion summands are printed
	Euler   bool   // If set, the graded Euler characteristic is printed
}

// DefaultPrintOpts{}
var DefaultPrintOpts = PrintOpts{
	Torsion: true,
}
