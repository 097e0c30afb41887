package khova

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

func NewCatalogContext() CatalogContext {
	ctx := &catalogContext{
		openCatalogs: make(map[Catalog]struct{}),
		closing:      make(chan struct{}),
		closed:       make(chan struct{}),
	}
	ctx.openCount.Add(1)
	go func() {
		<-ctx.Closing()
		ctx.openCount.Done()
		ctx.openCount.Wait()
		close(ctx.closed)
	}()
	return ctx
}

type catalogContext struct {
	mu           sync.Mutex
	openCount    sync.WaitGroup
	openCatalogs map[Catalog]struct{}
	closing      chan struct{}
	closed       chan struct{}
}

func (ctx *catalogContext) AttachCatalog(cat Catalog) {
	ctx.openCount.Add(1)
	ctx.mu.Lock()
	ctx.openCatalogs[cat] = struct{}{}
	ctx.mu.Unlock()
}

func (ctx *catalogContext) DetachCatalog(cat Catalog) {
	ctx.mu.Lock()
	if _, exists := ctx.openCatalogs[cat]; exists {
		delete(ctx.openCatalogs, cat)
		ctx.openCount.Done()
	}
	ctx.mu.Unlock()
}

func (ctx *catalogContext) Closing() <-chan struct{} {
	return ctx.closing
}

func (ctx *catalogContext) Done() <-chan struct{} {
	return ctx.closed
}

func (ctx *catalogContext) Close() {
	close(ctx.closing)
	ctx.mu.Lock()
	for cat := range ctx.openCatalogs {
		go cat.Close()
	}
	ctx.mu.Unlock()
}

// Entries returns the groups of H sorted by J and then I.
func (H Homology) Entries() []HomologyEntry {
	entries := make([]HomologyEntry, 0, len(H))
	for g, G := range H {
		entries = append(entries, HomologyEntry{g, G})
	}
	sort.Slice(entries, func(a, b int) bool {
		return entries[a].Bigrading.Compare(entries[b].Bigrading) < 0
	})
	return entries
}

// TotalRank returns the sum of the free ranks of H.
func (H Homology) TotalRank() int {
	total := 0
	for _, G := range H {
		total += G.Rank
	}
	return total
}

// IsEqual returns true if H and other have the same groups at every Bigrading.
func (H Homology) IsEqual(other Homology) bool {
	if len(H) != len(other) {
		return false
	}
	for g, G := range H {
		Gother, exists := other[g]
		if !exists || G.Rank != Gother.Rank || len(G.Torsion) != len(Gother.Torsion) {
			return false
		}
		for i, t := range G.Torsion {
			if Gother.Torsion[i] != t {
				return false
			}
		}
	}
	return true
}

// Euler returns the graded Euler characteristic of H: for each j, the alternating sum over i of the free ranks.
//
// This is the unnormalized Jones polynomial of the link, as Laurent coefficients in q.
func (H Homology) Euler() map[int]int64 {
	chi := make(map[int]int64)
	for g, G := range H {
		if G.Rank == 0 {
			continue
		}
		if g.I%2 == 0 {
			chi[g.J] += int64(G.Rank)
		} else {
			chi[g.J] -= int64(G.Rank)
		}
	}
	for j, c := range chi {
		if c == 0 {
			delete(chi, j)
		}
	}
	return chi
}

// String returns a compact form of G such as "Z^2 + Z/2".
func (G Group) String() string {
	if G.IsTrivial() {
		return "0"
	}
	var parts []string
	switch {
	case G.Rank == 1:
		parts = append(parts, "Z")
	case G.Rank > 1:
		parts = append(parts, fmt.Sprintf("Z^%d", G.Rank))
	}
	for _, t := range G.Torsion {
		parts = append(parts, fmt.Sprintf("Z/%d", t))
	}
	return strings.Join(parts, " + ")
}

// WriteAsString writes H as a table, one bigrading per line.
func (H Homology) WriteAsString(out io.Writer, opts PrintOpts) {
	buf := strings.Builder{}
	buf.Grow(256)

	for _, e := range H.Entries() {
		G := e.Group
		if !opts.Torsion {
			if G.Rank == 0 {
				continue
			}
			G.Torsion = nil
		}
		if len(opts.Label) > 0 {
			buf.WriteString(opts.Label)
		}
		fmt.Fprintf(&buf, "%4d %4d   %v\n", e.I, e.J, G)
	}

	if opts.Euler {
		if len(opts.Label) > 0 {
			buf.WriteString(opts.Label)
		}
		buf.WriteString("chi = ")
		buf.WriteString(FormatLaurent(H.Euler(), "q"))
		buf.WriteByte('\n')
	}

	out.Write([]byte(buf.String()))
}

// FormatLaurent formats the given Laurent polynomial coefficients, e.g. "q + q^3 + q^5 - q^9".
func FormatLaurent(coeffs map[int]int64, x string) string {
	exps := make([]int, 0, len(coeffs))
	for e, c := range coeffs {
		if c != 0 {
			exps = append(exps, e)
		}
	}
	if len(exps) == 0 {
		return "0"
	}
	sort.Ints(exps)

	buf := strings.Builder{}
	for i, e := range exps {
		c := coeffs[e]
		if i == 0 {
			if c < 0 {
				buf.WriteByte('-')
			}
		} else if c < 0 {
			buf.WriteString(" - ")
		} else {
			buf.WriteString(" + ")
		}
		if c < 0 {
			c = -c
		}
		if c != 1 || e == 0 {
			fmt.Fprintf(&buf, "%d", c)
		}
		switch e {
		case 0:
		case 1:
			buf.WriteString(x)
		default:
			fmt.Fprintf(&buf, "%s^%d", x, e)
		}
	}
	return buf.String()
}
