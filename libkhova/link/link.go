package link

import (
	"fmt"
	"io"
	"strings"

	"github.com/fine-structures/khova.SDK/khova"
	"github.com/pkg/errors"
)

// Link is an immutable link diagram: its Gauss code, crossing signs and the derived link code.
type Link struct {
	name  string
	gauss [][]int
	signs []bool
	code  []int
}

// New validates the given Gauss code and signs and derives the link code from them.
//
// Crossings are numbered from 1 in the Gauss code; +c marks passing over crossing c and -c passing under it.
// An empty component denotes a closed curve without crossings.
func New(name string, gauss [][]int, signs []bool) (*Link, error) {
	if len(name) > khova.MaxNameLen {
		return nil, errors.Wrapf(khova.ErrBadLinkName, "name must be at most %d chars", khova.MaxNameLen)
	}
	if err := checkGauss(gauss, len(signs)); err != nil {
		return nil, err
	}

	L := &Link{
		name:  name,
		gauss: make([][]int, len(gauss)),
		signs: append([]bool(nil), signs...),
	}
	for i, compo := range gauss {
		L.gauss[i] = append([]int{}, compo...)
	}
	L.code = makeCode(L.gauss, L.signs)
	return L, nil
}

// MustNew is New that panics on error.
func MustNew(name string, gauss [][]int, signs []bool) *Link {
	L, err := New(name, gauss, signs)
	if err != nil {
		panic(err)
	}
	return L
}

func checkGauss(gauss [][]int, numCross int) error {
	if numCross > khova.MaxCrossings {
		return errors.Wrapf(khova.ErrTooManyCrossings, "%d crossings (max %d)", numCross, khova.MaxCrossings)
	}
	if len(gauss) == 0 {
		return errors.Wrap(khova.ErrBadGauss, "at least one component is required")
	}

	maxCross := 0
	for _, compo := range gauss {
		for _, c := range compo {
			if c == 0 {
				return errors.Wrap(khova.ErrBadGauss, "crossings are numbered from 1")
			}
			if c < 0 {
				c = -c
			}
			if c > maxCross {
				maxCross = c
			}
		}
	}
	if maxCross != numCross {
		return errors.Wrapf(khova.ErrBadSigns, "%d signs given for %d crossings", numCross, maxCross)
	}

	seen := make([]byte, numCross+1)
	count := 0
	for _, compo := range gauss {
		for _, c := range compo {
			bit := byte(1)
			if c < 0 {
				bit = 2
				c = -c
			}
			if seen[c]&bit != 0 {
				return errors.Wrapf(khova.ErrBadGauss, "crossing %d is traversed twice on the same level", c)
			}
			seen[c] |= bit
			count++
		}
	}
	if count != 2*numCross {
		return errors.Wrapf(khova.ErrBadGauss, "each crossing must appear once over and once under")
	}
	return nil
}

func (L *Link) Name() string {
	return L.name
}

func (L *Link) NumComponents() int {
	return len(L.gauss)
}

func (L *Link) NumCrossings() int {
	return len(L.signs)
}

func (L *Link) Signs() []bool {
	return append([]bool(nil), L.signs...)
}

func (L *Link) Gauss() [][]int {
	gauss := make([][]int, len(L.gauss))
	for i, compo := range L.gauss {
		gauss[i] = append([]int{}, compo...)
	}
	return gauss
}

func (L *Link) Code() []int {
	return append([]int(nil), L.code...)
}

// CrossingCounts returns the number of negative and positive crossings.
func (L *Link) CrossingCounts() (neg, pos int) {
	for _, sgn := range L.signs {
		if sgn {
			pos++
		} else {
			neg++
		}
	}
	return
}

// Rename returns a copy of L with the given name.
func (L *Link) Rename(name string) (*Link, error) {
	return New(name, L.gauss, L.signs)
}

// Expr returns L in the form accepted by Parse, e.g. "[+1-2+3-1+2-3] +++".
func (L *Link) Expr() string {
	buf := strings.Builder{}
	for _, compo := range L.gauss {
		buf.WriteByte('[')
		for _, c := range compo {
			fmt.Fprintf(&buf, "%+d", c)
		}
		buf.WriteByte(']')
	}
	if len(L.signs) > 0 {
		buf.WriteByte(' ')
		for _, sgn := range L.signs {
			if sgn {
				buf.WriteByte('+')
			} else {
				buf.WriteByte('-')
			}
		}
	}
	return buf.String()
}

func (L *Link) WriteAsString(out io.Writer) {
	buf := strings.Builder{}
	fmt.Fprintf(&buf, "Link name:        %s\n", L.name)
	fmt.Fprintf(&buf, "Component number: %d\n", L.NumComponents())
	fmt.Fprintf(&buf, "Crossing number:  %d\n", L.NumCrossings())
	buf.WriteString("Gauss code:       ")
	for _, compo := range L.gauss {
		buf.WriteByte('[')
		for _, c := range compo {
			fmt.Fprintf(&buf, "%+d", c)
		}
		buf.WriteByte(']')
	}
	buf.WriteString("\nCrossing signs:  ")
	for _, sgn := range L.signs {
		if sgn {
			buf.WriteString(" +")
		} else {
			buf.WriteString(" -")
		}
	}
	buf.WriteByte('\n')
	out.Write([]byte(buf.String()))
}

func (L *Link) String() string {
	return L.Expr()
}
