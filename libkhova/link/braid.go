package link

import (
	"github.com/fine-structures/khova.SDK/khova"
	"github.com/pkg/errors"
)

// FromBraid returns the closure of the given braid word on the given number of strands.
//
// Generator +k crosses strand position k over position k+1 (a positive crossing) and -k is its inverse.
// Crossing t of the resulting Link is the t-th letter of the word.
func FromBraid(name string, strands int, word []int) (*Link, error) {
	if strands < 1 {
		return nil, errors.Wrapf(khova.ErrBadBraid, "strand count must be >= 1 (got %d)", strands)
	}
	if len(word) > khova.MaxCrossings {
		return nil, errors.Wrapf(khova.ErrTooManyCrossings, "%d crossings (max %d)", len(word), khova.MaxCrossings)
	}

	signs := make([]bool, len(word))
	for t, w := range word {
		k := w
		if k < 0 {
			k = -k
		}
		if k < 1 || k >= strands {
			return nil, errors.Wrapf(khova.ErrBadBraid, "generator %+d out of range for %d strands", w, strands)
		}
		signs[t] = w > 0
	}

	var gauss [][]int
	seen := make([]bool, strands+1)
	for start := 1; start <= strands; start++ {
		if seen[start] {
			continue
		}
		compo := []int{}
		pos := start
		for {
			seen[pos] = true
			for t, w := range word {
				k := w
				if k < 0 {
					k = -k
				}
				if pos != k && pos != k+1 {
					continue
				}
				over := pos == k
				if w < 0 {
					over = !over
				}
				if over {
					compo = append(compo, t+1)
				} else {
					compo = append(compo, -(t + 1))
				}
				if pos == k {
					pos = k + 1
				} else {
					pos = k
				}
			}
			if pos == start {
				break
			}
		}
		gauss = append(gauss, compo)
	}

	return New(name, gauss, signs)
}
