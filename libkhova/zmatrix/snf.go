package zmatrix

func abs64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

// SmithInvariants returns the nonzero diagonal entries d1 | d2 | ... | dr of the Smith normal form of M.
// Their count is the rank of M.  M is not modified.
func (M *Matrix) SmithInvariants() []int64 {
	A := M.Clone()
	N := M.rows
	if M.cols < N {
		N = M.cols
	}

	var invariants []int64
	for t := 0; t < N; t++ {
		pr, pc, found := A.minNonZero(t)
		if !found {
			break
		}
		A.swapRows(t, pr)
		A.swapCols(t, pc)

		for {
			if A.clearPivotCross(t) {
				continue
			}

			// Row and column t are clear; the pivot must divide everything left.
			p := A.At(t, t)
			bad := -1
			for r := t + 1; r < A.rows && bad < 0; r++ {
				for c := t + 1; c < A.cols; c++ {
					if A.At(r, c)%p != 0 {
						bad = r
						break
					}
				}
			}
			if bad < 0 {
				break
			}
			A.addRow(t, bad, 1, t)
		}

		invariants = append(invariants, abs64(A.At(t, t)))
	}

	return invariants
}

// Rank returns the rank of M over the rationals.
func (M *Matrix) Rank() int {
	return len(M.SmithInvariants())
}

// minNonZero finds the entry of least magnitude in the lower-right submatrix starting at (t, t).
func (M *Matrix) minNonZero(t int) (row, col int, found bool) {
	best := int64(0)
	for r := t; r < M.rows; r++ {
		for c := t; c < M.cols; c++ {
			v := abs64(M.At(r, c))
			if v != 0 && (best == 0 || v < best) {
				best, row, col = v, r, c
				if best == 1 {
					return row, col, true
				}
			}
		}
	}
	return row, col, best != 0
}

// clearPivotCross eliminates column t below and row t right of the pivot at (t, t).
// Returns true if a smaller remainder was swapped into the pivot, in which case the caller repeats.
func (M *Matrix) clearPivotCross(t int) (pivotChanged bool) {
	for r := t + 1; r < M.rows; r++ {
		a := M.At(r, t)
		if a == 0 {
			continue
		}
		M.addRow(r, t, -(a / M.At(t, t)), t)
		if M.At(r, t) != 0 {
			M.swapRows(t, r)
			pivotChanged = true
		}
	}
	for c := t + 1; c < M.cols; c++ {
		a := M.At(t, c)
		if a == 0 {
			continue
		}
		M.addCol(c, t, -(a / M.At(t, t)), t)
		if M.At(t, c) != 0 {
			M.swapCols(t, c)
			pivotChanged = true
		}
	}
	return pivotChanged
}
