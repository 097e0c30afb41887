// Package zmatrix provides dense integer matrices, their Smith normal form and the homology of
// bigraded complexes built from them.
package zmatrix

import (
	"fmt"
	"io"
	"strings"

	"github.com/fine-structures/khova.SDK/khova"
	"github.com/pkg/errors"
)

// Matrix is a dense rows x cols matrix of integers.  Either dimension may be 0.
type Matrix struct {
	rows  int
	cols  int
	cells []int64 // row-major
}

// New returns a Matrix holding a copy of the given rows.  All rows must have the same length.
func New(cells [][]int64) (*Matrix, error) {
	rows := len(cells)
	cols := 0
	if rows > 0 {
		cols = len(cells[0])
	}
	M, err := Zero(rows, cols)
	if err != nil {
		return nil, err
	}
	for r, row := range cells {
		if len(row) != cols {
			return nil, errors.Wrapf(khova.ErrBadDimension, "row %d has %d entries (expected %d)", r, len(row), cols)
		}
		copy(M.cells[r*cols:], row)
	}
	return M, nil
}

// Zero returns the zero rows x cols matrix.
func Zero(rows, cols int) (*Matrix, error) {
	if rows < 0 || cols < 0 {
		return nil, errors.Wrapf(khova.ErrBadDimension, "%d x %d", rows, cols)
	}
	return &Matrix{
		rows:  rows,
		cols:  cols,
		cells: make([]int64, rows*cols),
	}, nil
}

// Empty returns the degenerate matrix of a map to or from the zero module: exactly one of rows and cols must be 0.
func Empty(rows, cols int) (*Matrix, error) {
	if (rows == 0) == (cols == 0) || rows < 0 || cols < 0 {
		return nil, errors.Wrapf(khova.ErrBadDimension, "degenerate matrix can't be %d x %d", rows, cols)
	}
	return Zero(rows, cols)
}

func (M *Matrix) Rows() int {
	return M.rows
}

func (M *Matrix) Cols() int {
	return M.cols
}

// At returns the entry at row r and column c.  Indices must be in range.
func (M *Matrix) At(r, c int) int64 {
	return M.cells[r*M.cols+c]
}

// Set assigns the entry at row r and column c.  Indices must be in range.
func (M *Matrix) Set(r, c int, v int64) {
	M.cells[r*M.cols+c] = v
}

func (M *Matrix) Clone() *Matrix {
	return &Matrix{
		rows:  M.rows,
		cols:  M.cols,
		cells: append([]int64(nil), M.cells...),
	}
}

// IsZero returns true if every entry is 0.
func (M *Matrix) IsZero() bool {
	for _, v := range M.cells {
		if v != 0 {
			return false
		}
	}
	return true
}

// NonZero returns the number of nonzero entries.
func (M *Matrix) NonZero() int {
	count := 0
	for _, v := range M.cells {
		if v != 0 {
			count++
		}
	}
	return count
}

// Mul returns the product M * B.
func (M *Matrix) Mul(B *Matrix) (*Matrix, error) {
	if M.cols != B.rows {
		return nil, errors.Wrapf(khova.ErrBadDimension, "can't multiply %d x %d by %d x %d", M.rows, M.cols, B.rows, B.cols)
	}
	P, _ := Zero(M.rows, B.cols)
	for r := 0; r < M.rows; r++ {
		for k := 0; k < M.cols; k++ {
			a := M.At(r, k)
			if a == 0 {
				continue
			}
			for c := 0; c < B.cols; c++ {
				P.cells[r*P.cols+c] += a * B.At(k, c)
			}
		}
	}
	return P, nil
}

func (M *Matrix) WriteAsString(out io.Writer) {
	buf := strings.Builder{}
	fmt.Fprintf(&buf, "%d x %d\n", M.rows, M.cols)
	for r := 0; r < M.rows; r++ {
		for c := 0; c < M.cols; c++ {
			fmt.Fprintf(&buf, "%3d", M.At(r, c))
		}
		buf.WriteByte('\n')
	}
	out.Write([]byte(buf.String()))
}

func (M *Matrix) swapRows(a, b int) {
	if a == b {
		return
	}
	ra := M.cells[a*M.cols : (a+1)*M.cols]
	rb := M.cells[b*M.cols : (b+1)*M.cols]
	for c := range ra {
		ra[c], rb[c] = rb[c], ra[c]
	}
}

func (M *Matrix) swapCols(a, b int) {
	if a == b {
		return
	}
	for r := 0; r < M.rows; r++ {
		i := r * M.cols
		M.cells[i+a], M.cells[i+b] = M.cells[i+b], M.cells[i+a]
	}
}

// addRow adds k times row src to row dst, from column c0 on.
func (M *Matrix) addRow(dst, src int, k int64, c0 int) {
	rd := M.cells[dst*M.cols : (dst+1)*M.cols]
	rs := M.cells[src*M.cols : (src+1)*M.cols]
	for c := c0; c < M.cols; c++ {
		if rs[c] != 0 {
			rd[c] += k * rs[c]
		}
	}
}

// addCol adds k times column src to column dst, from row r0 on.
func (M *Matrix) addCol(dst, src int, k int64, r0 int) {
	for r := r0; r < M.rows; r++ {
		i := r * M.cols
		if v := M.cells[i+src]; v != 0 {
			M.cells[i+dst] += k * v
		}
	}
}
