package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

const (
	Rows             = 9
	Cols             = 9
	NumbersPerRow    = 5
	NumbersPerColumn = 5
	NumbersPerTicket = Rows * NumbersPerRow

	MinNumber = 1
	MaxNumber = 90

	generateAttempts = 200
)

type Band struct {
	Min, Max int
}

// ColumnBands lists the numeric range of each column. The last band spans 11 values.
var ColumnBands = [Cols]Band{
	{1, 9}, {10, 19}, {20, 29}, {30, 39}, {40, 49},
	{50, 59}, {60, 69}, {70, 79}, {80, 90},
}

// Grid is a ticket: Rows x Cols cells, 0 means empty.
type Grid [Rows][Cols]int

// GenerateTicket builds one ticket. Columns are filled in random order; an attempt that
// leaves any row short is discarded and retried, and after generateAttempts failures the
// fixed fallback layout is used.
func GenerateTicket(src Source) Grid {
	return generate(src, generateAttempts)
}

func generate(src Source, attempts int) Grid {
	for i := 0; i < attempts; i++ {
		if g, ok := tryGenerate(src); ok {
			return g
		}
	}
	return fallbackGrid(src)
}

func tryGenerate(src Source) (Grid, bool) {
	var g Grid
	var rowCounts [Rows]int

	for _, c := range perm(src, Cols) {
		band := ColumnBands[c]
		values := sample(src, band.Min, band.Max, NumbersPerColumn)

		open := make([]int, 0, Rows)
		for r := 0; r < Rows; r++ {
			if rowCounts[r] < NumbersPerRow {
				open = append(open, r)
			}
		}
		if len(open) < NumbersPerColumn {
			return Grid{}, false
		}
		shuffle(src, open)
		rows := open[:NumbersPerColumn]
		slices.Sort(rows)

		for i, r := range rows {
			g[r][c] = values[i]
			rowCounts[r]++
		}
	}

	for _, n := range rowCounts {
		if n != NumbersPerRow {
			return Grid{}, false
		}
	}
	return g, true
}

// fallbackRows is a cyclic layout: column c occupies rows c..c+4 (mod 9), so every row
// is hit by exactly five columns.
var fallbackRows = [Cols][NumbersPerColumn]int{
	{0, 1, 2, 3, 4},
	{1, 2, 3, 4, 5},
	{2, 3, 4, 5, 6},
	{3, 4, 5, 6, 7},
	{4, 5, 6, 7, 8},
	{0, 5, 6, 7, 8},
	{0, 1, 6, 7, 8},
	{0, 1, 2, 7, 8},
	{0, 1, 2, 3, 8},
}

func fallbackGrid(src Source) Grid {
	var g Grid
	for c, rows := range fallbackRows {
		band := ColumnBands[c]
		values := sample(src, band.Min, band.Max, NumbersPerColumn)
		for i, r := range rows {
			g[r][c] = values[i]
		}
	}
	return g
}

// Row returns the filled numbers of row r, left to right.
func (g Grid) Row(r int) []int {
	out := make([]int, 0, NumbersPerRow)
	for _, v := range g[r] {
		if v != 0 {
			out = append(out, v)
		}
	}
	return out
}

// Numbers returns every filled number, row-major.
func (g Grid) Numbers() []int {
	out := make([]int, 0, NumbersPerTicket)
	for r := range g {
		out = append(out, g.Row(r)...)
	}
	return out
}

func (g Grid) Contains(n int) bool {
	if n < MinNumber || n > MaxNumber {
		return false
	}
	for r := range g {
		for _, v := range g[r] {
			if v == n {
				return true
			}
		}
	}
	return false
}

var (
	errRowCount    = errors.New("row does not hold exactly 5 numbers")
	errColumnCount = errors.New("column does not hold exactly 5 numbers")
	errBand        = errors.New("number outside its column band")
	errOrder       = errors.New("column is not ascending top to bottom")
	errDuplicate   = errors.New("duplicate number")
)

// Validate checks the structural ticket constraints.
func (g Grid) Validate() error {
	seen := make(map[int]bool, NumbersPerTicket)
	for r := 0; r < Rows; r++ {
		if n := len(g.Row(r)); n != NumbersPerRow {
			return fmt.Errorf("row %d: %w (%d)", r, errRowCount, n)
		}
	}
	for c := 0; c < Cols; c++ {
		band := ColumnBands[c]
		count, prev := 0, 0
		for r := 0; r < Rows; r++ {
			v := g[r][c]
			if v == 0 {
				continue
			}
			if v < band.Min || v > band.Max {
				return fmt.Errorf("column %d value %d: %w", c, v, errBand)
			}
			if v <= prev {
				return fmt.Errorf("column %d: %w", c, errOrder)
			}
			if seen[v] {
				return fmt.Errorf("value %d: %w", v, errDuplicate)
			}
			seen[v] = true
			prev = v
			count++
		}
		if count != NumbersPerColumn {
			return fmt.Errorf("column %d: %w (%d)", c, errColumnCount, count)
		}
	}
	return nil
}

type gridJSON struct {
	Rows [][]*int `json:"rows"`
}

// MarshalJSON encodes the grid as {"rows": [[3,null,21,...], ...]}.
func (g Grid) MarshalJSON() ([]byte, error) {
	out := gridJSON{Rows: make([][]*int, Rows)}
	for r := range g {
		row := make([]*int, Cols)
		for c, v := range g[r] {
			if v != 0 {
				row[c] = &v
			}
		}
		out.Rows[r] = row
	}
	return json.Marshal(out)
}

func (g *Grid) UnmarshalJSON(data []byte) error {
	var in gridJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if len(in.Rows) != Rows {
		return fmt.Errorf("grid: want %d rows, got %d", Rows, len(in.Rows))
	}
	var out Grid
	for r, row := range in.Rows {
		if len(row) != Cols {
			return fmt.Errorf("grid: row %d: want %d cells, got %d", r, Cols, len(row))
		}
		for c, cell := range row {
			if cell == nil {
				continue
			}
			if *cell < MinNumber || *cell > MaxNumber {
				return fmt.Errorf("grid: cell %d,%d out of range: %d", r, c, *cell)
			}
			out[r][c] = *cell
		}
	}
	*g = out
	return nil
}
