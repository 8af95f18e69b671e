package main

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/zyedidia/generic/mapset"
)

const (
	boardSize = 5
	cellCount = boardSize * boardSize
	freeIndex = 12
)

// ErrOutOfRange is returned when a cell index falls outside the board.
var ErrOutOfRange = errors.New("cell index out of range")

// LineID identifies one of the 12 winning lines.
type LineID string

const (
	DiagonalMain LineID = "diagonal-main"
	DiagonalAnti LineID = "diagonal-anti"
)

// RowID returns the line ID of row r.
func RowID(r int) LineID { return LineID(fmt.Sprintf("row-%d", r)) }

// ColumnID returns the line ID of column c.
func ColumnID(c int) LineID { return LineID(fmt.Sprintf("column-%d", c)) }

// Line is a winning pattern and the cells it covers.
type Line struct {
	ID    LineID
	Cells [boardSize]int
}

// lines lists every winning pattern in report order:
// rows, then columns, then the two diagonals.
var lines = buildLines()

func buildLines() []Line {
	out := make([]Line, 0, 2*boardSize+2)
	for r := range boardSize {
		var l Line
		l.ID = RowID(r)
		for i := range boardSize {
			l.Cells[i] = r*boardSize + i
		}
		out = append(out, l)
	}
	for c := range boardSize {
		var l Line
		l.ID = ColumnID(c)
		for i := range boardSize {
			l.Cells[i] = c + i*boardSize
		}
		out = append(out, l)
	}
	diag := Line{ID: DiagonalMain}
	anti := Line{ID: DiagonalAnti}
	for i := range boardSize {
		diag.Cells[i] = i*boardSize + i
		anti.Cells[i] = i*boardSize + (boardSize - 1 - i)
	}
	return append(out, diag, anti)
}

// Cell is a single square of the board.
type Cell struct {
	Index  int  `json:"index"`
	Marked bool `json:"marked"`
	IsFree bool `json:"is_free"`
}

// Row returns the row of the cell.
func (c Cell) Row() int { return c.Index / boardSize }

// Col returns the column of the cell.
func (c Cell) Col() int { return c.Index % boardSize }

// CompletionReport is the result of re-evaluating a board.
type CompletionReport struct {
	NewlyCompletedLines []LineID `json:"newly_completed_lines"`
	BrokenLines         []LineID `json:"broken_lines"`
	IsFullBoard         bool     `json:"is_full_board"`
	IsNewFullBoard      bool     `json:"is_new_full_board"`
}

// generations hands out board generation ids. Ids only grow, so an async
// result tagged with an older id can be recognised as stale.
var generations atomic.Uint64

// BoardState holds the marks of one generated board and which lines they
// complete. It is owned by a single writer and is not safe for concurrent use.
type BoardState struct {
	cells          [cellCount]Cell
	completed      mapset.Set[LineID]
	full           bool
	fullCelebrated bool
	generation     uint64
}

// NewBoardState returns an initialised board.
func NewBoardState() *BoardState {
	b := &BoardState{}
	b.Initialize()
	return b
}

// Initialize clears every mark except the free cell, forgets completed lines
// and the full-board celebration, and assigns a fresh generation id.
func (b *BoardState) Initialize() {
	for i := range b.cells {
		b.cells[i] = Cell{Index: i}
	}
	b.cells[freeIndex].IsFree = true
	b.cells[freeIndex].Marked = true

	b.completed = mapset.New[LineID]()
	b.full = false
	b.fullCelebrated = false
	b.generation = generations.Add(1)
}

// Toggle flips the mark of a cell and returns the resulting report.
// Toggling the free cell changes nothing.
func (b *BoardState) Toggle(index int) (CompletionReport, error) {
	if index < 0 || index >= cellCount {
		return CompletionReport{}, fmt.Errorf("toggle %d: %w", index, ErrOutOfRange)
	}
	if !b.cells[index].IsFree {
		b.cells[index].Marked = !b.cells[index].Marked
	}
	return b.Evaluate(), nil
}

// Evaluate recomputes the completed lines from the current marks and reports
// the difference with the previous evaluation.
func (b *BoardState) Evaluate() CompletionReport {
	previous := b.completed
	current := mapset.New[LineID]()

	var report CompletionReport
	for _, l := range lines {
		done := b.lineComplete(l)
		if done {
			current.Put(l.ID)
		}
		switch {
		case done && !previous.Has(l.ID):
			report.NewlyCompletedLines = append(report.NewlyCompletedLines, l.ID)
		case !done && previous.Has(l.ID):
			report.BrokenLines = append(report.BrokenLines, l.ID)
		}
	}
	b.completed = current

	b.full = b.allMarked()
	report.IsFullBoard = b.full
	if b.full && !b.fullCelebrated {
		b.fullCelebrated = true
		report.IsNewFullBoard = true
	}
	return report
}

func (b *BoardState) lineComplete(l Line) bool {
	for _, i := range l.Cells {
		if !b.cells[i].Marked {
			return false
		}
	}
	return true
}

func (b *BoardState) allMarked() bool {
	for _, c := range b.cells {
		if !c.Marked {
			return false
		}
	}
	return true
}

// Cell returns the cell at index.
func (b *BoardState) Cell(index int) (Cell, error) {
	if index < 0 || index >= cellCount {
		return Cell{}, fmt.Errorf("cell %d: %w", index, ErrOutOfRange)
	}
	return b.cells[index], nil
}

// Cells returns a copy of all cells.
func (b *BoardState) Cells() []Cell {
	out := make([]Cell, cellCount)
	copy(out, b.cells[:])
	return out
}

// CompletedLines returns the completed lines in report order.
func (b *BoardState) CompletedLines() []LineID {
	out := []LineID{}
	for _, l := range lines {
		if b.completed.Has(l.ID) {
			out = append(out, l.ID)
		}
	}
	return out
}

// IsFullBoard reports whether every cell was marked at the last evaluation.
func (b *BoardState) IsFullBoard() bool { return b.full }

// Generation returns the id assigned by the last Initialize.
func (b *BoardState) Generation() uint64 { return b.generation }
