package main

// Presenter receives the board signals that drive highlighting and
// celebrations.
type Presenter interface {
	CellToggled(index int, marked bool, report CompletionReport)
	LineCompleted(id LineID)
	LineBroken(id LineID)
	FullBoard()
	Reset(generation uint64)
}

// BoardController forwards cell activations to the board it owns and fans the
// resulting report out to a Presenter.
type BoardController struct {
	state     *BoardState
	presenter Presenter
}

// NewBoardController creates a controller with a fresh board.
func NewBoardController(p Presenter) *BoardController {
	return &BoardController{
		state:     NewBoardState(),
		presenter: p,
	}
}

// State returns the board currently owned by the controller.
func (c *BoardController) State() *BoardState {
	return c.state
}

// CellActivated toggles a cell and notifies the presenter of the new mark,
// then of every line completed, the full board if it is new, and every line
// broken.
func (c *BoardController) CellActivated(index int) (CompletionReport, error) {
	report, err := c.state.Toggle(index)
	if err != nil {
		return report, err
	}
	if c.presenter == nil {
		return report, nil
	}
	cell, _ := c.state.Cell(index)
	c.presenter.CellToggled(index, cell.Marked, report)
	for _, id := range report.NewlyCompletedLines {
		c.presenter.LineCompleted(id)
	}
	if report.IsNewFullBoard {
		c.presenter.FullBoard()
	}
	for _, id := range report.BrokenLines {
		c.presenter.LineBroken(id)
	}
	return report, nil
}

// Reset clears the marks of the current board.
func (c *BoardController) Reset() {
	c.state.Initialize()
	c.notifyReset()
}

// Regenerate discards the current board and starts a new one.
func (c *BoardController) Regenerate() {
	c.state = NewBoardState()
	c.notifyReset()
}

func (c *BoardController) notifyReset() {
	if c.presenter != nil {
		c.presenter.Reset(c.state.Generation())
	}
}
