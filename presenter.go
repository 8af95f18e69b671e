package main

// Event types sent to board subscribers.
const (
	eventBoardState    = "board_state"
	eventCellToggled   = "cell_toggled"
	eventLineCompleted = "line_completed"
	eventLineBroken    = "line_broken"
	eventFullBoard     = "full_board"
	eventBoardReset    = "board_reset"
	eventCellImage     = "cell_image"
	eventError         = "error"
)

// lineEvent reports a line that was completed or broken.
type lineEvent struct {
	Type  string `json:"type"`
	Line  LineID `json:"line"`
	Cells []int  `json:"cells"`
}

type fullBoardEvent struct {
	Type string `json:"type"`
}

type resetEvent struct {
	Type       string `json:"type"`
	Generation uint64 `json:"generation"`
}

type cellToggledEvent struct {
	Type   string           `json:"type"`
	Index  int              `json:"index"`
	Marked bool             `json:"marked"`
	Report CompletionReport `json:"report"`
}

type cellImageEvent struct {
	Type       string `json:"type"`
	Index      int    `json:"index"`
	Image      string `json:"image"`
	Generation uint64 `json:"generation"`
}

type boardStateEvent struct {
	Type  string    `json:"type"`
	Board BoardView `json:"board"`
}

type errorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// lineCells returns the cells covered by a line, or nil for an unknown ID.
func lineCells(id LineID) []int {
	for _, l := range lines {
		if l.ID == id {
			return l.Cells[:]
		}
	}
	return nil
}

// eventPresenter publishes a board's signals to its subscribers. The browser
// turns them into highlights, confetti and sound.
type eventPresenter struct {
	boardID string
	events  *Broadcaster
}

func newEventPresenter(events *Broadcaster) func(id string) Presenter {
	return func(id string) Presenter {
		return &eventPresenter{boardID: id, events: events}
	}
}

func (p *eventPresenter) CellToggled(index int, marked bool, report CompletionReport) {
	p.events.Publish(p.boardID, cellToggledEvent{Type: eventCellToggled, Index: index, Marked: marked, Report: report})
}

func (p *eventPresenter) LineCompleted(id LineID) {
	p.events.Publish(p.boardID, lineEvent{Type: eventLineCompleted, Line: id, Cells: lineCells(id)})
}

func (p *eventPresenter) LineBroken(id LineID) {
	p.events.Publish(p.boardID, lineEvent{Type: eventLineBroken, Line: id, Cells: lineCells(id)})
}

func (p *eventPresenter) FullBoard() {
	p.events.Publish(p.boardID, fullBoardEvent{Type: eventFullBoard})
}

func (p *eventPresenter) Reset(generation uint64) {
	p.events.Publish(p.boardID, resetEvent{Type: eventBoardReset, Generation: generation})
}
