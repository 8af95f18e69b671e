package main

import (
	"sync"
	"time"
)

// CellView is a cell as shown to players.
type CellView struct {
	Index            int    `json:"index"`
	Word             string `json:"word"`
	ImageDescription string `json:"image_description"`
	Image            string `json:"image,omitempty"`
	Marked           bool   `json:"marked"`
	IsFree           bool   `json:"is_free"`
}

// BoardView is a snapshot of a session.
type BoardView struct {
	ID             string     `json:"id"`
	Reference      string     `json:"reference"`
	Generation     uint64     `json:"generation"`
	Cells          []CellView `json:"cells"`
	CompletedLines []LineID   `json:"completed_lines"`
	IsFullBoard    bool       `json:"is_full_board"`
	UsedFallback   bool       `json:"used_fallback"`
	FallbackReason string     `json:"fallback_reason,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// imageJob is a cell whose image has not been resolved yet.
type imageJob struct {
	index int
	desc  string
}

// Session is one player's bingo board: the words on it, their images, and
// the controller that tracks marks. All methods are safe for concurrent use;
// cell activations are applied one at a time.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	reference  string
	fallback   string
	topics     []Topic
	images     []string
	controller *BoardController
	resolver   *ImageResolver
}

func newSession(id, reference string, topics []Topic, fallback string, resolver *ImageResolver, p Presenter) *Session {
	s := &Session{
		ID:         id,
		CreatedAt:  time.Now(),
		reference:  reference,
		fallback:   fallback,
		controller: NewBoardController(p),
	}
	s.setContent(topics, resolver)
	return s
}

// setContent lays out the 24 topics around the free cell. Callers hold mu or
// own the session exclusively.
func (s *Session) setContent(topics []Topic, resolver *ImageResolver) {
	s.topics = boardTopics(topics)
	s.images = make([]string, cellCount)
	s.images[freeIndex] = freeImageURL
	s.resolver = resolver
}

// Toggle activates a cell and returns the cell as it now stands together
// with the completion report.
func (s *Session) Toggle(index int) (Cell, CompletionReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.controller.CellActivated(index)
	if err != nil {
		return Cell{}, report, err
	}
	cell, err := s.controller.State().Cell(index)
	return cell, report, err
}

// Reset clears every mark but keeps the words. It returns the new generation.
func (s *Session) Reset() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller.Reset()
	return s.controller.State().Generation()
}

// Regenerate replaces the words and the board. fallback says why the words
// are the built-in ones, or is empty. It returns the new generation.
func (s *Session) Regenerate(reference string, topics []Topic, fallback string, resolver *ImageResolver) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reference = reference
	s.fallback = fallback
	s.setContent(topics, resolver)
	s.controller.Regenerate()
	return s.controller.State().Generation()
}

// Reference returns the scripture reference the words were drawn for.
func (s *Session) Reference() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reference
}

// Generation returns the generation of the current board.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.State().Generation()
}

// pendingImages returns the cells still waiting for an image together with
// the resolver and generation they belong to.
func (s *Session) pendingImages() (uint64, *ImageResolver, []imageJob) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var jobs []imageJob
	for i, img := range s.images {
		if img == "" {
			jobs = append(jobs, imageJob{index: i, desc: s.topics[i].ImageDescription})
		}
	}
	return s.controller.State().Generation(), s.resolver, jobs
}

// SetImage records the image of a cell. Results for an older generation are
// dropped and SetImage returns false.
func (s *Session) SetImage(generation uint64, index int, image string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.controller.State().Generation() {
		return false
	}
	if index < 0 || index >= cellCount {
		return false
	}
	s.images[index] = image
	return true
}

// View returns a snapshot of the session.
func (s *Session) View() BoardView {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.controller.State()
	cells := state.Cells()
	views := make([]CellView, cellCount)
	for i, c := range cells {
		views[i] = CellView{
			Index:            i,
			Word:             s.topics[i].Word,
			ImageDescription: s.topics[i].ImageDescription,
			Image:            s.images[i],
			Marked:           c.Marked,
			IsFree:           c.IsFree,
		}
	}
	return BoardView{
		ID:             s.ID,
		Reference:      s.reference,
		Generation:     state.Generation(),
		Cells:          views,
		CompletedLines: state.CompletedLines(),
		IsFullBoard:    state.IsFullBoard(),
		UsedFallback:   s.fallback != "",
		FallbackReason: s.fallback,
		CreatedAt:      s.CreatedAt,
	}
}
