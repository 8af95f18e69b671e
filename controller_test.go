package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// recordingPresenter logs every line, full board and reset signal in call
// order. Cell marks go to toggles.
type recordingPresenter struct {
	calls   []string
	toggles []string
}

func (p *recordingPresenter) CellToggled(index int, marked bool, _ CompletionReport) {
	p.toggles = append(p.toggles, fmt.Sprintf("%d:%t", index, marked))
}

func (p *recordingPresenter) LineCompleted(id LineID) {
	p.calls = append(p.calls, "completed:"+string(id))
}

func (p *recordingPresenter) LineBroken(id LineID) {
	p.calls = append(p.calls, "broken:"+string(id))
}

func (p *recordingPresenter) FullBoard() {
	p.calls = append(p.calls, "full")
}

func (p *recordingPresenter) Reset(generation uint64) {
	p.calls = append(p.calls, fmt.Sprintf("reset:%d", generation))
}

func TestControllerForwardsCompletions(t *testing.T) {
	p := &recordingPresenter{}
	c := NewBoardController(p)

	for i := range boardSize {
		if _, err := c.CellActivated(i); err != nil {
			t.Fatalf("activate %d: %v", i, err)
		}
	}
	if _, err := c.CellActivated(3); err != nil {
		t.Fatal(err)
	}

	want := []string{"completed:row-0", "broken:row-0"}
	if diff := cmp.Diff(want, p.calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
	wantToggles := []string{"0:true", "1:true", "2:true", "3:true", "4:true", "3:false"}
	if diff := cmp.Diff(wantToggles, p.toggles); diff != "" {
		t.Fatalf("toggles mismatch (-want +got):\n%s", diff)
	}
}

func TestControllerFullBoardOnce(t *testing.T) {
	p := &recordingPresenter{}
	c := NewBoardController(p)

	for i := range cellCount {
		c.CellActivated(i)
	}
	full := 0
	for _, call := range p.calls {
		if call == "full" {
			full++
		}
	}
	if full != 1 {
		t.Fatalf("expected one full board signal, got %d", full)
	}
	// The last toggle (24) closes row-4, column-4 and the main diagonal,
	// then the full board is signalled.
	tail := p.calls[len(p.calls)-4:]
	want := []string{"completed:row-4", "completed:column-4", "completed:diagonal-main", "full"}
	if diff := cmp.Diff(want, tail); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}

	p.calls = nil
	c.CellActivated(0)
	c.CellActivated(0)
	for _, call := range p.calls {
		if call == "full" {
			t.Fatal("full board signalled a second time")
		}
	}
}

func TestControllerOutOfRange(t *testing.T) {
	p := &recordingPresenter{}
	c := NewBoardController(p)

	if _, err := c.CellActivated(25); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if len(p.calls) != 0 {
		t.Fatalf("no signal expected, got %v", p.calls)
	}
}

func TestControllerReset(t *testing.T) {
	p := &recordingPresenter{}
	c := NewBoardController(p)
	state := c.State()
	for i := range cellCount {
		c.CellActivated(i)
	}

	c.Reset()
	if c.State() != state {
		t.Fatal("reset should reinitialise the same board")
	}
	if len(state.CompletedLines()) != 0 || state.IsFullBoard() {
		t.Fatal("reset should clear completion state")
	}
	last := p.calls[len(p.calls)-1]
	if want := fmt.Sprintf("reset:%d", state.Generation()); last != want {
		t.Fatalf("expected %q, got %q", want, last)
	}

	p.calls = nil
	for i := range cellCount {
		c.CellActivated(i)
	}
	if p.calls[len(p.calls)-1] != "full" {
		t.Fatal("full board should be signalled again after reset")
	}
}

func TestControllerRegenerate(t *testing.T) {
	p := &recordingPresenter{}
	c := NewBoardController(p)
	old := c.State()
	for i := range boardSize {
		c.CellActivated(i)
	}

	c.Regenerate()
	if c.State() == old {
		t.Fatal("regenerate should replace the board")
	}
	if c.State().Generation() <= old.Generation() {
		t.Fatal("new board should have a newer generation")
	}
	if len(old.CompletedLines()) != 1 {
		t.Fatal("old board should be left untouched")
	}
	if len(c.State().CompletedLines()) != 0 {
		t.Fatal("new board should start without lines")
	}
}

func TestControllerWithoutPresenter(t *testing.T) {
	c := NewBoardController(nil)
	for i := range cellCount {
		if _, err := c.CellActivated(i); err != nil {
			t.Fatal(err)
		}
	}
	c.Reset()
	c.Regenerate()
}
