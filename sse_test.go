package main

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func receive(t *testing.T, c *client) string {
	t.Helper()
	select {
	case msg := <-c.ch:
		return msg
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client did not receive message")
		return ""
	}
}

func TestBroadcasterRegisterUnregister(t *testing.T) {
	b := NewBroadcaster()

	c1 := b.Register("board1")
	c2 := b.Register("board1")
	c3 := b.Register("board2")

	if b.ClientCount("board1") != 2 {
		t.Fatalf("expected 2 clients for board1, got %d", b.ClientCount("board1"))
	}
	if b.ClientCount("board2") != 1 {
		t.Fatalf("expected 1 client for board2, got %d", b.ClientCount("board2"))
	}

	b.Unregister(c1)
	if b.ClientCount("board1") != 1 {
		t.Fatalf("expected 1 client for board1 after unregister, got %d", b.ClientCount("board1"))
	}

	b.Unregister(c2)
	b.Unregister(c3)
	if b.ClientCount("board1") != 0 || b.ClientCount("board2") != 0 {
		t.Fatal("expected 0 clients after full unregister")
	}
}

func TestBroadcasterDoubleUnregister(t *testing.T) {
	b := NewBroadcaster()
	c := b.Register("board1")
	b.Unregister(c)
	b.Unregister(c) // should not panic
}

func TestBroadcast(t *testing.T) {
	b := NewBroadcaster()

	c1 := b.Register("board1")
	c2 := b.Register("board1")
	c3 := b.Register("board2")
	defer b.Unregister(c1)
	defer b.Unregister(c2)
	defer b.Unregister(c3)

	b.Broadcast("board1", "hello")

	if msg := receive(t, c1); msg != "hello" {
		t.Fatalf("c1 expected 'hello', got %q", msg)
	}
	if msg := receive(t, c2); msg != "hello" {
		t.Fatalf("c2 expected 'hello', got %q", msg)
	}

	// c3 watches board2, should not receive.
	select {
	case <-c3.ch:
		t.Fatal("c3 should not receive board1 message")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastSkipsFullChannel(t *testing.T) {
	b := NewBroadcaster()
	c := b.Register("board1")

	for range eventChannelBuffer {
		b.Broadcast("board1", "fill")
	}

	// This should not block.
	b.Broadcast("board1", "overflow")

	b.Unregister(c)
}

func TestEventPresenterPublishes(t *testing.T) {
	b := NewBroadcaster()
	c := b.Register("board1")
	defer b.Unregister(c)

	p := newEventPresenter(b)("board1")
	p.LineCompleted(DiagonalAnti)
	p.FullBoard()
	p.LineBroken(RowID(3))
	p.Reset(42)

	var line lineEvent
	json.Unmarshal([]byte(receive(t, c)), &line)
	if line.Type != eventLineCompleted || line.Line != DiagonalAnti || len(line.Cells) != boardSize || line.Cells[0] != 4 {
		t.Fatalf("unexpected completion event %+v", line)
	}
	if msg := receive(t, c); !strings.Contains(msg, eventFullBoard) {
		t.Fatalf("expected full board event, got %s", msg)
	}
	json.Unmarshal([]byte(receive(t, c)), &line)
	if line.Type != eventLineBroken || line.Line != "row-3" || line.Cells[0] != 15 {
		t.Fatalf("unexpected broken event %+v", line)
	}
	var reset resetEvent
	json.Unmarshal([]byte(receive(t, c)), &reset)
	if reset.Type != eventBoardReset || reset.Generation != 42 {
		t.Fatalf("unexpected reset event %+v", reset)
	}
}

func TestServeSSE(t *testing.T) {
	b := NewBroadcaster()
	connected := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.ServeSSE(w, r, "board1", func(c *client) {
			c.send("welcome")
			close(connected)
		})
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	<-connected
	b.Broadcast("board1", "next")

	sc := bufio.NewScanner(resp.Body)
	var got []string
	for len(got) < 2 && sc.Scan() {
		if line, ok := strings.CutPrefix(sc.Text(), "data: "); ok {
			got = append(got, line)
		}
	}
	if len(got) != 2 || got[0] != "welcome" || got[1] != "next" {
		t.Fatalf("unexpected stream %v", got)
	}
}

func TestBroadcasterConcurrent(t *testing.T) {
	b := NewBroadcaster()
	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			boardID := "board1"
			if i%2 == 0 {
				boardID = "board2"
			}
			c := b.Register(boardID)
			b.Publish(boardID, fullBoardEvent{Type: eventFullBoard})
			b.ClientCount(boardID)
			b.Unregister(c)
		}(i)
	}
	wg.Wait()

	if b.ClientCount("board1") != 0 || b.ClientCount("board2") != 0 {
		t.Fatal("expected 0 clients after concurrent test")
	}
}
