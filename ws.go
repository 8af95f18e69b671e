package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsReadLimit  = 4 << 10
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 25 * time.Second
	wsWriteWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// socketMessage is a command sent by the browser.
type socketMessage struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// GET /api/boards/{id}/ws: toggles in, board events out.
func (s *Server) handleBoardSocket(w http.ResponseWriter, r *http.Request) {
	sess := s.store.GetSession(r.PathValue("id"))
	if sess == nil {
		jsonError(w, "Board not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade for board %s: %v", sess.ID, err)
		return
	}
	defer conn.Close()

	c := s.events.Register(sess.ID)
	defer s.events.Unregister(c)
	s.sendBoardState(c, sess)

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writeSocket(conn, c, done)
	}()

	for {
		var msg socketMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket read on board %s: %v", sess.ID, err)
			}
			break
		}

		switch msg.Type {
		case "toggle":
			if !s.toggleRL.allow(clientIP(r)) {
				sendError(c, "Too many requests, try again later")
				continue
			}
			if _, err := s.toggle(sess, msg.Index); err != nil {
				sendError(c, "Cell index out of range")
			}
		default:
			sendError(c, "Unknown message type")
		}
	}

	close(done)
	<-writerDone
}

// writeSocket forwards queued events to the connection and keeps it alive
// with pings. It is the only writer of conn.
func writeSocket(conn *websocket.Conn, c *client, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg, ok := <-c.ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					log.Printf("websocket write on board %s: %v", c.boardID, err)
				}
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func sendError(c *client, msg string) {
	data, err := json.Marshal(errorEvent{Type: eventError, Error: msg})
	if err != nil {
		return
	}
	c.send(string(data))
}
