package http

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/FloatinggOnion/telegram-json-quizbot/internal/domain"
	"github.com/FloatinggOnion/telegram-json-quizbot/internal/leaderboard"
)

// WSHandler streams leaderboard updates to websocket clients. Each connection
// gets the current top-N on connect and a fresh snapshot whenever a session
// finishes.
type WSHandler struct {
	board    *leaderboard.Service
	upgrader websocket.Upgrader
}

func NewWSHandler(board *leaderboard.Service) *WSHandler {
	return &WSHandler{
		board: board,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage struct {
	Type    string                    `json:"type"`
	Payload []domain.LeaderboardEntry `json:"payload"`
}

// ServeWS upgrades the request and forwards leaderboard snapshots until the
// client disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel, err := h.board.Subscribe(r.Context())
	if err != nil {
		log.Printf("ws subscribe failed: %v", err)
		return
	}
	defer cancel()

	// reader only detects close; clients send nothing meaningful
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case top, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage{Type: "leaderboard", Payload: top}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-closed:
			return
		}
	}
}
