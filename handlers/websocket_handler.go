package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/smashpoint/tournament-api/live"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// В продакшене здесь должна быть проверка Origin,
		// чтобы разрешать подключения только с доверенных доменов.
		return true
	},
}

type WebSocketHandler struct {
	hub *live.Hub
}

func NewWebSocketHandler(hub *live.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// ServeTournament подписывает клиента на события конкретного турнира:
// обновления классификации, результаты матчей, смены статуса.
func (h *WebSocketHandler) ServeTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := strconv.Atoi(chi.URLParam(r, "tournamentID"))
	if err != nil || tournamentID < 1 {
		http.Error(w, "Invalid tournamentID", http.StatusBadRequest)
		return
	}

	h.serve(w, r, live.TournamentRoom(tournamentID))
}

// ServeGlobal подписывает клиента на события глобального рейтинга.
func (h *WebSocketHandler) ServeGlobal(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, live.GlobalRoom)
}

func (h *WebSocketHandler) serve(w http.ResponseWriter, r *http.Request, roomID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader.Upgrade сам отправляет HTTP-ошибку клиенту.
		log.Printf("Failed to upgrade connection for room %s: %v", roomID, err)
		return
	}

	client := &live.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: roomID,
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
