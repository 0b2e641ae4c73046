package room

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"example.com/dicehall/internal/game"
	"example.com/dicehall/internal/protocol"
)

// maxNameLen keeps display names inside the wire format's 1-byte string
// length prefix, with room to spare.
const maxNameLen = 32

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server exposes the room registry over HTTP: one endpoint to mint room
// codes and the websocket entry point that routes connections into rooms.
type Server struct {
	rooms *Registry
	log   *slog.Logger
}

func NewServer(rooms *Registry, log *slog.Logger) *Server {
	return &Server{rooms: rooms, log: log}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/create-room", s.handleCreateRoom)
	r.Get("/ws", s.handleWS)
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	rm := s.rooms.Create()
	writeJSON(w, http.StatusOK, map[string]string{"roomCode": rm.Code()})
}

// handleWS reads the connection parameters (room code, optional previously
// issued player id, display name, protocol version) and routes the socket:
// lobby rooms take new joins, anything past the lobby is a reconnect
// attempt. Establishment failures close the socket without messaging.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("room")
	playerID := q.Get("id")
	name := strings.TrimSpace(q.Get("name"))
	if len(name) > maxNameLen {
		http.Error(w, "name too long", http.StatusBadRequest)
		return
	}
	deltaCapable := q.Get("proto") == "2"

	rm, ok := s.rooms.Get(code)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	cc := newClientConn(ws, deltaCapable)
	go cc.writePump()

	if rm.Phase() != game.PhaseLobby {
		if err := rm.Reconnect(playerID, cc); err != nil {
			s.log.Info("reconnect rejected", "room", code, "err", err)
			cc.Close()
			return
		}
	} else {
		if name == "" {
			cc.Close()
			return
		}
		if _, err := rm.JoinLobby(name, cc); err != nil {
			cc.Close()
			return
		}
	}

	s.readLoop(rm, cc)

	if empty := rm.Detach(cc); empty {
		s.rooms.Remove(rm.Code())
	}
	cc.Close()
}

func (s *Server) readLoop(rm *Room, cc *ClientConn) {
	for {
		_, data, err := cc.ws.ReadMessage()
		if err != nil {
			return
		}

		msg, err := protocol.ParseClientMessage(data)
		if err != nil {
			rm.sendError(cc, "malformed message")
			continue
		}

		switch msg.Type {
		case protocol.TypeStart:
			err = rm.HandleStart(cc)
		case protocol.TypeRoll:
			err = rm.HandleRoll(cc)
		case protocol.TypeToggle:
			err = rm.HandleToggle(cc, msg.Index)
		case protocol.TypeEndTurn:
			err = rm.HandleEndTurn(cc)
		case protocol.TypeSelect:
			err = rm.HandleSelect(cc, msg.Category)
		}
		if err != nil {
			// Gameplay failures stay between the server and the offending
			// connection; nothing changed for anyone else.
			rm.sendError(cc, errorText(err))
		}
	}
}

// sendError pushes an ERROR frame to a single connection.
func (r *Room) sendError(cc *ClientConn, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sendLocked(cc, protocol.EncodeError(msg))
}

func errorText(err error) string {
	if errors.Is(err, game.ErrMalformedMessage) {
		return "malformed message"
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
