package room

import (
	"crypto/rand"
	"log/slog"
	"sync"
)

// Room codes are short on purpose: three characters typed from a phone.
const (
	roomCodeAlphabet = "QWERTYUIOPASDFGHJKLZXCVBNM0123456789"
	roomCodeLength   = 3
)

// Registry maps room codes to live rooms. Rooms are created on demand and
// removed once their last connection leaves with no players behind.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room

	log        *slog.Logger
	onFinished FinishedHook
}

func NewRegistry(log *slog.Logger, onFinished FinishedHook) *Registry {
	return &Registry{
		rooms:      make(map[string]*Room),
		log:        log,
		onFinished: onFinished,
	}
}

// Create allocates a room under a fresh code, unique among active rooms.
func (g *Registry) Create() *Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	var code string
	for {
		code = randCode(roomCodeLength)
		if _, taken := g.rooms[code]; !taken {
			break
		}
	}
	rm := newRoom(code, g.log, g.onFinished)
	g.rooms[code] = rm
	g.log.Info("room created", "room", code)
	return rm
}

func (g *Registry) Get(code string) (*Room, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rm, ok := g.rooms[code]
	return rm, ok
}

// Remove drops a room from the registry. Callers only do this after Detach
// reported the room empty.
func (g *Registry) Remove(code string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.rooms, code)
	g.log.Info("room deleted", "room", code)
}

// Len reports the number of active rooms.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}

func randCode(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = roomCodeAlphabet[int(b[i])%len(roomCodeAlphabet)]
	}
	return string(b)
}
