package room

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/dicehall/internal/game"
	"example.com/dicehall/internal/protocol"
)

// FinishedHook observes completed games. It is called once per room, while
// the room lock is held, so implementations must not block.
type FinishedHook func(code string, players []game.Player, scorecards map[string]game.Scorecard)

// Room is one isolated game session. All state mutations happen under mu for
// the duration of mutation plus broadcast, so every socket in the room sees
// mutations in the order they were applied.
type Room struct {
	code string
	mu   sync.Mutex

	state game.GameState
	prev  *game.GameState // last broadcast snapshot, delta baseline
	seq   uint32          // per-room delta sequence

	hostID   string
	hostName string

	conns map[*ClientConn]struct{}

	rng *rand.Rand
	log *slog.Logger

	onFinished FinishedHook
}

func newRoom(code string, log *slog.Logger, onFinished FinishedHook) *Room {
	return &Room{
		code:       code,
		state:      game.NewGameState(),
		conns:      make(map[*ClientConn]struct{}),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		log:        log.With("room", code),
		onFinished: onFinished,
	}
}

func (r *Room) Code() string { return r.code }

// Phase reads the current phase; the router branches on it to decide between
// a fresh join and a reconnect attempt.
func (r *Room) Phase() game.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Phase
}

// JoinLobby mints a durable player identity, adds the player to the room,
// and answers with JOINED before the roster broadcast.
func (r *Room) JoinLobby(name string, cc *ClientConn) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Phase != game.PhaseLobby {
		return "", game.ErrWrongPhase
	}

	playerID := uuid.NewString()
	r.state.AddPlayer(playerID, name)
	if r.hostID == "" {
		r.hostID = playerID
		r.hostName = name
	}

	cc.playerID = playerID
	r.conns[cc] = struct{}{}

	frame, err := protocol.EncodeJoined(playerID, r.state.Players, r.hostIndexLocked())
	if err != nil {
		delete(r.conns, cc)
		r.state.RemovePlayer(playerID)
		if r.hostID == playerID {
			r.hostID = ""
			r.hostName = ""
		}
		return "", err
	}
	r.sendLocked(cc, frame)
	r.broadcastLobbyLocked()

	r.log.Info("player joined", "player", playerID, "name", name)
	return playerID, nil
}

// Reconnect re-associates a previously issued identity with a new socket and
// immediately resyncs it with a RECONNECT frame. The old socket, if any, is
// not evicted; it simply stops being the only one.
func (r *Room) Reconnect(playerID string, cc *ClientConn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.state.FindPlayer(playerID); !ok {
		return game.ErrUnrecognizedReconnect
	}
	r.state.SetConnected(playerID, true)

	cc.playerID = playerID
	r.conns[cc] = struct{}{}

	resync := r.state.Clone()
	for id, sc := range resync.Scorecard {
		resync.Scorecard[id] = sc.Pruned()
	}
	frame, err := protocol.EncodeReconnect(resync, game.Preview(r.state.Dice, r.state.Scorecard[playerID]))
	if err != nil {
		delete(r.conns, cc)
		return err
	}
	r.sendLocked(cc, frame)

	r.log.Info("player reconnected", "player", playerID)
	return nil
}

// Detach removes a socket from the room. In the lobby the player is removed
// outright and the host may migrate; during play the identity stays so the
// player can reconnect. The returned bool is true when the room is empty and
// should be deleted from the registry.
func (r *Room) Detach(cc *ClientConn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.conns, cc)
	playerID := cc.playerID
	if playerID == "" {
		return len(r.conns) == 0 && len(r.state.Players) == 0
	}

	if r.state.Phase != game.PhaseLobby {
		r.state.SetConnected(playerID, false)
		r.log.Info("player disconnected, slot kept", "player", playerID)
		return false
	}

	r.state.RemovePlayer(playerID)
	if playerID == r.hostID {
		if len(r.conns) > 0 && len(r.state.Players) > 0 {
			next := r.state.Players[0]
			r.hostID = next.ID
			r.hostName = next.Name
			r.broadcastLobbyLocked()
			r.broadcastLocked(protocol.EncodeHostChanged(r.hostIndexLocked()))
			r.log.Info("host migrated", "host", next.ID)
		} else {
			r.hostID = ""
			r.hostName = ""
		}
	} else {
		r.broadcastLobbyLocked()
	}

	return len(r.conns) == 0 && len(r.state.Players) == 0
}

// HandleStart begins the game. Host only.
func (r *Room) HandleStart(cc *ClientConn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cc.playerID != r.hostID {
		return game.ErrNotHost
	}
	if err := r.state.Start(); err != nil {
		return err
	}

	frame, err := protocol.EncodeGameStart(r.state)
	if err != nil {
		return err
	}
	r.broadcastLocked(frame)
	snap := r.state.Clone()
	r.prev = &snap

	r.log.Info("game started", "players", len(r.state.Players))
	return nil
}

// HandleRoll rolls the unlocked dice for the current-turn player.
func (r *Room) HandleRoll(cc *ClientConn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.state.Roll(cc.playerID, r.rng); err != nil {
		return err
	}
	r.broadcastStateLocked(nil)
	return nil
}

// HandleToggle flips one die lock.
func (r *Room) HandleToggle(cc *ClientConn, index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.state.ToggleLock(index); err != nil {
		return err
	}
	r.broadcastStateLocked(nil)
	return nil
}

// HandleEndTurn passes the turn without scoring (legacy clients).
func (r *Room) HandleEndTurn(cc *ClientConn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.state.EndTurn(cc.playerID); err != nil {
		return err
	}
	r.broadcastStateLocked(nil)
	return nil
}

// HandleSelect commits a category for the current-turn player. On the final
// commit the room broadcasts GAME_OVER once instead of a regular update.
func (r *Room) HandleSelect(cc *ClientConn, c game.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	commit, finished, err := r.state.SelectCategory(cc.playerID, c)
	if err != nil {
		return err
	}

	if finished {
		frame, err := protocol.EncodeGameOver(r.state.Scorecard)
		if err != nil {
			return err
		}
		r.broadcastLocked(frame)
		snap := r.state.Clone()
		r.prev = &snap
		if r.onFinished != nil {
			r.onFinished(r.code, snap.Players, snap.Scorecard)
		}
		r.log.Info("game finished")
		return nil
	}

	r.broadcastStateLocked(&commit)
	return nil
}

// broadcastStateLocked serializes the mutated state once per capability:
// delta-capable sockets get a DELTA diffed against the previous broadcast,
// everyone else gets a personalized full UPDATE.
func (r *Room) broadcastStateLocked(commit *game.Commit) {
	r.seq++

	var deltaFrame []byte
	if r.prev != nil {
		d := protocol.Diff(*r.prev, r.state, commit, r.seq)
		if f, err := protocol.EncodeDelta(d); err == nil {
			deltaFrame = f
		} else {
			r.log.Error("encode delta", "err", err)
		}
	}

	for cc := range r.conns {
		if cc.deltaCapable && deltaFrame != nil {
			r.sendLocked(cc, deltaFrame)
			continue
		}
		preview := game.Preview(r.state.Dice, r.state.Scorecard[cc.playerID])
		frame, err := protocol.EncodeUpdate(r.state, preview)
		if err != nil {
			r.log.Error("encode update", "err", err)
			continue
		}
		r.sendLocked(cc, frame)
	}

	snap := r.state.Clone()
	r.prev = &snap
}

func (r *Room) broadcastLobbyLocked() {
	frame, err := protocol.EncodeLobbyUpdate(r.state.Players, r.hostIndexLocked())
	if err != nil {
		r.log.Error("encode lobby update", "err", err)
		return
	}
	r.broadcastLocked(frame)
}

func (r *Room) broadcastLocked(frame []byte) {
	for cc := range r.conns {
		r.sendLocked(cc, frame)
	}
}

func (r *Room) sendLocked(cc *ClientConn, frame []byte) {
	select {
	case cc.send <- frame:
	default:
		// Slow reader: drop the frame rather than block the room.
	}
}

func (r *Room) hostIndexLocked() int {
	if i, ok := r.state.FindPlayer(r.hostID); ok {
		return i
	}
	return 0
}
