package room

import (
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/dicehall/internal/game"
	"example.com/dicehall/internal/protocol"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConn(deltaCapable bool) *ClientConn {
	return &ClientConn{
		send:         make(chan []byte, 256),
		deltaCapable: deltaCapable,
	}
}

// drainFrames decodes everything buffered on a connection without blocking.
func drainFrames(t *testing.T, cc *ClientConn) []protocol.ServerMessage {
	t.Helper()
	var msgs []protocol.ServerMessage
	for {
		select {
		case frame := <-cc.send:
			msg, err := protocol.DecodeServerMessage(frame)
			require.NoError(t, err)
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func lastOfType(msgs []protocol.ServerMessage, typ byte) (protocol.ServerMessage, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == typ {
			return msgs[i], true
		}
	}
	return protocol.ServerMessage{}, false
}

// newTestRoom wires a room with a deterministic rng and two joined players.
func newTestRoom(t *testing.T, hook FinishedHook) (*Room, *ClientConn, *ClientConn, string, string) {
	t.Helper()
	rm := newRoom("XY1", testLogger(), hook)
	rm.rng = rand.New(rand.NewSource(42))

	host := newTestConn(false)
	guest := newTestConn(true)

	hostID, err := rm.JoinLobby("Ala", host)
	require.NoError(t, err)
	guestID, err := rm.JoinLobby("Ola", guest)
	require.NoError(t, err)
	return rm, host, guest, hostID, guestID
}

func TestJoinLobby_FirstPlayerBecomesHost(t *testing.T) {
	rm := newRoom("XY1", testLogger(), nil)
	cc := newTestConn(false)

	id, err := rm.JoinLobby("Ala", cc)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Equal(t, id, rm.hostID)
	require.Equal(t, "Ala", rm.hostName)

	msgs := drainFrames(t, cc)
	joined, ok := lastOfType(msgs, protocol.TypeJoined)
	require.True(t, ok)
	require.Equal(t, id, joined.Joined.SelfID)
	require.Equal(t, 0, joined.Joined.HostIndex)

	_, ok = lastOfType(msgs, protocol.TypeLobbyUpdate)
	require.True(t, ok)
}

func TestJoinLobby_RosterBroadcast(t *testing.T) {
	rm, host, guest, hostID, guestID := newTestRoom(t, nil)
	require.Equal(t, hostID, rm.hostID)

	hostMsgs := drainFrames(t, host)
	update, ok := lastOfType(hostMsgs, protocol.TypeLobbyUpdate)
	require.True(t, ok)
	require.Len(t, update.Lobby.Players, 2)
	require.Equal(t, guestID, update.Lobby.Players[1].ID)
	require.Equal(t, 0, update.Lobby.HostIndex)

	guestMsgs := drainFrames(t, guest)
	joined, ok := lastOfType(guestMsgs, protocol.TypeJoined)
	require.True(t, ok)
	require.Equal(t, guestID, joined.Joined.SelfID)
}

func TestStart_HostOnly(t *testing.T) {
	rm, host, guest, _, _ := newTestRoom(t, nil)

	require.ErrorIs(t, rm.HandleStart(guest), game.ErrNotHost)
	require.Equal(t, game.PhaseLobby, rm.Phase())

	require.NoError(t, rm.HandleStart(host))
	require.Equal(t, game.PhasePlaying, rm.Phase())

	for _, cc := range []*ClientConn{host, guest} {
		msgs := drainFrames(t, cc)
		started, ok := lastOfType(msgs, protocol.TypeGameStart)
		require.True(t, ok)
		require.Equal(t, 0, started.GameStart.State.CurrentTurn)
		require.Equal(t, 3, started.GameStart.State.RollsLeft)
	}
}

func TestRoll_FullUpdateAndDeltaPerCapability(t *testing.T) {
	rm, host, guest, _, _ := newTestRoom(t, nil)
	require.NoError(t, rm.HandleStart(host))
	drainFrames(t, host)
	drainFrames(t, guest)

	require.NoError(t, rm.HandleRoll(host))

	// The plain connection gets a personalized full snapshot.
	hostMsgs := drainFrames(t, host)
	update, ok := lastOfType(hostMsgs, protocol.TypeUpdate)
	require.True(t, ok)
	require.Equal(t, 2, update.Update.State.RollsLeft)
	require.NotContains(t, update.Update.State.Dice, 0)
	require.Contains(t, update.Update.ScorePreview, "total")

	// The delta-capable connection gets only the changed fields.
	guestMsgs := drainFrames(t, guest)
	delta, ok := lastOfType(guestMsgs, protocol.TypeDelta)
	require.True(t, ok)
	require.NotNil(t, delta.Delta.Dice)
	require.NotNil(t, delta.Delta.RollsLeft)
	require.Nil(t, delta.Delta.CurrentTurn)
	require.NotNil(t, delta.Delta.Preview)
}

func TestDeltaSequence_IncreasesPerMutation(t *testing.T) {
	rm, host, guest, _, _ := newTestRoom(t, nil)
	require.NoError(t, rm.HandleStart(host))
	drainFrames(t, guest)

	require.NoError(t, rm.HandleRoll(host))
	require.NoError(t, rm.HandleToggle(host, 0))
	require.NoError(t, rm.HandleToggle(host, 0))

	var seqs []uint32
	for _, msg := range drainFrames(t, guest) {
		if msg.Type == protocol.TypeDelta {
			seqs = append(seqs, msg.Delta.Seq)
		}
	}
	require.Len(t, seqs, 3)
	require.Less(t, seqs[0], seqs[1])
	require.Less(t, seqs[1], seqs[2])
}

func TestGameplayErrors_DoNotBroadcast(t *testing.T) {
	rm, host, guest, _, _ := newTestRoom(t, nil)
	require.NoError(t, rm.HandleStart(host))
	drainFrames(t, host)
	drainFrames(t, guest)

	require.ErrorIs(t, rm.HandleRoll(guest), game.ErrNotYourTurn)
	require.ErrorIs(t, rm.HandleToggle(host, 0), game.ErrDiceNotRolled)
	require.ErrorIs(t, rm.HandleToggle(host, 9), game.ErrInvalidDiceIndex)
	require.ErrorIs(t, rm.HandleSelect(host, game.Chance), game.ErrDiceNotRolled)

	require.Empty(t, drainFrames(t, host))
	require.Empty(t, drainFrames(t, guest))
}

func TestSelect_CommitInDelta(t *testing.T) {
	rm, host, guest, hostID, _ := newTestRoom(t, nil)
	require.NoError(t, rm.HandleStart(host))
	require.NoError(t, rm.HandleRoll(host))
	drainFrames(t, guest)

	require.NoError(t, rm.HandleSelect(host, game.Chance))

	guestMsgs := drainFrames(t, guest)
	delta, ok := lastOfType(guestMsgs, protocol.TypeDelta)
	require.True(t, ok)
	require.NotNil(t, delta.Delta.Commit)
	require.Equal(t, hostID, delta.Delta.Commit.PlayerID)
	require.Equal(t, game.Chance, delta.Delta.Commit.Category)
	require.NotNil(t, delta.Delta.CurrentTurn)
	require.Equal(t, 1, *delta.Delta.CurrentTurn)
}

func TestGameOver_BroadcastOnceAndHookFires(t *testing.T) {
	var hookCalls int
	var hookCode string
	hook := func(code string, players []game.Player, scorecards map[string]game.Scorecard) {
		hookCalls++
		hookCode = code
		require.Len(t, players, 2)
		require.Len(t, scorecards, 2)
	}

	rm, host, guest, hostID, guestID := newTestRoom(t, hook)
	require.NoError(t, rm.HandleStart(host))

	// Fill everything except the host's chance, then commit the last one.
	rm.mu.Lock()
	for _, id := range []string{hostID, guestID} {
		for c := game.Category(0); c < game.NumCategories; c++ {
			if id == hostID && c == game.Chance {
				continue
			}
			v := 4
			rm.state.Scorecard[id][c.String()] = &v
		}
	}
	rm.mu.Unlock()

	require.NoError(t, rm.HandleRoll(host))
	drainFrames(t, host)
	drainFrames(t, guest)

	require.NoError(t, rm.HandleSelect(host, game.Chance))
	require.Equal(t, game.PhaseFinished, rm.Phase())
	require.Equal(t, 1, hookCalls)
	require.Equal(t, "XY1", hookCode)

	for _, cc := range []*ClientConn{host, guest} {
		msgs := drainFrames(t, cc)
		over, ok := lastOfType(msgs, protocol.TypeGameOver)
		require.True(t, ok)
		require.NotNil(t, *over.GameOver.Scorecard[hostID]["chance"])

		count := 0
		for _, m := range msgs {
			if m.Type == protocol.TypeGameOver {
				count++
			}
		}
		require.Equal(t, 1, count)
	}
}

func TestReconnect(t *testing.T) {
	rm, host, guest, hostID, _ := newTestRoom(t, nil)
	require.NoError(t, rm.HandleStart(host))
	require.NoError(t, rm.HandleRoll(host))
	require.NoError(t, rm.HandleSelect(host, game.Chance))

	require.False(t, rm.Detach(host))
	drainFrames(t, guest)

	fresh := newTestConn(true)
	require.ErrorIs(t, rm.Reconnect("nobody", newTestConn(false)), game.ErrUnrecognizedReconnect)
	require.NoError(t, rm.Reconnect(hostID, fresh))

	msgs := drainFrames(t, fresh)
	rec, ok := lastOfType(msgs, protocol.TypeReconnect)
	require.True(t, ok)

	rm.mu.Lock()
	wantDice := rm.state.Dice
	wantTurn := rm.state.CurrentTurn
	wantRolls := rm.state.RollsLeft
	wantChance := *rm.state.Scorecard[hostID]["chance"]
	rm.mu.Unlock()

	require.Equal(t, wantDice, rec.Reconnect.State.Dice)
	require.Equal(t, wantTurn, rec.Reconnect.State.CurrentTurn)
	require.Equal(t, wantRolls, rec.Reconnect.State.RollsLeft)
	// Scorecards arrive pruned to committed entries.
	require.Len(t, rec.Reconnect.State.Scorecard[hostID], 1)
	require.Equal(t, wantChance, *rec.Reconnect.State.Scorecard[hostID]["chance"])
}

func TestDetach_LobbyRemovesPlayerAndMigratesHost(t *testing.T) {
	rm, host, guest, _, guestID := newTestRoom(t, nil)
	drainFrames(t, guest)

	empty := rm.Detach(host)
	require.False(t, empty)
	require.Equal(t, guestID, rm.hostID)
	require.Equal(t, "Ola", rm.hostName)

	msgs := drainFrames(t, guest)
	hostChanged, ok := lastOfType(msgs, protocol.TypeHostChanged)
	require.True(t, ok)
	require.Equal(t, 0, hostChanged.HostIndex)
	update, ok := lastOfType(msgs, protocol.TypeLobbyUpdate)
	require.True(t, ok)
	require.Len(t, update.Lobby.Players, 1)

	require.True(t, rm.Detach(guest))
}

func TestDetach_PlayingKeepsSeat(t *testing.T) {
	rm, host, _, hostID, _ := newTestRoom(t, nil)
	require.NoError(t, rm.HandleStart(host))

	require.False(t, rm.Detach(host))

	rm.mu.Lock()
	defer rm.mu.Unlock()
	require.Len(t, rm.state.Players, 2)
	i, ok := rm.state.FindPlayer(hostID)
	require.True(t, ok)
	require.False(t, rm.state.Players[i].Connected)
	require.Contains(t, rm.state.Scorecard, hostID)
}
