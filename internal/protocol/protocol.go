// Package protocol implements the binary wire format spoken over each
// websocket: a leading type byte followed by a type-specific payload. Small
// payloads are raw bytes; structured payloads are canonical JSON framed by a
// 2-byte big-endian length.
package protocol

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"example.com/dicehall/internal/game"
)

// Client → server type bytes.
const (
	TypeStart   byte = 0x01
	TypeRoll    byte = 0x02
	TypeToggle  byte = 0x03
	TypeEndTurn byte = 0x04 // legacy: advance turn without scoring
	TypeSelect  byte = 0x05
)

// Server → client type bytes.
const (
	TypeJoined      byte = 0x10
	TypeLobbyUpdate byte = 0x11
	TypeHostChanged byte = 0x12
	TypeGameStart   byte = 0x13
	TypeUpdate      byte = 0x14
	TypeGameOver    byte = 0x15
	TypeReconnect   byte = 0x16
	TypeDelta       byte = 0x17
	TypeError       byte = 0xFF
)

// ClientMessage is a decoded client → server frame.
type ClientMessage struct {
	Type     byte
	Index    int           // TOGGLE: die index 0-4
	Category game.Category // SELECT: category code 0-12
}

// ParseClientMessage decodes a client frame. Undecodable frames wrap
// game.ErrMalformedMessage; range checks on the payload values are left to
// the state machine so they produce gameplay errors, not protocol errors.
func ParseClientMessage(data []byte) (ClientMessage, error) {
	if len(data) == 0 {
		return ClientMessage{}, fmt.Errorf("%w: empty frame", game.ErrMalformedMessage)
	}
	msg := ClientMessage{Type: data[0]}
	switch msg.Type {
	case TypeStart, TypeRoll, TypeEndTurn:
		return msg, nil
	case TypeToggle:
		if len(data) < 2 {
			return ClientMessage{}, fmt.Errorf("%w: TOGGLE missing die index", game.ErrMalformedMessage)
		}
		msg.Index = int(data[1])
		return msg, nil
	case TypeSelect:
		if len(data) < 2 {
			return ClientMessage{}, fmt.Errorf("%w: SELECT missing category code", game.ErrMalformedMessage)
		}
		msg.Category = game.Category(data[1])
		return msg, nil
	default:
		return ClientMessage{}, fmt.Errorf("%w: unknown type 0x%02x", game.ErrMalformedMessage, msg.Type)
	}
}

// Client frame builders, used by tests and Go clients.

func EncodeStart() []byte   { return []byte{TypeStart} }
func EncodeRoll() []byte    { return []byte{TypeRoll} }
func EncodeEndTurn() []byte { return []byte{TypeEndTurn} }

func EncodeToggle(index int) []byte {
	return []byte{TypeToggle, byte(index)}
}

func EncodeSelect(c game.Category) []byte {
	return []byte{TypeSelect, byte(c)}
}

// PlayerEntry is the (id, name) pair carried by JOINED and LOBBY_UPDATE.
type PlayerEntry struct {
	ID   string
	Name string
}

// Joined is the decoded JOINED payload.
type Joined struct {
	SelfID    string
	Players   []PlayerEntry
	HostIndex int
}

// LobbyUpdate is the decoded LOBBY_UPDATE payload.
type LobbyUpdate struct {
	Players   []PlayerEntry
	HostIndex int
}

// StatePayload is the structured body of UPDATE and RECONNECT frames.
type StatePayload struct {
	State        game.GameState `json:"state"`
	ScorePreview map[string]int `json:"scorePreview"`
}

// PublicState is the game state without scorecards, sent in GAME_START.
type PublicState struct {
	Phase       game.Phase    `json:"phase"`
	Players     []game.Player `json:"players"`
	Dice        [5]int        `json:"dice"`
	Locked      [5]bool       `json:"locked"`
	CurrentTurn int           `json:"currentTurn"`
	RollsLeft   int           `json:"rollsLeft"`
}

// PublicStateOf strips the scorecard from a full state.
func PublicStateOf(s game.GameState) PublicState {
	return PublicState{
		Phase:       s.Phase,
		Players:     s.Players,
		Dice:        s.Dice,
		Locked:      s.Locked,
		CurrentTurn: s.CurrentTurn,
		RollsLeft:   s.RollsLeft,
	}
}

// GameStartPayload is the structured body of GAME_START frames.
type GameStartPayload struct {
	State PublicState `json:"state"`
}

// GameOverPayload carries the final scorecards, broadcast exactly once.
type GameOverPayload struct {
	Scorecard map[string]game.Scorecard `json:"scorecard"`
}

func playerEntries(players []game.Player) []PlayerEntry {
	out := make([]PlayerEntry, len(players))
	for i, p := range players {
		out[i] = PlayerEntry{ID: p.ID, Name: p.Name}
	}
	return out
}

// EncodeJoined builds a JOINED frame confirming a lobby join.
func EncodeJoined(selfID string, players []game.Player, hostIndex int) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(TypeJoined)
	if err := writeString(&buf, selfID); err != nil {
		return nil, err
	}
	if err := writeRoster(&buf, playerEntries(players), hostIndex); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeLobbyUpdate builds a LOBBY_UPDATE frame with the current roster.
func EncodeLobbyUpdate(players []game.Player, hostIndex int) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(TypeLobbyUpdate)
	if err := writeRoster(&buf, playerEntries(players), hostIndex); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeHostChanged builds a HOST_CHANGED frame.
func EncodeHostChanged(hostIndex int) []byte {
	return []byte{TypeHostChanged, byte(hostIndex)}
}

// EncodeGameStart builds a GAME_START frame with the public initial state.
func EncodeGameStart(s game.GameState) ([]byte, error) {
	return encodeBlob(TypeGameStart, GameStartPayload{State: PublicStateOf(s)})
}

// EncodeUpdate builds a full-snapshot UPDATE frame for one recipient.
func EncodeUpdate(s game.GameState, preview map[string]int) ([]byte, error) {
	return encodeBlob(TypeUpdate, StatePayload{State: s, ScorePreview: preview})
}

// EncodeGameOver builds the one-time GAME_OVER frame.
func EncodeGameOver(scorecard map[string]game.Scorecard) ([]byte, error) {
	return encodeBlob(TypeGameOver, GameOverPayload{Scorecard: scorecard})
}

// EncodeReconnect builds a RECONNECT frame. The caller is expected to have
// pruned the scorecards to committed entries already.
func EncodeReconnect(s game.GameState, preview map[string]int) ([]byte, error) {
	return encodeBlob(TypeReconnect, StatePayload{State: s, ScorePreview: preview})
}

// EncodeError builds an ERROR frame. Messages longer than 255 bytes are
// truncated to fit the 1-byte length prefix.
func EncodeError(msg string) []byte {
	b := []byte(msg)
	if len(b) > 255 {
		b = b[:255]
	}
	out := make([]byte, 0, 2+len(b))
	out = append(out, TypeError, byte(len(b)))
	return append(out, b...)
}

// ServerMessage is a decoded server → client frame. Exactly one payload
// field is set, selected by Type.
type ServerMessage struct {
	Type      byte
	Joined    *Joined
	Lobby     *LobbyUpdate
	HostIndex int
	GameStart *GameStartPayload
	Update    *StatePayload
	GameOver  *GameOverPayload
	Reconnect *StatePayload
	Delta     *Delta
	Error     string
}

// DecodeServerMessage decodes any server → client frame.
func DecodeServerMessage(data []byte) (ServerMessage, error) {
	if len(data) == 0 {
		return ServerMessage{}, fmt.Errorf("%w: empty frame", game.ErrMalformedMessage)
	}
	msg := ServerMessage{Type: data[0]}
	body := data[1:]
	switch msg.Type {
	case TypeJoined:
		selfID, rest, err := readString(body)
		if err != nil {
			return ServerMessage{}, err
		}
		players, hostIndex, err := readRoster(rest)
		if err != nil {
			return ServerMessage{}, err
		}
		msg.Joined = &Joined{SelfID: selfID, Players: players, HostIndex: hostIndex}
	case TypeLobbyUpdate:
		players, hostIndex, err := readRoster(body)
		if err != nil {
			return ServerMessage{}, err
		}
		msg.Lobby = &LobbyUpdate{Players: players, HostIndex: hostIndex}
	case TypeHostChanged:
		if len(body) < 1 {
			return ServerMessage{}, fmt.Errorf("%w: HOST_CHANGED missing index", game.ErrMalformedMessage)
		}
		msg.HostIndex = int(body[0])
	case TypeGameStart:
		msg.GameStart = &GameStartPayload{}
		if err := decodeBlob(body, msg.GameStart); err != nil {
			return ServerMessage{}, err
		}
	case TypeUpdate:
		msg.Update = &StatePayload{}
		if err := decodeBlob(body, msg.Update); err != nil {
			return ServerMessage{}, err
		}
	case TypeGameOver:
		msg.GameOver = &GameOverPayload{}
		if err := decodeBlob(body, msg.GameOver); err != nil {
			return ServerMessage{}, err
		}
	case TypeReconnect:
		msg.Reconnect = &StatePayload{}
		if err := decodeBlob(body, msg.Reconnect); err != nil {
			return ServerMessage{}, err
		}
	case TypeDelta:
		msg.Delta = &Delta{}
		if err := decodeBlob(body, msg.Delta); err != nil {
			return ServerMessage{}, err
		}
	case TypeError:
		if len(body) < 1 || len(body) < 1+int(body[0]) {
			return ServerMessage{}, fmt.Errorf("%w: truncated ERROR frame", game.ErrMalformedMessage)
		}
		msg.Error = string(body[1 : 1+int(body[0])])
	default:
		return ServerMessage{}, fmt.Errorf("%w: unknown type 0x%02x", game.ErrMalformedMessage, msg.Type)
	}
	return msg, nil
}

// writeString writes a 1-byte-length-prefixed string (max 255 bytes).
func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 255 {
		return fmt.Errorf("string field too long: %d bytes", len(s))
	}
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
	return nil
}

func readString(data []byte) (string, []byte, error) {
	if len(data) < 1 {
		return "", nil, fmt.Errorf("%w: missing string length", game.ErrMalformedMessage)
	}
	n := int(data[0])
	if len(data) < 1+n {
		return "", nil, fmt.Errorf("%w: truncated string", game.ErrMalformedMessage)
	}
	return string(data[1 : 1+n]), data[1+n:], nil
}

func writeRoster(buf *bytes.Buffer, players []PlayerEntry, hostIndex int) error {
	if len(players) > 255 {
		return fmt.Errorf("too many players: %d", len(players))
	}
	buf.WriteByte(byte(len(players)))
	for _, p := range players {
		if err := writeString(buf, p.ID); err != nil {
			return err
		}
		if err := writeString(buf, p.Name); err != nil {
			return err
		}
	}
	buf.WriteByte(byte(hostIndex))
	return nil
}

func readRoster(data []byte) ([]PlayerEntry, int, error) {
	if len(data) < 1 {
		return nil, 0, fmt.Errorf("%w: missing player count", game.ErrMalformedMessage)
	}
	count := int(data[0])
	rest := data[1:]
	players := make([]PlayerEntry, 0, count)
	for i := 0; i < count; i++ {
		id, r, err := readString(rest)
		if err != nil {
			return nil, 0, err
		}
		name, r2, err := readString(r)
		if err != nil {
			return nil, 0, err
		}
		players = append(players, PlayerEntry{ID: id, Name: name})
		rest = r2
	}
	if len(rest) < 1 {
		return nil, 0, fmt.Errorf("%w: missing host index", game.ErrMalformedMessage)
	}
	return players, int(rest[0]), nil
}

// encodeBlob frames v as type byte + uint16 big-endian length + JSON.
func encodeBlob(typ byte, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode 0x%02x payload: %w", typ, err)
	}
	if len(body) > 0xFFFF {
		return nil, fmt.Errorf("0x%02x payload too large: %d bytes", typ, len(body))
	}
	out := make([]byte, 3, 3+len(body))
	out[0] = typ
	binary.BigEndian.PutUint16(out[1:3], uint16(len(body)))
	return append(out, body...), nil
}

func decodeBlob(body []byte, v any) error {
	if len(body) < 2 {
		return fmt.Errorf("%w: missing payload length", game.ErrMalformedMessage)
	}
	n := int(binary.BigEndian.Uint16(body[:2]))
	if len(body) < 2+n {
		return fmt.Errorf("%w: truncated payload", game.ErrMalformedMessage)
	}
	if err := json.Unmarshal(body[2:2+n], v); err != nil {
		return fmt.Errorf("%w: %v", game.ErrMalformedMessage, err)
	}
	return nil
}
