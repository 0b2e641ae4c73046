package game

import "errors"

// Gameplay errors go back to the offending connection only; the room state
// is untouched when any of these is returned.
var (
	ErrNotYourTurn           = errors.New("not your turn")
	ErrNoRollsLeft           = errors.New("no rolls left")
	ErrAllDiceLocked         = errors.New("all dice are locked")
	ErrInvalidDiceIndex      = errors.New("invalid dice index")
	ErrCategoryAlreadyFilled = errors.New("category already filled")
	ErrDiceNotRolled         = errors.New("dice not rolled")
	ErrUnknownCategory       = errors.New("unknown category")
	ErrNotHost               = errors.New("only the host can start the game")
	ErrWrongPhase            = errors.New("action not allowed in this phase")
	ErrNotEnoughPlayers      = errors.New("not enough players")
)

// Connection-establishment errors terminate the connection without further
// messaging.
var (
	ErrRoomNotFound          = errors.New("room not found")
	ErrUnrecognizedReconnect = errors.New("unrecognized player on reconnect")
)

// ErrMalformedMessage covers undecodable client frames.
var ErrMalformedMessage = errors.New("malformed message")
