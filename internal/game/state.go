package game

// Player is the durable identity inside a room. The id survives reconnects;
// Connected tracks whether any live socket currently claims it.
type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

// Scorecard maps category name to a committed score, nil while uncommitted.
type Scorecard map[string]*int

// NewScorecard returns a scorecard with all 13 categories open.
func NewScorecard() Scorecard {
	sc := make(Scorecard, NumCategories)
	for c := Category(0); c < NumCategories; c++ {
		sc[c.String()] = nil
	}
	return sc
}

// Filled reports whether every category has been committed.
func (sc Scorecard) Filled() bool {
	for _, v := range sc {
		if v == nil {
			return false
		}
	}
	return true
}

// Pruned returns a copy holding only the committed categories. Used for
// RECONNECT payloads, which skip the null entries.
func (sc Scorecard) Pruned() Scorecard {
	out := make(Scorecard)
	for k, v := range sc {
		if v != nil {
			n := *v
			out[k] = &n
		}
	}
	return out
}

func (sc Scorecard) clone() Scorecard {
	out := make(Scorecard, len(sc))
	for k, v := range sc {
		if v == nil {
			out[k] = nil
			continue
		}
		n := *v
		out[k] = &n
	}
	return out
}

// Phase of a room's game.
type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

// GameState is the single source of truth for one room.
type GameState struct {
	Phase       Phase                `json:"phase"`
	Players     []Player             `json:"players"`
	Dice        [5]int               `json:"dice"`
	Locked      [5]bool              `json:"locked"`
	CurrentTurn int                  `json:"currentTurn"`
	RollsLeft   int                  `json:"rollsLeft"`
	Scorecard   map[string]Scorecard `json:"scorecard"`
}

// NewGameState returns the lobby-phase initial state.
func NewGameState() GameState {
	return GameState{
		Phase:     PhaseLobby,
		Players:   []Player{},
		RollsLeft: 3,
		Scorecard: map[string]Scorecard{},
	}
}

// Clone deep-copies the state. The delta codec diffs the live state against
// the previous broadcast, so that baseline must not alias live maps.
func (s GameState) Clone() GameState {
	out := s
	out.Players = append([]Player(nil), s.Players...)
	out.Scorecard = make(map[string]Scorecard, len(s.Scorecard))
	for id, sc := range s.Scorecard {
		out.Scorecard[id] = sc.clone()
	}
	return out
}

// Commit records a category fill for exactly one broadcast tick. It travels
// next to the state, never inside it, so it cannot leak into full snapshots.
type Commit struct {
	PlayerID string   `json:"playerId"`
	Category Category `json:"categoryIndex"`
	Value    int      `json:"value"`
}
