package game

import "math/rand"

// AddPlayer appends a player to the turn order and materializes their empty
// scorecard. Only valid while the room is in the lobby.
func (s *GameState) AddPlayer(id, name string) {
	s.Players = append(s.Players, Player{ID: id, Name: name, Connected: true})
	s.Scorecard[id] = NewScorecard()
}

// RemovePlayer drops a player and their scorecard. Only called in the lobby;
// once the game starts, identities persist for the life of the room.
func (s *GameState) RemovePlayer(id string) {
	for i, p := range s.Players {
		if p.ID == id {
			s.Players = append(s.Players[:i], s.Players[i+1:]...)
			break
		}
	}
	delete(s.Scorecard, id)
}

// FindPlayer returns the turn-order index of the given identity.
func (s *GameState) FindPlayer(id string) (int, bool) {
	for i, p := range s.Players {
		if p.ID == id {
			return i, true
		}
	}
	return 0, false
}

// SetConnected flips the liveness flag of one player.
func (s *GameState) SetConnected(id string, connected bool) bool {
	i, ok := s.FindPlayer(id)
	if !ok {
		return false
	}
	s.Players[i].Connected = connected
	return true
}

// Start moves the room from lobby to playing and resets the turn state.
// Scorecards created at join time are kept as-is; a committed score never
// changes once written.
func (s *GameState) Start() error {
	if s.Phase != PhaseLobby {
		return ErrWrongPhase
	}
	if len(s.Players) < 2 {
		return ErrNotEnoughPlayers
	}
	s.Phase = PhasePlaying
	s.Dice = [5]int{}
	s.Locked = [5]bool{}
	s.CurrentTurn = 0
	s.RollsLeft = 3
	for _, p := range s.Players {
		if _, ok := s.Scorecard[p.ID]; !ok {
			s.Scorecard[p.ID] = NewScorecard()
		}
	}
	return nil
}

// Roll re-randomizes every unlocked die. Only the current-turn player may
// roll, and only while rolls remain.
func (s *GameState) Roll(playerID string, rng *rand.Rand) error {
	if s.Phase != PhasePlaying {
		return ErrWrongPhase
	}
	if !s.isCurrent(playerID) {
		return ErrNotYourTurn
	}
	if s.RollsLeft <= 0 {
		return ErrNoRollsLeft
	}
	if s.Locked == [5]bool{true, true, true, true, true} {
		return ErrAllDiceLocked
	}
	for i := range s.Dice {
		if !s.Locked[i] {
			s.Dice[i] = rng.Intn(6) + 1
		}
	}
	s.RollsLeft--
	return nil
}

// ToggleLock flips the lock on one die. Locking is refused before the first
// roll of a turn; beyond that any connection may toggle, regardless of whose
// turn it is (reference behavior, kept deliberately).
func (s *GameState) ToggleLock(index int) error {
	if s.Phase != PhasePlaying {
		return ErrWrongPhase
	}
	if index < 0 || index >= len(s.Dice) {
		return ErrInvalidDiceIndex
	}
	if !s.diceRolled() {
		return ErrDiceNotRolled
	}
	s.Locked[index] = !s.Locked[index]
	return nil
}

// SelectCategory commits the current dice into one category for the
// current-turn player, clears the dice, and advances the turn. When the last
// open category fills, the phase flips to finished and the second return is
// true.
func (s *GameState) SelectCategory(playerID string, c Category) (Commit, bool, error) {
	if s.Phase != PhasePlaying {
		return Commit{}, false, ErrWrongPhase
	}
	if !s.isCurrent(playerID) {
		return Commit{}, false, ErrNotYourTurn
	}
	if !c.Valid() {
		return Commit{}, false, ErrUnknownCategory
	}
	sc := s.Scorecard[playerID]
	if sc[c.String()] != nil {
		return Commit{}, false, ErrCategoryAlreadyFilled
	}
	if !s.diceRolled() {
		return Commit{}, false, ErrDiceNotRolled
	}

	value := Score(s.Dice, c)
	sc[c.String()] = &value
	s.Dice = [5]int{}
	s.advanceTurn()

	if s.allFilled() {
		s.Phase = PhaseFinished
		return Commit{PlayerID: playerID, Category: c, Value: value}, true, nil
	}
	return Commit{PlayerID: playerID, Category: c, Value: value}, false, nil
}

// EndTurn passes the turn without committing a score. Legacy operation kept
// for old clients; restricted to the current-turn player.
func (s *GameState) EndTurn(playerID string) error {
	if s.Phase != PhasePlaying {
		return ErrWrongPhase
	}
	if !s.isCurrent(playerID) {
		return ErrNotYourTurn
	}
	s.advanceTurn()
	return nil
}

func (s *GameState) advanceTurn() {
	s.RollsLeft = 3
	s.Locked = [5]bool{}
	s.CurrentTurn = (s.CurrentTurn + 1) % len(s.Players)
}

func (s *GameState) isCurrent(playerID string) bool {
	return s.CurrentTurn < len(s.Players) && s.Players[s.CurrentTurn].ID == playerID
}

// diceRolled reports whether a roll has happened this turn (no die is 0).
func (s *GameState) diceRolled() bool {
	for _, d := range s.Dice {
		if d == 0 {
			return false
		}
	}
	return true
}

func (s *GameState) allFilled() bool {
	for _, p := range s.Players {
		if !s.Scorecard[p.ID].Filled() {
			return false
		}
	}
	return len(s.Players) > 0
}
