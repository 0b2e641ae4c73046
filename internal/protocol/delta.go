package protocol

import "example.com/dicehall/internal/game"

// Delta carries only the state fields that changed since the last broadcast,
// plus a per-room sequence number so receivers can spot gaps and reordering.
// Absent fields mean "unchanged".
type Delta struct {
	Seq         uint32                   `json:"seq"`
	Dice        *[5]int                  `json:"dice,omitempty"`
	Locked      *[5]bool                 `json:"locked,omitempty"`
	RollsLeft   *int                     `json:"rollsLeft,omitempty"`
	CurrentTurn *int                     `json:"currentTurn,omitempty"`
	Commit      *game.Commit             `json:"commit,omitempty"`
	Preview     *[game.NumCategories]int `json:"preview,omitempty"`
}

// Diff compares two successive snapshots field by field. Array comparison is
// order- and length-sensitive ([5] arrays compare with ==). The commit record
// is taken from the mutation result, never from the states themselves. The
// preview rides along whenever the dice changed or a category was committed.
func Diff(prev, next game.GameState, commit *game.Commit, seq uint32) Delta {
	d := Delta{Seq: seq}
	if next.Dice != prev.Dice {
		dice := next.Dice
		d.Dice = &dice
	}
	if next.Locked != prev.Locked {
		locked := next.Locked
		d.Locked = &locked
	}
	if next.RollsLeft != prev.RollsLeft {
		n := next.RollsLeft
		d.RollsLeft = &n
	}
	if next.CurrentTurn != prev.CurrentTurn {
		n := next.CurrentTurn
		d.CurrentTurn = &n
	}
	if commit != nil {
		c := *commit
		d.Commit = &c
	}
	if d.Dice != nil || d.Commit != nil {
		slots := game.PreviewSlots(next.Dice)
		d.Preview = &slots
	}
	return d
}

// Empty reports whether the delta carries no changes at all.
func (d Delta) Empty() bool {
	return d.Dice == nil && d.Locked == nil && d.RollsLeft == nil &&
		d.CurrentTurn == nil && d.Commit == nil && d.Preview == nil
}

// Apply folds a delta into a state. Fields absent from the delta are left
// untouched, so applying the same delta twice is a no-op the second time.
func Apply(s *game.GameState, d Delta) {
	if d.Dice != nil {
		s.Dice = *d.Dice
	}
	if d.Locked != nil {
		s.Locked = *d.Locked
	}
	if d.RollsLeft != nil {
		s.RollsLeft = *d.RollsLeft
	}
	if d.CurrentTurn != nil {
		s.CurrentTurn = *d.CurrentTurn
	}
	if d.Commit != nil {
		sc, ok := s.Scorecard[d.Commit.PlayerID]
		if !ok {
			sc = game.NewScorecard()
			s.Scorecard[d.Commit.PlayerID] = sc
		}
		v := d.Commit.Value
		sc[d.Commit.Category.String()] = &v
	}
}

// EncodeDelta builds a DELTA frame.
func EncodeDelta(d Delta) ([]byte, error) {
	return encodeBlob(TypeDelta, d)
}
