package game

// Category is one of the 13 scoring slots on a scorecard. The numeric value
// doubles as the wire code for SELECT messages and delta commit records, so
// the order here is fixed.
type Category int

const (
	Ones Category = iota
	Twos
	Threes
	Fours
	Fives
	Sixes
	ThreeOfAKind
	FourOfAKind
	FullHouse
	SmallStraight
	LargeStraight
	Yahtzee
	Chance

	NumCategories = 13
)

var categoryNames = [NumCategories]string{
	"ones", "twos", "threes", "fours", "fives", "sixes",
	"threeOfAKind", "fourOfAKind", "fullHouse",
	"smallStraight", "largeStraight", "yahtzee", "chance",
}

func (c Category) Valid() bool {
	return c >= 0 && c < NumCategories
}

func (c Category) String() string {
	if !c.Valid() {
		return "unknown"
	}
	return categoryNames[c]
}

// ParseCategory maps a scorecard key back to its Category.
func ParseCategory(name string) (Category, bool) {
	for i, n := range categoryNames {
		if n == name {
			return Category(i), true
		}
	}
	return 0, false
}

// upperCategories determine bonus eligibility.
var upperCategories = [6]Category{Ones, Twos, Threes, Fours, Fives, Sixes}

var smallStraights = [3][4]int{
	{1, 2, 3, 4},
	{2, 3, 4, 5},
	{3, 4, 5, 6},
}

var largeStraights = [2][5]int{
	{1, 2, 3, 4, 5},
	{2, 3, 4, 5, 6},
}

// Score computes the point value of the given dice in one category.
// A die value of 0 means "not rolled this turn" and counts for nothing.
func Score(dice [5]int, c Category) int {
	var counts [7]int
	sum := 0
	for _, d := range dice {
		if d >= 0 && d <= 6 {
			counts[d]++
		}
		sum += d
	}

	switch c {
	case Ones, Twos, Threes, Fours, Fives, Sixes:
		face := int(c) + 1
		return counts[face] * face
	case ThreeOfAKind:
		if hasCount(counts, 3) {
			return sum
		}
		return 0
	case FourOfAKind:
		if hasCount(counts, 4) {
			return sum
		}
		return 0
	case FullHouse:
		if containsCount(counts, 3) && containsCount(counts, 2) {
			return 25
		}
		return 0
	case SmallStraight:
		for _, run := range smallStraights {
			if containsRun(counts, run[:]) {
				return 30
			}
		}
		return 0
	case LargeStraight:
		for _, run := range largeStraights {
			if containsRun(counts, run[:]) {
				return 40
			}
		}
		return 0
	case Yahtzee:
		if dice[0] != 0 && counts[dice[0]] == 5 {
			return 50
		}
		return 0
	case Chance:
		return sum
	}
	return 0
}

// hasCount reports whether any face appears at least n times.
func hasCount(counts [7]int, n int) bool {
	for face := 1; face <= 6; face++ {
		if counts[face] >= n {
			return true
		}
	}
	return false
}

// containsCount reports whether some face appears exactly n times.
func containsCount(counts [7]int, n int) bool {
	for face := 1; face <= 6; face++ {
		if counts[face] == n {
			return true
		}
	}
	return false
}

func containsRun(counts [7]int, run []int) bool {
	for _, face := range run {
		if counts[face] == 0 {
			return false
		}
	}
	return true
}

// Bonus is the derived upper-section bonus: 35 once the six committed
// upper-section scores reach 63 points.
func Bonus(sc Scorecard) int {
	sum := 0
	for _, c := range upperCategories {
		if v := sc[c.String()]; v != nil {
			sum += *v
		}
	}
	if sum >= 63 {
		return 35
	}
	return 0
}

// Total is the derived grand total: every committed score plus the bonus.
func Total(sc Scorecard) int {
	sum := Bonus(sc)
	for _, v := range sc {
		if v != nil {
			sum += *v
		}
	}
	return sum
}

// Preview computes what every category would score with the current dice,
// plus the derived bonus and total for the given player's scorecard. It does
// not care which categories are already filled; the UI decides what to show.
func Preview(dice [5]int, sc Scorecard) map[string]int {
	p := make(map[string]int, NumCategories+2)
	for c := Category(0); c < NumCategories; c++ {
		p[c.String()] = Score(dice, c)
	}
	p["bonus"] = Bonus(sc)
	p["total"] = Total(sc)
	return p
}

// PreviewSlots is the compact preview used by deltas: the 13 selectable
// category scores in wire-code order.
func PreviewSlots(dice [5]int) [NumCategories]int {
	var slots [NumCategories]int
	for c := Category(0); c < NumCategories; c++ {
		slots[c] = Score(dice, c)
	}
	return slots
}
