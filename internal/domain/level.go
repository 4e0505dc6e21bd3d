package domain

// Level is the access level of a user. Levels are strictly ordered; a
// higher rank implies every permission of the ranks below it.
type Level string

const (
	// LevelPending is assigned on first login, before an admin decision
	LevelPending Level = "pending"

	// LevelUser is a regular approved member
	LevelUser Level = "user"

	// LevelLeadership may manage users, balances and cases
	LevelLeadership Level = "leadership"

	// LevelDev has every permission, including granting LevelDev
	LevelDev Level = "dev"
)

var levelRanks = map[Level]int{
	LevelPending:    0,
	LevelUser:       1,
	LevelLeadership: 2,
	LevelDev:        3,
}

// Rank returns the numeric order of the level; unknown levels rank below
// pending
func (l Level) Rank() int {
	rank, ok := levelRanks[l]
	if !ok {
		return -1
	}
	return rank
}

// IsValid reports whether the level is one of the known levels
func (l Level) IsValid() bool {
	_, ok := levelRanks[l]
	return ok
}

// AtLeast reports whether the level meets the given minimum
func (l Level) AtLeast(minimum Level) bool {
	return l.IsValid() && l.Rank() >= minimum.Rank()
}

// AssignableLevels returns the levels an admin may assign to a user.
// Pending is excluded: it only exists as the initial pre-decision state.
func AssignableLevels() []Level {
	return []Level{LevelUser, LevelLeadership, LevelDev}
}
