package entities

// LevelTier is one band of the static level table. MaxPoints nil marks the
// single open-ended top tier.
type LevelTier struct {
	ID        int
	Name      string
	MinPoints int
	MaxPoints *int
}

// LevelTable is an ordered set of contiguous, non-overlapping tiers.
// It is read-only reference data, safe for unsynchronized concurrent reads.
type LevelTable []LevelTier

// Resolve returns the highest tier whose MinPoints does not exceed points.
// Tiers must be sorted ascending by MinPoints with the first tier at zero,
// so zero points always lands on the lowest tier and any total above the
// bounded tiers lands on the open-ended top tier.
func (t LevelTable) Resolve(points int) LevelTier {
	current := t[0]
	for _, tier := range t {
		if tier.MinPoints > points {
			break
		}
		current = tier
	}
	return current
}

// ByID returns the tier with the given id, falling back to the lowest tier.
func (t LevelTable) ByID(id int) LevelTier {
	for _, tier := range t {
		if tier.ID == id {
			return tier
		}
	}
	return t[0]
}

// Next returns the tier after the one holding points, or false from the top.
func (t LevelTable) Next(points int) (LevelTier, bool) {
	for _, tier := range t {
		if tier.MinPoints > points {
			return tier, true
		}
	}
	return LevelTier{}, false
}

func bounded(max int) *int { return &max }

// DefaultLevels is the seeded tier ladder.
var DefaultLevels = LevelTable{
	{ID: 1, Name: "Newcomer", MinPoints: 0, MaxPoints: bounded(499)},
	{ID: 2, Name: "Explorer", MinPoints: 500, MaxPoints: bounded(1499)},
	{ID: 3, Name: "Contributor", MinPoints: 1500, MaxPoints: bounded(2999)},
	{ID: 4, Name: "Expert", MinPoints: 3000, MaxPoints: bounded(4999)},
	{ID: 5, Name: "Master", MinPoints: 5000},
}
