package entities

import "time"

// UnlimitedStock is the sentinel stock value for rewards without a finite pool.
const UnlimitedStock = -1

// User is the per-member loyalty state. The engine exclusively owns mutation
// of Points, LevelID, Badges, WeeklyStreak, LastPermanenceCheck and the daily
// interaction counters; collaborators read but never write these directly.
type User struct {
	UserID              string
	Points              int
	LevelID             int
	Badges              []string
	PurchaseCount       int
	JoinedAt            time.Time
	LastPermanenceCheck time.Time
	LastMonthlyBonus    time.Time
	WeeklyStreak        int
	DailyPointsEarned   int
	LastDailyReset      time.Time
	CreatedSeq          int64
	UpdatedAt           time.Time
}

// HasBadge reports whether the badge key is already in the user's badge set.
func (u User) HasBadge(key string) bool {
	for _, badge := range u.Badges {
		if badge == key {
			return true
		}
	}
	return false
}

// Reward is a redeemable catalog entry. Stock is decremented only by
// redemption; UnlimitedStock disables the stock check entirely.
type Reward struct {
	RewardID    string
	Name        string
	Description string
	PointsCost  int
	Stock       int
	Active      bool
}

// InStock reports whether the reward can still be redeemed.
func (r Reward) InStock() bool {
	return r.Stock == UnlimitedStock || r.Stock > 0
}

// LedgerEntryKind classifies append-only audit entries.
const (
	LedgerKindAdjustment  = "adjustment"
	LedgerKindPurchase    = "purchase"
	LedgerKindRedemption  = "redemption"
	LedgerKindInteraction = "interaction"
	LedgerKindPermanence  = "permanence"
)

// LedgerEntry is a write-once audit record. Purchase amounts and redemption
// references land here; the user's purchase_count is derivable from it.
type LedgerEntry struct {
	EntryID     string
	UserID      string
	Kind        string
	Amount      float64
	RewardID    string
	PointsDelta int
	Reason      string
	CreatedAt   time.Time
}
