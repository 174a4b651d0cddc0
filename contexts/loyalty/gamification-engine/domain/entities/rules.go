package entities

import "time"

// Purchase and interaction tuning. Amounts are monetary units; points are
// engine points.
const (
	PurchaseFrequencyEvery = 5
	PurchaseFrequencyBonus = 150

	DailyInteractionCap = 20
)

// PermanencePolicy drives the periodic tenure job. Zero values are never
// valid; use DefaultPermanencePolicy unless config overrides it.
type PermanencePolicy struct {
	WeeklyBasePoints    int
	WeeklyStreakCap     int
	MonthlyBonusEnabled bool
	MonthlyBonusPoints  int
	MonthlyBonusPeriod  time.Duration
	SixMonthBonusPoints int
	OneYearBonusPoints  int
}

// DefaultPermanencePolicy mirrors the seeded production values.
var DefaultPermanencePolicy = PermanencePolicy{
	WeeklyBasePoints:    10,
	WeeklyStreakCap:     5,
	MonthlyBonusEnabled: true,
	MonthlyBonusPoints:  50,
	MonthlyBonusPeriod:  30 * 24 * time.Hour,
	SixMonthBonusPoints: 100,
	OneYearBonusPoints:  200,
}

// PointsForPurchase is the fixed step schedule over the purchase amount.
// Exact-match tiers (350 and 250) win over the range that encloses them.
func PointsForPurchase(amount float64) int {
	switch {
	case amount >= 500:
		return 350
	case amount == 350:
		return 250
	case amount >= 350:
		return 200
	case amount == 250:
		return 180
	case amount >= 250:
		return 150
	case amount >= 150:
		return 100
	case amount >= 100:
		return 70
	default:
		return int(amount * 0.5)
	}
}

// PurchaseAward computes the total points for a purchase given the user's
// purchase counter before the increment. Every fifth purchase carries the
// frequency bonus on top of the base schedule.
func PurchaseAward(amount float64, purchaseCountBefore int) (total int, bonus int) {
	total = PointsForPurchase(amount)
	if purchaseCountBefore%PurchaseFrequencyEvery == PurchaseFrequencyEvery-1 {
		bonus = PurchaseFrequencyBonus
		total += bonus
	}
	return total, bonus
}

// InteractionDecision is the outcome of the daily-capped interaction award.
type InteractionDecision struct {
	AwardedPoints int
	CappedOut     bool
	ResetDaily    bool
}

// EvaluateInteraction clamps an interaction award to the remaining daily
// allowance, resetting the counter when the calendar day has rolled over.
func EvaluateInteraction(user User, points int, now time.Time) InteractionDecision {
	decision := InteractionDecision{}
	earnedToday := user.DailyPointsEarned
	if user.LastDailyReset.IsZero() || beforeDay(user.LastDailyReset, now) {
		decision.ResetDaily = true
		earnedToday = 0
	}

	remaining := DailyInteractionCap - earnedToday
	if remaining <= 0 {
		decision.CappedOut = true
		return decision
	}
	if points > remaining {
		points = remaining
		decision.CappedOut = true
	}
	decision.AwardedPoints = points
	return decision
}

func beforeDay(earlier, later time.Time) bool {
	ey, em, ed := earlier.UTC().Date()
	ly, lm, ld := later.UTC().Date()
	if ey != ly {
		return ey < ly
	}
	if em != lm {
		return em < lm
	}
	return ed < ld
}

// PermanenceDecision is the pure outcome of one sweep pass over one user.
// Adapters persist it inside the same transaction that re-read the user row,
// so the elapsed-period check and the LastPermanenceCheck update commit
// together.
type PermanenceDecision struct {
	WeeklyAwarded   bool
	WeeklyPoints    int
	MonthlyAwarded  bool
	MonthlyPoints   int
	MilestoneBadges []string
	MilestonePoints int
	TotalPoints     int
}

// EvaluatePermanence applies the weekly, monthly, and milestone rules to a
// snapshot of the user at time now. Milestones are evaluated on every pass
// regardless of the weekly gate; badge absence is their only guard.
func EvaluatePermanence(user User, policy PermanencePolicy, now time.Time) PermanenceDecision {
	decision := PermanenceDecision{}

	weeks := int(now.Sub(user.LastPermanenceCheck).Hours()) / (24 * 7)
	if weeks >= 1 {
		streakBonus := user.WeeklyStreak
		if streakBonus > policy.WeeklyStreakCap {
			streakBonus = policy.WeeklyStreakCap
		}
		decision.WeeklyAwarded = true
		decision.WeeklyPoints = policy.WeeklyBasePoints + streakBonus
	}

	if policy.MonthlyBonusEnabled {
		anchor := user.LastMonthlyBonus
		if anchor.IsZero() {
			anchor = user.JoinedAt
		}
		if now.Sub(anchor) >= policy.MonthlyBonusPeriod {
			decision.MonthlyAwarded = true
			decision.MonthlyPoints = policy.MonthlyBonusPoints
		}
	}

	tenure := now.Sub(user.JoinedAt)
	if tenure >= 180*24*time.Hour && !user.HasBadge(BadgeVeteranSixMonths) {
		decision.MilestoneBadges = append(decision.MilestoneBadges, BadgeVeteranSixMonths)
		decision.MilestonePoints += policy.SixMonthBonusPoints
	}
	if tenure >= 365*24*time.Hour && !user.HasBadge(BadgeVeteranOneYear) {
		decision.MilestoneBadges = append(decision.MilestoneBadges, BadgeVeteranOneYear)
		decision.MilestonePoints += policy.OneYearBonusPoints
	}

	decision.TotalPoints = decision.WeeklyPoints + decision.MonthlyPoints + decision.MilestonePoints
	return decision
}

// ClampDelta applies a signed delta to a balance, flooring at zero.
func ClampDelta(points, delta int) int {
	next := points + delta
	if next < 0 {
		return 0
	}
	return next
}
