package ports

import (
	"context"
	"time"

	"divan/contexts/loyalty/gamification-engine/domain/entities"
)

// Clock abstracts current time so jobs and tests control the sweep calendar.
type Clock interface {
	Now() time.Time
}

// Notifier delivers best-effort user messages. Failures are logged by the
// caller and never abort or roll back the transaction that triggered them.
type Notifier interface {
	Send(ctx context.Context, userID string, text string) error
}

// PurchaseResult reports one committed purchase registration.
type PurchaseResult struct {
	User           entities.User
	PointsAwarded  int
	FrequencyBonus int
	FrequentBuyer  bool
	Entry          entities.LedgerEntry
}

// RedemptionResult reports one committed redemption.
type RedemptionResult struct {
	User            entities.User
	Reward          entities.Reward
	FirstRedemption bool
	Entry           entities.LedgerEntry
}

// InteractionResult reports one daily-capped interaction award.
type InteractionResult struct {
	User          entities.User
	AwardedPoints int
	CappedOut     bool
}

// PermanenceResult reports one sweep pass over one user.
type PermanenceResult struct {
	User     entities.User
	Decision entities.PermanenceDecision
}

// RankedUser pairs a leaderboard row with its resolved tier.
type RankedUser struct {
	User entities.User
	Tier entities.LevelTier
	Rank int
}

// Repository is the persistent store boundary. Every mutating method runs as
// one atomic unit with read-then-write semantics serialized against concurrent
// transactions on the same user (and reward) row; partial effects are never
// observable.
type Repository interface {
	CreateUser(ctx context.Context, userID string, now time.Time) (entities.User, bool, error)
	GetUser(ctx context.Context, userID string) (entities.User, error)
	ListUserIDs(ctx context.Context) ([]string, error)

	ApplyPointsDelta(ctx context.Context, userID string, delta int, reason string, now time.Time) (entities.User, error)
	GrantBadge(ctx context.Context, userID string, badgeKey string, now time.Time) (bool, error)
	RegisterPurchase(ctx context.Context, userID string, amount float64, description string, now time.Time) (PurchaseResult, error)
	RedeemReward(ctx context.Context, userID string, rewardID string, now time.Time) (RedemptionResult, error)
	ApplyInteraction(ctx context.Context, userID string, kind string, referenceID string, points int, now time.Time) (InteractionResult, error)
	ApplyPermanence(ctx context.Context, userID string, policy entities.PermanencePolicy, now time.Time) (PermanenceResult, error)

	GetReward(ctx context.Context, rewardID string) (entities.Reward, error)
	ListActiveRewards(ctx context.Context) ([]entities.Reward, error)
	UpsertReward(ctx context.Context, reward entities.Reward) error

	TopUsers(ctx context.Context, limit int) ([]RankedUser, error)
	UserRank(ctx context.Context, userID string) (int, error)
}
