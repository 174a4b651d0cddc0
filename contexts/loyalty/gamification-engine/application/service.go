package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"divan/contexts/loyalty/gamification-engine/domain/entities"
	domainerrors "divan/contexts/loyalty/gamification-engine/domain/errors"
	"divan/contexts/loyalty/gamification-engine/ports"
)

// Service orchestrates the ledger, badge, redemption, and ranking operations
// exposed to the chat transport. Atomicity lives in the Repository; the
// service owns validation, trigger policy, logging, and best-effort
// notifications.
type Service struct {
	Repo         ports.Repository
	Notifier     ports.Notifier
	Clock        ports.Clock
	Levels       entities.LevelTable
	Policy       entities.PermanencePolicy
	AdminChatIDs []string
	Logger       *slog.Logger
}

// RegisterUser creates the user on first observed event, with defaults and
// the new-member badge. Idempotent for identities already seen.
func (s Service) RegisterUser(ctx context.Context, userID string) (entities.User, bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return entities.User{}, false, domainerrors.ErrInvalidInput
	}
	user, created, err := s.Repo.CreateUser(ctx, userID, s.now())
	if err != nil {
		return entities.User{}, false, err
	}
	if !created {
		return user, false, nil
	}

	if _, err := s.Repo.GrantBadge(ctx, userID, entities.BadgeNewMember, s.now()); err != nil {
		return entities.User{}, false, err
	}
	user, err = s.Repo.GetUser(ctx, userID)
	if err != nil {
		return entities.User{}, false, err
	}

	s.logger().Info("user registered",
		"event", "loyalty_user_registered",
		"module", "loyalty/gamification-engine",
		"layer", "application",
		"user_id", userID,
	)
	s.notify(ctx, userID, "Welcome! You are now earning loyalty points.")
	return user, true, nil
}

// ApplyDelta applies a signed point delta, clamped at zero, and recomputes
// the level in the same transaction.
func (s Service) ApplyDelta(ctx context.Context, userID string, delta int, reason string) (entities.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return entities.User{}, domainerrors.ErrInvalidInput
	}
	user, err := s.Repo.ApplyPointsDelta(ctx, userID, delta, strings.TrimSpace(reason), s.now())
	if err != nil {
		return entities.User{}, err
	}
	s.logger().Info("points delta applied",
		"event", "loyalty_points_applied",
		"module", "loyalty/gamification-engine",
		"layer", "application",
		"user_id", userID,
		"delta", delta,
		"reason", reason,
		"total_points", user.Points,
		"level_id", user.LevelID,
	)
	return user, nil
}

// Award inserts a badge into the user's set. Returns false without side
// effects when the badge is already present. The caller owns the trigger
// condition; this is pure mechanism.
func (s Service) Award(ctx context.Context, userID string, badgeKey string) (bool, error) {
	userID = strings.TrimSpace(userID)
	badgeKey = strings.TrimSpace(badgeKey)
	if userID == "" {
		return false, domainerrors.ErrInvalidInput
	}
	if _, ok := entities.BadgeByKey(badgeKey); !ok {
		return false, domainerrors.ErrInvalidInput
	}
	granted, err := s.Repo.GrantBadge(ctx, userID, badgeKey, s.now())
	if err != nil {
		return false, err
	}
	if granted {
		s.logger().Info("badge granted",
			"event", "loyalty_badge_granted",
			"module", "loyalty/gamification-engine",
			"layer", "application",
			"user_id", userID,
			"badge_key", badgeKey,
		)
	}
	return granted, nil
}

// TopUsers returns the leaderboard head: points descending, ties broken by
// user creation order.
func (s Service) TopUsers(ctx context.Context, limit int) ([]ports.RankedUser, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.Repo.TopUsers(ctx, limit)
}

// Rank returns the 1-based position of the user in the full descending-points
// ordering, or ErrUserNotFound for identities never observed.
func (s Service) Rank(ctx context.Context, userID string) (int, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, domainerrors.ErrInvalidInput
	}
	return s.Repo.UserRank(ctx, userID)
}

// UserSummary is the read projection served to the chat layer's profile view.
type UserSummary struct {
	User         entities.User
	Tier         entities.LevelTier
	NextTier     *entities.LevelTier
	PointsToNext int
	Rank         int
}

// GetUserSummary assembles the profile projection for one user.
func (s Service) GetUserSummary(ctx context.Context, userID string) (UserSummary, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return UserSummary{}, domainerrors.ErrInvalidInput
	}
	user, err := s.Repo.GetUser(ctx, userID)
	if err != nil {
		return UserSummary{}, err
	}
	rank, err := s.Repo.UserRank(ctx, userID)
	if err != nil {
		return UserSummary{}, err
	}

	summary := UserSummary{
		User: user,
		Tier: s.levels().ByID(user.LevelID),
		Rank: rank,
	}
	if next, ok := s.levels().Next(user.Points); ok {
		summary.NextTier = &next
		summary.PointsToNext = next.MinPoints - user.Points
	}
	return summary, nil
}

// ListActiveRewards returns the redeemable catalog entries still in stock.
func (s Service) ListActiveRewards(ctx context.Context) ([]entities.Reward, error) {
	return s.Repo.ListActiveRewards(ctx)
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s Service) levels() entities.LevelTable {
	if len(s.Levels) == 0 {
		return entities.DefaultLevels
	}
	return s.Levels
}

func (s Service) policy() entities.PermanencePolicy {
	if s.Policy == (entities.PermanencePolicy{}) {
		return entities.DefaultPermanencePolicy
	}
	return s.Policy
}

func (s Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// notify is best-effort: failures are logged, never propagated, and never
// roll back the transaction that preceded them.
func (s Service) notify(ctx context.Context, userID string, text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Send(ctx, userID, text); err != nil {
		s.logger().Warn("notification send failed",
			"event", "loyalty_notify_failed",
			"module", "loyalty/gamification-engine",
			"layer", "application",
			"user_id", userID,
			"error", err.Error(),
		)
	}
}

func (s Service) notifyAdmins(ctx context.Context, text string) {
	for _, adminID := range s.AdminChatIDs {
		s.notify(ctx, adminID, text)
	}
}

func formatPoints(points int) string {
	return fmt.Sprintf("%d points", points)
}
