package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"divan/contexts/loyalty/gamification-engine/domain/entities"
	domainerrors "divan/contexts/loyalty/gamification-engine/domain/errors"
)

// RunPermanenceSweep iterates every known user and applies the tenure rules
// for time now. Each user is one independent transaction whose elapsed-period
// check and LastPermanenceCheck update commit together, so overlapping runs
// and retries can never double-award. Returns the count of users that
// received the weekly award.
func (s Service) RunPermanenceSweep(ctx context.Context, now time.Time) (int, error) {
	userIDs, err := s.Repo.ListUserIDs(ctx)
	if err != nil {
		return 0, err
	}

	awarded := 0
	for _, userID := range userIDs {
		result, err := s.Repo.ApplyPermanence(ctx, userID, s.policy(), now)
		if err != nil {
			if errors.Is(err, domainerrors.ErrConcurrentModification) {
				// Another sweep already handled this user; its period gate
				// makes skipping safe.
				continue
			}
			s.logger().Error("permanence pass failed",
				"event", "loyalty_permanence_user_failed",
				"module", "loyalty/gamification-engine",
				"layer", "application",
				"user_id", userID,
				"error", err.Error(),
			)
			continue
		}

		decision := result.Decision
		if decision.WeeklyAwarded {
			awarded++
			s.notify(ctx, userID, fmt.Sprintf(
				"Weekly loyalty bonus: +%s (streak %d).",
				formatPoints(decision.WeeklyPoints), result.User.WeeklyStreak,
			))
		}
		if decision.MonthlyAwarded {
			s.notify(ctx, userID, fmt.Sprintf("Monthly tenure bonus: +%s.", formatPoints(decision.MonthlyPoints)))
		}
		for _, badgeKey := range decision.MilestoneBadges {
			def, _ := entities.BadgeByKey(badgeKey)
			s.notify(ctx, userID, fmt.Sprintf("Milestone reached! You earned the %q badge.", def.Name))
		}
	}

	s.logger().Info("permanence sweep finished",
		"event", "loyalty_permanence_sweep_finished",
		"module", "loyalty/gamification-engine",
		"layer", "application",
		"users_seen", len(userIDs),
		"users_awarded", awarded,
	)
	return awarded, nil
}
