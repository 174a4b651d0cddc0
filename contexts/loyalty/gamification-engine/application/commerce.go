package application

import (
	"context"
	"fmt"
	"strings"

	"divan/contexts/loyalty/gamification-engine/domain/entities"
	domainerrors "divan/contexts/loyalty/gamification-engine/domain/errors"
	"divan/contexts/loyalty/gamification-engine/ports"
)

// RegisterPurchase converts a monetary purchase into a point award through
// the step schedule, adds the every-fifth-purchase bonus, and records the
// purchase in the audit log. Log append, point application, and counter
// increment commit as one transaction inside the Repository.
func (s Service) RegisterPurchase(ctx context.Context, userID string, amount float64, description string) (ports.PurchaseResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || amount <= 0 {
		return ports.PurchaseResult{}, domainerrors.ErrInvalidInput
	}
	result, err := s.Repo.RegisterPurchase(ctx, userID, amount, strings.TrimSpace(description), s.now())
	if err != nil {
		return ports.PurchaseResult{}, err
	}

	// Frequent-buyer trigger: fires once the counter crosses the threshold.
	if result.User.PurchaseCount >= entities.PurchaseFrequencyEvery && !result.User.HasBadge(entities.BadgeFrequentBuyer) {
		granted, err := s.Repo.GrantBadge(ctx, userID, entities.BadgeFrequentBuyer, s.now())
		if err != nil {
			return ports.PurchaseResult{}, err
		}
		if granted {
			result.FrequentBuyer = true
			result.User.Badges = append(result.User.Badges, entities.BadgeFrequentBuyer)
			s.notify(ctx, userID, "You unlocked the Frequent Buyer badge. Thanks for sticking around!")
		}
	}

	s.logger().Info("purchase registered",
		"event", "loyalty_purchase_registered",
		"module", "loyalty/gamification-engine",
		"layer", "application",
		"user_id", userID,
		"amount", amount,
		"points_awarded", result.PointsAwarded,
		"frequency_bonus", result.FrequencyBonus,
		"purchase_count", result.User.PurchaseCount,
	)
	return result, nil
}

// Redeem executes the atomic "spend points, decrement stock" protocol.
// Precondition order: reward exists and is active, stock available, balance
// sufficient; the first failure wins and nothing is mutated. On success the
// points charge, the stock decrement, and the first-redemption badge commit
// together inside the Repository.
func (s Service) Redeem(ctx context.Context, userID string, rewardID string) (ports.RedemptionResult, error) {
	userID = strings.TrimSpace(userID)
	rewardID = strings.TrimSpace(rewardID)
	if userID == "" || rewardID == "" {
		return ports.RedemptionResult{}, domainerrors.ErrInvalidInput
	}
	result, err := s.Repo.RedeemReward(ctx, userID, rewardID, s.now())
	if err != nil {
		return ports.RedemptionResult{}, err
	}

	s.logger().Info("reward redeemed",
		"event", "loyalty_reward_redeemed",
		"module", "loyalty/gamification-engine",
		"layer", "application",
		"user_id", userID,
		"reward_id", result.Reward.RewardID,
		"points_cost", result.Reward.PointsCost,
		"remaining_points", result.User.Points,
		"first_redemption", result.FirstRedemption,
	)

	if result.FirstRedemption {
		s.notify(ctx, userID, "Congratulations! Your first redemption unlocked the First Redemption badge.")
	}
	s.notifyAdmins(ctx, fmt.Sprintf(
		"Redemption: user %s claimed %q for %s (stock left: %s).",
		userID, result.Reward.Name, formatPoints(result.Reward.PointsCost), stockLabel(result.Reward.Stock),
	))
	return result, nil
}

// ProcessInteraction awards points for a reaction, survey vote, or narrative
// choice, clamped to the rolling daily allowance.
func (s Service) ProcessInteraction(ctx context.Context, userID string, kind string, referenceID string, points int) (ports.InteractionResult, error) {
	userID = strings.TrimSpace(userID)
	kind = strings.TrimSpace(kind)
	if userID == "" || kind == "" || points <= 0 {
		return ports.InteractionResult{}, domainerrors.ErrInvalidInput
	}
	result, err := s.Repo.ApplyInteraction(ctx, userID, kind, strings.TrimSpace(referenceID), points, s.now())
	if err != nil {
		return ports.InteractionResult{}, err
	}

	// Active-reactor trigger: a fully used daily allowance.
	if result.CappedOut && result.User.DailyPointsEarned >= entities.DailyInteractionCap {
		if _, err := s.Repo.GrantBadge(ctx, userID, entities.BadgeActiveReactor, s.now()); err != nil {
			return ports.InteractionResult{}, err
		}
	}

	s.logger().Info("interaction processed",
		"event", "loyalty_interaction_processed",
		"module", "loyalty/gamification-engine",
		"layer", "application",
		"user_id", userID,
		"kind", kind,
		"awarded_points", result.AwardedPoints,
		"capped_out", result.CappedOut,
	)
	return result, nil
}

func stockLabel(stock int) string {
	if stock == entities.UnlimitedStock {
		return "unlimited"
	}
	return fmt.Sprintf("%d", stock)
}
