package httpadapter

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"divan/contexts/loyalty/gamification-engine/application"
	"divan/contexts/loyalty/gamification-engine/domain/entities"
	domainerrors "divan/contexts/loyalty/gamification-engine/domain/errors"
	httptransport "divan/contexts/loyalty/gamification-engine/transport/http"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) RegisterUserHandler(
	ctx context.Context,
	req httptransport.RegisterUserRequest,
) (httptransport.RegisterUserResponse, error) {
	user, created, err := h.Service.RegisterUser(ctx, req.UserID)
	if err != nil {
		return httptransport.RegisterUserResponse{}, err
	}

	resp := httptransport.RegisterUserResponse{Status: "success"}
	resp.Data.User = h.toUserDTO(user)
	resp.Data.Created = created
	return resp, nil
}

func (h Handler) ApplyDeltaHandler(
	ctx context.Context,
	userID string,
	req httptransport.ApplyDeltaRequest,
) (httptransport.ApplyDeltaResponse, error) {
	user, err := h.Service.ApplyDelta(ctx, userID, req.Delta, req.Reason)
	if err != nil {
		return httptransport.ApplyDeltaResponse{}, err
	}

	resp := httptransport.ApplyDeltaResponse{Status: "success"}
	resp.Data.User = h.toUserDTO(user)
	return resp, nil
}

func (h Handler) AwardBadgeHandler(
	ctx context.Context,
	userID string,
	req httptransport.AwardBadgeRequest,
) (httptransport.AwardBadgeResponse, error) {
	granted, err := h.Service.Award(ctx, userID, req.BadgeKey)
	if err != nil {
		return httptransport.AwardBadgeResponse{}, err
	}

	resp := httptransport.AwardBadgeResponse{Status: "success"}
	resp.Data.UserID = strings.TrimSpace(userID)
	resp.Data.BadgeKey = strings.TrimSpace(req.BadgeKey)
	resp.Data.Granted = granted
	return resp, nil
}

func (h Handler) RegisterPurchaseHandler(
	ctx context.Context,
	userID string,
	req httptransport.RegisterPurchaseRequest,
) (httptransport.RegisterPurchaseResponse, error) {
	result, err := h.Service.RegisterPurchase(ctx, userID, req.Amount, req.Description)
	if err != nil {
		return httptransport.RegisterPurchaseResponse{}, err
	}

	resp := httptransport.RegisterPurchaseResponse{Status: "success"}
	resp.Data.User = h.toUserDTO(result.User)
	resp.Data.PointsAwarded = result.PointsAwarded
	resp.Data.FrequencyBonus = result.FrequencyBonus
	resp.Data.FrequentBuyer = result.FrequentBuyer
	return resp, nil
}

func (h Handler) RedeemHandler(
	ctx context.Context,
	userID string,
	req httptransport.RedeemRequest,
) (httptransport.RedeemResponse, error) {
	result, err := h.Service.Redeem(ctx, userID, req.RewardID)
	if err != nil {
		return httptransport.RedeemResponse{}, err
	}

	resp := httptransport.RedeemResponse{Status: "success"}
	resp.Data.User = h.toUserDTO(result.User)
	resp.Data.RewardID = result.Reward.RewardID
	resp.Data.RewardName = result.Reward.Name
	resp.Data.PointsCost = result.Reward.PointsCost
	resp.Data.RemainingStock = result.Reward.Stock
	resp.Data.FirstRedemption = result.FirstRedemption
	return resp, nil
}

func (h Handler) InteractionHandler(
	ctx context.Context,
	userID string,
	req httptransport.InteractionRequest,
) (httptransport.InteractionResponse, error) {
	result, err := h.Service.ProcessInteraction(ctx, userID, req.Kind, req.ReferenceID, req.Points)
	if err != nil {
		return httptransport.InteractionResponse{}, err
	}

	resp := httptransport.InteractionResponse{Status: "success"}
	resp.Data.User = h.toUserDTO(result.User)
	resp.Data.AwardedPoints = result.AwardedPoints
	resp.Data.CappedOut = result.CappedOut
	return resp, nil
}

func (h Handler) GetUserSummaryHandler(
	ctx context.Context,
	userID string,
) (httptransport.UserSummaryResponse, error) {
	summary, err := h.Service.GetUserSummary(ctx, userID)
	if err != nil {
		return httptransport.UserSummaryResponse{}, err
	}

	resp := httptransport.UserSummaryResponse{Status: "success"}
	resp.Data.User = h.toUserDTO(summary.User)
	resp.Data.Rank = summary.Rank
	if summary.NextTier != nil {
		resp.Data.NextLevel = summary.NextTier.Name
		resp.Data.PointsToNext = summary.PointsToNext
	}
	return resp, nil
}

func (h Handler) RankHandler(ctx context.Context, userID string) (httptransport.RankResponse, error) {
	rank, err := h.Service.Rank(ctx, userID)
	if err != nil {
		return httptransport.RankResponse{}, err
	}

	resp := httptransport.RankResponse{Status: "success"}
	resp.Data.UserID = strings.TrimSpace(userID)
	resp.Data.Rank = rank
	return resp, nil
}

func (h Handler) LeaderboardHandler(
	ctx context.Context,
	req httptransport.LeaderboardRequest,
) (httptransport.LeaderboardResponse, error) {
	limit := 0
	if strings.TrimSpace(req.Limit) != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(req.Limit))
		if err != nil || parsed < 0 {
			return httptransport.LeaderboardResponse{}, domainerrors.ErrInvalidInput
		}
		limit = parsed
	}

	ranked, err := h.Service.TopUsers(ctx, limit)
	if err != nil {
		return httptransport.LeaderboardResponse{}, err
	}

	resp := httptransport.LeaderboardResponse{Status: "success"}
	resp.Data.Leaderboard = make([]struct {
		Rank   int    `json:"rank"`
		UserID string `json:"user_id"`
		Points int    `json:"points"`
		Level  string `json:"level"`
	}, 0, len(ranked))
	for _, item := range ranked {
		resp.Data.Leaderboard = append(resp.Data.Leaderboard, struct {
			Rank   int    `json:"rank"`
			UserID string `json:"user_id"`
			Points int    `json:"points"`
			Level  string `json:"level"`
		}{
			Rank:   item.Rank,
			UserID: item.User.UserID,
			Points: item.User.Points,
			Level:  item.Tier.Name,
		})
	}
	return resp, nil
}

func (h Handler) ListRewardsHandler(ctx context.Context) (httptransport.ListRewardsResponse, error) {
	rewards, err := h.Service.ListActiveRewards(ctx)
	if err != nil {
		return httptransport.ListRewardsResponse{}, err
	}

	resp := httptransport.ListRewardsResponse{Status: "success"}
	resp.Data.Rewards = make([]httptransport.RewardDTO, 0, len(rewards))
	for _, reward := range rewards {
		resp.Data.Rewards = append(resp.Data.Rewards, httptransport.RewardDTO{
			RewardID:    reward.RewardID,
			Name:        reward.Name,
			Description: reward.Description,
			PointsCost:  reward.PointsCost,
			Stock:       reward.Stock,
			Unlimited:   reward.Stock == entities.UnlimitedStock,
		})
	}
	return resp, nil
}

func (h Handler) UpsertRewardHandler(
	ctx context.Context,
	rewardID string,
	req httptransport.UpsertRewardRequest,
) (httptransport.UpsertRewardResponse, error) {
	reward := entities.Reward{
		RewardID:    strings.TrimSpace(rewardID),
		Name:        req.Name,
		Description: req.Description,
		PointsCost:  req.PointsCost,
		Stock:       req.Stock,
		Active:      req.Active,
	}
	if err := h.Service.Repo.UpsertReward(ctx, reward); err != nil {
		return httptransport.UpsertRewardResponse{}, err
	}

	resp := httptransport.UpsertRewardResponse{Status: "success"}
	resp.Data.RewardID = reward.RewardID
	return resp, nil
}

func (h Handler) RunSweepHandler(ctx context.Context, now time.Time) (httptransport.SweepResponse, error) {
	awarded, err := h.Service.RunPermanenceSweep(ctx, now)
	if err != nil {
		return httptransport.SweepResponse{}, err
	}

	resp := httptransport.SweepResponse{Status: "success"}
	resp.Data.UsersAwarded = awarded
	return resp, nil
}

func (h Handler) toUserDTO(user entities.User) httptransport.UserDTO {
	return httptransport.UserDTO{
		UserID:        user.UserID,
		Points:        user.Points,
		Level:         h.levels().ByID(user.LevelID).Name,
		Badges:        append([]string(nil), user.Badges...),
		PurchaseCount: user.PurchaseCount,
		WeeklyStreak:  user.WeeklyStreak,
		JoinedAt:      user.JoinedAt.UTC().Format(time.RFC3339),
	}
}

func (h Handler) levels() entities.LevelTable {
	if len(h.Service.Levels) == 0 {
		return entities.DefaultLevels
	}
	return h.Service.Levels
}
