package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"divan/contexts/loyalty/gamification-engine/domain/entities"
	domainerrors "divan/contexts/loyalty/gamification-engine/domain/errors"
)

func TestApplyPointsDeltaClampsAtZeroAndResolvesLevel(t *testing.T) {
	store := NewStore(nil)
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	if _, _, err := store.CreateUser(context.Background(), "user-a", now); err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	user, err := store.ApplyPointsDelta(context.Background(), "user-a", 600, "seed", now)
	if err != nil {
		t.Fatalf("apply delta failed: %v", err)
	}
	if user.Points != 600 {
		t.Fatalf("expected 600 points, got %d", user.Points)
	}
	if got := entities.DefaultLevels.ByID(user.LevelID).Name; got != "Explorer" {
		t.Fatalf("expected Explorer at 600 points, got %s", got)
	}

	user, err = store.ApplyPointsDelta(context.Background(), "user-a", -1000, "penalty", now)
	if err != nil {
		t.Fatalf("apply negative delta failed: %v", err)
	}
	if user.Points != 0 {
		t.Fatalf("expected clamp to 0, got %d", user.Points)
	}
	if got := entities.DefaultLevels.ByID(user.LevelID).Name; got != "Newcomer" {
		t.Fatalf("expected Newcomer at 0 points, got %s", got)
	}
}

func TestCreateUserIsIdempotent(t *testing.T) {
	store := NewStore(nil)
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	first, created, err := store.CreateUser(context.Background(), "user-a", now)
	if err != nil || !created {
		t.Fatalf("expected fresh creation, created=%v err=%v", created, err)
	}
	if _, err := store.ApplyPointsDelta(context.Background(), "user-a", 40, "seed", now); err != nil {
		t.Fatalf("apply delta failed: %v", err)
	}

	again, created, err := store.CreateUser(context.Background(), "user-a", now.Add(time.Hour))
	if err != nil || created {
		t.Fatalf("expected existing user, created=%v err=%v", created, err)
	}
	if again.JoinedAt != first.JoinedAt {
		t.Fatalf("re-creation must not reset joined_at")
	}
	if again.Points != 40 {
		t.Fatalf("re-creation must not reset points, got %d", again.Points)
	}
}

func TestRegisterPurchaseFifthCarriesFrequencyBonus(t *testing.T) {
	store := NewStore(nil)
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	if _, _, err := store.CreateUser(context.Background(), "user-a", now); err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	for i := 0; i < 4; i++ {
		result, err := store.RegisterPurchase(context.Background(), "user-a", 100, "session", now)
		if err != nil {
			t.Fatalf("purchase %d failed: %v", i+1, err)
		}
		if result.FrequencyBonus != 0 {
			t.Fatalf("purchase %d must not carry the frequency bonus", i+1)
		}
		if result.PointsAwarded != 70 {
			t.Fatalf("expected 70 points for amount 100, got %d", result.PointsAwarded)
		}
	}

	fifth, err := store.RegisterPurchase(context.Background(), "user-a", 100, "session", now)
	if err != nil {
		t.Fatalf("fifth purchase failed: %v", err)
	}
	if fifth.FrequencyBonus != entities.PurchaseFrequencyBonus {
		t.Fatalf("expected frequency bonus on fifth purchase, got %d", fifth.FrequencyBonus)
	}
	if fifth.PointsAwarded != 70+entities.PurchaseFrequencyBonus {
		t.Fatalf("expected 220 points on fifth purchase, got %d", fifth.PointsAwarded)
	}
	if fifth.User.PurchaseCount != 5 {
		t.Fatalf("expected purchase_count=5, got %d", fifth.User.PurchaseCount)
	}
	if fifth.Entry.Amount != 100 {
		t.Fatalf("ledger entry must record the purchase amount, got %v", fifth.Entry.Amount)
	}
}

func TestRedeemRewardPreconditionsLeaveStateUntouched(t *testing.T) {
	store := NewStore(nil)
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if _, _, err := store.CreateUser(ctx, "user-a", now); err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	if _, err := store.ApplyPointsDelta(ctx, "user-a", 100, "seed", now); err != nil {
		t.Fatalf("seed points failed: %v", err)
	}
	reward := entities.Reward{RewardID: "reward-1", Name: "Sticker Pack", PointsCost: 500, Stock: 3, Active: true}
	if err := store.UpsertReward(ctx, reward); err != nil {
		t.Fatalf("upsert reward failed: %v", err)
	}

	if _, err := store.RedeemReward(ctx, "user-a", "missing", now); !errors.Is(err, domainerrors.ErrRewardNotFound) {
		t.Fatalf("expected ErrRewardNotFound for missing reward, got %v", err)
	}
	if _, err := store.RedeemReward(ctx, "user-a", "reward-1", now); !errors.Is(err, domainerrors.ErrInsufficientPoints) {
		t.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}

	user, err := store.GetUser(ctx, "user-a")
	if err != nil {
		t.Fatalf("get user failed: %v", err)
	}
	if user.Points != 100 {
		t.Fatalf("failed redemption must not touch points, got %d", user.Points)
	}
	if user.HasBadge(entities.BadgeFirstRedemption) {
		t.Fatalf("failed redemption must not grant the first-redemption badge")
	}
	got, err := store.GetReward(ctx, "reward-1")
	if err != nil {
		t.Fatalf("get reward failed: %v", err)
	}
	if got.Stock != 3 {
		t.Fatalf("failed redemption must not touch stock, got %d", got.Stock)
	}
	if entries := store.LedgerEntries("user-a"); len(entries) != 1 {
		t.Fatalf("expected only the seed ledger entry, got %d", len(entries))
	}
}

func TestRedeemRewardInactiveReportsNotFoundBeforeStock(t *testing.T) {
	store := NewStore(nil)
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if _, _, err := store.CreateUser(ctx, "user-a", now); err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	reward := entities.Reward{RewardID: "reward-1", Name: "Retired", PointsCost: 10, Stock: 0, Active: false}
	if err := store.UpsertReward(ctx, reward); err != nil {
		t.Fatalf("upsert reward failed: %v", err)
	}

	if _, err := store.RedeemReward(ctx, "user-a", "reward-1", now); !errors.Is(err, domainerrors.ErrRewardNotFound) {
		t.Fatalf("expected ErrRewardNotFound for inactive reward, got %v", err)
	}
}

func TestRedeemRewardGrantsFirstRedemptionOnce(t *testing.T) {
	store := NewStore(nil)
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if _, _, err := store.CreateUser(ctx, "user-a", now); err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	if _, err := store.ApplyPointsDelta(ctx, "user-a", 1000, "seed", now); err != nil {
		t.Fatalf("seed points failed: %v", err)
	}
	reward := entities.Reward{RewardID: "reward-1", Name: "Mug", PointsCost: 200, Stock: entities.UnlimitedStock, Active: true}
	if err := store.UpsertReward(ctx, reward); err != nil {
		t.Fatalf("upsert reward failed: %v", err)
	}

	first, err := store.RedeemReward(ctx, "user-a", "reward-1", now)
	if err != nil {
		t.Fatalf("first redemption failed: %v", err)
	}
	if !first.FirstRedemption {
		t.Fatalf("expected first redemption to report the badge grant")
	}
	second, err := store.RedeemReward(ctx, "user-a", "reward-1", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("second redemption failed: %v", err)
	}
	if second.FirstRedemption {
		t.Fatalf("second redemption must not re-grant the badge")
	}
	if second.Reward.Stock != entities.UnlimitedStock {
		t.Fatalf("unlimited stock must never decrement, got %d", second.Reward.Stock)
	}
	if second.User.Points != 600 {
		t.Fatalf("expected 600 points after two redemptions, got %d", second.User.Points)
	}
}

func TestRedeemRewardConcurrentStockOne(t *testing.T) {
	store := NewStore(nil)
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for _, id := range []string{"user-a", "user-b"} {
		if _, _, err := store.CreateUser(ctx, id, now); err != nil {
			t.Fatalf("create %s failed: %v", id, err)
		}
		if _, err := store.ApplyPointsDelta(ctx, id, 500, "seed", now); err != nil {
			t.Fatalf("seed %s failed: %v", id, err)
		}
	}
	reward := entities.Reward{RewardID: "reward-1", Name: "Last One", PointsCost: 100, Stock: 1, Active: true}
	if err := store.UpsertReward(ctx, reward); err != nil {
		t.Fatalf("upsert reward failed: %v", err)
	}

	results := make([]error, 2)
	var wg sync.WaitGroup
	for i, id := range []string{"user-a", "user-b"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, err := store.RedeemReward(ctx, id, "reward-1", now)
			results[i] = err
		}(i, id)
	}
	wg.Wait()

	successes, outOfStock := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domainerrors.ErrOutOfStock):
			outOfStock++
		default:
			t.Fatalf("unexpected redemption error: %v", err)
		}
	}
	if successes != 1 || outOfStock != 1 {
		t.Fatalf("expected exactly one success and one out-of-stock, got %d/%d", successes, outOfStock)
	}
	got, err := store.GetReward(ctx, "reward-1")
	if err != nil {
		t.Fatalf("get reward failed: %v", err)
	}
	if got.Stock != 0 {
		t.Fatalf("expected stock 0 after the race, got %d", got.Stock)
	}
}

func TestApplyInteractionDailyCapAndRollover(t *testing.T) {
	store := NewStore(nil)
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if _, _, err := store.CreateUser(ctx, "user-a", now); err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	first, err := store.ApplyInteraction(ctx, "user-a", "reaction", "msg-1", 15, now)
	if err != nil {
		t.Fatalf("first interaction failed: %v", err)
	}
	if first.AwardedPoints != 15 || first.CappedOut {
		t.Fatalf("expected full 15 points, got %d capped=%v", first.AwardedPoints, first.CappedOut)
	}

	second, err := store.ApplyInteraction(ctx, "user-a", "reaction", "msg-2", 15, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("second interaction failed: %v", err)
	}
	if second.AwardedPoints != 5 || !second.CappedOut {
		t.Fatalf("expected clamp to remaining 5 points, got %d capped=%v", second.AwardedPoints, second.CappedOut)
	}

	third, err := store.ApplyInteraction(ctx, "user-a", "reaction", "msg-3", 1, now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("third interaction failed: %v", err)
	}
	if third.AwardedPoints != 0 || !third.CappedOut {
		t.Fatalf("expected zero points at the cap, got %d capped=%v", third.AwardedPoints, third.CappedOut)
	}

	nextDay, err := store.ApplyInteraction(ctx, "user-a", "reaction", "msg-4", 5, now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("next-day interaction failed: %v", err)
	}
	if nextDay.AwardedPoints != 5 || nextDay.CappedOut {
		t.Fatalf("expected fresh allowance after rollover, got %d capped=%v", nextDay.AwardedPoints, nextDay.CappedOut)
	}
	if nextDay.User.DailyPointsEarned != 5 {
		t.Fatalf("expected daily counter reset to 5, got %d", nextDay.User.DailyPointsEarned)
	}
}

func TestRankingTieBreaksByCreationOrder(t *testing.T) {
	store := NewStore(nil)
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	seeds := []struct {
		id     string
		points int
	}{
		{"user-a", 50},
		{"user-b", 200},
		{"user-c", 200},
		{"user-d", 10},
	}
	for _, seed := range seeds {
		if _, _, err := store.CreateUser(ctx, seed.id, now); err != nil {
			t.Fatalf("create %s failed: %v", seed.id, err)
		}
		if _, err := store.ApplyPointsDelta(ctx, seed.id, seed.points, "seed", now); err != nil {
			t.Fatalf("seed %s failed: %v", seed.id, err)
		}
	}

	top, err := store.TopUsers(ctx, 10)
	if err != nil {
		t.Fatalf("top users failed: %v", err)
	}
	wantOrder := []string{"user-b", "user-c", "user-a", "user-d"}
	if len(top) != len(wantOrder) {
		t.Fatalf("expected %d ranked users, got %d", len(wantOrder), len(top))
	}
	for i, want := range wantOrder {
		if top[i].User.UserID != want {
			t.Fatalf("rank %d: expected %s, got %s", i+1, want, top[i].User.UserID)
		}
		if top[i].Rank != i+1 {
			t.Fatalf("expected rank %d, got %d", i+1, top[i].Rank)
		}
	}

	rank, err := store.UserRank(ctx, "user-c")
	if err != nil {
		t.Fatalf("user rank failed: %v", err)
	}
	if rank != 2 {
		t.Fatalf("expected user-c at rank 2, got %d", rank)
	}
}

func TestApplyPermanenceIsIdempotentWithinPeriod(t *testing.T) {
	store := NewStore(nil)
	joined := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if _, _, err := store.CreateUser(ctx, "user-a", joined); err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	sweepAt := joined.Add(8 * 24 * time.Hour)
	first, err := store.ApplyPermanence(ctx, "user-a", entities.DefaultPermanencePolicy, sweepAt)
	if err != nil {
		t.Fatalf("first sweep failed: %v", err)
	}
	if !first.Decision.WeeklyAwarded || first.Decision.WeeklyPoints != 10 {
		t.Fatalf("expected weekly award of 10, got %+v", first.Decision)
	}
	if first.User.WeeklyStreak != 1 {
		t.Fatalf("expected streak 1, got %d", first.User.WeeklyStreak)
	}

	second, err := store.ApplyPermanence(ctx, "user-a", entities.DefaultPermanencePolicy, sweepAt.Add(time.Hour))
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if second.Decision.WeeklyAwarded {
		t.Fatalf("second sweep within the period must not award again")
	}
	if second.User.Points != first.User.Points {
		t.Fatalf("points moved on a no-op sweep: %d -> %d", first.User.Points, second.User.Points)
	}
}
