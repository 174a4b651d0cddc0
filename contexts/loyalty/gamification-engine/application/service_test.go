package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"divan/contexts/loyalty/gamification-engine/adapters/memory"
	"divan/contexts/loyalty/gamification-engine/domain/entities"
	domainerrors "divan/contexts/loyalty/gamification-engine/domain/errors"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(t *testing.T) (Service, *memory.Store, *fixedClock) {
	t.Helper()
	store := memory.NewStore(nil)
	clock := &fixedClock{now: time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC)}
	service := Service{
		Repo:     store,
		Notifier: store,
		Clock:    clock,
	}
	return service, store, clock
}

func TestRegisterUserGrantsNewMemberBadgeOnce(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()

	user, created, err := service.RegisterUser(ctx, "user-a")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if !created {
		t.Fatal("expected fresh registration")
	}
	if !user.HasBadge(entities.BadgeNewMember) {
		t.Fatal("expected the new-member badge on registration")
	}
	if len(store.Notifications()) != 1 {
		t.Fatalf("expected one welcome notification, got %d", len(store.Notifications()))
	}

	_, created, err = service.RegisterUser(ctx, "user-a")
	if err != nil {
		t.Fatalf("replayed register failed: %v", err)
	}
	if created {
		t.Fatal("replayed registration must not report creation")
	}
	if len(store.Notifications()) != 1 {
		t.Fatal("replayed registration must not re-send the welcome")
	}
}

func TestRegisterUserRejectsBlankID(t *testing.T) {
	service, _, _ := newTestService(t)
	if _, _, err := service.RegisterUser(context.Background(), "   "); !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAwardRejectsUnknownBadgeKey(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := service.RegisterUser(ctx, "user-a"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := service.Award(ctx, "user-a", "not_a_badge"); !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown badge, got %v", err)
	}
}

func TestAwardIsIdempotent(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := service.RegisterUser(ctx, "user-a"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	granted, err := service.Award(ctx, "user-a", entities.BadgeActiveReactor)
	if err != nil || !granted {
		t.Fatalf("expected first grant, granted=%v err=%v", granted, err)
	}
	granted, err = service.Award(ctx, "user-a", entities.BadgeActiveReactor)
	if err != nil {
		t.Fatalf("second grant failed: %v", err)
	}
	if granted {
		t.Fatal("second grant must be a no-op")
	}
}

func TestRegisterPurchaseGrantsFrequentBuyerOnFifth(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := service.RegisterUser(ctx, "user-a"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	for i := 0; i < 4; i++ {
		result, err := service.RegisterPurchase(ctx, "user-a", 250, "session")
		if err != nil {
			t.Fatalf("purchase %d failed: %v", i+1, err)
		}
		if result.PointsAwarded != 180 {
			t.Fatalf("expected 180 points for exact amount 250, got %d", result.PointsAwarded)
		}
		if result.FrequentBuyer {
			t.Fatalf("purchase %d must not grant the frequent-buyer badge", i+1)
		}
	}

	fifth, err := service.RegisterPurchase(ctx, "user-a", 250, "session")
	if err != nil {
		t.Fatalf("fifth purchase failed: %v", err)
	}
	if !fifth.FrequentBuyer {
		t.Fatal("expected frequent-buyer badge on the fifth purchase")
	}
	if fifth.PointsAwarded != 180+entities.PurchaseFrequencyBonus {
		t.Fatalf("expected 330 points on the fifth purchase, got %d", fifth.PointsAwarded)
	}
	if !fifth.User.HasBadge(entities.BadgeFrequentBuyer) {
		t.Fatal("result user must carry the frequent-buyer badge")
	}
}

func TestRegisterPurchaseRejectsNonPositiveAmount(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := service.RegisterUser(ctx, "user-a"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := service.RegisterPurchase(ctx, "user-a", 0, ""); !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero amount, got %v", err)
	}
	if _, err := service.RegisterPurchase(ctx, "user-a", -10, ""); !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative amount, got %v", err)
	}
}

func TestRedeemNotifiesUserAndAdmins(t *testing.T) {
	service, store, _ := newTestService(t)
	service.AdminChatIDs = []string{"admin-1", "admin-2"}
	ctx := context.Background()

	if _, _, err := service.RegisterUser(ctx, "user-a"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := service.ApplyDelta(ctx, "user-a", 500, "seed"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	reward := entities.Reward{RewardID: "reward-1", Name: "Poster", PointsCost: 300, Stock: 2, Active: true}
	if err := store.UpsertReward(ctx, reward); err != nil {
		t.Fatalf("upsert reward failed: %v", err)
	}

	result, err := service.Redeem(ctx, "user-a", "reward-1")
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if !result.FirstRedemption {
		t.Fatal("expected the first-redemption badge grant")
	}
	if result.User.Points != 200 {
		t.Fatalf("expected 200 points left, got %d", result.User.Points)
	}

	adminSends := 0
	for _, sent := range store.Notifications() {
		if sent.UserID == "admin-1" || sent.UserID == "admin-2" {
			adminSends++
			if !strings.Contains(sent.Text, "Poster") {
				t.Fatalf("admin notification must name the reward, got %q", sent.Text)
			}
		}
	}
	if adminSends != 2 {
		t.Fatalf("expected both admins notified, got %d", adminSends)
	}
}

func TestProcessInteractionGrantsActiveReactorAtCap(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := service.RegisterUser(ctx, "user-a"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	result, err := service.ProcessInteraction(ctx, "user-a", "reaction", "msg-1", entities.DailyInteractionCap+5)
	if err != nil {
		t.Fatalf("interaction failed: %v", err)
	}
	if result.AwardedPoints != entities.DailyInteractionCap {
		t.Fatalf("expected clamp to %d, got %d", entities.DailyInteractionCap, result.AwardedPoints)
	}
	if !result.CappedOut {
		t.Fatal("expected the cap to report")
	}

	user, err := service.Repo.GetUser(ctx, "user-a")
	if err != nil {
		t.Fatalf("get user failed: %v", err)
	}
	if !user.HasBadge(entities.BadgeActiveReactor) {
		t.Fatal("expected the active-reactor badge at the daily cap")
	}
}

func TestGetUserSummaryReportsNextTier(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := service.RegisterUser(ctx, "user-a"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := service.ApplyDelta(ctx, "user-a", 450, "seed"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	summary, err := service.GetUserSummary(ctx, "user-a")
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.Tier.Name != "Newcomer" {
		t.Fatalf("expected Newcomer at 450 points, got %s", summary.Tier.Name)
	}
	if summary.NextTier == nil || summary.NextTier.Name != "Explorer" {
		t.Fatalf("expected Explorer as next tier, got %+v", summary.NextTier)
	}
	if summary.PointsToNext != 50 {
		t.Fatalf("expected 50 points to next tier, got %d", summary.PointsToNext)
	}
	if summary.Rank != 1 {
		t.Fatalf("expected rank 1, got %d", summary.Rank)
	}
}

func TestTopUsersDefaultsToTen(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		id := "user-" + string(rune('a'+i))
		if _, _, err := service.RegisterUser(ctx, id); err != nil {
			t.Fatalf("register %s failed: %v", id, err)
		}
		if _, err := service.ApplyDelta(ctx, id, (i+1)*10, "seed"); err != nil {
			t.Fatalf("seed %s failed: %v", id, err)
		}
	}

	top, err := service.TopUsers(ctx, 0)
	if err != nil {
		t.Fatalf("top users failed: %v", err)
	}
	if len(top) != 10 {
		t.Fatalf("expected default limit of 10, got %d", len(top))
	}
	if top[0].User.UserID != "user-l" {
		t.Fatalf("expected user-l on top, got %s", top[0].User.UserID)
	}
}
