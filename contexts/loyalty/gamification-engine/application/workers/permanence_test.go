package workers

import (
	"context"
	"testing"
	"time"

	"divan/contexts/loyalty/gamification-engine/adapters/memory"
	"divan/contexts/loyalty/gamification-engine/application"
)

type stubClock struct {
	now time.Time
}

func (c *stubClock) Now() time.Time { return c.now }

func TestPermanenceSweeperRunOnceIsReplaySafe(t *testing.T) {
	store := memory.NewStore(nil)
	clock := &stubClock{now: time.Date(2026, time.May, 1, 6, 0, 0, 0, time.UTC)}
	service := application.Service{
		Repo:     store,
		Notifier: store,
		Clock:    clock,
	}
	sweeper := PermanenceSweeper{Service: service, Clock: clock}
	ctx := context.Background()

	if _, _, err := service.RegisterUser(ctx, "user-a"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	clock.now = clock.now.Add(9 * 24 * time.Hour)
	if err := sweeper.RunOnce(ctx); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if err := sweeper.RunOnce(ctx); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	user, err := store.GetUser(ctx, "user-a")
	if err != nil {
		t.Fatalf("get user failed: %v", err)
	}
	if user.Points != 10 {
		t.Fatalf("back-to-back runs must award once, got %d points", user.Points)
	}
	if user.WeeklyStreak != 1 {
		t.Fatalf("expected streak 1, got %d", user.WeeklyStreak)
	}
}
