package application

import (
	"context"
	"strings"
	"testing"
	"time"

	"divan/contexts/loyalty/gamification-engine/domain/entities"
)

func TestPermanenceSweepAwardsWeeklyOncePerPeriod(t *testing.T) {
	service, store, clock := newTestService(t)
	ctx := context.Background()

	if _, _, err := service.RegisterUser(ctx, "user-a"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	clock.Advance(8 * 24 * time.Hour)
	awarded, err := service.RunPermanenceSweep(ctx, clock.Now())
	if err != nil {
		t.Fatalf("first sweep failed: %v", err)
	}
	if awarded != 1 {
		t.Fatalf("expected one weekly award, got %d", awarded)
	}
	user, err := store.GetUser(ctx, "user-a")
	if err != nil {
		t.Fatalf("get user failed: %v", err)
	}
	if user.Points != 10 {
		t.Fatalf("expected 10 points after the first weekly award, got %d", user.Points)
	}
	if user.WeeklyStreak != 1 {
		t.Fatalf("expected streak 1, got %d", user.WeeklyStreak)
	}

	// Re-running inside the same period must not double-award.
	awarded, err = service.RunPermanenceSweep(ctx, clock.Now())
	if err != nil {
		t.Fatalf("replayed sweep failed: %v", err)
	}
	if awarded != 0 {
		t.Fatalf("replayed sweep must award nobody, got %d", awarded)
	}
	user, _ = store.GetUser(ctx, "user-a")
	if user.Points != 10 || user.WeeklyStreak != 1 {
		t.Fatalf("replayed sweep moved state: points=%d streak=%d", user.Points, user.WeeklyStreak)
	}
}

func TestPermanenceSweepStreakBonusIsCapped(t *testing.T) {
	service, store, clock := newTestService(t)
	ctx := context.Background()

	if _, _, err := service.RegisterUser(ctx, "user-a"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// Eight consecutive weekly passes; the streak bonus stops growing at the cap.
	for week := 0; week < 8; week++ {
		clock.Advance(7 * 24 * time.Hour)
		if _, err := service.RunPermanenceSweep(ctx, clock.Now()); err != nil {
			t.Fatalf("sweep week %d failed: %v", week+1, err)
		}
	}

	user, err := store.GetUser(ctx, "user-a")
	if err != nil {
		t.Fatalf("get user failed: %v", err)
	}
	if user.WeeklyStreak != 8 {
		t.Fatalf("expected streak 8, got %d", user.WeeklyStreak)
	}
	// Weekly points: 10+0, 10+1, ..., 10+5, then capped at 10+5. The monthly
	// bonus anchors on day 35 and its next period falls past day 56, so it
	// fires exactly once. The ledger is authoritative; assert through it.
	weekly, monthly := 0, 0
	for _, entry := range store.LedgerEntries("user-a") {
		switch entry.Reason {
		case "weekly permanence":
			weekly += entry.PointsDelta
		case "monthly permanence":
			monthly += entry.PointsDelta
		}
	}
	wantWeekly := (10 + 0) + (10 + 1) + (10 + 2) + (10 + 3) + (10 + 4) + (10 + 5) + (10 + 5) + (10 + 5)
	if weekly != wantWeekly {
		t.Fatalf("expected %d weekly points, got %d", wantWeekly, weekly)
	}
	if monthly != 50 {
		t.Fatalf("expected one 50-point monthly bonus inside 56 days, got %d", monthly)
	}
	if user.Points != weekly+monthly {
		t.Fatalf("expected balance %d, got %d", weekly+monthly, user.Points)
	}
}

func TestPermanenceSweepMonthlyBonusDisabled(t *testing.T) {
	service, store, clock := newTestService(t)
	service.Policy = entities.DefaultPermanencePolicy
	service.Policy.MonthlyBonusEnabled = false
	ctx := context.Background()

	if _, _, err := service.RegisterUser(ctx, "user-a"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	clock.Advance(35 * 24 * time.Hour)
	if _, err := service.RunPermanenceSweep(ctx, clock.Now()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	for _, entry := range store.LedgerEntries("user-a") {
		if entry.Reason == "monthly permanence" {
			t.Fatal("monthly bonus must not fire when disabled")
		}
	}
}

func TestPermanenceSweepMilestonesAwardOnce(t *testing.T) {
	service, store, clock := newTestService(t)
	ctx := context.Background()

	if _, _, err := service.RegisterUser(ctx, "user-a"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	clock.Advance(181 * 24 * time.Hour)
	if _, err := service.RunPermanenceSweep(ctx, clock.Now()); err != nil {
		t.Fatalf("six-month sweep failed: %v", err)
	}
	user, _ := store.GetUser(ctx, "user-a")
	if !user.HasBadge(entities.BadgeVeteranSixMonths) {
		t.Fatal("expected the six-month badge at 181 days")
	}
	if user.HasBadge(entities.BadgeVeteranOneYear) {
		t.Fatal("one-year badge must not fire at 181 days")
	}

	clock.Advance(200 * 24 * time.Hour)
	if _, err := service.RunPermanenceSweep(ctx, clock.Now()); err != nil {
		t.Fatalf("one-year sweep failed: %v", err)
	}
	user, _ = store.GetUser(ctx, "user-a")
	if !user.HasBadge(entities.BadgeVeteranOneYear) {
		t.Fatal("expected the one-year badge at 381 days")
	}

	milestonePoints := 0
	for _, entry := range store.LedgerEntries("user-a") {
		if entry.Reason == "tenure milestone" {
			milestonePoints += entry.PointsDelta
		}
	}
	if milestonePoints != 100+200 {
		t.Fatalf("expected 300 milestone points in total, got %d", milestonePoints)
	}

	// A third pass after both badges exist awards nothing more.
	clock.Advance(7 * 24 * time.Hour)
	if _, err := service.RunPermanenceSweep(ctx, clock.Now()); err != nil {
		t.Fatalf("follow-up sweep failed: %v", err)
	}
	again := 0
	for _, entry := range store.LedgerEntries("user-a") {
		if entry.Reason == "tenure milestone" {
			again += entry.PointsDelta
		}
	}
	if again != 300 {
		t.Fatalf("milestone points must stay at 300, got %d", again)
	}

	milestoneNotes := 0
	for _, sent := range store.Notifications() {
		if strings.Contains(sent.Text, "Milestone") {
			milestoneNotes++
		}
	}
	if milestoneNotes != 2 {
		t.Fatalf("expected two milestone notifications, got %d", milestoneNotes)
	}
}
