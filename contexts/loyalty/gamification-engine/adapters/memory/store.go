package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"divan/contexts/loyalty/gamification-engine/domain/entities"
	domainerrors "divan/contexts/loyalty/gamification-engine/domain/errors"
	"divan/contexts/loyalty/gamification-engine/ports"

	"github.com/google/uuid"
)

// Notification is one recorded best-effort send, kept for assertions.
type Notification struct {
	UserID string
	Text   string
	SentAt time.Time
}

// Store is the in-memory Repository used by tests and local runs. A single
// store-wide mutex serializes every operation, which gives the same
// lost-update protection the postgres adapter gets from row locks.
type Store struct {
	mu sync.Mutex

	levels  entities.LevelTable
	users   map[string]*entities.User
	rewards map[string]entities.Reward
	ledger  []entities.LedgerEntry
	sent    []Notification
	nextSeq int64
}

func NewStore(levels entities.LevelTable) *Store {
	if len(levels) == 0 {
		levels = entities.DefaultLevels
	}
	return &Store{
		levels:  levels,
		users:   make(map[string]*entities.User),
		rewards: make(map[string]entities.Reward),
	}
}

func (s *Store) CreateUser(_ context.Context, userID string, now time.Time) (entities.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return entities.User{}, false, domainerrors.ErrInvalidInput
	}
	if existing, ok := s.users[userID]; ok {
		return cloneUser(*existing), false, nil
	}

	s.nextSeq++
	user := &entities.User{
		UserID:              userID,
		Points:              0,
		LevelID:             s.levels.Resolve(0).ID,
		JoinedAt:            now.UTC(),
		LastPermanenceCheck: now.UTC(),
		LastDailyReset:      now.UTC(),
		CreatedSeq:          s.nextSeq,
		UpdatedAt:           now.UTC(),
	}
	s.users[userID] = user
	return cloneUser(*user), true, nil
}

func (s *Store) GetUser(_ context.Context, userID string) (entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[strings.TrimSpace(userID)]
	if !ok {
		return entities.User{}, domainerrors.ErrUserNotFound
	}
	return cloneUser(*user), nil
}

func (s *Store) ListUserIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.users[ids[i]].CreatedSeq < s.users[ids[j]].CreatedSeq
	})
	return ids, nil
}

func (s *Store) ApplyPointsDelta(_ context.Context, userID string, delta int, reason string, now time.Time) (entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[strings.TrimSpace(userID)]
	if !ok {
		return entities.User{}, domainerrors.ErrUserNotFound
	}
	s.applyDeltaLocked(user, delta, entities.LedgerKindAdjustment, "", 0, reason, now)
	return cloneUser(*user), nil
}

func (s *Store) GrantBadge(_ context.Context, userID string, badgeKey string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[strings.TrimSpace(userID)]
	if !ok {
		return false, domainerrors.ErrUserNotFound
	}
	return s.grantBadgeLocked(user, badgeKey, now), nil
}

func (s *Store) RegisterPurchase(_ context.Context, userID string, amount float64, description string, now time.Time) (ports.PurchaseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[strings.TrimSpace(userID)]
	if !ok {
		return ports.PurchaseResult{}, domainerrors.ErrUserNotFound
	}

	total, bonus := entities.PurchaseAward(amount, user.PurchaseCount)
	entry := s.applyDeltaLocked(user, total, entities.LedgerKindPurchase, "", amount, description, now)
	user.PurchaseCount++

	return ports.PurchaseResult{
		User:           cloneUser(*user),
		PointsAwarded:  total,
		FrequencyBonus: bonus,
		Entry:          entry,
	}, nil
}

func (s *Store) RedeemReward(_ context.Context, userID string, rewardID string, now time.Time) (ports.RedemptionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[strings.TrimSpace(userID)]
	if !ok {
		return ports.RedemptionResult{}, domainerrors.ErrUserNotFound
	}
	reward, ok := s.rewards[strings.TrimSpace(rewardID)]
	if !ok || !reward.Active {
		return ports.RedemptionResult{}, domainerrors.ErrRewardNotFound
	}
	if !reward.InStock() {
		return ports.RedemptionResult{}, domainerrors.ErrOutOfStock
	}
	if user.Points < reward.PointsCost {
		return ports.RedemptionResult{}, domainerrors.ErrInsufficientPoints
	}

	entry := s.applyDeltaLocked(user, -reward.PointsCost, entities.LedgerKindRedemption, reward.RewardID, 0, "redeem "+reward.Name, now)
	if reward.Stock != entities.UnlimitedStock {
		reward.Stock--
		s.rewards[reward.RewardID] = reward
	}
	first := s.grantBadgeLocked(user, entities.BadgeFirstRedemption, now)

	return ports.RedemptionResult{
		User:            cloneUser(*user),
		Reward:          reward,
		FirstRedemption: first,
		Entry:           entry,
	}, nil
}

func (s *Store) ApplyInteraction(_ context.Context, userID string, kind string, referenceID string, points int, now time.Time) (ports.InteractionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[strings.TrimSpace(userID)]
	if !ok {
		return ports.InteractionResult{}, domainerrors.ErrUserNotFound
	}

	decision := entities.EvaluateInteraction(*user, points, now)
	if decision.ResetDaily {
		user.DailyPointsEarned = 0
		user.LastDailyReset = now.UTC()
	}
	if decision.AwardedPoints > 0 {
		reason := kind
		if referenceID != "" {
			reason = kind + " " + referenceID
		}
		s.applyDeltaLocked(user, decision.AwardedPoints, entities.LedgerKindInteraction, "", 0, reason, now)
		user.DailyPointsEarned += decision.AwardedPoints
	}

	return ports.InteractionResult{
		User:          cloneUser(*user),
		AwardedPoints: decision.AwardedPoints,
		CappedOut:     decision.CappedOut,
	}, nil
}

func (s *Store) ApplyPermanence(_ context.Context, userID string, policy entities.PermanencePolicy, now time.Time) (ports.PermanenceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[strings.TrimSpace(userID)]
	if !ok {
		return ports.PermanenceResult{}, domainerrors.ErrUserNotFound
	}

	decision := entities.EvaluatePermanence(*user, policy, now)
	if decision.WeeklyAwarded {
		s.applyDeltaLocked(user, decision.WeeklyPoints, entities.LedgerKindPermanence, "", 0, "weekly permanence", now)
		user.WeeklyStreak++
		user.LastPermanenceCheck = now.UTC()
	}
	if decision.MonthlyAwarded {
		s.applyDeltaLocked(user, decision.MonthlyPoints, entities.LedgerKindPermanence, "", 0, "monthly permanence", now)
		user.LastMonthlyBonus = now.UTC()
	}
	if decision.MilestonePoints > 0 {
		s.applyDeltaLocked(user, decision.MilestonePoints, entities.LedgerKindPermanence, "", 0, "tenure milestone", now)
	}
	for _, badgeKey := range decision.MilestoneBadges {
		s.grantBadgeLocked(user, badgeKey, now)
	}

	return ports.PermanenceResult{
		User:     cloneUser(*user),
		Decision: decision,
	}, nil
}

func (s *Store) GetReward(_ context.Context, rewardID string) (entities.Reward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reward, ok := s.rewards[strings.TrimSpace(rewardID)]
	if !ok {
		return entities.Reward{}, domainerrors.ErrRewardNotFound
	}
	return reward, nil
}

func (s *Store) ListActiveRewards(_ context.Context) ([]entities.Reward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]entities.Reward, 0, len(s.rewards))
	for _, reward := range s.rewards {
		if reward.Active && reward.InStock() {
			items = append(items, reward)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].RewardID < items[j].RewardID
	})
	return items, nil
}

func (s *Store) UpsertReward(_ context.Context, reward entities.Reward) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reward.RewardID = strings.TrimSpace(reward.RewardID)
	if reward.RewardID == "" || reward.PointsCost <= 0 {
		return domainerrors.ErrInvalidInput
	}
	s.rewards[reward.RewardID] = reward
	return nil
}

func (s *Store) TopUsers(_ context.Context, limit int) ([]ports.RankedUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ranked := s.rankedLocked()
	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (s *Store) UserRank(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID = strings.TrimSpace(userID)
	for _, entry := range s.rankedLocked() {
		if entry.User.UserID == userID {
			return entry.Rank, nil
		}
	}
	return 0, domainerrors.ErrUserNotFound
}

// rankedLocked builds the full descending-points ordering with ties broken by
// creation order, which keeps ranks stable and deterministic.
func (s *Store) rankedLocked() []ports.RankedUser {
	items := make([]ports.RankedUser, 0, len(s.users))
	for _, user := range s.users {
		items = append(items, ports.RankedUser{
			User: cloneUser(*user),
			Tier: s.levels.ByID(user.LevelID),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].User.Points == items[j].User.Points {
			return items[i].User.CreatedSeq < items[j].User.CreatedSeq
		}
		return items[i].User.Points > items[j].User.Points
	})
	for i := range items {
		items[i].Rank = i + 1
	}
	return items
}

func (s *Store) applyDeltaLocked(user *entities.User, delta int, kind string, rewardID string, amount float64, reason string, now time.Time) entities.LedgerEntry {
	user.Points = entities.ClampDelta(user.Points, delta)
	user.LevelID = s.levels.Resolve(user.Points).ID
	user.UpdatedAt = now.UTC()

	entry := entities.LedgerEntry{
		EntryID:     uuid.NewString(),
		UserID:      user.UserID,
		Kind:        kind,
		Amount:      amount,
		RewardID:    rewardID,
		PointsDelta: delta,
		Reason:      reason,
		CreatedAt:   now.UTC(),
	}
	s.ledger = append(s.ledger, entry)
	return entry
}

func (s *Store) grantBadgeLocked(user *entities.User, badgeKey string, now time.Time) bool {
	if user.HasBadge(badgeKey) {
		return false
	}
	user.Badges = append(user.Badges, badgeKey)
	user.UpdatedAt = now.UTC()
	return true
}

// LedgerEntries returns the audit entries recorded for one user, oldest first.
func (s *Store) LedgerEntries(userID string) []entities.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]entities.LedgerEntry, 0)
	for _, entry := range s.ledger {
		if entry.UserID == userID {
			entries = append(entries, entry)
		}
	}
	return entries
}

// Send records the notification; the memory store doubles as the Notifier in
// tests and local runs.
func (s *Store) Send(_ context.Context, userID string, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent = append(s.sent, Notification{UserID: userID, Text: text, SentAt: time.Now().UTC()})
	return nil
}

// Notifications returns every recorded best-effort send.
func (s *Store) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification(nil), s.sent...)
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func cloneUser(user entities.User) entities.User {
	user.Badges = append([]string(nil), user.Badges...)
	return user
}
