package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"divan/contexts/loyalty/gamification-engine/domain/entities"
	domainerrors "divan/contexts/loyalty/gamification-engine/domain/errors"
	"divan/contexts/loyalty/gamification-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the postgres implementation of ports.Repository. Every
// mutating method opens one transaction whose first statement takes a
// FOR UPDATE lock on the affected user row (and reward row for redemption),
// so check-then-write sequences are serialized against concurrent callers.
type Repository struct {
	db     *gorm.DB
	levels entities.LevelTable
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, levels entities.LevelTable, logger *slog.Logger) *Repository {
	if len(levels) == 0 {
		levels = entities.DefaultLevels
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, levels: levels, logger: logger}
}

// AutoMigrate creates the engine's tables. Schema lifecycle management is an
// operational concern; this exists for local and test environments.
func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&userModel{}, &rewardModel{}, &ledgerModel{})
}

func (r *Repository) CreateUser(ctx context.Context, userID string, now time.Time) (entities.User, bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return entities.User{}, false, domainerrors.ErrInvalidInput
	}

	var existing userModel
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&existing).Error
	if err == nil {
		return existing.toEntity(), false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.User{}, false, r.translate("loyalty_repo_get_user_failed", err, "user_id", userID)
	}

	row := userModel{
		UserID:              userID,
		Points:              0,
		LevelID:             r.levels.Resolve(0).ID,
		Badges:              []string{},
		JoinedAt:            now.UTC(),
		LastPermanenceCheck: now.UTC(),
		LastDailyReset:      now.UTC(),
		UpdatedAt:           now.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			// Lost the creation race; the other writer's row wins.
			if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&existing).Error; err != nil {
				return entities.User{}, false, r.translate("loyalty_repo_get_user_failed", err, "user_id", userID)
			}
			return existing.toEntity(), false, nil
		}
		return entities.User{}, false, r.translate("loyalty_repo_create_user_failed", err, "user_id", userID)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) GetUser(ctx context.Context, userID string) (entities.User, error) {
	var row userModel
	err := r.db.WithContext(ctx).Where("user_id = ?", strings.TrimSpace(userID)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.User{}, domainerrors.ErrUserNotFound
		}
		return entities.User{}, r.translate("loyalty_repo_get_user_failed", err, "user_id", userID)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&userModel{}).
		Order("created_seq ASC").
		Pluck("user_id", &ids).
		Error
	if err != nil {
		return nil, r.translate("loyalty_repo_list_users_failed", err)
	}
	return ids, nil
}

func (r *Repository) ApplyPointsDelta(ctx context.Context, userID string, delta int, reason string, now time.Time) (entities.User, error) {
	var out entities.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockUser(tx, userID)
		if err != nil {
			return err
		}

		row.Points = entities.ClampDelta(row.Points, delta)
		row.LevelID = r.levels.Resolve(row.Points).ID
		row.UpdatedAt = now.UTC()
		if err := tx.Model(&userModel{}).
			Where("user_id = ?", row.UserID).
			Updates(map[string]any{
				"points":     row.Points,
				"level_id":   row.LevelID,
				"updated_at": row.UpdatedAt,
			}).Error; err != nil {
			return err
		}
		if _, err := appendLedger(tx, row.UserID, entities.LedgerKindAdjustment, 0, "", delta, reason, now); err != nil {
			return err
		}
		out = row.toEntity()
		return nil
	})
	if err != nil {
		return entities.User{}, r.translate("loyalty_repo_apply_delta_failed", err, "user_id", userID)
	}
	return out, nil
}

func (r *Repository) GrantBadge(ctx context.Context, userID string, badgeKey string, now time.Time) (bool, error) {
	granted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		for _, badge := range row.Badges {
			if badge == badgeKey {
				return nil
			}
		}
		granted = true
		return tx.Model(&userModel{}).
			Where("user_id = ?", row.UserID).
			Updates(map[string]any{
				"badges":     append(row.Badges, badgeKey),
				"updated_at": now.UTC(),
			}).Error
	})
	if err != nil {
		return false, r.translate("loyalty_repo_grant_badge_failed", err, "user_id", userID, "badge_key", badgeKey)
	}
	return granted, nil
}

func (r *Repository) RegisterPurchase(ctx context.Context, userID string, amount float64, description string, now time.Time) (ports.PurchaseResult, error) {
	var out ports.PurchaseResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockUser(tx, userID)
		if err != nil {
			return err
		}

		total, bonus := entities.PurchaseAward(amount, row.PurchaseCount)
		row.Points = entities.ClampDelta(row.Points, total)
		row.LevelID = r.levels.Resolve(row.Points).ID
		row.PurchaseCount++
		row.UpdatedAt = now.UTC()

		if err := tx.Model(&userModel{}).
			Where("user_id = ?", row.UserID).
			Updates(map[string]any{
				"points":         row.Points,
				"level_id":       row.LevelID,
				"purchase_count": row.PurchaseCount,
				"updated_at":     row.UpdatedAt,
			}).Error; err != nil {
			return err
		}
		entry, err := appendLedger(tx, row.UserID, entities.LedgerKindPurchase, amount, "", total, description, now)
		if err != nil {
			return err
		}

		out = ports.PurchaseResult{
			User:           row.toEntity(),
			PointsAwarded:  total,
			FrequencyBonus: bonus,
			Entry:          entry,
		}
		return nil
	})
	if err != nil {
		return ports.PurchaseResult{}, r.translate("loyalty_repo_register_purchase_failed", err, "user_id", userID)
	}
	return out, nil
}

func (r *Repository) RedeemReward(ctx context.Context, userID string, rewardID string, now time.Time) (ports.RedemptionResult, error) {
	var out ports.RedemptionResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockUser(tx, userID)
		if err != nil {
			return err
		}

		var reward rewardModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("reward_id = ?", strings.TrimSpace(rewardID)).
			First(&reward).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrRewardNotFound
			}
			return err
		}
		if !reward.Active {
			return domainerrors.ErrRewardNotFound
		}
		if reward.Stock != entities.UnlimitedStock && reward.Stock <= 0 {
			return domainerrors.ErrOutOfStock
		}
		if row.Points < reward.PointsCost {
			return domainerrors.ErrInsufficientPoints
		}

		row.Points -= reward.PointsCost
		row.LevelID = r.levels.Resolve(row.Points).ID
		row.UpdatedAt = now.UTC()
		first := true
		for _, badge := range row.Badges {
			if badge == entities.BadgeFirstRedemption {
				first = false
				break
			}
		}
		badges := row.Badges
		if first {
			badges = append(badges, entities.BadgeFirstRedemption)
		}
		if err := tx.Model(&userModel{}).
			Where("user_id = ?", row.UserID).
			Updates(map[string]any{
				"points":     row.Points,
				"level_id":   row.LevelID,
				"badges":     badges,
				"updated_at": row.UpdatedAt,
			}).Error; err != nil {
			return err
		}
		row.Badges = badges

		if reward.Stock != entities.UnlimitedStock {
			reward.Stock--
			if err := tx.Model(&rewardModel{}).
				Where("reward_id = ?", reward.RewardID).
				Update("stock", reward.Stock).
				Error; err != nil {
				return err
			}
		}
		entry, err := appendLedger(tx, row.UserID, entities.LedgerKindRedemption, 0, reward.RewardID, -reward.PointsCost, "redeem "+reward.Name, now)
		if err != nil {
			return err
		}

		out = ports.RedemptionResult{
			User:            row.toEntity(),
			Reward:          reward.toEntity(),
			FirstRedemption: first,
			Entry:           entry,
		}
		return nil
	})
	if err != nil {
		return ports.RedemptionResult{}, r.translate("loyalty_repo_redeem_failed", err, "user_id", userID, "reward_id", rewardID)
	}
	return out, nil
}

func (r *Repository) ApplyInteraction(ctx context.Context, userID string, kind string, referenceID string, points int, now time.Time) (ports.InteractionResult, error) {
	var out ports.InteractionResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockUser(tx, userID)
		if err != nil {
			return err
		}

		decision := entities.EvaluateInteraction(row.toEntity(), points, now)
		if decision.ResetDaily {
			row.DailyPointsEarned = 0
			row.LastDailyReset = now.UTC()
		}
		if decision.AwardedPoints > 0 {
			row.Points = entities.ClampDelta(row.Points, decision.AwardedPoints)
			row.LevelID = r.levels.Resolve(row.Points).ID
			row.DailyPointsEarned += decision.AwardedPoints
		}
		row.UpdatedAt = now.UTC()

		if err := tx.Model(&userModel{}).
			Where("user_id = ?", row.UserID).
			Updates(map[string]any{
				"points":              row.Points,
				"level_id":            row.LevelID,
				"daily_points_earned": row.DailyPointsEarned,
				"last_daily_reset":    row.LastDailyReset,
				"updated_at":          row.UpdatedAt,
			}).Error; err != nil {
			return err
		}
		if decision.AwardedPoints > 0 {
			reason := kind
			if referenceID != "" {
				reason = kind + " " + referenceID
			}
			if _, err := appendLedger(tx, row.UserID, entities.LedgerKindInteraction, 0, "", decision.AwardedPoints, reason, now); err != nil {
				return err
			}
		}

		out = ports.InteractionResult{
			User:          row.toEntity(),
			AwardedPoints: decision.AwardedPoints,
			CappedOut:     decision.CappedOut,
		}
		return nil
	})
	if err != nil {
		return ports.InteractionResult{}, r.translate("loyalty_repo_apply_interaction_failed", err, "user_id", userID)
	}
	return out, nil
}

func (r *Repository) ApplyPermanence(ctx context.Context, userID string, policy entities.PermanencePolicy, now time.Time) (ports.PermanenceResult, error) {
	var out ports.PermanenceResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockUser(tx, userID)
		if err != nil {
			return err
		}

		decision := entities.EvaluatePermanence(row.toEntity(), policy, now)
		updates := map[string]any{}

		if decision.WeeklyAwarded {
			row.Points = entities.ClampDelta(row.Points, decision.WeeklyPoints)
			row.WeeklyStreak++
			row.LastPermanenceCheck = now.UTC()
			updates["weekly_streak"] = row.WeeklyStreak
			updates["last_permanence_check"] = row.LastPermanenceCheck
			if _, err := appendLedger(tx, row.UserID, entities.LedgerKindPermanence, 0, "", decision.WeeklyPoints, "weekly permanence", now); err != nil {
				return err
			}
		}
		if decision.MonthlyAwarded {
			row.Points = entities.ClampDelta(row.Points, decision.MonthlyPoints)
			bonusAt := now.UTC()
			row.LastMonthlyBonus = &bonusAt
			updates["last_monthly_bonus"] = row.LastMonthlyBonus
			if _, err := appendLedger(tx, row.UserID, entities.LedgerKindPermanence, 0, "", decision.MonthlyPoints, "monthly permanence", now); err != nil {
				return err
			}
		}
		if decision.MilestonePoints > 0 {
			row.Points = entities.ClampDelta(row.Points, decision.MilestonePoints)
			if _, err := appendLedger(tx, row.UserID, entities.LedgerKindPermanence, 0, "", decision.MilestonePoints, "tenure milestone", now); err != nil {
				return err
			}
		}
		if len(decision.MilestoneBadges) > 0 {
			row.Badges = append(row.Badges, decision.MilestoneBadges...)
			updates["badges"] = row.Badges
		}
		if decision.TotalPoints > 0 {
			row.LevelID = r.levels.Resolve(row.Points).ID
			updates["points"] = row.Points
			updates["level_id"] = row.LevelID
		}
		if len(updates) > 0 {
			row.UpdatedAt = now.UTC()
			updates["updated_at"] = row.UpdatedAt
			if err := tx.Model(&userModel{}).
				Where("user_id = ?", row.UserID).
				Updates(updates).Error; err != nil {
				return err
			}
		}

		out = ports.PermanenceResult{
			User:     row.toEntity(),
			Decision: decision,
		}
		return nil
	})
	if err != nil {
		return ports.PermanenceResult{}, r.translate("loyalty_repo_apply_permanence_failed", err, "user_id", userID)
	}
	return out, nil
}

func (r *Repository) GetReward(ctx context.Context, rewardID string) (entities.Reward, error) {
	var row rewardModel
	err := r.db.WithContext(ctx).Where("reward_id = ?", strings.TrimSpace(rewardID)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Reward{}, domainerrors.ErrRewardNotFound
		}
		return entities.Reward{}, r.translate("loyalty_repo_get_reward_failed", err, "reward_id", rewardID)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListActiveRewards(ctx context.Context) ([]entities.Reward, error) {
	var rows []rewardModel
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Where("stock = ? OR stock > 0", entities.UnlimitedStock).
		Order("reward_id ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, r.translate("loyalty_repo_list_rewards_failed", err)
	}
	items := make([]entities.Reward, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) UpsertReward(ctx context.Context, reward entities.Reward) error {
	reward.RewardID = strings.TrimSpace(reward.RewardID)
	if reward.RewardID == "" || reward.PointsCost <= 0 {
		return domainerrors.ErrInvalidInput
	}
	row := rewardModelFromEntity(reward)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "reward_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"name":        row.Name,
			"description": row.Description,
			"points_cost": row.PointsCost,
			"stock":       row.Stock,
			"active":      row.Active,
		}),
	}).Create(&row).Error
	if err != nil {
		return r.translate("loyalty_repo_upsert_reward_failed", err, "reward_id", reward.RewardID)
	}
	return nil
}

func (r *Repository) TopUsers(ctx context.Context, limit int) ([]ports.RankedUser, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []userModel
	err := r.db.WithContext(ctx).
		Order("points DESC, created_seq ASC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.translate("loyalty_repo_top_users_failed", err)
	}
	items := make([]ports.RankedUser, 0, len(rows))
	for i, row := range rows {
		items = append(items, ports.RankedUser{
			User: row.toEntity(),
			Tier: r.levels.ByID(row.LevelID),
			Rank: i + 1,
		})
	}
	return items, nil
}

func (r *Repository) UserRank(ctx context.Context, userID string) (int, error) {
	var target userModel
	err := r.db.WithContext(ctx).Where("user_id = ?", strings.TrimSpace(userID)).First(&target).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, domainerrors.ErrUserNotFound
		}
		return 0, r.translate("loyalty_repo_user_rank_failed", err, "user_id", userID)
	}

	var ahead int64
	err = r.db.WithContext(ctx).Model(&userModel{}).
		Where("points > ? OR (points = ? AND created_seq < ?)", target.Points, target.Points, target.CreatedSeq).
		Count(&ahead).
		Error
	if err != nil {
		return 0, r.translate("loyalty_repo_user_rank_failed", err, "user_id", userID)
	}
	return int(ahead) + 1, nil
}

func lockUser(tx *gorm.DB, userID string) (userModel, error) {
	var row userModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return userModel{}, domainerrors.ErrUserNotFound
		}
		return userModel{}, err
	}
	return row, nil
}

func appendLedger(tx *gorm.DB, userID string, kind string, amount float64, rewardID string, delta int, reason string, now time.Time) (entities.LedgerEntry, error) {
	row := ledgerModel{
		EntryID:     uuid.NewString(),
		UserID:      userID,
		Kind:        kind,
		Amount:      amount,
		RewardID:    rewardID,
		PointsDelta: delta,
		Reason:      reason,
		CreatedAt:   now.UTC(),
	}
	if err := tx.Create(&row).Error; err != nil {
		return entities.LedgerEntry{}, err
	}
	return entities.LedgerEntry{
		EntryID:     row.EntryID,
		UserID:      row.UserID,
		Kind:        row.Kind,
		Amount:      row.Amount,
		RewardID:    row.RewardID,
		PointsDelta: row.PointsDelta,
		Reason:      row.Reason,
		CreatedAt:   row.CreatedAt,
	}, nil
}

// translate logs the failure and maps store-level errors into the domain
// taxonomy. Domain errors pass through untouched so callers can errors.Is.
func (r *Repository) translate(event string, err error, args ...any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domainerrors.ErrUserNotFound),
		errors.Is(err, domainerrors.ErrRewardNotFound),
		errors.Is(err, domainerrors.ErrOutOfStock),
		errors.Is(err, domainerrors.ErrInsufficientPoints),
		errors.Is(err, domainerrors.ErrInvalidInput):
		return err
	}

	r.logger.Error(event, append([]any{
		"event", event,
		"module", "loyalty/gamification-engine",
		"layer", "adapters/postgres",
		"error", err.Error(),
	}, args...)...)

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domainerrors.ErrStoreUnavailable
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return domainerrors.ErrConcurrentModification
		}
		if strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57") {
			return domainerrors.ErrStoreUnavailable
		}
	}
	return domainerrors.ErrStoreUnavailable
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type userModel struct {
	UserID              string     `gorm:"column:user_id;primaryKey"`
	Points              int        `gorm:"column:points"`
	LevelID             int        `gorm:"column:level_id"`
	Badges              []string   `gorm:"column:badges;type:text[]"`
	PurchaseCount       int        `gorm:"column:purchase_count"`
	JoinedAt            time.Time  `gorm:"column:joined_at"`
	LastPermanenceCheck time.Time  `gorm:"column:last_permanence_check"`
	LastMonthlyBonus    *time.Time `gorm:"column:last_monthly_bonus"`
	WeeklyStreak        int        `gorm:"column:weekly_streak"`
	DailyPointsEarned   int        `gorm:"column:daily_points_earned"`
	LastDailyReset      time.Time  `gorm:"column:last_daily_reset"`
	CreatedSeq          int64      `gorm:"column:created_seq;autoIncrement;uniqueIndex"`
	UpdatedAt           time.Time  `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "loyalty_users" }

func (m userModel) toEntity() entities.User {
	user := entities.User{
		UserID:              m.UserID,
		Points:              m.Points,
		LevelID:             m.LevelID,
		Badges:              append([]string(nil), m.Badges...),
		PurchaseCount:       m.PurchaseCount,
		JoinedAt:            m.JoinedAt,
		LastPermanenceCheck: m.LastPermanenceCheck,
		WeeklyStreak:        m.WeeklyStreak,
		DailyPointsEarned:   m.DailyPointsEarned,
		LastDailyReset:      m.LastDailyReset,
		CreatedSeq:          m.CreatedSeq,
		UpdatedAt:           m.UpdatedAt,
	}
	if m.LastMonthlyBonus != nil {
		user.LastMonthlyBonus = *m.LastMonthlyBonus
	}
	return user
}

type rewardModel struct {
	RewardID    string `gorm:"column:reward_id;primaryKey"`
	Name        string `gorm:"column:name"`
	Description string `gorm:"column:description"`
	PointsCost  int    `gorm:"column:points_cost"`
	Stock       int    `gorm:"column:stock"`
	Active      bool   `gorm:"column:active"`
}

func (rewardModel) TableName() string { return "loyalty_rewards" }

func (m rewardModel) toEntity() entities.Reward {
	return entities.Reward{
		RewardID:    m.RewardID,
		Name:        m.Name,
		Description: m.Description,
		PointsCost:  m.PointsCost,
		Stock:       m.Stock,
		Active:      m.Active,
	}
}

func rewardModelFromEntity(reward entities.Reward) rewardModel {
	return rewardModel{
		RewardID:    reward.RewardID,
		Name:        strings.TrimSpace(reward.Name),
		Description: strings.TrimSpace(reward.Description),
		PointsCost:  reward.PointsCost,
		Stock:       reward.Stock,
		Active:      reward.Active,
	}
}

type ledgerModel struct {
	EntryID     string    `gorm:"column:entry_id;primaryKey"`
	UserID      string    `gorm:"column:user_id;index"`
	Kind        string    `gorm:"column:kind"`
	Amount      float64   `gorm:"column:amount"`
	RewardID    string    `gorm:"column:reward_id"`
	PointsDelta int       `gorm:"column:points_delta"`
	Reason      string    `gorm:"column:reason"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (ledgerModel) TableName() string { return "loyalty_ledger" }
