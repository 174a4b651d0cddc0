package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RegisterUserRequest struct {
	UserID string `json:"user_id"`
}

type UserDTO struct {
	UserID        string   `json:"user_id"`
	Points        int      `json:"points"`
	Level         string   `json:"level"`
	Badges        []string `json:"badges"`
	PurchaseCount int      `json:"purchase_count"`
	WeeklyStreak  int      `json:"weekly_streak"`
	JoinedAt      string   `json:"joined_at"`
}

type RegisterUserResponse struct {
	Status string `json:"status"`
	Data   struct {
		User    UserDTO `json:"user"`
		Created bool    `json:"created"`
	} `json:"data"`
}

type ApplyDeltaRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

type ApplyDeltaResponse struct {
	Status string `json:"status"`
	Data   struct {
		User UserDTO `json:"user"`
	} `json:"data"`
}

type AwardBadgeRequest struct {
	BadgeKey string `json:"badge_key"`
}

type AwardBadgeResponse struct {
	Status string `json:"status"`
	Data   struct {
		UserID   string `json:"user_id"`
		BadgeKey string `json:"badge_key"`
		Granted  bool   `json:"granted"`
	} `json:"data"`
}

type RegisterPurchaseRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

type RegisterPurchaseResponse struct {
	Status string `json:"status"`
	Data   struct {
		User           UserDTO `json:"user"`
		PointsAwarded  int     `json:"points_awarded"`
		FrequencyBonus int     `json:"frequency_bonus"`
		FrequentBuyer  bool    `json:"frequent_buyer"`
	} `json:"data"`
}

type RedeemRequest struct {
	RewardID string `json:"reward_id"`
}

type RedeemResponse struct {
	Status string `json:"status"`
	Data   struct {
		User            UserDTO `json:"user"`
		RewardID        string  `json:"reward_id"`
		RewardName      string  `json:"reward_name"`
		PointsCost      int     `json:"points_cost"`
		RemainingStock  int     `json:"remaining_stock"`
		FirstRedemption bool    `json:"first_redemption"`
	} `json:"data"`
}

type InteractionRequest struct {
	Kind        string `json:"kind"`
	ReferenceID string `json:"reference_id"`
	Points      int    `json:"points"`
}

type InteractionResponse struct {
	Status string `json:"status"`
	Data   struct {
		User          UserDTO `json:"user"`
		AwardedPoints int     `json:"awarded_points"`
		CappedOut     bool    `json:"capped_out"`
	} `json:"data"`
}

type UserSummaryResponse struct {
	Status string `json:"status"`
	Data   struct {
		User         UserDTO `json:"user"`
		Rank         int     `json:"rank"`
		NextLevel    string  `json:"next_level,omitempty"`
		PointsToNext int     `json:"points_to_next,omitempty"`
	} `json:"data"`
}

type RankResponse struct {
	Status string `json:"status"`
	Data   struct {
		UserID string `json:"user_id"`
		Rank   int    `json:"rank"`
	} `json:"data"`
}

type LeaderboardRequest struct {
	Limit string
}

type LeaderboardResponse struct {
	Status string `json:"status"`
	Data   struct {
		Leaderboard []struct {
			Rank   int    `json:"rank"`
			UserID string `json:"user_id"`
			Points int    `json:"points"`
			Level  string `json:"level"`
		} `json:"leaderboard"`
	} `json:"data"`
}

type RewardDTO struct {
	RewardID    string `json:"reward_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PointsCost  int    `json:"points_cost"`
	Stock       int    `json:"stock"`
	Unlimited   bool   `json:"unlimited"`
}

type ListRewardsResponse struct {
	Status string `json:"status"`
	Data   struct {
		Rewards []RewardDTO `json:"rewards"`
	} `json:"data"`
}

type UpsertRewardRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PointsCost  int    `json:"points_cost"`
	Stock       int    `json:"stock"`
	Active      bool   `json:"active"`
}

type UpsertRewardResponse struct {
	Status string `json:"status"`
	Data   struct {
		RewardID string `json:"reward_id"`
	} `json:"data"`
}

type SweepResponse struct {
	Status string `json:"status"`
	Data   struct {
		UsersAwarded int `json:"users_awarded"`
	} `json:"data"`
}
