package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	loyaltyerrors "divan/contexts/loyalty/gamification-engine/domain/errors"
	loyaltyhttp "divan/contexts/loyalty/gamification-engine/transport/http"
)

func writeLoyaltyError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, loyaltyhttp.ErrorResponse{Code: code, Message: message})
}

func writeLoyaltyDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, loyaltyerrors.ErrInvalidInput):
		writeLoyaltyError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, loyaltyerrors.ErrUserNotFound):
		writeLoyaltyError(w, http.StatusNotFound, "user_not_found", err.Error())
	case errors.Is(err, loyaltyerrors.ErrRewardNotFound):
		writeLoyaltyError(w, http.StatusNotFound, "reward_not_found", err.Error())
	case errors.Is(err, loyaltyerrors.ErrOutOfStock):
		writeLoyaltyError(w, http.StatusConflict, "out_of_stock", err.Error())
	case errors.Is(err, loyaltyerrors.ErrInsufficientPoints):
		writeLoyaltyError(w, http.StatusConflict, "insufficient_points", err.Error())
	case errors.Is(err, loyaltyerrors.ErrConcurrentModification):
		writeLoyaltyError(w, http.StatusConflict, "concurrent_modification", err.Error())
	case errors.Is(err, loyaltyerrors.ErrStoreUnavailable):
		writeLoyaltyError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
	default:
		writeLoyaltyError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func requireLoyaltyAdmin(w http.ResponseWriter, r *http.Request) bool {
	if strings.TrimSpace(r.Header.Get("X-Admin-Id")) == "" {
		writeLoyaltyError(w, http.StatusUnauthorized, "unauthorized", "X-Admin-Id header is required")
		return false
	}
	return true
}

func (s *Server) handleLoyaltyRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req loyaltyhttp.RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLoyaltyError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.loyalty.Handler.RegisterUserHandler(r.Context(), req)
	if err != nil {
		writeLoyaltyDomainError(w, err)
		return
	}
	status := http.StatusOK
	if resp.Data.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleLoyaltyUserSummary(w http.ResponseWriter, r *http.Request) {
	resp, err := s.loyalty.Handler.GetUserSummaryHandler(r.Context(), r.PathValue("user_id"))
	if err != nil {
		writeLoyaltyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLoyaltyApplyDelta(w http.ResponseWriter, r *http.Request) {
	if !requireLoyaltyAdmin(w, r) {
		return
	}

	var req loyaltyhttp.ApplyDeltaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLoyaltyError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.loyalty.Handler.ApplyDeltaHandler(r.Context(), r.PathValue("user_id"), req)
	if err != nil {
		writeLoyaltyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLoyaltyAwardBadge(w http.ResponseWriter, r *http.Request) {
	if !requireLoyaltyAdmin(w, r) {
		return
	}

	var req loyaltyhttp.AwardBadgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLoyaltyError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.loyalty.Handler.AwardBadgeHandler(r.Context(), r.PathValue("user_id"), req)
	if err != nil {
		writeLoyaltyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLoyaltyRegisterPurchase(w http.ResponseWriter, r *http.Request) {
	var req loyaltyhttp.RegisterPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLoyaltyError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.loyalty.Handler.RegisterPurchaseHandler(r.Context(), r.PathValue("user_id"), req)
	if err != nil {
		writeLoyaltyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLoyaltyRedeem(w http.ResponseWriter, r *http.Request) {
	var req loyaltyhttp.RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLoyaltyError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.loyalty.Handler.RedeemHandler(r.Context(), r.PathValue("user_id"), req)
	if err != nil {
		writeLoyaltyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLoyaltyInteraction(w http.ResponseWriter, r *http.Request) {
	var req loyaltyhttp.InteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLoyaltyError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.loyalty.Handler.InteractionHandler(r.Context(), r.PathValue("user_id"), req)
	if err != nil {
		writeLoyaltyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLoyaltyRank(w http.ResponseWriter, r *http.Request) {
	resp, err := s.loyalty.Handler.RankHandler(r.Context(), r.PathValue("user_id"))
	if err != nil {
		writeLoyaltyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLoyaltyLeaderboard(w http.ResponseWriter, r *http.Request) {
	req := loyaltyhttp.LeaderboardRequest{
		Limit: r.URL.Query().Get("limit"),
	}
	resp, err := s.loyalty.Handler.LeaderboardHandler(r.Context(), req)
	if err != nil {
		writeLoyaltyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLoyaltyListRewards(w http.ResponseWriter, r *http.Request) {
	resp, err := s.loyalty.Handler.ListRewardsHandler(r.Context())
	if err != nil {
		writeLoyaltyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLoyaltyUpsertReward(w http.ResponseWriter, r *http.Request) {
	if !requireLoyaltyAdmin(w, r) {
		return
	}

	var req loyaltyhttp.UpsertRewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLoyaltyError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.loyalty.Handler.UpsertRewardHandler(r.Context(), r.PathValue("reward_id"), req)
	if err != nil {
		writeLoyaltyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLoyaltySweep(w http.ResponseWriter, r *http.Request) {
	if !requireLoyaltyAdmin(w, r) {
		return
	}

	now := time.Now().UTC()
	if s.loyalty.Sweeper.Clock != nil {
		now = s.loyalty.Sweeper.Clock.Now().UTC()
	}
	resp, err := s.loyalty.Handler.RunSweepHandler(r.Context(), now)
	if err != nil {
		writeLoyaltyDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
