package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	gamificationengine "divan/contexts/loyalty/gamification-engine"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "divan/internal/platform/httpserver/docs"
)

type Server struct {
	mux     *http.ServeMux
	logger  *slog.Logger
	addr    string
	loyalty gamificationengine.Module
}

func New(
	loyalty gamificationengine.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger,
		addr:    addr,
		loyalty: loyalty,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/loyalty/v1/users", s.handleLoyaltyRegisterUser)
	s.mux.HandleFunc("GET /api/loyalty/v1/users/{user_id}", s.handleLoyaltyUserSummary)
	s.mux.HandleFunc("POST /api/loyalty/v1/users/{user_id}/points", s.handleLoyaltyApplyDelta)
	s.mux.HandleFunc("POST /api/loyalty/v1/users/{user_id}/badges", s.handleLoyaltyAwardBadge)
	s.mux.HandleFunc("POST /api/loyalty/v1/users/{user_id}/purchases", s.handleLoyaltyRegisterPurchase)
	s.mux.HandleFunc("POST /api/loyalty/v1/users/{user_id}/redemptions", s.handleLoyaltyRedeem)
	s.mux.HandleFunc("POST /api/loyalty/v1/users/{user_id}/interactions", s.handleLoyaltyInteraction)
	s.mux.HandleFunc("GET /api/loyalty/v1/users/{user_id}/rank", s.handleLoyaltyRank)
	s.mux.HandleFunc("GET /api/loyalty/v1/leaderboard", s.handleLoyaltyLeaderboard)
	s.mux.HandleFunc("GET /api/loyalty/v1/rewards", s.handleLoyaltyListRewards)
	s.mux.HandleFunc("PUT /api/loyalty/v1/rewards/{reward_id}", s.handleLoyaltyUpsertReward)
	s.mux.HandleFunc("POST /api/loyalty/v1/sweep", s.handleLoyaltySweep)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
