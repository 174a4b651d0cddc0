package gamificationengine

import (
	"log/slog"

	httpadapter "divan/contexts/loyalty/gamification-engine/adapters/http"
	"divan/contexts/loyalty/gamification-engine/adapters/memory"
	"divan/contexts/loyalty/gamification-engine/application"
	"divan/contexts/loyalty/gamification-engine/application/workers"
	"divan/contexts/loyalty/gamification-engine/domain/entities"
	"divan/contexts/loyalty/gamification-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Service application.Service
	Sweeper workers.PermanenceSweeper
	Store   *memory.Store
}

type Dependencies struct {
	Repository   ports.Repository
	Notifier     ports.Notifier
	Clock        ports.Clock
	Levels       entities.LevelTable
	Policy       entities.PermanencePolicy
	AdminChatIDs []string
	Logger       *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Repo:         deps.Repository,
		Notifier:     deps.Notifier,
		Clock:        deps.Clock,
		Levels:       deps.Levels,
		Policy:       deps.Policy,
		AdminChatIDs: deps.AdminChatIDs,
		Logger:       deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
		Service: service,
		Sweeper: workers.PermanenceSweeper{
			Service: service,
			Clock:   deps.Clock,
			Logger:  deps.Logger,
		},
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore(entities.DefaultLevels)
	module := NewModule(Dependencies{
		Repository: store,
		Notifier:   store,
		Clock:      store,
		Levels:     entities.DefaultLevels,
		Policy:     entities.DefaultPermanencePolicy,
		Logger:     logger,
	})
	module.Store = store
	return module
}
