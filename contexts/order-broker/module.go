package orderbroker

import (
	"log/slog"
	"time"

	httpadapter "orderbridge/contexts/order-broker/adapters/http"
	"orderbridge/contexts/order-broker/adapters/memory"
	"orderbridge/contexts/order-broker/application"
	"orderbridge/contexts/order-broker/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Service application.Service
	Store   *memory.Store
}

type Dependencies struct {
	Repository        ports.Repository
	Clock             ports.Clock
	IDGenerator       ports.IDGenerator
	LeaseDuration     time.Duration
	MaxRetries        int
	ShortBackoff      time.Duration
	InitialRetryDelay time.Duration
	MaxRetryDelay     time.Duration
	Logger            *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Repo:              deps.Repository,
		Clock:             deps.Clock,
		IDGen:             deps.IDGenerator,
		LeaseDuration:     deps.LeaseDuration,
		MaxRetries:        deps.MaxRetries,
		ShortBackoff:      deps.ShortBackoff,
		InitialRetryDelay: deps.InitialRetryDelay,
		MaxRetryDelay:     deps.MaxRetryDelay,
		Logger:            deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
		Service: service,
	}
}

// NewInMemoryModule builds the module over the in-memory store, for tests.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repository:    store,
		Clock:         memory.SystemClock{},
		IDGenerator:   memory.UUIDGenerator{},
		LeaseDuration: 5 * time.Minute,
		MaxRetries:    3,
		ShortBackoff:  30 * time.Second,
		Logger:        logger,
	})
	module.Store = store
	return module
}
