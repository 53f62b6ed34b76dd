package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/porcelaincode/mocha-admin-sub000/internal/config"
	authsvc "github.com/porcelaincode/mocha-admin-sub000/internal/services/auth"
	"github.com/porcelaincode/mocha-admin-sub000/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService *authsvc.Service
	SwipeQueue  handlers.SwipeQueueEngine
	Logger      *zap.Logger
	Config      config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	queueHandler := handlers.NewSwipeQueueHandler(deps.SwipeQueue, handlers.SwipeQueueHandlerConfig{
		Capacity:          deps.Config.Queue.Capacity,
		LowQueueThreshold: deps.Config.Worker.LowQueueThreshold,
	}, deps.Logger)

	authMW := AuthMiddleware(deps.AuthService, deps.Logger)
	readRoleMW := RequireRole(authsvc.RoleOwner, authsvc.RoleSupport, authsvc.RoleModerator)
	writeRoleMW := RequireRole(authsvc.RoleOwner, authsvc.RoleSupport)

	r.Get("/healthz", healthHandler.Get)
	r.Route("/admin", func(r chi.Router) {
		r.Use(authMW)

		r.With(readRoleMW).Get("/users/low-queue", queueHandler.LowQueueUsers)
		r.With(readRoleMW).Get("/users/{id}/queue", queueHandler.GetQueue)
		r.With(writeRoleMW).Post("/users/{id}/queue/generate", queueHandler.Generate)

		r.With(readRoleMW).Get("/swipes", queueHandler.ListSwipes)
		r.With(writeRoleMW).Post("/swipes/batch-status", queueHandler.BatchStatus)
		r.With(writeRoleMW).Post("/swipes/sweep", queueHandler.Sweep)
		r.With(writeRoleMW).Patch("/swipes/{id}", queueHandler.UpdateStatus)
		r.With(writeRoleMW).Delete("/swipes/{id}", queueHandler.Delete)
	})
}
