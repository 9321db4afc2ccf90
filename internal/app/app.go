package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/taskory/taskory/internal/config"
	"github.com/taskory/taskory/internal/health"
	"github.com/taskory/taskory/internal/notify"
	"github.com/taskory/taskory/internal/observability"
	"github.com/taskory/taskory/internal/service"
)

// App bundles everything the process entrypoint starts and tears down: the
// HTTP server plus the background workers (mail dispatcher, task reaper) and
// the infrastructure handles they share.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	DB            *gorm.DB
	Redis         redis.UniversalClient
	Readiness     *health.ProbeRunner
	Dispatcher    *notify.Dispatcher
	Reaper        *service.TaskReaper

	reaperCancel context.CancelFunc
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	readiness *health.ProbeRunner,
	dispatcher *notify.Dispatcher,
	reaper *service.TaskReaper,
) *App {
	return &App{
		Config:        cfg,
		Logger:        logger,
		Server:        server,
		Observability: runtime,
		DB:            db,
		Redis:         redisClient,
		Readiness:     readiness,
		Dispatcher:    dispatcher,
		Reaper:        reaper,
	}
}

// StartBackground launches the mail dispatcher workers and, when enabled,
// the periodic task reaper.
func (a *App) StartBackground(ctx context.Context) {
	if a.Dispatcher != nil {
		a.Dispatcher.Start(ctx)
	}
	if a.Reaper != nil && a.Config.ReaperEnabled {
		reaperCtx, cancel := context.WithCancel(ctx)
		a.reaperCancel = cancel
		go a.Reaper.Run(reaperCtx)
	}
}

// StopBackground stops the reaper and drains the dispatcher queue, bounded
// by ctx.
func (a *App) StopBackground(ctx context.Context) {
	if a.reaperCancel != nil {
		a.reaperCancel()
	}
	if a.Dispatcher != nil {
		if err := a.Dispatcher.Close(ctx); err != nil {
			a.Logger.Error("mail dispatcher did not drain cleanly", "error", err)
		}
	}
}
