package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fitbarca/reminders/internal/config"
	"github.com/fitbarca/reminders/internal/dispatch"
	"github.com/fitbarca/reminders/internal/httpapi"
	"github.com/fitbarca/reminders/internal/push"
	"github.com/fitbarca/reminders/internal/scheduler"
	"github.com/fitbarca/reminders/internal/store"
	"github.com/fitbarca/reminders/internal/telegram"
)

// App is the composition root: store, senders, dispatcher, HTTP server.
type App struct {
	cfg config.Config
	log *zap.Logger
	loc *time.Location
}

// New validates the pieces that can fail before any I/O starts.
func New(cfg config.Config, log *zap.Logger) (*App, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	return &App{cfg: cfg, log: log, loc: loc}, nil
}

// Run wires everything together and blocks until a shutdown signal.
func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting reminder service",
		zap.String("http", a.cfg.HTTPAddr),
		zap.String("tz", a.cfg.Timezone),
	)

	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	defer func() { _ = repo.Close() }()
	a.log.Info("sqlite ready")

	sender := push.NewWebPush(a.cfg.VAPIDPublicKey, a.cfg.VAPIDPrivateKey, a.cfg.PushSubscriber)

	var chat dispatch.ChatNotifier
	if a.cfg.TelegramToken != "" {
		notifier, err := telegram.New(a.cfg.TelegramToken)
		if err != nil {
			a.log.Error("telegram init failed", zap.Error(err))
			return err
		}
		chat = notifier
		a.log.Info("telegram mirror enabled")
	}

	dispatcher := dispatch.New(repo, sender, chat, a.log, a.cfg.IconURL, a.cfg.BadgeURL)

	api := httpapi.New(repo, dispatcher, a.log, a.loc)
	httpSrv := &http.Server{
		Addr:         a.cfg.HTTPAddr,
		Handler:      api.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler.New(dispatcher, a.log, a.loc).Run(ctx)

	a.log.Info("shutdown signal received")
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shCtx); err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}
	return nil
}
