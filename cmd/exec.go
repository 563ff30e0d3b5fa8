package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	pubnub "github.com/pubnub/go"

	"ticket-admission/config"
	"ticket-admission/handlers"
	"ticket-admission/internal/auth"
	"ticket-admission/internal/cache"
	"ticket-admission/internal/notify"
	"ticket-admission/internal/scheduler"
	"ticket-admission/internal/services"
	"ticket-admission/internal/store"
	"ticket-admission/models"
	"ticket-admission/monitoring"
	"ticket-admission/utils"

	_ "ticket-admission/migrations"
)

func Start() error {
	app := pocketbase.New()

	cfg := config.LoadConfig()

	redisClient, err := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.PubNubPublishKey != "" && cfg.PubNubSubscribeKey != "" {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		notifier = notify.NewPubNubNotifier(pubnub.NewPubNub(pnConfig))
	} else {
		slog.Warn("pubnub keys not configured, notifications disabled")
	}

	monitor := monitoring.NewMonitor()
	queueStore := services.NewQueueStore(redisClient)

	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	jobs := scheduler.NewScheduler(
		scheduler.NewLeaseLock(redisClient, cfg.LockMinHold, cfg.LockMaxHold),
		monitor,
	)

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		db := app.DB()

		entryRepo := store.NewQueueEntryRepo(db)
		seatRepo := store.NewSeatRepo(db)
		ticketRepo := store.NewTicketRepo(db)
		eventRepo := store.NewEventRepo(db)
		sessionRepo := store.NewSessionRepo(db)

		shuffleService := services.NewShuffleService(queueStore, entryRepo, eventRepo, notifier)
		entryService := services.NewEntryService(queueStore, entryRepo, seatRepo, ticketRepo, notifier, monitor, cfg)
		selectionService := services.NewSelectionService(queueStore, entryRepo, seatRepo, ticketRepo, notifier, monitor)
		readService := services.NewReadService(queueStore, entryRepo)

		sessionCache := cache.NewSessionCache(redisClient, sessionRepo, monitor, cfg.SessionTTL, cfg.CacheJitterRatio)
		safeStore := cache.NewSafeStore(redisClient, monitor, cfg.CacheFailCoolDown)
		sessionService := auth.NewSessionService(sessionRepo, sessionCache, safeStore)

		handlers.RegisterRoutes(se,
			handlers.NewAdmissionHandler(shuffleService, entryService, readService),
			handlers.NewSeatHandler(selectionService),
			handlers.NewSessionHandler(sessionService),
			cfg.EnableMetrics,
		)

		jobs.Register(scheduler.Job{
			Name:     "promote-entries",
			Interval: cfg.PromoteInterval,
			Run: func(ctx context.Context) (int, int, error) {
				return forEachReadyEvent(ctx, eventRepo, func(eventID string) (int, int, error) {
					res, err := entryService.Promote(ctx, eventID)
					return res.Promoted, res.Failed, err
				})
			},
		})
		jobs.Register(scheduler.Job{
			Name:     "expire-entries",
			Interval: cfg.ExpireSweepInterval,
			Run: func(ctx context.Context) (int, int, error) {
				return forEachReadyEvent(ctx, eventRepo, func(eventID string) (int, int, error) {
					res, err := entryService.SweepExpired(ctx, eventID)
					return res.Expired, 0, err
				})
			},
		})
		jobs.Register(scheduler.Job{
			Name:     "expire-draft-tickets",
			Interval: cfg.TicketSweepInterval,
			Run: func(ctx context.Context) (int, int, error) {
				n, err := entryService.SweepExpiredTickets(ctx)
				return n, 0, err
			},
		})
		jobs.Start()

		return se.Next()
	})

	app.OnTerminate().BindFunc(func(te *core.TerminateEvent) error {
		jobs.Shutdown(30 * time.Second)
		return te.Next()
	})

	return app.Start()
}

// forEachReadyEvent runs fn against every event whose queue is live,
// aggregating the counts. A failing event is logged and skipped so one
// bad event cannot starve the rest.
func forEachReadyEvent(ctx context.Context, events *store.EventRepo, fn func(eventID string) (int, int, error)) (int, int, error) {
	ready, err := events.ListByStatus(ctx, models.EventQueueReady)
	if err != nil {
		return 0, 0, err
	}

	var processed, failed int
	for _, event := range ready {
		p, f, err := fn(event.ID)
		if err != nil {
			slog.Error("scheduled run failed for event", "event_id", event.ID, "error", err)
			failed++
			continue
		}
		processed += p
		failed += f
	}
	return processed, failed, nil
}
