package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anjiri1684/driving_school/apperror"
	config "github.com/anjiri1684/driving_school/configs"
	"github.com/anjiri1684/driving_school/database"
	"github.com/anjiri1684/driving_school/handlers"
	"github.com/anjiri1684/driving_school/jobs"
	"github.com/anjiri1684/driving_school/locks"
	"github.com/anjiri1684/driving_school/notifications"
	"github.com/anjiri1684/driving_school/obs"
	"github.com/anjiri1684/driving_school/payments"
	"github.com/anjiri1684/driving_school/routes"
	"github.com/anjiri1684/driving_school/services"
	"github.com/anjiri1684/driving_school/utils"
	"github.com/anjiri1684/driving_school/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracer, err := obs.InitTracer(ctx, "drivebook-api", cfg.OTLPEndpoint, cfg.Env)
	if err != nil {
		return err
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		if err := shutdownTracer(sctx); err != nil {
			log.Warn().Err(err).Msg("Tracer shutdown failed")
		}
	}()

	store, closeStore, err := database.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	if err := database.Migrate(store); err != nil {
		return err
	}

	ids := utils.UUIDAllocator{}
	if err := database.SeedAdmin(ctx, store, ids, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminFullName); err != nil {
		return err
	}

	locker, closeLocker, err := newLocker(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	gateway, err := newGateway(cfg)
	if err != nil {
		return err
	}

	slots := services.NewSlotResolver(loc, time.Now)
	index := services.NewAvailabilityIndex(store, store, slots)
	ledger := services.NewLedger(services.LedgerConfig{
		Store:      store,
		Slots:      slots,
		Locker:     locker,
		IDs:        ids,
		PendingTTL: cfg.PendingTTL,
	})
	flow := services.NewFlowController(services.FlowConfig{
		Index:          index,
		Ledger:         ledger,
		Gateway:        gateway,
		PaymentTimeout: cfg.PaymentTimeout,
		SessionTTL:     cfg.FlowSessionTTL,
		IDs:            ids,
	})

	hub := websocket.NewHub()
	go hub.Run(ctx)

	dispatcher, closeDispatcher := newDispatcher(cfg, loc, hub)
	defer closeDispatcher()
	notifier := notifications.NewBookingNotifier(dispatcher, store, store)
	ledger.Subscribe(notifier)

	var provider services.ContentProvider
	if cfg.LearningPathURL != "" {
		provider = services.NewHTTPContentProvider(cfg.LearningPathURL)
	}

	var uploads *handlers.UploadSigner
	if cfg.CloudinaryURL != "" {
		if uploads, err = handlers.NewUploadSigner(cfg.CloudinaryURL); err != nil {
			return err
		}
	}

	h := handlers.New(handlers.Deps{
		Store:        store,
		Ledger:       ledger,
		Flow:         flow,
		Index:        index,
		Slots:        slots,
		LearningPath: services.NewLearningPathService(provider, ledger),
		Hub:          hub,
		Uploads:      uploads,
		IDs:          ids,
		JWTSecret:    cfg.JWTSecret,
		TokenTTL:     cfg.JWTTTL,
		Currency:     cfg.Currency,
	})
	app := newApp(h, cfg)

	c := cron.New(cron.WithLocation(loc))
	runner := &jobs.Runner{
		Ledger:   ledger,
		Bookings: store,
		Reminder: notifier,
		Sessions: flow,
	}
	if err := runner.Schedule(c); err != nil {
		return fmt.Errorf("schedule jobs: %w", err)
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("✅ Server is running")
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	if err := app.ShutdownWithContext(sctx); err != nil {
		log.Error().Err(err).Msg("🔥 Server shutdown failed")
	}
	return nil
}

func newApp(h *handlers.Handler, cfg config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "DriveBook",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: apperror.Handler,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   cfg.SchoolTimezone,
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.Setup(app, h)
	return app
}

func newLocker(ctx context.Context, cfg config.Config) (locks.SlotLocker, func(), error) {
	if cfg.RedisURL == "" {
		return locks.NewMemoryLocker(), func() {}, nil
	}
	rdb, err := locks.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Msg("✅ Redis slot locks enabled")
	return locks.NewRedisLocker(rdb), func() { _ = rdb.Close() }, nil
}

func newGateway(cfg config.Config) (payments.Gateway, error) {
	switch cfg.PaymentProvider {
	case "omise":
		return payments.NewOmiseGateway(cfg.OmisePublicKey, cfg.OmiseSecretKey)
	case "simulated":
		log.Warn().Msg("Using simulated payment gateway")
		return payments.NewSimulatedGateway(cfg.PaymentMinLatency, cfg.PaymentMaxLatency), nil
	}
	return nil, fmt.Errorf("unknown PAYMENT_PROVIDER %q", cfg.PaymentProvider)
}

// newDispatcher wires every configured channel. Email and the message bus are
// optional; the audit log and the websocket hub are always on.
func newDispatcher(cfg config.Config, loc *time.Location, hub *websocket.Hub) (*notifications.Dispatcher, func()) {
	d := notifications.NewDispatcher(loc)
	d.Subscribe("log", notifications.LogSubscriber{})
	d.Subscribe("websocket", hub)

	if brevo := notifications.NewBrevoService(cfg.BrevoAPIKey, cfg.EmailSender, cfg.EmailSenderName); brevo != nil {
		d.Subscribe("email", brevo)
	}

	var bus *notifications.AMQPPublisher
	if cfg.RabbitURL != "" {
		var err error
		bus, err = notifications.NewAMQPPublisher(cfg.RabbitURL, cfg.NotifyExchange)
		if err != nil {
			log.Warn().Err(err).Msg("🔥 Message bus unavailable, continuing without it")
		} else {
			d.Subscribe("amqp", bus)
		}
	}

	return d, func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := d.Close(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("Notifications still in flight at shutdown")
		}
		if bus != nil {
			_ = bus.Close()
		}
	}
}
