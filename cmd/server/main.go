package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/mentorhub/pulse/modules/notifier"
	"github.com/mentorhub/pulse/pkg/billing"
	"github.com/mentorhub/pulse/pkg/channels"
	"github.com/mentorhub/pulse/pkg/config"
	"github.com/mentorhub/pulse/pkg/events"
	"github.com/mentorhub/pulse/pkg/httpserver"
	"github.com/mentorhub/pulse/pkg/logger"
	"github.com/mentorhub/pulse/pkg/notifications"
	"github.com/mentorhub/pulse/pkg/pg"
	"github.com/mentorhub/pulse/pkg/queue"
	"github.com/mentorhub/pulse/pkg/redis"
	"github.com/mentorhub/pulse/pkg/requestid"
)

type appConfig struct {
	Log    logger.Config
	HTTP   httpserver.Config
	Events events.Config
	Queue  queue.Config

	// StorageDriver selects the persistence backend: memory, postgres
	// or redis. Memory is for local development only.
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"memory"`

	// Fan-out buffer per live stream subscriber.
	StreamBuffer int `env:"STREAM_BUFFER" envDefault:"16"`

	PaddleEnabled bool `env:"PADDLE_ENABLED" envDefault:"false"`
	EmailEnabled  bool `env:"EMAIL_ENABLED" envDefault:"false"`
	SMSEnabled    bool `env:"SMS_ENABLED" envDefault:"false"`
	PushEnabled   bool `env:"PUSH_ENABLED" envDefault:"false"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.NewFromConfig(cfg.Log, logger.WithService("pulse"))
	logger.SetAsDefault(log)

	stores, err := newStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.close()

	// Domain handlers feed the notification engine, which fans out to
	// live subscribers and enqueues channel deliveries.
	fanout := notifications.NewFanoutDeliverer(cfg.StreamBuffer,
		notifications.WithFanoutLogger(log))
	defer fanout.Close()

	repo := queue.NewMemoryRepository(queue.WithTaskMaxRetries(cfg.Queue.MaxRetries))

	engine, err := notifications.NewEngine(stores.notifStorage, stores.prefs,
		notifications.WithEngineLogger(log),
		notifications.WithDeliverer(fanout),
		notifications.WithEnqueuer(repo))
	if err != nil {
		return fmt.Errorf("failed to create notification engine: %w", err)
	}

	registry := events.NewRegistry()
	billingHandlers, err := billing.NewHandlers(
		stores.payments, stores.subscriptions, stores.ledger, engine,
		billing.WithHandlersLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create billing handlers: %w", err)
	}
	billingHandlers.Register(registry)

	gateway, err := events.NewGateway(cfg.Events, stores.events, registry,
		events.WithGatewayLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create event gateway: %w", err)
	}

	sweep, err := events.NewSweep(cfg.Events, stores.events, registry,
		events.WithSweepLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create event sweep: %w", err)
	}

	dispatcher, err := newDispatcher(cfg, log)
	if err != nil {
		return err
	}

	worker, err := queue.NewWorker(cfg.Queue, repo, engine, dispatcher,
		queue.WithWorkerLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create delivery worker: %w", err)
	}

	scheduler, err := queue.NewScheduler(cfg.Queue, engine,
		queue.WithSchedulerLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	var paddle *billing.PaddleSource
	if cfg.PaddleEnabled {
		var paddleCfg billing.PaddleConfig
		if err := config.Load(&paddleCfg); err != nil {
			return fmt.Errorf("failed to load paddle config: %w", err)
		}
		if paddle, err = billing.NewPaddleSource(paddleCfg); err != nil {
			return fmt.Errorf("failed to create paddle source: %w", err)
		}
	}

	router := chi.NewRouter()
	router.Use(requestid.Middleware)
	router.Use(middleware.Recoverer)
	router.Get("/health", httpserver.HealthCheckHandler(ctx, log, stores.healthchecks...))
	router.Mount("/", notifier.Router(notifier.RouterOptions{
		Gateway: gateway,
		Engine:  engine,
		Paddle:  paddle,
		Fanout:  fanout,
		Events:  stores.events,
		Logger:  log,
	}))

	srv := httpserver.New(cfg.HTTP, httpserver.WithLogger(log))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx, router) })
	g.Go(worker.Run(ctx))
	g.Go(func() error { return scheduler.Start(ctx) })
	g.Go(func() error { return sweep.Start(ctx) })

	log.InfoContext(ctx, "server started",
		slog.String("addr", cfg.HTTP.Addr),
		slog.String("storage", cfg.StorageDriver))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// stores bundles every persistence dependency behind one driver choice.
type stores struct {
	events        events.Store
	notifStorage  notifications.Storage
	prefs         notifications.PreferencesStore
	payments      billing.PaymentStore
	subscriptions billing.SubscriptionStore
	ledger        billing.LedgerStore
	healthchecks  []func(context.Context) error
	closeFns      []func()
}

func (s *stores) close() {
	for i := len(s.closeFns) - 1; i >= 0; i-- {
		s.closeFns[i]()
	}
}

func newStores(ctx context.Context, cfg appConfig, log *slog.Logger) (*stores, error) {
	// Billing projections stay in memory for every driver; they are
	// rebuilt from replayed events on restart.
	s := &stores{
		payments:      billing.NewMemoryPayments(),
		subscriptions: billing.NewMemorySubscriptions(),
		ledger:        billing.NewMemoryLedger(),
	}

	switch cfg.StorageDriver {
	case "postgres":
		var pgCfg pg.Config
		if err := config.Load(&pgCfg); err != nil {
			return nil, fmt.Errorf("failed to load postgres config: %w", err)
		}
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		s.closeFns = append(s.closeFns, pool.Close)

		if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
			return nil, err
		}

		if s.events, err = events.NewPGStore(pool); err != nil {
			return nil, err
		}
		storage, err := notifications.NewPGStorage(pool)
		if err != nil {
			return nil, err
		}
		prefs, err := notifications.NewPGPreferences(pool)
		if err != nil {
			return nil, err
		}
		s.notifStorage = storage
		s.prefs = prefs
		s.healthchecks = append(s.healthchecks, pg.Healthcheck(pool))

	case "redis":
		var redisCfg redis.Config
		if err := config.Load(&redisCfg); err != nil {
			return nil, fmt.Errorf("failed to load redis config: %w", err)
		}
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		s.closeFns = append(s.closeFns, func() { _ = client.Close() })

		if s.events, err = events.NewRedisStore(client); err != nil {
			return nil, err
		}
		// Notification reads need filtering and pagination the redis
		// store does not provide; they stay in memory on this driver.
		s.notifStorage = notifications.NewMemoryStorage()
		s.prefs = notifications.NewMemoryPreferences()
		s.healthchecks = append(s.healthchecks, redis.Healthcheck(client))

	case "memory":
		s.events = events.NewMemoryStore()
		s.notifStorage = notifications.NewMemoryStorage()
		s.prefs = notifications.NewMemoryPreferences()

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	return s, nil
}

// newDispatcher assembles the channel adapter set. In-app is always
// on; the outbound transports are opt-in per environment.
func newDispatcher(cfg appConfig, log *slog.Logger) (*channels.Dispatcher, error) {
	adapters := []channels.Adapter{channels.NewInAppAdapter()}

	if cfg.EmailEnabled {
		var emailCfg channels.EmailConfig
		if err := config.Load(&emailCfg); err != nil {
			return nil, fmt.Errorf("failed to load email config: %w", err)
		}
		email, err := channels.NewEmailAdapter(emailCfg)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, email)
	}
	if cfg.SMSEnabled {
		var smsCfg smsRelayConfig
		if err := config.Load(&smsCfg); err != nil {
			return nil, fmt.Errorf("failed to load sms relay config: %w", err)
		}
		sms, err := channels.NewSMSAdapter(channels.RelayConfig(smsCfg))
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, sms)
	}
	if cfg.PushEnabled {
		var pushCfg pushRelayConfig
		if err := config.Load(&pushCfg); err != nil {
			return nil, fmt.Errorf("failed to load push relay config: %w", err)
		}
		push, err := channels.NewPushAdapter(channels.RelayConfig(pushCfg))
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, push)
	}

	directory, err := newDirectory(cfg)
	if err != nil {
		return nil, err
	}

	return channels.NewDispatcher(directory, adapters,
		channels.WithDispatcherLogger(log))
}

// smsRelayConfig and pushRelayConfig carry distinct env prefixes over
// the shared relay shape.
type smsRelayConfig struct {
	Endpoint string        `env:"SMS_RELAY_ENDPOINT,required"`
	Secret   string        `env:"SMS_RELAY_SECRET,required"`
	Timeout  time.Duration `env:"SMS_RELAY_TIMEOUT" envDefault:"10s"`
}

type pushRelayConfig struct {
	Endpoint string        `env:"PUSH_RELAY_ENDPOINT,required"`
	Secret   string        `env:"PUSH_RELAY_SECRET,required"`
	Timeout  time.Duration `env:"PUSH_RELAY_TIMEOUT" envDefault:"10s"`
}

// newDirectory returns the HTTP directory when configured, falling
// back to a resolver that only carries the user id. The in-app adapter
// needs nothing more; outbound adapters report missing contact details
// per attempt.
func newDirectory(cfg appConfig) (channels.Directory, error) {
	if cfg.EmailEnabled || cfg.SMSEnabled || cfg.PushEnabled {
		var dirCfg channels.DirectoryConfig
		if err := config.Load(&dirCfg); err != nil {
			return nil, fmt.Errorf("failed to load directory config: %w", err)
		}
		return channels.NewHTTPDirectory(dirCfg)
	}

	return channels.DirectoryFunc(func(ctx context.Context, userID string) (channels.Recipient, error) {
		return channels.Recipient{UserID: userID}, nil
	}), nil
}
