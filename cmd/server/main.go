package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/tapin-reveal/internal/cache"
	"github.com/iliyamo/tapin-reveal/internal/config"
	"github.com/iliyamo/tapin-reveal/internal/database"
	"github.com/iliyamo/tapin-reveal/internal/handler"
	"github.com/iliyamo/tapin-reveal/internal/identity"
	"github.com/iliyamo/tapin-reveal/internal/memstore"
	"github.com/iliyamo/tapin-reveal/internal/metrics"
	"github.com/iliyamo/tapin-reveal/internal/middleware"
	"github.com/iliyamo/tapin-reveal/internal/push"
	"github.com/iliyamo/tapin-reveal/internal/queue"
	"github.com/iliyamo/tapin-reveal/internal/repository"
	"github.com/iliyamo/tapin-reveal/internal/router"
	"github.com/iliyamo/tapin-reveal/internal/service"
	"github.com/iliyamo/tapin-reveal/internal/storage"
)

// stores is the persistence backend selected by STORE_DRIVER.
type stores struct {
	presence  service.PresenceStore
	cycles    service.CycleStore
	blocks    service.BlocklistStore
	decisions service.DecisionStore
	convs     service.ConversationStore
	tokens    service.PushTokenStore
	media     storage.KeyLookup
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}

	cfg := config.Load()
	logger := config.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	matchCfg, err := config.LoadMatchConfig()
	if err != nil {
		log.Fatalf("match config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, db := openStores(ctx, cfg, logger)
	if db != nil {
		defer db.Close()
	}

	m := metrics.New()
	rdb := config.NewRedisClient(logger)
	if rdb != nil {
		defer rdb.Close()
	}

	verifier := newVerifier(cfg)
	expo := push.NewExpoClient(os.Getenv("EXPO_PUSH_URL"))

	// A nil *queue.Publisher must not become a non-nil interface.
	var publisher service.PushPublisher
	if p := queue.NewPublisher(cfg.RabbitURL, logger); p != nil {
		publisher = p
		go func() {
			if err := queue.StartPushConsumer(ctx, cfg.RabbitURL, expo, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("push.consumer.stop", "err", err)
			}
		}()
	}

	notifier := service.NewPushNotifier(st.tokens, publisher, expo, m, logger)
	blocks := service.NewBlocklistManager(st.blocks, blockCache(rdb), logger)
	cycle := service.NewCycleAllocator(st.cycles, blocks, matchCfg.Location, m, logger)
	reveal := service.NewRevealCoordinator(service.RevealDeps{
		Decisions: st.decisions,
		Convs:     st.convs,
		Cycle:     cycle,
		Blocks:    blocks,
		Media:     storage.NewPhotoResolver(st.media, newPresigner(logger)),
		Notifier:  notifier,
		Policy:    matchCfg.RevealPolicy,
		Metrics:   m,
		Logger:    logger,
	})

	var scheduler *service.RevealScheduler
	if matchCfg.RevealPolicy == config.RevealOnSenders {
		scheduler = service.NewRevealScheduler(st.convs, notifier, matchCfg.RevealSettleDelay, m, logger)
		defer scheduler.Stop()
	}
	messages := service.NewMessageService(st.convs, scheduler, notifier, matchCfg.RevealPolicy, logger)

	e := router.New(logger)
	router.RegisterRoutes(e, m)
	router.RegisterApp(e, router.AppHandlers{
		Presence: handler.NewPresenceHandler(
			service.NewPresenceService(st.presence, m),
			service.NewProximityMatcher(st.presence, matchCfg),
			cycle, m,
		),
		Reveal: handler.NewRevealHandler(reveal),
		Cycle:  handler.NewCycleHandler(cycle),
		Push:   handler.NewPushHandler(notifier),
	}, verifier,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	)
	router.RegisterInternal(e, handler.NewWebhookHandler(messages, blocks), cfg.WebhookSecret)

	if err := serve(ctx, e, ":"+cfg.Port, logger, cfg); err != nil {
		logger.Error("server.fail", "err", err)
		os.Exit(1)
	}
}

// openStores returns MySQL repositories (bootstrapping the schema) or the
// in-memory stores.  db is nil for the memory driver.
func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (stores, *sql.DB) {
	if cfg.StoreDriver == config.StoreMemory {
		logger.Warn("store.memory", "msg", "state is lost on restart")
		return stores{
			presence:  memstore.NewPresence(),
			cycles:    memstore.NewCycles(),
			blocks:    memstore.NewBlocklist(),
			decisions: memstore.NewDecisions(),
			convs:     memstore.NewConversations(),
			tokens:    memstore.NewPushTokens(),
			media:     memstore.NewMedia(),
		}, nil
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	schemaCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := database.EnsureSchema(schemaCtx, db); err != nil {
		log.Fatalf("db schema: %v", err)
	}
	return stores{
		presence:  repository.NewPresenceRepo(db),
		cycles:    repository.NewCycleRepo(db),
		blocks:    repository.NewBlocklistRepo(db),
		decisions: repository.NewDecisionRepo(db),
		convs:     repository.NewConversationRepo(db),
		tokens:    repository.NewPushTokenRepo(db),
		media:     repository.NewMediaRepo(db),
	}, db
}

func newVerifier(cfg config.Config) identity.Verifier {
	if cfg.AuthMode == config.AuthModeJWKS {
		return identity.NewJWKSVerifier(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.JWKSTTL)
	}
	return identity.NewHS256Verifier(cfg.JWTSecret)
}

// blockCache keeps a nil client from turning into a non-nil interface.
func blockCache(rdb *redis.Client) service.BlockCache {
	if rdb == nil {
		return nil
	}
	return cache.NewBlocklistCache(rdb, "tapin:block")
}

// newPresigner prefers object storage and falls back to static public URLs.
func newPresigner(logger *slog.Logger) storage.Presigner {
	s3cfg, err := storage.LoadS3ConfigFromEnv()
	if err == nil {
		s3, err := storage.NewS3Storage(s3cfg)
		if err == nil {
			logger.Info("storage.s3", "endpoint", s3cfg.Endpoint, "bucket", s3cfg.Bucket)
			return s3
		}
		logger.Error("storage.s3.fail", "err", err)
	} else if !errors.Is(err, storage.ErrNotConfigured) {
		logger.Error("storage.s3.config", "err", err)
	}
	return storage.PublicURLs{Base: os.Getenv("MEDIA_PUBLIC_BASE_URL")}
}

// serve runs the HTTP server until ctx is cancelled, then drains it.
func serve(ctx context.Context, e *echo.Echo, addr string, logger *slog.Logger, cfg config.Config) error {
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 15 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.IdleTimeout = 60 * time.Second

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server.start", "addr", addr, "env", cfg.Env, "store", cfg.StoreDriver, "auth", cfg.AuthMode)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("server.stop", "reason", "signal")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server.stopped")
	return nil
}
