// Command server runs the pharmacy POS core: terminal-facing HTTP API,
// verification orchestration over the match feed, and checkout with the
// stock ledger.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"botica/internal/events/matchfeed"
	identityservice "botica/internal/identity/service"
	identitystore "botica/internal/identity/store"
	"botica/internal/ledger"
	"botica/internal/platform/config"
	"botica/internal/platform/httpserver"
	"botica/internal/platform/logger"
	platformmetrics "botica/internal/platform/metrics"
	"botica/internal/platform/middleware"
	platformredis "botica/internal/platform/redis"
	"botica/internal/pos/checkout"
	posmetrics "botica/internal/pos/metrics"
	posstore "botica/internal/pos/store"
	httptransport "botica/internal/transport/http"
	"botica/internal/verify"
	verifymetrics "botica/internal/verify/metrics"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.PostgresURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var seniorStore identityservice.Store
	var orderStore checkout.OrderStore
	if db != nil {
		seniorStore = identitystore.NewPostgres(db)
		orderStore = posstore.NewPostgres(db)
	} else {
		log.Warn("no postgres configured, using in-memory stores")
		seniorStore = identitystore.NewMemory()
		orderStore = posstore.NewMemory()
	}

	resolver, err := identityservice.NewResolver(seniorStore, identityservice.WithLogger(log))
	if err != nil {
		return fmt.Errorf("build resolver: %w", err)
	}

	var feed matchfeed.Feed
	if redisClient != nil {
		feed, err = matchfeed.NewRedisFeed(redisClient.Client, cfg.MatchChannel, log)
		if err != nil {
			return fmt.Errorf("build match feed: %w", err)
		}
	} else {
		log.Warn("no redis configured, using in-process match feed")
		feed = matchfeed.NewBus()
	}

	var sink ledger.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := ledger.NewKafkaSink(cfg.KafkaBrokers, cfg.LedgerTopic)
		if err != nil {
			return fmt.Errorf("build kafka ledger sink: %w", err)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
	} else {
		log.Warn("no kafka configured, stock ledger stays in memory")
		sink = ledger.NewInMemoryStore()
	}

	journal, err := ledger.NewPublisher(sink,
		ledger.WithLogger(log),
		ledger.WithAsyncBuffer(256),
	)
	if err != nil {
		return fmt.Errorf("build ledger publisher: %w", err)
	}
	defer journal.Close()

	checkoutSvc, err := checkout.New(orderStore, journal,
		checkout.WithLogger(log),
		checkout.WithMetrics(posmetrics.New()),
	)
	if err != nil {
		return fmt.Errorf("build checkout service: %w", err)
	}

	verifyMetrics := verifymetrics.New()
	factory := func() (*verify.Orchestrator, error) {
		return verify.New(feed, resolver,
			verify.WithLogger(log),
			verify.WithMetrics(verifyMetrics),
			verify.WithListenTimeout(cfg.ListenTimeout),
			verify.WithResolveTimeout(cfg.ResolveTimeout),
			verify.WithSuccessDelay(cfg.SuccessDelay),
		)
	}

	handler := httptransport.NewHandler(checkoutSvc, factory, log)
	validator := middleware.NewJWTValidator(cfg.JWTSigningKey)

	var checks []httptransport.HealthChecker
	if redisClient != nil {
		checks = append(checks, redisClient)
	}
	router := httptransport.NewRouter(handler, validator, platformmetrics.New(), checks...)

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting botica server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
