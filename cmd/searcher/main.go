package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/rank/criterion"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/search-ranking/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if err := cfg.Ranking.Validate(criterion.Known); err != nil {
		slog.Error("invalid ranking config", "error", err)
		os.Exit(1)
	}
	criteria, err := criterion.ByName(cfg.Ranking.Criteria)
	if err != nil {
		slog.Error("failed to build ranking criteria", "error", err)
		os.Exit(1)
	}
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"num_shards", cfg.Indexer.NumShards,
		"criteria", criteria.Names(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	router, err := shard.NewRouter(cfg.Indexer, cfg.Indexer.NumShards, indexer.MatchOptionsFrom(cfg.Ranking))
	if err != nil {
		slog.Error("failed to create shard router", "error", err)
		os.Exit(1)
	}
	defer router.Close()
	handler.RecordShardGauges(router, m)

	var queryCache *cache.QueryCache
	redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis, m)
		slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer producer.Close()
	collector := analytics.NewCollector(producer, 10000, 100, 0)
	collector.Start(ctx)
	defer collector.Close()

	hostname, _ := os.Hostname()
	var inv handler.Invalidator
	if queryCache != nil {
		inv = queryCache
	}
	flushConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete,
		cfg.Kafka.ConsumerGroup+"-searcher-"+hostname,
		handler.ReloadOnFlush(router, inv, m),
	)
	go func() {
		if err := flushConsumer.Start(ctx); err != nil {
			slog.Error("flush consumer error", "error", err)
		}
	}()

	checker := health.NewChecker()
	checker.Register("shards", health.ShardsCheck(cfg.Indexer.NumShards, func() int {
		return len(router.GetAllEngines())
	}))
	if redisClient != nil {
		checker.Register("redis", health.OptionalCheck(health.PingCheck(redisClient.Ping)))
	}
	checker.Register("kafka", health.OptionalCheck(health.PingCheck(func(ctx context.Context) error {
		return kafka.Ping(ctx, cfg.Kafka.Brokers)
	})))

	exec := executor.NewSharded(router.GetAllEngines(), executor.Config{
		Criteria:      criteria,
		MaxCandidates: cfg.Ranking.MaxCandidates,
		DistinctSize:  cfg.Ranking.DistinctSize,
		Metrics:       m,
	}, cfg.Search.TimeoutPerShard)
	h := handler.New(exec, queryCache, collector, m, cfg.Search).
		DistinctByDefault(cfg.Ranking.DistinctAttribute != "")

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	limiter := ratelimit.New(time.Minute)
	defer limiter.Close()

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RateLimit(limiter, cfg.Search.RateLimitPerMinute)(chain)
	chain = middleware.Metrics(m)(chain)
	if len(cfg.Server.AllowOrigins) > 0 {
		chain = middleware.CORS(cfg.Server.AllowOrigins)(chain)
	}
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}
