package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"dbtcheck/internal/chat"
	chathandler "dbtcheck/internal/chat/handler"
	chatmetrics "dbtcheck/internal/chat/metrics"
	"dbtcheck/internal/check"
	checkhandler "dbtcheck/internal/check/handler"
	checkmetrics "dbtcheck/internal/check/metrics"
	checkstore "dbtcheck/internal/check/store"
	"dbtcheck/internal/otp"
	"dbtcheck/internal/platform/config"
	"dbtcheck/internal/platform/httpserver"
	"dbtcheck/internal/platform/i18n"
	"dbtcheck/internal/platform/logger"
	"dbtcheck/internal/platform/metrics"
	"dbtcheck/internal/platform/middleware"
	platformredis "dbtcheck/internal/platform/redis"
	"dbtcheck/internal/platform/tracing"
	rlmetrics "dbtcheck/internal/ratelimit/metrics"
	rlmiddleware "dbtcheck/internal/ratelimit/middleware"
	"dbtcheck/internal/ratelimit/models"
	"dbtcheck/internal/ratelimit/service/requestlimit"
	"dbtcheck/internal/ratelimit/store/bucket"
	"dbtcheck/internal/status"
	httptransport "dbtcheck/internal/transport/http"
	"dbtcheck/pkg/platform/circuit"
)

// main wires the services, exposes the router, and drains background work on
// shutdown. Business logic lives in the internal service packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// sweeper is a background loop that ends with its context.
type sweeper func(ctx context.Context) error

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracing flush failed", "error", err)
		}
	}()

	catalog, err := i18n.Load()
	if err != nil {
		return fmt.Errorf("load message catalogs: %w", err)
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var sweepers []sweeper
	health := map[string]httptransport.Pinger{}

	sessions, sessionSweeper := buildCheckStore(cfg.Server, redisClient)
	if sessionSweeper != nil {
		sweepers = append(sweepers, sessionSweeper)
	}
	health["sessions"] = sessions
	if redisClient != nil {
		health["redis"] = redisClient
	}

	verifier, err := buildVerifier(cfg, log)
	if err != nil {
		return err
	}

	checkSvc, err := check.New(sessions, verifier, catalog,
		check.WithLogger(log),
		check.WithMetrics(checkmetrics.New()),
		check.WithStager(status.Stager{
			LeadIn:     cfg.Status.LeadIn,
			Step2Delay: cfg.Status.Step2Delay,
			Step3Delay: cfg.Status.Step3Delay,
		}),
		check.WithOTPPolicy(otp.Policy{
			MaxAttempts: cfg.OTP.MaxAttempts,
			Expiry:      cfg.OTP.Expiry,
		}),
		check.WithRunTimeout(cfg.Status.RunTimeout),
	)
	if err != nil {
		return fmt.Errorf("check service: %w", err)
	}
	if cfg.OTP.InBand {
		log.Warn("OTP codes are returned in-band; demo deployments only")
	}

	chatMetrics := chatmetrics.New()
	gemini := chat.NewGeminiClient(cfg.Chat.APIKey,
		chat.WithBaseURL(cfg.Chat.BaseURL),
		chat.WithModel(cfg.Chat.Model),
		chat.WithHTTPClient(&http.Client{Timeout: cfg.Chat.Timeout}),
		chat.WithBackoff(cfg.Chat.ServerBackoff, cfg.Chat.NetworkBackoff),
		chat.WithRetryObserver(chatMetrics.IncrementRetry),
		chat.WithClientLogger(log),
	)
	if !gemini.Configured() {
		log.Warn("GEMINI_API_KEY is not set; chat answers with a setup notice")
	}
	chatSvc, err := chat.New(gemini,
		chat.WithLogger(log),
		chat.WithMetrics(chatMetrics),
		chat.WithMaxConcurrent(cfg.Chat.MaxConcurrent),
	)
	if err != nil {
		return fmt.Errorf("chat service: %w", err)
	}

	limitMetrics := rlmetrics.New()
	buckets, bucketSweeper := buildBucketStore(cfg.RateLimit, redisClient)
	if bucketSweeper != nil {
		sweepers = append(sweepers, bucketSweeper)
	}
	limiter, err := requestlimit.New(buckets,
		requestlimit.WithLogger(log),
		requestlimit.WithMetrics(limitMetrics),
		requestlimit.WithLimits(limitsFrom(cfg.RateLimit)),
		requestlimit.WithAllowlist(cfg.RateLimit.Allowlist),
	)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	proxies, err := middleware.ParseTrustedProxies(cfg.RateLimit.TrustedProxies)
	if err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}

	router := httptransport.NewRouter(httptransport.Dependencies{
		Logger:         log,
		Metrics:        metrics.New(),
		Catalog:        catalog,
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimit: rlmiddleware.New(limiter, log,
			rlmiddleware.WithDisabled(cfg.RateLimit.Disabled),
			rlmiddleware.WithMetrics(limitMetrics),
		),
		TrustedProxies: proxies,
		Checks:         checkhandler.New(checkSvc, catalog, log, cfg.OTP.InBand),
		Chat:           chathandler.New(chatSvc, log),
		Health:         health,
	})
	srv := httpserver.New(cfg.Server.Addr, router, cfg.Server.RequestTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting dbtcheck",
			"addr", cfg.Server.Addr,
			"env", cfg.Environment,
			"verifier", verifier.ID(),
			"redis", redisClient != nil,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	for _, sweep := range sweepers {
		g.Go(func() error { return sweep(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		checkSvc.Wait()
		return err
	})
	return g.Wait()
}

// sessionStore is the check store plus the health probe every backend offers.
type sessionStore interface {
	check.Store
	httptransport.Pinger
}

func buildCheckStore(cfg config.ServerConfig, client *platformredis.Client) (sessionStore, sweeper) {
	if client != nil {
		return checkstore.NewRedis(client.Client, cfg.SessionTTL), nil
	}
	mem := checkstore.NewInMemory(cfg.SessionTTL)
	return mem, func(ctx context.Context) error { return mem.RunSweeper(ctx, cfg.SweepInterval) }
}

func buildBucketStore(cfg config.RateLimitConfig, client *platformredis.Client) (requestlimit.BucketStore, sweeper) {
	if client != nil {
		return bucket.NewRedisBucketStore(client.Client), nil
	}
	mem := bucket.NewInMemoryBucketStore()
	return mem, func(ctx context.Context) error { return mem.RunSweeper(ctx, cfg.SweepInterval) }
}

func buildVerifier(cfg config.Config, log *slog.Logger) (status.Verifier, error) {
	sampler, err := status.NewSampler(status.Scenarios, nil)
	if err != nil {
		return nil, fmt.Errorf("status sampler: %w", err)
	}
	simulated := status.NewSimulatedVerifier(sampler)
	if strings.ToLower(cfg.Status.Verifier) != config.VerifierRegistry {
		return simulated, nil
	}

	opts := []status.RegistryOption{
		status.WithAPIKey(cfg.Status.RegistryAPIKey),
		status.WithHTTPClient(&http.Client{Timeout: cfg.Status.RegistryTimeout}),
		status.WithBreaker(circuit.New("status-registry",
			circuit.WithFailureThreshold(cfg.Status.BreakerFailures),
			circuit.WithSuccessThreshold(cfg.Status.BreakerSuccesses),
		)),
		status.WithRegistryLogger(log),
	}
	// Simulated answers are never served as real results in production.
	if !cfg.IsProduction() {
		opts = append(opts, status.WithFallback(simulated))
	}
	registry, err := status.NewRegistryVerifier(cfg.Status.RegistryURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("registry verifier: %w", err)
	}
	return registry, nil
}

func limitsFrom(cfg config.RateLimitConfig) map[models.EndpointClass]models.Limit {
	return map[models.EndpointClass]models.Limit{
		models.ClassStart: {Requests: cfg.StartPerIP, Window: cfg.Window},
		models.ClassOTP:   {Requests: cfg.OTPPerIP, Window: cfg.Window},
		models.ClassChat:  {Requests: cfg.ChatPerIP, Window: cfg.Window},
		models.ClassRead:  {Requests: cfg.ReadPerIP, Window: cfg.Window},
	}
}
