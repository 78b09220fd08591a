package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"takedown/internal/auth"
	authhandler "takedown/internal/auth/handler"
	"takedown/internal/cases"
	caseshandler "takedown/internal/cases/handler"
	casesmetrics "takedown/internal/cases/metrics"
	"takedown/internal/directory"
	"takedown/internal/notify"
	"takedown/internal/platform/config"
	"takedown/internal/platform/httpserver"
	"takedown/internal/platform/logger"
	"takedown/internal/platform/postgres"
	platformredis "takedown/internal/platform/redis"
	"takedown/internal/ratelimit"
	"takedown/internal/reporting"
	reportinghandler "takedown/internal/reporting/handler"
	"takedown/internal/sla"
	slametrics "takedown/internal/sla/metrics"
	"takedown/internal/transparency"
	transparencyhandler "takedown/internal/transparency/handler"
	transparencymetrics "takedown/internal/transparency/metrics"
	httptransport "takedown/internal/transport/http"
	"takedown/internal/workflow"
)

// main wires dependencies and runs the HTTP server and the SLA worker side by
// side. Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: PostgreSQL when configured, in-memory otherwise.
	var (
		caseStore cases.Store
		logStore  transparency.Store
		txRunner  cases.TxRunner
	)
	if cfg.Postgres.URL != "" {
		db, err := postgres.Open(cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return err
		}
		caseStore = cases.NewPostgres(db)
		logStore = transparency.NewPostgres(db)
		txRunner = postgres.NewTxRunner(db)
		log.Info("using postgres storage")
	} else {
		caseStore = cases.NewMemoryStore()
		logStore = transparency.NewMemoryStore()
		txRunner = cases.NewMemoryTxRunner()
		log.Warn("postgres not configured, using in-memory storage")
	}

	// Notification channel: Kafka when configured, in-memory otherwise.
	var dispatcher notify.Dispatcher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.Kafka.Brokers...),
			kgo.DefaultProduceTopic(cfg.Kafka.Topic),
		)
		if err != nil {
			return err
		}
		defer kafkaClient.Close()
		dispatcher = notify.NewKafkaDispatcher(kafkaClient, cfg.Kafka.Topic, log)
		log.Info("using kafka notification dispatch", "topic", cfg.Kafka.Topic)
	} else {
		dispatcher = notify.NewMemoryDispatcher()
		log.Warn("kafka not configured, notifications recorded in memory")
	}

	// Warning dedupe: Redis when configured, in-memory otherwise.
	var deduper notify.Deduper
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		deduper = notify.NewRedisDeduper(redisClient.Client)
		log.Info("using redis warning dedupe")
	} else {
		deduper = notify.NewMemoryDeduper()
		log.Warn("redis not configured, warning dedupe is process-local")
	}

	// Login throttle: shared across replicas when Redis is available.
	var loginLimiter ratelimit.Limiter
	if redisClient != nil {
		loginLimiter = ratelimit.NewRedisLimiter(redisClient.Client, 10, time.Minute)
	} else {
		loginLimiter = ratelimit.NewMemoryLimiter(10, time.Minute)
	}

	dir := seedDirectory(log)

	transparencyLog := transparency.NewLog(logStore, log,
		transparency.WithMetrics(transparencymetrics.New()))
	caseService := cases.NewService(caseStore, txRunner, workflow.NewEngine(nil), transparencyLog, log,
		cases.WithMetrics(casesmetrics.New()),
		cases.WithDispatcher(dispatcher),
	)
	reportService := reporting.NewService(transparencyLog, log)

	issuer := auth.NewIssuer([]byte(cfg.Auth.JWTSigningKey), cfg.Auth.TokenTTL)
	authService := auth.NewService(dir, issuer, log)

	worker := sla.NewWorker(caseService, dir, dispatcher, deduper, log,
		sla.WithInterval(cfg.SLA.PollInterval),
		sla.WithBackoff(cfg.SLA.Backoff),
		sla.WithWarningThreshold(cfg.SLA.WarningThreshold),
		sla.WithMetrics(slametrics.New()),
	)

	router := httptransport.New(httptransport.Deps{
		Logger:       log,
		Verifier:     issuer,
		Auth:         authhandler.New(authService, log),
		Cases:        caseshandler.New(caseService, log),
		Transparency: transparencyhandler.New(transparencyLog, log),
		Reports:      reportinghandler.New(reportService, log),
		LoginLimit:   ratelimit.LoginLimit(loginLimiter, log),
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := worker.Run(gCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// seedDirectory builds the development user directory. A real deployment
// would back this with the organization's identity provider.
func seedDirectory(log *slog.Logger) *directory.MemoryStore {
	dir := directory.NewMemoryStore()
	seed := []struct {
		id, username, password string
		role                   workflow.Role
	}{
		{"victim-1", "victim", "victim-pass", workflow.RoleVictim},
		{"officer-1", "officer", "officer-pass", workflow.RoleOfficer},
		{"admin-1", "admin", "admin-pass", workflow.RoleAdmin},
	}
	for _, u := range seed {
		hash, err := directory.HashPassword(u.password)
		if err != nil {
			log.Error("seed user hash failed", "username", u.username, "error", err)
			continue
		}
		dir.Add(&directory.User{
			ID:           u.id,
			Username:     u.username,
			PasswordHash: hash,
			Role:         u.role,
			Active:       true,
		})
	}
	return dir
}
