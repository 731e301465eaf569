// main wires the compliance core: stores (Postgres or in-memory), the rule
// registry, the pipeline orchestrator, the portal client and the HTTP edge.
// Business logic lives in the internal packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"

	"taxpilot/internal/analyzer"
	analyzermetrics "taxpilot/internal/analyzer/metrics"
	"taxpilot/internal/audit"
	"taxpilot/internal/checklist"
	"taxpilot/internal/documents"
	"taxpilot/internal/filing"
	filingmetrics "taxpilot/internal/filing/metrics"
	"taxpilot/internal/orchestrator"
	"taxpilot/internal/orchestrator/ports"
	"taxpilot/internal/platform/config"
	"taxpilot/internal/platform/httpserver"
	"taxpilot/internal/platform/logger"
	platformredis "taxpilot/internal/platform/redis"
	"taxpilot/internal/portal"
	"taxpilot/internal/rules"
	"taxpilot/internal/transaction"
	httptransport "taxpilot/internal/transport/http"
	"taxpilot/internal/validation"
	"taxpilot/pkg/platform/backoff"
	storetx "taxpilot/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	stores, runner, closeDB, err := buildStores(cfg, log)
	if err != nil {
		log.Error("store wiring failed", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	idempotency, closeRedis, err := buildIdempotencyStore(cfg, log)
	if err != nil {
		log.Error("redis wiring failed", "error", err)
		os.Exit(1)
	}
	defer closeRedis()

	trail, closeTrail, err := buildAuditTrail(cfg, log)
	if err != nil {
		log.Error("audit wiring failed", "error", err)
		os.Exit(1)
	}
	defer closeTrail()

	registry := rules.NewRegistry(rules.Seed())
	docs := documents.NewInMemoryStore()
	submitter := filing.NewSubmitter(
		buildPortal(cfg, log), idempotency, backoff.Default(), log, filingmetrics.New())

	svc := orchestrator.New(
		orchestrator.Config{MaxValidationRetries: cfg.MaxValidationRetries},
		stores,
		orchestrator.Collaborators{Documents: docs},
		analyzer.New(registry, log, analyzermetrics.New()),
		checklist.NewGenerator(log),
		validation.NewEngine(log),
		submitter, trail, runner, log,
	)

	router := httptransport.NewRouter(httptransport.NewHandler(svc, registry, docs, log))
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting taxpilot", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// buildStores returns Postgres-backed stores when a database URL is
// configured, in-memory stores otherwise.
func buildStores(cfg config.Config, log *slog.Logger) (orchestrator.Stores, storetx.Runner, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("no database configured, using in-memory stores")
		stores := orchestrator.Stores{
			Transactions: transaction.NewInMemoryStore(),
			Results:      analyzer.NewInMemoryStore(),
			Checklists:   checklist.NewInMemoryStore(),
			Filings:      filing.NewInMemoryStore(),
		}
		return stores, storetx.NopRunner{}, func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return orchestrator.Stores{}, nil, nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return orchestrator.Stores{}, nil, nil, err
	}
	for _, schema := range []string{
		transaction.Schema(), analyzer.Schema(), checklist.Schema(), filing.Schema(),
	} {
		if _, err := db.Exec(schema); err != nil {
			_ = db.Close()
			return orchestrator.Stores{}, nil, nil, err
		}
	}
	stores := orchestrator.Stores{
		Transactions: transaction.NewPostgresStore(db),
		Results:      analyzer.NewPostgresStore(db),
		Checklists:   checklist.NewPostgresStore(db),
		Filings:      filing.NewPostgresStore(db),
	}
	return stores, storetx.NewSQLRunner(db), func() { _ = db.Close() }, nil
}

func buildIdempotencyStore(cfg config.Config, log *slog.Logger) (filing.IdempotencyStore, func(), error) {
	client, err := platformredis.New(cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Warn("no redis configured, filing idempotency kept in memory")
		return filing.NewInMemoryIdempotencyStore(), func() {}, nil
	}
	store := filing.NewRedisIdempotencyStore(client.Client, 0)
	return store, func() { _ = client.Close() }, nil
}

func buildAuditTrail(cfg config.Config, log *slog.Logger) (*audit.Publisher, func(), error) {
	opts := []audit.Option{}
	var closeKafka func()
	if len(cfg.Kafka.Brokers) > 0 {
		client, err := kgo.NewClient(kgo.SeedBrokers(cfg.Kafka.Brokers...))
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts,
			audit.WithSink(audit.NewKafkaSink(client, cfg.Kafka.Topic)),
			audit.WithAsyncBuffer(256),
		)
		closeKafka = client.Close
	}
	trail := audit.NewPublisher(audit.NewInMemoryStore(), log, opts...)
	return trail, func() {
		trail.Close()
		if closeKafka != nil {
			closeKafka()
		}
	}, nil
}

func buildPortal(cfg config.Config, log *slog.Logger) ports.FilingPortal {
	if cfg.Portal.BaseURL == "" {
		log.Warn("no portal configured, using the in-process fake")
		return portal.NewFake()
	}
	return portal.NewClient(portal.Config{
		BaseURL:   cfg.Portal.BaseURL,
		APIKey:    cfg.Portal.APIKey,
		APISecret: cfg.Portal.APISecret,
		Timeout:   cfg.Portal.Timeout,
	}, log)
}
