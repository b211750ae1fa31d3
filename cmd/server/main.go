package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	accessstore "custodia/internal/access/store"
	"custodia/internal/audit"
	"custodia/internal/platform/clock"
	"custodia/internal/platform/config"
	"custodia/internal/platform/database"
	"custodia/internal/platform/health"
	"custodia/internal/platform/kafka"
	"custodia/internal/platform/kafka/producer"
	"custodia/internal/platform/logger"
	"custodia/internal/platform/metrics"
	"custodia/internal/platform/redis"
	"custodia/internal/platform/tracer"
	"custodia/internal/seeder"
	"custodia/internal/token"
	httptransport "custodia/internal/transport/http"

	accesssvc "custodia/internal/access/service"
	authsvc "custodia/internal/auth/service"
	apikeystore "custodia/internal/auth/store/apikey"
	sessionstore "custodia/internal/auth/store/session"
	consentsvc "custodia/internal/consent/service"
	consentstore "custodia/internal/consent/store"
	identitysvc "custodia/internal/identity/service"
	identitystore "custodia/internal/identity/store"
	keysvc "custodia/internal/keys/service"
	keystore "custodia/internal/keys/store"
	"custodia/internal/keys/vault"
	recordsvc "custodia/internal/records/service"
	recordstore "custodia/internal/records/store"
	id "custodia/pkg/domain"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal service
// packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	log.Info("initializing custodia",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"regulated_mode", cfg.RegulatedMode,
	)

	clk := clock.System{}
	m := metrics.New()

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.PostgresURL
	pool, err := database.New(dbCfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	if pool != nil {
		defer pool.Close() //nolint:errcheck // shutdown path
	}

	rdb, err := redis.New(cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if rdb != nil {
		defer rdb.Close() //nolint:errcheck // shutdown path
		go func() {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for range ticker.C {
				rdb.RecordPoolStats()
			}
		}()
	}

	var auditSink audit.Store = audit.NewInMemoryStore()
	if len(cfg.KafkaBrokers) > 0 {
		prod, err := producer.New(producer.Config{
			Brokers:         strings.Join(cfg.KafkaBrokers, ","),
			Retries:         5,
			DeliveryTimeout: 10 * time.Second,
		}, log)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer prod.Close() //nolint:errcheck // shutdown path
		kafkaSink := audit.NewBreakerStore(audit.NewKafkaStore(prod, cfg.AuditTopic), log)
		auditSink = audit.NewTeeStore(auditSink, kafkaSink)
		log.Info("audit events mirrored to kafka", "topic", cfg.AuditTopic)
	}
	auditor := audit.NewPublisher(auditSink,
		audit.WithAsyncBuffer(1024),
		audit.WithPublisherLogger(log),
	)
	defer auditor.Close()

	var identityStore identitysvc.Store = identitystore.New()
	var consentStore consentsvc.Store = consentstore.New()
	if pool != nil {
		identityStore = identitystore.NewPostgres(pool.DB())
		consentStore = consentstore.NewPostgres(pool.DB())
		log.Info("using postgres-backed identity and consent stores")
	}

	var sessions authsvc.SessionStore = sessionstore.NewInMemory()
	if rdb != nil {
		sessions = sessionstore.NewRedis(rdb.Client)
		log.Info("using redis-backed session store")
	}
	apiKeys := apikeystore.NewInMemory()

	if cfg.SeedDemoData {
		if err := seeder.New(identityStore, apiKeys, clk, log).SeedAll(context.Background()); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	identities := identitysvc.NewService(identityStore, auditor, clk, log,
		identitysvc.WithMetrics(m))
	consents := consentsvc.NewService(consentStore, identities, auditor, clk, log,
		consentsvc.WithMetrics(m))
	access := accesssvc.NewService(accessstore.New(), auditor, clk, log,
		accesssvc.WithMetrics(m))
	authService := authsvc.NewService(sessions, apiKeys, identities, auditor, clk, log,
		authsvc.WithMetrics(m),
		authsvc.WithSessionTTL(cfg.SessionTTL))

	kek, err := loadKEK(cfg, log)
	if err != nil {
		return err
	}
	keyVault, err := vault.New(kek)
	if err != nil {
		return fmt.Errorf("init key vault: %w", err)
	}
	keys := keysvc.NewService(keystore.New(), keyVault, auditor, clk, log,
		keysvc.WithMetrics(m))
	records := recordsvc.NewService(recordstore.New(), auditor, clk, log,
		recordsvc.WithMetrics(m))

	tokens := token.NewService(cfg.JWTSigningKey, "custodia", "custodia-api", cfg.SessionTTL, clk)

	healthHandler := health.New(cfg.Environment)
	if pool != nil {
		healthHandler.RegisterCheck("postgres", healthCheck(pool.Health))
	}
	if rdb != nil {
		healthHandler.RegisterCheck("redis", healthCheck(rdb.Health))
	}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaCheck := kafka.NewHealthChecker(strings.Join(cfg.KafkaBrokers, ","))
		healthHandler.RegisterCheck(kafkaCheck.Name(), healthCheck(kafkaCheck.Check))
	}

	tr := tracer.NewOTel()

	router := httptransport.NewRouter(httptransport.Handlers{
		Identity: httptransport.NewIdentityHandler(identities, log),
		Consent:  httptransport.NewConsentHandler(consents, clk, log),
		Access:   httptransport.NewAccessHandler(access, consents, recordDirectoryAdapter{records}, tr, clk, log),
		Auth:     httptransport.NewAuthHandler(authService, tokens, clk, cfg.RegulatedMode, log),
		Keys:     httptransport.NewKeyHandler(keys, clk, log),
		Records:  httptransport.NewRecordHandler(records, log),
		Health:   healthHandler,
	}, httptransport.RouterConfig{
		TokenValidator: tokenValidatorAdapter{tokens},
		SessionChecker: sessionCheckerAdapter{auth: authService, clock: clk},
		Metrics:        m,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

// loadKEK decodes the configured key-encryption key, deriving a development
// key from the signing secret when none is set.
func loadKEK(cfg config.Server, log *slog.Logger) ([]byte, error) {
	if cfg.VaultKEK == "" {
		log.Warn("VAULT_KEK not set, deriving development key from signing secret")
		digest := id.Digest([]byte(cfg.JWTSigningKey))
		return digest[:], nil
	}
	kek, err := hex.DecodeString(cfg.VaultKEK)
	if err != nil {
		return nil, fmt.Errorf("decode VAULT_KEK: %w", err)
	}
	return kek, nil
}
