package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	adminadapters "civicchain/internal/admin/adapters"
	adminhandler "civicchain/internal/admin/handler"
	adminmetrics "civicchain/internal/admin/metrics"
	adminservice "civicchain/internal/admin/service"
	"civicchain/internal/admin/store/lockout"
	"civicchain/internal/admin/store/session"
	grievanceadapters "civicchain/internal/grievance/adapters"
	grievancehandler "civicchain/internal/grievance/handler"
	grievancemetrics "civicchain/internal/grievance/metrics"
	grievanceservice "civicchain/internal/grievance/service"
	grievancestore "civicchain/internal/grievance/store/grievance"
	identityhandler "civicchain/internal/identity/handler"
	identitymetrics "civicchain/internal/identity/metrics"
	identityservice "civicchain/internal/identity/service"
	"civicchain/internal/identity/store/account"
	jwttoken "civicchain/internal/jwt_token"
	"civicchain/internal/platform/config"
	"civicchain/internal/platform/httpserver"
	platformmetrics "civicchain/internal/platform/metrics"
	"civicchain/internal/platform/postgres"
	"civicchain/internal/platform/rabbitmq"
	"civicchain/internal/platform/redis"
	suggestionclient "civicchain/internal/suggestion/client"
	suggestionhandler "civicchain/internal/suggestion/handler"
	suggestionmetrics "civicchain/internal/suggestion/metrics"
	suggestionservice "civicchain/internal/suggestion/service"
	httptransport "civicchain/internal/transport/http"
	"civicchain/pkg/platform/audit"
	"civicchain/pkg/platform/audit/publisher"
	auditmemory "civicchain/pkg/platform/audit/store/memory"
	auditpostgres "civicchain/pkg/platform/audit/store/postgres"
)

const auditBuffer = 256

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

// infra holds the optional backing services.
type infra struct {
	db       *sql.DB
	redis    *redis.Client
	producer *rabbitmq.EventProducer
}

func (i *infra) close(log *slog.Logger) {
	if i.producer != nil {
		i.producer.Close()
	}
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			log.Warn("failed to close redis client", "error", err)
		}
	}
	if i.db != nil {
		if err := i.db.Close(); err != nil {
			log.Warn("failed to close database", "error", err)
		}
	}
}

func connect(ctx context.Context, cfg *config.Config, log *slog.Logger) (*infra, error) {
	in := &infra{}
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return in, err
		}
		in.db = db
		if err := postgres.Migrate(ctx, db); err != nil {
			return in, err
		}
		log.Info("using postgres stores")
	} else {
		log.Info("no database configured, using in-memory stores")
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return in, err
	}
	in.redis = rc

	if cfg.RabbitMQ.URL != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log)
		if err != nil {
			return in, fmt.Errorf("connect rabbitmq: %w", err)
		}
		in.producer = producer
	}
	return in, nil
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	in, err := connect(ctx, cfg, log)
	defer in.close(log)
	if err != nil {
		return err
	}

	reg := prometheus.DefaultRegisterer
	health := httptransport.NewHealth(log)

	var auditStore audit.Store = auditmemory.NewInMemoryStore()
	var accountStore identityservice.AccountStore = account.NewInMemory()
	var grievanceStore grievanceservice.Store = grievancestore.NewInMemory()
	if in.db != nil {
		auditStore = auditpostgres.New(in.db)
		accountStore = account.NewPostgres(in.db)
		grievanceStore = grievancestore.NewPostgres(in.db)
		health.Add("postgres", in.db.PingContext)
	}
	auditPublisher := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(auditBuffer),
		publisher.WithLogger(log),
	)
	defer auditPublisher.Close()

	var (
		sessionStore adminservice.SessionStore
		lockoutStore adminservice.LockoutStore
	)
	if in.redis != nil {
		sessionStore = session.NewRedis(in.redis.Client)
		lockoutStore = lockout.NewRedis(in.redis.Client)
		health.Add("redis", in.redis.Health)
	} else {
		mem := session.NewInMemory()
		sweeper := session.NewSweeper(mem, cfg.Admin.SweepSchedule, log)
		if err := sweeper.Start(); err != nil {
			return fmt.Errorf("start session sweeper: %w", err)
		}
		defer sweeper.Stop()
		sessionStore = mem
		lockoutStore = lockout.NewInMemory()
	}

	accounts, err := identityservice.New(accountStore,
		identityservice.WithLogger(log),
		identityservice.WithAuditPublisher(auditPublisher),
		identityservice.WithMetrics(identitymetrics.New(reg)),
	)
	if err != nil {
		return err
	}
	tokens := jwttoken.NewJWTService(cfg.Token.SigningKey, cfg.Token.Issuer, jwttoken.WithTTL(cfg.Token.TTL))

	admins, err := adminservice.New(sessionStore, lockoutStore, cfg.Admin,
		adminservice.WithLogger(log),
		adminservice.WithAuditPublisher(auditPublisher),
		adminservice.WithMetrics(adminmetrics.New(reg)),
	)
	if err != nil {
		return err
	}

	suggestionOpts := []suggestionservice.Option{
		suggestionservice.WithLogger(log),
		suggestionservice.WithMetrics(suggestionmetrics.New(reg)),
	}
	if cfg.Suggestion.URL != "" {
		suggestionOpts = append(suggestionOpts, suggestionservice.WithClassifier(
			suggestionclient.New(cfg.Suggestion.URL, cfg.Suggestion.Timeout),
			cfg.Suggestion.FailureThreshold,
		), suggestionservice.WithRetryInterval(cfg.Suggestion.RetryInterval))
	}
	suggestions := suggestionservice.New(suggestionOpts...)

	grievanceOpts := []grievanceservice.Option{
		grievanceservice.WithLogger(log),
		grievanceservice.WithMetrics(grievancemetrics.New(reg)),
		grievanceservice.WithAuditPublisher(auditPublisher),
		grievanceservice.WithSuggester(grievanceadapters.NewSuggestionAdapter(suggestions)),
		grievanceservice.WithAccountCounter(accounts),
	}
	if in.producer != nil {
		grievanceOpts = append(grievanceOpts, grievanceservice.WithEventPublisher(in.producer))
	}
	grievances, err := grievanceservice.New(grievanceStore, cfg.Grievance, grievanceOpts...)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Dependencies{
		Logger:           log,
		TokenValidator:   jwttoken.NewJWTServiceAdapter(tokens),
		SessionValidator: adminadapters.NewSessionValidatorAdapter(admins),
		Identity:         identityhandler.New(accounts, tokens, log),
		Admin:            adminhandler.New(admins, log),
		Grievances:       grievancehandler.New(grievances, log),
		Suggestions:      suggestionhandler.New(suggestions, log),
		Health:           health,
		HTTPMetrics:      platformmetrics.NewHTTPMetrics(reg),
		MetricsHandler:   platformmetrics.Handler(),
		CORSOrigins:      cfg.HTTP.CORSOrigins,
	})

	log.Info("starting "+programName, "addr", cfg.HTTP.Addr, "run_mode", cfg.RunMode)
	return httpserver.Run(ctx, httpserver.New(cfg.HTTP.Addr, router), cfg.HTTP.ShutdownTimeout, log)
}
