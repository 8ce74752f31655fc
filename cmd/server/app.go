package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"

	"corpauth/internal/affiliation"
	affiliationmetrics "corpauth/internal/affiliation/metrics"
	"corpauth/internal/identity/models"
	"corpauth/internal/identity/store"
	"corpauth/internal/linking"
	"corpauth/internal/platform/config"
	"corpauth/internal/platform/database"
	"corpauth/internal/platform/kafka/producer"
	"corpauth/internal/platform/logger"
	platformmetrics "corpauth/internal/platform/metrics"
	platformredis "corpauth/internal/platform/redis"
	"corpauth/internal/policy"
	"corpauth/internal/presence/discord"
	"corpauth/internal/ratelimit/service/authlockout"
	"corpauth/internal/ratelimit/store/bucket"
	"corpauth/internal/reconcile"
	reconcilemetrics "corpauth/internal/reconcile/metrics"
	id "corpauth/pkg/domain"
	"corpauth/pkg/platform/audit"
	"corpauth/pkg/platform/audit/publisher"
	auditkafka "corpauth/pkg/platform/audit/store/kafka"
	auditmemory "corpauth/pkg/platform/audit/store/memory"
	auditpostgres "corpauth/pkg/platform/audit/store/postgres"
	"corpauth/pkg/requestcontext"
)

const passLockKey = "corpauth:reconcile:pass"

// identityStore is what the engine and the linking service need together.
type identityStore interface {
	reconcile.IdentityStore
	linking.Store
}

// app holds the dependencies shared by the serve and reconcile commands.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *platformmetrics.Metrics

	store    identityStore
	audit    *publisher.Publisher
	producer *producer.Producer
	redis    *platformredis.Client
	session  *discordgo.Session
	gateway  *discord.Gateway
	ruleset  policy.Ruleset
	engine   *reconcile.Engine
	worker   *reconcile.Worker
	linking  *linking.Service

	closers []func() error
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newApp wires every component. On error, whatever was opened is closed.
func newApp(ctx context.Context, cfg config.Config) (_ *app, err error) {
	if cfg.Discord.Token == "" || cfg.Discord.GuildID == "" {
		return nil, errors.New("discord.token and discord.guild_id are required")
	}
	if cfg.Auth.LinkJWTSecret == "" {
		return nil, errors.New("auth.link_jwt_secret is required")
	}

	a := &app{
		cfg:      cfg,
		logger:   logger.New(cfg.Log.Level, cfg.Log.Format),
		registry: platformmetrics.NewRegistry(),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()
	a.metrics = platformmetrics.New(a.registry)

	auditStore, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.openAudit(ctx, auditStore); err != nil {
		return nil, err
	}

	a.ruleset, err = rulesetFromConfig(cfg.Roles)
	if err != nil {
		return nil, err
	}

	a.session, err = discord.NewSession(cfg.Discord.Token)
	if err != nil {
		return nil, err
	}
	a.gateway = discord.NewGateway(a.session, cfg.Discord.GuildID)

	source := affiliation.New(cfg.ESI.BaseURL,
		affiliation.WithDatasource(cfg.ESI.Datasource),
		affiliation.WithUserAgent(cfg.ESI.UserAgent()),
		affiliation.WithTimeout(cfg.ESI.Timeout),
		affiliation.WithMaxBatch(cfg.ESI.MaxBatch),
		affiliation.WithMetrics(affiliationmetrics.New(a.registry)),
		affiliation.WithLogger(a.logger),
	)

	scope, err := models.ParseCandidateFilter(cfg.Reconcile.Scope)
	if err != nil {
		return nil, err
	}
	reconcileMetrics := reconcilemetrics.New(a.registry)
	engineOpts := []reconcile.Option{
		reconcile.WithScope(scope),
		reconcile.WithConvergeAttempts(cfg.Reconcile.ConvergeAttempts),
		reconcile.WithProbeConcurrency(cfg.Reconcile.ProbeConcurrency),
		reconcile.WithNotifyOnRepair(cfg.Reconcile.NotifyOnRepair),
		reconcile.WithAuditPublisher(a.audit),
		reconcile.WithMetrics(reconcileMetrics),
		reconcile.WithLogger(a.logger),
	}

	a.redis, err = platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if a.redis != nil {
		a.closers = append(a.closers, a.redis.Close)
		engineOpts = append(engineOpts,
			reconcile.WithPassLock(platformredis.NewLock(a.redis, passLockKey, cfg.Reconcile.LockTTL)))
	}
	a.engine = reconcile.NewEngine(source, a.store, a.gateway, a.ruleset, engineOpts...)

	a.worker = reconcile.NewWorker(a.engine,
		reconcile.WithSweepBeforePass(cfg.Reconcile.SweepPresence),
		reconcile.WithWorkerMetrics(reconcileMetrics),
		reconcile.WithWorkerLogger(a.logger),
	)

	a.linking = linking.New(a.store, linkTokenService(cfg.Auth), a.gateway, a.ruleset,
		linking.WithTokenTTL(cfg.Auth.LinkTokenTTL),
		linking.WithJoinSubmitter(a.worker),
		linking.WithAuditPublisher(a.audit),
		linking.WithMetrics(a.metrics),
		linking.WithLogger(a.logger),
	)
	return a, nil
}

// openStores opens the identity store and returns the audit store that
// lives next to it.
func (a *app) openStores(ctx context.Context) (audit.Store, error) {
	switch a.cfg.Store.Driver {
	case "postgres":
		db, err := database.OpenPostgres(ctx, a.cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)

		identities := store.NewPostgres(db)
		if err := identities.Migrate(ctx); err != nil {
			return nil, err
		}
		events := auditpostgres.New(db)
		if err := events.Migrate(ctx); err != nil {
			return nil, err
		}
		a.store = identities
		return events, nil

	case "sqlite":
		gdb, err := database.OpenSQLite(a.cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		a.closers = append(a.closers, sqlDB.Close)

		identities := store.NewGorm(gdb)
		if err := identities.Migrate(ctx); err != nil {
			return nil, err
		}
		a.store = identities
		return auditmemory.NewInMemoryStore(), nil

	default:
		a.logger.Warn("using the in-memory identity store; links are lost on restart")
		a.store = store.NewInMemory()
		return auditmemory.NewInMemoryStore(), nil
	}
}

// openAudit builds the asynchronous audit publisher, fanning out to the
// kafka topic when brokers are configured.
func (a *app) openAudit(ctx context.Context, primary audit.Store) error {
	var sinks []audit.Sink
	if len(a.cfg.Kafka.Brokers) > 0 {
		p, err := producer.New(a.cfg.Kafka.Brokers, a.cfg.Kafka.AuditTopic)
		if err != nil {
			return err
		}
		a.producer = p
		a.closers = append(a.closers, func() error { p.Close(); return nil })
		if err := p.EnsureTopic(ctx, 1, 1); err != nil {
			return err
		}
		sinks = append(sinks, auditkafka.NewSink(p))
	}
	a.audit = publisher.NewPublisher(primary,
		publisher.WithAsyncBuffer(1024),
		publisher.WithSinks(sinks...),
		publisher.WithLogger(a.logger),
	)
	return nil
}

// claimGuard counts rejected claims in Redis when it is configured, so every
// instance enforces the same limit.
func (a *app) claimGuard() (*authlockout.Service, error) {
	var store authlockout.Store = bucket.NewInMemoryBucketStore()
	if a.redis != nil {
		store = bucket.NewRedisBucketStore(a.redis, "corpauth:ratelimit:")
	}
	return authlockout.New(store,
		authlockout.WithLimit(a.cfg.RateLimit.ClaimAttempts, a.cfg.RateLimit.ClaimWindow),
		authlockout.WithAuditPublisher(a.audit),
		authlockout.WithMetrics(a.metrics),
		authlockout.WithLogger(a.logger),
	)
}

func rulesetFromConfig(cfg config.Roles) (policy.Ruleset, error) {
	rules := make([]policy.Rule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		rules = append(rules, policy.Rule{
			CorporationID: id.CorporationID(r.CorporationID),
			RoleName:      r.RoleName,
		})
	}
	return policy.NewRuleset(cfg.BaseRole, rules)
}

// Close releases everything in reverse order of opening. The audit
// publisher is drained first so buffered events reach the stores.
func (a *app) Close() {
	if a.audit != nil {
		a.audit.Close()
	}
	if a.session != nil {
		_ = a.session.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}

// deniedAuditor records rejected admin requests as security events.
type deniedAuditor struct {
	audit *publisher.Publisher
}

func (d deniedAuditor) AdminAccessDenied(ctx context.Context, reason string) {
	_ = d.audit.Emit(ctx, audit.Event{
		Action:    string(audit.EventAdminAccessDenied),
		Decision:  "denied",
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
}
