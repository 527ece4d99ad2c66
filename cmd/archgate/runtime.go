package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/twmb/franz-go/pkg/kgo"

	"archgate/internal/access"
	"archgate/internal/access/cache"
	accessmetrics "archgate/internal/access/metrics"
	"archgate/internal/access/ports"
	"archgate/internal/clearance"
	clearancestore "archgate/internal/clearance/store"
	"archgate/internal/platform/config"
	"archgate/internal/platform/httpserver"
	"archgate/internal/platform/logger"
	"archgate/internal/platform/postgres"
	platformredis "archgate/internal/platform/redis"
	"archgate/internal/redaction"
	"archgate/internal/restriction"
	restrictionstore "archgate/internal/restriction/store"
	audit "archgate/pkg/platform/audit"
	"archgate/pkg/platform/audit/recorder"
	auditkafka "archgate/pkg/platform/audit/store/kafka"
	auditmemory "archgate/pkg/platform/audit/store/memory"
	auditpostgres "archgate/pkg/platform/audit/store/postgres"
	"archgate/pkg/platform/circuit"
)

// runtime owns every long-lived dependency of one process.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry

	db    *sql.DB
	redis *platformredis.Client
	kafka *kgo.Client

	recorder *recorder.Recorder
	resolver *clearance.Resolver
	service  *access.Service
}

func buildRuntime(ctx context.Context, cfg *config.Config, log *slog.Logger) (*runtime, error) {
	rt := &runtime{
		cfg:      cfg,
		logger:   log,
		registry: prometheus.NewRegistry(),
	}
	rt.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	built := false
	defer func() {
		if !built {
			rt.close(context.WithoutCancel(ctx))
		}
	}()

	loc, err := cfg.Access.Location()
	if err != nil {
		return nil, err
	}

	if cfg.Database.URL != "" {
		if rt.db, err = postgres.Open(ctx, cfg.Database); err != nil {
			return nil, err
		}
	}

	readers, versions := rt.restrictionReaders(ctx, loc)

	if rt.resolver, err = rt.clearanceResolver(ctx); err != nil {
		return nil, err
	}

	store, err := rt.auditStore(ctx)
	if err != nil {
		return nil, err
	}
	rt.recorder, err = recorder.New(store,
		recorder.WithLogger(log),
		recorder.WithMetrics(recorder.NewMetrics(rt.registry)),
		recorder.WithAsyncShards(cfg.Audit.Shards, cfg.Audit.ShardBuffer),
		recorder.WithRetryCapacity(cfg.Audit.RetryCapacity),
		recorder.WithWriteTimeout(cfg.Audit.WriteTimeout),
	)
	if err != nil {
		return nil, err
	}

	opts := []access.Option{
		access.WithLogger(log),
		access.WithMetrics(accessmetrics.New(rt.registry)),
		access.WithResolver(rt.resolver),
		access.WithSourceTimeout(cfg.Access.SourceTimeout),
		access.WithPolicy(access.Policy{AdminBypassEmbargo: cfg.Access.AdminBypassEmbargo}),
		access.WithLocation(loc),
	}
	decisionCache, err := rt.decisionCache(ctx)
	if err != nil {
		return nil, err
	}
	if decisionCache != nil {
		opts = append(opts, access.WithDecisionCache(decisionCache, versions, cfg.Access.DecisionCacheTTL))
	}
	if cfg.Access.ArtifactRoot != "" {
		gen, err := redaction.New(readers.Redaction, cfg.Access.ArtifactRoot, redaction.WithLogger(log))
		if err != nil {
			return nil, err
		}
		opts = append(opts, access.WithRedactionGenerator(gen))
	}

	if rt.service, err = access.New(readers, rt.recorder, opts...); err != nil {
		return nil, err
	}
	built = true
	return rt, nil
}

func (rt *runtime) restrictionReaders(ctx context.Context, loc *time.Location) (restriction.Readers, ports.VersionReader) {
	if rt.db == nil {
		rt.logger.WarnContext(ctx, "no DATABASE_URL configured, restriction sources are empty")
		mem := restrictionstore.NewInMemoryStore()
		return mem.Readers(), mem
	}
	pg := restrictionstore.NewPostgres(rt.db, loc)
	readers := restriction.GuardAll(pg.Readers(), func(kind restriction.Kind) *circuit.Breaker {
		return circuit.New("restriction-"+string(kind),
			circuit.WithFailureThreshold(rt.cfg.Access.BreakerFailures),
			circuit.WithCooldown(rt.cfg.Access.BreakerCooldown),
		)
	}, rt.logger)
	return readers, pg
}

func (rt *runtime) clearanceResolver(ctx context.Context) (*clearance.Resolver, error) {
	table := clearance.NewMappingTable("unconfigured", nil)
	if rt.cfg.Access.MappingFile != "" {
		loaded, err := clearance.LoadMappingTable(rt.cfg.Access.MappingFile)
		if err != nil {
			return nil, err
		}
		table = loaded
	} else {
		rt.logger.WarnContext(ctx, "no clearance mapping file configured, authenticated users get PUBLIC clearance")
	}

	var (
		groups    clearance.GroupStore
		overrides clearance.OverrideStore
	)
	if rt.db != nil {
		pg := clearancestore.NewPostgres(rt.db, clearancestore.WithLogger(rt.logger))
		groups, overrides = pg, pg
	} else {
		mem := clearancestore.NewInMemoryStore()
		groups, overrides = mem, mem
	}

	return clearance.NewResolver(groups, table,
		clearance.WithLogger(rt.logger),
		clearance.WithOverrideStore(overrides),
		clearance.WithTTL(rt.cfg.Access.ClearanceTTL),
		clearance.WithCacheSize(rt.cfg.Access.ClearanceCacheSize),
	)
}

func (rt *runtime) auditStore(ctx context.Context) (audit.Store, error) {
	switch rt.cfg.Audit.Store {
	case config.AuditStorePostgres:
		if rt.db == nil {
			return nil, errors.New("postgres audit store requires a database")
		}
		return auditpostgres.New(rt.db), nil
	case config.AuditStoreKafka:
		kcfg := rt.cfg.Kafka
		sink, client, err := auditkafka.Dial(kcfg.Brokers, kcfg.AuditTopic)
		if err != nil {
			return nil, err
		}
		rt.kafka = client
		if err := auditkafka.EnsureTopic(ctx, client, kcfg.AuditTopic, kcfg.Partitions, kcfg.ReplicationFactor); err != nil {
			// The topic may be provisioned out of band under a narrower ACL.
			rt.logger.WarnContext(ctx, "could not ensure audit topic", "topic", kcfg.AuditTopic, "error", err)
		}
		return sink, nil
	default:
		rt.logger.WarnContext(ctx, "audit entries are kept in memory only")
		return auditmemory.NewInMemoryStore(), nil
	}
}

func (rt *runtime) decisionCache(ctx context.Context) (ports.DecisionCache, error) {
	ac := rt.cfg.Access
	switch ac.DecisionCache {
	case config.CacheMemory:
		return cache.NewMemoryCache(ac.DecisionCacheSize, ac.DecisionCacheTTL), nil
	case config.CacheRedis:
		client, err := platformredis.New(ctx, rt.cfg.Redis)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, errors.New("redis decision cache requires REDIS_URL")
		}
		rt.redis = client
		return cache.NewRedisCache(client.Client), nil
	default:
		return nil, nil
	}
}

// reloadMapping re-reads the mapping file and swaps it into the resolver.
func (rt *runtime) reloadMapping(_ context.Context) (string, error) {
	if rt.cfg.Access.MappingFile == "" {
		return "", errors.New("no clearance mapping file configured")
	}
	table, err := clearance.LoadMappingTable(rt.cfg.Access.MappingFile)
	if err != nil {
		return "", err
	}
	rt.resolver.SetMappingTable(table)
	return table.Version(), nil
}

func (rt *runtime) healthChecks() map[string]httpserver.HealthCheck {
	checks := make(map[string]httpserver.HealthCheck)
	if rt.db != nil {
		checks["postgres"] = rt.db.PingContext
	}
	if rt.redis != nil {
		checks["redis"] = rt.redis.Health
	}
	if rt.kafka != nil {
		checks["kafka"] = rt.kafka.Ping
	}
	return checks
}

// close flushes audit before releasing the stores it writes to.
func (rt *runtime) close(ctx context.Context) {
	if rt.recorder != nil {
		if err := rt.recorder.Close(ctx); err != nil {
			rt.logger.ErrorContext(ctx, "audit recorder close failed", "error", err)
		}
	}
	if rt.kafka != nil {
		rt.kafka.Close()
	}
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			rt.logger.WarnContext(ctx, "redis close failed", "error", err)
		}
	}
	if rt.db != nil {
		if err := rt.db.Close(); err != nil {
			rt.logger.WarnContext(ctx, "postgres close failed", "error", err)
		}
	}
}

// runtimeEnv is what every subcommand starts from.
type runtimeEnv struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRuntimeEnv(cfg *config.Config) runtimeEnv {
	return runtimeEnv{cfg: cfg, logger: logger.New(cfg.Log.Level, cfg.Log.Format)}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
