package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	platformstrings "archgate/pkg/platform/strings"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Audit store backends.
const (
	AuditStoreMemory   = "memory"
	AuditStorePostgres = "postgres"
	AuditStoreKafka    = "kafka"
)

// Decision cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config is the complete service configuration.
type Config struct {
	Env      string
	Server   Server
	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Access   AccessConfig
	Audit    AuditConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	JWTSigningKey   string
	JWTIssuer       string
	JWTAudience     string
	AdminToken      string
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers           []string
	AuditTopic        string
	Partitions        int32
	ReplicationFactor int16
}

// AccessConfig tunes the policy evaluator.
type AccessConfig struct {
	SourceTimeout      time.Duration
	DecisionCache      string
	DecisionCacheTTL   time.Duration
	DecisionCacheSize  int
	ClearanceTTL       time.Duration
	ClearanceCacheSize int
	AdminBypassEmbargo bool
	Timezone           string
	MappingFile        string
	ArtifactRoot       string
	BreakerFailures    int
	BreakerCooldown    time.Duration
}

type AuditConfig struct {
	Store         string
	Shards        int
	ShardBuffer   int
	RetryCapacity int
	RetryInterval time.Duration
	WriteTimeout  time.Duration
}

// Location resolves the evaluation time zone.
func (a AccessConfig) Location() (*time.Location, error) {
	if a.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", a.Timezone, err)
	}
	return loc, nil
}

// Load reads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Env: v.GetString("ENV"),
		Server: Server{
			Addr:            v.GetString("ARCHGATE_ADDR"),
			JWTSigningKey:   v.GetString("JWT_SIGNING_KEY"),
			JWTIssuer:       v.GetString("JWT_ISSUER"),
			JWTAudience:     v.GetString("JWT_AUDIENCE"),
			AdminToken:      v.GetString("ADMIN_TOKEN"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("DATABASE_URL"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("REDIS_URL"),
			PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns: v.GetInt("REDIS_MIN_IDLE_CONNS"),
			DialTimeout:  v.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  v.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("REDIS_WRITE_TIMEOUT"),
		},
		Kafka: KafkaConfig{
			Brokers:           platformstrings.SplitList(v.GetString("KAFKA_BROKERS")),
			AuditTopic:        v.GetString("KAFKA_AUDIT_TOPIC"),
			Partitions:        v.GetInt32("KAFKA_AUDIT_PARTITIONS"),
			ReplicationFactor: int16(v.GetInt("KAFKA_AUDIT_REPLICATION")),
		},
		Access: AccessConfig{
			SourceTimeout:      v.GetDuration("ACCESS_SOURCE_TIMEOUT"),
			DecisionCache:      strings.ToLower(v.GetString("ACCESS_DECISION_CACHE")),
			DecisionCacheTTL:   v.GetDuration("ACCESS_DECISION_CACHE_TTL"),
			DecisionCacheSize:  v.GetInt("ACCESS_DECISION_CACHE_SIZE"),
			ClearanceTTL:       v.GetDuration("ACCESS_CLEARANCE_TTL"),
			ClearanceCacheSize: v.GetInt("ACCESS_CLEARANCE_CACHE_SIZE"),
			AdminBypassEmbargo: v.GetBool("ACCESS_ADMIN_BYPASS_EMBARGO"),
			Timezone:           v.GetString("ACCESS_TIMEZONE"),
			MappingFile:        v.GetString("ACCESS_CLEARANCE_MAPPING_FILE"),
			ArtifactRoot:       v.GetString("ACCESS_REDACTED_ARTIFACT_ROOT"),
			BreakerFailures:    v.GetInt("ACCESS_BREAKER_FAILURES"),
			BreakerCooldown:    v.GetDuration("ACCESS_BREAKER_COOLDOWN"),
		},
		Audit: AuditConfig{
			Store:         strings.ToLower(v.GetString("AUDIT_STORE")),
			Shards:        v.GetInt("AUDIT_SHARDS"),
			ShardBuffer:   v.GetInt("AUDIT_SHARD_BUFFER"),
			RetryCapacity: v.GetInt("AUDIT_RETRY_CAPACITY"),
			RetryInterval: v.GetDuration("AUDIT_RETRY_INTERVAL"),
			WriteTimeout:  v.GetDuration("AUDIT_WRITE_TIMEOUT"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Audit.Store {
	case AuditStoreMemory:
		if c.Env == EnvProduction {
			return errors.New("AUDIT_STORE=memory is not allowed in production")
		}
	case AuditStorePostgres:
		if c.Database.URL == "" {
			return errors.New("AUDIT_STORE=postgres requires DATABASE_URL")
		}
	case AuditStoreKafka:
		if len(c.Kafka.Brokers) == 0 {
			return errors.New("AUDIT_STORE=kafka requires KAFKA_BROKERS")
		}
	default:
		return fmt.Errorf("unknown AUDIT_STORE %q", c.Audit.Store)
	}

	switch c.Access.DecisionCache {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if c.Redis.URL == "" {
			return errors.New("ACCESS_DECISION_CACHE=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown ACCESS_DECISION_CACHE %q", c.Access.DecisionCache)
	}

	if c.Audit.RetryInterval <= 0 {
		return fmt.Errorf("AUDIT_RETRY_INTERVAL must be positive, got %s", c.Audit.RetryInterval)
	}

	if c.Env == EnvProduction {
		if c.Server.JWTSigningKey == defaultJWTKey {
			return errors.New("JWT_SIGNING_KEY must be set in production")
		}
		if c.Database.URL == "" {
			return errors.New("DATABASE_URL must be set in production")
		}
		if c.Access.MappingFile == "" {
			return errors.New("ACCESS_CLEARANCE_MAPPING_FILE must be set in production")
		}
	}
	if _, err := c.Access.Location(); err != nil {
		return err
	}
	return nil
}

const defaultJWTKey = "dev-secret-key-change-in-production"

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("ARCHGATE_ADDR", ":8080")
	v.SetDefault("JWT_SIGNING_KEY", defaultJWTKey)
	v.SetDefault("JWT_ISSUER", "archive-portal")
	v.SetDefault("JWT_AUDIENCE", "archgate")
	v.SetDefault("ADMIN_TOKEN", "")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 2)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	v.SetDefault("REDIS_READ_TIMEOUT", "3s")
	v.SetDefault("REDIS_WRITE_TIMEOUT", "3s")

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_AUDIT_TOPIC", "archgate.access-audit")
	v.SetDefault("KAFKA_AUDIT_PARTITIONS", 12)
	v.SetDefault("KAFKA_AUDIT_REPLICATION", 3)

	v.SetDefault("ACCESS_SOURCE_TIMEOUT", "2s")
	v.SetDefault("ACCESS_DECISION_CACHE", CacheMemory)
	v.SetDefault("ACCESS_DECISION_CACHE_TTL", "5s")
	v.SetDefault("ACCESS_DECISION_CACHE_SIZE", 10000)
	v.SetDefault("ACCESS_CLEARANCE_TTL", "30s")
	v.SetDefault("ACCESS_CLEARANCE_CACHE_SIZE", 4096)
	v.SetDefault("ACCESS_ADMIN_BYPASS_EMBARGO", true)
	v.SetDefault("ACCESS_TIMEZONE", "UTC")
	v.SetDefault("ACCESS_CLEARANCE_MAPPING_FILE", "")
	v.SetDefault("ACCESS_REDACTED_ARTIFACT_ROOT", "")
	v.SetDefault("ACCESS_BREAKER_FAILURES", 5)
	v.SetDefault("ACCESS_BREAKER_COOLDOWN", "10s")

	v.SetDefault("AUDIT_STORE", AuditStoreMemory)
	v.SetDefault("AUDIT_SHARDS", 4)
	v.SetDefault("AUDIT_SHARD_BUFFER", 256)
	v.SetDefault("AUDIT_RETRY_CAPACITY", 1024)
	v.SetDefault("AUDIT_RETRY_INTERVAL", "5s")
	v.SetDefault("AUDIT_WRITE_TIMEOUT", "5s")
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
