package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/turtacn/advisorhub/pkg/constants"
)

// EnvPrefix is the prefix for environment overrides, e.g. ADVISORHUB_JWT_SECRET.
const EnvPrefix = "ADVISORHUB"

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.grpc_port", 9090)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "advisorhub")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "advisorhub")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.max_conn_idle_time", 10*time.Minute)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.path", "advisorhub.db")

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.key_prefix", "advisorhub:")

	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "http://localhost:8200")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.mount_path", "secret")
	v.SetDefault("vault.secret_path", "advisorhub")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "advisorhub")
	v.SetDefault("jwt.access_token_ttl", constants.AccessTokenDefaultTTL)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.limit", 120)
	v.SetDefault("rate_limit.window", time.Minute)

	v.SetDefault("idempotency.enabled", true)
	v.SetDefault("idempotency.ttl", 24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("tracing.service_name", "advisorhub")
	v.SetDefault("tracing.sampling_rate", 1.0)

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.timeout", 90*time.Second)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.max_concurrency", 4)

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local_root", "./data/documents")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")
	v.SetDefault("storage.s3.use_path_style", false)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.audit_topic", "advisorhub.audit")

	v.SetDefault("scoring.red_below", constants.DefaultRedBelow)
	v.SetDefault("scoring.amber_below", constants.DefaultAmberBelow)
	v.SetDefault("scoring.capacity_warn_ratio", constants.DefaultCapacityWarnRatio)

	v.SetDefault("upload.max_bytes", constants.DefaultMaxUploadBytes)

	v.SetDefault("audit.signing_key", "")
}

// LoadConfig loads the configuration from file and environment variables.
// An empty configFile searches /etc/advisorhub/ and the working directory for config.yaml.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/advisorhub/")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.viper = v

	return &cfg, nil
}

// Watch re-reads the config file on change and passes the fresh values to onChange.
// Invalid reloads are dropped. It is a no-op when no file was loaded.
func (c *Config) Watch(onChange func(*Config)) {
	if c.viper == nil || c.viper.ConfigFileUsed() == "" {
		return
	}
	c.viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		var fresh Config
		if err := c.viper.Unmarshal(&fresh); err != nil {
			return
		}
		onChange(&fresh)
	})
	c.viper.WatchConfig()
}
