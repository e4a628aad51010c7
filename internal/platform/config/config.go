// Package config loads service configuration from defaults, an optional YAML
// file and DSNAP_-prefixed environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"dsnap/pkg/platform/validation"
)

// DevJWTSigningKey is the development default; it is rejected in production.
const DevJWTSigningKey = "dev-secret-key-change-in-production"

const EnvPrefix = "DSNAP"

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Registration RegistrationConfig `mapstructure:"registration"`
	Events       EventsConfig       `mapstructure:"events"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	Environment     string        `mapstructure:"environment" validate:"oneof=development test staging production"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	BodyLimitBytes  int64         `mapstructure:"body_limit_bytes" validate:"gt=0"`
	TrustedProxies  []string      `mapstructure:"trusted_proxies" validate:"dive,cidr|ip"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

// DatabaseConfig selects Postgres stores when URL is set; memory stores otherwise.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// RedisConfig enables the shared staff label cache when URL is set.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size" validate:"gte=1"`
	MinIdleConns int           `mapstructure:"min_idle_conns" validate:"gte=0"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" validate:"gt=0"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	LabelTTL     time.Duration `mapstructure:"label_ttl" validate:"gt=0"`
}

// KafkaConfig enables the Kafka event sink when Brokers is set.
type KafkaConfig struct {
	Brokers         string        `mapstructure:"brokers"`
	Topic           string        `mapstructure:"topic" validate:"required"`
	Acks            string        `mapstructure:"acks" validate:"oneof=0 1 all"`
	Retries         int           `mapstructure:"retries" validate:"gte=0"`
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout" validate:"gt=0"`
}

type AuthConfig struct {
	JWTSigningKey     string        `mapstructure:"jwt_signing_key" validate:"required,min=16"`
	Issuer            string        `mapstructure:"issuer" validate:"required"`
	Audience          string        `mapstructure:"audience" validate:"required"`
	TokenTTL          time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
	BootstrapUsername string        `mapstructure:"bootstrap_username"`
	BootstrapPassword string        `mapstructure:"bootstrap_password" validate:"required_with=BootstrapUsername"`
	// AdminToken enables the /admin staff endpoints when set.
	AdminToken string `mapstructure:"admin_token" validate:"omitempty,min=16"`
	// PasswordCost is the bcrypt cost for staff passwords.
	PasswordCost int `mapstructure:"password_cost" validate:"gte=4,lte=31"`
}

type RegistrationConfig struct {
	// SchemaVersion pins the active schema; empty selects the newest registered version.
	SchemaVersion string `mapstructure:"schema_version"`
}

type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size" validate:"gte=0"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.body_limit_bytes", int64(validation.MaxBodySize))
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("log.level", "info")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("redis.label_ttl", 10*time.Minute)

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "dsnap.registration-events")
	v.SetDefault("kafka.acks", "all")
	v.SetDefault("kafka.retries", 3)
	v.SetDefault("kafka.delivery_timeout", 30*time.Second)

	v.SetDefault("auth.jwt_signing_key", DevJWTSigningKey)
	v.SetDefault("auth.issuer", "dsnap")
	v.SetDefault("auth.audience", "dsnap-staff")
	v.SetDefault("auth.token_ttl", 15*time.Minute)
	v.SetDefault("auth.bootstrap_username", "")
	v.SetDefault("auth.bootstrap_password", "")
	v.SetDefault("auth.admin_token", "")
	v.SetDefault("auth.password_cost", 10)

	v.SetDefault("registration.schema_version", "")
	v.SetDefault("events.buffer_size", 1024)
	v.SetDefault("tracing.enabled", false)
}

// Load reads configuration. file may be empty.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints plus the production-only rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.IsProduction() && c.Auth.JWTSigningKey == DevJWTSigningKey {
		return errors.New("invalid config: auth.jwt_signing_key must be set in production")
	}
	return nil
}
