package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const minReleaseSecretLen = 32

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	OTP       OTPConfig       `mapstructure:"otp"`
	SMS       SMSConfig       `mapstructure:"sms"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

// StorageConfig selects the backing store. "memory" keeps everything in
// process and needs neither PostgreSQL nor Redis.
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // postgres, memory
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection URL with credentials escaped.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

type LedgerConfig struct {
	Currency string `mapstructure:"currency"`
}

// OTPConfig controls payment request confirmation.
type OTPConfig struct {
	TTL         time.Duration `mapstructure:"ttl"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// SMSConfig holds the OTP gateway credentials. Provider "log" writes codes
// to the application log instead of sending them.
type SMSConfig struct {
	Provider string        `mapstructure:"provider"` // payamak, log
	Endpoint string        `mapstructure:"endpoint"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	BodyID   string        `mapstructure:"body_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Validate reports missing credentials for the payamak provider.
func (s SMSConfig) Validate() error {
	if s.Provider != "payamak" {
		return nil
	}
	if s.Username == "" || s.Password == "" || s.BodyID == "" {
		return errors.New("sms: username, password and body_id are required")
	}
	return nil
}

type RateLimitConfig struct {
	PaymentRequests int64         `mapstructure:"payment_requests"`
	Window          time.Duration `mapstructure:"window"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CWL_ (Company Wallet Ledger).
// Nested keys use underscore: CWL_DATABASE_HOST, CWL_SMS_USERNAME, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "company_wallet")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "company-wallet")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("ledger.currency", "IRR")
	v.SetDefault("otp.ttl", "5m")
	v.SetDefault("otp.max_attempts", 5)
	v.SetDefault("sms.provider", "log")
	v.SetDefault("sms.endpoint", "https://rest.payamak-panel.com/api/SendSMS/BaseServiceNumber")
	v.SetDefault("sms.timeout", "10s")
	v.SetDefault("ratelimit.payment_requests", 30)
	v.SetDefault("ratelimit.window", "1m")

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: CWL_DATABASE_HOST -> database.host
	v.SetEnvPrefix("CWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("storage: unknown driver %q", c.Storage.Driver)
	}
	if c.OTP.TTL <= 0 || c.OTP.MaxAttempts < 1 {
		return errors.New("otp: ttl and max_attempts must be positive")
	}
	if c.Server.Mode == "release" && len(c.JWT.Secret) < minReleaseSecretLen {
		return fmt.Errorf("jwt: secret must be at least %d bytes in release mode", minReleaseSecretLen)
	}
	return c.SMS.Validate()
}
