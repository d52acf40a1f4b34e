package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type ContractsConfig struct {
	Timezone    string
	BankAccount string
}

type LockConfig struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
	Wait          time.Duration
}

type WebhooksConfig struct {
	ActivationURL    string
	CancellationURL  string
	HandoverURL      string
	ReturnURL        string
	DepositRefundURL string
}

type SideEffectsConfig struct {
	FolderRenameURL string
	Timeout         time.Duration
	Webhooks        WebhooksConfig
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Contracts   ContractsConfig
	Lock        LockConfig
	SideEffects SideEffectsConfig
}

const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host:           v.GetString("HTTP_HOST"),
			Port:           v.GetInt("HTTP_PORT"),
			AllowedOrigins: parseList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Contracts: ContractsConfig{
			Timezone:    v.GetString("CONTRACTS_TIMEZONE"),
			BankAccount: strings.TrimSpace(v.GetString("CONTRACTS_BANK_ACCOUNT")),
		},
		Lock: LockConfig{
			Backend:       strings.ToLower(strings.TrimSpace(v.GetString("LOCK_BACKEND"))),
			RedisAddr:     v.GetString("REDIS_ADDR"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
			TTL:           v.GetDuration("LOCK_TTL"),
			Wait:          v.GetDuration("LOCK_WAIT"),
		},
		SideEffects: SideEffectsConfig{
			FolderRenameURL: v.GetString("FOLDERS_RENAME_URL"),
			Timeout:         v.GetDuration("SIDE_EFFECT_TIMEOUT"),
			Webhooks: WebhooksConfig{
				ActivationURL:    v.GetString("WEBHOOK_ACTIVATION_URL"),
				CancellationURL:  v.GetString("WEBHOOK_CANCELLATION_URL"),
				HandoverURL:      v.GetString("WEBHOOK_HANDOVER_URL"),
				ReturnURL:        v.GetString("WEBHOOK_RETURN_URL"),
				DepositRefundURL: v.GetString("WEBHOOK_DEPOSIT_REFUND_URL"),
			},
		},
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7091
	}
	if len(cfg.HTTP.AllowedOrigins) == 0 {
		cfg.HTTP.AllowedOrigins = []string{"*"}
	}
	if cfg.DB.MaxOpenConns == 0 {
		cfg.DB.MaxOpenConns = 20
	}
	if cfg.DB.MaxIdleConns == 0 {
		cfg.DB.MaxIdleConns = 5
	}
	if cfg.DB.ConnMaxLifetime == "" {
		cfg.DB.ConnMaxLifetime = "30m"
	}
	if cfg.Contracts.Timezone == "" {
		cfg.Contracts.Timezone = "Europe/Warsaw"
	}
	if cfg.Lock.Backend == "" {
		cfg.Lock.Backend = LockBackendMemory
	}
	if cfg.Lock.TTL == 0 {
		cfg.Lock.TTL = 10 * time.Second
	}
	if cfg.Lock.Wait == 0 {
		cfg.Lock.Wait = 5 * time.Second
	}
	if cfg.SideEffects.Timeout == 0 {
		cfg.SideEffects.Timeout = 10 * time.Second
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Location resolves the business timezone used for all date arithmetic.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Contracts.Timezone)
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Contracts.BankAccount == "" {
		return fmt.Errorf("CONTRACTS_BANK_ACCOUNT is required")
	}
	if _, err := cfg.Location(); err != nil {
		return fmt.Errorf("CONTRACTS_TIMEZONE is invalid: %w", err)
	}
	switch cfg.Lock.Backend {
	case LockBackendMemory:
	case LockBackendRedis:
		if cfg.Lock.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for LOCK_BACKEND=redis")
		}
	default:
		return fmt.Errorf("LOCK_BACKEND must be %q or %q", LockBackendMemory, LockBackendRedis)
	}
	return nil
}

func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
