package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"chattrix/pkg/config"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

type Config struct {
	Server       config.ServerConfig `yaml:"server"`
	DB           config.DBConfig     `yaml:"db"`
	Store        StoreConfig         `yaml:"store"`
	Redis        config.RedisConfig  `yaml:"redis"`
	MQ           config.MQConfig     `yaml:"mq"`
	JWT          config.JWTConfig    `yaml:"jwt"`
	Log          LogConfig           `yaml:"log"`
	Notification NotificationConfig  `yaml:"notification"`
	Realtime     RealtimeConfig      `yaml:"realtime"`
}

type StoreConfig struct {
	Driver     string `yaml:"driver"` // postgres / sqlite
	SQLitePath string `yaml:"sqlite_path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type NotificationConfig struct {
	ListLimit        int            `yaml:"list_limit"`
	EnforceOwnership bool           `yaml:"enforce_ownership"`
	Consumer         ConsumerConfig `yaml:"consumer"`
}

// ConsumerConfig 控制 notification.requested 消费者
type ConsumerConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Queue           string `yaml:"queue"`
	RoutingKey      string `yaml:"routing_key"`
	MaxRetries      int    `yaml:"max_retries"`
	DedupTTLSeconds int    `yaml:"dedup_ttl_seconds"`
}

type RealtimeConfig struct {
	SendBuffer   int           `yaml:"send_buffer"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PingInterval time.Duration `yaml:"ping_interval"`
}

// Load 使用统一配置中心加载配置，失败时直接退出
func Load() *Config {
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")

	cfg, err := LoadFrom(env, configDir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// LoadFrom merges base.yaml, <env>.yaml and secrets.env from configDir,
// then applies environment overrides.
func LoadFrom(env, configDir string) (*Config, error) {
	cfgMap, err := config.LoadConfig(env, configDir)
	if err != nil {
		return nil, err
	}

	cfg := defaults()
	if err := config.Decode(cfgMap, cfg); err != nil {
		return nil, err
	}

	// 环境变量覆盖（优先级最高）
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideJWTFromEnv(&cfg.JWT)
	overrideServiceFromEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: config.ServerConfig{Port: ":8080"},
		Store:  StoreConfig{Driver: StoreDriverPostgres, SQLitePath: "chattrix.db"},
		Log:    LogConfig{Level: "info"},
		Notification: NotificationConfig{
			ListLimit:        50,
			EnforceOwnership: true,
			Consumer: ConsumerConfig{
				Enabled:         true,
				Queue:           "notification.requested.q",
				RoutingKey:      "notification.requested",
				MaxRetries:      5,
				DedupTTLSeconds: 86400,
			},
		},
		Realtime: RealtimeConfig{
			SendBuffer:   16,
			WriteTimeout: 10 * time.Second,
			PingInterval: 30 * time.Second,
		},
	}
}

func overrideServiceFromEnv(cfg *Config) {
	if driver := os.Getenv("STORE_DRIVER"); driver != "" {
		cfg.Store.Driver = driver
	}
	if path := os.Getenv("SQLITE_PATH"); path != "" {
		cfg.Store.SQLitePath = path
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if v := os.Getenv("NOTIFICATION_ENFORCE_OWNERSHIP"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Notification.EnforceOwnership = b
		}
	}
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverSQLite:
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.Notification.ListLimit <= 0 {
		return fmt.Errorf("notification.list_limit must be positive, got %d", c.Notification.ListLimit)
	}
	return nil
}
