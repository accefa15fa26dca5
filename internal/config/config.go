// Package config loads and validates the control plane's configuration.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root configuration struct, parsed from a YAML file named
// by the CONFIG_PATH environment variable.
type Config struct {
	Env        string `yaml:"env"`
	HTTPServer `yaml:"http_server"`
	Postgres   `yaml:"postgres"`
	Redis      `yaml:"redis"`
	Bearer     `yaml:"bearer"`
	Payment    `yaml:"payment"`
	Engine     `yaml:"engine"`
	RateLimit  `yaml:"rate_limit"`
	RabbitMQ   `yaml:"rabbitmq"`
}

// RabbitMQ configures the post-commit side-effect fan-out queue consumed by
// cmd/sidefx-worker.
type RabbitMQ struct {
	URL        string        `yaml:"url"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// HTTPServer configures the API listener and cross-cutting request limits.
type HTTPServer struct {
	Address        string        `yaml:"address"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	FrontendOrigin string        `yaml:"frontend_origin"`
}

// Postgres configures the persistence gateway.
type Postgres struct {
	ConnectionString   string        `yaml:"connection_string"`
	MaxOpenConns       int           `yaml:"max_open_conns"`
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`
	MigrationsPath     string        `yaml:"migrations_path"`
}

// Redis configures the entitlement cache.
type Redis struct {
	Address     string        `yaml:"address"`
	Password    string        `yaml:"password"`
	User        string        `yaml:"user"`
	DB          int           `yaml:"db"`
	MaxRetries  int           `yaml:"max_retries"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Bearer configures bearer-token issuance and password hashing.
type Bearer struct {
	SecretKey string        `yaml:"secret_key"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	HashCost  int           `yaml:"hash_cost"`
}

// Payment configures the external payment provider integration.
type Payment struct {
	APIURL         string   `yaml:"api_url"`
	KeyID          string   `yaml:"key_id"`
	Secret         string   `yaml:"secret"`
	WebhookSecret  string   `yaml:"webhook_secret"`
	PlanIDs        []string `yaml:"plan_ids"`
	CheckoutAmount int64    `yaml:"checkout_amount_minor_units"`
	Currency       string   `yaml:"currency"`
}

// Engine configures the container engine adapter.
type Engine struct {
	Host                 string        `yaml:"host"`
	NetworkName          string        `yaml:"network_name"`
	ImageRef             string        `yaml:"image_ref"`
	DefaultCPUQuota      float64       `yaml:"default_cpu_quota"`
	MaxCPUQuota          float64       `yaml:"max_cpu_quota"`
	DefaultMemoryBytes   int64         `yaml:"default_memory_bytes"`
	MinMemoryBytes       int64         `yaml:"min_memory_bytes"`
	MaxMemoryBytes       int64         `yaml:"max_memory_bytes"`
	StopGraceTimeout     time.Duration `yaml:"stop_grace_timeout"`
	MaxWorkspacesPerUser int           `yaml:"max_workspaces_per_user"`
	WorkspacePort        int           `yaml:"workspace_port"`
}

// RateLimit configures the per-route-group request rate limits of §4.8.
type RateLimit struct {
	AuthPerWindow      int           `yaml:"auth_per_window"`
	AuthWindow         time.Duration `yaml:"auth_window"`
	APIPerWindow       int           `yaml:"api_per_window"`
	APIWindow          time.Duration `yaml:"api_window"`
	LifecyclePerWindow int           `yaml:"lifecycle_per_window"`
	LifecycleWindow    time.Duration `yaml:"lifecycle_window"`
}

// MustLoad reads the config file named by CONFIG_PATH, or terminates the
// process via log.Fatal if it cannot be found or parsed.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 20
	}
	if c.SlowQueryThreshold == 0 {
		c.SlowQueryThreshold = time.Second
	}
	if c.MigrationsPath == "" {
		c.MigrationsPath = "./migrations"
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 24 * time.Hour
	}
	if c.HashCost == 0 {
		c.HashCost = 10
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = 1 << 20
	}
	if c.NetworkName == "" {
		c.NetworkName = "workspaces-internal"
	}
	if c.DefaultCPUQuota == 0 {
		c.DefaultCPUQuota = 1
	}
	if c.MaxCPUQuota == 0 {
		c.MaxCPUQuota = 8
	}
	if c.DefaultMemoryBytes == 0 {
		c.DefaultMemoryBytes = 512 << 20
	}
	if c.MinMemoryBytes == 0 {
		c.MinMemoryBytes = 128 << 20
	}
	if c.MaxMemoryBytes == 0 {
		c.MaxMemoryBytes = 8 << 30
	}
	if c.StopGraceTimeout == 0 {
		c.StopGraceTimeout = 30 * time.Second
	}
	if c.MaxWorkspacesPerUser == 0 {
		c.MaxWorkspacesPerUser = 3
	}
	if c.WorkspacePort == 0 {
		c.WorkspacePort = 8080
	}
	if c.AuthPerWindow == 0 {
		c.AuthPerWindow = 5
	}
	if c.AuthWindow == 0 {
		c.AuthWindow = 15 * time.Minute
	}
	if c.APIPerWindow == 0 {
		c.APIPerWindow = 100
	}
	if c.APIWindow == 0 {
		c.APIWindow = 15 * time.Minute
	}
	if c.LifecyclePerWindow == 0 {
		c.LifecyclePerWindow = 10
	}
	if c.LifecycleWindow == 0 {
		c.LifecycleWindow = 5 * time.Minute
	}
	if c.RabbitMQ.MaxRetries == 0 {
		c.RabbitMQ.MaxRetries = 5
	}
	if c.RabbitMQ.RetryDelay == 0 {
		c.RabbitMQ.RetryDelay = 3 * time.Second
	}
	if c.Payment.Currency == "" {
		c.Payment.Currency = "usd"
	}
}

// String renders the config for startup logging. Secrets are replaced with
// a sentinel; this is a second line of defense alongside the redacting log
// handler, since this value may be printed before a logger is constructed.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\nHTTPServer.Address: %s\nPostgres.ConnectionString: [REDACTED]\n"+
			"Redis.Address: %s\nBearer.TokenTTL: %s\nEngine.NetworkName: %s\nEngine.ImageRef: %s\n",
		c.Env, c.HTTPServer.Address, c.Redis.Address, c.TokenTTL, c.NetworkName, c.ImageRef,
	)
}
