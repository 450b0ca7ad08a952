package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Earnings  EarningsConfig  `yaml:"earnings"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	JWT       JWTConfig       `yaml:"jwt"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
}

type DatabaseConfig struct {
	Host            string `yaml:"host"`
	Port            string `yaml:"port"`
	User            string `yaml:"user"`
	DBName          string `yaml:"name"`
	Password        string `yaml:"password"`
	SSLMode         string `yaml:"ssl_mode"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
}

// GatewayConfig holds the Clypt provider credentials. Loaded once at startup;
// the Clypt client owns the live copy and supports explicit reload through
// UpdateCredentials.
type GatewayConfig struct {
	BaseURL     string        `yaml:"base_url"`
	PublicKey   string        `yaml:"public_key"`
	SecretKey   string        `yaml:"secret_key"`
	WithdrawKey string        `yaml:"withdraw_key"`
	PostbackURL string        `yaml:"postback_url"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

type EarningsConfig struct {
	Interval  time.Duration `yaml:"interval"`
	RunOnBoot bool          `yaml:"run_on_boot"`
}

type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size"`
	CheckOrigin     bool          `yaml:"check_origin"`
	PingPeriod      time.Duration `yaml:"ping_period"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

func Load() (*Config, error) {
	// .env is optional outside local development
	_ = godotenv.Load()

	var config Config
	configData, err := os.ReadFile("./config.yaml")
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(configData, &config); err != nil {
		return nil, err
	}

	if v := os.Getenv("CLYPT_PUBLIC_KEY"); v != "" {
		config.Gateway.PublicKey = v
	}
	if v := os.Getenv("CLYPT_SECRET_KEY"); v != "" {
		config.Gateway.SecretKey = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		config.JWT.Secret = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		config.Database.Password = v
	}

	if config.Gateway.Timeout == 0 {
		config.Gateway.Timeout = 30 * time.Second
	}
	if config.Earnings.Interval == 0 {
		config.Earnings.Interval = 24 * time.Hour
	}

	return &config, nil
}
