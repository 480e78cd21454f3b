package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Storage     string            `yaml:"storage"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Ledger      LedgerConfig      `yaml:"ledger"`
	Reservation ReservationConfig `yaml:"reservation"`
	Log         LogConfig         `yaml:"log"`
}

type HTTPConfig struct {
	Address    string `yaml:"address"`
	SwaggerDir string `yaml:"swagger_dir"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr            string `yaml:"addr"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	FlightsCacheTTL int    `yaml:"flights_cache_ttl_seconds"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	ReservationsTopic  string   `yaml:"reservations_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

// LedgerConfig points at the ledger service. SelfPrincipal is the identity
// whose account receives payments and pays out refunds.
type LedgerConfig struct {
	Address       string `yaml:"address"`
	SelfPrincipal string `yaml:"self_principal"`
	CallTimeout   int    `yaml:"call_timeout_seconds"`
}

// ReservationConfig carries the process-wide reservation fee. A nil FeeE8s
// means the fee was never set.
type ReservationConfig struct {
	FeeE8s               *uint64 `yaml:"fee_e8s"`
	PaymentWindowSeconds int     `yaml:"payment_window_seconds"`
	HoldDurationSeconds  int     `yaml:"hold_duration_seconds"`
}

func (r ReservationConfig) PaymentWindow() time.Duration {
	return time.Duration(r.PaymentWindowSeconds) * time.Second
}

func (r ReservationConfig) HoldDuration() time.Duration {
	return time.Duration(r.HoldDurationSeconds) * time.Second
}

type LogConfig struct {
	Dir   string `yaml:"dir"`
	Debug bool   `yaml:"debug"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return Parse(data)
}

// Parse decodes a YAML document and fills in defaults for the reservation
// timings and storage backend.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Storage == "" {
		cfg.Storage = StorageMemory
	}
	if cfg.Storage != StorageMemory && cfg.Storage != StoragePostgres {
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
	if cfg.Reservation.PaymentWindowSeconds <= 0 {
		cfg.Reservation.PaymentWindowSeconds = 120
	}
	if cfg.Reservation.HoldDurationSeconds <= 0 {
		cfg.Reservation.HoldDurationSeconds = 60
	}
	if cfg.Ledger.CallTimeout <= 0 {
		cfg.Ledger.CallTimeout = 10
	}
	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = ":8080"
	}

	return &cfg, nil
}
