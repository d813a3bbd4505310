package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Log       LogConfig       `mapstructure:"log"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	MongoDB   MongoDBConfig   `mapstructure:"mongodb"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// ResponseDelay holds back get, update and delete responses so clients
	// can show loading states. Zero disables it.
	ResponseDelay   time.Duration `mapstructure:"response_delay"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type StorageConfig struct {
	EventsFile   string `mapstructure:"events_file"`
	ProductsFile string `mapstructure:"products_file"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// RedisConfig enables cross-process write locks when Addr is set.
type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	PoolSize  int           `mapstructure:"pool_size"`
	LockTTL   time.Duration `mapstructure:"lock_ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// KafkaConfig enables change notifications when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// MongoDBConfig enables the audit trail when URI is set.
type MongoDBConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type TelemetryConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.response_delay", "0s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("storage.events_file", "data/events.json")
	v.SetDefault("storage.products_file", "data/products.json")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.lock_ttl", "10s")
	v.SetDefault("redis.key_prefix", "orgapp:lock:")
	v.SetDefault("kafka.topic", "order.changed")
	v.SetDefault("mongodb.database", "organization")
	v.SetDefault("mongodb.collection", "audit_logs")
	v.SetDefault("telemetry.service_name", "organization-app")
}

// Load reads configPath (YAML). An empty path uses defaults only.
// Environment variables prefixed with ORGAPP_ override file values,
// e.g. ORGAPP_SERVER_PORT=8080.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ORGAPP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if config.Server.Port <= 0 {
		return nil, fmt.Errorf("invalid server.port %d", config.Server.Port)
	}
	if config.Storage.EventsFile == "" || config.Storage.ProductsFile == "" {
		return nil, fmt.Errorf("storage.events_file and storage.products_file are required")
	}
	return &config, nil
}
