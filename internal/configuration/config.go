package configuration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type MongoConfig struct {
	Uri              string `mapstructure:"uri"`
	Database         string `mapstructure:"database"`
	UsersCollection  string `mapstructure:"usersCollection"`
}

type PostgresConfig struct {
	Dsn string `mapstructure:"dsn"`
}

type BackendConfig struct {
	Backend string `mapstructure:"backend"`
}

type NatsConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Url           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subjectPrefix"`
	Name          string `mapstructure:"name"`
}

type ServerConfig struct {
	AppPort        int      `mapstructure:"appPort"`
	SocketPort     int      `mapstructure:"socketPort"`
	SocketRoute    string   `mapstructure:"socketRoute"`
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

type AuthConfig struct {
	JwtSecret string `mapstructure:"jwtSecret"`
}

type LoggerConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

type Config struct {
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Graph    BackendConfig  `mapstructure:"graph"`
	Store    BackendConfig  `mapstructure:"store"`
	Nats     NatsConfig     `mapstructure:"nats"`
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mongo.database", "eventhive")
	v.SetDefault("mongo.usersCollection", "users")
	v.SetDefault("graph.backend", BackendMongo)
	v.SetDefault("store.backend", BackendMongo)
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.subjectPrefix", "eventhive.rooms")
	v.SetDefault("nats.name", "eventhive")
	v.SetDefault("server.appPort", 8080)
	v.SetDefault("server.socketPort", 8081)
	v.SetDefault("server.socketRoute", "ws")
	v.SetDefault("server.allowedOrigins", []string{"http://localhost:4200"})
	v.SetDefault("logger.development", false)
	v.SetDefault("logger.level", "info")
}

// LoadConfig reads configPath (JSON) and applies EVENTHIVE_* overrides, so
// EVENTHIVE_AUTH_JWTSECRET sets auth.jwtSecret. A .env file in the working
// directory is loaded first when present. An empty configPath runs on
// defaults and environment only.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("EVENTHIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only covers keys viper already knows about.
	for _, key := range []string{"mongo.uri", "postgres.dsn", "auth.jwtSecret"} {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JwtSecret == "" {
		errs = append(errs, errors.New("auth.jwtSecret is required"))
	}
	switch c.Graph.Backend {
	case BackendMongo, BackendMemory:
	case BackendPostgres:
		if c.Postgres.Dsn == "" {
			errs = append(errs, errors.New("postgres.dsn is required for the postgres graph backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown graph.backend %q", c.Graph.Backend))
	}
	switch c.Store.Backend {
	case BackendMongo, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store.backend %q", c.Store.Backend))
	}
	if c.needsMongo() && c.Mongo.Uri == "" {
		errs = append(errs, errors.New("mongo.uri is required"))
	}
	if c.Server.SocketRoute == "" {
		errs = append(errs, errors.New("server.socketRoute is required"))
	}
	return errors.Join(errs...)
}

// needsMongo reports whether any component is backed by Mongo.
func (c *Config) needsMongo() bool {
	return c.Graph.Backend == BackendMongo || c.Store.Backend == BackendMongo
}
