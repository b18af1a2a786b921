package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"threatintel/core"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrInvalidFeeds is returned when the feed list fails validation
var ErrInvalidFeeds = errors.New("invalid feed configuration")

// EnvPrefix prefixes every environment override, e.g. THREATINTEL_CACHE_BACKEND
const EnvPrefix = "THREATINTEL"

// Config holds all configuration for the aggregator and query service
type Config struct {
	// Feeds are processed in this order on every run
	Feeds []core.FeedDescriptor `mapstructure:"feeds" yaml:"feeds" validate:"required,min=1,dive"`

	Cache struct {
		Backend     string        `mapstructure:"backend" validate:"oneof=file leveldb sqlite redis"`
		Dir         string        `mapstructure:"dir"`
		TTL         time.Duration `mapstructure:"ttl" validate:"gt=0"`
		LevelDBPath string        `mapstructure:"leveldb_path"`
		SQLitePath  string        `mapstructure:"sqlite_path"`
		Redis       struct {
			Addr     string `mapstructure:"addr"`
			Password string `mapstructure:"password"`
			DB       int    `mapstructure:"db" validate:"gte=0"`
			PoolSize int    `mapstructure:"pool_size" validate:"gte=1"`
		} `mapstructure:"redis"`
	} `mapstructure:"cache"`

	Fetch struct {
		Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
		UserAgent string        `mapstructure:"user_agent" validate:"required"`
	} `mapstructure:"fetch"`

	Output struct {
		FrontendPath string `mapstructure:"frontend_path" validate:"required"`
		APIPath      string `mapstructure:"api_path" validate:"required"`
	} `mapstructure:"output"`

	API struct {
		Host            string   `mapstructure:"host"`
		Port            int      `mapstructure:"port" validate:"gte=1,lte=65535"`
		AllowedOrigins  []string `mapstructure:"allowed_origins"`
		SearchCacheSize int      `mapstructure:"search_cache_size" validate:"gte=0"`
	} `mapstructure:"api"`

	Schedule struct {
		Spec       string `mapstructure:"spec"`
		Timezone   string `mapstructure:"timezone"`
		RunOnStart bool   `mapstructure:"run_on_start"`
	} `mapstructure:"schedule"`

	Metrics struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"metrics"`

	Log struct {
		Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	} `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	// Feeds default to the public blocklists
	v.SetDefault("feeds", defaultFeedMaps())

	v.SetDefault("cache.backend", "file")
	v.SetDefault("cache.dir", "./.cache")
	v.SetDefault("cache.ttl", core.DefaultCacheTTL)
	v.SetDefault("cache.leveldb_path", "./data/cache.ldb")
	v.SetDefault("cache.sqlite_path", "./data/cache.db")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 10)

	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.user_agent", "ThreatIntelAggregator/1.0")

	v.SetDefault("output.frontend_path", "./frontend/iocs.json")
	v.SetDefault("output.api_path", "./data/aggregated_iocs.json")

	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 5000)
	v.SetDefault("api.allowed_origins", []string{"*"})
	v.SetDefault("api.search_cache_size", 1024)

	v.SetDefault("schedule.spec", "@hourly")
	v.SetDefault("schedule.timezone", "UTC")
	v.SetDefault("schedule.run_on_start", true)

	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("log.level", "info")
}

// defaultFeedMaps renders the default feeds in the shape viper decodes from YAML
func defaultFeedMaps() []map[string]any {
	feeds := core.DefaultFeeds()
	out := make([]map[string]any, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, map[string]any{"name": f.Name, "url": f.URL})
	}
	return out
}

// loadFromEnv sets up environment variable loading
func loadFromEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from path, or from config.yaml in . or ./config when
// path is empty. A missing default config file is not an error; defaults and
// environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	loadFromEnv(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(config *Config) error {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if strings.Contains(fe.Namespace(), ".Feeds") {
					return fmt.Errorf("%w: %s failed on %q", ErrInvalidFeeds, fe.Namespace(), fe.Tag())
				}
			}
		}
		return err
	}

	seen := make(map[string]struct{}, len(config.Feeds))
	for _, f := range config.Feeds {
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: duplicate feed name %q", ErrInvalidFeeds, f.Name)
		}
		seen[f.Name] = struct{}{}
	}

	switch config.Cache.Backend {
	case "file":
		if config.Cache.Dir == "" {
			return fmt.Errorf("cache.dir is required for the file backend")
		}
	case "leveldb":
		if config.Cache.LevelDBPath == "" {
			return fmt.Errorf("cache.leveldb_path is required for the leveldb backend")
		}
	case "sqlite":
		if config.Cache.SQLitePath == "" {
			return fmt.Errorf("cache.sqlite_path is required for the sqlite backend")
		}
	case "redis":
		if config.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required for the redis backend")
		}
	}

	return nil
}

// ListenAddr returns the query service listen address
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}
