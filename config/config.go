// Package config loads and validates the SDK configuration.
//
// Configuration is read from a YAML, JSON or TOML file and may be
// overridden by environment variables prefixed with UOF_, where nested keys
// are joined with underscores (UOF_CACHE_CAPACITY). Variables can also be
// set from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	logging "github.com/ipfs/go-log/v2"
	"github.com/joho/godotenv"
	"github.com/oddsfeed/go-uofsdk/apierror"
	"github.com/oddsfeed/go-uofsdk/producer"
	"github.com/spf13/viper"
)

var log = logging.Logger("config")

const (
	EnvPrefix      = "UOF"
	DefaultAPIHost = "stgapi.betradar.com"
	apiVersion     = "/v1"
)

// Config is the configuration of the SDK.
type Config struct {
	AccessToken string `mapstructure:"access_token"`
	APIHost     string `mapstructure:"api_host"`
	UseSSL      bool   `mapstructure:"use_ssl"`
	// NodeID identifies this SDK instance in recovery requests and routing
	// keys. Messages for other nodes are ignored.
	NodeID    int      `mapstructure:"node_id"`
	Languages []string `mapstructure:"languages"`
	// ExceptionHandlingStrategy is "throw" or "catch".
	ExceptionHandlingStrategy string     `mapstructure:"exception_handling_strategy"`
	Producers                 []Producer `mapstructure:"producers"`

	HTTP        HTTP        `mapstructure:"http"`
	Recovery    Recovery    `mapstructure:"recovery"`
	Cache       Cache       `mapstructure:"cache"`
	ExportStore ExportStore `mapstructure:"export_store"`
	StateStore  StateStore  `mapstructure:"state_store"`
}

// Producer configures one message producer.
type Producer struct {
	ID          int    `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	APIURL      string `mapstructure:"api_url"`
	// Scopes lists scopes separated by '|', for example "live|prematch".
	Scopes                string `mapstructure:"scopes"`
	RecoveryWindowMinutes int    `mapstructure:"stateful_recovery_window_minutes"`
	MaxInactivitySeconds  int    `mapstructure:"max_inactivity_seconds"`
	Unavailable           bool   `mapstructure:"unavailable"`
	Disabled              bool   `mapstructure:"disabled"`
}

type HTTP struct {
	CriticalTimeout    time.Duration `mapstructure:"critical_timeout"`
	NonCriticalTimeout time.Duration `mapstructure:"non_critical_timeout"`
	RetryMax           int           `mapstructure:"retry_max"`
}

type Recovery struct {
	MaxExecution  time.Duration `mapstructure:"max_execution"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

type Cache struct {
	Capacity          int           `mapstructure:"capacity"`
	SlidingExpiration time.Duration `mapstructure:"sliding_expiration"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	PoolSize          int           `mapstructure:"pool_size"`
}

// ExportStore selects where the sport event cache is saved on close and
// restored from on open. Type is "" or "redis". Other stores are passed to
// the SDK directly.
type ExportStore struct {
	Type          string        `mapstructure:"type"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	Prefix        string        `mapstructure:"prefix"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// StateStore selects where producer timestamps are kept between runs.
// Driver is "", "postgres" or "sqlite".
type StateStore struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

var defaults = map[string]any{
	"access_token":                "",
	"api_host":                    DefaultAPIHost,
	"use_ssl":                     true,
	"node_id":                     0,
	"languages":                   []string{"en"},
	"exception_handling_strategy": "catch",
	"http.critical_timeout":       30 * time.Second,
	"http.non_critical_timeout":   5 * time.Second,
	"http.retry_max":              2,
	"recovery.max_execution":      time.Hour,
	"recovery.check_interval":     5 * time.Second,
	"cache.capacity":              0,
	"cache.sliding_expiration":    12 * time.Hour,
	"cache.sweep_interval":        5 * time.Minute,
	"cache.pool_size":             200,
	"export_store.type":           "",
	"export_store.redis_addr":     "",
	"export_store.redis_password": "",
	"export_store.redis_db":       0,
	"export_store.prefix":         "",
	"export_store.ttl":            time.Duration(0),
	"state_store.driver":          "",
	"state_store.dsn":             "",
}

// DefaultProducers are used when the configuration lists none.
var DefaultProducers = []Producer{
	{ID: 1, Name: "LO", Description: "Live Odds", Scopes: "live"},
	{ID: 3, Name: "Ctrl", Description: "Betradar Ctrl", Scopes: "prematch"},
	{ID: 4, Name: "BetPal", Description: "BetPal", Scopes: "live"},
	{ID: 5, Name: "PremiumCricket", Description: "Premium Cricket", Scopes: "live|prematch"},
	{ID: 6, Name: "VF", Description: "Virtual football", Scopes: "virtual"},
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the configuration file at path, then applies environment
// overrides. An empty path reads the environment only. Variables in
// envFiles are loaded into the environment first, without overriding
// variables already set. A missing .env file is not an error when envFiles
// is empty.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("cannot load .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("cannot load env files: %w", err)
	}

	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cannot read config %s: %w", path, err)
		}
		log.Infow("Loaded config", "file", v.ConfigFileUsed())
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}
	if len(cfg.Producers) == 0 {
		cfg.Producers = append([]Producer(nil), DefaultProducers...)
	}
	return &cfg, nil
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() error {
	var errs error
	if c.AccessToken == "" {
		errs = multierror.Append(errs, errors.New("access token is required"))
	}
	if c.APIHost == "" {
		errs = multierror.Append(errs, errors.New("api host is required"))
	}
	if len(c.Languages) == 0 {
		errs = multierror.Append(errs, errors.New("at least one language is required"))
	}
	for _, lang := range c.Languages {
		if strings.TrimSpace(lang) == "" {
			errs = multierror.Append(errs, errors.New("empty language"))
		}
	}
	if c.NodeID < 0 {
		errs = multierror.Append(errs, fmt.Errorf("node id %d is negative", c.NodeID))
	}
	if _, err := apierror.ParseStrategy(c.ExceptionHandlingStrategy); err != nil {
		errs = multierror.Append(errs, err)
	}
	if c.HTTP.CriticalTimeout <= 0 || c.HTTP.NonCriticalTimeout <= 0 {
		errs = multierror.Append(errs, errors.New("http timeouts must be positive"))
	}
	if c.HTTP.NonCriticalTimeout > c.HTTP.CriticalTimeout {
		errs = multierror.Append(errs, errors.New("non-critical timeout exceeds critical timeout"))
	}
	if c.HTTP.RetryMax < 0 {
		errs = multierror.Append(errs, errors.New("retry max is negative"))
	}
	if c.Recovery.MaxExecution <= 0 {
		errs = multierror.Append(errs, errors.New("recovery max execution must be positive"))
	}
	if c.Recovery.CheckInterval < 0 {
		errs = multierror.Append(errs, errors.New("recovery check interval is negative"))
	}
	if c.Cache.Capacity < 0 || c.Cache.PoolSize <= 0 {
		errs = multierror.Append(errs, errors.New("cache capacity must not be negative and pool size must be positive"))
	}
	if c.Cache.SlidingExpiration < 0 || c.Cache.SweepInterval < 0 {
		errs = multierror.Append(errs, errors.New("cache durations are negative"))
	}

	seen := make(map[int]struct{}, len(c.Producers))
	for _, p := range c.Producers {
		if p.ID <= 0 || p.Name == "" {
			errs = multierror.Append(errs, fmt.Errorf("producer %d needs a positive id and a name", p.ID))
		}
		if _, dup := seen[p.ID]; dup {
			errs = multierror.Append(errs, fmt.Errorf("duplicate producer %d", p.ID))
		}
		seen[p.ID] = struct{}{}
		if p.RecoveryWindowMinutes < 0 || p.MaxInactivitySeconds < 0 {
			errs = multierror.Append(errs, fmt.Errorf("producer %d has a negative window", p.ID))
		}
	}

	switch c.ExportStore.Type {
	case "":
	case "redis":
		if c.ExportStore.RedisAddr == "" {
			errs = multierror.Append(errs, errors.New("redis export store needs an address"))
		}
	default:
		errs = multierror.Append(errs, fmt.Errorf("unknown export store type %q", c.ExportStore.Type))
	}
	switch c.StateStore.Driver {
	case "":
	case "postgres", "sqlite":
		if c.StateStore.DSN == "" {
			errs = multierror.Append(errs, fmt.Errorf("%s state store needs a dsn", c.StateStore.Driver))
		}
	default:
		errs = multierror.Append(errs, fmt.Errorf("unknown state store driver %q", c.StateStore.Driver))
	}
	return errs
}

// APIBaseURL is the root of the REST API, including its version.
func (c *Config) APIBaseURL() string {
	scheme := "https://"
	if !c.UseSSL {
		scheme = "http://"
	}
	return scheme + strings.TrimSuffix(c.APIHost, "/") + apiVersion
}

// Strategy returns the parsed exception handling strategy. Invalid values
// fall back to catch.
func (c *Config) Strategy() apierror.Strategy {
	s, err := apierror.ParseStrategy(c.ExceptionHandlingStrategy)
	if err != nil {
		return apierror.Catch
	}
	return s
}

// ProducerConfigs converts the configured producers.
func (c *Config) ProducerConfigs() []producer.Config {
	out := make([]producer.Config, len(c.Producers))
	for i, p := range c.Producers {
		window := time.Duration(p.RecoveryWindowMinutes) * time.Minute
		if window == 0 {
			window = producer.DefaultRecoveryWindow
		}
		inactivity := time.Duration(p.MaxInactivitySeconds) * time.Second
		if inactivity == 0 {
			inactivity = producer.DefaultMaxInactivity
		}
		out[i] = producer.Config{
			ID:             p.ID,
			Name:           p.Name,
			Description:    p.Description,
			APIURL:         p.APIURL,
			Scopes:         producer.ParseScopes(p.Scopes),
			RecoveryWindow: window,
			MaxInactivity:  inactivity,
			Available:      !p.Unavailable,
			Disabled:       p.Disabled,
		}
	}
	return out
}
