// Package config loads feedctl configuration from layered sources:
// built-in defaults, an optional YAML file, then REELFEED_* environment
// variables, highest priority last.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/roach88/reelfeed/internal/feed"
	"github.com/roach88/reelfeed/internal/filter"
	"github.com/roach88/reelfeed/internal/likes"
	"github.com/roach88/reelfeed/internal/logging"
	"github.com/roach88/reelfeed/internal/model"
	"github.com/roach88/reelfeed/internal/remote"
	"github.com/roach88/reelfeed/internal/scroll"
	"github.com/roach88/reelfeed/internal/visibility"
)

// EnvPrefix prefixes every environment override, e.g.
// REELFEED_FEED_PAGE_SIZE=10 sets feed.page_size.
const EnvPrefix = "REELFEED_"

// PathEnvVar names the config file when no path is given explicitly.
const PathEnvVar = "REELFEED_CONFIG"

// Config is the complete feedctl configuration.
type Config struct {
	Feed     FeedConfig     `koanf:"feed"`
	Likes    LikesConfig    `koanf:"likes"`
	Remote   RemoteConfig   `koanf:"remote"`
	Store    StoreConfig    `koanf:"store"`
	Log      LogConfig      `koanf:"log"`
	Checkout CheckoutConfig `koanf:"checkout"`
}

// FeedConfig tunes the feed session.
type FeedConfig struct {
	PageSize            int           `koanf:"page_size" validate:"min=1,max=100"`
	Debounce            time.Duration `koanf:"debounce" validate:"min=0"`
	StaleAfter          time.Duration `koanf:"stale_after" validate:"min=0"`
	VisibilityThreshold float64       `koanf:"visibility_threshold" validate:"gt=0,lte=1"`
	SentinelThreshold   float64       `koanf:"sentinel_threshold" validate:"gt=0,lte=1"`
}

// LikesConfig tunes the like engine.
type LikesConfig struct {
	Policy     string        `koanf:"policy" validate:"oneof=keep rollback"`
	StaleAfter time.Duration `koanf:"stale_after" validate:"min=0"`
}

// RemoteConfig tunes the guard around the collaborator.
type RemoteConfig struct {
	Timeout            time.Duration `koanf:"timeout" validate:"min=0"`
	RatePerSecond      float64       `koanf:"rate_per_second" validate:"min=0"`
	Burst              int           `koanf:"burst" validate:"min=1"`
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures" validate:"min=1"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// LogConfig configures the zerolog sink.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// CheckoutConfig configures checkout redirects.
type CheckoutConfig struct {
	BaseURL string `koanf:"base_url" validate:"required,url"`
}

// Default returns the built-in configuration.
func Default() *Config {
	guard := remote.DefaultGuardConfig()
	return &Config{
		Feed: FeedConfig{
			PageSize:            model.DefaultPageSize,
			Debounce:            filter.DefaultDebounce,
			StaleAfter:          5 * time.Minute,
			VisibilityThreshold: visibility.DefaultThreshold,
			SentinelThreshold:   scroll.DefaultThreshold,
		},
		Likes: LikesConfig{
			Policy:     string(likes.PolicyKeep),
			StaleAfter: 5 * time.Minute,
		},
		Remote: RemoteConfig{
			Timeout:            guard.Timeout,
			RatePerSecond:      guard.RatePerSecond,
			Burst:              guard.Burst,
			BreakerMaxFailures: guard.MaxFailures,
			BreakerTimeout:     guard.BreakerTimeout,
		},
		Store: StoreConfig{Path: "reelfeed.db"},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Checkout: CheckoutConfig{BaseURL: "https://checkout.reelfeed.local/session/"},
	}
}

// Load builds the configuration. path names a YAML file; when empty the
// REELFEED_CONFIG variable is consulted, and with neither set no file is
// read. A named file that does not exist is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(PathEnvVar)
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps REELFEED_FEED_PAGE_SIZE to feed.page_size. Section names
// contain no underscore, so the first one separates section from key.
func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	if key == "config" {
		return ""
	}
	section, rest, ok := strings.Cut(key, "_")
	if !ok {
		return key
	}
	return section + "." + rest
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// configValidator reports errors by koanf key rather than Go field name.
func configValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	err := configValidator().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Namespace is Config.feed.page_size; drop the type name.
		_, key, _ := strings.Cut(fe.Namespace(), ".")
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", key, fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Policy returns the parsed like failure policy.
func (c *Config) Policy() likes.Policy {
	p, err := likes.ParsePolicy(c.Likes.Policy)
	if err != nil {
		return likes.PolicyKeep
	}
	return p
}

// SessionOptions converts the feed and likes sections to session options.
func (c *Config) SessionOptions() feed.Options {
	return feed.Options{
		PageSize:            c.Feed.PageSize,
		Debounce:            c.Feed.Debounce,
		StaleAfter:          c.Feed.StaleAfter,
		VisibilityThreshold: c.Feed.VisibilityThreshold,
		SentinelThreshold:   c.Feed.SentinelThreshold,
		LikePolicy:          c.Policy(),
		LikeStaleAfter:      c.Likes.StaleAfter,
		LoadLikes:           true,
	}
}

// Guard converts the remote section to a guard configuration.
func (c *Config) Guard() remote.GuardConfig {
	return remote.GuardConfig{
		Name:           "remote",
		Timeout:        c.Remote.Timeout,
		RatePerSecond:  c.Remote.RatePerSecond,
		Burst:          c.Remote.Burst,
		MaxFailures:    c.Remote.BreakerMaxFailures,
		BreakerTimeout: c.Remote.BreakerTimeout,
	}
}

// Logging converts the log section to a logging configuration.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Log.Level
	cfg.Format = c.Log.Format
	cfg.Caller = c.Log.Caller
	return cfg
}
