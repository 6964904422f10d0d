package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/irontrials/pkg/logger"
)

const (
	envPrefix     = "IRONTRIALS_"
	envConfigPath = "IRONTRIALS_CONFIG"
)

// Load builds Settings by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if IRONTRIALS_CONFIG is set
//  3. env (prefix IRONTRIALS_), after loading a .env file when present
func Load(_ context.Context) (*Settings, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	base := New()
	k := koanf.New(".")

	if path := os.Getenv(envConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// IRONTRIALS_SERVER_URL -> server_url; underscores are kept to match
	// the koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the daemon cannot run without.
func (s *Settings) Validate() error {
	switch {
	case s.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case s.FeedMaxItems < 1:
		return fmt.Errorf("%w: feed_max_items must be positive", ErrInvalidConfig)
	case s.RefreshIntervalSeconds < 1:
		return fmt.Errorf("%w: refresh_interval_seconds must be positive", ErrInvalidConfig)
	case s.ControlQueueSize < 1:
		return fmt.Errorf("%w: control_queue_size must be positive", ErrInvalidConfig)
	case s.SyncWorkerCount < 1:
		return fmt.Errorf("%w: sync_worker_count must be positive", ErrInvalidConfig)
	case s.SyncQueueSize < 1:
		return fmt.Errorf("%w: sync_queue_size must be positive", ErrInvalidConfig)
	case s.MetricsNamespace == "":
		return fmt.Errorf("%w: metrics_namespace must not be empty", ErrInvalidConfig)
	}
	if s.UseRemoteConfig && s.RemoteConfigURL == "" {
		return fmt.Errorf("%w: remote_config_url must be set when use_remote_config is on", ErrInvalidConfig)
	}
	if s.UseExternalConfig && s.ExternalConfigPath == "" {
		return fmt.Errorf("%w: external_config_path must be set when use_external_config is on", ErrInvalidConfig)
	}
	return nil
}

// LogFields returns the settings worth logging at startup.
func (s *Settings) LogFields() []logger.Field {
	return []logger.Field{
		logger.String("addr", s.Addr),
		logger.String("server_url", s.ServerURL),
		logger.String("group_id", s.GroupID),
		logger.String("player_name", s.PlayerName),
		logger.Bool("use_remote_config", s.UseRemoteConfig),
		logger.Bool("use_external_config", s.UseExternalConfig),
		logger.Int("feed_max_items", s.FeedMaxItems),
		logger.Int("refresh_interval_seconds", s.RefreshIntervalSeconds),
		logger.Int("sync_worker_count", s.SyncWorkerCount),
		logger.String("metrics_namespace", s.MetricsNamespace),
	}
}
