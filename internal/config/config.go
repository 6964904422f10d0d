// Package config defines the tracker settings and their loading hooks.
//
// Conventions:
// - Provide New() to build Settings with defaults.
// - Load layers a YAML file and IRONTRIALS_ environment variables on top.
// - External errors are wrapped with this package's sentinel errors.
package config

// Settings contains process configuration. Keys mirror the host plugin's
// configuration surface plus the daemon's own knobs.
type Settings struct {
	// ServerURL is the tracking backend base URL.
	ServerURL string `koanf:"server_url"`
	// GroupID is the group events are reported to.
	GroupID string `koanf:"group_id"`
	// PlayerName is stamped on every emitted event.
	PlayerName string `koanf:"player_name"`

	CaptureLevelUps bool `koanf:"capture_level_ups"`
	CaptureQuests   bool `koanf:"capture_quests"`
	CaptureBossKC   bool `koanf:"capture_boss_kc"`
	CaptureDrops    bool `koanf:"capture_drops"`

	// StrictBossKills additionally requires the boss name to match a tracked
	// boss before a kill is reported.
	StrictBossKills bool `koanf:"strict_boss_kills"`

	// MilestoneLevels is the inline comma-separated level list.
	MilestoneLevels string `koanf:"milestone_levels"`

	UseExternalConfig  bool   `koanf:"use_external_config"`
	ExternalConfigPath string `koanf:"external_config_path"`

	UseRemoteConfig bool   `koanf:"use_remote_config"`
	RemoteConfigURL string `koanf:"remote_config_url"`
	// RemoteGroupID overrides GroupID for the remote config lookup.
	RemoteGroupID string `koanf:"remote_group_id"`

	// FeedMaxItems caps the presentation feed.
	FeedMaxItems int `koanf:"feed_max_items"`
	// RefreshIntervalSeconds is the group/bingo refresh cadence.
	RefreshIntervalSeconds int `koanf:"refresh_interval_seconds"`
	// SeedDemoEvents fills the feed with sample events at startup.
	SeedDemoEvents bool `koanf:"seed_demo_events"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// Addr configures the HTTP listen address, e.g. ":7070".
	Addr string `koanf:"addr"`
	// ControlQueueSize bounds the session's control queue.
	ControlQueueSize int `koanf:"control_queue_size"`
	// SyncWorkerCount sets the number of background sync workers.
	SyncWorkerCount int `koanf:"sync_worker_count"`
	// SyncQueueSize bounds the sync job queue.
	SyncQueueSize int `koanf:"sync_queue_size"`
	// MetricsNamespace prefixes every exported metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
}

// New creates Settings populated with defaults.
func New() *Settings {
	return &Settings{
		ServerURL:              "http://localhost:8080",
		GroupID:                "test-group",
		CaptureLevelUps:        true,
		CaptureQuests:          true,
		CaptureBossKC:          true,
		CaptureDrops:           true,
		MilestoneLevels:        "50,70,80,90,99",
		ExternalConfigPath:     "~/.runelite/iron-trials-milestones.json",
		UseRemoteConfig:        true,
		RemoteConfigURL:        "http://localhost:8080/v1/milestones",
		RemoteGroupID:          "test-group",
		FeedMaxItems:           20,
		RefreshIntervalSeconds: 60,
		LogLevel:               "info",
		Addr:                   ":7070",
		ControlQueueSize:       1024,
		SyncWorkerCount:        4,
		SyncQueueSize:          256,
		MetricsNamespace:       "irontrials",
	}
}

// EffectiveRemoteGroupID returns the group used for the remote config lookup.
func (s *Settings) EffectiveRemoteGroupID() string {
	if s.RemoteGroupID != "" {
		return s.RemoteGroupID
	}
	return s.GroupID
}

// CanSync reports whether events can be sent to the backend.
func (s *Settings) CanSync() bool {
	return s.ServerURL != "" && s.GroupID != ""
}
