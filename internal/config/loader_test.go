package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/irontrials/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"IRONTRIALS_CONFIG",
	"IRONTRIALS_ADDR",
	"IRONTRIALS_SERVER_URL",
	"IRONTRIALS_GROUP_ID",
	"IRONTRIALS_PLAYER_NAME",
	"IRONTRIALS_CAPTURE_DROPS",
	"IRONTRIALS_STRICT_BOSS_KILLS",
	"IRONTRIALS_FEED_MAX_ITEMS",
	"IRONTRIALS_SYNC_WORKER_COUNT",
	"IRONTRIALS_MILESTONE_LEVELS",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "irontrials.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.GroupID, convey.ShouldEqual, "test-group")
				convey.So(cfg.FeedMaxItems, convey.ShouldEqual, 20)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("IRONTRIALS_ADDR", ":8081")
			_ = os.Setenv("IRONTRIALS_GROUP_ID", "hardcore-group")
			_ = os.Setenv("IRONTRIALS_PLAYER_NAME", "IronManPro")
			_ = os.Setenv("IRONTRIALS_CAPTURE_DROPS", "false")
			_ = os.Setenv("IRONTRIALS_STRICT_BOSS_KILLS", "true")
			_ = os.Setenv("IRONTRIALS_FEED_MAX_ITEMS", "10")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8081")
				convey.So(cfg.GroupID, convey.ShouldEqual, "hardcore-group")
				convey.So(cfg.PlayerName, convey.ShouldEqual, "IronManPro")
				convey.So(cfg.CaptureDrops, convey.ShouldBeFalse)
				convey.So(cfg.StrictBossKills, convey.ShouldBeTrue)
				convey.So(cfg.FeedMaxItems, convey.ShouldEqual, 10)
				convey.So(cfg.CaptureQuests, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := createTempConfigFile(t, `
server_url: "http://tracker.example:9000"
group_id: "casual-group"
milestone_levels: "20,40,60"
use_remote_config: false
sync_worker_count: 8
`)
			_ = os.Setenv("IRONTRIALS_CONFIG", path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file and keep defaults elsewhere", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.ServerURL, convey.ShouldEqual, "http://tracker.example:9000")
				convey.So(cfg.GroupID, convey.ShouldEqual, "casual-group")
				convey.So(cfg.MilestoneLevels, convey.ShouldEqual, "20,40,60")
				convey.So(cfg.UseRemoteConfig, convey.ShouldBeFalse)
				convey.So(cfg.SyncWorkerCount, convey.ShouldEqual, 8)
				convey.So(cfg.FeedMaxItems, convey.ShouldEqual, 20)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			path := createTempConfigFile(t, `
group_id: "casual-group"
sync_worker_count: 8
`)
			_ = os.Setenv("IRONTRIALS_CONFIG", path)
			_ = os.Setenv("IRONTRIALS_SYNC_WORKER_COUNT", "2")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.GroupID, convey.ShouldEqual, "casual-group")
				convey.So(cfg.SyncWorkerCount, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When loading config with an invalid YAML file", func() {
			_ = os.Setenv("IRONTRIALS_CONFIG", createTempConfigFile(t, `invalid: yaml: content: [`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a non-existent file", func() {
			_ = os.Setenv("IRONTRIALS_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("IRONTRIALS_FEED_MAX_ITEMS", "not_a_number")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config that fails validation", func() {
			_ = os.Setenv("IRONTRIALS_FEED_MAX_ITEMS", "0")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "feed_max_items")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the metrics namespace is empty", func() {
			cfg := config.New()
			cfg.MetricsNamespace = ""

			convey.Convey("Then validation should reject it", func() {
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "metrics_namespace")
			})
		})

		convey.Convey("When remote config is on without a URL", func() {
			cfg := config.New()
			cfg.RemoteConfigURL = ""

			convey.Convey("Then validation should reject it", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
