package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/xpboard/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()

	Convey("Given no overrides in the environment", t, func() {
		cfg, err := config.Load(ctx)

		Convey("Then the defaults should apply", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":9090")
			So(cfg.SourceBaseURL, ShouldEqual, "http://localhost:8400")
			So(cfg.LogLevel, ShouldEqual, "info")
			So(cfg.ValidationMode, ShouldEqual, "lenient")
			So(cfg.FetchTimeoutMS, ShouldEqual, 30_000)
			So(cfg.MaxErrorExamples, ShouldEqual, 5)
			So(cfg.RefreshBuffer, ShouldEqual, 16)
			So(cfg.MaxExportRows, ShouldEqual, 100_000)
			So(cfg.SnapshotPath, ShouldEqual, "")
		})
	})

	Convey("Given environment overrides", t, func() {
		t.Setenv("XPBOARD_ADDR", ":7070")
		t.Setenv("XPBOARD_SOURCE_BASE_URL", "http://source.internal:9000")
		t.Setenv("XPBOARD_VALIDATION_MODE", "strict")

		cfg, err := config.Load(ctx)

		Convey("Then the environment should win over defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":7070")
			So(cfg.SourceBaseURL, ShouldEqual, "http://source.internal:9000")
			So(cfg.ValidationMode, ShouldEqual, "strict")
			So(cfg.LogLevel, ShouldEqual, "info")
		})
	})

	Convey("Given a YAML config file", t, func() {
		path := filepath.Join(t.TempDir(), "config.yaml")
		So(os.WriteFile(path, []byte("addr: \":6060\"\nlog_level: debug\n"), 0o600), ShouldBeNil)
		t.Setenv("XPBOARD_CONFIG", path)

		Convey("When no env overrides compete", func() {
			cfg, err := config.Load(ctx)

			Convey("Then the file should win over defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":6060")
				So(cfg.LogLevel, ShouldEqual, "debug")
			})
		})

		Convey("When an env var overrides the file", func() {
			t.Setenv("XPBOARD_ADDR", ":5050")
			cfg, err := config.Load(ctx)

			Convey("Then the env var should take precedence", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":5050")
				So(cfg.LogLevel, ShouldEqual, "debug")
			})
		})
	})

	Convey("Given a config file that does not exist", t, func() {
		t.Setenv("XPBOARD_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
		_, err := config.Load(ctx)

		Convey("Then loading should fail", func() {
			So(err, ShouldWrap, config.ErrLoadConfig)
		})
	})

	Convey("Given an override that empties a required field", t, func() {
		t.Setenv("XPBOARD_ADDR", "")
		_, err := config.Load(ctx)

		Convey("Then validation should reject it", func() {
			So(err, ShouldWrap, config.ErrInvalidConfig)
		})
	})
}
