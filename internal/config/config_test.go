package config_test

import (
	"errors"
	"testing"

	"github.com/okian/calmate/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.TimeZone, convey.ShouldEqual, "UTC")
			convey.So(cfg.LLMModel, convey.ShouldEqual, "gemini-2.5-flash")
			convey.So(cfg.MaxToolRounds, convey.ShouldEqual, 3)
			convey.So(cfg.SlotScoreBase, convey.ShouldEqual, 100)
			convey.So(cfg.SlotHourAdjustments["10-11"], convey.ShouldEqual, 10)
			convey.So(cfg.RequestTimeout().Seconds(), convey.ShouldEqual, 30.0)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then working hours default to nine to five", func() {
			h, err := cfg.Hours()
			convey.So(err, convey.ShouldBeNil)
			convey.So(h.Start.Hour, convey.ShouldEqual, 9)
			convey.So(h.End.Hour, convey.ShouldEqual, 17)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config with one bad value", t, func() {
		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = " " }},
			{"unknown format", func(c *config.Config) { c.LogFormat = "xml" }},
			{"unknown time zone", func(c *config.Config) { c.TimeZone = "Mars/Olympus" }},
			{"inverted hours", func(c *config.Config) { c.WorkStart, c.WorkEnd = "18:00", "09:00" }},
			{"malformed hours", func(c *config.Config) { c.WorkStart = "nine" }},
			{"zero timeout", func(c *config.Config) { c.RequestTimeoutMS = 0 }},
			{"zero tool rounds", func(c *config.Config) { c.MaxToolRounds = 0 }},
			{"empty db path", func(c *config.Config) { c.DBPath = "" }},
		}
		for _, tc := range cases {
			convey.Convey("Then validation fails for "+tc.name, func() {
				cfg := config.New()
				tc.mutate(cfg)
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})

	convey.Convey("Given a config without secrets", t, func() {
		cfg := config.New()

		convey.Convey("Then RequireCredentials names every missing secret", func() {
			err := cfg.RequireCredentials()
			convey.So(errors.Is(err, config.ErrMissingCredentials), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "google_client_id, google_client_secret, llm_api_key")
		})

		convey.Convey("Then RequireCredentials passes once they are set", func() {
			cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.LLMAPIKey = "id", "secret", "key"
			convey.So(cfg.RequireCredentials(), convey.ShouldBeNil)
		})
	})
}
