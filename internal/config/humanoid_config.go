// File: internal/config/humanoid_config.go
// HumanoidConfig holds the pacing model that spaces out every interaction with
// the page. Each step draws a uniform delay from its [min, max] window; typing
// draws per-keystroke delays from a normal distribution.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// HumanoidConfig contains the tunable pacing windows.
type HumanoidConfig struct {
	// ClickPauseMin/Max surround clicks on form controls and action buttons.
	ClickPauseMin time.Duration `mapstructure:"click_pause_min" yaml:"click_pause_min"`
	ClickPauseMax time.Duration `mapstructure:"click_pause_max" yaml:"click_pause_max"`
	// AdvancePauseMin/Max follow a page advance or discard, before the page is inspected.
	AdvancePauseMin time.Duration `mapstructure:"advance_pause_min" yaml:"advance_pause_min"`
	AdvancePauseMax time.Duration `mapstructure:"advance_pause_max" yaml:"advance_pause_max"`
	// LandingPauseMin/Max follow navigation to a job posting.
	LandingPauseMin time.Duration `mapstructure:"landing_pause_min" yaml:"landing_pause_min"`
	LandingPauseMax time.Duration `mapstructure:"landing_pause_max" yaml:"landing_pause_max"`
	// ReloadPause follows a page refresh while hunting for the entry point.
	ReloadPause time.Duration `mapstructure:"reload_pause" yaml:"reload_pause"`

	KeyDelayMeanMs   float64 `mapstructure:"key_delay_mean_ms" yaml:"key_delay_mean_ms"`
	KeyDelayStdDevMs float64 `mapstructure:"key_delay_stddev_ms" yaml:"key_delay_stddev_ms"`

	// Seed fixes the random source; zero seeds from the clock.
	Seed int64 `mapstructure:"seed" yaml:"seed"`
}

func setHumanoidDefaults(v *viper.Viper) {
	v.SetDefault("browser.humanoid.click_pause_min", "1500ms")
	v.SetDefault("browser.humanoid.click_pause_max", "2500ms")
	v.SetDefault("browser.humanoid.advance_pause_min", "3s")
	v.SetDefault("browser.humanoid.advance_pause_max", "5s")
	v.SetDefault("browser.humanoid.landing_pause_min", "3s")
	v.SetDefault("browser.humanoid.landing_pause_max", "5s")
	v.SetDefault("browser.humanoid.reload_pause", "3s")
	v.SetDefault("browser.humanoid.key_delay_mean_ms", 70.0)
	v.SetDefault("browser.humanoid.key_delay_stddev_ms", 25.0)
	v.SetDefault("browser.humanoid.seed", 0)
}

// Validate checks that every window is well formed.
func (h *HumanoidConfig) Validate() error {
	windows := []struct {
		name     string
		min, max time.Duration
	}{
		{"click_pause", h.ClickPauseMin, h.ClickPauseMax},
		{"advance_pause", h.AdvancePauseMin, h.AdvancePauseMax},
		{"landing_pause", h.LandingPauseMin, h.LandingPauseMax},
	}
	for _, w := range windows {
		if w.min < 0 || w.max < w.min {
			return fmt.Errorf("%s window [%s, %s] is invalid", w.name, w.min, w.max)
		}
	}
	if h.ReloadPause < 0 {
		return fmt.Errorf("reload_pause must not be negative")
	}
	if h.KeyDelayMeanMs < 0 || h.KeyDelayStdDevMs < 0 {
		return fmt.Errorf("key delay parameters must not be negative")
	}
	return nil
}
