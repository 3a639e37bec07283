// Package config loads application configuration from file, environment,
// and defaults.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"xray-annotator/internal/editor"
	"xray-annotator/internal/view"
)

// Config is the full application configuration tree.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	Store StoreConfig `mapstructure:"store"`

	Interaction InteractionConfig `mapstructure:"interaction"`

	Zoom ZoomConfig `mapstructure:"zoom"`
}

// StoreConfig selects and parameterizes the annotation store backend.
type StoreConfig struct {
	// Backend is one of "memory", "filesystem", or "sqlite".
	Backend string `mapstructure:"backend"`
	// Path is the filesystem store root directory.
	Path string `mapstructure:"path"`
	// DSN is the sqlite database path (":memory:" for ephemeral).
	DSN string `mapstructure:"dsn"`
}

// InteractionConfig carries the gesture tunables.
type InteractionConfig struct {
	HitThreshold  float64 `mapstructure:"hit_threshold"`
	ResizeDamping float64 `mapstructure:"resize_damping"`
	TextMinWidth  float64 `mapstructure:"text_min_width"`
	TextMinHeight float64 `mapstructure:"text_min_height"`
}

// ZoomConfig carries the two zoom clamp ranges: continuous wheel zoom and
// discrete step zoom each have their own bounds.
type ZoomConfig struct {
	WheelMin float64 `mapstructure:"wheel_min"`
	WheelMax float64 `mapstructure:"wheel_max"`
	StepMin  float64 `mapstructure:"step_min"`
	StepMax  float64 `mapstructure:"step_max"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("store.backend", "filesystem")
	v.SetDefault("store.path", "annotations")
	v.SetDefault("store.dsn", "annotations.db")

	def := editor.DefaultConfig()
	v.SetDefault("interaction.hit_threshold", def.HitThreshold)
	v.SetDefault("interaction.resize_damping", def.ResizeDamping)
	v.SetDefault("interaction.text_min_width", def.TextMinWidth)
	v.SetDefault("interaction.text_min_height", def.TextMinHeight)

	vp := view.NewViewport()
	v.SetDefault("zoom.wheel_min", vp.WheelZoomMin)
	v.SetDefault("zoom.wheel_max", vp.WheelZoomMax)
	v.SetDefault("zoom.step_min", vp.StepZoomMin)
	v.SetDefault("zoom.step_max", vp.StepZoomMax)
}

// Load reads configuration from the given file (optional), the environment
// (XRAY_ prefix, e.g. XRAY_STORE_BACKEND), and built-in defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("XRAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join("$HOME", ".config", "xray-annotator"))
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// EditorConfig converts the interaction section to the engine's config.
func (c *Config) EditorConfig() editor.Config {
	return editor.Config{
		HitThreshold:  c.Interaction.HitThreshold,
		ResizeDamping: c.Interaction.ResizeDamping,
		TextMinWidth:  c.Interaction.TextMinWidth,
		TextMinHeight: c.Interaction.TextMinHeight,
	}
}

// Viewport builds a viewport with the configured zoom clamp ranges.
func (c *Config) Viewport() *view.Viewport {
	vp := view.NewViewport()
	vp.WheelZoomMin = c.Zoom.WheelMin
	vp.WheelZoomMax = c.Zoom.WheelMax
	vp.StepZoomMin = c.Zoom.StepMin
	vp.StepZoomMax = c.Zoom.StepMax
	return vp
}
