// Package config loads this player's preferences — initial volume, the
// UI/mixer backend name, and the Ring Buffer low-water mark — from flags,
// environment, and an optional on-disk file, via viper/mapstructure the
// way Alexander-D-Karpov-amp's internal/config wires its own settings.
// Per §6 ("Persisted state: none"), nothing here ever round-trips
// playback position or playlist contents — preferences only.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config is the full set of this player's preferences.
type Config struct {
	Audio struct {
		DefaultVolume  float64 `mapstructure:"default_volume"`
		LowWaterFrames int     `mapstructure:"low_water_frames"`
		BufferFrames   int     `mapstructure:"buffer_frames"`
		Backend        string  `mapstructure:"backend"`
	} `mapstructure:"audio"`

	UI struct {
		Name     string `mapstructure:"name"`
		NoImage  bool   `mapstructure:"no_image"`
		Theme    string `mapstructure:"theme"`
	} `mapstructure:"ui"`

	Remote struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"remote"`

	Debug bool `mapstructure:"debug"`
}

// Load reads configPath (or the default search path when empty), applies
// environment overrides under the CLIMP_ prefix, and returns a Config
// pre-filled with defaults for every key a missing/partial file omits.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "climp"))
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CLIMP")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("audio.default_volume", 0.8)
	v.SetDefault("audio.low_water_frames", 8192)
	v.SetDefault("audio.buffer_frames", 65536)
	v.SetDefault("audio.backend", "oto")

	v.SetDefault("ui.name", "bubbletea")
	v.SetDefault("ui.no_image", false)
	v.SetDefault("ui.theme", "dark")

	v.SetDefault("remote.enabled", true)

	v.SetDefault("debug", false)
}
