// Package config loads optional session defaults from $HOME/.deet.yaml
// using github.com/spf13/viper. None of the documented default
// behaviors change when the file is absent; this is a purely optional
// overlay on top of Default.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds the session defaults a ".deet.yaml" may override.
type Config struct {
	// HistoryPath overrides the default $HOME/.deet_history location.
	HistoryPath string
	// DumpInfo makes "-i" the default even when not passed on argv.
	DumpInfo bool
	// NoColor disables ui package colorization regardless of whether
	// stdout is a terminal.
	NoColor bool
}

// Default returns the hardcoded session defaults, used when no config
// file is present or it fails to parse.
func Default(home string) Config {
	return Config{
		HistoryPath: filepath.Join(home, ".deet_history"),
		DumpInfo:    false,
		NoColor:     false,
	}
}

// Load reads $HOME/.deet.yaml if present, overlaying it on Default(home).
// A missing or unreadable file is not an error: Load falls back to
// Default silently.
func Load() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	cfg := Default(home)

	v := viper.New()
	v.SetConfigName(".deet")
	v.SetConfigType("yaml")
	v.AddConfigPath(home)
	v.SetDefault("history_path", cfg.HistoryPath)
	v.SetDefault("dump_info", cfg.DumpInfo)
	v.SetDefault("no_color", cfg.NoColor)

	if err := v.ReadInConfig(); err != nil {
		return cfg
	}

	cfg.HistoryPath = v.GetString("history_path")
	cfg.DumpInfo = v.GetBool("dump_info")
	cfg.NoColor = v.GetBool("no_color")
	return cfg
}
