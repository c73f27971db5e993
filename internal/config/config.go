// Package config loads buildctl settings from a config file, BUILDCTL_*
// environment variables and XDG-derived defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const appName = "buildctl"

// Config holds application settings
type Config struct {
	DataDir     string                `mapstructure:"data_dir"`
	CacheDir    string                `mapstructure:"cache_dir"`
	AddonsDir   string                `mapstructure:"addons_dir"`
	DefaultGame string                `mapstructure:"default_game"`
	Games       map[string]GameConfig `mapstructure:"games"`

	// File is the config file that was read, empty when running on defaults
	File string `mapstructure:"-"`
}

// GameConfig holds per-game settings
type GameConfig struct {
	InstallDir string `mapstructure:"install_dir"`
}

// Defaults returns the XDG-derived defaults
func Defaults() Config {
	homeDir, _ := os.UserHomeDir()

	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	dataDir = filepath.Join(dataDir, appName)

	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		cacheDir = filepath.Join(homeDir, ".cache")
	}
	cacheDir = filepath.Join(cacheDir, appName)

	return Config{
		DataDir:     dataDir,
		CacheDir:    cacheDir,
		AddonsDir:   filepath.Join(dataDir, "addons"),
		DefaultGame: "duke3d",
	}
}

// Load reads configuration. configPath may be empty, in which case
// buildctl.{yaml,toml,json} is looked up in the working directory and in
// $XDG_CONFIG_HOME/buildctl. A missing config file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	defaults := Defaults()

	v.SetDefault("data_dir", defaults.DataDir)
	v.SetDefault("cache_dir", defaults.CacheDir)
	v.SetDefault("addons_dir", "")
	v.SetDefault("default_game", defaults.DefaultGame)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(appName)
		v.AddConfigPath(".")
		v.AddConfigPath(configHome())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("BUILDCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// addons_dir follows data_dir unless set explicitly
	if cfg.AddonsDir == "" {
		cfg.AddonsDir = filepath.Join(cfg.DataDir, "addons")
	}
	cfg.File = v.ConfigFileUsed()
	return &cfg, nil
}

// InstallDir returns the configured retail install directory for a game
func (c *Config) InstallDir(game string) string {
	if gc, ok := c.Games[strings.ToLower(game)]; ok {
		return gc.InstallDir
	}
	return ""
}

// ImageCacheDir is where cover images are stored
func (c *Config) ImageCacheDir() string {
	return filepath.Join(c.CacheDir, "images")
}

func configHome() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		homeDir, _ := os.UserHomeDir()
		dir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(dir, appName)
}
