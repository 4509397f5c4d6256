// Package config provides a reusable loader for the ledger indexer's
// configuration files and environment variables. It is versioned so that
// applications embedding the core can depend on a stable API contract.
//
// Version: v0.2.0
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"ledgercore/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.2.0"

// Config is the configuration surface the core itself needs to be
// constructed with. It deliberately excludes RPC bind addresses, consensus
// parameters, and genesis parsing — those belong to collaborators running
// alongside this indexer core, not to the core itself.
type Config struct {
	Storage struct {
		WALPath     string `mapstructure:"wal_path" json:"wal_path"`
		ArchivePath string `mapstructure:"archive_path" json:"archive_path"`
		StatePath   string `mapstructure:"state_path" json:"state_path"`
		IndexPath   string `mapstructure:"index_path" json:"index_path"`
	} `mapstructure:"storage" json:"storage"`

	Sync struct {
		StabilityWindow uint64 `mapstructure:"stability_window" json:"stability_window"`
		StopEpoch       int64  `mapstructure:"stop_epoch" json:"stop_epoch"`
	} `mapstructure:"sync" json:"sync"`

	Housekeeping struct {
		PruneIntervalSeconds int   `mapstructure:"prune_interval_seconds" json:"prune_interval_seconds"`
		MaxPrunePerTick      int   `mapstructure:"max_prune_per_tick" json:"max_prune_per_tick"`
		MaxArchiveSlots      int64 `mapstructure:"max_archive_slots" json:"max_archive_slots"`
	} `mapstructure:"housekeeping" json:"housekeeping"`

	Follower struct {
		ChannelCapacity int `mapstructure:"channel_capacity" json:"channel_capacity"`
	} `mapstructure:"follower" json:"follower"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Default populates Config with values sane for a local, single-node
// development run.
func Default() Config {
	var c Config
	c.Storage.WALPath = "./data/wal"
	c.Storage.ArchivePath = "./data/archive"
	c.Storage.StatePath = "./data/state"
	c.Storage.IndexPath = "./data/index"
	c.Sync.StabilityWindow = 2160
	c.Sync.StopEpoch = -1
	c.Housekeeping.PruneIntervalSeconds = 60
	c.Housekeeping.MaxPrunePerTick = 5000
	c.Housekeeping.MaxArchiveSlots = 0
	c.Follower.ChannelCapacity = 256
	c.Logging.Level = "info"
	return c
}

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, no environment-specific file is merged: the result
// is the defaults overlaid with indexer.yaml, when one is found.
func Load(env string) (*Config, error) {
	AppConfig = Default()

	viper.SetConfigName("indexer")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, utils.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the LEDGERCORE_ENV environment
// variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("LEDGERCORE_ENV", ""))
}
