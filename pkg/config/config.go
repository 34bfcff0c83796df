// Package config provides a reusable loader for syncstore configuration
// files and environment variables. It is versioned so that applications can
// depend on a stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config represents the unified configuration for a syncstore node. It
// mirrors the structure of the YAML files Load reads (default.yaml plus an
// optional overlay, searched for in cmd/config and config).
type Config struct {
	Server struct {
		ListenAddr      string `mapstructure:"listen_addr" json:"listen_addr"`
		AdminListenAddr string `mapstructure:"admin_listen_addr" json:"admin_listen_addr"`
	} `mapstructure:"server" json:"server"`

	Backend struct {
		// Kind selects a ValueStore implementation: "memory" or "ipfs".
		Kind         string `mapstructure:"kind" json:"kind"`
		IPFSGateway  string `mapstructure:"ipfs_gateway" json:"ipfs_gateway"`
		CacheEntries int    `mapstructure:"cache_entries" json:"cache_entries"`
	} `mapstructure:"backend" json:"backend"`

	DefaultBranch string `mapstructure:"default_branch" json:"default_branch"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// Defaults returns a Config populated with the values a freshly installed
// node should start from.
func Defaults() Config {
	var c Config
	c.Server.ListenAddr = "127.0.0.1:7420"
	c.Server.AdminListenAddr = "127.0.0.1:7421"
	c.Backend.Kind = "memory"
	c.Backend.CacheEntries = 4096
	c.DefaultBranch = "main"
	c.Logging.Level = "info"
	return c
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig = Defaults()

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and
// returned. env selects an optional overlay file (e.g. "production" reads
// production.yaml over default.yaml); an empty env loads only the default
// file. Every field also has a SYNC_-prefixed environment variable override
// (e.g. SYNC_SERVER_LISTEN_ADDR), applied last.
func Load(env string) (*Config, error) {
	AppConfig = Defaults()

	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("merge %s config: %w", env, err)
		}
	}

	// Registering every field as a default makes viper consult its
	// environment variable even when no file sets it.
	d := Defaults()
	viper.SetDefault("server.listen_addr", d.Server.ListenAddr)
	viper.SetDefault("server.admin_listen_addr", d.Server.AdminListenAddr)
	viper.SetDefault("backend.kind", d.Backend.Kind)
	viper.SetDefault("backend.ipfs_gateway", d.Backend.IPFSGateway)
	viper.SetDefault("backend.cache_entries", d.Backend.CacheEntries)
	viper.SetDefault("default_branch", d.DefaultBranch)
	viper.SetDefault("logging.level", d.Logging.Level)
	viper.SetDefault("logging.file", d.Logging.File)

	viper.SetEnvPrefix("SYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the SYNC_ENV environment variable to
// select the overlay file, defaulting to the base config when unset.
func LoadFromEnv() (*Config, error) {
	env := os.Getenv("SYNC_ENV")
	return Load(env)
}
