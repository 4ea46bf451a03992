// Package config loads server settings from an optional YAML file, a .env
// file and TOOLROOM_* environment variables, in increasing priority.
//
// Environment keys are the upper-cased config keys with dots replaced by
// underscores: store.sqlite_path -> TOOLROOM_STORE_SQLITE_PATH.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Store struct {
		Driver      string
		SQLitePath  string `mapstructure:"sqlite_path"`
		PostgresDSN string `mapstructure:"postgres_dsn"`
	} `mapstructure:"store"`

	Lock struct {
		Timeout time.Duration
	} `mapstructure:"lock"`

	Cache struct {
		TTL           time.Duration
		MaxEntryBytes int `mapstructure:"max_entry_bytes"`
		Size          int
	} `mapstructure:"cache"`

	Blob struct {
		Driver  string
		FSRoot  string `mapstructure:"fs_root"`
		BaseURL string `mapstructure:"base_url"`
		S3      struct {
			Bucket          string
			Region          string
			Endpoint        string
			PathStyle       bool   `mapstructure:"path_style"`
			AccessKeyID     string `mapstructure:"access_key_id"`
			SecretAccessKey string `mapstructure:"secret_access_key"`
		} `mapstructure:"s3"`
	} `mapstructure:"blob"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Merge struct {
		Interval time.Duration
	} `mapstructure:"merge"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("app.timezone", "UTC")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "./data/toolroom.db")
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("lock.timeout", 30*time.Second)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.max_entry_bytes", 100*1024)
	v.SetDefault("cache.size", 64)
	v.SetDefault("blob.driver", "none")
	v.SetDefault("blob.fs_root", "./data/photos")
	v.SetDefault("blob.base_url", "/photos")
	v.SetDefault("blob.s3.bucket", "")
	v.SetDefault("blob.s3.region", "us-east-1")
	v.SetDefault("blob.s3.endpoint", "")
	v.SetDefault("blob.s3.path_style", false)
	v.SetDefault("blob.s3.access_key_id", "")
	v.SetDefault("blob.s3.secret_access_key", "")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("merge.interval", time.Duration(0))
}

// Load reads path (skipped when empty) on top of the defaults. A .env file
// in the working directory, if present, is loaded into the environment
// first without overriding variables already set.
func Load(path string) (Config, error) {
	var c Config
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return c, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	defaults(v)
	v.SetEnvPrefix("TOOLROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return c, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, c.Validate()
}

// Validate rejects unknown drivers and missing driver settings.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return errors.New("store.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	switch c.Blob.Driver {
	case "none", "fs":
	case "s3":
		if c.Blob.S3.Bucket == "" {
			return errors.New("blob.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown blob.driver %q", c.Blob.Driver)
	}
	if c.Lock.Timeout <= 0 {
		return errors.New("lock.timeout must be positive")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("app.timezone: %w", err)
	}
	return nil
}

// Location resolves App.Timezone. Validate has already checked it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
