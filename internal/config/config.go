// Package config loads the ambient compositor-level settings that are
// not part of the delegated external configuration language (spec §1
// Non-goals, SPEC_FULL §2): the socket name override, idle timeout,
// and default backend list, via github.com/spf13/viper, mirroring
// bnema/waymon's own viper usage.
package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Settings is the resolved ambient configuration for one compositor
// run.
type Settings struct {
	SocketName       string
	IdleTimeout      time.Duration
	Backends         []string
	ThemeOverlayPath string
	LogLevel         string
}

// Defaults returns the built-in settings used when no config file,
// environment variable or flag overrides them. The backend order
// ("x11,metal") mirrors original_source/src/cli.rs's try-in-order
// default (SPEC_FULL §5).
func Defaults() Settings {
	return Settings{
		SocketName:  "wayland-1",
		IdleTimeout: 5 * time.Minute,
		Backends:    []string{"x11", "metal"},
		LogLevel:    "info",
	}
}

// Load resolves Settings from, in increasing priority: built-in
// defaults, an optional jaywl.yaml under $XDG_CONFIG_HOME/jaywl or
// $HOME/.config/jaywl, JAYWL_-prefixed environment variables, and
// finally flags already parsed onto fs (typically cmd.Flags() from
// the run subcommand).
func Load(fs *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("jaywl")
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("socket_name", d.SocketName)
	v.SetDefault("idle_timeout", d.IdleTimeout.String())
	v.SetDefault("backends", d.Backends)
	v.SetDefault("theme_path", "")
	v.SetDefault("log_level", d.LogLevel)

	v.SetConfigName("jaywl")
	v.SetConfigType("yaml")
	v.AddConfigPath("$XDG_CONFIG_HOME/jaywl")
	v.AddConfigPath("$HOME/.config/jaywl")
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, errors.Wrap(err, "config: read jaywl.yaml")
		}
	}

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, errors.Wrap(err, "config: bind flags")
		}
	}

	idle, err := time.ParseDuration(v.GetString("idle_timeout"))
	if err != nil {
		return nil, errors.Wrapf(err, "config: invalid idle_timeout %q", v.GetString("idle_timeout"))
	}

	return &Settings{
		SocketName:       v.GetString("socket_name"),
		IdleTimeout:      idle,
		Backends:         v.GetStringSlice("backends"),
		ThemeOverlayPath: v.GetString("theme_path"),
		LogLevel:         v.GetString("log_level"),
	}, nil
}
