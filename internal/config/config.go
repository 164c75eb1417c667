// Package config wires Viper with config paths, env, defaults, and flag
// bindings.
package config

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vidfit/internal/dirs"
)

// Tuning keys. These deliberately have no flags: they exist for users who
// need to correct for a local ffmpeg build that consistently lands outside
// the band.
const (
	KeyOvershootComp = "tuning.overshoot_comp"
	KeyDamping       = "tuning.damping"
)

// Init wires Viper with config paths, env, defaults, and flag bindings.
// It is non-fatal: any errors are returned for optional handling by caller.
func Init(root *cobra.Command) error {
	// Ensure base directories exist
	_ = dirs.EnsureAll()

	// Setup config search path
	if cfgDir, err := dirs.ConfigDir(); err == nil {
		_ = dirs.Ensure(cfgDir)
		viper.AddConfigPath(cfgDir)
	}
	viper.SetConfigName("config") // supports config.{yaml|yml|json|toml}

	// Environment variables: VIDFIT_*
	viper.SetEnvPrefix("VIDFIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault(KeyOvershootComp, 0.0) // 0 = built-in default
	viper.SetDefault(KeyDamping, 0.0)

	// Bind root persistent flags to Viper keys
	_ = viper.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("ffmpeg", root.PersistentFlags().Lookup("ffmpeg"))
	_ = viper.BindPFlag("ffprobe", root.PersistentFlags().Lookup("ffprobe"))
	_ = viper.BindPFlag("jobs", root.PersistentFlags().Lookup("jobs"))

	// Read config file if present (ignore not found)
	_ = viper.ReadInConfig()

	return nil
}
