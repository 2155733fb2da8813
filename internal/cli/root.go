package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smokyabdulrahman/prayer-companion/internal/config"
	"github.com/smokyabdulrahman/prayer-companion/internal/display"
	"github.com/smokyabdulrahman/prayer-companion/internal/logging"
)

// Global flags shared across all subcommands.
var (
	FlagLatitude   float64
	FlagLongitude  float64
	FlagMethod     int
	FlagJSON       bool
	FlagCacheDir   string
	FlagTimeFormat string
	FlagLogLevel   string
)

// loadedConfig holds the file and environment settings loaded during
// PersistentPreRunE. Available to all subcommand handlers.
var loadedConfig *config.Config

// logger is built once the effective log level is known.
var logger = zerolog.Nop()

// NewRootCmd creates the root command for the prayer-times CLI.
// The version parameter is set by the calling binary via ldflags.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "prayer-times",
		Short:   "Islamic prayer times companion",
		Long:    "Prayer times, a live countdown to the next prayer, fasting progress and the Qibla bearing, powered by the Al Adhan API.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.ApplyEnv(); err != nil {
				return fmt.Errorf("invalid environment: %w", err)
			}
			loadedConfig = cfg

			eff := effectiveConfig(cmd)
			logger = logging.New(eff.LogLevel, os.Stderr)
			if FlagJSON {
				display.SetEnabled(false)
			}
			return nil
		},
		// Default action: show today's prayer schedule.
		RunE:          runToday,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate("prayer-times version {{.Version}}\n")

	// Register global persistent flags.
	pf := rootCmd.PersistentFlags()
	pf.Float64Var(&FlagLatitude, "latitude", 0, "Override latitude")
	pf.Float64Var(&FlagLongitude, "longitude", 0, "Override longitude")
	pf.IntVar(&FlagMethod, "method", -1, "Override calculation method (0-16)")
	pf.BoolVar(&FlagJSON, "json", false, "Output as JSON (where supported)")
	pf.StringVar(&FlagCacheDir, "cache-dir", "", "Cache directory (default: ~/.cache/prayer-companion/)")
	pf.StringVar(&FlagTimeFormat, "time-format", "", "Time format: 12h or 24h (overrides config)")
	pf.StringVar(&FlagLogLevel, "log-level", "", "Log level: debug, info, warn, error or off")

	// Register subcommands.
	rootCmd.AddCommand(newNextCmd())
	rootCmd.AddCommand(newFastingCmd())
	rootCmd.AddCommand(newQiblaCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newMethodsCmd())

	return rootCmd
}

// effectiveConfig returns the merged configuration values,
// applying the priority: CLI flags > environment > config file > defaults.
// It uses cobra's Changed() to detect whether a flag was explicitly set.
// The loaded configuration is copied, never modified.
func effectiveConfig(cmd *cobra.Command) *config.Config {
	var cfg config.Config
	if loadedConfig != nil {
		cfg = *loadedConfig
	}

	flags := cmd.Flags()
	root := cmd.Root().PersistentFlags()

	if flagWasSet(flags, root, "latitude") {
		lat := FlagLatitude
		cfg.Latitude = &lat
	}
	if flagWasSet(flags, root, "longitude") {
		lon := FlagLongitude
		cfg.Longitude = &lon
	}
	if flagWasSet(flags, root, "method") {
		method := FlagMethod
		cfg.Method = &method
	}
	if flagWasSet(flags, root, "cache-dir") {
		cfg.CacheDir = FlagCacheDir
	}
	if flagWasSet(flags, root, "time-format") {
		cfg.TimeFormat = FlagTimeFormat
	}
	if flagWasSet(flags, root, "log-level") {
		cfg.LogLevel = FlagLogLevel
	}

	cfg.ApplyDefaults()
	return &cfg
}

// validateFlags rejects flag values that config.Set would also reject.
func validateFlags(cfg *config.Config) error {
	var errs []error
	if cfg.Latitude != nil {
		errs = append(errs, (&config.Config{}).Set("latitude", fmt.Sprint(*cfg.Latitude)))
	}
	if cfg.Longitude != nil {
		errs = append(errs, (&config.Config{}).Set("longitude", fmt.Sprint(*cfg.Longitude)))
	}
	errs = append(errs,
		(&config.Config{}).Set("method", fmt.Sprint(cfg.MethodOrDefault(-1))),
		(&config.Config{}).Set("time_format", cfg.TimeFormat),
	)
	return errors.Join(errs...)
}

// flagWasSet checks if a flag was explicitly set on either the local or persistent flag set.
func flagWasSet(local, persistent *pflag.FlagSet, name string) bool {
	if f := local.Lookup(name); f != nil && f.Changed {
		return true
	}
	if f := persistent.Lookup(name); f != nil && f.Changed {
		return true
	}
	return false
}
