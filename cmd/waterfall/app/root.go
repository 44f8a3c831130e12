package app

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roman-kulish/waterfall/internal/config"
)

const envPrefix = "WATERFALL"

// environment is shared by all commands. The profile is resolved before any
// command runs.
type environment struct {
	logger *slog.Logger
	level  *slog.LevelVar

	profilePath string
	logLevel    string
	profile     *config.Profile
}

// NewRootCmd creates the waterfall command tree. Every flag can also be set
// through a WATERFALL_ prefixed environment variable, e.g. --frame-interval
// through WATERFALL_FRAME_INTERVAL.
func NewRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	env := &environment{
		logger:  logger,
		level:   level,
		profile: config.Default(),
	}

	cmd := &cobra.Command{
		Use:           "waterfall",
		Short:         "Waterfall spectrogram renderer for rtl_power and hackrf_sweep captures",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.init(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&env.profilePath, "profile", "p", "", "Path to a YAML render profile")
	cmd.PersistentFlags().StringVar(&env.logLevel, "log-level", "", "Log level [debug, info, warn, error]")

	cmd.AddCommand(
		newRenderCmd(env),
		newImportCmd(env),
		newSessionsCmd(env),
		newAnnotationsCmd(env),
		newThemesCmd(env),
	)

	return cmd
}

func (e *environment) init(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	bindFlags(cmd, v)

	if e.profilePath != "" {
		p, err := config.LoadFile(e.profilePath)
		if err != nil {
			return fmt.Errorf("loading profile: %w", err)
		}
		e.profile = p
	}

	level := e.profile.Settings.LogLevel
	if e.logLevel != "" {
		level = e.logLevel
	}
	if level != "" && e.level != nil {
		if err := e.level.UnmarshalText([]byte(level)); err != nil {
			return fmt.Errorf("setting log level: %w", err)
		}
	}

	e.logger.Debug("environment ready",
		slog.String("command", cmd.CommandPath()),
		slog.String("profile", e.profilePath),
	)
	return nil
}

// bindFlags applies environment values to every flag of cmd that was not set on
// the command line.
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Environment variables can't have dashes in them, so bind them to their
		// equivalent keys with underscores, e.g. --frame-interval to WATERFALL_FRAME_INTERVAL
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name, fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				cmd.PrintErrf("Could not bind env var %s: %v\n", f.Name, err)
			}
		}

		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				cmd.PrintErrf("Could not set flag value for %s: %v\n", f.Name, err)
			}
		}
	})
}
