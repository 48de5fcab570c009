// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
//
// Every flag can also be set through a SOLK8S_<FLAG> environment variable or
// a key of the same name in the YAML file given with --config. Flags given on
// the command line win over both.
package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// envPrefix is the environment variable prefix of all flags.
const envPrefix = "solk8s"

// Root returns the root command for the solk8s CLI.
func Root() *cobra.Command {
	var (
		configPath string
		logLevel   string
		logDev     bool
	)

	cmd := &cobra.Command{
		Use:           "solk8s",
		Short:         "Deploy Solana validator test clusters on Kubernetes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initializeConfig(cmd, configPath); err != nil {
				return err
			}
			return setupLogger(cmd, logLevel, logDev)
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML file with flag values")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&logDev, "log-dev", false, "Human-readable development logging")

	cmd.AddCommand(Deploy())
	cmd.AddCommand(Render())
	cmd.AddCommand(Verify())
	cmd.AddCommand(Version())

	return cmd
}

// initializeConfig binds the flags of cmd to SOLK8S_* environment variables
// and the optional config file.
func initializeConfig(cmd *cobra.Command, configPath string) error {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return bindFlags(cmd, v)
}

// bindFlags copies viper values into every flag not set on the command line.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var errs []string

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed || f.Name == "config" || !v.IsSet(f.Name) {
			return
		}

		val := v.Get(f.Name)
		if list, ok := val.([]any); ok {
			parts := make([]string, 0, len(list))
			for _, item := range list {
				parts = append(parts, fmt.Sprint(item))
			}
			val = strings.Join(parts, ",")
		}
		if err := cmd.Flags().Set(f.Name, fmt.Sprint(val)); err != nil {
			errs = append(errs, fmt.Sprintf("--%s: %v", f.Name, err))
		}
	})

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// setupLogger installs a zap-backed logr.Logger into the command context.
func setupLogger(cmd *cobra.Command, level string, dev bool) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}

	opts := zap.Options{
		Development: dev,
		Level:       lvl,
		DestWriter:  os.Stderr,
	}
	logger := zap.New(zap.UseFlagOptions(&opts))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(log.IntoContext(ctx, logger))
	return nil
}
