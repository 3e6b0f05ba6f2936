// Package main is coinctl, the operator CLI for the CoinMind ledger.
// It runs maintenance operations against the same data directory the server uses.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Ahmed-aleryani/coinmind/internal/config"
	"github.com/Ahmed-aleryani/coinmind/internal/di"
	"github.com/Ahmed-aleryani/coinmind/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "COINMIND"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app carries per-invocation state shared by subcommands
type app struct {
	v   *viper.Viper
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:   "coinctl",
		Short: "Maintenance commands for the CoinMind ledger",
		Long: `coinctl operates on the CoinMind ledger database directly.

Configuration is read from the environment (and .env) exactly like the
server. Flags and COINMIND_* variables override it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initConfig(cmd)
		},
	}

	cmd.PersistentFlags().String("config", "", "config file (yaml, toml or json)")
	cmd.PersistentFlags().String("data-dir", "", "directory holding ledger.db")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	_ = a.v.BindPFlag("data_dir", cmd.PersistentFlags().Lookup("data-dir"))
	_ = a.v.BindPFlag("log_level", cmd.PersistentFlags().Lookup("log-level"))

	cmd.AddCommand(
		reconvertCmd(a),
		migrateLegacyCmd(a),
		rateCmd(a),
		backupCmd(a),
		seedCmd(a),
		checkCmd(a),
	)

	return cmd
}

func (a *app) initConfig(cmd *cobra.Command) error {
	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	a.log = logger.NewWithWriter(cmd.ErrOrStderr(), logger.Config{
		Level:  a.v.GetString("log_level"),
		Pretty: true,
	})
	return nil
}

// loadConfig loads the server configuration and applies CLI overrides
func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dir := a.v.GetString("data_dir"); dir != "" {
		if err := cfg.SetDataDir(dir); err != nil {
			return nil, err
		}
	}
	// Maintenance runs never need the scheduler
	cfg.Schedules = config.ScheduleConfig{}
	return cfg, nil
}

// openContainer wires the full dependency graph. Callers must Close it.
func (a *app) openContainer(ctx context.Context) (*di.Container, *config.Config, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	container, _, err := di.Wire(ctx, cfg, a.log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to wire dependencies: %w", err)
	}
	return container, cfg, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
