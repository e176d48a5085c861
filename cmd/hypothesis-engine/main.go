// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the hypothesis-engine CLI.
// See docs/ARCHITECTURE § Pipeline Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/hypothesis-engine/internal/gateway"
	"github.com/pdiddy/hypothesis-engine/internal/secrets"
	"github.com/pdiddy/hypothesis-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the hypothesis-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "hypothesis-engine",
	Short: "Automated scientific hypothesis discovery pipeline",
	Long: `hypothesis-engine automates a multi-stage hypothesis discovery workflow:
screen an inspiration corpus against a research background, evolve hypothesis
lineages by recombination and self-refinement, then score and rank the
survivors.

Each stage is a subcommand (corpus, screen, evolve, evaluate, report) reading
the previous stage's checkpoint and writing its own, so a run can resume from
any completed stage.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; absence is not an error.
		godotenv.Load()

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./hypothesis-engine.yaml or ~/.config/hypothesis-engine/config.yaml)")
	rootCmd.PersistentFlags().String("checkpoint-dir", "checkpoints", "directory for stage checkpoints")
	rootCmd.PersistentFlags().String("trace-dir", "trace", "directory for the run-trace database")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("hypothesis-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "hypothesis-engine"))
		}
	}

	viper.SetEnvPrefix("HYPOTHESIS_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// stringSetting resolves a setting: explicit flag, then config file/env.
func stringSetting(cmd *cobra.Command, flag, key string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v
	}
	return viper.GetString(key)
}

func intSetting(cmd *cobra.Command, flag, key string) int {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetInt(flag)
		return v
	}
	if viper.IsSet(key) {
		return viper.GetInt(key)
	}
	v, _ := cmd.Flags().GetInt(flag)
	return v
}

// gatewayConfig assembles the generation gateway configuration from flags,
// config, secrets, and environment.
func gatewayConfig(cmd *cobra.Command) (types.GatewayConfig, error) {
	cfg := types.GatewayConfig{
		Model:   stringSetting(cmd, "model", "gateway.model"),
		BaseURL: stringSetting(cmd, "base-url", "gateway.base_url"),
		APIKey:  secrets.Resolve(loadedSecrets, "openai-api-key", "OPENAI_API_KEY"),
		Timeout: viper.GetDuration("gateway.timeout"),
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = secrets.Resolve(loadedSecrets, "openai-base-url", "OPENAI_BASE_URL")
	}
	if cfg.Model == "" {
		return types.GatewayConfig{}, fmt.Errorf("no model configured: set --model, gateway.model, or HYPOTHESIS_ENGINE_GATEWAY_MODEL")
	}
	if cfg.APIKey == "" {
		return types.GatewayConfig{}, fmt.Errorf("no API key configured: set .secrets/openai-api-key or OPENAI_API_KEY")
	}
	return cfg, nil
}

// newGateway builds the gateway over the OpenAI-compatible backend, logging
// attempts both to stderr and to log (usually the trace store).
func newGateway(cfg types.GatewayConfig, log gateway.AttemptLogger) *gateway.Gateway {
	attemptLog := gateway.AttemptLogger(gateway.WriterLogger{W: os.Stderr})
	if log != nil {
		attemptLog = teeLogger{a: attemptLog, b: log}
	}
	return gateway.New(gateway.NewOpenAIBackend(cfg), cfg, attemptLog)
}

// teeLogger fans attempt records out to two loggers.
type teeLogger struct {
	a, b gateway.AttemptLogger
}

func (t teeLogger) LogAttempt(op string, attempt int, delay time.Duration, err error) {
	t.a.LogAttempt(op, attempt, delay, err)
	t.b.LogAttempt(op, attempt, delay, err)
}

func checkpointDir() string {
	dir, _ := rootCmd.PersistentFlags().GetString("checkpoint-dir")
	if dir == "" {
		dir = viper.GetString("checkpoint.dir")
	}
	return dir
}

func traceDir() string {
	dir, _ := rootCmd.PersistentFlags().GetString("trace-dir")
	if dir == "" {
		dir = "trace"
	}
	return dir
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
