// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the litreport CLI. It turns a research
// topic into a ranked, deduplicated paper list with downloaded artifacts,
// persisting progress so interrupted runs resume where they stopped.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/litreport/internal/secrets"
	"github.com/pdiddy/litreport/internal/session"
	"github.com/pdiddy/litreport/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the litreport CLI.
var rootCmd = &cobra.Command{
	Use:   "litreport",
	Short: "Assemble an academic literature report from a research topic",
	Long: `litreport plans a report outline for a free-text research topic, derives
search queries, aggregates candidate papers from arXiv, Semantic Scholar,
Crossref, and OpenAlex, deduplicates and ranks them by relevance, and
downloads full-text artifacts where available.

Progress persists per session: an interrupted run resumes at the first
incomplete stage with 'litreport resume <session-id>'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
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

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./litreport.yaml or ~/.config/litreport/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("litreport")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "litreport"))
		}
	}

	viper.SetEnvPrefix("LITREPORT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig resolves the effective pipeline configuration: defaults, then
// config file and environment, then secrets for anything still unset.
func loadConfig() (types.PipelineConfig, error) {
	cfg := types.DefaultPipelineConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}
	secrets.Apply(loadedSecrets, &cfg)
	return cfg, nil
}

// newLogger builds the CLI logger. Human-readable output on stderr; debug
// level behind --verbose.
func newLogger(cmd *cobra.Command) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

// openStore opens the session database from configuration.
func openStore(cfg types.PipelineConfig, log zerolog.Logger) (*session.Store, error) {
	store, err := session.NewStore(cfg.Store, log)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	return store, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
