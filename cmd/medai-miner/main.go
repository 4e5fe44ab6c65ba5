// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the medai-miner CLI: harvest papers,
// enrich them heuristically, curate them with the title filter and the
// batched LLM classifier, and extract structured metadata.
package main

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/medai-miner/internal/config"
	"github.com/pdiddy/medai-miner/internal/metrics"
	"github.com/pdiddy/medai-miner/internal/secrets"
	"github.com/pdiddy/medai-miner/internal/store"
	"github.com/pdiddy/medai-miner/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	cfgFile    string
	secretsDir string

	// cfg is loaded in the root PersistentPreRunE before any command runs.
	cfg *types.PipelineConfig
)

// flagKeyPrefix marks command annotations that bind a flag to a config key.
const flagKeyPrefix = "config-key:"

var rootCmd = &cobra.Command{
	Use:   "medai-miner",
	Short: "Mine and curate medical AI papers and models",
	Long: `medai-miner harvests candidate medical AI records from paper search APIs,
enriches them with architecture, metric, specialty and code-link heuristics,
removes off-topic records with a title filter and a batched LLM classifier,
and extracts structured dataset/methodology/validation/results metadata.

Each stage is a subcommand and can be rerun; every record write is its own
update, so an interrupted run keeps the work it finished.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cfg != nil {
			if err := metrics.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
				zap.L().Warn("could not write metrics textfile", zap.Error(err))
			}
		}
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./medai-miner.yaml or ~/.config/medai-miner/medai-miner.yaml)")
	rootCmd.PersistentFlags().StringVar(&secretsDir, "secrets-dir", secrets.DefaultDir, "directory of API key files")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("store", "", "store DSN: sqlite file path, or a postgres:// URL (selects the postgres driver)")
	bindFlag(rootCmd, "log-level", "log.level")
	bindFlag(rootCmd, "store", "store.dsn")
}

// bindFlag records that flag overrides the config key. The binding is
// applied to the viper instance created for the running command.
func bindFlag(cmd *cobra.Command, flag, key string) {
	if cmd.Annotations == nil {
		cmd.Annotations = make(map[string]string)
	}
	cmd.Annotations[flagKeyPrefix+flag] = key
}

func loadConfig(cmd *cobra.Command, args []string) error {
	v := config.New(cfgFile)
	for c := cmd; c != nil; c = c.Parent() {
		if err := applyBindings(v, cmd, c); err != nil {
			return err
		}
	}

	c, err := config.Load(v)
	if err != nil {
		return err
	}

	s, err := secrets.Load(secretsDir)
	if err != nil {
		return err
	}
	secrets.Fill(&c.LLM.APIKey, s, secrets.AnthropicAPIKey)
	secrets.Fill(&c.Harvest.SemanticScholarAPIKey, s, secrets.SemanticScholarAPIKey)
	secrets.Fill(&c.Harvest.OpenAlexEmail, s, secrets.OpenAlexEmail)

	if err := config.InitLogger(c.Log); err != nil {
		return err
	}
	if len(s) > 0 {
		keys := make([]string, 0, len(s))
		for k := range s {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		zap.L().Debug("loaded secrets", zap.Strings("keys", keys))
	}
	if used := v.ConfigFileUsed(); used != "" {
		zap.L().Debug("using config file", zap.String("path", used))
	}

	cfg = c
	return nil
}

// applyBindings binds the flags owner declared through bindFlag, looked up
// on the running command so inherited persistent flags resolve.
func applyBindings(v *viper.Viper, running, owner *cobra.Command) error {
	for k, key := range owner.Annotations {
		flag, ok := strings.CutPrefix(k, flagKeyPrefix)
		if !ok {
			continue
		}
		f := running.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

// openStore opens the configured record store.
func openStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
