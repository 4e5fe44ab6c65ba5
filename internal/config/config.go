// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads the pipeline configuration from medai-miner.yaml,
// MEDAI_* environment variables and command-line flags, and sets up the
// global zap logger.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/medai-miner/pkg/types"
)

// Name is the config file base name and the ~/.config subdirectory.
const Name = "medai-miner"

// EnvPrefix prefixes every environment override, e.g. MEDAI_LLM_API_KEY.
const EnvPrefix = "MEDAI"

// New returns a viper instance with the search paths, environment binding
// and defaults set. cfgFile, when non-empty, replaces the search paths.
func New(cfgFile string) *viper.Viper {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", Name))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

// Every key has a default so AutomaticEnv can override it on Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", string(types.StoreSQLite))
	v.SetDefault("store.dsn", "medai-miner.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("metrics.textfile_path", "")

	v.SetDefault("llm.model", "claude-haiku-4-5-20251001")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.timeout", 2*time.Minute)

	v.SetDefault("harvest.timeout", time.Minute)
	v.SetDefault("harvest.user_agent", "medai-miner/0.1")
	v.SetDefault("harvest.max_results", 50)
	v.SetDefault("harvest.enable_arxiv", true)
	v.SetDefault("harvest.enable_semantic_scholar", true)
	v.SetDefault("harvest.semantic_scholar_api_key", "")
	v.SetDefault("harvest.enable_openalex", true)
	v.SetDefault("harvest.openalex_email", "")
	v.SetDefault("harvest.inter_backend_delay", time.Second)

	v.SetDefault("enrich.reprocess", false)
	v.SetDefault("enrich.offset", 0)
	v.SetDefault("enrich.limit", 0)
	v.SetDefault("enrich.id_prefix", "")

	v.SetDefault("classify.model", "")
	v.SetDefault("classify.batch_size", 50)
	v.SetDefault("classify.batch_delay", time.Second)
	v.SetDefault("classify.max_tokens", 4096)
	v.SetDefault("classify.description_chars", 400)
	v.SetDefault("classify.offset", 0)
	v.SetDefault("classify.limit", 0)
	v.SetDefault("classify.id_prefix", "")

	v.SetDefault("metadata.model", "")
	v.SetDefault("metadata.max_tokens", 2048)
	v.SetDefault("metadata.record_delay", time.Second)
	v.SetDefault("metadata.reprocess", false)
	v.SetDefault("metadata.offset", 0)
	v.SetDefault("metadata.limit", 0)
	v.SetDefault("metadata.id_prefix", "")
}

// Load reads the config file if one exists and decodes v into a
// PipelineConfig. A missing config file is not an error.
func Load(v *viper.Viper) (*types.PipelineConfig, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg types.PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	cfg.Store.Driver = inferDriver(cfg.Store)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// inferDriver selects postgres when the DSN is a postgres URL, so --store
// or MEDAI_STORE_DSN alone can point the CLI at a shared database.
func inferDriver(sc types.StoreConfig) types.StoreDriver {
	dsn := strings.ToLower(sc.DSN)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return types.StorePostgres
	}
	return sc.Driver
}

// Validate rejects settings no stage can run with.
func Validate(cfg *types.PipelineConfig) error {
	switch cfg.Store.Driver {
	case types.StoreSQLite, types.StorePostgres:
	default:
		return eris.Errorf("config: unknown store driver %q", cfg.Store.Driver)
	}
	if cfg.Store.DSN == "" {
		return eris.New("config: store.dsn is required")
	}
	if cfg.LLM.MaxRetries < 0 {
		return eris.New("config: llm.max_retries must not be negative")
	}
	for name, n := range map[string]int{
		"enrich.offset":   cfg.Enrich.Offset,
		"enrich.limit":    cfg.Enrich.Limit,
		"classify.offset": cfg.Classify.Offset,
		"classify.limit":  cfg.Classify.Limit,
		"metadata.offset": cfg.Metadata.Offset,
		"metadata.limit":  cfg.Metadata.Limit,
	} {
		if n < 0 {
			return eris.Errorf("config: %s must not be negative", name)
		}
	}
	return nil
}

// InitLogger replaces the global zap logger. Format "console" selects the
// development encoder; anything else logs JSON.
func InitLogger(cfg types.LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}
