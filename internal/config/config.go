// Package config binds tinysearch's runtime settings from flags, an
// optional tinysearch.yaml file, and TINYSEARCH_* environment variables,
// the way PaperHunter's config package binds its own viper-backed
// AppConfig.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds every setting the build and query commands need.
type Config struct {
	CorpusDir string `mapstructure:"corpus_dir" yaml:"corpus_dir"`
	IndexDir  string `mapstructure:"index_dir" yaml:"index_dir"`

	MaxNGram int `mapstructure:"max_ngram" yaml:"max_ngram"`
	K        int `mapstructure:"k" yaml:"k"`

	PageRankDamping    float64 `mapstructure:"pagerank_damping" yaml:"pagerank_damping"`
	PageRankIterations int     `mapstructure:"pagerank_iterations" yaml:"pagerank_iterations"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("corpus_dir", "./corpus")
	v.SetDefault("index_dir", "./index")
	v.SetDefault("max_ngram", 2)
	v.SetDefault("k", 10)
	v.SetDefault("pagerank_damping", 0.85)
	v.SetDefault("pagerank_iterations", 5)
}

// Load builds a Config from (in ascending priority) defaults, an optional
// tinysearch.yaml found on configPaths, TINYSEARCH_* environment
// variables, and finally values the caller has already put into v with
// v.Set (the build and query commands set their flag values this way
// before Load runs).
func Load(v *viper.Viper, configPaths ...string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	v.SetConfigName("tinysearch")
	v.SetConfigType("yaml")
	for _, p := range configPaths {
		if p == "" {
			continue
		}
		v.AddConfigPath(p)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("TINYSEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read tinysearch.yaml: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if cfg.CorpusDir == "" || cfg.IndexDir == "" {
		return nil, fmt.Errorf("config: corpus_dir and index_dir must both be set")
	}
	if cfg.K <= 0 {
		return nil, fmt.Errorf("config: k must be positive, got %d", cfg.K)
	}
	return cfg, nil
}
