package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kittclouds/tinysearch/internal/config"
	"github.com/kittclouds/tinysearch/internal/tiered"
)

func buildCmd() *cobra.Command {
	v := viper.New()
	var configPath string

	c := &cobra.Command{
		Use:   "build",
		Short: "Build the six zone indexes from a corpus directory",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			corpusDir, _ := cmd.Flags().GetString("corpus")
			indexDir, _ := cmd.Flags().GetString("index-dir")
			if corpusDir != "" {
				v.Set("corpus_dir", corpusDir)
			}
			if indexDir != "" {
				v.Set("index_dir", indexDir)
			}

			cfg, err := config.Load(v, configPath)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(cfg.IndexDir, 0o755); err != nil {
				return fmt.Errorf("create index dir %s: %w", cfg.IndexDir, err)
			}

			set := tiered.New(cfg.IndexDir, cfg.MaxNGram, cfg.PageRankDamping, cfg.PageRankIterations)
			stats, err := set.BuildTieredIndexes(cfg.CorpusDir)
			if err != nil {
				return fmt.Errorf("build: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "documents accepted:     %d\n", stats.DocumentsAccepted)
			fmt.Fprintf(cmd.OutOrStdout(), "exact duplicates:       %d\n", stats.ExactDuplicatesSkipped)
			fmt.Fprintf(cmd.OutOrStdout(), "near duplicates:        %d\n", stats.NearDuplicatesSkipped)
			fmt.Fprintf(cmd.OutOrStdout(), "invalid corpus entries: %d\n", stats.CorpusEntriesInvalid)
			for name, n := range stats.TermsPerZone {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-10s terms: %d\n", name, n)
			}
			return nil
		},
	}

	c.Flags().String("corpus", "", "Corpus directory of CorpusEntry JSON files")
	c.Flags().String("index-dir", "", "Directory to write the built indexes into")
	c.Flags().StringVar(&configPath, "config", "", "Directory to search for tinysearch.yaml")
	return c
}
