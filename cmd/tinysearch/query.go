package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kittclouds/tinysearch/internal/config"
	"github.com/kittclouds/tinysearch/internal/scorer"
	"github.com/kittclouds/tinysearch/internal/tiered"
)

const noGoodResults = "no good results"

func queryCmd() *cobra.Command {
	v := viper.New()
	var configPath string

	c := &cobra.Command{
		Use:   "query",
		Short: "Open an interactive REPL against a built index",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			indexDir, _ := cmd.Flags().GetString("index-dir")
			if indexDir != "" {
				v.Set("index_dir", indexDir)
			}
			cfg, err := config.Load(v, configPath)
			if err != nil {
				return err
			}

			set, err := tiered.Load(cfg.IndexDir, cfg.MaxNGram)
			if err != nil {
				return fmt.Errorf("query: load index: %w", err)
			}

			return runREPL(cmd.InOrStdin(), cmd.OutOrStdout(), scorer.New(set, cfg.MaxNGram), cfg.K)
		},
	}

	c.Flags().String("index-dir", "", "Directory a previous build command wrote indexes into")
	c.Flags().StringVar(&configPath, "config", "", "Directory to search for tinysearch.yaml")
	return c
}

// runREPL drives one interactive session: each input line is a new
// query via Scorer.SprintSearch, except the control tokens !Exit (ends
// the session) and !Next (paginates the most recent query via
// Scorer.CompleteSearch). !Next with no prior query is a no-op that
// prints the same advisory as a query with no matches.
func runREPL(in io.Reader, out io.Writer, s *scorer.Scorer, k int) error {
	scan := bufio.NewScanner(in)
	lastQuery := ""
	haveQuery := false

	fmt.Fprintln(out, "tinysearch query REPL — type a query, !Next to paginate, !Exit to quit")
	for {
		fmt.Fprint(out, "> ")
		if !scan.Scan() {
			return scan.Err()
		}
		line := strings.TrimSpace(scan.Text())
		if line == "" {
			continue
		}
		if line == "!Exit" {
			return nil
		}
		if line == "!Next" {
			if !haveQuery {
				fmt.Fprintln(out, noGoodResults)
				continue
			}
			results, err := s.CompleteSearch(lastQuery, k)
			if err != nil {
				fmt.Fprintln(os.Stderr, "tinysearch:", err)
				continue
			}
			printResults(out, results)
			continue
		}

		s.NewSearch()
		results, err := s.SprintSearch(line, k)
		if err != nil {
			fmt.Fprintln(os.Stderr, "tinysearch:", err)
			continue
		}
		lastQuery = line
		haveQuery = true
		printResults(out, results)
	}
}

func printResults(out io.Writer, results []string) {
	if len(results) == 0 {
		fmt.Fprintln(out, noGoodResults)
		return
	}
	for _, url := range results {
		fmt.Fprintf(out, "  %s\n", url)
	}
}
