package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "tinysearch",
		Short: "tinysearch builds and queries a tiered inverted-index search engine",
		Long: `tinysearch is a small-scale web search engine core: a SPIMI-based
build pipeline that produces six zone-partitioned inverted indexes
(title, anchor, header, bold, limited, full-body) plus PageRank over the
corpus link graph, and a tiered query evaluator that cascades through
those zones by priority.

  tinysearch build   Build the tiered indexes from a corpus directory
  tinysearch query   Open an interactive query REPL over a built index`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(buildCmd())
	root.AddCommand(queryCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tinysearch:", err)
		os.Exit(1)
	}
}
