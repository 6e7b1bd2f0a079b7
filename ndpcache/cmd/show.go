package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sarchlab/ndpsim/datarecording"
	"github.com/sarchlab/ndpsim/mem/cache"
)

var showCmd = &cobra.Command{
	Use:   "show <database>",
	Short: "Show the cache statistics recorded by run.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cacheName, _ := cmd.Flags().GetString("cache")
		fails, _ := cmd.Flags().GetBool("fails")

		return show(cmd.Context(), cmd.OutOrStdout(), args[0], cacheName,
			fails)
	},
}

func init() {
	showCmd.Flags().String("cache", "", "Only show this cache.")
	showCmd.Flags().Bool("fails", false, "Show the fail counters too.")

	rootCmd.AddCommand(showCmd)
}

func show(
	ctx context.Context,
	w io.Writer,
	path, cacheName string,
	fails bool,
) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if !strings.HasSuffix(path, ".sqlite3") {
		path += ".sqlite3"
	}

	reader, err := datarecording.NewReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	reader.MapTable(statsTable, cache.StatsEntry{})

	params := datarecording.QueryParams{OrderBy: "Cache, AccessType, Outcome"}

	var where []string
	if cacheName != "" {
		where = append(where, "Cache = ?")
		params.Args = append(params.Args, cacheName)
	}

	if !fails {
		where = append(where, "Fail = 0")
	}

	params.Where = strings.Join(where, " AND ")

	results, total, err := reader.Query(ctx, statsTable, params)
	if err != nil {
		return err
	}

	header := color.New(color.Bold).SprintfFunc()
	fmt.Fprintln(w, header("%-12s %-14s %-22s %10s",
		"CACHE", "ACCESS", "OUTCOME", "COUNT"))

	failColor := color.New(color.FgRed).SprintFunc()

	for _, r := range results {
		e := r.(*cache.StatsEntry)

		outcome := e.Outcome
		if e.Fail {
			outcome = failColor(outcome)
		}

		fmt.Fprintf(w, "%-12s %-14s %-22s %10d\n",
			e.Cache, e.AccessType, outcome, e.Count)
	}

	fmt.Fprintf(w, "%d rows\n", total)

	return nil
}
