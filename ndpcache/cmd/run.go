package cmd

import (
	"fmt"
	"io"
	"log"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sarchlab/ndpsim/datarecording"
	"github.com/sarchlab/ndpsim/mem/trace"
	"github.com/sarchlab/ndpsim/sim/hooking"
	"github.com/sarchlab/ndpsim/sim/id"
)

const statsTable = "cache_stats"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive a strided access stream through a cache.",
	Long: "`run` sends a strided stream of reads and writes through a data " +
		"cache backed by a fixed-latency memory and reports the cache " +
		"statistics. The descriptor defaults to " + envConfig +
		" and the latency to " + envLatency + ".",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		o, err := streamOptionsFromFlags(cmd)
		if err != nil {
			log.Fatalf("invalid flags: %v", err)
		}

		parallelIDs, _ := cmd.Flags().GetBool("parallel-ids")
		if parallelIDs {
			id.UseParallelIDGenerator()
		}

		var recorder datarecording.DataRecorder

		dbPath, _ := cmd.Flags().GetString("db")
		if dbPath != "" {
			recorder = datarecording.New(dbPath)
		}

		o.hooks = tracers(cmd, recorder)

		res, err := runStream(o)
		if err != nil {
			log.Fatal(err)
		}

		report(cmd.OutOrStdout(), res)

		if recorder != nil {
			res.cache.Stats().Record(recorder, statsTable, res.cache.Name())
			recorder.Flush()
		}
	},
}

func init() {
	runCmd.Flags().String("config", "",
		"The cache descriptor. Defaults to $"+envConfig+".")
	runCmd.Flags().Uint64("latency", 0,
		"The memory latency in cycles. Defaults to $"+envLatency+".")
	runCmd.Flags().Int("accesses", 1000, "The number of accesses to send.")
	runCmd.Flags().Uint64("stride", 64, "The distance between accesses.")
	runCmd.Flags().Uint64("footprint", 64*1024,
		"The stream wraps around after this many bytes.")
	runCmd.Flags().Uint64("size", 4, "The number of bytes per access.")
	runCmd.Flags().Int("write-every", 4,
		"Every n-th access is a write. 0 sends reads only.")
	runCmd.Flags().Bool("l1", true,
		"Tag the requests the cache sends below as L1 traffic.")
	runCmd.Flags().Uint64("max-cycles", 10_000_000,
		"Give up after this many cycles. 0 means no limit.")
	runCmd.Flags().String("db", "",
		"Record the statistics into this SQLite database, without the "+
			".sqlite3 suffix.")
	runCmd.Flags().Bool("trace", false, "Log every access and fill.")
	runCmd.Flags().Bool("trace-db", false,
		"Record every access into the database given by --db.")
	runCmd.Flags().Bool("parallel-ids", false,
		"Generate request IDs with xid instead of a counter.")

	rootCmd.AddCommand(runCmd)
}

func streamOptionsFromFlags(cmd *cobra.Command) (streamOptions, error) {
	flags := cmd.Flags()

	o := streamOptions{}
	o.descriptor, _ = flags.GetString("config")
	o.latency, _ = flags.GetUint64("latency")
	o.accesses, _ = flags.GetInt("accesses")
	o.stride, _ = flags.GetUint64("stride")
	o.footprint, _ = flags.GetUint64("footprint")
	o.size, _ = flags.GetUint64("size")
	o.writeEvery, _ = flags.GetInt("write-every")
	o.l1, _ = flags.GetBool("l1")
	o.maxCycles, _ = flags.GetUint64("max-cycles")

	if o.descriptor == "" {
		o.descriptor = envOr(envConfig, defaultDescriptor)
	}

	if !flags.Changed("latency") {
		latency, err := strconv.ParseUint(envOr(envLatency, "100"), 10, 64)
		if err != nil {
			return o, fmt.Errorf("%s: %w", envLatency, err)
		}

		o.latency = latency
	}

	return o, nil
}

func tracers(
	cmd *cobra.Command,
	recorder datarecording.DataRecorder,
) []hooking.Hook {
	var hooks []hooking.Hook

	if traceLog, _ := cmd.Flags().GetBool("trace"); traceLog {
		hooks = append(hooks,
			trace.NewTracer(log.New(cmd.ErrOrStderr(), "", 0)))
	}

	if traceDB, _ := cmd.Flags().GetBool("trace-db"); traceDB {
		if recorder == nil {
			log.Fatal("--trace-db requires --db")
		}

		hooks = append(hooks, trace.NewDBTracer(recorder))
	}

	return hooks
}

func report(w io.Writer, res *streamResult) {
	c := res.cache
	stats := c.Stats()

	color.New(color.FgCyan, color.Bold).Fprintf(w, "%s %s\n",
		c.Name(), c.Config())

	ratio := color.New(color.FgGreen).SprintfFunc()
	if stats.HitRatio() < 0.5 {
		ratio = color.New(color.FgRed).SprintfFunc()
	}

	fmt.Fprintf(w, "cycles: %d, accesses: %d, fills: %d, retries: %d, "+
		"hit ratio: %s\n",
		res.cycles, stats.Accesses(), res.filled, res.retries,
		ratio("%.2f", stats.HitRatio()))

	stats.WriteReport(w, c.Name())
	stats.WriteFailReport(w, c.Name())
	stats.WriteEnergyReport(w, c.Name())
}
