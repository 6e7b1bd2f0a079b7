package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sarchlab/ndpsim/mem/cache"
	"github.com/sarchlab/ndpsim/mem/mem"
)

var describeCmd = &cobra.Command{
	Use:   "describe [descriptor]",
	Short: "Print the geometry and policies of a cache descriptor.",
	Long: "`describe` parses a cache descriptor and prints what it means. " +
		"Without an argument, the descriptor in " + envConfig + " is used.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		descriptor := envOr(envConfig, defaultDescriptor)
		if len(args) > 0 {
			descriptor = args[0]
		}

		config, err := cache.ParseConfig(descriptor)
		if err != nil {
			return err
		}

		describe(cmd.OutOrStdout(), config)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
}

var (
	cacheTypeNames   = []string{"normal", "sector"}
	evictNames       = []string{"LRU", "FIFO"}
	writePolicyNames = []string{
		"read-only", "write-back", "write-through", "write-evict",
		"local write-back, global write-through",
	}
	allocNames      = []string{"on miss", "on fill", "streaming"}
	writeAllocNames = []string{
		"no write allocate", "write allocate", "fetch on write",
		"lazy fetch on read",
	}
	setIndexNames = []string{"linear", "bitwise XOR", "IPOLY", "custom"}
	mshrNames     = []string{"associative", "sector associative"}
)

func describe(w io.Writer, c cache.Config) {
	title := color.New(color.FgCyan, color.Bold)
	key := color.New(color.FgYellow).SprintFunc()

	title.Fprintf(w, "%s\n", c)

	rows := []struct {
		name  string
		value string
	}{
		{"type", cacheTypeNames[c.Type]},
		{"sets", fmt.Sprint(c.NumSets)},
		{"line size", fmt.Sprintf("%dB", c.LineSize)},
		{"associativity", fmt.Sprint(c.Assoc)},
		{"total size", fmt.Sprintf("%dKB", c.TotalSize()/mem.KB)},
		{"atom size", fmt.Sprintf("%dB", c.AtomSize())},
		{"eviction", evictNames[c.EvictPolicy]},
		{"write policy", writePolicyNames[c.WritePolicy]},
		{"allocation", allocNames[c.AllocPolicy]},
		{"write miss", writeAllocNames[c.WriteAllocPolicy]},
		{"set index", setIndexNames[c.SetIndexFunction]},
		{"MSHR", fmt.Sprintf("%s, %d entries, %d merges",
			mshrNames[c.MSHRType], c.MSHREntries, c.MSHRMaxMerge)},
		{"miss queue", fmt.Sprint(c.MissQueueSize)},
		{"data port", fmt.Sprintf("%dB/cycle", c.DataPortWidth)},
	}

	for _, r := range rows {
		fmt.Fprintf(w, "  %-14s %s\n", key(r.name), r.value)
	}
}
