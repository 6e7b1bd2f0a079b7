// Package cmd provides the command-line interface of ndpcache.
package cmd

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	envConfig  = "NDPCACHE_CONFIG"
	envLatency = "NDPCACHE_LATENCY"

	defaultDescriptor = "N:64:128:4,L:B:m:L:L,A:32:8,8:0,32"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ndpcache",
	Short: "ndpcache inspects and exercises the caches of the NDP units.",
	Long: `ndpcache inspects and exercises the caches of the NDP units. ` +
		`It can describe a cache descriptor, drive a synthetic access ` +
		`stream through a cache, and show recorded statistics.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loadEnv()
	},
}

// loadEnv reads the defaults in .env, if there is one.
func loadEnv() {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("cannot load .env: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}

	return fallback
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
