package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shorts",
	Short: "UK short disclosure tracker",
	Long: `UK Short Tracker CLI

FCA 공매도 공시를 수집하고 상위 종목/펀드의 지표를 계산합니다.

Usage:
  go run ./cmd/shorts [command]

Examples:
  go run ./cmd/shorts collect
  go run ./cmd/shorts metrics
  go run ./cmd/shorts flows "Fund A" GB0031348658
  go run ./cmd/shorts api
  go run ./cmd/shorts scheduler start
  go run ./cmd/shorts test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
}
