package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "trustmesh",
	Short: "Multi-source trust-signal aggregation for content credibility",
	Long: "Trustmesh fans analysis requests out to a set of independent trust\n" +
		"detectors, tolerates partial failure, and combines the surviving\n" +
		"signals into one weighted composite score with full evidence provenance.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
