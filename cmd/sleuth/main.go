package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sleuth/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sleuth",
	Short: "Automated OSINT research agent",
	Long: `sleuth runs iterative open-source investigations of people and
organizations: it plans search queries, retrieves and extracts facts,
chases discovered entities, cross-validates claims, and writes a report
with a full audit trail.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default .sleuth/config.yaml when present)")

	rootCmd.AddCommand(researchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the effective configuration. Any configuration
// error is fatal before research starts.
func loadConfig() config.Config {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat(".sleuth/config.yaml"); err == nil {
			path = ".sleuth/config.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
