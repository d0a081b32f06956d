package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sleuth/internal/storage"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List recent investigation runs",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		store, err := storage.NewSQLite(cfg.DatabasePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		runs, err := store.ListRuns(context.Background(), statusLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan("=== Recent Investigations ==="))
		if len(runs) == 0 {
			fmt.Printf("  %s\n", gray("No runs recorded"))
			return
		}

		for _, run := range runs {
			statusText := yellow(run.Status)
			if run.Status == "completed" {
				statusText = green(run.Status)
			}
			fmt.Printf("  %s  %s\n", statusText, run.Entity)
			fmt.Printf("    Run ID:     %s\n", run.ID)
			fmt.Printf("    Started:    %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Printf("    Iterations: %d, Facts: %d, Confidence: %.0f%%\n",
				run.Iterations, run.FactCount, run.Confidence*100)
			fmt.Println()
		}
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "maximum runs to list")
}
