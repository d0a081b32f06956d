package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"sleuth/internal/ai"
	"sleuth/internal/report"
	"sleuth/internal/research"
	"sleuth/internal/scrape"
	"sleuth/internal/search"
	"sleuth/internal/storage"
	"sleuth/internal/types"
)

var (
	researchType   string
	researchDepth  int
	researchOutput string
)

var researchCmd = &cobra.Command{
	Use:   "research <entity>",
	Short: "Run a full investigation of an entity",
	Long: `Run the complete research loop against a named person or
organization. Requires ANTHROPIC_API_KEY, OPENAI_API_KEY, and
TAVILY_API_KEY in the environment.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		entity := args[0]
		cfg := loadConfig()
		if researchDepth > 0 {
			cfg.MaxDepth = researchDepth
		}
		if researchOutput != "" {
			cfg.OutputDir = researchOutput
		}
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		entityType := types.EntityType(researchType)
		if researchType != "" && !types.ValidEntityType(researchType) {
			fmt.Fprintf(os.Stderr, "Error: unknown entity type %q\n", researchType)
			os.Exit(1)
		}

		// Credential and client setup is fatal before any research runs.
		client, err := ai.NewRouter(&ai.Config{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		searcher, err := search.NewTavily(os.Getenv("TAVILY_API_KEY"), cfg.Timeout())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		store, err := storage.NewSQLite(cfg.DatabasePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		generator, err := report.NewGenerator(cfg.OutputDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		generator.WithSynthesizer(client)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Printf("\n%s\n\n", cyan(fmt.Sprintf("=== Investigating: %s ===", entity)))

		runID := uuid.New().String()
		if err := store.CreateRun(ctx, types.RunSummary{
			ID:         runID,
			Entity:     entity,
			EntityType: string(entityType),
			Status:     "running",
			CreatedAt:  time.Now().UTC(),
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		orchestrator := research.New(cfg, client, searcher, scrape.NewHTTP(cfg.Timeout())).
			WithAuditSink(runID, store)

		state, err := orchestrator.Run(ctx, entity, entityType)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		reportPath, err := generator.SaveReport(ctx, state)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		snapshotPath, err := generator.SaveSnapshot(state)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if _, err := generator.SaveAuditTrail(state); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
		if _, err := generator.SaveAuditSummary(state); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}

		snapshot, err := os.ReadFile(snapshotPath)
		if err == nil {
			err = store.SaveSnapshot(ctx, types.RunSummary{
				ID:         runID,
				Status:     "completed",
				Iterations: state.Iteration,
				Confidence: state.OverallConfidence,
				FactCount:  len(state.Facts),
			}, snapshot)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: persisting run: %v\n", err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("\n%s\n", green("Investigation complete"))
		fmt.Printf("  Run ID:      %s\n", runID)
		fmt.Printf("  Iterations:  %d\n", state.Iteration)
		fmt.Printf("  Facts:       %d\n", len(state.Facts))
		fmt.Printf("  Connections: %d\n", len(state.Connections))
		fmt.Printf("  Risks:       %d\n", len(state.Risks))
		fmt.Printf("  Confidence:  %.0f%%\n", state.OverallConfidence*100)
		fmt.Printf("  Report:      %s\n", reportPath)
	},
}

func init() {
	researchCmd.Flags().StringVar(&researchType, "type", "",
		"entity type (individual, organization, tech_executive, politician, entrepreneur, celebrity, scientist); auto-detected when omitted")
	researchCmd.Flags().IntVar(&researchDepth, "depth", 0,
		"maximum research iterations (overrides config)")
	researchCmd.Flags().StringVar(&researchOutput, "output", "",
		"report output directory (overrides config)")
}
