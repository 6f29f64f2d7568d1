package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bvsbharat/claimspilot/internal/events"
	"github.com/bvsbharat/claimspilot/internal/ingest"
	"github.com/bvsbharat/claimspilot/internal/model"
	"github.com/bvsbharat/claimspilot/internal/parse"
	"github.com/bvsbharat/claimspilot/internal/pipeline"
)

var processTimeout time.Duration

// processCmd ingests one claim bundle and runs the full triage pass on it.
var processCmd = &cobra.Command{
	Use:   "process <bundle-file>",
	Short: "Triage a single claim bundle",
	Long: `Process ingests one claim bundle (.json with extracted fields, or .txt
raw document), runs scoring, fraud detection, the auto-approval gate,
and routing, then prints the decision.

Example:
  claimspilot process claims/claim-1001.json
  claimspilot process claims/police-report.txt --db claims.db`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().DurationVar(&processTimeout, "timeout", time.Minute, "processing timeout")
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	parser, err := parse.New(cfg.Parse)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	bus := events.NewBus()
	defer bus.Close()
	proc := pipeline.NewProcessor(st, bus, cfg.Engine)

	var processedID string
	watcher := ingest.NewWatcher(cfg.Ingest, st, parser, bus, func(ctx context.Context, claimID string) error {
		processedID = claimID
		_, err := proc.Process(ctx, claimID)
		return err
	})

	ok, err := watcher.IngestFile(ctx, args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s was already ingested", args[0])
	}

	claim, err := st.GetClaim(ctx, processedID)
	if err != nil {
		return err
	}
	printDecision(claim)
	return nil
}

func printDecision(claim *model.Claim) {
	fmt.Printf("Claim:    %s\n", claim.ClaimID)
	fmt.Printf("Status:   %s\n", claim.Status)
	if claim.SeverityScore != nil && claim.ComplexityScore != nil {
		fmt.Printf("Scores:   severity=%d complexity=%d\n", *claim.SeverityScore, *claim.ComplexityScore)
	}
	if len(claim.FraudFlags) > 0 {
		fmt.Printf("Flags:    %d\n", len(claim.FraudFlags))
		for _, f := range claim.FraudFlags {
			fmt.Printf("  - %s (%s, %.2f): %s\n", f.Type, f.Severity, f.Confidence, f.Evidence)
		}
	}
	if d := claim.RoutingDecision; d != nil {
		if d.AssignedTo != "" {
			fmt.Printf("Assigned: %s (%s)\n", d.AssignedTo, d.AdjusterID)
		}
		fmt.Printf("Priority: %s\n", d.Priority)
		fmt.Printf("Reason:   %s\n", d.Reason)
		if d.EstimatedWorkloadHours > 0 {
			fmt.Printf("Estimate: %.1f hours\n", d.EstimatedWorkloadHours)
		}
		if len(d.InvestigationChecklist) > 0 && verbose {
			fmt.Println("Checklist:")
			for _, item := range d.InvestigationChecklist {
				fmt.Printf("  - %s\n", item)
			}
		}
	}
	if claim.TaskID != "" {
		fmt.Printf("Task:     %s\n", claim.TaskID)
	}
	if claim.ProcessingTimeSeconds > 0 && verbose {
		fmt.Fprintf(os.Stderr, "processed in %.3fs\n", claim.ProcessingTimeSeconds)
	}
}
