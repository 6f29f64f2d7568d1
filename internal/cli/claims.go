package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bvsbharat/claimspilot/internal/model"
	"github.com/bvsbharat/claimspilot/internal/store"
)

// claimsCmd inspects and administers claims
var claimsCmd = &cobra.Command{
	Use:   "claims",
	Short: "Inspect and administer claims",
}

var claimsListCmd = &cobra.Command{
	Use:   "list [status...]",
	Short: "List claims, optionally filtered by status",
	RunE:  runClaimsList,
}

var claimsShowCmd = &cobra.Command{
	Use:   "show <claim-id>",
	Short: "Show one claim's full triage record",
	Args:  cobra.ExactArgs(1),
	RunE:  runClaimsShow,
}

var claimsOverrideCmd = &cobra.Command{
	Use:   "override <claim-id> <status>",
	Short: "Manually override a claim's status",
	Long: `Override patches a claim's status out of band, for supervisors
resolving escalations or reopening reviews. Valid targets are review,
assigned, in_progress, and closed; terminal claims cannot be overridden.

Example:
  claimspilot claims override CLM-20260115-093042-7KQ2 closed`,
	Args: cobra.ExactArgs(2),
	RunE: runClaimsOverride,
}

func init() {
	rootCmd.AddCommand(claimsCmd)
	claimsCmd.AddCommand(claimsListCmd)
	claimsCmd.AddCommand(claimsShowCmd)
	claimsCmd.AddCommand(claimsOverrideCmd)
}

func runClaimsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	statuses := make([]model.Status, 0, len(args))
	for _, s := range args {
		statuses = append(statuses, model.Status(s))
	}

	claims, err := st.ListClaims(context.Background(), statuses...)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CLAIM\tSTATUS\tAMOUNT\tSEV\tCPX\tFLAGS\tASSIGNED")
	for _, c := range claims {
		assigned := ""
		if c.RoutingDecision != nil {
			assigned = c.RoutingDecision.AdjusterID
		}
		fmt.Fprintf(w, "%s\t%s\t$%.0f\t%s\t%s\t%d\t%s\n",
			c.ClaimID, c.Status, c.Amount(),
			scoreCell(c.SeverityScore), scoreCell(c.ComplexityScore),
			len(c.FraudFlags), assigned)
	}
	return w.Flush()
}

func scoreCell(p *int) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *p)
}

func runClaimsShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	claim, err := st.GetClaim(ctx, args[0])
	if err != nil {
		return err
	}
	printDecision(claim)

	transitions, err := st.ListTransitions(ctx, claim.ClaimID)
	if err != nil {
		return err
	}
	if len(transitions) > 0 {
		fmt.Println("History:")
		for _, tr := range transitions {
			if tr.Message != "" {
				fmt.Printf("  %s: %s\n", tr.Status, tr.Message)
			} else {
				fmt.Printf("  %s\n", tr.Status)
			}
		}
	}
	return nil
}

func runClaimsOverride(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	target := model.Status(args[1])
	if err := overrideStatus(context.Background(), st, args[0], target); err != nil {
		return err
	}
	fmt.Printf("%s is now %s\n", args[0], target)
	return nil
}

// overrideStatus applies a supervisor status patch to a stored claim,
// validated against the override rules.
func overrideStatus(ctx context.Context, st store.Store, claimID string, target model.Status) error {
	claim, err := st.GetClaim(ctx, claimID)
	if err != nil {
		return err
	}
	if err := model.ValidateOverride(claim.Status, target); err != nil {
		return err
	}

	// Closing out an assigned claim frees the adjuster's slot.
	if target == model.StatusClosed && claim.RoutingDecision.Assigned() && claim.RoutingDecision.AdjusterID != "AUTO_SYSTEM" {
		if err := st.ReleaseAssignment(ctx, claim.RoutingDecision.AdjusterID); err != nil {
			return err
		}
	}

	msg := fmt.Sprintf("manual override: %s -> %s", claim.Status, target)
	return st.UpdateClaimStatus(ctx, claim.ClaimID, target, msg)
}
