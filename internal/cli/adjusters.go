package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bvsbharat/claimspilot/internal/model"
)

// adjustersCmd manages the adjuster roster
var adjustersCmd = &cobra.Command{
	Use:   "adjusters",
	Short: "Manage the adjuster roster",
}

var adjustersLoadCmd = &cobra.Command{
	Use:   "load <roster-file>",
	Short: "Load or update adjusters from a YAML roster",
	Long: `Load reads a YAML roster and upserts every adjuster in it. Current
workloads of existing adjusters are preserved unless the roster states
one explicitly.

Roster format:
  adjusters:
    - adjuster_id: ADJ-001
      name: Jamie Fox
      email: jamie@example.com
      specializations: [auto, property]
      experience_level: junior
      years_experience: 2
      max_claim_amount: 25000
      max_concurrent_claims: 5
      available: true`,
	Args: cobra.ExactArgs(1),
	RunE: runAdjustersLoad,
}

var adjustersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List adjusters and their workloads",
	Args:  cobra.NoArgs,
	RunE:  runAdjustersList,
}

func init() {
	rootCmd.AddCommand(adjustersCmd)
	adjustersCmd.AddCommand(adjustersLoadCmd)
	adjustersCmd.AddCommand(adjustersListCmd)
	adjustersListCmd.Flags().Bool("available", false, "only adjusters accepting work")
}

type roster struct {
	Adjusters []model.Adjuster `yaml:"adjusters"`
}

func runAdjustersLoad(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read roster: %w", err)
	}
	var r roster
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return fmt.Errorf("decode roster: %w", err)
	}
	if len(r.Adjusters) == 0 {
		return fmt.Errorf("roster %s names no adjusters", args[0])
	}

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
	for i := range r.Adjusters {
		a := &r.Adjusters[i]
		if a.AdjusterID == "" {
			return fmt.Errorf("roster entry %d has no adjuster_id", i)
		}
		// Keep the live workload when the roster does not state one.
		if existing, err := st.GetAdjuster(ctx, a.AdjusterID); err == nil && a.CurrentWorkload == 0 {
			a.CurrentWorkload = existing.CurrentWorkload
			a.CreatedAt = existing.CreatedAt
		}
		if err := st.SaveAdjuster(ctx, a); err != nil {
			return fmt.Errorf("save %s: %w", a.AdjusterID, err)
		}
	}
	fmt.Printf("loaded %d adjuster(s)\n", len(r.Adjusters))
	return nil
}

func runAdjustersList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	availableOnly, _ := cmd.Flags().GetBool("available")
	adjusters, err := st.ListAdjusters(context.Background(), availableOnly)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLEVEL\tSPECIALIZATIONS\tMAX AMOUNT\tWORKLOAD\tAVAILABLE")
	for _, a := range adjusters {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t$%.0f\t%d/%d\t%v\n",
			a.AdjusterID, a.Name, a.ExperienceLevel, a.Specializations,
			a.MaxClaimAmount, a.CurrentWorkload, a.MaxConcurrentClaims, a.Available)
	}
	return w.Flush()
}
