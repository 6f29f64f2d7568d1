package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bvsbharat/claimspilot/internal/events"
	"github.com/bvsbharat/claimspilot/internal/ingest"
	"github.com/bvsbharat/claimspilot/internal/parse"
	"github.com/bvsbharat/claimspilot/internal/pipeline"
	"github.com/bvsbharat/claimspilot/internal/worker"
)

// watchCmd runs the engine as a long-lived drop-directory service.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a drop directory and triage claims as they arrive",
	Long: `Watch runs ClaimsPilot as a service: existing bundles in the drop
directory are swept up first, claims stranded mid-pipeline by a previous
crash are resumed, and new files are triaged as they land. Ingestion is
rate limited to keep bursts from starving the store.

Stop with Ctrl-C.

Example:
  claimspilot watch
  CLAIMSPILOT_INGEST_DIR=/var/claims claimspilot watch --db claims.db`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var watchWorkers int

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("dir", "", "drop directory (overrides config)")
	watchCmd.Flags().IntVar(&watchWorkers, "workers", 4, "concurrent triage workers")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		cfg.Ingest.Dir = dir
	}
	if err := os.MkdirAll(cfg.Ingest.Dir, 0o755); err != nil {
		return fmt.Errorf("create drop dir: %w", err)
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewBus()
	defer bus.Close()
	proc := pipeline.NewProcessor(st, bus, cfg.Engine)

	// Surface every status change on stderr while running as a service.
	go logEvents(ctx, bus)

	resumed, err := proc.Resume(ctx)
	if err != nil {
		return fmt.Errorf("resume stranded claims: %w", err)
	}
	if resumed > 0 {
		fmt.Fprintf(os.Stderr, "resumed %d stranded claim(s)\n", resumed)
	}

	pool := worker.NewPool(watchWorkers, proc.Process)
	outcomes := make(chan worker.Outcome, 64)
	pool.Start(ctx, outcomes)
	defer pool.Close()
	go func() {
		for out := range outcomes {
			if out.Err != nil {
				fmt.Fprintf(os.Stderr, "triage error %s: %v\n", out.ClaimID, out.Err)
			}
		}
	}()

	watcher := ingest.NewWatcher(cfg.Ingest, st, parser, bus, func(ctx context.Context, claimID string) error {
		return pool.Submit(ctx, claimID)
	})

	if cfg.Ingest.ProcessOnStart {
		swept, err := watcher.Sweep(ctx)
		if err != nil {
			return fmt.Errorf("initial sweep: %w", err)
		}
		if swept > 0 {
			fmt.Fprintf(os.Stderr, "ingested %d existing bundle(s)\n", swept)
		}
	}

	errs := make(chan error, 16)
	go func() {
		for err := range errs {
			fmt.Fprintf(os.Stderr, "ingest error: %v\n", err)
		}
	}()

	fmt.Fprintf(os.Stderr, "watching %s\n", cfg.Ingest.Dir)
	if err := watcher.Run(ctx, errs); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func logEvents(ctx context.Context, bus *events.Bus) {
	ch, cancel := bus.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.ClaimID != "" {
				fmt.Fprintf(os.Stderr, "[%s] %s %s: %s\n", ev.At.Format("15:04:05"), ev.ClaimID, ev.Type, ev.Message)
			}
		}
	}
}
