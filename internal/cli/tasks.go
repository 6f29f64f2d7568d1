package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/bvsbharat/claimspilot/internal/task"
)

// tasksCmd drives adjuster work items
var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Advance adjuster work items",
}

var tasksStartCmd = &cobra.Command{
	Use:   "start <task-id>",
	Short: "Mark a task in progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTaskManager(func(ctx context.Context, mgr *task.Manager) error {
			return mgr.Start(ctx, args[0])
		})
	},
}

var tasksDoneCmd = &cobra.Command{
	Use:   "done <task-id>",
	Short: "Finish a task, completing its claim and freeing the adjuster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTaskManager(func(ctx context.Context, mgr *task.Manager) error {
			return mgr.Complete(ctx, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(tasksCmd)
	tasksCmd.AddCommand(tasksStartCmd)
	tasksCmd.AddCommand(tasksDoneCmd)
}

func withTaskManager(fn func(context.Context, *task.Manager) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	return fn(context.Background(), task.NewManager(st, nil))
}
