package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded simulation runs",
	}
	cmd.AddCommand(newRunsListCmd(), newRunsShowCmd())
	return cmd
}

func newRunsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			if st == nil {
				return fmt.Errorf("run database disabled (--db=none)")
			}
			defer st.Close()
			if err := st.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			runs, err := st.ListRuns(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("%-42s %-20s %-24s %10s %8s\n", "ID", "WORKLOAD", "POLICY", "TICKS", "SWITCHES")
			for _, r := range runs {
				fmt.Printf("%-42s %-20s %-24s %10d %8d\n",
					r.ID, r.Workload, r.Policy, r.TotalTicks, r.ContextSwitches)
			}
			return nil
		},
	}
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Replay a recorded run's scheduler trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			if st == nil {
				return fmt.Errorf("run database disabled (--db=none)")
			}
			defer st.Close()
			if err := st.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			run, err := st.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run %q not found", args[0])
			}

			events, err := st.ListEventsByRun(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			for _, ev := range events {
				fmt.Fprintln(os.Stdout, ev.Line())
			}
			return nil
		},
	}
}
