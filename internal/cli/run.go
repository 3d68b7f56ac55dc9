package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/me/tinykern/internal/config"
	"github.com/me/tinykern/internal/policy"
	"github.com/me/tinykern/internal/sim"
	"github.com/me/tinykern/internal/store"
	"github.com/me/tinykern/internal/trace"
	"github.com/me/tinykern/internal/workload"
	"github.com/me/tinykern/pkg/model"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var (
		flagPolicy        string
		flagAgingInterval int
		flagAgingBoost    int
		flagScript        string
		flagTraceFile     string
		flagQuantum       int
		flagMaxTicks      int
	)

	cmd := &cobra.Command{
		Use:   "run <workload.yaml>",
		Short: "Run a scheduling simulation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := workload.Load(args[0])
			if err != nil {
				return err
			}

			pol, err := buildPolicy(flagPolicy, flagAgingInterval, flagAgingBoost, flagScript)
			if err != nil {
				return err
			}

			cfg := config.DefaultRunConfig()
			cfg.Quantum = flagQuantum
			cfg.MaxTicks = flagMaxTicks
			cfg.TraceFile = flagTraceFile

			return runSimulation(cmd.Context(), w, pol, cfg)
		},
	}

	cmd.Flags().StringVar(&flagPolicy, "policy", "aging", "Priority policy: aging, script, none")
	cmd.Flags().IntVar(&flagAgingInterval, "aging-interval", 1500, "Ticks waited per aging boost")
	cmd.Flags().IntVar(&flagAgingBoost, "aging-boost", 10, "Priority gained per aging boost")
	cmd.Flags().StringVar(&flagScript, "script", "", "Priority expression for --policy=script")
	cmd.Flags().StringVar(&flagTraceFile, "trace-file", "", "Write trace lines to a file instead of stdout")
	cmd.Flags().IntVar(&flagQuantum, "quantum", 100, "Low-tier round-robin quantum, in ticks")
	cmd.Flags().IntVar(&flagMaxTicks, "max-ticks", 1_000_000, "Abort a run exceeding this many ticks")

	return cmd
}

func buildPolicy(kind string, interval, boost int, script string) (policy.Policy, error) {
	switch kind {
	case "aging":
		return &policy.Aging{Interval: interval, Amount: boost}, nil
	case "script":
		if script == "" {
			return nil, fmt.Errorf("--policy=script requires --script")
		}
		return policy.NewScript(script)
	case "none":
		return policy.None{}, nil
	default:
		return nil, fmt.Errorf("unknown policy %q (want aging, script, or none)", kind)
	}
}

func runSimulation(ctx context.Context, w *workload.Workload, pol policy.Policy, cfg config.RunConfig) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// The console/file sink streams lines live; the recorder keeps them for
	// persistence after the run.
	traceOut := os.Stdout
	if cfg.TraceFile != "" {
		f, err := os.Create(cfg.TraceFile)
		if err != nil {
			return fmt.Errorf("create trace file: %w", err)
		}
		defer f.Close()
		traceOut = f
	}
	rec := &trace.Recorder{}
	sink := trace.MultiSink{trace.NewWriterSink(traceOut), rec}

	run := &model.Run{
		ID:        "run_" + uuid.New().String(),
		Workload:  w.Name,
		Policy:    pol.Name(),
		StartedAt: time.Now().UTC(),
	}
	if st != nil {
		if err := st.CreateRun(ctx, run); err != nil {
			return err
		}
	}

	simCfg := sim.Config{Quantum: cfg.Quantum, MaxTicks: cfg.MaxTicks}
	result, err := sim.New(w, pol, simCfg, sink, logger).Run()
	if err != nil {
		return err
	}

	if st != nil {
		now := time.Now().UTC()
		run.FinishedAt = &now
		run.TotalTicks = result.TotalTicks
		run.IdleTicks = result.IdleTicks
		run.ContextSwitches = result.ContextSwitches
		if err := st.FinishRun(ctx, run); err != nil {
			return err
		}
		if err := store.SaveTrace(ctx, st, run.ID, rec.Events); err != nil {
			return err
		}
		for _, tr := range result.Threads {
			stat := &model.ThreadStat{
				RunID:       run.ID,
				ThreadID:    tr.ID,
				Name:        tr.Name,
				Priority:    tr.Priority,
				ArrivalTick: tr.Arrival,
				FinishTick:  tr.FinishTick,
				TicksWaited: tr.TicksWaited,
			}
			if err := st.CreateThreadStat(ctx, stat); err != nil {
				return err
			}
		}
	}

	printSummary(run.ID, result, st != nil)
	return nil
}

func printSummary(runID string, result *sim.Result, persisted bool) {
	fmt.Fprintf(os.Stderr, "\nTotal ticks: %d (idle %d), context switches: %d\n",
		result.TotalTicks, result.IdleTicks, result.ContextSwitches)
	fmt.Fprintf(os.Stderr, "%-4s %-16s %9s %8s %8s %10s %8s\n",
		"ID", "NAME", "PRIORITY", "ARRIVAL", "FINISH", "TURNAROUND", "WAITED")
	for _, tr := range result.Threads {
		fmt.Fprintf(os.Stderr, "%-4d %-16s %9d %8d %8d %10d %8d\n",
			tr.ID, tr.Name, tr.Priority, tr.Arrival, tr.FinishTick, tr.Turnaround(), tr.TicksWaited)
	}
	if persisted {
		fmt.Fprintf(os.Stderr, "\nRun recorded as %s\n", runID)
	}
}

// openStore opens the run database selected by --db, or returns nil when
// persistence is disabled.
func openStore() (store.Store, error) {
	path := flagDB
	if path == "none" {
		return nil, nil
	}
	if path == "" {
		var err error
		path, err = config.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
	}
	return store.NewSQLiteStore(path, logger)
}
