package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/orderindex/internal/output"
	"github.com/Aman-CERP/orderindex/internal/reindex"
	"github.com/Aman-CERP/orderindex/internal/store"
	"github.com/Aman-CERP/orderindex/internal/ui"
)

// progressInterval is how often the renderer samples progress.
const progressInterval = 200 * time.Millisecond

func newReindexCmd() *cobra.Command {
	var (
		batchSize int
		resume    bool
		noTUI     bool
	)

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the index for every record",
		Long: `Recompute the order and subscription index rows of every record, newest
first, in batches.

A status line is persisted after each batch. 'orderindex reindex kill' (or
pressing q in the progress view) stops the run before its next record;
rerun with --resume to continue below the last completed batch.`,
		Example: `  # Full rebuild
  orderindex reindex

  # Smaller batches, plain output
  orderindex reindex --batch 500 --no-tui

  # Continue an interrupted run
  orderindex reindex --resume`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReindex(cmd, batchSize, resume, noTUI)
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch", 0, "Records per batch (default from reindex.batch_size)")
	cmd.Flags().BoolVar(&resume, "resume", false, "Continue an interrupted run below its last completed batch")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "Plain text progress output")

	cmd.AddCommand(newReindexKillCmd())
	cmd.AddCommand(newReindexStatusCmd())
	cmd.AddCommand(newReindexResetCmd())

	return cmd
}

func runReindex(cmd *cobra.Command, batchSize int, resume, noTUI bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if batchSize < 0 {
		return fmt.Errorf("--batch must be positive")
	}
	if batchSize > 0 {
		cfg := *activeConfig
		cfg.Reindex.BatchSize = batchSize
		activeConfig = &cfg
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(noTUI),
		ui.WithNoColor(noColor),
		ui.WithTitle(a.dbPath),
		ui.WithOnInterrupt(func() {
			if err := a.reindexer.Kill(context.Background()); err != nil {
				a.logger.Warn("reindex_kill_failed", slog.String("error", err.Error()))
			}
		}),
	))
	if err := renderer.Start(ctx); err != nil {
		return err
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()

	var (
		g      errgroup.Group
		snap   reindex.ProgressSnapshot
		runErr error
	)
	g.Go(func() error {
		defer stopWatch()
		snap, runErr = a.reindexer.Run(ctx, reindex.RunOptions{Resume: resume})
		return nil
	})
	g.Go(func() error {
		return ui.Watch(watchCtx, renderer, a.reindexer.Progress().Snapshot, progressInterval)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	renderer.Complete(snap, runErr)
	_ = renderer.Stop()
	return runErr
}

func newReindexKillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kill",
		Short: "Stop a running reindex before its next record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.reindexer.Kill(cmd.Context()); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Success("Kill switch set; a running reindex stops before its next record")
			return nil
		},
	}
}

func newReindexResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the kill switch and checkpoint",
		Long: `Clear the kill switch and the resume checkpoint and write a fresh
"0 of N batches" status line.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.reindexer.ResetProgress(cmd.Context()); err != nil {
				return err
			}
			status, err := a.reindexer.Status(cmd.Context())
			if err != nil {
				return err
			}
			out := output.New(cmd.OutOrStdout())
			out.Success("Reindex progress reset")
			out.Statusf("", "%s", status)
			return nil
		},
	}
}

func newReindexStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index size and bulk reindex state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			info, err := collectStatus(cmd.Context(), a)
			if err != nil {
				return err
			}

			r := ui.NewStatusRenderer(cmd.OutOrStdout(), noColor || ui.DetectNoColor())
			if jsonOutput {
				return r.RenderJSON(info)
			}
			return r.Render(info)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func collectStatus(ctx context.Context, a *app) (ui.StatusInfo, error) {
	info := ui.StatusInfo{Database: a.dbPath}

	if st, err := os.Stat(a.dbPath); err == nil {
		info.DatabaseSize = st.Size()
	}

	var err error
	if info.Records, err = a.host.CountRecords(ctx); err != nil {
		return info, err
	}
	if info.OrderRows, err = a.store.CountOrders(ctx); err != nil {
		return info, err
	}
	if info.SubscriptionRows, err = a.store.CountSubscriptions(ctx); err != nil {
		return info, err
	}
	if info.LastRun, err = a.reindexer.Status(ctx); err != nil {
		return info, err
	}

	if v, _, err := a.store.GetOption(ctx, store.OptionKillSwitch); err != nil {
		return info, err
	} else if n, convErr := strconv.Atoi(strings.TrimSpace(v)); convErr == nil && n > 0 {
		info.KillSwitch = true
	}
	if v, ok, err := a.store.GetOption(ctx, store.OptionCheckpoint); err != nil {
		return info, err
	} else if cp, valid := reindex.ParseCheckpoint(v); ok && valid {
		info.CheckpointBatches = cp.Batches
		info.CheckpointID = cp.LastID
	}

	lock := reindex.NewLock(a.lockDir)
	acquired, err := lock.TryLock()
	if err != nil {
		return info, err
	}
	if acquired {
		_ = lock.Unlock()
	}
	info.Locked = !acquired

	return info, nil
}
