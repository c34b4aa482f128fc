package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/billdocs/internal/batch"
	"github.com/JonMunkholm/billdocs/internal/core"
	"github.com/JonMunkholm/billdocs/internal/web"
	"github.com/JonMunkholm/billdocs/internal/workbook"
)

func newBatchCmd(a *app) *cobra.Command {
	var (
		input, output, mode string
		workers             int
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Process every workbook in a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := batchOptions(a.cfg.Batch)
			if cmd.Flags().Changed("mode") {
				opts.Mode = mode
			}
			if workers > 0 {
				opts.Workers = workers
			}
			m, err := batch.ParseMode(opts.Mode)
			if err != nil {
				return err
			}
			opts.Mode = m
			opts.Progress = func(ev batch.Event) {
				if ev.State == batch.StateSucceeded || ev.State == batch.StateFailed {
					fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s %s\n", ev.Done, ev.Total, ev.State, ev.File)
				}
			}

			proc, chain, err := newProcessor(a.cfg)
			if err != nil {
				return err
			}
			defer chain.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rep, err := batch.New(proc, opts).Run(ctx, input, output)
			if rep != nil {
				fmt.Fprint(cmd.OutOrStdout(), rep.Text())
			}
			if err != nil {
				return userError(err)
			}
			if rep.Failed > 0 {
				return fmt.Errorf("%d of %d files failed", rep.Failed, rep.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Directory of billing workbooks")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Directory for generated documents and the batch report")
	cmd.Flags().StringVar(&mode, "mode", "", "Scheduling mode: sequential or parallel (overrides BATCH_MODE)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Parallel worker count (overrides BATCH_WORKERS)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newRenderCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Generate the documents for a single workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proc, chain, err := newProcessor(a.cfg)
			if err != nil {
				return err
			}
			defer chain.Close()

			if output == "" {
				output = filepath.Dir(args[0])
			}
			res, err := proc.Process(cmd.Context(), args[0], output)
			if err != nil {
				return userError(err)
			}

			out := cmd.OutOrStdout()
			for _, d := range res.Documents {
				fmt.Fprintf(out, "%-40s %-12s %s\n", d.Path, d.Engine, humanize.Bytes(uint64(d.Bytes)))
			}
			if res.Combined != "" {
				fmt.Fprintf(out, "%-40s %-12s\n", res.Combined, res.BundleMethod)
			}
			for _, w := range res.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (default: the workbook's directory)")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP batch API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if _, err := batch.ParseMode(cfg.Batch.Mode); err != nil {
				return err
			}

			proc, chain, err := newProcessor(cfg)
			if err != nil {
				return err
			}
			defer chain.Close()

			limiter := batch.NewLimiter(cfg.Batch.MaxConcurrent, cfg.Batch.MaxWaitTime)
			svc := batch.NewService(proc, limiter, batchOptions(cfg.Batch))
			server := web.NewServer(svc, cfg.Server)

			slog.Info("service ready",
				"engines", cfg.Render.Engines,
				"document_types", core.DocumentCount(),
				"batch_max_concurrent", limiter.MaxConcurrent(),
				"workers", cfg.Batch.EffectiveWorkers(),
			)

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			slog.Info("shutting down...", "active_batches", limiter.ActiveCount())
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			// Give running batches half the budget to finish before they
			// are cancelled.
			if limiter.ActiveCount() > 0 {
				slog.Info("waiting for batches to complete", "active_batches", limiter.ActiveCount())
				drainCtx, drainCancel := context.WithTimeout(shutdownCtx, cfg.Server.ShutdownTimeout/2)
				if err := svc.Drain(drainCtx); err != nil {
					slog.Warn("batches still running, cancelling", "active_batches", limiter.ActiveCount())
				}
				drainCancel()
			}
			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Error("shutdown error", "error", err)
				return err
			}
			slog.Info("server stopped")
			return nil
		},
	}
}

func newSampleCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "sample PATH",
		Short: "Write an example billing workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			start := time.Now()
			if err := workbook.Write(path, workbook.Sample()); err != nil {
				return err
			}
			slog.Info("sample workbook written", "path", path, "duration_ms", time.Since(start).Milliseconds())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}
