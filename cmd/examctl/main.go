package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"exam-room/internal/app"
	"exam-room/internal/config"
	"exam-room/internal/domain"
	"exam-room/internal/logger"
	"exam-room/internal/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "examctl",
		Short:        "Administrative tasks for the exam-room store",
		SilenceUsage: true,
	}
	root.AddCommand(reconcileCmd(), analyzeCmd(), hashPasswordCmd())
	return root
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Create missing tables and header columns, seeding default credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer container.Close()

			if err := container.Reconciler.Ensure(cmd.Context()); err != nil {
				return fmt.Errorf("reconcile failed: %w", err)
			}
			logger.Get().Info("Schema reconciled")
			return nil
		},
	}
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <examId>",
		Short: "Run item analysis for an exam and print the report as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			container, err := setup(ctx)
			if err != nil {
				return err
			}
			defer container.Close()

			var report *domain.AnalysisReport
			err = container.Serializer.Do(ctx, "ANALYZE_EXAM", func(ctx context.Context) error {
				if err := container.Reconciler.EnsureOnce(ctx); err != nil {
					return err
				}
				var err error
				report, err = container.Services.Analysis.AnalyzeExam(ctx, args[0])
				return err
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <plain>",
		Short: "Print the stored digest of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), util.HashPassword(args[0]))
			return err
		},
	}
}

// setup loads configuration, initializes the logger and wires the backends.
func setup(ctx context.Context) (*app.Container, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Initialize(cfg.Logger); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	buildCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	container, err := app.Build(buildCtx, cfg)
	if err != nil {
		logger.Get().Error("Failed to initialize application", zap.Error(err))
		return nil, err
	}
	return container, nil
}
