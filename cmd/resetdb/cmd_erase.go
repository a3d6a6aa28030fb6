package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"resetdb/internal/eraser"
	"resetdb/internal/prompt"
)

var (
	eraseSel    = selectionFlags{keepAdmin: true}
	eraseForce  bool
	eraseDryRun bool
)

// eraseCmd deletes records from the selected models
var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Delete all records from selected models",
	Long: `Deletes every record of the selected models. Models referencing the user
model directly are erased after those that do not, and the user model is
erased last. Admin accounts are kept unless --keep-admin=false.

Framework apps (contenttypes, auth, sessions, admin, staticfiles, messages)
are never touched by --all; name them with --app or --model to erase them.

Examples:
  resetdb erase --all
  resetdb erase --app shop --model blog.Post --force
  resetdb erase --all --skip-app billing --dry-run`,
	Args: cobra.NoArgs,
	RunE: runErase,
}

func runErase(cmd *cobra.Command, args []string) error {
	opts := eraseSel.options(cfg)
	opts.Force = eraseForce
	opts.DryRun = eraseDryRun
	if !opts.HasSelection() {
		return eraser.ErrNoTargets
	}
	cmd.SilenceUsage = true

	ctx, cancel := commandContext(cmd.Context(), cfg)
	defer cancel()

	sess, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	reporter := newConsoleReporter(cmd.OutOrStdout(), cmd.ErrOrStderr())
	confirmer := prompt.Auto(cmd.InOrStdin(), cmd.OutOrStdout())
	e := eraser.New(sess.registry, sess.store, reporter, confirmer)

	report, err := e.Run(ctx, opts)
	if err != nil {
		return err
	}

	logger.Info("erase finished",
		zap.String("run_id", report.RunID),
		zap.Int64("deleted", report.Total()),
		zap.Int("failed", len(report.Errors)),
		zap.Bool("cancelled", report.Cancelled),
		zap.Bool("dry_run", report.DryRun))
	if report.DryRun && !report.Empty {
		fmt.Fprintln(cmd.OutOrStdout(), DefaultStyles().Muted.Render("Dry run: no records were deleted."))
	}
	return nil
}
