package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"resetdb/internal/eraser"
	"resetdb/internal/registry"
	"resetdb/internal/store"
)

var planSel = selectionFlags{keepAdmin: true}

// planCmd previews an erase
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the deletion order and row counts without deleting",
	Long: `Resolves the same selection flags as erase and prints the phase each
model is erased in, with its current row count. Never prompts or deletes.`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	opts := planSel.options(cfg)
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
	report, err := eraser.New(sess.registry, sess.store, reporter, nil).Plan(opts)
	if err != nil {
		return err
	}
	for _, w := range report.Warnings {
		reporter.Warning(w.String())
	}
	if report.Empty {
		reporter.Notice("Nothing to erase.")
		return nil
	}

	styles := DefaultStyles()
	t := newTable("Erase plan", "#", "Phase", "Model", "Rows", "Keeps")
	step := 0
	addPhase := func(phase string, cs []*registry.Collection, keep *store.Match) {
		for _, c := range cs {
			step++
			rows := "?"
			if n, err := sess.store.Count(ctx, c, nil); err == nil {
				rows = strconv.FormatInt(n, 10)
			} else {
				reporter.Warning(fmt.Sprintf("Could not count %s: %v", c.ID, err))
			}
			kept := ""
			if keep != nil {
				if n, err := sess.store.Count(ctx, c, keep); err == nil {
					kept = fmt.Sprintf("%d (%s)", n, keep)
				}
			}
			t.addRow(strconv.Itoa(step), phase, c.ID.String(), rows, kept)
		}
	}

	addPhase("1 independent", report.Phases.Independent, nil)
	addPhase("2 references user", report.Phases.Dependent, nil)
	if acct := report.Phases.Account; acct != nil {
		var keep *store.Match
		if sig := eraser.DetectAdminSignal(acct); sig != nil && opts.KeepAdmins {
			keep = sig.Match(acct)
		}
		addPhase("3 user model", []*registry.Collection{acct}, keep)
	}

	fmt.Fprint(cmd.OutOrStdout(), t.render(styles))
	return nil
}
