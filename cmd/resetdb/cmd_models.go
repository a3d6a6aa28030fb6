package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"resetdb/internal/eraser"
)

// modelsCmd lists what the registry knows
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List apps, models and their references",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

func runModels(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	ctx, cancel := commandContext(cmd.Context(), cfg)
	defer cancel()

	sess, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	styles := DefaultStyles()
	protected := make(map[string]bool)
	for _, ns := range cfg.Eraser.ProtectedNamespaces {
		protected[ns] = true
	}

	t := newTable(fmt.Sprintf("%d model(s)", sess.registry.Len()), "App", "Model", "Table", "References")
	for _, c := range sess.registry.Collections() {
		app := c.ID.Namespace
		if protected[app] {
			app += " (protected)"
		}
		var refs []string
		for _, f := range c.ReferenceFields() {
			refs = append(refs, fmt.Sprintf("%s -> %s", f.Name, f.References))
		}
		t.addRow(app, c.ID.Name, c.Table, strings.Join(refs, ", "))
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, t.render(styles))

	account, err := sess.registry.LookupLabel(cfg.Eraser.AccountModel)
	if err != nil {
		fmt.Fprintln(out, styles.Muted.Render(fmt.Sprintf("User model %s: not found", cfg.Eraser.AccountModel)))
		return nil
	}
	signal := "none (no accounts would be kept)"
	if sig := eraser.DetectAdminSignal(account); sig != nil {
		signal = sig.Match(account).String()
	}
	fmt.Fprintf(out, "User model %s, admin signal: %s\n", account.ID, signal)
	return nil
}
