package main

import (
	"github.com/spf13/cobra"

	"resetdb/internal/config"
	"resetdb/internal/eraser"
)

// selectionFlags are the target-selection flags shared by erase and plan.
type selectionFlags struct {
	all          bool
	apps         []string
	models       []string
	skipApps     []string
	keepAdmin    bool
	accountModel string
}

func addSelectionFlags(cmd *cobra.Command, sel *selectionFlags) {
	cmd.Flags().BoolVar(&sel.all, "all", false, "Erase every model except protected apps")
	cmd.Flags().StringArrayVar(&sel.apps, "app", nil, "Erase every model of an app (repeatable)")
	cmd.Flags().StringArrayVar(&sel.models, "model", nil, "Erase one model, as app.Model (repeatable)")
	cmd.Flags().StringArrayVar(&sel.skipApps, "skip-app", nil, "Additional app to leave alone under --all (repeatable)")
	cmd.Flags().BoolVar(&sel.keepAdmin, "keep-admin", true, "Keep admin accounts (--keep-admin=false deletes them)")
	cmd.Flags().StringVar(&sel.accountModel, "account-model", "", "User model as app.Model (default from config)")
}

// options turns the flags into eraser options on top of the config.
func (sel *selectionFlags) options(c *config.Config) eraser.Options {
	account := c.Eraser.AccountModel
	if sel.accountModel != "" {
		account = sel.accountModel
	}
	return eraser.Options{
		All:            sel.all,
		Namespaces:     sel.apps,
		Collections:    sel.models,
		SkipNamespaces: sel.skipApps,
		KeepAdmins:     sel.keepAdmin,
		Protected:      c.Eraser.ProtectedNamespaces,
		AccountModel:   account,
	}
}
