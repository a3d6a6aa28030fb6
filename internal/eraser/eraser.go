// Package eraser deletes every record of selected collections, ordered so
// that rows referencing the Account collection go before Account itself, and
// optionally keeps administrator accounts.
//
// Each collection is deleted by its own statement. A failure on one
// collection is reported and the run moves on; nothing is rolled back.
package eraser

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"resetdb/internal/logging"
	"resetdb/internal/registry"
	"resetdb/internal/store"
)

// Reporter receives the user-facing progress of a run.
type Reporter interface {
	Notice(msg string)
	Success(msg string)
	Warning(msg string)
	Error(msg string)
}

// Confirmer asks the user a yes/no question. Anything but an explicit yes
// must come back as false.
type Confirmer interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// CollectionError is a failed delete of one collection.
type CollectionError struct {
	ID  registry.CollectionID
	Err error
}

func (e CollectionError) Error() string {
	return fmt.Sprintf("%s: %v", e.ID, e.Err)
}

func (e CollectionError) Unwrap() error { return e.Err }

// Report is the outcome of one run.
type Report struct {
	RunID    string
	Plan     Plan
	Phases   Phases
	Warnings []Warning

	// Deleted holds nonzero counts only. In a dry run they are the counts
	// that would have been deleted.
	Deleted map[registry.CollectionID]int64
	Errors  []CollectionError

	AdminSignal string // field used to keep admins, "" when none
	AdminsKept  int64

	Empty     bool // nothing matched the selection
	Cancelled bool // the user declined
	DryRun    bool
}

// Total is the sum of the per-collection counts.
func (r *Report) Total() int64 {
	var total int64
	for _, n := range r.Deleted {
		total += n
	}
	return total
}

// Eraser runs erase plans against a store.
type Eraser struct {
	registry  *registry.Registry
	store     store.Store
	reporter  Reporter
	confirmer Confirmer
}

// New creates an Eraser. confirmer may be nil when every run is forced.
func New(reg *registry.Registry, st store.Store, reporter Reporter, confirmer Confirmer) *Eraser {
	return &Eraser{
		registry:  reg,
		store:     st,
		reporter:  reporter,
		confirmer: confirmer,
	}
}

// Plan resolves the plan and its phases without touching the store.
func (e *Eraser) Plan(opts Options) (*Report, error) {
	account, err := resolveAccount(e.registry, opts.AccountModel)
	if err != nil {
		return nil, err
	}
	plan, warnings, err := ResolvePlan(e.registry, opts)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:    uuid.NewString(),
		Plan:     plan,
		Phases:   OrderPhases(plan, account),
		Warnings: warnings,
		Deleted:  make(map[registry.CollectionID]int64),
		Empty:    len(plan) == 0,
		DryRun:   opts.DryRun,
	}
	if acct := report.Phases.Account; acct != nil && opts.KeepAdmins {
		if sig := DetectAdminSignal(acct); sig != nil {
			report.AdminSignal = sig.Name()
		}
	}
	return report, nil
}

// Run resolves the plan, asks for confirmation unless forced, and deletes
// phase by phase. Per-collection failures end up in the report; the
// returned error is reserved for usage errors and interruption.
func (e *Eraser) Run(ctx context.Context, opts Options) (*Report, error) {
	report, err := e.Plan(opts)
	if err != nil {
		return nil, err
	}
	for _, w := range report.Warnings {
		e.reporter.Warning(w.String())
	}
	if report.Empty {
		e.reporter.Notice("Nothing to erase.")
		return report, nil
	}

	logging.Eraser("run %s: %d collection(s) planned, dry_run=%v", report.RunID, len(report.Plan), opts.DryRun)

	if !opts.Force && !opts.DryRun {
		ok, err := e.confirm(ctx, report.Plan)
		if err != nil {
			logging.EraserWarn("confirmation failed, treating as no: %v", err)
		}
		if !ok {
			logging.Audit(logging.AuditEvent{
				EventType: logging.AuditEraseCancelled,
				RunID:     report.RunID,
				Message:   "declined at confirmation",
			})
			report.Cancelled = true
			e.reporter.Success("Operation cancelled.")
			return report, nil
		}
	}

	timer := logging.StartTimer(logging.CategoryEraser, "erase run")
	defer timer.Stop()

	if !opts.DryRun {
		logging.Audit(logging.AuditEvent{
			EventType: logging.AuditEraseStart,
			RunID:     report.RunID,
			Message:   "erase started",
			Fields: map[string]interface{}{
				"targets":     report.Plan.Labels(),
				"keep_admins": opts.KeepAdmins,
				"forced":      opts.Force,
			},
		})
	}

	// The admin filter is resolved once, before any deletion.
	var keep *store.Match
	if acct := report.Phases.Account; acct != nil && opts.KeepAdmins {
		if sig := DetectAdminSignal(acct); sig != nil {
			keep = sig.Match(acct)
			logging.EraserDebug("keeping %s records matching %s", acct.ID, keep)
		} else {
			e.reporter.Warning(fmt.Sprintf("%s has no admin field; no accounts will be kept", acct.ID))
		}
	}

	for _, c := range report.Phases.Independent {
		if err := e.erase(ctx, report, c, nil); err != nil {
			return report, err
		}
	}
	for _, c := range report.Phases.Dependent {
		if err := e.erase(ctx, report, c, nil); err != nil {
			return report, err
		}
	}
	if acct := report.Phases.Account; acct != nil {
		if keep != nil {
			kept, err := e.store.Count(ctx, acct, keep)
			if err != nil {
				e.reporter.Warning(fmt.Sprintf("Could not count admin users in %s: %v", acct.ID, err))
			} else {
				report.AdminsKept = kept
				e.reporter.Notice(fmt.Sprintf("Keeping %d admin user(s)", kept))
				if !opts.DryRun {
					logging.Audit(logging.AuditEvent{
						EventType:  logging.AuditAdminsKept,
						RunID:      report.RunID,
						Collection: acct.ID.String(),
						Count:      kept,
						Message:    keep.String(),
					})
				}
			}
		}
		if err := e.erase(ctx, report, acct, keep); err != nil {
			return report, err
		}
	}

	e.summarize(report)
	return report, nil
}

func (e *Eraser) confirm(ctx context.Context, plan Plan) (bool, error) {
	if e.confirmer == nil {
		return false, fmt.Errorf("no confirmation provider; use --force")
	}
	e.reporter.Warning("The following models will be erased:")
	for _, label := range plan.Labels() {
		e.reporter.Notice("  - " + label)
	}
	return e.confirmer.Confirm(ctx, fmt.Sprintf("Permanently delete all records in %d model(s)?", len(plan)))
}

// erase deletes (or, in a dry run, counts) one collection. Only context
// cancellation is returned; store failures are recorded in the report.
func (e *Eraser) erase(ctx context.Context, report *Report, c *registry.Collection, keep *store.Match) error {
	if err := ctx.Err(); err != nil {
		e.reporter.Error(fmt.Sprintf("Interrupted before %s", c.ID))
		return fmt.Errorf("erase interrupted: %w", err)
	}

	var n int64
	var err error
	if report.DryRun {
		n, err = e.store.Count(ctx, c, nil)
		if err == nil && keep != nil {
			n -= report.AdminsKept
		}
	} else {
		n, err = e.store.DeleteAll(ctx, c, keep)
	}

	if err != nil {
		report.Errors = append(report.Errors, CollectionError{ID: c.ID, Err: err})
		e.reporter.Error(fmt.Sprintf("Failed to erase %s: %v", c.ID, err))
		logging.Get(logging.CategoryEraser).Errorw("collection failed", "run_id", report.RunID, "collection", c.ID.String(), "error", err)
		if !report.DryRun {
			logging.Audit(logging.AuditEvent{
				EventType:  logging.AuditCollectionFailed,
				RunID:      report.RunID,
				Collection: c.ID.String(),
				Error:      err.Error(),
			})
		}
		return nil
	}

	if n == 0 {
		logging.EraserDebug("%s: nothing to delete", c.ID)
		return nil
	}
	report.Deleted[c.ID] = n
	if report.DryRun {
		e.reporter.Notice(fmt.Sprintf("Would delete %d record(s) from %s", n, c.ID))
		return nil
	}
	e.reporter.Success(fmt.Sprintf("Deleted %d record(s) from %s", n, c.ID))
	logging.Audit(logging.AuditEvent{
		EventType:  logging.AuditCollectionErased,
		RunID:      report.RunID,
		Collection: c.ID.String(),
		Count:      n,
	})
	return nil
}

func (e *Eraser) summarize(report *Report) {
	total := report.Total()
	switch {
	case report.DryRun && total == 0:
		e.reporter.Notice("Nothing would be deleted.")
	case report.DryRun:
		e.reporter.Notice(fmt.Sprintf("Would delete %d record(s) in total.", total))
	case total == 0:
		e.reporter.Notice("Nothing deleted.")
	default:
		e.reporter.Success(fmt.Sprintf("Deleted %d record(s) in total.", total))
	}
	if len(report.Errors) > 0 {
		e.reporter.Warning(fmt.Sprintf("%d model(s) could not be erased.", len(report.Errors)))
	}

	if !report.DryRun {
		logging.Audit(logging.AuditEvent{
			EventType: logging.AuditEraseComplete,
			RunID:     report.RunID,
			Count:     total,
			Message:   "erase complete",
			Fields: map[string]interface{}{
				"failed": len(report.Errors),
			},
		})
	}
	logging.Eraser("run %s finished: %d deleted, %d failed", report.RunID, total, len(report.Errors))
}
