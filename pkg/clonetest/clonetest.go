// SPDX-License-Identifier: Apache-2.0

// Package clonetest orchestrates the clone-test-apply pipeline: migrate a
// disposable copy of the database first, and only run against the real
// one once the copy proves the migrations succeed. No teacher analogue —
// pgroll's safety net is expand/contract reversibility instead of a
// throwaway copy — but the phased rollback-on-failure shape is grounded
// on the teacher's pkg/roll/execute.go, whose Start joins a rollback
// error into the original failure with errors.Join rather than letting
// the rollback attempt silently swallow what went wrong. This package
// uses the same idiom for clone cleanup: a cleanup failure is logged, not
// allowed to override an otherwise-successful outcome (spec.md §4.12 step
// 6), but it is also never hidden.
package clonetest

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/momentum-cms/migrate/pkg/db"
	"github.com/momentum-cms/migrate/pkg/loader"
	"github.com/momentum-cms/migrate/pkg/migrate"
)

// Phase names one of the five observable stages of a pipeline run
// (spec.md §4.12).
type Phase string

const (
	PhaseClone    Phase = "clone"
	PhaseTest     Phase = "test"
	PhaseApply    Phase = "apply"
	PhaseComplete Phase = "complete"
	PhaseSkipped  Phase = "skipped"
)

// clonePrefix names every clone database this package creates, so an
// adapter's CloneDatabase implementation can recognize and garbage-collect
// abandoned clones from a crashed prior run.
const clonePrefix = "_mig_clone_"

// Cloner is the subset of the database-adapter contract (spec.md §6) this
// pipeline needs: create a disposable copy of the database and open a
// connection to it, then tear it down again. CloneDatabase returns the
// clone's final name (an adapter may need to adjust the requested name,
// e.g. to fit an identifier length limit) alongside a ready-to-use
// connection.
type Cloner interface {
	CloneDatabase(ctx context.Context, requestedName string) (conn db.DB, finalName string, err error)
	DropClone(ctx context.Context, finalName string) error
}

// Result is the structured, never-thrown outcome of a pipeline run
// (spec.md §7's CloneTestApplyResult).
type Result struct {
	Phase          Phase
	CloneResult    *migrate.MigrateResult
	ApplyResult    *migrate.MigrateResult
	Error          error
	Suggestions    []string
	CloneCleanedUp bool
}

// Pipeline runs the clone-test-apply sequence against a real connection,
// using cloner to stand up and tear down the disposable copy.
type Pipeline struct {
	conn   db.DB
	cloner Cloner
	log    loader.Logger
}

// NewPipeline builds a Pipeline. A nil log is replaced with a no-op logger.
func NewPipeline(conn db.DB, cloner Cloner, log loader.Logger) *Pipeline {
	if log == nil {
		log = loader.NewNoopLogger()
	}
	return &Pipeline{conn: conn, cloner: cloner, log: log}
}

// Run executes the pipeline: clone, test, and (unless testOnly) apply to
// the real connection. It has no error return: every failure, including a
// runner error caused by context cancellation, is reported in the
// returned Result (Phase, Error and Suggestions), per spec.md §7's
// propagation policy.
func (p *Pipeline) Run(ctx context.Context, migrations []loader.LoadedMigration, testOnly bool) (result *Result) {
	requestedName := clonePrefix + uuid.NewString()

	cloneConn, finalName, err := p.cloner.CloneDatabase(ctx, requestedName)
	if err != nil {
		p.log.Error("clonetest: failed to create clone", "error", err)
		return &Result{Phase: PhaseClone, Error: fmt.Errorf("clonetest: creating clone: %w", err)}
	}

	// Cleanup must run on every remaining exit path (spec.md §4.12 step
	// 6). result is a named return so this deferred write lands in the
	// value the caller actually receives, whichever branch below set it.
	defer func() {
		if cloneConn != nil {
			if err := cloneConn.Close(); err != nil {
				p.log.Error("clonetest: failed to close clone connection", "name", finalName, "error", err)
			}
		}
		if err := p.cloner.DropClone(ctx, finalName); err != nil {
			p.log.Error("clonetest: failed to drop clone", "name", finalName, "error", err)
			return
		}
		if result != nil {
			result.CloneCleanedUp = true
		}
	}()

	// The clone is disposable and exists solely to surface the same
	// failures the real database would hit. Both the test and apply
	// phases run with the danger gate off, and the pipeline runs no danger
	// check of its own.
	cloneRunner := migrate.NewRunner(cloneConn, p.log)
	cloneResult, err := cloneRunner.Run(ctx, migrations, migrate.RunOptions{SkipDangerCheck: true})
	if err != nil {
		return &Result{Phase: PhaseTest, Error: fmt.Errorf("clonetest: running migrations against clone: %w", err)}
	}

	if cloneResult.FailCount > 0 {
		failing := cloneResult.Results[len(cloneResult.Results)-1]
		return &Result{
			Phase:       PhaseTest,
			CloneResult: cloneResult,
			Suggestions: suggestionsFor(failing.ErrorCode, failing.Error),
		}
	}

	if testOnly {
		return &Result{Phase: PhaseSkipped, CloneResult: cloneResult}
	}

	applyRunner := migrate.NewRunner(p.conn, p.log)
	applyResult, err := applyRunner.Run(ctx, migrations, migrate.RunOptions{SkipDangerCheck: true})
	if err != nil {
		return &Result{Phase: PhaseApply, CloneResult: cloneResult, Error: fmt.Errorf("clonetest: applying migrations: %w", err)}
	}

	if applyResult.FailCount > 0 {
		failing := applyResult.Results[len(applyResult.Results)-1]
		return &Result{
			Phase:       PhaseApply,
			CloneResult: cloneResult,
			ApplyResult: applyResult,
			Suggestions: suggestionsFor(failing.ErrorCode, failing.Error),
		}
	}

	return &Result{
		Phase:       PhaseComplete,
		CloneResult: cloneResult,
		ApplyResult: applyResult,
	}
}

// sqlstateSuggestions maps PostgreSQL SQLSTATEs to a human-readable
// suggestion, per spec.md §4.12's table. Preferred over message-text
// matching whenever an errorCode is present (spec.md §9).
var sqlstateSuggestions = map[string]string{
	"23502": "NOT NULL violation: backfill the column before adding the constraint.",
	"23505": "Unique violation: dedup duplicate values before adding the unique constraint.",
	"23503": "Foreign key violation: ensure every referenced row exists; consider adding the constraint NOT VALID and running VALIDATE separately.",
	"42P07": "Table already exists: add IF NOT EXISTS to the create.",
	"42701": "Column already exists: add IF NOT EXISTS to the add-column.",
	"42P01": "Table not found: check the migration order.",
	"42703": "Column not found: check the migration order.",
	"22P02": "Type conversion failed: use USING or a data-helpers transform before changing the column type.",
	"42804": "Type conversion failed: use USING or a data-helpers transform before changing the column type.",
}

// fallbackPatterns matches known failure phrases in a driver's error
// message when no SQLSTATE is available (e.g. SQLite), per spec.md
// §4.12's "Fallback" list.
var fallbackPatterns = []struct {
	substr     string
	suggestion string
}{
	{"not null", "NOT NULL violation: backfill the column before adding the constraint."},
	{"already exists", "Already exists: add an IF NOT EXISTS guard."},
	{"foreign key", "Foreign key violation: ensure every referenced row exists."},
	{"does not exist", "Not found: check the migration order."},
	{"unique", "Unique violation: dedup duplicate values before adding the unique constraint."},
	{"duplicate key", "Unique violation: dedup duplicate values before adding the unique constraint."},
	{"cast", "Type conversion failed: use USING or a data-helpers transform before changing the column type."},
	{"convert", "Type conversion failed: use USING or a data-helpers transform before changing the column type."},
}

// suggestionsFor derives a human-readable suggestion list for a failed
// migration, preferring the SQLSTATE table over message-text matching.
func suggestionsFor(errorCode, message string) []string {
	if s, ok := sqlstateSuggestions[errorCode]; ok {
		return []string{s}
	}

	lower := strings.ToLower(message)
	var suggestions []string
	seen := make(map[string]bool)
	for _, p := range fallbackPatterns {
		if strings.Contains(lower, p.substr) && !seen[p.suggestion] {
			suggestions = append(suggestions, p.suggestion)
			seen[p.suggestion] = true
		}
	}
	return suggestions
}
