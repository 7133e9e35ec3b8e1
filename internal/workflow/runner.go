package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/glyphworks/strata/internal/audit"
	"github.com/glyphworks/strata/internal/backend"
	"github.com/glyphworks/strata/internal/cache"
	"github.com/glyphworks/strata/internal/schema"
)

// TxOutcome is the per-alias transaction result reported at run end.
type TxOutcome string

const (
	TxOutcomeNone       TxOutcome = "none"
	TxOutcomeCommitted  TxOutcome = "committed"
	TxOutcomeRolledBack TxOutcome = "rolled_back"
	// TxOutcomeIndeterminate means rollback itself failed; the backing
	// store may hold partial writes.
	TxOutcomeIndeterminate TxOutcome = "indeterminate"
)

// StepResult is the outcome of one executed step.
type StepResult struct {
	ID       string
	Alias    string
	Rows     []backend.Row
	Affected int64
	Err      error
}

// Report summarizes one workflow run. Tx holds one outcome per touched
// alias: multi-backend workflows get one independent transaction per
// backend, never a single cross-backend one.
type Report struct {
	RunID    string
	Workflow string
	Steps    []StepResult
	Aliases  []string
	Tx       map[string]TxOutcome
	Err      error
	// RollbackFailed flags the high-severity case: a failed run whose
	// rollback also failed, leaving a backend possibly indeterminate.
	RollbackFailed bool
}

// Runner executes workflows against the cache tiers. Runs are sequential;
// the runner admits one at a time.
type Runner struct {
	caches   *cache.Orchestrator
	resolver *schema.Resolver
	registry *backend.Registry
	auditor  *audit.Logger
	logger   *slog.Logger
}

// NewRunner wires a Runner. The auditor is optional; a nil logger falls
// back to slog's default.
func NewRunner(caches *cache.Orchestrator, resolver *schema.Resolver, registry *backend.Registry, auditor *audit.Logger, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		caches:   caches,
		resolver: resolver,
		registry: registry,
		auditor:  auditor,
		logger:   logger,
	}
}

// Run executes the workflow. The returned error is the first failure (step,
// begin, or commit); the report always arrives, carrying per-step results
// and per-alias transaction outcomes. Whatever happens, every connection
// opened during the run is released before Run returns.
func (r *Runner) Run(ctx context.Context, wf *Workflow) (*Report, error) {
	rep := &Report{
		RunID:    uuid.NewString(),
		Workflow: wf.Name,
		Tx:       make(map[string]TxOutcome),
	}
	r.record(&audit.Event{RunID: rep.RunID, Type: audit.EventRunStarted,
		Detail: map[string]any{"workflow": wf.Name, "transactional": wf.Transactional}})

	ev := NewEvaluator()
	stepResults := make(map[string]any, len(wf.Steps))
	_ = ev.Bind("run", map[string]any{"id": rep.RunID, "workflow": wf.Name})
	_ = ev.Bind("steps", stepResults)

	var runErr error
	for i := range wf.Steps {
		step := &wf.Steps[i]

		// An aborted run is a failed run: fall through to rollback+clear.
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("run aborted before step %s: %w", step.ID, err)
			break
		}

		conn, err := r.ensureConn(ctx, wf, step.Alias, rep)
		if err != nil {
			runErr = err
			break
		}

		res := r.execStep(ctx, ev, conn, step)
		rep.Steps = append(rep.Steps, res)
		if res.Err != nil {
			runErr = fmt.Errorf("step %s: %w", step.ID, res.Err)
			r.record(&audit.Event{RunID: rep.RunID, Type: audit.EventStepFailed,
				Alias: step.Alias, Step: step.ID, Detail: map[string]any{"error": res.Err.Error()}})
			break
		}

		stepResults[step.ID] = map[string]any{"rows": res.Rows, "affected": res.Affected}
		r.record(&audit.Event{RunID: rep.RunID, Type: audit.EventStepDone,
			Alias: step.Alias, Step: step.ID, Detail: map[string]any{"affected": res.Affected}})
	}

	runErr = r.finish(ctx, wf, rep, runErr)
	rep.Err = runErr

	r.caches.Schema().Clear(ctx)
	r.record(&audit.Event{RunID: rep.RunID, Type: audit.EventRunFinished,
		Detail: map[string]any{"failed": runErr != nil, "rollback_failed": rep.RollbackFailed}})
	return rep, runErr
}

// ensureConn returns the alias's live connection, opening (and, for
// transactional workflows, beginning a transaction on) a new one on first
// touch.
func (r *Runner) ensureConn(ctx context.Context, wf *Workflow, alias string, rep *Report) (backend.Conn, error) {
	conns := r.caches.Schema()
	if conn, ok := conns.Get(alias); ok {
		return conn, nil
	}

	s, err := r.resolveAlias(alias)
	if err != nil {
		return nil, err
	}

	conn, err := r.registry.Open(ctx, s.Source)
	if err != nil {
		return nil, fmt.Errorf("open backend for alias %q: %w", alias, err)
	}
	conns.Set(alias, s.Source.Kind, conn)
	rep.Aliases = append(rep.Aliases, alias)
	rep.Tx[alias] = TxOutcomeNone
	r.record(&audit.Event{RunID: rep.RunID, Type: audit.EventConnOpened,
		Alias: alias, Detail: map[string]any{"kind": s.Source.Kind}})

	if wf.Transactional {
		if err := conns.BeginTx(ctx, alias); err != nil {
			return nil, err
		}
	}
	return conn, nil
}

// resolveAlias returns the alias's schema: the pinned tier wins, otherwise
// the resolver loads it from the search paths and pins it for the session.
func (r *Runner) resolveAlias(alias string) (*schema.Schema, error) {
	if v, ok := r.caches.Pinned().Get(alias); ok {
		s, ok := v.(*schema.Schema)
		if !ok {
			return nil, fmt.Errorf("alias %q: pinned value is %T, not a schema", alias, v)
		}
		return s, nil
	}
	s, origin, err := r.resolver.ResolveAlias(alias)
	if err != nil {
		return nil, err
	}
	r.caches.Pinned().Set(alias, s, origin)
	return s, nil
}

func (r *Runner) execStep(ctx context.Context, ev *Evaluator, conn backend.Conn, step *Step) StepResult {
	res := StepResult{ID: step.ID, Alias: step.Alias}

	args, err := ev.EvalArgs(step.Args)
	if err != nil {
		res.Err = err
		return res
	}

	switch step.Op {
	case OpExec:
		res.Affected, res.Err = conn.Exec(ctx, step.Stmt, args...)
	case OpQuery:
		res.Rows, res.Err = conn.Query(ctx, step.Stmt, args...)
	default:
		res.Err = fmt.Errorf("invalid op %q", step.Op)
	}
	return res
}

// finish resolves every touched alias's transaction: commit on an
// all-success run, rollback otherwise. A commit failure fails the run and
// flips the remaining aliases to the rollback path; already-committed
// backends stay committed (per-alias independence, no retroactive undo).
func (r *Runner) finish(ctx context.Context, wf *Workflow, rep *Report, runErr error) error {
	if !wf.Transactional {
		return runErr
	}
	conns := r.caches.Schema()

	for _, alias := range rep.Aliases {
		rec, ok := conns.Record(alias)
		if !ok || rec.State != cache.TxActive {
			continue
		}

		if runErr == nil {
			if err := conns.CommitTx(ctx, alias); err != nil {
				runErr = err
				r.rollback(ctx, rep, alias)
				continue
			}
			rep.Tx[alias] = TxOutcomeCommitted
			r.record(&audit.Event{RunID: rep.RunID, Type: audit.EventTxCommitted, Alias: alias})
			continue
		}
		r.rollback(ctx, rep, alias)
	}
	return runErr
}

func (r *Runner) rollback(ctx context.Context, rep *Report, alias string) {
	if err := r.caches.Schema().RollbackTx(ctx, alias); err != nil {
		rep.Tx[alias] = TxOutcomeIndeterminate
		rep.RollbackFailed = true
		r.logger.Error("rollback failed, backing store may be indeterminate",
			"run", rep.RunID, "alias", alias, "error", err)
		r.record(&audit.Event{RunID: rep.RunID, Type: audit.EventTxIndeterm,
			Alias: alias, Detail: map[string]any{"error": err.Error()}})
		return
	}
	rep.Tx[alias] = TxOutcomeRolledBack
	r.record(&audit.Event{RunID: rep.RunID, Type: audit.EventTxRolledBack, Alias: alias})
}

func (r *Runner) record(ev *audit.Event) {
	if r.auditor != nil {
		r.auditor.Record(ev)
	}
}
