package run

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trackaship/alarmsender/internal/dispatch"
	"github.com/trackaship/alarmsender/internal/domain"
	"github.com/trackaship/alarmsender/internal/metrics"
	"github.com/trackaship/alarmsender/internal/repo"
	"github.com/trackaship/alarmsender/internal/scan"
)

// ErrDiagnosticFailed marks the pre-flight probe refusing the run. Nothing
// is scanned or dispatched after it.
var ErrDiagnosticFailed = errors.New("diagnostic check failed")

// State is the orchestrator's position in the pipeline. Summarized and
// Aborted are terminal.
type State int

const (
	StateInit State = iota
	StateDiagnosticCheck
	StateScanning
	StateDispatching
	StateSummarized
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateDiagnosticCheck:
		return "diagnostic_check"
	case StateScanning:
		return "scanning"
	case StateDispatching:
		return "dispatching"
	case StateSummarized:
		return "summarized"
	default:
		return "aborted"
	}
}

// Probe names a known-good alert document. When both IDs are set the
// orchestrator refuses to run a full scan unless that document is readable
// and carries every required field — a cheap way to catch broken credentials
// or renamed fields before walking the whole user collection.
type Probe struct {
	Owner domain.OwnerID
	Alert domain.AlertID
}

func (p Probe) configured() bool { return p.Owner != "" && p.Alert != "" }

// Orchestrator sequences one run: diagnostic probe, scan, dispatch, summary.
type Orchestrator struct {
	alerts     repo.AlertStore
	scanner    *scan.Scanner
	dispatcher *dispatch.Dispatcher
	probe      Probe
	log        *zap.Logger

	state State
}

func New(alerts repo.AlertStore, scanner *scan.Scanner, dispatcher *dispatch.Dispatcher, probe Probe, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		alerts:     alerts,
		scanner:    scanner,
		dispatcher: dispatcher,
		probe:      probe,
		log:        log,
		state:      StateInit,
	}
}

// State reports the current pipeline state; terminal after Run returns.
func (o *Orchestrator) State() State { return o.state }

// Run executes the pipeline once. On a fatal scan failure the returned
// summary still carries the counters gathered up to the abort, alongside the
// error; on the normal path the summary is complete and the error nil.
func (o *Orchestrator) Run(ctx context.Context) (*domain.RunSummary, error) {
	start := time.Now()
	summary := &domain.RunSummary{RunID: uuid.NewString()}
	log := o.log.With(zap.String("run_id", summary.RunID))
	defer func() {
		summary.Elapsed = time.Since(start)
		metrics.RunDuration.Observe(summary.Elapsed.Seconds())
		log.Info("run_finished",
			zap.String("state", o.state.String()),
			zap.Duration("elapsed", summary.Elapsed),
		)
	}()

	o.state = StateDiagnosticCheck
	if err := o.diagnostic(ctx, log); err != nil {
		o.state = StateAborted
		return summary, err
	}

	o.state = StateScanning
	jobs, stats, err := o.scanner.Scan(ctx, o.probe.Owner)
	fold(summary, stats)
	if err != nil {
		o.state = StateAborted
		log.Error("scan_aborted", zap.Error(err))
		return summary, err
	}
	summary.JobsDispatched = len(jobs)
	metrics.Dispatched.Add(float64(len(jobs)))

	o.state = StateDispatching
	for _, out := range o.dispatcher.Dispatch(ctx, jobs) {
		summary.AddOutcome(out)
	}

	o.state = StateSummarized
	return summary, nil
}

// diagnostic is the hard gate between bootstrap and the full scan. Skipped
// (treated as a pass) when no probe document is configured.
func (o *Orchestrator) diagnostic(ctx context.Context, log *zap.Logger) error {
	if !o.probe.configured() {
		log.Info("diagnostic_skipped")
		return nil
	}

	rec, err := o.alerts.GetAlert(ctx, o.probe.Owner, o.probe.Alert)
	if err != nil {
		log.Error("diagnostic_read_failed",
			zap.String("owner", string(o.probe.Owner)),
			zap.String("alert", string(o.probe.Alert)),
			zap.Error(err),
		)
		return fmt.Errorf("%w: read probe %s/%s: %v", ErrDiagnosticFailed, o.probe.Owner, o.probe.Alert, err)
	}
	if missing := rec.MissingFields(); len(missing) > 0 {
		log.Error("diagnostic_fields_missing", zap.Strings("missing", missing))
		return fmt.Errorf("%w: probe record missing fields %v", ErrDiagnosticFailed, missing)
	}

	log.Info("diagnostic_ok",
		zap.String("owner", string(o.probe.Owner)),
		zap.String("alert", string(o.probe.Alert)),
	)
	return nil
}

func fold(s *domain.RunSummary, st scan.Stats) {
	s.UsersScanned = st.UsersScanned
	s.AlertsScanned = st.AlertsScanned
	s.SkippedInvalid = st.SkippedInvalid
	s.SkippedNoPosition = st.SkippedNoPosition
	s.SkippedOutOfGeofence = st.SkippedOutOfGeofence
	s.OwnersFailed = st.OwnersFailed
}
