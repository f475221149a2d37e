package generation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jask/crystalgen/internal/genapi"
	"github.com/jask/crystalgen/internal/metrics"
)

// State is the lifecycle of the latest generation request.
type State int

const (
	Idle State = iota
	Pending
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent view of the orchestrator for rendering.
// Result is set only when State is Succeeded, Err only when State is Failed.
type Snapshot struct {
	State  State
	Seq    uint64
	Result *Structure
	Err    error
}

// Message returns the failure text, or "" outside Failed.
func (s Snapshot) Message() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Call is one submitted request. Request is an immutable snapshot.
type Call struct {
	Seq       uint64
	Request   genapi.GenerateRequest
	Submitted time.Time
}

// Outcome is the completion of a Call.
type Outcome struct {
	Seq     uint64
	Result  *Structure
	Err     error
	Elapsed time.Duration
}

// Orchestrator runs the submit → pending → succeeded/failed cycle.
// Only the most recently submitted call may change state; completions of
// older calls are dropped.
type Orchestrator struct {
	Service genapi.Service
	Metrics *metrics.Recorder
	Logger  *slog.Logger

	mu     sync.Mutex
	seq    uint64
	state  State
	result *Structure
	err    error
}

// Submit validates p and, when valid, enters Pending and returns the call to
// execute. An invalid p moves straight to Failed and returns the validation
// error with a nil call.
func (o *Orchestrator) Submit(p Parameters) (*Call, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.seq++
	o.result = nil
	if err := p.Validate(); err != nil {
		o.state = Failed
		o.err = err
		o.Metrics.Request(metrics.OutcomeValidation, 0)
		o.logger().Info("generation rejected locally", "seq", o.seq, "reason", err.Error())
		return nil, err
	}
	o.state = Pending
	o.err = nil
	call := &Call{Seq: o.seq, Request: p.Request(), Submitted: time.Now()}
	o.logger().Info("generation submitted", "seq", call.Seq,
		"spacegroup", call.Request.SpaceGroup, "num_atoms", call.Request.NumAtoms,
		"temperature", call.Request.Temperature, "composition", call.Request.Composition)
	return call, nil
}

// Execute performs exactly one service call for c. It does not touch state;
// pass the outcome to Complete.
func (o *Orchestrator) Execute(ctx context.Context, c *Call) Outcome {
	out := Outcome{Seq: c.Seq}
	if o.Service == nil {
		out.Err = &TransportError{Err: errors.New("generation service not configured")}
		return out
	}
	start := time.Now()
	resp, err := o.Service.Generate(ctx, c.Request)
	out.Elapsed = time.Since(start)

	switch {
	case err != nil:
		var te *genapi.TransportError
		if errors.As(err, &te) {
			out.Err = &TransportError{Err: te.Err}
		} else {
			out.Err = &ResponseError{Err: err}
		}
	case !resp.Success:
		msg := resp.Error
		if msg == "" {
			msg = FallbackFailureMessage
		}
		out.Err = &ServiceError{Message: msg}
	default:
		out.Result = structureFrom(resp)
	}
	return out
}

// Complete applies out if it belongs to the latest call still pending.
// It reports whether state changed.
func (o *Orchestrator) Complete(out Outcome) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if out.Seq != o.seq || o.state != Pending {
		o.Metrics.Request(metrics.OutcomeStale, out.Elapsed)
		o.logger().Debug("stale generation completion dropped", "seq", out.Seq, "latest", o.seq)
		return false
	}
	if out.Err != nil {
		o.state = Failed
		o.err = out.Err
		o.result = nil
		o.Metrics.Request(outcomeLabel(out.Err), out.Elapsed)
		o.logger().Warn("generation failed", "seq", out.Seq, "error", out.Err.Error(), "elapsed", out.Elapsed)
		return true
	}
	o.state = Succeeded
	o.err = nil
	o.result = out.Result
	o.Metrics.Request(metrics.OutcomeSuccess, out.Elapsed)
	o.logger().Info("generation succeeded", "seq", out.Seq, "formula", out.Result.Formula,
		"spacegroup", out.Result.SpaceGroup, "atoms", len(out.Result.Atoms), "elapsed", out.Elapsed)
	return true
}

// Run submits, executes and completes one request synchronously.
func (o *Orchestrator) Run(ctx context.Context, p Parameters) Snapshot {
	call, err := o.Submit(p)
	if err != nil {
		return o.Snapshot()
	}
	o.Complete(o.Execute(ctx, call))
	return o.Snapshot()
}

// Snapshot returns the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{State: o.state, Seq: o.seq, Result: o.result, Err: o.err}
}

// Pending reports whether the latest call has not completed.
func (o *Orchestrator) Pending() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == Pending
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func outcomeLabel(err error) string {
	var (
		te *TransportError
		se *ServiceError
		ve *ValidationError
	)
	switch {
	case errors.As(err, &te):
		return metrics.OutcomeTransport
	case errors.As(err, &se):
		return metrics.OutcomeService
	case errors.As(err, &ve):
		return metrics.OutcomeValidation
	default:
		return metrics.OutcomeMalformed
	}
}
