// Package orchestrator starts document generation jobs and follows them to a
// terminal outcome.
package orchestrator

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"jobpilot/internal/config"
	"jobpilot/internal/errors"
	"jobpilot/internal/events"
	"jobpilot/internal/observability"
	"jobpilot/internal/types"
	"jobpilot/internal/utils"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Backend is the subset of the API used to run a generation job
type Backend interface {
	StartApplication(ctx context.Context, req types.ApplyRequest) (string, error)
	ApplicationStatus(ctx context.Context, jobID string) (*types.StatusResponse, error)
	CancelApplication(ctx context.Context, jobID string) error
}

// Recorder persists terminal outcomes
type Recorder interface {
	Record(ctx context.Context, out Outcome) error
}

// Sleeper blocks for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Kind is the terminal state of a generation job
type Kind string

const (
	KindDone      Kind = "done"
	KindError     Kind = "error"
	KindCancelled Kind = "cancelled"
	KindTimeout   Kind = "timeout"
)

// Outcome is the single terminal result of a session
type Outcome struct {
	Kind       Kind                      `json:"kind" yaml:"kind"`
	JobID      string                    `json:"job_id,omitempty" yaml:"job_id,omitempty"`
	Request    types.ApplyRequest        `json:"request" yaml:"request"`
	Files      *types.GeneratedArtifacts `json:"files,omitempty" yaml:"files,omitempty"`
	ATS        *types.ATSFeedback        `json:"ats,omitempty" yaml:"ats,omitempty"`
	Err        error                     `json:"-" yaml:"-"`
	Attempts   int                       `json:"attempts" yaml:"attempts"`
	Elapsed    time.Duration             `json:"elapsed" yaml:"elapsed"`
	FinishedAt time.Time                 `json:"finished_at" yaml:"finished_at"`
}

// Message returns the error text of a failed outcome, or an empty string
func (o Outcome) Message() string {
	if o.Err == nil {
		return ""
	}
	var appErr *errors.AppError
	if stderrors.As(o.Err, &appErr) {
		return appErr.Message
	}
	return o.Err.Error()
}

// Update is a progress notification. The last update of a session carries
// the Outcome and is followed by the channel closing.
type Update struct {
	JobID    string          `json:"job_id,omitempty"`
	Attempt  int             `json:"attempt"`
	Progress int             `json:"progress"`
	Status   types.JobStatus `json:"status,omitempty"`
	Outcome  *Outcome        `json:"outcome,omitempty"`
}

// Orchestrator creates apply sessions. It keeps no registry of running jobs.
type Orchestrator struct {
	backend  Backend
	cfg      config.ApplyConfig
	recorder Recorder
	hub      *events.Hub
	metrics  *observability.Metrics
	tracer   trace.Tracer
	logger   *errors.Logger
	sleep    Sleeper

	mu   sync.Mutex
	last *Outcome
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

func WithRecorder(r Recorder) Option { return func(o *Orchestrator) { o.recorder = r } }

func WithHub(h *events.Hub) Option { return func(o *Orchestrator) { o.hub = h } }

func WithMetrics(m *observability.Metrics) Option { return func(o *Orchestrator) { o.metrics = m } }

func WithTracer(t trace.Tracer) Option { return func(o *Orchestrator) { o.tracer = t } }

func WithLogger(l *errors.Logger) Option { return func(o *Orchestrator) { o.logger = l } }

// WithSleeper replaces the timer used between polls
func WithSleeper(s Sleeper) Option { return func(o *Orchestrator) { o.sleep = s } }

// New creates an orchestrator over backend
func New(backend Backend, cfg config.ApplyConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend: backend,
		cfg:     cfg,
		tracer:  noop.NewTracerProvider().Tracer("jobpilot/orchestrator"),
		sleep:   utils.Sleep,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.cfg.MaxAttempts < 1 {
		o.cfg.MaxAttempts = 1
	}
	return o
}

// Apply starts a generation job for req and returns the session following it
func (o *Orchestrator) Apply(ctx context.Context, req types.ApplyRequest) *Session {
	s := newSession(ctx, o, req, "")
	go s.run()
	return s
}

// Track follows a job that was started elsewhere
func (o *Orchestrator) Track(ctx context.Context, jobID string) *Session {
	s := newSession(ctx, o, types.ApplyRequest{}, jobID)
	s.tracking = true
	go s.run()
	return s
}

// LastOutcome returns the most recent successful outcome
func (o *Orchestrator) LastOutcome() (Outcome, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		return Outcome{}, false
	}
	return *o.last, true
}

var outcomeEvents = map[Kind]string{
	KindDone:      events.ApplyDone,
	KindError:     events.ApplyError,
	KindCancelled: events.ApplyCancelled,
	KindTimeout:   events.ApplyTimeout,
}

// complete records a terminal outcome once
func (o *Orchestrator) complete(ctx context.Context, out Outcome) {
	if out.Kind == KindDone {
		o.mu.Lock()
		last := out
		o.last = &last
		o.mu.Unlock()
	}

	o.metrics.RecordApplyOutcome(ctx, string(out.Kind), out.Elapsed)
	o.hub.Publish(outcomeEvents[out.Kind], out.JobID, out)

	if o.recorder != nil {
		if err := o.recorder.Record(context.WithoutCancel(ctx), out); err != nil {
			o.logger.Warn("Failed to record apply outcome", "job_id", out.JobID, "error", err)
		}
	}

	switch out.Kind {
	case KindDone:
		o.logger.Info("Application documents ready", "job_id", out.JobID, "attempts", out.Attempts)
	case KindError:
		o.logger.LogError(out.Err, "Application failed", "job_id", out.JobID)
	default:
		o.logger.Info("Application ended", "job_id", out.JobID, "outcome", string(out.Kind))
	}
}
