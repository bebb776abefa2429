package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"jobpilot/internal/errors"
	"jobpilot/internal/events"
	"jobpilot/internal/types"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Session follows one generation job. Cancel and the accessors are safe to
// call from any goroutine.
type Session struct {
	o       *Orchestrator
	req     types.ApplyRequest
	parent  context.Context
	updates chan Update
	done    chan struct{}
	outcome Outcome

	// waitCtx ends any backoff wait as soon as Cancel is called
	waitCtx   context.Context
	stopWait  context.CancelFunc
	stopWatch func() bool

	tracking  bool
	cancelled atomic.Bool
	attempts  atomic.Int64

	mu       sync.Mutex
	jobID    string
	notified bool
	finished bool
	notifyWG sync.WaitGroup
}

func newSession(ctx context.Context, o *Orchestrator, req types.ApplyRequest, jobID string) *Session {
	s := &Session{
		o:       o,
		req:     req,
		parent:  ctx,
		jobID:   jobID,
		updates: make(chan Update, o.cfg.MaxAttempts+3),
		done:    make(chan struct{}),
	}
	s.waitCtx, s.stopWait = context.WithCancel(context.WithoutCancel(ctx))
	s.stopWatch = context.AfterFunc(ctx, s.Cancel)
	return s
}

// Updates delivers progress and then exactly one terminal update
func (s *Session) Updates() <-chan Update {
	return s.updates
}

// JobID returns the server job id, empty until the start call returns
func (s *Session) JobID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobID
}

// Cancelled reports whether Cancel was called
func (s *Session) Cancelled() bool {
	return s.cancelled.Load()
}

// Attempts returns the number of non-terminal polls so far
func (s *Session) Attempts() int {
	return int(s.attempts.Load())
}

// Cancel stops the session. Only the first call has an effect: it wakes any
// pending wait and asks the server, once, to abandon the job.
func (s *Session) Cancel() {
	if !s.cancelled.CompareAndSwap(false, true) {
		return
	}
	s.stopWait()
	s.notifyServer()
}

// Wait blocks until the session ends or ctx is done
func (s *Session) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-s.done:
		return s.outcome, s.outcome.Err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Done is closed once the terminal update has been sent
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// notifyServer sends the best-effort cancel request. It is a no-op until a
// job id is known and after the session has finished.
func (s *Session) notifyServer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notified || s.finished || s.jobID == "" {
		return
	}
	s.notified = true

	jobID := s.jobID
	s.notifyWG.Add(1)
	go func() {
		defer s.notifyWG.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(s.parent), s.o.cfg.CancelTimeout)
		defer cancel()
		if err := s.o.backend.CancelApplication(ctx, jobID); err != nil {
			s.o.logger.Warn("Cancel request not acknowledged", "job_id", jobID, "error", err)
			return
		}
		s.o.logger.Debug("Cancel request sent", "job_id", jobID)
	}()
}

func (s *Session) run() {
	started := time.Now()
	ctx, span := s.o.tracer.Start(s.parent, "orchestrator.apply")
	span.SetAttributes(
		attribute.String("job.id", s.req.Job.ID),
		attribute.String("template", string(s.req.Template)),
	)

	out := s.execute(ctx)
	out.JobID = s.JobID()
	out.Request = s.req
	out.Attempts = s.Attempts()
	out.Elapsed = time.Since(started)
	out.FinishedAt = time.Now().UTC()

	span.SetAttributes(
		attribute.String("generation.id", out.JobID),
		attribute.String("outcome", string(out.Kind)),
		attribute.Int("attempts", out.Attempts),
	)
	if out.Kind == KindError {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, out.Message())
	}
	span.End()

	s.finish(ctx, out)
}

func (s *Session) execute(ctx context.Context) Outcome {
	jobID := s.JobID()
	if s.tracking && jobID == "" {
		return Outcome{Kind: KindError, Err: errors.NewJobError(errors.ErrCodeJobNotStarted, "no job id to follow", nil)}
	}
	if jobID == "" {
		id, err := s.o.backend.StartApplication(ctx, s.req)
		if err != nil {
			if s.stopped() {
				return s.cancelledOutcome()
			}
			return Outcome{Kind: KindError, Err: err}
		}
		if id == "" {
			return Outcome{Kind: KindError, Err: errors.NewJobError(errors.ErrCodeJobNotStarted,
				"server accepted the request but returned no job id", nil)}
		}
		jobID = id
		s.mu.Lock()
		s.jobID = id
		s.mu.Unlock()
	}

	s.o.hub.Publish(events.ApplyStarted, jobID, s.req)
	s.o.logger.Info("Application started", "job_id", jobID, "template", string(s.req.Template))

	// Cancel may have arrived while the start call was in flight
	if s.stopped() {
		s.notifyServer()
	}

	return s.poll(ctx, jobID)
}

func (s *Session) poll(ctx context.Context, jobID string) Outcome {
	cfg := s.o.cfg
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(cfg.InitialInterval),
		backoff.WithMultiplier(cfg.Multiplier),
		backoff.WithMaxInterval(cfg.MaxInterval),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxElapsedTime(0),
	)

	for attempts := 0; attempts < cfg.MaxAttempts; {
		if s.stopped() {
			return s.cancelledOutcome()
		}

		// A reply already on its way is honored even if the parent context
		// ends meanwhile; the gateway timeout still bounds the request.
		st, err := s.o.backend.ApplicationStatus(context.WithoutCancel(ctx), jobID)
		if err != nil {
			if s.stopped() {
				return s.cancelledOutcome()
			}
			return Outcome{Kind: KindError, Err: err}
		}
		s.o.metrics.RecordPoll(ctx, string(st.Status))

		switch {
		case st.Status == types.StatusDone && st.Files != nil:
			return Outcome{Kind: KindDone, Files: st.Files, ATS: st.ATS}
		case st.Status == types.StatusError:
			msg := st.Error
			if msg == "" {
				msg = "generation failed"
			}
			return Outcome{Kind: KindError, Err: errors.NewJobError(errors.ErrCodeJobFailed, msg, nil).
				WithContext("job_id", jobID)}
		}

		attempts++
		s.attempts.Store(int64(attempts))

		delay := cfg.NotFoundDelay
		if st.Status != types.StatusNotFound {
			delay = b.NextBackOff()
		}

		progress := min(100, attempts*100/cfg.MaxAttempts)
		s.updates <- Update{JobID: jobID, Attempt: attempts, Progress: progress, Status: st.Status}
		s.o.hub.Publish(events.ApplyProgress, jobID, progress)
		s.o.logger.Debug("Generation in progress",
			"job_id", jobID, "status", string(st.Status), "attempt", attempts, "next_poll", delay)

		if attempts >= cfg.MaxAttempts {
			break
		}
		_ = s.o.sleep(s.waitCtx, delay)
	}

	if s.stopped() {
		return s.cancelledOutcome()
	}
	return Outcome{Kind: KindTimeout, Err: errors.NewTimeoutError(errors.ErrCodePollTimeout,
		fmt.Sprintf("no result after %d polls; the job may still be running", cfg.MaxAttempts), nil).
		WithContext("job_id", jobID)}
}

// stopped reports whether the session was cancelled, directly or through its
// parent context.
func (s *Session) stopped() bool {
	if s.parent.Err() != nil {
		s.Cancel()
	}
	return s.cancelled.Load()
}

// cancelledOutcome also makes sure the server has been told, since a Cancel
// fired by the parent context may still be on its way.
func (s *Session) cancelledOutcome() Outcome {
	s.notifyServer()
	return Outcome{Kind: KindCancelled, Err: errors.NewCancelledError(errors.ErrCodeCancelled, "application cancelled", nil)}
}

// finish waits for the cancel notification, publishes the outcome and closes
// the update channel.
func (s *Session) finish(ctx context.Context, out Outcome) {
	s.mu.Lock()
	s.finished = true
	s.mu.Unlock()

	s.notifyWG.Wait()
	s.stopWatch()
	s.stopWait()

	s.outcome = out
	s.o.complete(ctx, out)

	s.updates <- Update{JobID: out.JobID, Attempt: out.Attempts, Progress: s.progressOf(out), Outcome: &out}
	close(s.updates)
	close(s.done)
}

func (s *Session) progressOf(out Outcome) int {
	if out.Kind == KindDone {
		return 100
	}
	return min(100, out.Attempts*100/s.o.cfg.MaxAttempts)
}
