// Package pipeline drives a CV from upload through analysis to job matches.
package pipeline

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"jobpilot/internal/config"
	"jobpilot/internal/errors"
	"jobpilot/internal/events"
	"jobpilot/internal/observability"
	"jobpilot/internal/types"
	"jobpilot/internal/utils"
)

// Step is a stage of the upload-to-results flow
type Step string

const (
	StepUpload    Step = "upload"
	StepAnalyzing Step = "analyzing"
	StepProfile   Step = "profile"
	StepMatching  Step = "matching"
	StepResults   Step = "results"
)

// Backend is the part of the API the controller drives
type Backend interface {
	AnalyzeCV(ctx context.Context, filename, contentType string, data []byte) (*types.Profile, error)
	FindMatches(ctx context.Context, req types.MatchRequest) ([]types.MatchedJob, error)
}

// StepChange is the payload of a step.changed event
type StepChange struct {
	From Step `json:"from"`
	To   Step `json:"to"`
}

// Controller owns the current step and the data produced along the way.
// It is safe for concurrent use; network calls run without holding the lock.
type Controller struct {
	backend Backend
	cfg     config.PipelineConfig
	hub     *events.Hub
	metrics *observability.Metrics
	logger  *errors.Logger

	mu       sync.Mutex
	step     Step
	profile  *types.Profile
	matches  []types.MatchedJob
	lastErr  error
	location string
}

// Option configures a Controller
type Option func(*Controller)

func WithHub(h *events.Hub) Option { return func(c *Controller) { c.hub = h } }

func WithMetrics(m *observability.Metrics) Option { return func(c *Controller) { c.metrics = m } }

func WithLogger(l *errors.Logger) Option { return func(c *Controller) { c.logger = l } }

// NewController returns a controller positioned at the upload step
func NewController(backend Backend, cfg config.PipelineConfig, opts ...Option) *Controller {
	c := &Controller{
		backend:  backend,
		cfg:      cfg,
		step:     StepUpload,
		location: cfg.Location,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

func (c *Controller) Profile() *types.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

func (c *Controller) Matches() []types.MatchedJob {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.matches)
}

// LastError returns the failure that last sent the flow back a step, if any
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// SetLocation changes the location used for subsequent match searches
func (c *Controller) SetLocation(location string) {
	c.mu.Lock()
	c.location = location
	c.mu.Unlock()
}

// Submit validates and analyzes a CV. On success the controller moves to the
// profile step and, with auto-match enabled, searches for matches after the
// auto-advance delay.
func (c *Controller) Submit(ctx context.Context, f CVFile) error {
	mt, err := ValidateCV(f, c.cfg.MaxFileSize, c.cfg.AllowedTypes)
	if err != nil {
		c.setError(err)
		return err
	}
	if err := c.transition(ctx, StepUpload, StepAnalyzing, nil); err != nil {
		return err
	}

	c.logger.Info("Analyzing CV", "filename", f.Name, "type", mt, "size", FormatFileSize(f.Size()))
	profile, err := c.backend.AnalyzeCV(ctx, f.Name, mt, f.Data)
	if err != nil {
		c.fail(ctx, StepAnalyzing, StepUpload, err)
		return err
	}

	profile.Normalize()
	if err := c.transition(ctx, StepAnalyzing, StepProfile, func() { c.profile = profile }); err != nil {
		return err
	}

	if !c.cfg.AutoMatch {
		return nil
	}
	if utils.Sleep(ctx, c.cfg.AutoAdvanceDelay) != nil {
		c.logger.Debug("Auto-advance to matching interrupted", "error", ctx.Err())
		return nil
	}
	return c.FindMatches(ctx)
}

// FindMatches searches jobs for the analyzed profile
func (c *Controller) FindMatches(ctx context.Context) error {
	if err := c.transition(ctx, StepProfile, StepMatching, nil); err != nil {
		return err
	}

	c.mu.Lock()
	req := types.MatchRequest{Location: c.location, MaxResults: c.cfg.MaxResults, UseDemo: c.cfg.UseDemo}
	c.mu.Unlock()

	matches, err := c.backend.FindMatches(ctx, req)
	if err != nil {
		c.fail(ctx, StepMatching, StepProfile, err)
		return err
	}
	return c.transition(ctx, StepMatching, StepResults, func() { c.matches = matches })
}

// UploadNew discards the current profile and matches to start over
func (c *Controller) UploadNew() error {
	return c.transition(context.Background(), StepResults, StepUpload, func() {
		c.profile = nil
		c.matches = nil
	})
}

// Hydrate restores a profile already held by the server
func (c *Controller) Hydrate(p *types.Profile) error {
	if p == nil {
		return errors.NewValidationError(errors.ErrCodeInvalidProfile, "cannot hydrate an empty profile", nil)
	}
	return c.transition(context.Background(), StepUpload, StepProfile, func() { c.profile = p })
}

// ResumeResults restores matches from a previous session
func (c *Controller) ResumeResults(matches []types.MatchedJob) error {
	return c.transition(context.Background(), StepProfile, StepResults, func() { c.matches = matches })
}

// transition moves from one step to another, applying mutate under the lock
func (c *Controller) transition(ctx context.Context, from, to Step, mutate func()) error {
	c.mu.Lock()
	if c.step != from {
		current := c.step
		c.mu.Unlock()
		return errors.NewValidationError(errors.ErrCodeInvalidTransition,
			fmt.Sprintf("cannot move to %s from %s", to, current), nil).
			WithContext("expected", string(from))
	}
	c.step = to
	c.lastErr = nil
	if mutate != nil {
		mutate()
	}
	c.mu.Unlock()

	c.announce(ctx, from, to)
	return nil
}

// fail returns to an earlier step and keeps err for LastError
func (c *Controller) fail(ctx context.Context, from, to Step, err error) {
	c.mu.Lock()
	c.step = to
	c.lastErr = err
	c.mu.Unlock()

	c.logger.LogError(err, "Pipeline step failed", "step", string(from))
	c.announce(ctx, from, to)
}

func (c *Controller) setError(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

func (c *Controller) announce(ctx context.Context, from, to Step) {
	c.logger.Debug("Pipeline step changed", "from", string(from), "to", string(to))
	c.metrics.RecordStepTransition(ctx, string(from), string(to))
	c.hub.Publish(events.StepChanged, "", StepChange{From: from, To: to})
}
