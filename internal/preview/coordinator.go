// Package preview renders an application without starting generation and
// holds the request until it is confirmed or discarded.
package preview

import (
	"context"
	"sync"

	"jobpilot/internal/errors"
	"jobpilot/internal/orchestrator"
	"jobpilot/internal/types"
)

// Previewer renders a preview on the server
type Previewer interface {
	Preview(ctx context.Context, req types.ApplyRequest) (*types.PreviewResult, error)
}

// Applier starts generation for a confirmed request
type Applier interface {
	Apply(ctx context.Context, req types.ApplyRequest) *orchestrator.Session
}

// Pending is a previewed request waiting for confirmation
type Pending struct {
	Request types.ApplyRequest   `json:"request" yaml:"request"`
	Result  *types.PreviewResult `json:"result" yaml:"result"`
}

// Coordinator holds at most one pending preview
type Coordinator struct {
	previewer Previewer
	applier   Applier
	logger    *errors.Logger

	mu      sync.Mutex
	pending *Pending
}

func NewCoordinator(p Previewer, a Applier, logger *errors.Logger) *Coordinator {
	return &Coordinator{previewer: p, applier: a, logger: logger}
}

// Preview asks the server to render req. On success the request becomes the
// pending one, replacing any earlier preview.
func (c *Coordinator) Preview(ctx context.Context, req types.ApplyRequest) (*Pending, error) {
	result, err := c.previewer.Preview(ctx, req)
	if err != nil {
		c.logger.LogError(err, "Preview failed", "job", req.Job.ID)
		return nil, err
	}

	p := &Pending{Request: req, Result: result}
	c.mu.Lock()
	c.pending = p
	c.mu.Unlock()
	return p, nil
}

// Pending returns the request awaiting confirmation
func (c *Coordinator) Pending() (*Pending, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending, c.pending != nil
}

// Confirm starts generation with exactly the previewed request
func (c *Coordinator) Confirm(ctx context.Context) (*orchestrator.Session, error) {
	c.mu.Lock()
	p := c.pending
	c.pending = nil
	c.mu.Unlock()

	if p == nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "no preview to confirm", nil)
	}
	c.logger.Info("Preview confirmed", "job", p.Request.Job.ID, "template", string(p.Request.Template))
	return c.applier.Apply(ctx, p.Request), nil
}

// Close discards the pending request
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
}
