// Package recovery restores the previous session from server-side state.
package recovery

import (
	"context"

	"jobpilot/internal/errors"
	"jobpilot/internal/types"

	"golang.org/x/sync/errgroup"
)

// Backend reads the state the server kept from earlier sessions
type Backend interface {
	CurrentCV(ctx context.Context) (*types.CVMetadata, error)
	StructuredProfile(ctx context.Context) (*types.Profile, error)
	LastMatches(ctx context.Context, location string) ([]types.MatchedJob, error)
}

// Steps is the part of the pipeline controller recovery drives
type Steps interface {
	Hydrate(p *types.Profile) error
	ResumeResults(matches []types.MatchedJob) error
	SetLocation(location string)
	FindMatches(ctx context.Context) error
}

// Result describes what was restored. Resumable is an offer: the caller
// decides whether to take it through ResumeLastSession.
type Result struct {
	CV           *types.CVMetadata  `json:"cv,omitempty" yaml:"cv,omitempty"`
	Profile      *types.Profile     `json:"profile,omitempty" yaml:"profile,omitempty"`
	Hydrated     bool               `json:"hydrated" yaml:"hydrated"`
	Resumable    []types.MatchedJob `json:"resumable,omitempty" yaml:"resumable,omitempty"`
	AutoSearched bool               `json:"auto_searched" yaml:"auto_searched"`
}

type Recovery struct {
	backend Backend
	steps   Steps
	logger  *errors.Logger
}

func New(backend Backend, steps Steps, logger *errors.Logger) *Recovery {
	return &Recovery{backend: backend, steps: steps, logger: logger}
}

// Run restores the profile and either offers the last matches or starts a
// fresh search. Only authentication failures are returned.
func (r *Recovery) Run(ctx context.Context, location string) (*Result, error) {
	res := &Result{}

	var g errgroup.Group
	g.Go(func() error {
		meta, err := r.backend.CurrentCV(ctx)
		if err != nil {
			return r.tolerate(err, "current CV")
		}
		res.CV = meta
		return nil
	})
	g.Go(func() error {
		p, err := r.backend.StructuredProfile(ctx)
		if err != nil {
			return r.tolerate(err, "structured profile")
		}
		res.Profile = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !res.CV.Present() || res.Profile == nil {
		r.logger.Debug("Nothing to recover", "cv", res.CV.Present(), "profile", res.Profile != nil)
		return res, nil
	}
	if err := r.steps.Hydrate(res.Profile); err != nil {
		r.logger.Warn("Could not restore profile", "error", err)
		return res, nil
	}
	res.Hydrated = true

	last, err := r.backend.LastMatches(ctx, location)
	if err != nil {
		if err := r.tolerate(err, "last matches"); err != nil {
			return nil, err
		}
	}
	if len(last) > 0 {
		res.Resumable = last
		return res, nil
	}

	r.steps.SetLocation(location)
	res.AutoSearched = true
	if err := r.steps.FindMatches(ctx); err != nil {
		if err := r.tolerate(err, "match search"); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// ResumeLastSession accepts the offered matches
func (r *Recovery) ResumeLastSession(res *Result) error {
	if res == nil || len(res.Resumable) == 0 {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "no previous session to resume", nil)
	}
	return r.steps.ResumeResults(res.Resumable)
}

// tolerate swallows everything except authentication failures
func (r *Recovery) tolerate(err error, what string) error {
	switch errors.TypeOf(err) {
	case errors.ErrorTypeAuth:
		return err
	case errors.ErrorTypeNotFound:
		r.logger.Debug("Recovery skipped missing state", "what", what)
	default:
		r.logger.Warn("Recovery ignored a failure", "what", what, "error", err)
	}
	return nil
}
