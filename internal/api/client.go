package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"jobpilot/internal/errors"
	"jobpilot/internal/gateway"
	"jobpilot/internal/types"
)

// Caller performs one backend call
type Caller interface {
	Call(ctx context.Context, endpoint string, opts gateway.Options) (*gateway.Response, error)
}

// Client is the typed wrapper over the backend REST surface
type Client struct {
	gw Caller
}

// NewClient creates a client on top of a gateway
func NewClient(gw Caller) *Client {
	return &Client{gw: gw}
}

// envelope is the common {success, error} wrapper of backend replies
type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
	Detail  string `json:"detail"`
}

func (e envelope) message() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Detail
}

// call issues the request and decodes a successful body into out.
// HTTP 404 becomes a not-found error, other non-2xx statuses and
// {success:false} replies become API errors.
func (c *Client) call(ctx context.Context, endpoint string, opts gateway.Options, out any) error {
	resp, err := c.gw.Call(ctx, endpoint, opts)
	if err != nil {
		return err
	}
	return interpret(resp, endpoint, out)
}

func interpret(resp *gateway.Response, endpoint string, out any) error {
	var env envelope
	hasBody := len(bytes.TrimSpace(resp.Body)) > 0
	if hasBody {
		_ = json.Unmarshal(resp.Body, &env)
	}

	if resp.StatusCode == http.StatusNotFound {
		msg := env.message()
		if msg == "" {
			msg = "resource not found"
		}
		return errors.NewNotFoundError(errors.ErrCodeNotFound, msg, nil).
			WithContext("endpoint", endpoint)
	}

	if !resp.OK() {
		msg := env.message()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return errors.NewAPIError(strconv.Itoa(resp.StatusCode), msg, nil).
			WithContext("endpoint", endpoint).
			WithContext("request_id", resp.RequestID)
	}

	if env.Success != nil && !*env.Success {
		msg := env.message()
		if msg == "" {
			msg = "request was not successful"
		}
		return errors.NewAPIError(strconv.Itoa(resp.StatusCode), msg, nil).
			WithContext("endpoint", endpoint)
	}

	if out == nil || !hasBody {
		return nil
	}
	return resp.Decode(out)
}

// AnalyzeCV uploads a CV and returns the extracted profile
func (c *Client) AnalyzeCV(ctx context.Context, filename, contentType string, data []byte) (*types.Profile, error) {
	var out struct {
		Profile *types.Profile `json:"profile"`
	}
	err := c.call(ctx, "/analyze-cv", gateway.Options{File: &gateway.FilePart{
		Field:       "cv",
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
	}}, &out)
	if err != nil {
		return nil, err
	}
	if out.Profile == nil {
		return nil, errors.NewAPIError(errors.ErrCodeBadResponse, "analysis returned no profile", nil)
	}
	out.Profile.Normalize()
	return out.Profile, nil
}

type matchesReply struct {
	Matches []types.MatchedJob `json:"matches"`
}

// FindMatches runs a fresh match against the stored profile
func (c *Client) FindMatches(ctx context.Context, req types.MatchRequest) ([]types.MatchedJob, error) {
	var out matchesReply
	if err := c.call(ctx, "/match-jobs", gateway.Options{JSON: req}, &out); err != nil {
		return nil, err
	}
	return out.Matches, nil
}

// LastMatches returns the most recent match set computed for location
func (c *Client) LastMatches(ctx context.Context, location string) ([]types.MatchedJob, error) {
	var out matchesReply
	err := c.call(ctx, "/matches/last", gateway.Options{Query: url.Values{"location": {location}}}, &out)
	if err != nil {
		return nil, err
	}
	return out.Matches, nil
}

// SaveProfile persists an edited profile. Invalid profiles never reach the network.
func (c *Client) SaveProfile(ctx context.Context, p types.Profile) error {
	p.Normalize()
	if err := types.ValidateProfile(&p); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidProfile, err.Error(), err)
	}
	return c.call(ctx, "/profile", gateway.Options{Method: http.MethodPut, JSON: p}, nil)
}

// CurrentCV returns the metadata of the CV held server-side
func (c *Client) CurrentCV(ctx context.Context) (*types.CVMetadata, error) {
	var out types.CVMetadata
	if err := c.call(ctx, "/profile/current", gateway.Options{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StructuredProfile returns the stored profile, nil when there is none
func (c *Client) StructuredProfile(ctx context.Context) (*types.Profile, error) {
	var out struct {
		Profile *types.Profile `json:"profile"`
	}
	if err := c.call(ctx, "/profile/structured", gateway.Options{}, &out); err != nil {
		return nil, err
	}
	if out.Profile != nil {
		out.Profile.Normalize()
	}
	return out.Profile, nil
}

// Preview renders the application documents synchronously
func (c *Client) Preview(ctx context.Context, req types.ApplyRequest) (*types.PreviewResult, error) {
	var out types.PreviewResult
	if err := c.call(ctx, "/apply-preview", gateway.Options{JSON: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartApplication creates a generation job and returns its id as sent by the server
func (c *Client) StartApplication(ctx context.Context, req types.ApplyRequest) (string, error) {
	var out struct {
		JobID string `json:"job_id"`
	}
	if err := c.call(ctx, "/apply-job", gateway.Options{JSON: req}, &out); err != nil {
		return "", err
	}
	return out.JobID, nil
}

// ApplicationStatus polls a generation job. A bare 404 means the job is
// not registered yet and is reported as not_found rather than an error.
func (c *Client) ApplicationStatus(ctx context.Context, jobID string) (*types.StatusResponse, error) {
	resp, err := c.gw.Call(ctx, "/apply-status", gateway.Options{Query: url.Values{"job_id": {jobID}}})
	if err != nil {
		return nil, err
	}

	var out types.StatusResponse
	if resp.StatusCode == http.StatusNotFound {
		if json.Unmarshal(resp.Body, &out) == nil && out.Status != "" {
			return &out, nil
		}
		return &types.StatusResponse{Status: types.StatusNotFound}, nil
	}

	if err := interpret(resp, "/apply-status", &out); err != nil {
		return nil, err
	}
	if out.Status == "" {
		return nil, errors.NewAPIError(errors.ErrCodeBadResponse, "status reply without status", nil).
			WithContext("job_id", jobID)
	}
	return &out, nil
}

// CancelApplication asks the server to stop a job
func (c *Client) CancelApplication(ctx context.Context, jobID string) error {
	return c.call(ctx, "/apply-cancel", gateway.Options{
		Method: http.MethodPost,
		Query:  url.Values{"job_id": {jobID}},
	}, nil)
}
