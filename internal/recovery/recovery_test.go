package recovery

import (
	"context"
	"testing"

	"jobpilot/internal/config"
	"jobpilot/internal/errors"
	"jobpilot/internal/pipeline"
	"jobpilot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	cv         *types.CVMetadata
	cvErr      error
	profile    *types.Profile
	profileErr error
	last       []types.MatchedJob
	lastErr    error
	matches    []types.MatchedJob
	matchErr   error
	searches   []types.MatchRequest
}

func (f *fakeBackend) CurrentCV(context.Context) (*types.CVMetadata, error) { return f.cv, f.cvErr }

func (f *fakeBackend) StructuredProfile(context.Context) (*types.Profile, error) {
	return f.profile, f.profileErr
}

func (f *fakeBackend) LastMatches(context.Context, string) ([]types.MatchedJob, error) {
	return f.last, f.lastErr
}

func (f *fakeBackend) AnalyzeCV(context.Context, string, string, []byte) (*types.Profile, error) {
	return nil, errors.NewInternalError("UNEXPECTED", "analyze must not be called", nil)
}

func (f *fakeBackend) FindMatches(_ context.Context, req types.MatchRequest) ([]types.MatchedJob, error) {
	f.searches = append(f.searches, req)
	return f.matches, f.matchErr
}

func setup(be *fakeBackend) (*Recovery, *pipeline.Controller) {
	ctrl := pipeline.NewController(be, config.PipelineConfig{MaxResults: 10})
	return New(be, ctrl, errors.Discard()), ctrl
}

func stored() *fakeBackend {
	return &fakeBackend{
		cv:      &types.CVMetadata{CVFilename: "cv.pdf", UploadedAt: "2024-05-01T09:00:00Z"},
		profile: &types.Profile{Skills: []string{"go", "sql"}},
	}
}

func notFound() error { return errors.NewNotFoundError(errors.ErrCodeNotFound, "nothing here", nil) }

func TestRunOffersLastMatches(t *testing.T) {
	be := stored()
	be.last = []types.MatchedJob{{Job: types.JobDescriptor{ID: "1"}, MatchScore: 91}}
	r, ctrl := setup(be)

	res, err := r.Run(context.Background(), "Berlin")
	require.NoError(t, err)
	assert.True(t, res.Hydrated)
	assert.Equal(t, be.last, res.Resumable)
	assert.False(t, res.AutoSearched)
	assert.Equal(t, pipeline.StepProfile, ctrl.Step(), "offer is not forced")
	assert.Empty(t, be.searches)

	require.NoError(t, r.ResumeLastSession(res))
	assert.Equal(t, pipeline.StepResults, ctrl.Step())
	assert.Equal(t, be.last, ctrl.Matches())
}

func TestRunSearchesWhenNothingToResume(t *testing.T) {
	tests := []struct {
		name    string
		last    []types.MatchedJob
		lastErr error
	}{
		{name: "404", lastErr: notFound()},
		{name: "empty list", last: []types.MatchedJob{}},
		{name: "server error", lastErr: errors.NewAPIError("500", "boom", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := stored()
			be.last, be.lastErr = tt.last, tt.lastErr
			be.matches = []types.MatchedJob{{Job: types.JobDescriptor{ID: "9"}}}
			r, ctrl := setup(be)

			res, err := r.Run(context.Background(), "Remote")
			require.NoError(t, err)
			assert.True(t, res.AutoSearched)
			assert.Empty(t, res.Resumable)
			require.Len(t, be.searches, 1)
			assert.Equal(t, "Remote", be.searches[0].Location)
			assert.Equal(t, pipeline.StepResults, ctrl.Step())
		})
	}
}

func TestRunIgnoresNonAuthFailures(t *testing.T) {
	tests := []struct {
		name string
		be   *fakeBackend
	}{
		{name: "no cv", be: &fakeBackend{cvErr: notFound(), profile: &types.Profile{}}},
		{name: "empty metadata", be: &fakeBackend{cv: &types.CVMetadata{}, profile: &types.Profile{}}},
		{name: "no profile", be: &fakeBackend{cv: &types.CVMetadata{CVFilename: "cv.pdf"}}},
		{name: "transport", be: &fakeBackend{
			cvErr:      errors.NewTransportError(errors.ErrCodeRequestFailed, "offline", nil),
			profileErr: errors.NewTransportError(errors.ErrCodeRequestFailed, "offline", nil),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ctrl := setup(tt.be)
			res, err := r.Run(context.Background(), "")
			require.NoError(t, err)
			assert.False(t, res.Hydrated)
			assert.Equal(t, pipeline.StepUpload, ctrl.Step())
			assert.Empty(t, tt.be.searches)
		})
	}
}

func TestRunSwallowsSearchFailure(t *testing.T) {
	be := stored()
	be.matchErr = errors.NewAPIError("503", "busy", nil)
	r, ctrl := setup(be)

	res, err := r.Run(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, res.AutoSearched)
	assert.Equal(t, pipeline.StepProfile, ctrl.Step())
	assert.Error(t, ctrl.LastError())
}

func TestRunReturnsAuthErrors(t *testing.T) {
	unauthorized := errors.NewAuthError(errors.ErrCodeUnauthorized, "token expired", nil)
	tests := []struct {
		name string
		be   *fakeBackend
	}{
		{name: "metadata", be: &fakeBackend{cvErr: unauthorized}},
		{name: "profile", be: &fakeBackend{profileErr: unauthorized}},
		{name: "last matches", be: func() *fakeBackend { b := stored(); b.lastErr = unauthorized; return b }()},
		{name: "search", be: func() *fakeBackend { b := stored(); b.matchErr = unauthorized; return b }()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := setup(tt.be)
			_, err := r.Run(context.Background(), "")
			assert.True(t, errors.IsType(err, errors.ErrorTypeAuth), "got %v", err)
		})
	}
}

func TestResumeWithoutOffer(t *testing.T) {
	r, _ := setup(&fakeBackend{})
	assert.Error(t, r.ResumeLastSession(nil))
	assert.Error(t, r.ResumeLastSession(&Result{}))
}
