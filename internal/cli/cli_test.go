package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"jobpilot/internal/auth"
	"jobpilot/internal/common"
	"jobpilot/internal/config"
	"jobpilot/internal/errors"
	"jobpilot/internal/formatters"
	"jobpilot/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

const matchesJSON = `{"matches":[
	{"job":{"id":"1","title":"Go dev","company":"Acme"},"match_score":91,"match_reasons":["Go"]},
	{"job":{"id":"2","title":"PHP dev","company":"Beta"},"match_score":40,"match_reasons":[]}
]}`

// fakeBackend serves the backend endpoints and records what it was asked
type fakeBackend struct {
	t        *testing.T
	mu       sync.Mutex
	calls    []string
	bodies   map[string][]byte
	statuses []string // apply-status replies in order; the last one repeats
	polled   int
	onStatus func() // called before each apply-status reply
}

func newFakeBackend(t *testing.T, statuses ...string) (*fakeBackend, *httptest.Server) {
	fb := &fakeBackend{t: t, bodies: make(map[string][]byte), statuses: statuses}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	fb.mu.Lock()
	fb.calls = append(fb.calls, r.Method+" "+r.URL.Path)
	fb.bodies[r.URL.Path] = body
	fb.mu.Unlock()

	if strings.HasPrefix(r.URL.Path, "/files/") {
		_, _ = io.WriteString(w, "%PDF "+filepath.Base(r.URL.Path))
		return
	}
	if r.Header.Get("Authorization") != "Bearer test-token" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/analyze-cv":
		_, _ = io.WriteString(w, `{"success":true,"profile":{"skills":["Go"],"experience_level":"senior"}}`)
	case "/match-jobs", "/matches/last":
		_, _ = io.WriteString(w, matchesJSON)
	case "/profile/structured":
		_, _ = io.WriteString(w, `{"profile":{"skills":["Go"],"experience_level":"senior"}}`)
	case "/apply-preview":
		_, _ = io.WriteString(w, `{"cv_html":"<h1>Jane</h1><p>Go developer</p>","cover_letter_html":"<p>Dear Acme</p>","ats":{"score":88}}`)
	case "/apply-job":
		_, _ = io.WriteString(w, `{"job_id":"g1"}`)
	case "/apply-status":
		fb.mu.Lock()
		idx := min(fb.polled, len(fb.statuses)-1)
		fb.polled++
		status := fb.statuses[idx]
		hook := fb.onStatus
		fb.mu.Unlock()
		if hook != nil {
			hook()
		}
		if status == "done" {
			_, _ = io.WriteString(w, `{"status":"done","files":{"cv":"g1/cv.pdf","cover_letter":"g1/letter.pdf"},"ats":{"score":88}}`)
			return
		}
		_, _ = io.WriteString(w, `{"status":"`+status+`"}`)
	case "/apply-cancel":
		_, _ = io.WriteString(w, `{"success":true}`)
	default:
		http.NotFound(w, r)
	}
}

func (fb *fakeBackend) called(call string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	n := 0
	for _, c := range fb.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (fb *fakeBackend) body(path string) []byte {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.bodies[path]
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	return &config.Config{
		Backend: config.BackendConfig{
			BaseURL:     baseURL,
			FilesOrigin: baseURL + "/files",
			Timeout:     5 * time.Second,
			TLS:         config.TLSConfig{Mode: "system", MinVersion: "1.2"},
		},
		Auth: config.AuthConfig{
			Source:  "static",
			Token:   "test-token",
			Keyring: config.KeyringConfig{Service: "jobpilot-test", Account: "default"},
		},
		Apply: config.ApplyConfig{
			MaxAttempts:     5,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
			Multiplier:      1.3,
			NotFoundDelay:   time.Millisecond,
			CancelTimeout:   time.Second,
			DefaultTemplate: "modern",
		},
		Pipeline: config.PipelineConfig{
			MaxFileSize: 10 << 20,
			AllowedTypes: []string{
				"application/pdf",
				"application/msword",
				"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			},
			AutoMatch:  true,
			MaxResults: 20,
		},
		App: config.AppConfig{
			LogLevel:         "error",
			DefaultFormat:    "json",
			SupportedFormats: []string{"json", "yaml", "text", "markdown"},
			DataDir:          t.TempDir(),
		},
	}
}

// run executes the command line and returns stdout and stderr
func run(t *testing.T, cfg *config.Config, args ...string) (string, string, error) {
	t.Helper()
	return runContext(t, context.Background(), cfg, args...)
}

func runContext(t *testing.T, ctx context.Context, cfg *config.Config, args ...string) (string, string, error) {
	t.Helper()
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, errors.Discard())

	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0600))
	return p
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, testConfig(t, "http://127.0.0.1:1"), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "jobpilot version dev")
}

func TestAnalyzeRunsSearch(t *testing.T) {
	fb, srv := newFakeBackend(t, "done")
	cfg := testConfig(t, srv.URL)
	cv := writeFile(t, "cv.pdf", "%PDF-1.4 fake cv")

	out, _, err := run(t, cfg, "analyze", cv)
	require.NoError(t, err)

	var report formatters.MatchReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Len(t, report.Matches, 2)
	assert.Equal(t, 1, fb.called("POST /analyze-cv"))
	assert.Equal(t, 1, fb.called("POST /match-jobs"))

	fb2, srv2 := newFakeBackend(t, "done")
	out, _, err = run(t, testConfig(t, srv2.URL), "analyze", cv, "--no-match", "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "Experience: senior")
	assert.Equal(t, 0, fb2.called("POST /match-jobs"))
}

func TestAnalyzeRejectsOversizedFile(t *testing.T) {
	fb, srv := newFakeBackend(t, "done")
	cfg := testConfig(t, srv.URL)
	cfg.Pipeline.MaxFileSize = 4
	cv := writeFile(t, "cv.pdf", "%PDF-1.4 too big")

	_, _, err := run(t, cfg, "analyze", cv)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Equal(t, 0, fb.called("POST /analyze-cv"))
}

func TestMatchesMinScore(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		count int
		call  string
	}{
		{name: "last results filtered", args: []string{"matches", "--last", "--min-score", "80"}, count: 1, call: "GET /matches/last"},
		{name: "fresh search", args: []string{"matches"}, count: 2, call: "POST /match-jobs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb, srv := newFakeBackend(t, "done")
			out, _, err := run(t, testConfig(t, srv.URL), tt.args...)
			require.NoError(t, err)

			var report formatters.MatchReport
			require.NoError(t, json.Unmarshal([]byte(out), &report))
			assert.Len(t, report.Matches, tt.count)
			assert.Equal(t, 1, fb.called(tt.call))
		})
	}

	_, srv := newFakeBackend(t, "done")
	_, _, err := run(t, testConfig(t, srv.URL), "matches", "--min-score", "120")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestApplyDownloadsAndRecordsHistory(t *testing.T) {
	fb, srv := newFakeBackend(t, "not_found", "processing", "done")
	cfg := testConfig(t, srv.URL)
	job := writeFile(t, "job.yaml", "id: \"42\"\ntitle: Go dev\ncompany: Acme\n")
	dir := filepath.Join(t.TempDir(), "docs")

	out, stderr, err := run(t, cfg, "apply", "--job-file", job, "--download-dir", dir, "--template", "academic")
	require.NoError(t, err)
	assert.Contains(t, out, `"kind": "done"`)
	assert.Equal(t, 1, strings.Count(stderr, "Documents ready (job g1"))
	assert.Equal(t, 3, fb.called("GET /apply-status"))

	var sent map[string]any
	require.NoError(t, json.Unmarshal(fb.body("/apply-job"), &sent))
	assert.Equal(t, "academic", sent["template"])

	data, err := os.ReadFile(filepath.Join(dir, "g1-cv.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF cv.pdf", string(data))

	out, _, err = run(t, cfg, "history")
	require.NoError(t, err)
	var entries []store.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "g1", entries[0].JobID)
	assert.Equal(t, "done", entries[0].Outcome)
}

func TestApplyTimeoutIsReported(t *testing.T) {
	fb, srv := newFakeBackend(t, "processing")
	cfg := testConfig(t, srv.URL)
	cfg.Apply.MaxAttempts = 2
	job := writeFile(t, "job.json", `{"id":"42","title":"Go dev"}`)

	_, stderr, err := run(t, cfg, "apply", "--job-file", job)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTimeout))
	assert.Contains(t, stderr, "Still running after 2 poll(s)")
	assert.Equal(t, 2, fb.called("GET /apply-status"))
}

func TestApplyInterruptIsNotAFailure(t *testing.T) {
	fb, srv := newFakeBackend(t, "processing")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fb.mu.Lock()
	fb.onStatus = cancel
	fb.mu.Unlock()
	cfg := testConfig(t, srv.URL)
	cfg.Apply.MaxAttempts = 30
	job := writeFile(t, "job.json", `{"id":"42","title":"Go dev"}`)

	out, stderr, err := runContext(t, ctx, cfg, "apply", "--job-file", job)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Application cancelled (job g1)")
	assert.Contains(t, out, `"kind": "cancelled"`)
	assert.Equal(t, 1, fb.called("GET /apply-status"))
	assert.Equal(t, 1, fb.called("POST /apply-cancel"))
}

func TestApplyRefusesWhileAnotherRuns(t *testing.T) {
	fb, srv := newFakeBackend(t, "done")
	cfg := testConfig(t, srv.URL)
	lock, err := common.AcquireApplyLock(cfg.LockPath())
	require.NoError(t, err)
	defer func() { _ = lock.Release() }()

	_, _, err = run(t, cfg, "apply", "--match-id", "1")
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrCodeApplyInProgress, appErr.Code)
	assert.Equal(t, 0, fb.called("POST /apply-job"))
}

func TestApplyJobSelection(t *testing.T) {
	_, srv := newFakeBackend(t, "done")
	cfg := testConfig(t, srv.URL)

	_, _, err := run(t, cfg, "apply")
	assert.Error(t, err)

	_, _, err = run(t, cfg, "apply", "--match-id", "99")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	_, _, err = run(t, cfg, "apply", "--match-id", "1", "--template", "fancy")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestPreviewConfirmSendsPreviewedRequest(t *testing.T) {
	fb, srv := newFakeBackend(t, "done")
	cfg := testConfig(t, srv.URL)

	out, _, err := run(t, cfg, "preview", "--match-id", "1", "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "JANE")
	assert.Contains(t, out, "Dear Acme")
	assert.Equal(t, 0, fb.called("POST /apply-job"))

	_, _, err = run(t, cfg, "preview", "--match-id", "1", "--confirm")
	require.NoError(t, err)
	assert.Equal(t, 1, fb.called("POST /apply-job"))
	assert.JSONEq(t, string(fb.body("/apply-preview")), string(fb.body("/apply-job")))
}

func TestStatus(t *testing.T) {
	_, srv := newFakeBackend(t, "done")
	cfg := testConfig(t, srv.URL)

	out, _, err := run(t, cfg, "status", "g1")
	require.NoError(t, err)
	var report formatters.StatusReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, srv.URL+"/files/g1/cv.pdf", report.Links["cv"])

	fb, srv2 := newFakeBackend(t, "processing", "done")
	out, _, err = run(t, testConfig(t, srv2.URL), "status", "g1", "--wait")
	require.NoError(t, err)
	assert.Contains(t, out, `"kind": "done"`)
	assert.Equal(t, 0, fb.called("POST /apply-job"))
}

func TestCancel(t *testing.T) {
	fb, srv := newFakeBackend(t, "done")
	out, _, err := run(t, testConfig(t, srv.URL), "cancel", "g1")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancellation requested for job g1")
	assert.Equal(t, 1, fb.called("POST /apply-cancel"))
}

func TestHistoryRejectsUnknownOutcome(t *testing.T) {
	_, _, err := run(t, testConfig(t, "http://127.0.0.1:1"), "history", "--outcome", "maybe")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestLoginLogout(t *testing.T) {
	keyring.MockInit()
	cfg := testConfig(t, "http://127.0.0.1:1")
	kr := auth.KeyringFor(cfg.Auth)

	_, _, err := run(t, cfg, "login", "--token", "  abc  ")
	require.NoError(t, err)
	token, err := kr.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, _, err = run(t, cfg, "logout")
	require.NoError(t, err)
	_, err = kr.Token(context.Background())
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuth))

	_, _, err = run(t, cfg, "login")
	assert.Error(t, err)
}

func TestUnsupportedFormat(t *testing.T) {
	_, _, err := run(t, testConfig(t, "http://127.0.0.1:1"), "history", "--format", "xml")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}
