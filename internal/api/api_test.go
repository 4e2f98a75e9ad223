package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/fiteval/internal/api"
	"github.com/mcoot/fiteval/internal/api/response"
	"github.com/mcoot/fiteval/internal/factory"
	"github.com/mcoot/fiteval/internal/services/evaluation"
	"github.com/mcoot/fiteval/internal/testutil"
)

// testServer wraps a router built on a TestApp
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T, script string) *testServer {
	t.Helper()
	return newTestServerWithApp(t, factory.NewTestApp(t, testutil.WriteScript(t, script)))
}

func newTestServerWithApp(t *testing.T, app *factory.TestApp) *testServer {
	t.Helper()

	router := api.NewRouter(api.RouterConfig{
		Logger:      testutil.NopLogger(),
		AuthService: app.AuthService,
		Receiver:    app.Receiver,
		Evaluator:   app.Evaluator,
		LoginPath:   api.DefaultLoginPath,
	})

	return &testServer{handler: router, app: app}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

// login signs up and logs in a user, returning the session token
func (ts *testServer) login(t *testing.T, username string) string {
	t.Helper()
	creds := map[string]string{"username": username, "password": "secret123"}

	rr := ts.request(http.MethodPost, "/signup", creds, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = ts.request(http.MethodPost, "/login", creds, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp response.AuthResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionToken)
	return resp.SessionToken
}

// video describes the file part of an upload; nil means no file part
type video struct {
	filename    string
	contentType string
	content     string
}

func mp4() *video {
	return &video{filename: "clip.mp4", contentType: "video/mp4", content: "fake video bytes"}
}

func uploadRequest(t *testing.T, testType string, v *video) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if testType != "" {
		require.NoError(t, mw.WriteField("testType", testType))
	}
	if v != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="video"; filename=%q`, v.filename))
		h.Set("Content-Type", v.contentType)
		pw, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write([]byte(v.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (ts *testServer) upload(t *testing.T, token, testType string, v *video) *httptest.ResponseRecorder {
	t.Helper()
	req := uploadRequest(t, testType, v)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) assertUploadDirEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(ts.app.UploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "upload directory should be empty")
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body
}

const okScript = `printf '{"reps":10,"video":"out\\\\clip.mp4","terminal":"done"}\n'`

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t, okScript)

	rr := ts.request(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestSignupLoginLogout(t *testing.T) {
	ts := newTestServer(t, okScript)
	creds := map[string]string{"username": "alice", "password": "secret123"}

	rr := ts.request(http.MethodPost, "/signup", creds, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"message":"Signup successful"}`, rr.Body.String())

	ts.app.MockRandom.QueueToken("abc")
	rr = ts.request(http.MethodPost, "/login", creds, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"message":"Login successful","session_token":"sess_abc"}`, rr.Body.String())

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Equal(t, "sess_abc", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	rr = ts.request(http.MethodPost, "/logout", nil, "sess_abc")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"message":"Logged out successfully"}`, rr.Body.String())

	// The session is gone
	rr = ts.upload(t, "sess_abc", "squats", mp4())
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Logging out again still succeeds
	rr = ts.request(http.MethodPost, "/logout", nil, "sess_abc")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSignupDuplicate(t *testing.T) {
	ts := newTestServer(t, okScript)
	creds := map[string]string{"username": "alice", "password": "secret123"}

	rr := ts.request(http.MethodPost, "/signup", creds, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodPost, "/signup", map[string]string{"username": "alice", "password": "other"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"success":false,"message":"User already exists"}`, rr.Body.String())

	// The original password still works
	rr = ts.request(http.MethodPost, "/login", creds, "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSignupInvalidBody(t *testing.T) {
	ts := newTestServer(t, okScript)

	tests := []struct {
		name string
		body any
	}{
		{"missing password", map[string]string{"username": "alice"}},
		{"missing username", map[string]string{"password": "secret123"}},
		{"not an object", []string{"alice"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.request(http.MethodPost, "/signup", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, rr.Code)

			var resp response.AuthResult
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestSignupFormEncoded(t *testing.T) {
	ts := newTestServer(t, okScript)

	form := url.Values{"username": {"alice"}, "password": {"secret123"}}
	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Signup successful")
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	ts := newTestServer(t, okScript)
	ts.login(t, "alice")

	unknown := ts.request(http.MethodPost, "/login", map[string]string{"username": "nobody", "password": "secret123"}, "")
	wrong := ts.request(http.MethodPost, "/login", map[string]string{"username": "alice", "password": "wrong"}, "")

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.JSONEq(t, `{"success":false,"message":"Invalid username or password"}`, unknown.Body.String())
	assert.Equal(t, unknown.Body.String(), wrong.Body.String())
	assert.Empty(t, unknown.Result().Cookies())
}

func TestUploadRequiresAuth(t *testing.T) {
	ts := newTestServer(t, okScript)

	rr := ts.upload(t, "", "squats", mp4())
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"Authentication required"}`, rr.Body.String())

	rr = ts.upload(t, "sess_forged", "squats", mp4())
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	ts.assertUploadDirEmpty(t)
}

func TestUploadRedirectsBrowsers(t *testing.T) {
	ts := newTestServer(t, okScript)

	req := uploadRequest(t, "squats", mp4())
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login.html", rr.Header().Get("Location"))
	ts.assertUploadDirEmpty(t)
}

func TestUploadExpiredSession(t *testing.T) {
	ts := newTestServer(t, okScript)
	token := ts.login(t, "alice")

	ts.app.MockClock.Advance(25 * time.Hour)

	rr := ts.upload(t, token, "squats", mp4())
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUploadSuccess(t *testing.T) {
	ts := newTestServer(t, okScript)
	token := ts.login(t, "alice")

	rr := ts.upload(t, token, "squats", mp4())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"reps":10,"video":"out/clip.mp4","terminal":"done"}`, rr.Body.String())

	ts.assertUploadDirEmpty(t)
}

func TestUploadWithCookie(t *testing.T) {
	ts := newTestServer(t, okScript)
	token := ts.login(t, "alice")

	req := uploadRequest(t, "pushups", mp4())
	req.AddCookie(&http.Cookie{Name: "session", Value: token})
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestUploadPassesArguments(t *testing.T) {
	ts := newTestServer(t, `printf '{"test":"%s","seen":"%s"}\n' "$1" "$(test -f "$2" && echo yes)"`)
	token := ts.login(t, "alice")

	rr := ts.upload(t, token, "hexagon", mp4())
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := decodeJSON(t, rr)
	assert.Equal(t, "hexagon", body["test"])
	assert.Equal(t, "yes", body["seen"], "asset should exist while the evaluator runs")
	ts.assertUploadDirEmpty(t)
}

func TestUploadNonJSONOutput(t *testing.T) {
	ts := newTestServer(t, `printf 'Reps: 12\n'`)
	token := ts.login(t, "alice")

	rr := ts.upload(t, token, "squats", mp4())
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"terminal":"Reps: 12\n"}`, rr.Body.String())
}

func TestUploadEvaluatorFailure(t *testing.T) {
	ts := newTestServer(t, `printf 'bad frame\n' >&2; exit 3`)
	token := ts.login(t, "alice")

	rr := ts.upload(t, token, "squats", mp4())
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Python script failed","details":"bad frame\n"}`, rr.Body.String())
	ts.assertUploadDirEmpty(t)
}

func TestUploadEvaluatorMissing(t *testing.T) {
	cfg := evaluation.DefaultConfig()
	cfg.Command = "/nonexistent/evaluator"
	cfg.Args = nil
	ts := newTestServerWithApp(t, factory.NewTestAppWithEvaluator(t, cfg))
	token := ts.login(t, "alice")

	rr := ts.upload(t, token, "squats", mp4())
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	body := decodeJSON(t, rr)
	assert.Equal(t, "Python script failed", body["error"])
	assert.NotEmpty(t, body["details"])
	ts.assertUploadDirEmpty(t)
}

func TestUploadEvaluatorTimeout(t *testing.T) {
	cfg := evaluation.DefaultConfig()
	cfg.Command = testutil.WriteScript(t, `exec sleep 5`)
	cfg.Args = nil
	cfg.Timeout = 200 * time.Millisecond
	cfg.WaitDelay = 100 * time.Millisecond
	ts := newTestServerWithApp(t, factory.NewTestAppWithEvaluator(t, cfg))
	token := ts.login(t, "alice")

	start := time.Now()
	rr := ts.upload(t, token, "squats", mp4())
	assert.Less(t, time.Since(start), 4*time.Second)

	assert.Equal(t, http.StatusGatewayTimeout, rr.Code)
	assert.Equal(t, "Evaluation timed out", decodeJSON(t, rr)["error"])
	ts.assertUploadDirEmpty(t)
}

func TestUploadRejections(t *testing.T) {
	tests := []struct {
		name     string
		testType string
		video    *video
		status   int
		message  string
	}{
		{
			name:     "missing video",
			testType: "squats",
			status:   http.StatusBadRequest,
			message:  "Missing video or test type",
		},
		{
			name:    "missing test type",
			video:   mp4(),
			status:  http.StatusBadRequest,
			message: "Missing video or test type",
		},
		{
			name:     "not a video",
			testType: "squats",
			video:    &video{filename: "notes.txt", contentType: "text/plain", content: "hello"},
			status:   http.StatusUnsupportedMediaType,
			message:  "Only video files allowed!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, `echo should-not-run >&2; exit 1`)
			token := ts.login(t, "alice")

			rr := ts.upload(t, token, tt.testType, tt.video)
			assert.Equal(t, tt.status, rr.Code)
			assert.JSONEq(t, fmt.Sprintf(`{"error":%q}`, tt.message), rr.Body.String())
			ts.assertUploadDirEmpty(t)
		})
	}
}

func TestUploadNotMultipart(t *testing.T) {
	ts := newTestServer(t, okScript)
	token := ts.login(t, "alice")

	rr := ts.request(http.MethodPost, "/upload", map[string]string{"testType": "squats"}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"Missing video or test type"}`, rr.Body.String())
}

func TestConcurrentUploads(t *testing.T) {
	ts := newTestServer(t, `printf '{"test":"%s"}\n' "$1"`)
	token := ts.login(t, "alice")

	testTypes := []string{"squats", "pushups", "jumps", "hexagon", "squats", "pushups"}
	results := make([]*httptest.ResponseRecorder, len(testTypes))

	var wg sync.WaitGroup
	for i, testType := range testTypes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := uploadRequest(t, testType, mp4())
			req.Header.Set("Authorization", "Bearer "+token)
			rr := httptest.NewRecorder()
			ts.handler.ServeHTTP(rr, req)
			results[i] = rr
		}()
	}
	wg.Wait()

	for i, rr := range results {
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, testTypes[i], decodeJSON(t, rr)["test"])
	}
	ts.assertUploadDirEmpty(t)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, okScript)
	token := ts.login(t, "alice")
	require.Equal(t, http.StatusOK, ts.upload(t, token, "squats", mp4()).Code)

	rr := ts.request(http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "fiteval_evaluations_total")
	assert.Contains(t, rr.Body.String(), "fiteval_http_requests_total")
}

func TestUnknownRouteAndMethod(t *testing.T) {
	ts := newTestServer(t, okScript)

	rr := ts.request(http.MethodGet, "/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, rr.Body.String())

	rr = ts.request(http.MethodGet, "/login", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRequestIDEchoed(t *testing.T) {
	ts := newTestServer(t, okScript)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "trace-123")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, "trace-123", rr.Header().Get("X-Request-ID"))
}
