package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"cigroups/internal/credentials"
)

// captureStdout redirects os.Stdout to a pipe and returns a function
// that restores stdout and returns the captured output.
// Uses a goroutine to read concurrently, avoiding pipe buffer deadlocks.
func captureStdout(t *testing.T) func() string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w

	// Read concurrently to avoid pipe buffer deadlock on large outputs
	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		_, _ = buf.ReadFrom(r)
		close(done)
	}()

	return func() string {
		_ = w.Close()
		<-done
		os.Stdout = old
		return buf.String()
	}
}

// capturedRequest holds details captured from an incoming HTTP request.
type capturedRequest struct {
	Method  string
	Path    string
	Query   url.Values
	Headers http.Header
	Body    string
}

// requestRecorder is a thread-safe recorder for HTTP requests received by httptest servers.
type requestRecorder struct {
	mu       sync.Mutex
	requests []capturedRequest
}

func (r *requestRecorder) record(req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	body, _ := io.ReadAll(req.Body)
	defer func() { _ = req.Body.Close() }()

	r.requests = append(r.requests, capturedRequest{
		Method:  req.Method,
		Path:    req.URL.Path,
		Query:   req.URL.Query(),
		Headers: req.Header.Clone(),
		Body:    string(body),
	})
}

func (r *requestRecorder) all() []capturedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]capturedRequest(nil), r.requests...)
}

func (r *requestRecorder) paths() []string {
	var out []string
	for _, req := range r.all() {
		out = append(out, req.Method+" "+req.Path)
	}
	return out
}

// fakeCloudIdentity routes "METHOD /path" to canned JSON responses and
// records every request. Unrouted requests get a 404 in the API's format.
type fakeCloudIdentity struct {
	rec    *requestRecorder
	srv    *httptest.Server
	mu     sync.Mutex
	routes map[string]cannedResponse
}

type cannedResponse struct {
	status int
	body   string
}

func newFakeCloudIdentity(t *testing.T) *fakeCloudIdentity {
	t.Helper()
	f := &fakeCloudIdentity{rec: &requestRecorder{}, routes: map[string]cannedResponse{}}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.rec.record(r)
		f.mu.Lock()
		resp, ok := f.routes[r.Method+" "+r.URL.Path]
		f.mu.Unlock()
		if !ok {
			resp = cannedResponse{
				status: http.StatusNotFound,
				body:   `{"error":{"code":404,"message":"Requested entity was not found.","status":"NOT_FOUND"}}`,
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.status)
		_, _ = w.Write([]byte(resp.body))
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeCloudIdentity) handle(method, path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = cannedResponse{status: status, body: body}
}

func (f *fakeCloudIdentity) endpoint() string {
	return f.srv.URL + "/"
}

// isolateEnv points HOME at a temp dir and clears CIGROUPS_* overrides so
// neither a real profile nor the caller's environment leaks into a test.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{
		"CIGROUPS_HOME", "CIGROUPS_ENDPOINT", "CIGROUPS_CUSTOMER_ID",
		"CIGROUPS_OUTPUT", "CIGROUPS_LOG_LEVEL", "CIGROUPS_QPS", "CIGROUPS_NO_COLOR",
	} {
		t.Setenv(k, "")
	}
}

// newInstallDir creates an installation directory holding an API key, an
// OAuth client and a token that does not need refreshing.
func newInstallDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	paths := credentials.DefaultPaths(dir)
	require.NoError(t, os.WriteFile(paths.APIKey, []byte("test-api-key\n"), 0o600))
	require.NoError(t, os.WriteFile(paths.ClientSecret, []byte(`{"installed":{
  "client_id":"123.apps.googleusercontent.com",
  "client_secret":"shh",
  "auth_uri":"https://accounts.google.com/o/oauth2/auth",
  "token_uri":"https://oauth2.googleapis.com/token",
  "redirect_uris":["http://localhost"]
}}`), 0o600))
	require.NoError(t, os.WriteFile(paths.Token, []byte(
		`{"access_token":"test-token","token_type":"Bearer","refresh_token":"r","expiry":"2099-01-01T00:00:00Z"}`), 0o600))
	return dir
}

// runCLI executes a fresh root command with args and returns what it wrote
// to stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	done := captureStdout(t)
	err := rootCmd.Execute()
	return done(), err
}

// apiArgs prefixes args with the flags that point the CLI at f and dir.
func apiArgs(f *fakeCloudIdentity, dir string, args ...string) []string {
	return append([]string{"--home", dir, "--endpoint", f.endpoint()}, args...)
}

// tableLines splits table output into trimmed non-empty lines.
func tableLines(out string) []string {
	var lines []string
	for _, l := range strings.Split(out, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, strings.TrimRight(l, " "))
		}
	}
	return lines
}

func decodeJSONBody(t *testing.T, body string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &m))
	return m
}

// containsIgnoreCase checks if s contains substr (case-insensitive).
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}
