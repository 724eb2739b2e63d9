package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mattjoyce/tfboot/internal/dispatch"
	"github.com/mattjoyce/tfboot/internal/executor"
	"github.com/mattjoyce/tfboot/internal/result"
	"github.com/mattjoyce/tfboot/internal/service"
	"github.com/mattjoyce/tfboot/internal/workspace"
)

const testAPIKey = "test-key"

// mockDirectory implements DirectoryExecutor for testing
type mockDirectory struct {
	validateFunc func(ctx context.Context, id string) (*result.ValidationResult, error)
	deployFunc   func(ctx context.Context, req service.DeployRequest, id string) (*result.ExecutionResult, error)
	destroyFunc  func(ctx context.Context, req service.DestroyRequest, id string) (*result.ExecutionResult, error)
}

func (m *mockDirectory) Validate(ctx context.Context, id string) (*result.ValidationResult, error) {
	return m.validateFunc(ctx, id)
}

func (m *mockDirectory) Deploy(ctx context.Context, req service.DeployRequest, id string) (*result.ExecutionResult, error) {
	return m.deployFunc(ctx, req, id)
}

func (m *mockDirectory) Destroy(ctx context.Context, req service.DestroyRequest, id string) (*result.ExecutionResult, error) {
	return m.destroyFunc(ctx, req, id)
}

// mockScripts implements ScriptExecutor for testing
type mockScripts struct {
	deployFunc       func(ctx context.Context, req service.ScriptDeployRequest) (*result.ExecutionResult, error)
	destroyFunc      func(ctx context.Context, req service.ScriptDestroyRequest) (*result.ExecutionResult, error)
	asyncDeployFunc  func(ctx context.Context, req service.AsyncScriptDeployRequest) (string, error)
	asyncDestroyFunc func(ctx context.Context, req service.AsyncScriptDestroyRequest) (string, error)
}

func (m *mockScripts) DeployWithScripts(ctx context.Context, req service.ScriptDeployRequest) (*result.ExecutionResult, error) {
	return m.deployFunc(ctx, req)
}

func (m *mockScripts) DestroyWithScripts(ctx context.Context, req service.ScriptDestroyRequest) (*result.ExecutionResult, error) {
	return m.destroyFunc(ctx, req)
}

func (m *mockScripts) AsyncDeployWithScripts(ctx context.Context, req service.AsyncScriptDeployRequest) (string, error) {
	return m.asyncDeployFunc(ctx, req)
}

func (m *mockScripts) AsyncDestroyWithScripts(ctx context.Context, req service.AsyncScriptDestroyRequest) (string, error) {
	return m.asyncDestroyFunc(ctx, req)
}

type mockHealth struct {
	status service.HealthStatus
}

func (m *mockHealth) Check(context.Context) service.SystemStatus {
	return service.SystemStatus{HealthStatus: m.status}
}

func newTestServer(dir *mockDirectory, scripts *mockScripts) http.Handler {
	if dir == nil {
		dir = &mockDirectory{}
	}
	if scripts == nil {
		scripts = &mockScripts{}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics\n"))
	})
	return New(Config{APIKey: testAPIKey, MaxBodySize: 1024}, dir, scripts, &mockHealth{status: service.HealthOK}, metrics, logger).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func strPtr(s string) *string { return &s }

func TestHealthIsPublic(t *testing.T) {
	h := newTestServer(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/terraform-boot/health", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"healthStatus":"OK"}` {
		t.Fatalf("unexpected body %s", got)
	}
}

func TestAuthRequired(t *testing.T) {
	h := newTestServer(nil, nil)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "wrong key", header: "Bearer nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/terraform-boot/script/deploy", strings.NewReader(`{}`))
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
		})
	}
}

func TestAuthDisabledWithoutKey(t *testing.T) {
	dir := &mockDirectory{
		validateFunc: func(ctx context.Context, id string) (*result.ValidationResult, error) {
			return &result.ValidationResult{Valid: true}, nil
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(Config{}, dir, &mockScripts{}, &mockHealth{}, nil, logger).Handler()

	req := httptest.NewRequest(http.MethodGet, "/terraform-boot/directory/validate/ws1", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestValidateRoute(t *testing.T) {
	var gotID string
	dir := &mockDirectory{
		validateFunc: func(ctx context.Context, id string) (*result.ValidationResult, error) {
			gotID = id
			return &result.ValidationResult{
				Valid:       false,
				Diagnostics: []result.Diagnostic{{Severity: "error", Summary: "Missing required argument"}},
			}, nil
		},
	}
	rr := do(t, newTestServer(dir, nil), http.MethodGet, "/terraform-boot/directory/validate/ws-42", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotID != "ws-42" {
		t.Fatalf("expected workspace id ws-42, got %q", gotID)
	}
	var res result.ValidationResult
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Valid || len(res.Diagnostics) != 1 {
		t.Fatalf("unexpected validation result %+v", res)
	}
}

func TestDeployRoute(t *testing.T) {
	var got service.DeployRequest
	dir := &mockDirectory{
		deployFunc: func(ctx context.Context, req service.DeployRequest, id string) (*result.ExecutionResult, error) {
			got = req
			return &result.ExecutionResult{
				CommandStdOutput:        "Plan: 1 to add",
				IsCommandSuccessful:     true,
				ImportantFileContentMap: map[string]string{},
			}, nil
		},
	}
	body := `{"isPlanOnly":true,"variables":{"region":"eu"},"envVariables":{"AWS_PROFILE":"dev"}}`
	rr := do(t, newTestServer(dir, nil), http.MethodPost, "/terraform-boot/directory/deploy/ws1", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !got.IsPlanOnly || got.Variables["region"] != "eu" || got.EnvVariables["AWS_PROFILE"] != "dev" {
		t.Fatalf("request not decoded: %+v", got)
	}

	var raw map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	for _, key := range []string{"commandStdOutput", "commandStdError", "isCommandSuccessful", "terraformState", "importantFileContentMap"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("response missing %q: %s", key, rr.Body.String())
		}
	}
	if _, ok := raw["requestId"]; ok {
		t.Errorf("sync response should omit requestId")
	}
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantStderr string
	}{
		{name: "invalid request", err: fmt.Errorf("%w: terraform scripts are required", service.ErrInvalidRequest), wantStatus: http.StatusBadRequest},
		{name: "workspace missing", err: fmt.Errorf("%w: %q", workspace.ErrNotFound, "ws1"), wantStatus: http.StatusNotFound},
		{
			name:       "execution failed",
			err:        &service.ExecutionError{Operation: executor.OpDestroy, Stdout: "out", Stderr: "Error: locked"},
			wantStatus: http.StatusUnprocessableEntity,
			wantStderr: "Error: locked",
		},
		{name: "decode failure", err: fmt.Errorf("%w: bad json", result.ErrDecode), wantStatus: http.StatusInternalServerError},
		{name: "create failure", err: fmt.Errorf("%w: disk full", workspace.ErrCreate), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := &mockDirectory{
				destroyFunc: func(ctx context.Context, req service.DestroyRequest, id string) (*result.ExecutionResult, error) {
					return nil, tt.err
				},
			}
			rr := do(t, newTestServer(dir, nil), http.MethodPost, "/terraform-boot/directory/destroy/ws1", `{}`)
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Error == "" {
				t.Fatalf("expected error message")
			}
			if resp.CommandStdError != tt.wantStderr {
				t.Fatalf("expected stderr %q, got %q", tt.wantStderr, resp.CommandStdError)
			}
		})
	}
}

func TestScriptRoutesValidateBody(t *testing.T) {
	called := false
	scripts := &mockScripts{
		deployFunc: func(ctx context.Context, req service.ScriptDeployRequest) (*result.ExecutionResult, error) {
			called = true
			return &result.ExecutionResult{}, nil
		},
		destroyFunc: func(ctx context.Context, req service.ScriptDestroyRequest) (*result.ExecutionResult, error) {
			called = true
			return &result.ExecutionResult{}, nil
		},
	}
	h := newTestServer(nil, scripts)

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{name: "empty body", path: "/terraform-boot/script/deploy", body: "", wantStatus: http.StatusBadRequest},
		{name: "malformed json", path: "/terraform-boot/script/deploy", body: `{"scripts":`, wantStatus: http.StatusBadRequest},
		{name: "no scripts", path: "/terraform-boot/script/deploy", body: `{"scripts":[]}`, wantStatus: http.StatusBadRequest},
		{name: "destroy without state", path: "/terraform-boot/script/destroy", body: `{"scripts":["x"]}`, wantStatus: http.StatusBadRequest},
		{name: "body too large", path: "/terraform-boot/script/deploy", body: `{"scripts":["` + strings.Repeat("a", 2048) + `"]}`, wantStatus: http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, tt.path, tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
		})
	}
	if called {
		t.Fatal("service should not be called for rejected requests")
	}
}

func TestScriptDestroyRoute(t *testing.T) {
	var got service.ScriptDestroyRequest
	scripts := &mockScripts{
		destroyFunc: func(ctx context.Context, req service.ScriptDestroyRequest) (*result.ExecutionResult, error) {
			got = req
			return &result.ExecutionResult{IsCommandSuccessful: true, TerraformState: strPtr("{}")}, nil
		},
	}
	body := `{"scripts":["resource \"null_resource\" \"x\" {}"],"tfState":"{\"version\":4}","variables":{"a":"b"}}`
	rr := do(t, newTestServer(nil, scripts), http.MethodPost, "/terraform-boot/script/destroy", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.TfState != `{"version":4}` || len(got.Scripts) != 1 || got.Variables["a"] != "b" {
		t.Fatalf("request not decoded: %+v", got)
	}
}

func TestAsyncRoutes(t *testing.T) {
	var gotDeploy service.AsyncScriptDeployRequest
	scripts := &mockScripts{
		asyncDeployFunc: func(ctx context.Context, req service.AsyncScriptDeployRequest) (string, error) {
			gotDeploy = req
			return req.RequestID, nil
		},
		asyncDestroyFunc: func(ctx context.Context, req service.AsyncScriptDestroyRequest) (string, error) {
			return "", dispatch.ErrSaturated
		},
	}
	h := newTestServer(nil, scripts)

	rr := do(t, h, http.MethodPost, "/terraform-boot/script/deploy/async",
		`{"scripts":["x"],"webhookConfig":{"url":"https://hooks.example.test/done"}}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
	}
	var accepted AsyncAcceptedResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if accepted.RequestID == "" || accepted.RequestID != gotDeploy.RequestID {
		t.Fatalf("expected request id to round trip, got %q vs %q", accepted.RequestID, gotDeploy.RequestID)
	}
	if gotDeploy.WebhookConfig.URL != "https://hooks.example.test/done" {
		t.Fatalf("webhook url not decoded: %+v", gotDeploy.WebhookConfig)
	}

	rr = do(t, h, http.MethodPost, "/terraform-boot/script/deploy/async", `{"scripts":["x"]}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without webhook, got %d", rr.Code)
	}

	rr = do(t, h, http.MethodPost, "/terraform-boot/script/destroy/async",
		`{"scripts":["x"],"tfState":"{}","webhookConfig":{"url":"http://hooks.example.test/done"}}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestMetricsAndOpenAPI(t *testing.T) {
	h := newTestServer(nil, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "# metrics") {
		t.Fatalf("unexpected metrics response %d %q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	if err := json.NewDecoder(bytes.NewReader(rr.Body.Bytes())).Decode(&doc); err != nil {
		t.Fatalf("decode openapi: %v", err)
	}
	if _, ok := doc.Paths["/terraform-boot/script/deploy/async"]["post"]; !ok {
		t.Fatalf("openapi missing async deploy route: %v", doc.Paths)
	}
	if len(doc.Paths) != len(routes) {
		t.Fatalf("expected %d paths, got %d", len(routes), len(doc.Paths))
	}
}

func TestUnexpectedErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	dir := &mockDirectory{
		validateFunc: func(ctx context.Context, id string) (*result.ValidationResult, error) {
			return nil, errors.New("boom")
		},
	}
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := New(Config{}, dir, &mockScripts{}, &mockHealth{}, nil, logger).Handler()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/terraform-boot/directory/validate/ws1", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !strings.Contains(buf.String(), "request failed") {
		t.Fatalf("expected error log, got %s", buf.String())
	}
}
