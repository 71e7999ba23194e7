package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ragdash/internal/logging"
	"ragdash/internal/types"
)

func newTestClient(url string) *Client {
	return &Client{
		baseURL: url,
		http: &http.Client{
			Timeout: 2 * time.Second,
		},
		chatTimeout: 2 * time.Second,
		logger:      logging.Nop(),
	}
}

func TestRequestSendsJSONBodyAndContentType(t *testing.T) {
	var gotContentType, gotMethod, gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotMethod = r.Method
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"hello back","session_id":"s1","sources":["a.pdf"],"timestamp":"2024-01-01T00:00:00"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	resp, err := c.SendChat(context.Background(), types.ChatRequest{Message: "hi"})
	if err != nil {
		t.Fatalf("SendChat: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/chat" {
		t.Fatalf("unexpected request: %s %s", gotMethod, gotPath)
	}
	if gotContentType != "application/json" {
		t.Fatalf("unexpected content type: %q", gotContentType)
	}
	if gotBody["message"] != "hi" {
		t.Fatalf("unexpected body: %#v", gotBody)
	}
	if v, ok := gotBody["session_id"]; !ok || v != nil {
		t.Fatalf("expected explicit null session_id, got %#v", gotBody)
	}
	if resp.SessionID != "s1" || len(resp.Sources) != 1 {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestRequestGetStillSendsContentType(t *testing.T) {
	var gotContentType string
	var gotCustom string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotCustom = r.Header.Get("X-Trace")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	var out map[string]any
	err := c.Request(context.Background(), "/sessions", RequestOptions{Headers: map[string]string{"X-Trace": "t1"}}, &out)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if gotContentType != "application/json" || gotCustom != "t1" {
		t.Fatalf("unexpected headers: content-type=%q x-trace=%q", gotContentType, gotCustom)
	}
}

func TestRequestNormalizesErrorBodies(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{name: "string detail", status: http.StatusNotFound, body: `{"detail":"x"}`, message: "x"},
		{name: "validation list", status: http.StatusUnprocessableEntity, body: `{"detail":[{"msg":"a","loc":["body"]},{"msg":"b"}]}`, message: "a, b"},
		{name: "other json", status: http.StatusBadRequest, body: `{"error": "nope", "code": 7}`, message: `{"error":"nope","code":7}`},
		{name: "null detail", status: http.StatusBadRequest, body: `{"detail":null}`, message: `{"detail":null}`},
		{name: "not json", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, message: "Bad Gateway"},
		{name: "empty body", status: http.StatusInternalServerError, body: ``, message: "Internal Server Error"},
		{name: "unknown status", status: 599, body: ``, message: "HTTP 599"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			err := newTestClient(server.URL).Request(context.Background(), "/x", RequestOptions{}, nil)
			apiErr, ok := AsAPIError(err)
			if !ok {
				t.Fatalf("expected APIError, got %T %v", err, err)
			}
			if apiErr.StatusCode != tt.status {
				t.Fatalf("unexpected status: %d", apiErr.StatusCode)
			}
			if apiErr.Message != tt.message {
				t.Fatalf("unexpected message: got=%q want=%q", apiErr.Message, tt.message)
			}
		})
	}
}

func TestRequestNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).ListSessions(context.Background())
	apiErr, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %T %v", err, err)
	}
	if apiErr.StatusCode != 0 || apiErr.Message != "Network error: Unable to connect to server" {
		t.Fatalf("unexpected network error: %#v", apiErr)
	}
	if !apiErr.IsRetryable() || apiErr.Kind() != KindNetwork {
		t.Fatalf("network errors must be retryable")
	}
}

func TestRequestCanceledContextIsDetectable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := newTestClient(server.URL).Request(ctx, "/sessions", RequestOptions{}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
}

func TestRequestNoContentLeavesOutUntouched(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	out := map[string]any{"kept": true}
	if err := newTestClient(server.URL).Request(context.Background(), "/x", RequestOptions{Method: http.MethodDelete}, &out); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if out["kept"] != true || len(out) != 1 {
		t.Fatalf("204 must not decode, got %#v", out)
	}
}

func TestRequestMalformedSuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"session_id":`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetSession(context.Background(), "s1")
	apiErr, ok := AsAPIError(err)
	if !ok || apiErr.StatusCode != 0 || apiErr.Message != "An unexpected error occurred" {
		t.Fatalf("unexpected error: %#v", err)
	}
}

func TestAPIErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
		kind      ErrorKind
	}{
		{status: 0, retryable: true, kind: KindNetwork},
		{status: 400, retryable: false, kind: KindClient},
		{status: 404, retryable: false, kind: KindClient},
		{status: 499, retryable: false, kind: KindClient},
		{status: 500, retryable: true, kind: KindServer},
		{status: 503, retryable: true, kind: KindServer},
	}
	for _, tt := range tests {
		err := &APIError{StatusCode: tt.status, Message: "m"}
		if err.IsRetryable() != tt.retryable {
			t.Fatalf("status %d: retryable=%v want %v", tt.status, err.IsRetryable(), tt.retryable)
		}
		if err.Kind() != tt.kind {
			t.Fatalf("status %d: kind=%v want %v", tt.status, err.Kind(), tt.kind)
		}
	}
	if (&APIError{StatusCode: 404, Message: "missing"}).Error() != "api error (404): missing" {
		t.Fatalf("unexpected error text")
	}
}

func TestEndpointPaths(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.RequestURI())
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/ingestion/jobs":
			_, _ = io.WriteString(w, `[{"job_id":"j1","status":"processing"}]`)
		case "/assets/list":
			_, _ = io.WriteString(w, `{"folders":[{"name":"docs","path":"/docs","file_count":0}]}`)
		case "/evaluations":
			_, _ = io.WriteString(w, `{"evaluations":[{"evaluation_id":"e1","status":"completed"}]}`)
		default:
			_, _ = io.WriteString(w, `{}`)
		}
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	ctx := context.Background()
	if _, err := c.GetSession(ctx, "a b"); err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	jobs, err := c.ListJobs(ctx)
	if err != nil || len(jobs) != 1 || jobs[0].Status != types.IngestionStatusProcessing {
		t.Fatalf("ListJobs: %v %#v", err, jobs)
	}
	if _, err := c.GetJobStatus(ctx, "j1"); err != nil {
		t.Fatalf("GetJobStatus: %v", err)
	}
	folders, err := c.ListFolders(ctx)
	if err != nil || len(folders) != 1 || !folders[0].Empty() {
		t.Fatalf("ListFolders: %v %#v", err, folders)
	}
	evals, err := c.ListEvaluations(ctx, 25)
	if err != nil || len(evals) != 1 || evals[0].EvaluationID != "e1" {
		t.Fatalf("ListEvaluations: %v %#v", err, evals)
	}
	if _, err := c.GetEvaluation(ctx, "e1"); err != nil {
		t.Fatalf("GetEvaluation: %v", err)
	}

	want := []string{
		"GET /sessions/a%20b",
		"GET /ingestion/jobs",
		"GET /ingestion/status/j1",
		"GET /assets/list",
		"GET /evaluations?limit=25",
		"GET /evaluation/e1",
	}
	if len(seen) != len(want) {
		t.Fatalf("unexpected requests: %v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("request %d: got %q want %q", i, seen[i], want[i])
		}
	}
}

func TestEndpointsRejectEmptyIDs(t *testing.T) {
	c := NewWithBaseURL("http://127.0.0.1:1")
	ctx := context.Background()
	if _, err := c.GetSession(ctx, " "); err == nil {
		t.Fatalf("expected error for empty session id")
	}
	if _, err := c.GetJobStatus(ctx, ""); err == nil {
		t.Fatalf("expected error for empty job id")
	}
	if _, err := c.GetEvaluation(ctx, ""); err == nil {
		t.Fatalf("expected error for empty evaluation id")
	}
	if _, err := c.Retrieve(ctx, types.RetrievalRequest{}); err == nil {
		t.Fatalf("expected error for empty query")
	}
}

func TestBuildQueryString(t *testing.T) {
	if got := BuildQueryString(nil); got != "" {
		t.Fatalf("expected empty query, got %q", got)
	}
	if got := BuildQueryString(map[string]any{"skip": nil}); got != "" {
		t.Fatalf("nil values must be omitted, got %q", got)
	}
	got := BuildQueryString(map[string]any{"limit": 10, "q": "a b", "rerank": true})
	if got != "?limit=10&q=a+b&rerank=true" {
		t.Fatalf("unexpected query: %q", got)
	}
}
