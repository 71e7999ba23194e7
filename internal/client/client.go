package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"ragdash/internal/config"
	"ragdash/internal/logging"
	"ragdash/internal/types"
)

const (
	defaultBaseURL     = "http://localhost:8000"
	defaultTimeout     = 10 * time.Second
	defaultChatTimeout = 120 * time.Second
)

type Client struct {
	baseURL     string
	http        *http.Client
	chatTimeout time.Duration
	logger      logging.Logger
}

// RequestOptions describes one call through Request. Body is encoded as
// JSON when non-nil; Headers are applied after the default content type and
// may override it.
type RequestOptions struct {
	Method  string
	Body    any
	Headers map[string]string
	Timeout time.Duration
}

func New(cfg config.Config, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Client{
		baseURL: cfg.BaseURL(),
		http: &http.Client{
			Timeout: cfg.RequestTimeout(),
		},
		chatTimeout: cfg.ChatTimeout(),
		logger:      logging.Component(logger, "client"),
	}
}

func NewWithBaseURL(baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		chatTimeout: defaultChatTimeout,
		logger:      logging.Nop(),
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) SendChat(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
	var resp types.ChatResponse
	opts := RequestOptions{Method: http.MethodPost, Body: req, Timeout: c.chatTimeout}
	if err := c.Request(ctx, "/chat", opts, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetSession(ctx context.Context, id string) (*types.Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("session id is required")
	}
	var session types.Session
	if err := c.Request(ctx, "/sessions/"+url.PathEscape(id), RequestOptions{}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) ListSessions(ctx context.Context) ([]types.Session, error) {
	var resp SessionsResponse
	if err := c.Request(ctx, "/sessions", RequestOptions{}, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

func (c *Client) Retrieve(ctx context.Context, req types.RetrievalRequest) (*types.RetrievalResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, errors.New("query is required")
	}
	var resp types.RetrievalResponse
	opts := RequestOptions{Method: http.MethodPost, Body: req, Timeout: c.chatTimeout}
	if err := c.Request(ctx, "/retrieve", opts, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) StartIngestionJob(ctx context.Context, req types.IngestionJobRequest) (*types.IngestionJobResponse, error) {
	var resp types.IngestionJobResponse
	if err := c.Request(ctx, "/ingestion/start_job", RequestOptions{Method: http.MethodPost, Body: req}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetJobStatus(ctx context.Context, jobID string) (*types.TaskProgress, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, errors.New("job id is required")
	}
	var progress types.TaskProgress
	if err := c.Request(ctx, "/ingestion/status/"+url.PathEscape(jobID), RequestOptions{}, &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

func (c *Client) ListJobs(ctx context.Context) ([]types.TaskProgress, error) {
	var jobs []types.TaskProgress
	if err := c.Request(ctx, "/ingestion/jobs", RequestOptions{}, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (c *Client) ListFolders(ctx context.Context) ([]types.AssetFolder, error) {
	var resp AssetsResponse
	if err := c.Request(ctx, "/assets/list", RequestOptions{}, &resp); err != nil {
		return nil, err
	}
	return resp.Folders, nil
}

func (c *Client) StartEvaluation(ctx context.Context, req types.EvaluationRequest) (*types.EvaluationStartResponse, error) {
	var resp types.EvaluationStartResponse
	if err := c.Request(ctx, "/evaluation/start", RequestOptions{Method: http.MethodPost, Body: req}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetEvaluation(ctx context.Context, id string) (*types.EvaluationStatusResponse, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("evaluation id is required")
	}
	var resp types.EvaluationStatusResponse
	if err := c.Request(ctx, "/evaluation/"+url.PathEscape(id), RequestOptions{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListEvaluations(ctx context.Context, limit int) ([]types.EvaluationStatusResponse, error) {
	params := map[string]any{}
	if limit > 0 {
		params["limit"] = limit
	}
	var resp EvaluationsResponse
	if err := c.Request(ctx, "/evaluations"+BuildQueryString(params), RequestOptions{}, &resp); err != nil {
		return nil, err
	}
	return resp.Evaluations, nil
}

// Request performs one JSON call against endpoint. Every failure comes back
// as *APIError; a 204 response leaves out untouched.
func (c *Client) Request(ctx context.Context, endpoint string, opts RequestOptions, out any) error {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var reader io.Reader
	if opts.Body != nil {
		buf, err := json.Marshal(opts.Body)
		if err != nil {
			return newUnexpectedError(fmt.Errorf("encode request body: %w", err))
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return newUnexpectedError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	httpClient := c.http
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if opts.Timeout > 0 {
		httpClient = &http.Client{
			Timeout:   opts.Timeout,
			Transport: httpClient.Transport,
		}
	}

	logger := c.log().With(
		logging.F("request_id", logging.NewRequestID()),
		logging.F("method", method),
		logging.F("path", endpoint),
	)
	started := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		logger.Debug("request failed", logging.F("duration", time.Since(started)), logging.F("err", err))
		return newNetworkError(err)
	}
	defer resp.Body.Close()
	logger.Debug("request done", logging.F("status", resp.StatusCode), logging.F("duration", time.Since(started)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return newUnexpectedError(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) log() logging.Logger {
	if c.logger == nil {
		return logging.Nop()
	}
	return c.logger
}

// BuildQueryString encodes params, skipping nil values. Keys are emitted in
// sorted order; the result is empty or starts with "?".
func BuildQueryString(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for key, value := range params {
		if value == nil {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	values := url.Values{}
	for _, key := range keys {
		values.Add(key, fmt.Sprint(params[key]))
	}
	encoded := values.Encode()
	if encoded == "" {
		return ""
	}
	return "?" + encoded
}
