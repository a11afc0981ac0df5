// Package client provides the Kestrel Go SDK for driving the triage API:
// submitting threats for analysis, ingesting scanner findings, and managing
// threat/finding links.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Threat is the wire representation of a stored threat.
type Threat struct {
	ID            string          `json:"id"`
	Asset         string          `json:"asset"`
	Flow          string          `json:"flow"`
	TrustBoundary string          `json:"trust_boundary,omitempty"`
	Stride        json.RawMessage `json:"stride"`
	Suggestion    json.RawMessage `json:"suggestion"`
	Scores        map[string]int  `json:"scores"`
	Total         float64         `json:"total"`
	RiskLevel     string          `json:"risk_level"`
	Mitigations   json.RawMessage `json:"mitigations"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// AnalyzeRequest is the payload for Analyze.
type AnalyzeRequest struct {
	Asset         string         `json:"asset"`
	Flow          string         `json:"flow"`
	TrustBoundary string         `json:"trust_boundary,omitempty"`
	Overrides     map[string]int `json:"overrides,omitempty"`
}

// UpdateScoresRequest is the payload for UpdateScores.
type UpdateScoresRequest struct {
	Scores map[string]int `json:"scores"`
	Status string         `json:"status,omitempty"`
}

// Finding is the wire representation of an ingested scanner finding.
type Finding struct {
	ID          string    `json:"id"`
	Tool        string    `json:"tool"`
	RuleID      string    `json:"rule_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// CreateFindingRequest is the payload for IngestFinding.
type CreateFindingRequest struct {
	Tool        string `json:"tool"`
	RuleID      string `json:"rule_id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Severity    string `json:"severity,omitempty"`
}

// ImportResult summarizes one SARIF import.
type ImportResult struct {
	Tool     string    `json:"tool"`
	Imported int       `json:"imported"`
	Findings []Finding `json:"findings"`
}

// SimilarThreat is one ranked similarity result.
type SimilarThreat struct {
	Threat Threat  `json:"threat"`
	Score  float64 `json:"score"`
}

// CorrelationCandidate is one proposed threat link for a finding.
type CorrelationCandidate struct {
	Threat     Threat   `json:"threat"`
	Similarity float64  `json:"similarity"`
	Patterns   []string `json:"patterns"`
}

// Link is the wire representation of a threat/finding link.
type Link struct {
	ID         string    `json:"id"`
	ThreatID   string    `json:"threat_id"`
	FindingID  string    `json:"finding_id"`
	Similarity float64   `json:"similarity"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Pattern is the wire summary of one catalog entry.
type Pattern struct {
	ID         string         `json:"id"`
	Categories []string       `json:"categories"`
	Defaults   map[string]int `json:"defaults"`
	Baseline   float64        `json:"baseline"`
	Archetypes []string       `json:"archetypes,omitempty"`
	RuleCount  int            `json:"rule_count"`
}

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// Client is the Kestrel SDK entry point.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	bearerToken string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithBearerToken attaches the given token to every request.
func WithBearerToken(token string) Option {
	return func(c *Client) error {
		c.bearerToken = token
		return nil
	}
}

// WithTimeout sets the per-request timeout on the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		c.httpClient.Timeout = d
		return nil
	}
}

// New creates a new Client connected to baseURL.
//
//	c, err := client.New("http://localhost:8080",
//	    client.WithBearerToken(token),
//	)
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(baseURL string, opts ...Option) *Client {
	c, err := New(baseURL, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Analyze submits a threat description for analysis and returns the stored
// threat record.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (*Threat, error) {
	var resp struct {
		Threat Threat `json:"threat"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/threats/analyze", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Threat, nil
}

// GetThreat fetches a threat by ID.
func (c *Client) GetThreat(ctx context.Context, id string) (*Threat, error) {
	var resp struct {
		Threat Threat `json:"threat"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/threats/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Threat, nil
}

// ListThreats returns stored threats. riskLevel and status are optional
// filters; pass empty strings to skip them.
func (c *Client) ListThreats(ctx context.Context, riskLevel, status string, limit, offset int) ([]Threat, error) {
	q := url.Values{}
	if riskLevel != "" {
		q.Set("risk_level", riskLevel)
	}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/api/v1/threats"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp struct {
		Threats []Threat `json:"threats"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Threats, nil
}

// UpdateScores applies reviewer score edits to a stored threat.
func (c *Client) UpdateScores(ctx context.Context, id string, req UpdateScoresRequest) (*Threat, error) {
	var resp struct {
		Threat Threat `json:"threat"`
	}
	if err := c.call(ctx, http.MethodPatch, "/api/v1/threats/"+url.PathEscape(id)+"/scores", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Threat, nil
}

// DeleteThreat permanently removes a threat.
func (c *Client) DeleteThreat(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/v1/threats/"+url.PathEscape(id), nil, nil)
}

// Similar returns stored threats ranked by similarity to the given one.
func (c *Client) Similar(ctx context.Context, id string, limit int) ([]SimilarThreat, error) {
	path := "/api/v1/threats/" + url.PathEscape(id) + "/similar"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp struct {
		Similar []SimilarThreat `json:"similar"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Similar, nil
}

// IngestFinding stores a single scanner finding.
func (c *Client) IngestFinding(ctx context.Context, req CreateFindingRequest) (*Finding, error) {
	var resp struct {
		Finding Finding `json:"finding"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/findings", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Finding, nil
}

// ImportSARIF uploads a raw SARIF report. tool is used when the report's
// driver carries no name; pass "" for the server default.
func (c *Client) ImportSARIF(ctx context.Context, report io.Reader, tool string) (*ImportResult, error) {
	path := "/api/v1/findings/import/sarif"
	if tool != "" {
		path += "?tool=" + url.QueryEscape(tool)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, report)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp struct {
		Import ImportResult `json:"import"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp.Import, nil
}

// ListFindings returns ingested findings, optionally filtered by tool.
func (c *Client) ListFindings(ctx context.Context, tool string, limit, offset int) ([]Finding, error) {
	q := url.Values{}
	if tool != "" {
		q.Set("tool", tool)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/api/v1/findings"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp struct {
		Findings []Finding `json:"findings"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Findings, nil
}

// Correlate asks the server to propose threat links for a finding.
func (c *Client) Correlate(ctx context.Context, findingID string) ([]CorrelationCandidate, error) {
	var resp struct {
		Candidates []CorrelationCandidate `json:"candidates"`
	}
	path := "/api/v1/findings/" + url.PathEscape(findingID) + "/correlate"
	if err := c.call(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Candidates, nil
}

// CreateLink persists a confirmed threat/finding association.
func (c *Client) CreateLink(ctx context.Context, threatID, findingID string, similarity float64) (*Link, error) {
	body := map[string]any{
		"threat_id":  threatID,
		"finding_id": findingID,
		"similarity": similarity,
	}
	var resp struct {
		Link Link `json:"link"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/links", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Link, nil
}

// UpdateLinkStatus transitions a link's review state.
func (c *Client) UpdateLinkStatus(ctx context.Context, id, status string) (*Link, error) {
	var resp struct {
		Link Link `json:"link"`
	}
	path := "/api/v1/links/" + url.PathEscape(id) + "/status"
	if err := c.call(ctx, http.MethodPatch, path, map[string]string{"status": status}, &resp); err != nil {
		return nil, err
	}
	return &resp.Link, nil
}

// ListPatterns returns the server's pattern catalog.
func (c *Client) ListPatterns(ctx context.Context) ([]Pattern, error) {
	var resp struct {
		Patterns []Pattern `json:"patterns"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/patterns", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Patterns, nil
}

// Health probes the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/healthz", nil, nil)
}

// call builds a JSON request, executes it, and decodes the response into
// out (when non-nil).
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

// do executes the request, handling auth and error decoding.
func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := string(data)
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
