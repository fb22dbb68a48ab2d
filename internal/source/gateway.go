package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// GatewayClient reads entity sets from an OData-style HTTP gateway and
// creates reports through it. Every request is bounded by the configured
// timeout so a hung read cannot stall a whole run.
type GatewayClient struct {
	baseURL   string
	reportSet string
	apiKey    string
	client    *http.Client
	logger    *zap.Logger
}

// GatewayOptions configures a GatewayClient.
type GatewayOptions struct {
	BaseURL   string
	ReportSet string
	APIKey    string
	Timeout   time.Duration
}

// NewGatewayClient creates a client for the given gateway.
func NewGatewayClient(opts GatewayOptions, logger *zap.Logger) (*GatewayClient, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("gateway base URL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.ReportSet == "" {
		opts.ReportSet = "ComplianceReportSet"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GatewayClient{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		reportSet: opts.ReportSet,
		apiKey:    opts.APIKey,
		client:    &http.Client{Timeout: opts.Timeout},
		logger:    logger,
	}, nil
}

// Read fetches rows of an entity set. HTTP 404 maps onto ErrNotFound; other
// non-2xx statuses are transport errors.
func (g *GatewayClient) Read(ctx context.Context, entitySet string, query Query) ([]Row, error) {
	endpoint := fmt.Sprintf("%s/%s", g.baseURL, url.PathEscape(entitySet))

	params := url.Values{}
	if len(query.Select) > 0 {
		params.Set("$select", strings.Join(query.Select, ","))
	}
	if !query.Filter.Empty() {
		params.Set("$filter", odataFilter(query.Filter))
	}
	if len(query.Expand) > 0 {
		params.Set("$expand", strings.Join(query.Expand, ","))
	}
	if query.OrderBy != "" {
		params.Set("$orderby", query.OrderBy)
	}
	if query.Top > 0 {
		params.Set("$top", strconv.Itoa(query.Top))
	}
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building gateway request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", entitySet, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("reading %s: %w", entitySet, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("reading %s: gateway returned %d: %s", entitySet, resp.StatusCode, string(body))
	}

	var envelope struct {
		Value []Row `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", entitySet, err)
	}
	return envelope.Value, nil
}

// odataFilter renders a structural filter as an OData equality disjunction,
// e.g. MATNR eq 'P1' or MATNR eq 'P2'. Single quotes in values are doubled
// per the OData literal rules.
func odataFilter(f Filter) string {
	parts := make([]string, 0, len(f.Values))
	for _, v := range f.Values {
		parts = append(parts, fmt.Sprintf("%s eq '%s'", f.Field, strings.ReplaceAll(v, "'", "''")))
	}
	return strings.Join(parts, " or ")
}

// Create posts the finished report and returns the identifier assigned by
// the gateway.
func (g *GatewayClient) Create(ctx context.Context, payload ReportPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding report payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s", g.baseURL, url.PathEscape(g.reportSet))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("creating report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("creating report: gateway returned %d: %s", resp.StatusCode, string(data))
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decoding report response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("creating report: gateway returned no report id")
	}

	g.logger.Info("Report created", zap.String("report_id", created.ID))
	return created.ID, nil
}
