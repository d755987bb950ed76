package client

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hostmon/pkg/log"
	"hostmon/pkg/models"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	defaultRetryMax     = 3
	defaultRetryWaitMin = 500 * time.Millisecond
	defaultRetryWaitMax = 5 * time.Second
	defaultTimeout      = 10 * time.Second
)

// Options configures a Client. Zero values select the defaults and a negative
// RetryMax disables retries.
type Options struct {
	Token              string
	RetryMax           int
	RetryWaitMin       time.Duration
	RetryWaitMax       time.Duration
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// Client polls a single agent.
type Client struct {
	baseURL string
	token   string
	http    *retryablehttp.Client
}

// New creates a client for the agent at baseURL (http:// or https://).
func New(baseURL string, opts Options) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	} else if opts.RetryMax == 0 {
		opts.RetryMax = defaultRetryMax
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = defaultRetryWaitMin
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = defaultRetryWaitMax
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	httpClient := CreateRetryableClient(opts.RetryMax, opts.RetryWaitMin, opts.RetryWaitMax)
	httpClient.HTTPClient.Timeout = opts.Timeout
	if opts.InsecureSkipVerify {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // self-signed agents
		httpClient.HTTPClient.Transport = transport
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   opts.Token,
		http:    httpClient,
	}, nil
}

// CreateRetryableClient creates a retryable HTTP client for agent requests.
func CreateRetryableClient(retryMax int, retryWaitMin, retryWaitMax time.Duration) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.RetryWaitMin = retryWaitMin
	client.RetryWaitMax = retryWaitMax
	client.Logger = nil
	// Agent error responses are forwarded to the caller, only transport failures are retried.
	client.CheckRetry = retryPolicy
	return client
}

func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if resp != nil {
		return false, nil
	}

	if err != nil {
		return true, nil //nolint:nilerr // retryablehttp reports the final error
	}

	return false, nil
}

// Metrics fetches the full snapshot.
func (c *Client) Metrics(ctx context.Context) (*models.Metrics, error) {
	var metrics models.Metrics
	if err := c.get(ctx, "/metrics", &metrics); err != nil {
		return nil, err
	}
	return &metrics, nil
}

// CPU fetches the CPU section.
func (c *Client) CPU(ctx context.Context) (*models.CPUMetrics, error) {
	var cpuMetrics models.CPUMetrics
	if err := c.get(ctx, "/metrics/cpu", &cpuMetrics); err != nil {
		return nil, err
	}
	return &cpuMetrics, nil
}

// CPULoad fetches the CPU load section.
func (c *Client) CPULoad(ctx context.Context) (*models.CPULoadMetric, error) {
	var load models.CPULoadMetric
	if err := c.get(ctx, "/metrics/cpu/load", &load); err != nil {
		return nil, err
	}
	return &load, nil
}

// CPULoadAverage fetches the aggregate CPU utilization.
func (c *Client) CPULoadAverage(ctx context.Context) (models.Percent, error) {
	var average models.Percent
	err := c.get(ctx, "/metrics/cpu/load/average", &average)
	return average, err
}

// CPULoadPerCore fetches the per-core CPU utilization.
func (c *Client) CPULoadPerCore(ctx context.Context) ([]models.Percent, error) {
	var perCore []models.Percent
	if err := c.get(ctx, "/metrics/cpu/load/per-core", &perCore); err != nil {
		return nil, err
	}
	return perCore, nil
}

// Memory fetches the memory section.
func (c *Client) Memory(ctx context.Context) (*models.MemoryMetrics, error) {
	var memoryMetrics models.MemoryMetrics
	if err := c.get(ctx, "/metrics/memory", &memoryMetrics); err != nil {
		return nil, err
	}
	return &memoryMetrics, nil
}

// MemoryPercUsed fetches the used memory percentage.
func (c *Client) MemoryPercUsed(ctx context.Context) (models.Percent, error) {
	var percUsed models.Percent
	err := c.get(ctx, "/metrics/memory/perc-used", &percUsed)
	return percUsed, err
}

// MemoryDetailed fetches the raw memory counters.
func (c *Client) MemoryDetailed(ctx context.Context) (*models.MemoryDetailedMetrics, error) {
	var detailed models.MemoryDetailedMetrics
	if err := c.get(ctx, "/metrics/memory/detailed", &detailed); err != nil {
		return nil, err
	}
	return &detailed, nil
}

// Health fetches the liveness report.
func (c *Client) Health(ctx context.Context) (*models.Health, error) {
	var health models.Health
	if err := c.get(ctx, "/health", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// AgentID fetches the agent identifier.
func (c *Client) AgentID(ctx context.Context) (string, error) {
	var agentID models.AgentID
	if err := c.get(ctx, "/agent-id", &agentID); err != nil {
		return "", err
	}
	return agentID.AgentID, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("path", path).Msg("Failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var body models.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&body) == nil {
			apiErr.Kind = body.Kind
			apiErr.Message = body.Error
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
