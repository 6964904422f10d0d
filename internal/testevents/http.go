package testevents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/irontrials/internal/domain/model"
	"github.com/okian/irontrials/internal/domain/taxonomy"
	"github.com/okian/irontrials/pkg/logger"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// getJSON decodes a 200 response from path into v.
func (c *HTTPClient) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("GET %s: failed to decode response: %w", path, err)
	}
	return nil
}

// fetchTaxonomy reads the milestone taxonomy the daemon is using.
func fetchTaxonomy(ctx context.Context, config *Config) (*taxonomy.Taxonomy, error) {
	var tax taxonomy.Taxonomy
	if err := newHTTPClient(config.BaseURL, config.Timeout).getJSON(ctx, "/v1/taxonomy", &tax); err != nil {
		return nil, err
	}
	return tax.Normalize(), nil
}

// fetchEvents reads an event listing such as /v1/events/recent or /v1/feed.
func fetchEvents(ctx context.Context, config *Config, path string) (FeedResponse, error) {
	var feed FeedResponse
	err := newHTTPClient(config.BaseURL, config.Timeout).getJSON(ctx, path, &feed)
	return feed, err
}

// submitSteps posts the script through worker lanes. Each lane posts its
// steps in script order.
func submitSteps(ctx context.Context, config *Config, steps []Step, stats *Stats) error {
	workers := config.Workers
	if workers <= 0 {
		workers = 1
	}
	logger.Get().Info(ctx, "submitting replay script",
		logger.Int("steps", len(steps)),
		logger.Int("workers", workers))

	client := newHTTPClient(config.BaseURL, config.Timeout)

	var (
		submitted int64
		accepted  int64
		failed    int64
	)

	lanes := make([]chan Step, workers)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan Step, workers*WorkerChannelMultiplier)
		wg.Add(1)
		go func(lane <-chan Step) {
			defer wg.Done()
			for step := range lane {
				if ctx.Err() != nil {
					continue
				}
				atomic.AddInt64(&submitted, 1)
				if err := submitStep(ctx, client, step); err != nil {
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						logger.Get().Warn(ctx, "step rejected", logger.Error(err))
					}
					continue
				}
				atomic.AddInt64(&accepted, 1)
			}
		}(lanes[i])
	}

	for i, step := range steps {
		select {
		case <-ctx.Done():
		case lanes[step.lane(i, workers)] <- step:
		}
	}
	for _, lane := range lanes {
		close(lane)
	}
	wg.Wait()

	stats.StepsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.StepsAccepted = int(atomic.LoadInt64(&accepted))
	stats.StepsFailed = int(atomic.LoadInt64(&failed))

	logger.Get().Info(ctx, "replay script submitted",
		logger.Int("accepted", stats.StepsAccepted),
		logger.Int("failed", stats.StepsFailed))

	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// submitStep posts one step and expects 202 Accepted.
func submitStep(ctx context.Context, client *HTTPClient, step Step) error {
	var (
		path string
		body any
	)
	switch step.Kind {
	case StepChat:
		path, body = "/v1/host/chat", chatRequest{Text: step.Text, Type: step.Type}
	case StepStat:
		path, body = "/v1/host/stats", statRequest{Skill: step.Skill, Level: step.Level, XP: step.XP}
	default:
		return fmt.Errorf("unknown step kind %q", step.Kind)
	}

	resp, err := client.Post(ctx, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != StatusAccepted {
		return fmt.Errorf("POST %s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}

// eventIDs returns the set of ids in events.
func eventIDs(events []model.GameEvent) map[string]struct{} {
	ids := make(map[string]struct{}, len(events))
	for _, ev := range events {
		ids[ev.ID] = struct{}{}
	}
	return ids
}
