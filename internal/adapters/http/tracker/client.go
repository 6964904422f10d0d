// Package tracker is the HTTP client for the Iron Trials tracking backend.
//
// Every operation is best-effort: transport, status and decode failures are
// logged and reported as a nil or false value. FetchGroupData, SendEvent and
// FetchBingoBoard run on the supplied Executor and return futures;
// DownloadRaw blocks the caller.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/okian/irontrials/internal/adapters/mq/worker"
	"github.com/okian/irontrials/internal/domain/model"
	"github.com/okian/irontrials/pkg/future"
	"github.com/okian/irontrials/pkg/logger"
	"github.com/okian/irontrials/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultTimeout    = 10 * time.Second
	defaultCacheSize  = 16
	maxLoggedBodyLen  = 100
	contentTypeJSON   = "application/json"
	opFetchGroupData  = "fetch_group_data"
	opSendEvent       = "send_event"
	opFetchBingoBoard = "fetch_bingo_board"
	opDownloadRaw     = "download_raw"
)

// Executor runs background jobs.
type Executor interface {
	Submit(ctx context.Context, job worker.Job) bool
}

// Client talks to the tracking backend.
type Client struct {
	http      *http.Client
	exec      Executor
	cacheSize int
	groups    *lru.Cache[string, *model.GroupData]
	boards    *lru.Cache[string, *model.BingoBoard]
	logger    logger.Logger
}

// New creates a client that schedules its asynchronous calls on exec.
func New(exec Executor, opts ...Option) (*Client, error) {
	if exec == nil {
		return nil, ErrNoExecutor
	}
	c := &Client{
		http:      &http.Client{Timeout: defaultTimeout},
		exec:      exec,
		cacheSize: defaultCacheSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("tracker")
	}

	var err error
	if c.groups, err = lru.New[string, *model.GroupData](c.cacheSize); err != nil {
		return nil, fmt.Errorf("group cache: %w", err)
	}
	if c.boards, err = lru.New[string, *model.BingoBoard](c.cacheSize); err != nil {
		return nil, fmt.Errorf("bingo cache: %w", err)
	}
	return c, nil
}

// FetchGroupData fetches GroupData from GET {serverURL}/v1/groups/{groupID}.
// The outcome value is nil on any failure.
func (c *Client) FetchGroupData(ctx context.Context, serverURL, groupID string) *future.Future[*model.GroupData] {
	endpoint := joinURL(serverURL, "v1", "groups", groupID)
	return submit(ctx, c, opFetchGroupData, func(ctx context.Context) (*model.GroupData, error) {
		var g model.GroupData
		if err := c.getJSON(ctx, opFetchGroupData, endpoint, &g); err != nil {
			return nil, err
		}
		c.groups.Add(groupID, &g)
		return &g, nil
	})
}

// SendEvent posts ev to {serverURL}/v1/groups/{groupID}/events. The outcome
// value is true iff the backend answered 2xx.
func (c *Client) SendEvent(ctx context.Context, serverURL, groupID string, ev model.GameEvent) *future.Future[bool] {
	endpoint := joinURL(serverURL, "v1", "groups", groupID, "events")
	return submit(ctx, c, opSendEvent, func(ctx context.Context) (bool, error) {
		body, err := json.Marshal(ev)
		if err != nil {
			return false, fmt.Errorf("%w: %w", ErrEncode, err)
		}
		resp, err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return false, err
		}
		defer c.closeBody(ctx, resp)
		_, _ = io.Copy(io.Discard, resp.Body)
		if !isSuccess(resp.StatusCode) {
			return false, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
		}
		return true, nil
	})
}

// FetchBingoBoard fetches the board from GET {serverURL}/v1/bingo/boards/{groupID}.
func (c *Client) FetchBingoBoard(ctx context.Context, serverURL, groupID string) *future.Future[*model.BingoBoard] {
	endpoint := joinURL(serverURL, "v1", "bingo", "boards", groupID)
	return submit(ctx, c, opFetchBingoBoard, func(ctx context.Context) (*model.BingoBoard, error) {
		var b model.BingoBoard
		if err := c.getJSON(ctx, opFetchBingoBoard, endpoint, &b); err != nil {
			return nil, err
		}
		c.boards.Add(groupID, &b)
		return &b, nil
	})
}

// DownloadRaw returns the body of GET rawURL. It blocks until the request
// finishes.
func (c *Client) DownloadRaw(ctx context.Context, rawURL string) (string, bool) {
	start := time.Now()
	body, err := c.download(ctx, rawURL)
	c.record(ctx, opDownloadRaw, start, err)
	if err != nil {
		return "", false
	}
	return string(body), true
}

// LastGroupData returns the last successfully fetched GroupData for groupID.
func (c *Client) LastGroupData(groupID string) (*model.GroupData, bool) {
	return c.groups.Get(groupID)
}

// LastBingoBoard returns the last successfully fetched board for groupID.
func (c *Client) LastBingoBoard(groupID string) (*model.BingoBoard, bool) {
	return c.boards.Get(groupID)
}

// submit schedules call on the executor and resolves the returned future
// with its outcome. A rejected submission resolves immediately with
// ErrRejected.
func submit[T any](ctx context.Context, c *Client, op string, call func(context.Context) (T, error)) *future.Future[T] {
	f := future.New[T]()
	// issued requests outlive the caller's cancellation
	detached := context.WithoutCancel(ctx)

	job := func(context.Context) {
		start := time.Now()
		v, err := call(detached)
		c.record(detached, op, start, err)
		f.Resolve(future.Outcome[T]{Value: v, Err: err})
	}
	if !c.exec.Submit(detached, job) {
		c.logger.Warn(ctx, "sync request rejected", logger.String("operation", op))
		metrics.RecordSyncRequest(op, "rejected", 0)
		var zero T
		f.Resolve(future.Outcome[T]{Value: zero, Err: ErrRejected})
	}
	return f
}

func (c *Client) getJSON(ctx context.Context, op, endpoint string, out any) error {
	raw, err := c.download(ctx, endpoint)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Warn(ctx, "undecodable response",
			logger.String("operation", op),
			logger.String("body", truncate(string(raw))),
		)
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}

func (c *Client) download(ctx context.Context, endpoint string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer c.closeBody(ctx, resp)

	if !isSuccess(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}
	req.Header.Set("Accept", contentTypeJSON)

	c.logger.Debug(ctx, "sync request", logger.String("method", method), logger.String("url", endpoint))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return resp, nil
}

func (c *Client) closeBody(ctx context.Context, resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		c.logger.Error(ctx, "failed to close response body", logger.Error(err))
	}
}

// record logs a failed call and reports its latency.
func (c *Client) record(ctx context.Context, op string, start time.Time, err error) {
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		c.logger.Warn(ctx, "sync request failed", logger.String("operation", op), logger.Error(err))
		metrics.RecordSyncRequest(op, "error", latency)
		return
	}
	metrics.RecordSyncRequest(op, "ok", latency)
}

func joinURL(base string, segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(escaped, "/")
}

func isSuccess(code int) bool { return code >= 200 && code < 300 }

func truncate(s string) string {
	if len(s) <= maxLoggedBodyLen {
		return s
	}
	return s[:maxLoggedBodyLen] + "..."
}
