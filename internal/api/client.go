// Package api is a client for the Centic points rewards API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/centic-tools/centic-ctl/internal/proxy"
)

const (
	PathTasks      = "/tasks"
	PathUserRank   = "/user-rank"
	PathInvites    = "/invites"
	PathClaimTasks = "/claim-tasks"

	// HeaderAPIKey carries the account token.
	HeaderAPIKey = "x-apikey"

	// maxErrorBody bounds how much of an error response ends up in logs.
	maxErrorBody = 256
)

// Options configures a Client
type Options struct {
	// BaseURL is the API root, e.g. https://develop.centic.io/ctp-api/centic-points
	BaseURL string

	// Proxy is an optional proxy line from proxy.txt
	Proxy string

	// Timeout bounds each request (0 = no timeout)
	Timeout time.Duration

	// UserAgent is sent on every request when set
	UserAgent string

	// Logger receives resty's internal warnings
	Logger *slog.Logger
}

// Client performs the rewards API operations for one proxy route.
type Client struct {
	rc    *resty.Client
	proxy string
}

// Factory builds a client for a proxy URL ("" for a direct connection).
type Factory func(proxyURL string) (*Client, error)

// NewFactory returns a Factory that builds clients from base with the proxy
// replaced.
func NewFactory(base Options) Factory {
	return func(proxyURL string) (*Client, error) {
		opts := base
		opts.Proxy = proxyURL
		return NewClient(opts)
	}
}

// NewClient creates a client, optionally routed through opts.Proxy.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetHeader("Accept", "application/json, text/plain, */*").
		SetLogger(restyLogger{opts.Logger})

	if opts.Timeout > 0 {
		rc.SetTimeout(opts.Timeout)
	}
	if opts.UserAgent != "" {
		rc.SetHeader("User-Agent", opts.UserAgent)
	}

	c := &Client{rc: rc}
	if opts.Proxy != "" {
		proxyURL, err := proxy.Normalize(opts.Proxy)
		if err != nil {
			return nil, err
		}
		rc.SetProxy(proxyURL)
		c.proxy = proxyURL
	}

	return c, nil
}

// Proxy returns the normalized proxy URL, or "" for a direct client.
func (c *Client) Proxy() string {
	return c.proxy
}

// FetchTasks returns the unclaimed tasks of the account.
func (c *Client) FetchTasks(ctx context.Context, token string) ([]Task, error) {
	body, err := c.do(ctx, "fetch tasks", http.MethodGet, PathTasks, token, nil)
	if err != nil {
		return nil, err
	}
	tasks, err := ParseTasks(body)
	if err != nil {
		return nil, &Error{Op: "fetch tasks", Kind: KindDecode, Err: err}
	}
	return tasks, nil
}

// FetchUserRank returns the account's id, rank and point total.
func (c *Client) FetchUserRank(ctx context.Context, token string) (*UserRank, error) {
	body, err := c.do(ctx, "fetch rank", http.MethodGet, PathUserRank, token, nil)
	if err != nil {
		return nil, err
	}
	var rank UserRank
	if err := json.Unmarshal(body, &rank); err != nil {
		return nil, &Error{Op: "fetch rank", Kind: KindDecode, Err: err}
	}
	return &rank, nil
}

// ClaimReferral submits an invite code for the account.
func (c *Client) ClaimReferral(ctx context.Context, token, code string) error {
	_, err := c.do(ctx, "claim referral", http.MethodPost, PathInvites, token, map[string]string{
		"referralCode": code,
	})
	return err
}

// ClaimTask claims one task and returns the raw response body.
func (c *Client) ClaimTask(ctx context.Context, token string, task Task) (json.RawMessage, error) {
	body, err := c.do(ctx, "claim task", http.MethodPost, PathClaimTasks, token, task)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		// Some deployments answer with plain text; keep it readable in logs.
		quoted, _ := json.Marshal(string(body))
		return json.RawMessage(quoted), nil
	}
	return json.RawMessage(body), nil
}

func (c *Client) do(ctx context.Context, op, method, path, token string, body any) ([]byte, error) {
	req := c.rc.R().
		SetContext(ctx).
		SetHeader(HeaderAPIKey, token)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindNetwork, Err: err}
	}

	if resp.IsError() {
		kind := KindStatus
		if resp.StatusCode() == http.StatusNotFound {
			kind = KindNotFound
		}
		return nil, &Error{Op: op, Kind: kind, StatusCode: resp.StatusCode(), Err: bodyError(resp.Body())}
	}

	return resp.Body(), nil
}

func bodyError(body []byte) error {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return nil
	}
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	return errors.New(msg)
}

// restyLogger routes resty's internal messages into slog.
type restyLogger struct {
	l *slog.Logger
}

func (r restyLogger) Errorf(format string, v ...interface{}) {
	r.l.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "resty")
}

func (r restyLogger) Warnf(format string, v ...interface{}) {
	r.l.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "resty")
}

func (r restyLogger) Debugf(format string, v ...interface{}) {
	r.l.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "resty")
}
