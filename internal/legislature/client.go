package legislature

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Config controls API client behavior.
type Config struct {
	BaseURL        string
	BillsListURL   string
	UserAgent      string
	Timeout        time.Duration
	MaxRetries     int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	// Token, when set, is sent as a GitHub token on bills-list requests.
	Token string
}

// Client queries the legislature document API using the Colly collector.
type Client struct {
	cfg           Config
	baseCollector *colly.Collector
	retry         *RetryPolicy
	logger        *zap.Logger
}

// NewClient builds a Client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector()
	// colly v2.1.0's Async option sets Async=true regardless of its argument,
	// so disable async mode via the field directly.
	c.Async = false
	// The API host has no robots policy for its JSON endpoints.
	c.IgnoreRobotsTxt = true
	return &Client{
		cfg:           cfg,
		baseCollector: c,
		retry:         NewRetryPolicy(cfg.MaxRetries, cfg.BackoffInitial, cfg.BackoffMax),
		logger:        logger,
	}
}

// Bills fetches and parses the session's bills list JSON. The raw payload is
// returned alongside the parsed list so callers can persist it verbatim.
func (c *Client) Bills(ctx context.Context, sessionID string) ([]Bill, []byte, error) {
	target := fmt.Sprintf(c.cfg.BillsListURL, sessionID)
	headers := map[string]string{}
	if c.cfg.Token != "" {
		headers["Authorization"] = "token " + c.cfg.Token
		headers["Accept"] = "application/vnd.github.v3+json"
	}
	raw, err := c.request(ctx, "GET", target, headers)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch bills list: %w", err)
	}
	var bills []Bill
	if err := json.Unmarshal(raw, &bills); err != nil {
		return nil, nil, fmt.Errorf("parse bills list: %w", err)
	}
	return bills, raw, nil
}

// Documents lists documents of the given kind for one bill.
func (c *Client) Documents(
	ctx context.Context,
	kind DocumentKind,
	legislatureOrdinal, sessionOrdinal int,
	bill Bill,
) ([]Document, error) {
	params := url.Values{}
	params.Set("legislatureOrdinal", strconv.Itoa(legislatureOrdinal))
	params.Set("sessionOrdinal", strconv.Itoa(sessionOrdinal))
	params.Set("billType", bill.BillType)
	params.Set("billNumber", strconv.Itoa(bill.BillNumber))
	target := fmt.Sprintf("%s/docs/v1/documents/%s?%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), kind.endpoint(), params.Encode())

	raw, err := c.request(ctx, "GET", target, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s documents for %s: %w", kind, bill.Key(), err)
	}
	var docs []Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("parse %s documents for %s: %w", kind, bill.Key(), err)
	}
	return docs, nil
}

// ShortPDFURL resolves a document ID to a signed PDF URL.
func (c *Client) ShortPDFURL(ctx context.Context, documentID int64) (string, error) {
	target := fmt.Sprintf("%s/docs/v1/documents/shortPdfUrl?documentId=%d",
		strings.TrimRight(c.cfg.BaseURL, "/"), documentID)
	raw, err := c.request(ctx, "POST", target, nil)
	if err != nil {
		return "", fmt.Errorf("fetch pdf url for document %d: %w", documentID, err)
	}
	pdfURL := strings.TrimSpace(string(raw))
	if pdfURL == "" {
		return "", fmt.Errorf("empty pdf url for document %d", documentID)
	}
	return pdfURL, nil
}

// Download fetches raw PDF bytes from a resolved URL.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	body, err := c.request(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", rawURL, err)
	}
	return body, nil
}

// request executes one HTTP call with retry/backoff.
func (c *Client) request(ctx context.Context, method, target string, headers map[string]string) ([]byte, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		body, err := c.do(ctx, method, target, headers)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !c.retry.ShouldRetry(err, attempt) {
			return nil, lastErr
		}
		wait := c.retry.Backoff(attempt)
		c.logger.Warn("request failed; retrying",
			zap.String("url", target),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("request canceled: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
}

// do executes a single HTTP call via a cloned collector.
func (c *Client) do(ctx context.Context, method, target string, headers map[string]string) ([]byte, error) {
	collector := c.baseCollector.Clone()
	collector.IgnoreRobotsTxt = true
	// Clones share the base collector's visited-URL store, and Visit marks a
	// URL visited before the request runs. Without this, a retry of the same
	// URL aborts with ErrAlreadyVisited instead of re-fetching.
	collector.AllowURLRevisit = true
	if c.cfg.UserAgent != "" {
		collector.UserAgent = c.cfg.UserAgent
	}
	timeout := c.cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	var (
		body     []byte
		fetchErr error
	)
	collector.OnRequest(func(r *colly.Request) {
		for key, value := range headers {
			r.Headers.Set(key, value)
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			fetchErr = &HTTPStatusError{StatusCode: r.StatusCode, URL: target}
			return
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		switch method {
		case "POST":
			done <- collector.Post(target, nil)
		default:
			done <- collector.Visit(target)
		}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("request canceled: %w", ctx.Err())
	case err := <-done:
		if fetchErr != nil {
			return nil, fetchErr
		}
		if err != nil {
			return nil, fmt.Errorf("visit %s: %w", target, err)
		}
		return body, nil
	}
}
