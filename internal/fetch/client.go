// Package fetch downloads feed bodies over HTTP or from local files.
package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"inspector.onebusaway.org/internal/logging"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxBodySize = 25 * 1024 * 1024
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	Timeout     time.Duration
	MaxBodySize int64
	// Headers are added to every HTTP request, e.g. an API key header.
	Headers map[string]string
	// Retries is the number of extra attempts after a connection failure
	// or a 5xx response. Zero disables retrying.
	Retries       int
	RetryInterval time.Duration
}

// Client fetches feeds. It is safe for concurrent use.
type Client struct {
	http   *http.Client
	opts   Options
	logger *slog.Logger
}

// New returns a client with its own transport.
func New(opts Options, logger *slog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultMaxBodySize
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:   newHTTPClient(opts.Timeout),
		opts:   opts,
		logger: logger.With(slog.String("component", "feed_fetcher")),
	}
}

// newHTTPClient clones http.DefaultTransport so proxy, dialer and HTTP/2
// defaults are kept while the limits below stay local to this client.
func newHTTPClient(timeout time.Duration) *http.Client {
	var transport *http.Transport
	if t, ok := http.DefaultTransport.(*http.Transport); ok {
		transport = t.Clone()
	} else {
		transport = &http.Transport{}
	}
	transport.MaxIdleConns = 20
	transport.MaxIdleConnsPerHost = 4
	transport.IdleConnTimeout = 90 * time.Second
	transport.TLSHandshakeTimeout = 10 * time.Second
	transport.ExpectContinueTimeout = 1 * time.Second

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Fetch returns the body at url. url may be http(s), file:// or a local
// path. Failures are *Error values.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrEmptyURL
	}
	if path, ok := localPath(url); ok {
		return c.readFile(url, path)
	}
	if c.opts.Retries <= 0 {
		return c.get(ctx, url)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.opts.RetryInterval
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.opts.Retries)), ctx)
	return backoff.RetryNotifyWithData(
		func() ([]byte, error) {
			body, err := c.get(ctx, url)
			var fe *Error
			if err != nil && errors.As(err, &fe) && !fe.retryable() {
				return nil, backoff.Permanent(err)
			}
			return body, err
		},
		b,
		func(err error, d time.Duration) {
			c.logger.Warn("retrying feed fetch",
				slog.String("url", url),
				slog.Duration("backoff", d),
				slog.String("error", err.Error()))
		},
	)
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Kind: ConnectionFailed, URL: url, Err: err}
	}
	for key, value := range c.opts.Headers {
		req.Header.Add(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(url, err)
	}
	defer logging.SafeCloseWithLogging(resp.Body, c.logger, "http_response_body")

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &Error{Kind: HTTPStatus, URL: url, StatusCode: resp.StatusCode}
	}
	if resp.ContentLength > c.opts.MaxBodySize {
		return nil, &Error{Kind: TooLarge, URL: url}
	}

	body, err := c.readLimited(url, resp.Body)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) readFile(url, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Kind: ConnectionFailed, URL: url, Err: err}
	}
	defer logging.SafeCloseWithLogging(f, c.logger, "feed_file")
	return c.readLimited(url, f)
}

func (c *Client) readLimited(url string, r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, c.opts.MaxBodySize+1))
	if err != nil {
		return nil, classify(url, err)
	}
	if int64(len(body)) > c.opts.MaxBodySize {
		return nil, &Error{Kind: TooLarge, URL: url}
	}
	return body, nil
}

func classify(url string, err error) *Error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &Error{Kind: Timeout, URL: url, Err: err}
	}
	return &Error{Kind: ConnectionFailed, URL: url, Err: err}
}

// localPath reports whether url names a file rather than a network
// resource.
func localPath(url string) (string, bool) {
	if rest, ok := strings.CutPrefix(url, "file://"); ok {
		return rest, true
	}
	if !strings.Contains(url, "://") {
		return url, true
	}
	return "", false
}
