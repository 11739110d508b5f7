// Package transport builds authenticated requests against the submission
// service and classifies transport failures.
package transport

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/osvaldoandrade/repozip/internal/buildinfo"
	"github.com/osvaldoandrade/repozip/internal/tracing"
	"github.com/osvaldoandrade/repozip/pkg/domain"

	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-Id"

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New returns a Client for baseURL. A zero timeout means no client-side limit.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient replaces the underlying client, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// NewRequest builds method {base}{path}?{query} with bearer auth, a fresh
// request id and the caller's trace context.
func (c *Client) NewRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, domain.Wrap(domain.KindConfig, "build request", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	tracing.InjectHeaders(ctx, req.Header)
	return req, nil
}

// Response is a fully read HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Do sends req and reads the whole body. Any failure before a status line
// is received, including timeouts, is a NetworkError.
func (c *Client) Do(op string, req *http.Request) (*Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.Wrap(domain.KindNetwork, op, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Wrap(domain.KindNetwork, op+": read body", err)
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// Stream sends req and returns the response with its body unread. The caller
// closes the body.
func (c *Client) Stream(op string, req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.Wrap(domain.KindNetwork, op, err)
	}
	return resp, nil
}
