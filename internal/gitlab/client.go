package gitlab

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/glinvent/glinvent/internal/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/semaphore"
)

const apiPrefix = "/api/v4/"

// Options configures a Client.
type Options struct {
	// Host is the GitLab host, e.g. "gitlab.example.com". Scheme defaults
	// to https.
	Host               string
	Token              string
	InsecureSkipVerify bool
	Timeout            time.Duration // per-request, default 30s
	Retries            int           // extra attempts on 5xx/transport failures
	MaxInFlight        int64         // concurrent request cap, default 16
}

// Client is the single point where authentication, TLS policy, retries,
// and the in-flight request cap are applied. It is stateless per request
// and safe for concurrent use.
type Client struct {
	host     string
	baseURL  string
	httpc    *http.Client
	inFlight *semaphore.Weighted
}

// retryTransport retries idempotent GETs on transport failures and 5xx
// responses with linear backoff. 4xx responses are never retried.
type retryTransport struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error
	for attempt := 0; ; attempt++ {
		resp, err = t.base.RoundTrip(req)
		retryable := err != nil || resp.StatusCode >= http.StatusInternalServerError
		if !retryable || attempt >= t.retries {
			return resp, err
		}
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
		wait := t.backoff * time.Duration(attempt+1)
		log.Debug("retrying request", "url", req.URL.Path, "attempt", attempt+1, "wait", wait)
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(wait):
		}
	}
}

// NewClient creates an authenticated GitLab API client.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("gitlab host not configured")
	}
	if opts.Token == "" {
		return nil, fmt.Errorf("gitlab token not provided")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 16
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureSkipVerify {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	// Layer the retry policy under the oauth2 transport so retried
	// attempts keep their auth header.
	base := &http.Client{
		Transport: &retryTransport{
			base:    tr,
			retries: opts.Retries,
			backoff: 500 * time.Millisecond,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
	httpc := oauth2.NewClient(ctx, ts)
	httpc.Timeout = opts.Timeout

	host := strings.TrimSuffix(opts.Host, "/")
	baseURL := host
	if !strings.Contains(baseURL, "://") {
		baseURL = "https://" + baseURL
	}

	return &Client{
		host:     hostOnly(baseURL),
		baseURL:  baseURL,
		httpc:    httpc,
		inFlight: semaphore.NewWeighted(opts.MaxInFlight),
	}, nil
}

func hostOnly(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return baseURL
	}
	return u.Host
}

// Host returns the API host the client talks to, without scheme or port.
func (c *Client) Host() string {
	if h, _, ok := strings.Cut(c.host, ":"); ok {
		return h
	}
	return c.host
}

// get performs one authenticated GET and returns the response metadata and
// fully read body. Non-2xx statuses are not an error at this layer.
func (c *Client) get(ctx context.Context, path string, query url.Values) (int, http.Header, []byte, error) {
	if err := c.inFlight.Acquire(ctx, 1); err != nil {
		return 0, nil, nil, &TransportError{Path: path, Err: err}
	}
	defer c.inFlight.Release(1)

	u := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	log.Trace("GET", "url", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, nil, &TransportError{Path: path, Err: err}
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, nil, nil, &TransportError{Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, resp.Header, nil, &TransportError{Path: path, Err: err}
	}
	return resp.StatusCode, resp.Header, body, nil
}

// getObject fetches a single resource and decodes it into target.
func (c *Client) getObject(ctx context.Context, path string, query url.Values, target any) error {
	status, _, body, err := c.get(ctx, path, query)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &APIError{Status: status, Path: path}
	}
	if err := json.Unmarshal(body, target); err != nil {
		return &DecodeError{Path: path, Err: err}
	}
	return nil
}

// CurrentUser validates the token against the instance and returns the
// authenticated username.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	var u User
	if err := c.getObject(ctx, "user", nil, &u); err != nil {
		return "", err
	}
	return u.Username, nil
}

// ProjectWithStatistics fetches one project including repository size
// statistics.
func (c *Client) ProjectWithStatistics(ctx context.Context, projectID int) (Project, error) {
	var p Project
	query := url.Values{"statistics": {"true"}}
	if err := c.getObject(ctx, fmt.Sprintf("projects/%d", projectID), query, &p); err != nil {
		return Project{}, err
	}
	return p, nil
}
