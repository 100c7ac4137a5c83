package teamcity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/specialistvlad/bigcity/internal/ctxlog"
	"github.com/specialistvlad/bigcity/internal/pipeline"
	"golang.org/x/oauth2"
	"resty.dev/v3"
)

// RootProjectID is the id of the implicit root project.
const RootProjectID = "_Root"

// restPrefix is the REST API root below the server URL.
const restPrefix = "/app/rest"

// Options configure a Client.
type Options struct {
	// URL is the server base URL, e.g. https://ci.example.com.
	URL      string
	Username string
	Password string
	// Token is an access token. When set it is sent as a bearer token and
	// Username/Password are ignored.
	Token   string
	Timeout time.Duration
	// VCSRootID, when set, is attached to every created build configuration.
	VCSRootID string
	// Transport overrides the base HTTP transport. Used by tests.
	Transport http.RoundTripper
}

// Client talks to one TeamCity server. It is safe for concurrent use.
type Client struct {
	rest      *resty.Client
	url       string
	vcsRootID string
}

var _ pipeline.Provisioner = (*Client)(nil)

// New builds a client. It does not contact the server; see Ping.
func New(ctx context.Context, opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.URL), "/")
	if base == "" {
		return nil, fmt.Errorf("server url is empty")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("server url %q must start with http:// or https://", opts.URL)
	}

	rest := resty.NewWithClient(newHTTPClient(opts)).
		SetBaseURL(base+restPrefix).
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{ctxlog.FromContext(ctx)})
	if opts.Token == "" && opts.Username != "" {
		rest.SetBasicAuth(opts.Username, opts.Password)
	}

	return &Client{rest: rest, url: base, vcsRootID: opts.VCSRootID}, nil
}

// newHTTPClient builds the underlying HTTP client. A token is injected by
// an oauth2 transport so it also covers redirects and retries.
func newHTTPClient(opts Options) *http.Client {
	base := opts.Transport
	if base == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.MaxIdleConns = 100
		t.MaxIdleConnsPerHost = 10
		t.IdleConnTimeout = 90 * time.Second
		base = t
	}

	var rt http.RoundTripper = base
	if opts.Token != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token, TokenType: "Bearer"}),
			Base:   base,
		}
	}
	return &http.Client{Timeout: opts.Timeout, Transport: rt}
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.rest.Client().CloseIdleConnections()
	return c.rest.Close()
}

// URL returns the server base URL.
func (c *Client) URL() string { return c.url }

// call sends one request and decodes a JSON answer into result when it is
// not nil. A transport failure or a non-2xx status is returned as an error.
func (c *Client) call(ctx context.Context, method, path string, params map[string]string, body, result any) error {
	req := c.rest.R().SetContext(ctx).SetPathParams(params)
	if body != nil {
		req.SetBody(body)
		if _, ok := body.(string); ok {
			req.SetContentType("text/plain")
		} else {
			req.SetContentType("application/json")
		}
	}
	if result != nil {
		req.SetResult(result)
	}

	started := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, expand(path, params), err)
	}
	ctxlog.FromContext(ctx).Debug("TeamCity request.",
		"method", method, "path", expand(path, params), "status", resp.StatusCode(), "elapsed", time.Since(started))
	if !resp.IsSuccess() {
		return &APIError{Method: method, Path: expand(path, params), Status: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}

// expand substitutes path parameters for error messages.
func expand(path string, params map[string]string) string {
	for k, v := range params {
		path = strings.ReplaceAll(path, "{"+k+"}", v)
	}
	return path
}

// restyLogger routes resty's own diagnostics into slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) { l.logger.Error(fmt.Sprintf(format, v...)) }
func (l restyLogger) Warnf(format string, v ...any)  { l.logger.Warn(fmt.Sprintf(format, v...)) }
func (l restyLogger) Debugf(format string, v ...any) { l.logger.Debug(fmt.Sprintf(format, v...)) }
