package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/reglet-dev/wasm-loader/domain/entities"
	domainerrors "github.com/reglet-dev/wasm-loader/domain/errors"
)

// WasmContentType is the media type a module must be served with.
const WasmContentType = "application/wasm"

// HTTPOption is a functional option for configuring an HTTPSource.
type HTTPOption func(*httpConfig)

type httpConfig struct {
	client             *http.Client
	headers            map[string]string
	timeout            time.Duration
	requireContentType bool
}

func defaultHTTPConfig() httpConfig {
	return httpConfig{
		client:             http.DefaultClient,
		requireContentType: true,
	}
}

// WithHTTPClient sets the client used for the request.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(cfg *httpConfig) {
		if c != nil {
			cfg.client = c
		}
	}
}

// WithHTTPTimeout bounds the whole transfer, body included.
func WithHTTPTimeout(d time.Duration) HTTPOption {
	return func(cfg *httpConfig) {
		if d > 0 {
			cfg.timeout = d
		}
	}
}

// WithRequireWasmContentType controls whether responses must be served as
// application/wasm. Enabled by default.
func WithRequireWasmContentType(required bool) HTTPOption {
	return func(cfg *httpConfig) {
		cfg.requireContentType = required
	}
}

// WithHeader adds a request header.
func WithHeader(key, value string) HTTPOption {
	return func(cfg *httpConfig) {
		if cfg.headers == nil {
			cfg.headers = make(map[string]string)
		}
		cfg.headers[key] = value
	}
}

// HTTPSource fetches a module with an HTTP GET.
type HTTPSource struct {
	url    string
	config httpConfig
}

// NewHTTPSource creates a source for rawURL.
func NewHTTPSource(rawURL string, opts ...HTTPOption) *HTTPSource {
	cfg := defaultHTTPConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &HTTPSource{url: rawURL, config: cfg}
}

// String returns the URL.
func (s *HTTPSource) String() string {
	return s.url
}

// Location reports the host and port the request goes to.
func (s *HTTPSource) Location() entities.SourceLocation {
	loc := entities.SourceLocation{Kind: entities.SourceKindHTTP}
	u, err := url.Parse(s.url)
	if err != nil {
		return loc
	}
	loc.Host = u.Hostname()
	loc.Path = u.Path
	if port, err := strconv.Atoi(u.Port()); err == nil {
		loc.Port = port
	} else if strings.EqualFold(u.Scheme, "https") {
		loc.Port = 443
	} else {
		loc.Port = 80
	}
	return loc
}

// Fetch issues the request and returns the response body once the status
// and content type have been checked.
func (s *HTTPSource) Fetch(ctx context.Context) (io.ReadCloser, error) {
	var cancel context.CancelFunc = func() {}
	if s.config.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.config.timeout)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		cancel()
		return nil, &domainerrors.FetchError{Source: s.url, Err: err}
	}
	req.Header.Set("Accept", WasmContentType)
	for k, v := range s.config.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.config.client.Do(req)
	if err != nil {
		cancel()
		return nil, &domainerrors.FetchError{Source: s.url, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		cancel()
		return nil, &domainerrors.HTTPError{URL: s.url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if s.config.requireContentType {
		ct := resp.Header.Get("Content-Type")
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != WasmContentType {
			_ = resp.Body.Close()
			cancel()
			return nil, &domainerrors.ContentTypeError{URL: s.url, ContentType: ct}
		}
	}

	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

// cancelOnClose releases the request context together with the body.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	if err != nil {
		return fmt.Errorf("close body: %w", err)
	}
	return nil
}
