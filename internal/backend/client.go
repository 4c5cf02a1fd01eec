// Package backend is a typed HTTP client for the local media backend.
//
// Every method maps one backend route. Non-2xx responses become *APIError values
// that match the ErrRateLimited, ErrValidation or ErrServer markers, and network
// failures match ErrTransport, so callers can use Classify or Retryable to decide
// whether another attempt is worthwhile.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/mediabatch/pkg/version"
)

const (
	// DefaultBaseURL is where the desktop backend listens.
	DefaultBaseURL = "http://127.0.0.1:5001/api"

	// DefaultTimeout bounds one request. Subtitle alignment and downloads are slow.
	DefaultTimeout = 10 * time.Minute

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 * 1024
)

// Config describes the backend client configuration.
type Config struct {
	BaseURL string

	// Timeout applies to each request when HTTPClient is nil.
	Timeout time.Duration

	// MinVersion, when set, is the lowest backend version CheckVersion accepts.
	MinVersion string

	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// Client talks to the backend over HTTP.
type Client struct {
	baseURL    *url.URL
	http       *http.Client
	minVersion string
	userAgent  string
	logger     zerolog.Logger
}

// New creates a Client from cfg.
func New(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("backend: parse base url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("backend: unsupported url scheme %q", baseURL.Scheme)
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Client{
		baseURL:    baseURL,
		http:       client,
		minVersion: strings.TrimSpace(cfg.MinVersion),
		userAgent:  "mediabatch/" + version.GetVersion(),
		logger:     logger.With().Str("component", "backend").Logger(),
	}, nil
}

// BaseURL returns the configured backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) endpoint(route string) string {
	return c.baseURL.JoinPath(route).String()
}

func (c *Client) getJSON(ctx context.Context, route string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(route), nil)
	if err != nil {
		return fmt.Errorf("backend: build %s request: %w", route, err)
	}
	return c.do(req, route, out)
}

func (c *Client) postJSON(ctx context.Context, route string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("backend: encode %s request: %w", route, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(route), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("backend: build %s request: %w", route, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, route, out)
}

// do sends req and decodes a 2xx JSON body into out.
func (c *Client) do(req *http.Request, route string, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Ctx(req.Context()).Str("route", route).Err(err).Msg("request failed")
		return fmt.Errorf("%w: %s: %w", ErrTransport, route, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Ctx(req.Context()).
		Str("route", route).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("backend response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp, route)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: decode %s response: %w", route, err)
	}
	return nil
}

// decodeAPIError reads {"error": "..."} from a failed response, falling back to the
// status text when the body is not that shape.
func decodeAPIError(resp *http.Response, route string) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Route: route}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && strings.TrimSpace(payload.Error) != "" {
		apiErr.Message = strings.TrimSpace(payload.Error)
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// IsUnreachable reports whether err means the backend could not be contacted.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrTransport)
}
