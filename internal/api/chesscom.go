package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chess-explorer/internal/config"
	"chess-explorer/internal/metrics"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
)

// Document is a decoded JSON object returned by the chess.com API.
type Document map[string]any

// FetchError reports that an endpoint could not be retrieved or decoded.
type FetchError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: API error: %d", e.Endpoint, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Err)
	default:
		return fmt.Sprintf("fetch %s failed", e.Endpoint)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a FetchError for a 404 response.
func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.StatusCode == fasthttp.StatusNotFound
}

type ChessComClient struct {
	baseURL   string
	userAgent string
	client    *fasthttp.Client
	metrics   metrics.Provider
}

func NewChessComClient(cfg *config.Config, m metrics.Provider) *ChessComClient {
	baseURL := cfg.BaseURL
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &ChessComClient{
		baseURL:   baseURL,
		userAgent: cfg.UserAgent,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		metrics: m,
	}
}

// Fetch performs a GET on endpoint, relative to the configured base URL, and
// decodes the body as a JSON object.
func (c *ChessComClient) Fetch(ctx context.Context, endpoint string) (Document, error) {
	start := time.Now()
	status, doc, err := c.doRequest(ctx, endpoint)
	c.metrics.ObserveFetch(Route(endpoint), status, time.Since(start))
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, StatusCode: httpErrorStatus(status), Err: err}
	}
	return doc, nil
}

func (c *ChessComClient) doRequest(ctx context.Context, endpoint string) (int, Document, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + endpoint)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetUserAgent(c.userAgent)
	req.Header.Set("Accept", "application/json")

	deadline, ok := ctx.Deadline()
	if ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return 0, nil, err
		}
	} else {
		if err := c.client.Do(req, resp); err != nil {
			return 0, nil, err
		}
	}

	status := resp.StatusCode()
	if status != fasthttp.StatusOK {
		return status, nil, fmt.Errorf("API error: %d", status)
	}

	var doc Document
	if err := json.Unmarshal(resp.Body(), &doc); err != nil {
		return status, nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if doc == nil {
		return status, nil, errors.New("response is not a JSON object")
	}
	return status, doc, nil
}

func httpErrorStatus(status int) int {
	if status == fasthttp.StatusOK {
		return 0
	}
	return status
}

// Route replaces the key segment of an endpoint so it can be used as a low
// cardinality label, e.g. "player/hikaru/stats" becomes "player/{key}/stats".
func Route(endpoint string) string {
	parts := strings.Split(endpoint, "/")
	if len(parts) > 1 {
		parts[1] = "{key}"
	}
	return strings.Join(parts, "/")
}
