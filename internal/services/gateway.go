package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/myflix/internal/shared"
)

const maxErrorBody = 1 << 20

// GatewayOpts configures a [Gateway].
type GatewayOpts struct {
	BaseURL string
	// Client is used as-is when set; Timeout only applies to the default client.
	Client            *http.Client
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	Logger            *log.Logger
}

// UnauthorizedFunc receives authorization failures for requests that carried a token,
// along with the token that was rejected.
type UnauthorizedFunc func(token string, err *GatewayError)

// Gateway performs JSON requests against the catalog service.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger

	mu        sync.Mutex
	nextID    int
	listeners map[int]UnauthorizedFunc
}

// NewGateway creates a gateway. A non-positive RequestsPerSecond disables pacing.
func NewGateway(opts GatewayOpts) *Gateway {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	return &Gateway{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: client,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger,
		listeners:  make(map[int]UnauthorizedFunc),
	}
}

// NewGatewayFromConfig builds a gateway from the [api] config section.
func NewGatewayFromConfig(cfg shared.APIConfig, logger *log.Logger) *Gateway {
	return NewGateway(GatewayOpts{
		BaseURL:           cfg.BaseURL,
		Timeout:           cfg.Timeout(),
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		Logger:            logger,
	})
}

// BaseURL returns the service root the gateway sends requests to.
func (g *Gateway) BaseURL() string {
	return g.baseURL
}

// OnUnauthorized registers fn for authorization failures and returns a function that removes it.
func (g *Gateway) OnUnauthorized(fn UnauthorizedFunc) func() {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = fn
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		delete(g.listeners, id)
		g.mu.Unlock()
	}
}

func (g *Gateway) emitUnauthorized(token string, err *GatewayError) {
	g.mu.Lock()
	fns := make([]UnauthorizedFunc, 0, len(g.listeners))
	for _, fn := range g.listeners {
		fns = append(fns, fn)
	}
	g.mu.Unlock()

	for _, fn := range fns {
		fn(token, err)
	}
}

// Request sends body (JSON-encoded when non-nil) and returns the JSON response body.
//
// An empty success body decodes as JSON null. A success body that is not JSON is a transport failure.
func (g *Gateway) Request(ctx context.Context, method, path string, body any, token string) (json.RawMessage, error) {
	data, err := g.do(ctx, method, path, body, token)
	if err != nil {
		return nil, err
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(data) {
		return nil, &GatewayError{
			Kind:   KindTransport,
			Method: method,
			Path:   path,
			Err:    fmt.Errorf("response is not valid JSON"),
		}
	}
	return json.RawMessage(data), nil
}

// Exec sends a request whose success body is ignored.
func (g *Gateway) Exec(ctx context.Context, method, path string, body any, token string) error {
	_, err := g.do(ctx, method, path, body, token)
	return err
}

func (g *Gateway) do(ctx context.Context, method, path string, body any, token string) ([]byte, error) {
	transportErr := func(err error) *GatewayError {
		return &GatewayError{Kind: KindTransport, Method: method, Path: path, Err: err}
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, transportErr(fmt.Errorf("failed to marshal body: %w", err))
		}
		reqBody = bytes.NewReader(data)
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, transportErr(fmt.Errorf("rate limiter: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reqBody)
	if err != nil {
		return nil, transportErr(fmt.Errorf("failed to create request: %w", err))
	}

	requestID := shared.GenerateID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	}

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		g.logger.Debug("request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return nil, transportErr(err)
	}
	defer resp.Body.Close()

	g.logger.Debug("request", "method", method, "path", path, "status", resp.StatusCode,
		"request_id", requestID, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		gwErr := &GatewayError{
			Kind:       KindForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
		}

		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if readErr != nil {
			gwErr.Message = fmt.Sprintf("failed to read body: %v", readErr)
		} else {
			gwErr.Message = DecodeMessage(resp.StatusCode, respBody)
		}

		if gwErr.Kind == KindAuthorization && token != "" {
			g.logger.Warn("authorization rejected", "method", method, "path", path, "request_id", requestID)
			g.emitUnauthorized(token, gwErr)
		}
		return nil, gwErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportErr(fmt.Errorf("failed to read response: %w", err))
	}
	return data, nil
}

// DecodeMessage extracts a human-readable message from an error body.
//
// It understands {"error": "..."}, {"message": "..."}, {"errors": [{"msg": "..."}]} and JSON strings,
// and falls back to the raw text. It never fails.
func DecodeMessage(status int, body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return http.StatusText(status)
	}

	var obj struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Errors  []struct {
			Msg     string `json:"msg"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &obj) == nil {
		var msgs []string
		for _, e := range obj.Errors {
			switch {
			case e.Msg != "":
				msgs = append(msgs, e.Msg)
			case e.Message != "":
				msgs = append(msgs, e.Message)
			}
		}
		switch {
		case len(msgs) > 0:
			return strings.Join(msgs, "\n")
		case obj.Message != "":
			return obj.Message
		case obj.Error != "":
			return obj.Error
		}
	}

	var s string
	if json.Unmarshal(body, &s) == nil && s != "" {
		return s
	}
	return string(body)
}
