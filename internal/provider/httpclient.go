package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const completionsPath = "/chat/completions"

// Client drives the chat-completions API over fasthttp. A zero timeout means
// no client-side deadline: negotiation latency is bounded only by the caller's
// context, if at all.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *fasthttp.Client
	catalog *Catalog
	logger  *zap.Logger

	timeout     time.Duration
	temperature float64
	retryMax    int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func WithTemperature(t float64) Option {
	return func(c *Client) { c.temperature = t }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(baseURL, apiKey, model string, catalog *Catalog, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("provider base URL is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("provider model is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("prompt catalog is required")
	}
	c := &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:      strings.TrimSpace(apiKey),
		model:       strings.TrimSpace(model),
		http:        &fasthttp.Client{MaxConnsPerHost: 16},
		catalog:     catalog,
		logger:      zap.NewNop(),
		temperature: 0.2,
		retryMax:    3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ProposeMove asks the model for one structured move. One shot: any transport,
// API, or parse failure surfaces to the caller unretried.
func (c *Client) ProposeMove(ctx context.Context, req MoveRequest) (MoveProposal, error) {
	system, err := c.catalog.Render("move.system", nil)
	if err != nil {
		return MoveProposal{}, err
	}
	user, err := c.catalog.Render("move.user", map[string]any{
		"FEN":        req.FEN,
		"Side":       req.SideToMove,
		"LegalMoves": strings.Join(req.LegalMoves, " "),
	})
	if err != nil {
		return MoveProposal{}, err
	}

	started := time.Now()
	content, err := c.doChat(ctx, system, user, false)
	if err != nil {
		return MoveProposal{}, err
	}
	proposal, err := parseMoveProposal(content)
	if err != nil {
		return MoveProposal{}, err
	}
	c.logger.Debug("provider_move",
		zap.String("from", proposal.From),
		zap.String("to", proposal.To),
		zap.Duration("latency", time.Since(started)))
	return proposal, nil
}

// SuggestToken asks the model for a single move token in standard notation.
// Presentational, so transient failures are retried.
func (c *Client) SuggestToken(ctx context.Context, req HintRequest) (string, error) {
	system, err := c.catalog.Render("hint.system", nil)
	if err != nil {
		return "", err
	}
	user, err := c.catalog.Render("hint.user", map[string]any{
		"FEN":  req.FEN,
		"Side": req.SideToMove,
	})
	if err != nil {
		return "", err
	}
	content, err := c.doChat(ctx, system, user, true)
	if err != nil {
		return "", err
	}
	return parseMoveToken(content)
}

func (c *Client) doChat(ctx context.Context, system, user string, retry bool) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	attempts := 1
	if retry {
		attempts = c.retryMax
		if attempts <= 0 {
			attempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, status, err := c.send(ctx, payload)
		if err != nil {
			lastErr = fmt.Errorf("chat request failed: %w", err)
			if attempt == attempts || !retry || ctx.Err() != nil {
				return "", lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return "", lastErr
			}
			continue
		}
		if status < 200 || status >= 300 {
			lastErr = fmt.Errorf("provider api error: status=%d body=%s", status, truncate(string(body), 512))
			if attempt == attempts || !retry || !shouldRetryStatus(status) {
				return "", lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return "", lastErr
			}
			continue
		}

		var parsed chatResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return "", fmt.Errorf("decode chat response: %w", err)
		}
		if parsed.Error != nil {
			return "", fmt.Errorf("provider api error: %s", parsed.Error.Message)
		}
		if len(parsed.Choices) == 0 {
			return "", errors.New("provider returned no choices")
		}
		content := strings.TrimSpace(parsed.Choices[0].Message.Content)
		if content == "" {
			return "", errors.New("provider returned empty content")
		}
		return content, nil
	}
	return "", lastErr
}

// send runs one HTTP exchange. The fasthttp call itself cannot be interrupted,
// so it runs on the side and the select hands control back the moment the
// context ends; a late response is simply discarded with its buffers.
func (c *Client) send(ctx context.Context, payload []byte) ([]byte, int, error) {
	type outcome struct {
		body   []byte
		status int
		err    error
	}
	ch := make(chan outcome, 1)

	go func() {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer func() {
			fasthttp.ReleaseRequest(req)
			fasthttp.ReleaseResponse(resp)
		}()

		req.Header.SetMethod(fasthttp.MethodPost)
		req.SetRequestURI(c.baseURL + completionsPath)
		req.Header.SetContentType("application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		req.SetBody(payload)

		var err error
		if dl, ok := c.deadline(ctx); ok {
			err = c.http.DoDeadline(req, resp, dl)
		} else {
			err = c.http.Do(req, resp)
		}
		if err != nil {
			ch <- outcome{err: err}
			return
		}
		ch <- outcome{
			body:   append([]byte(nil), resp.Body()...),
			status: resp.StatusCode(),
		}
	}()

	select {
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	case out := <-ch:
		return out.body, out.status, out.err
	}
}

func (c *Client) deadline(ctx context.Context) (time.Time, bool) {
	ctxDL, hasCtxDL := ctx.Deadline()
	if c.timeout <= 0 {
		return ctxDL, hasCtxDL
	}
	clientDL := time.Now().Add(c.timeout)
	if hasCtxDL && ctxDL.Before(clientDL) {
		return ctxDL, true
	}
	return clientDL, true
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base // 100ms, 200ms ...
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
