package akinator

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Timeouts bounds each round-trip against the guess service. The service is
// slow and flaky, so starts get a longer budget than regular turns. Carried
// per client instance instead of mutating any process-wide default.
type Timeouts struct {
	Start time.Duration
	Turn  time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{Start: 15 * time.Second, Turn: 10 * time.Second}
}

type Client struct {
	baseURL  string
	http     *fasthttp.Client
	timeouts Timeouts
	logger   *zap.Logger
}

type Option func(*Client)

func WithTimeouts(t Timeouts) Option {
	return func(c *Client) {
		if t.Start > 0 {
			c.timeouts.Start = t.Start
		}
		if t.Turn > 0 {
			c.timeouts.Turn = t.Turn
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &fasthttp.Client{ReadTimeout: 15 * time.Second, WriteTimeout: 15 * time.Second, MaxConnsPerHost: 16},
		timeouts: DefaultTimeouts(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewPlayerToken generates the random player identity the service wants on
// session start.
func NewPlayerToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// StartSession opens a fresh game and returns the first question along with
// the session/signature pair required on every later call.
func (c *Client) StartSession(ctx context.Context, playerToken string) (*StepInfo, error) {
	args := map[string]string{
		"partner": "1",
		"player":  playerToken,
	}
	body, err := c.get(ctx, "/new_session", args, c.timeouts.Start)
	if err != nil {
		return nil, err
	}
	info, err := parseStepInfo(body)
	if err != nil {
		return nil, err
	}
	if info.GameOver {
		return nil, fmt.Errorf("%w: start rejected: %s", ErrProtocolError, truncate(string(body), 512))
	}
	if info.Session == "" || info.Signature == "" {
		return nil, fmt.Errorf("%w: start response missing identification", ErrProtocolError)
	}
	return info, nil
}

// SubmitAnswer advances the game one turn. A GameOver result means the service
// gave up; the session is finished and no identification is returned.
func (c *Client) SubmitAnswer(ctx context.Context, session, signature string, step int, answer Answer) (*StepInfo, error) {
	args := map[string]string{
		"session":   session,
		"signature": signature,
		"step":      strconv.Itoa(step),
		"answer":    strconv.Itoa(int(answer)),
	}
	body, err := c.get(ctx, "/answer", args, c.timeouts.Turn)
	if err != nil {
		return nil, err
	}
	return parseStepInfo(body)
}

// FetchGuess returns the service's current best candidate at the given step.
func (c *Client) FetchGuess(ctx context.Context, session, signature string, step int) (*Guess, error) {
	args := map[string]string{
		"session":   session,
		"signature": signature,
		"step":      strconv.Itoa(step),
	}
	body, err := c.get(ctx, "/list", args, c.timeouts.Turn)
	if err != nil {
		return nil, err
	}
	return parseGuess(body)
}

// ResolveGuess reports whether the proposed candidate was correct. A rejection
// is forwarded as an exclusion so the next candidate differs.
func (c *Client) ResolveGuess(ctx context.Context, session, signature string, step int, elementID string, confirmed bool) error {
	var path string
	args := map[string]string{
		"session":   session,
		"signature": signature,
		"step":      strconv.Itoa(step),
	}
	if confirmed {
		path = "/choice"
		args["element"] = elementID
	} else {
		path = "/exclusion"
		args["forward_answer"] = strconv.Itoa(int(AnswerNo))
	}
	_, err := c.get(ctx, path, args, c.timeouts.Turn)
	return err
}

func (c *Client) get(ctx context.Context, path string, args map[string]string, timeout time.Duration) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.baseURL + path)
	for k, v := range args {
		req.URI().QueryArgs().Set(k, v)
	}

	deadline := time.Now().Add(timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}

	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		c.logger.Warn("akinator_http_error",
			zap.String("path", path),
			zap.Int("status", status),
			zap.String("body", truncate(string(resp.Body()), 512)))
		return nil, fmt.Errorf("%w: status=%d", ErrServiceUnavailable, status)
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}

// Response envelope. parameters varies per endpoint so it stays raw until the
// caller knows what to expect.
type envelope struct {
	Completion string          `json:"completion"`
	Parameters json.RawMessage `json:"parameters"`
}

type stepBlock struct {
	Question    string      `json:"question"`
	Step        json.Number `json:"step"`
	Progression json.Number `json:"progression"`
}

type startParams struct {
	StepInformation *stepBlock `json:"step_information"`
	Identification *struct {
		Session   string `json:"session"`
		Signature string `json:"signature"`
	} `json:"identification"`
}

// parseStepInfo handles both response layouts: start responses nest the step
// under step_information, answer responses inline it in parameters. Any
// completion other than OK is the game-over signal.
func parseStepInfo(body []byte) (*StepInfo, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v: %s", ErrProtocolError, err, truncate(string(body), 512))
	}
	if !strings.EqualFold(env.Completion, "OK") {
		return &StepInfo{GameOver: true}, nil
	}

	var params startParams
	if err := json.Unmarshal(env.Parameters, &params); err != nil {
		return nil, fmt.Errorf("%w: %v: %s", ErrProtocolError, err, truncate(string(body), 512))
	}

	block := params.StepInformation
	if block == nil {
		var inline stepBlock
		if err := json.Unmarshal(env.Parameters, &inline); err != nil {
			return nil, fmt.Errorf("%w: %v: %s", ErrProtocolError, err, truncate(string(body), 512))
		}
		block = &inline
	}
	if strings.TrimSpace(block.Question) == "" {
		return nil, fmt.Errorf("%w: missing question: %s", ErrProtocolError, truncate(string(body), 512))
	}

	step, err := block.Step.Int64()
	if err != nil {
		return nil, fmt.Errorf("%w: bad step %q", ErrProtocolError, block.Step.String())
	}
	progression, err := block.Progression.Float64()
	if err != nil {
		return nil, fmt.Errorf("%w: bad progression %q", ErrProtocolError, block.Progression.String())
	}

	info := &StepInfo{
		Question:    block.Question,
		Step:        int(step),
		Progression: progression,
	}
	if params.Identification != nil {
		info.Session = params.Identification.Session
		info.Signature = params.Identification.Signature
	}
	return info, nil
}

func parseGuess(body []byte) (*Guess, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v: %s", ErrProtocolError, err, truncate(string(body), 512))
	}
	if !strings.EqualFold(env.Completion, "OK") {
		return nil, fmt.Errorf("%w: guess fetch completion=%s", ErrProtocolError, env.Completion)
	}

	var params struct {
		Elements []struct {
			Element struct {
				ID          string      `json:"id"`
				Name        string      `json:"name"`
				Description string      `json:"description"`
				Pseudo      string      `json:"pseudo"`
				Ranking     json.Number `json:"ranking"`
				ImageURL    string      `json:"absolute_picture_path"`
			} `json:"element"`
		} `json:"elements"`
	}
	if err := json.Unmarshal(env.Parameters, &params); err != nil {
		return nil, fmt.Errorf("%w: %v: %s", ErrProtocolError, err, truncate(string(body), 512))
	}
	if len(params.Elements) == 0 {
		return nil, fmt.Errorf("%w: guess list empty", ErrProtocolError)
	}

	el := params.Elements[0].Element
	ranking, err := el.Ranking.Int64()
	if err != nil {
		ranking = 0
	}
	return &Guess{
		ID:          el.ID,
		Name:        el.Name,
		Description: el.Description,
		Pseudo:      el.Pseudo,
		Ranking:     int(ranking),
		ImageURL:    el.ImageURL,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
