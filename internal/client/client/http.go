package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/imagegen/internal/client/models"
	"github.com/dmitrijs2005/imagegen/internal/common"
	"github.com/dmitrijs2005/imagegen/internal/logging"
	"github.com/google/uuid"
)

var _ Client = (*HTTPClient)(nil)

// HTTPClient talks to the backend over HTTP/JSON.
//
// The bearer token is read once at the start of every call, so SetToken and
// ClearToken never affect requests already on the wire.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	log     logging.Logger

	mu    sync.RWMutex
	token string
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the default http.Client. The client should not set
// a Timeout: deadlines are the caller's business and come through ctx.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.log = l }
}

func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		log:     logging.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *HTTPClient) ClearToken() { c.SetToken("") }

func (c *HTTPClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *HTTPClient) WithToken(token string) Client {
	return &HTTPClient{baseURL: c.baseURL, http: c.http, log: c.log, token: token}
}

// wire shapes

type ackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type dataResponse struct {
	ackResponse
	Data      json.RawMessage `json:"data,omitempty"`
	Recommend string          `json:"recommend,omitempty"`
}

type identityResponse struct {
	ackResponse
	Data models.Identity `json:"data"`
}

type promptsResponse struct {
	ackResponse
	Prompts []models.Prompt `json:"prompts"`
	Count   int             `json:"count"`
}

type invokeResponse struct {
	ackResponse
	Seed           int64                `json:"seed"`
	PositivePrompt string               `json:"positive_prompt"`
	NegativePrompt string               `json:"negative_prompt"`
	Images         []models.ImageResult `json:"images"`
}

type targetRequest struct {
	Target int `json:"target"`
}

func (a ackResponse) ack() models.Ack { return models.Ack{Success: a.Success, Message: a.Message} }

func (a ackResponse) err() error {
	if a.Success {
		return nil
	}
	return &APIError{Message: a.Message}
}

func (c *HTTPClient) GetIdentity(ctx context.Context) (*models.Identity, error) {
	var resp identityResponse
	if err := c.do(ctx, http.MethodGet, "/info", nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *HTTPClient) ListPrompts(ctx context.Context) ([]models.Prompt, error) {
	var resp promptsResponse
	if err := c.do(ctx, http.MethodGet, "/prompts", nil, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	if resp.Prompts == nil {
		return []models.Prompt{}, nil
	}
	return resp.Prompts, nil
}

func (c *HTTPClient) AddPrompt(ctx context.Context, in models.PromptInput) (models.Ack, error) {
	if strings.TrimSpace(in.Positive) == "" {
		return models.Ack{}, common.ErrEmptyPrompt
	}
	var resp ackResponse
	if err := c.do(ctx, http.MethodPost, "/prompts", in, &resp); err != nil {
		return models.Ack{}, err
	}
	return resp.ack(), resp.err()
}

func (c *HTTPClient) UpdatePrompt(ctx context.Context, index int, in models.PromptInput) (models.Ack, error) {
	if index < 0 {
		return models.Ack{}, common.ErrInvalidIndex
	}
	if strings.TrimSpace(in.Positive) == "" {
		return models.Ack{}, common.ErrEmptyPrompt
	}
	var resp ackResponse
	if err := c.do(ctx, http.MethodPut, promptPath(index), in, &resp); err != nil {
		return models.Ack{}, err
	}
	return resp.ack(), resp.err()
}

func (c *HTTPClient) DeletePrompt(ctx context.Context, index int) (models.Ack, error) {
	if index < 0 {
		return models.Ack{}, common.ErrInvalidIndex
	}
	var resp ackResponse
	if err := c.do(ctx, http.MethodDelete, promptPath(index), nil, &resp); err != nil {
		return models.Ack{}, err
	}
	return resp.ack(), resp.err()
}

func promptPath(index int) string { return "/prompts/" + strconv.Itoa(index) }

// GenerateImage submits req and waits for the images. Cancelling ctx aborts
// the request and yields ErrCancelled.
func (c *HTTPClient) GenerateImage(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error) {
	if strings.TrimSpace(req.Positive) == "" {
		return nil, common.ErrEmptyPrompt
	}
	var resp invokeResponse
	if err := c.do(ctx, http.MethodPost, "/invoke", req, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	images := resp.Images
	if images == nil {
		images = []models.ImageResult{}
	}
	return &models.GenerationResult{
		Seed:       resp.Seed,
		Positive:   resp.PositivePrompt,
		Negative:   resp.NegativePrompt,
		Images:     images,
		ReceivedAt: time.Now(),
	}, nil
}

func (c *HTTPClient) SetReservedInstances(ctx context.Context, target int) (*models.ReservedInstancesAck, error) {
	if target != models.ReservedOff && target != models.ReservedOn {
		return nil, common.ErrInvalidTarget
	}
	var resp dataResponse
	if err := c.do(ctx, http.MethodPost, "/reserved-instances", targetRequest{Target: target}, &resp); err != nil {
		return nil, err
	}
	out := &models.ReservedInstancesAck{Ack: resp.ack(), Recommend: resp.Recommend}
	if len(resp.Data) > 0 && string(resp.Data) != "null" {
		// data is echoed back as an object; anything else is dropped
		var m map[string]any
		if json.Unmarshal(resp.Data, &m) == nil {
			out.Data = m
		}
	}
	return out, resp.err()
}

// GetReservedInstancesStatus returns 0 or 1. Any positive count is
// reported as 1.
func (c *HTTPClient) GetReservedInstancesStatus(ctx context.Context) (int, error) {
	var resp dataResponse
	if err := c.do(ctx, http.MethodGet, "/reserved-instances", nil, &resp); err != nil {
		return 0, err
	}
	if err := resp.err(); err != nil {
		return 0, err
	}
	var n float64
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return 0, fmt.Errorf("%w: reserved instances missing", ErrDataFormat)
	}
	if err := json.Unmarshal(resp.Data, &n); err != nil {
		return 0, fmt.Errorf("%w: reserved instances %s", ErrDataFormat, resp.Data)
	}
	switch {
	case n >= 1:
		return models.ReservedOn, nil
	case n == 0:
		return models.ReservedOff, nil
	}
	return 0, fmt.Errorf("%w: reserved instances %v", ErrDataFormat, n)
}

// GetLogs returns the current log chunk; an absent chunk is "".
func (c *HTTPClient) GetLogs(ctx context.Context) (string, error) {
	var resp dataResponse
	if err := c.do(ctx, http.MethodGet, "/logs", nil, &resp); err != nil {
		return "", err
	}
	if err := resp.err(); err != nil {
		return "", err
	}
	return optionalString(resp.Data)
}

// GetLatestImage returns the URL of the most recent image, or "" when the
// backend has none.
func (c *HTTPClient) GetLatestImage(ctx context.Context) (string, error) {
	var resp dataResponse
	if err := c.do(ctx, http.MethodGet, "/latest-pic", nil, &resp); err != nil {
		return "", err
	}
	if err := resp.err(); err != nil {
		return "", err
	}
	return optionalString(resp.Data)
}

// GetCoupons returns the remaining balance. The backend sends either a
// number or a numeric string.
func (c *HTTPClient) GetCoupons(ctx context.Context) (float64, error) {
	var resp dataResponse
	if err := c.do(ctx, http.MethodGet, "/coupons", nil, &resp); err != nil {
		return 0, err
	}
	if err := resp.err(); err != nil {
		return 0, err
	}
	return ParseBalance(resp.Data)
}

// ParseBalance decodes a coupon balance given as a JSON number or a JSON
// string holding a number. Everything else is ErrDataFormat.
func ParseBalance(raw json.RawMessage) (float64, error) {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil && len(raw) > 0 && string(raw) != "null" {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("%w: balance %s", ErrDataFormat, raw)
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("%w: balance %q", ErrDataFormat, s)
	}
	return n, nil
}

func optionalString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %s", ErrDataFormat, raw)
	}
	return s, nil
}

// do sends one request and decodes a 2xx JSON body into out.
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	token := c.Token()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(common.RequestIDHeader, reqID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeader, "Bearer "+token)
	}

	log := c.log.With("request_id", reqID, "method", method, "path", path)
	if token != "" {
		log = log.With("token", common.MaskToken(token))
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		err = transportError(ctx, err)
		log.Debug(ctx, "request failed", "error", err)
		return err
	}
	defer resp.Body.Close()

	log.Debug(ctx, "response", "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return transportError(ctx, err)
		}
		return fmt.Errorf("%w: %w", ErrDataFormat, err)
	}
	return nil
}

func transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled) {
		return ErrCancelled
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
