package genapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTimeout = 60 * time.Second
	maxErrorBody   = 512
)

var tracer = otel.Tracer("github.com/jask/crystalgen/internal/genapi")

// Client talks to the generation service over HTTP/JSON.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		timeout: timeout,
		http:    &http.Client{},
		logger:  slog.Default(),
	}
}

func (c *Client) SetToken(token string) {
	c.token = strings.TrimSpace(token)
}

func (c *Client) SetHTTPClient(h *http.Client) {
	if h != nil {
		c.http = h
	}
}

func (c *Client) SetLogger(l *slog.Logger) {
	if l != nil {
		c.logger = l
	}
}

// BaseURL returns the service root, e.g. http://localhost:5000/api.
func (c *Client) BaseURL() string { return c.baseURL }

// Elements lists the element symbols the service accepts.
// Timeout: the client timeout; no retry.
func (c *Client) Elements(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "genapi.Elements", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, body, err := c.do(ctx, http.MethodGet, "/elements", nil)
	if err != nil {
		recordErr(span, err)
		return nil, err
	}
	if resp.StatusCode >= 300 {
		err := &StatusError{StatusCode: resp.StatusCode, Body: trimBody(body)}
		recordErr(span, err)
		return nil, err
	}
	var out elementsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		err = fmt.Errorf("%w: elements: %v", ErrMalformedResponse, err)
		recordErr(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("genapi.elements", len(out.Elements)))
	return out.Elements, nil
}

// Generate submits one generation request. A service-reported failure is
// returned as an envelope with Success=false and a nil error; err is non-nil
// only when the service could not be reached or the answer is unusable.
// Timeout: the client timeout; no retry.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	ctx, span := tracer.Start(ctx, "genapi.Generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int("crystal.spacegroup", req.SpaceGroup),
			attribute.Int("crystal.num_atoms", req.NumAtoms),
			attribute.Float64("crystal.temperature", req.Temperature),
			attribute.Int("crystal.elements", len(req.Composition)),
		))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(req)
	if err != nil {
		recordErr(span, err)
		return GenerateResponse{}, fmt.Errorf("genapi: encode request: %w", err)
	}
	resp, body, err := c.do(ctx, http.MethodPost, "/generate", payload)
	if err != nil {
		recordErr(span, err)
		return GenerateResponse{}, err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	var out GenerateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		if resp.StatusCode >= 300 {
			err := &StatusError{StatusCode: resp.StatusCode, Body: trimBody(body)}
			recordErr(span, err)
			return GenerateResponse{}, err
		}
		err = fmt.Errorf("%w: generate: %v", ErrMalformedResponse, err)
		recordErr(span, err)
		return GenerateResponse{}, err
	}
	if out.Success && resp.StatusCode >= 300 {
		out.Success = false
	}
	if !out.Success {
		span.SetStatus(codes.Error, out.Error)
	}
	span.SetAttributes(attribute.Bool("genapi.success", out.Success), attribute.String("crystal.formula", out.Formula))
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) (*http.Response, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, &TransportError{Op: method + " " + path, Err: err}
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Warn("generation service unreachable", "method", method, "path", path, "request_id", requestID, "error", err)
		return nil, nil, &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &TransportError{Op: "read " + path, Err: err}
	}
	c.logger.Debug("generation service call", "method", method, "path", path, "request_id", requestID,
		"status", resp.StatusCode, "bytes", len(body), "elapsed", time.Since(start))
	return resp, body, nil
}

func trimBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}

func recordErr(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
