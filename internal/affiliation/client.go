// Package affiliation is the client for the game universe's public API:
// batch character affiliation, character existence and corporation or
// alliance tickers. It holds no cache; every call goes upstream.
package affiliation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"corpauth/internal/affiliation/metrics"
	id "corpauth/pkg/domain"
	"corpauth/pkg/platform/circuit"
)

const (
	opAffiliation = "affiliation"
	opCharacter   = "character"
	opTicker      = "ticker"

	maxResponseBytes = 1 << 20
)

// Client calls the affiliation source. It is safe for concurrent use.
type Client struct {
	baseURL    string
	datasource string
	userAgent  string
	timeout    time.Duration
	maxBatch   int

	http    *http.Client
	breaker *circuit.Breaker
	metrics *metrics.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithDatasource sets the datasource query parameter sent on every call.
func WithDatasource(ds string) Option {
	return func(cl *Client) { cl.datasource = ds }
}

func WithUserAgent(ua string) Option {
	return func(cl *Client) { cl.userAgent = ua }
}

// WithTimeout bounds each upstream call.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// WithMaxBatch sets the largest accepted affiliation lookup.
func WithMaxBatch(n int) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.maxBatch = n
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *Client) { cl.breaker = b }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		if logger != nil {
			cl.logger = logger
		}
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		datasource: "tranquility",
		userAgent:  "corpauth",
		timeout:    10 * time.Second,
		maxBatch:   20,
		http:       &http.Client{},
		breaker:    circuit.New("affiliation"),
		tracer:     otel.Tracer("corpauth/affiliation"),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxBatch is the largest number of ids LookupAffiliations accepts.
func (c *Client) MaxBatch() int { return c.maxBatch }

type affiliationEntry struct {
	CharacterID   int64 `json:"character_id"`
	CorporationID int64 `json:"corporation_id"`
	AllianceID    int64 `json:"alliance_id"`
}

// LookupAffiliations resolves the current affiliation of each id. Characters
// that no longer exist are absent from the result, which may therefore be
// shorter than ids. Result order is unspecified.
func (c *Client) LookupAffiliations(ctx context.Context, ids []id.CharacterID) ([]Affiliation, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > c.maxBatch {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(ids), c.maxBatch)
	}
	c.metrics.ObserveBatchSize(len(ids))

	raw := make([]int64, len(ids))
	for i, cid := range ids {
		raw[i] = int64(cid)
	}
	body, err := json.Marshal(raw)
	if err != nil {
		return nil, NewSourceError(ErrorInternal, opAffiliation, "encode request", err)
	}

	var entries []affiliationEntry
	status, err := c.do(ctx, opAffiliation, http.MethodPost, "/characters/affiliation/", body, &entries,
		attribute.Int("batch.size", len(ids)))
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, statusError(opAffiliation, status)
	}

	out := make([]Affiliation, 0, len(entries))
	for _, e := range entries {
		if e.CharacterID <= 0 || e.CorporationID <= 0 {
			return nil, NewSourceError(ErrorBadData, opAffiliation,
				fmt.Sprintf("entry missing ids: character=%d corporation=%d", e.CharacterID, e.CorporationID), nil)
		}
		out = append(out, Affiliation{
			CharacterID:   id.CharacterID(e.CharacterID),
			CorporationID: id.CorporationID(e.CorporationID),
			AllianceID:    id.AllianceID(e.AllianceID),
		})
	}
	return out, nil
}

// CharacterExists reports whether the character record still exists.
func (c *Client) CharacterExists(ctx context.Context, characterID id.CharacterID) (bool, error) {
	var body struct {
		Name  string `json:"name"`
		Error string `json:"error"`
	}
	path := "/characters/" + characterID.String() + "/"
	status, err := c.do(ctx, opCharacter, http.MethodGet, path, nil, &body,
		attribute.Int64("character.id", int64(characterID)))
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusOK:
		return body.Error == "", nil
	case http.StatusNotFound, http.StatusGone:
		return false, nil
	default:
		return false, statusError(opCharacter, status)
	}
}

// LookupTicker returns the short ticker of a corporation or alliance.
func (c *Client) LookupTicker(ctx context.Context, kind TickerKind, entityID int64) (string, error) {
	var path string
	switch kind {
	case KindCorporation:
		path = "/corporations/" + strconv.FormatInt(entityID, 10) + "/"
	case KindAlliance:
		path = "/alliances/" + strconv.FormatInt(entityID, 10) + "/"
	default:
		return "", NewSourceError(ErrorInternal, opTicker, "unknown ticker kind "+string(kind), nil)
	}

	var body struct {
		Ticker string `json:"ticker"`
	}
	status, err := c.do(ctx, opTicker, http.MethodGet, path, nil, &body,
		attribute.String("entity.kind", string(kind)),
		attribute.Int64("entity.id", entityID))
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", statusError(opTicker, status)
	}
	if body.Ticker == "" {
		return "", NewSourceError(ErrorBadData, opTicker, "empty ticker", nil)
	}
	return body.Ticker, nil
}

// do performs one call under the breaker and decodes a 200 body into out.
// Non-200 statuses are returned without error so callers can interpret them.
func (c *Client) do(ctx context.Context, op, method, path string, body []byte, out any, attrs ...attribute.KeyValue) (status int, err error) {
	ctx, span := c.tracer.Start(ctx, "affiliation."+op, trace.WithAttributes(attrs...))
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(GetCategory(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.SetAttributes(attribute.Int("http.status_code", status))
		span.End()
		c.metrics.ObserveCall(op, outcome, time.Since(start))
	}()

	if !c.breaker.Allow() {
		return 0, NewSourceError(ErrorUpstreamOutage, op, "circuit open", nil)
	}

	status, err = c.roundTrip(ctx, op, method, path, body, out)
	if err == nil && upstreamUnhealthy(status) {
		err = statusError(op, status)
	}
	c.record(ctx, err)
	return status, err
}

// upstreamUnhealthy reports statuses that count against the breaker. 404 and
// 410 are answers, not failures.
func upstreamUnhealthy(status int) bool {
	return status >= 500 || status == 420 || status == http.StatusTooManyRequests
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, body []byte, out any) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + path + "?" + url.Values{"datasource": {c.datasource}}.Encode()
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, NewSourceError(ErrorInternal, op, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, transportError(ctx, op, err)
	}

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return resp.StatusCode, NewSourceError(ErrorBadData, op, "decode response", err)
	}
	return resp.StatusCode, nil
}

// record feeds the breaker. Only failures that indicate an unhealthy
// upstream count against it.
func (c *Client) record(ctx context.Context, err error) {
	var change circuit.StateChange
	if err != nil && IsRetryable(err) {
		_, change = c.breaker.RecordFailure()
	} else {
		_, change = c.breaker.RecordSuccess()
	}
	if change.Opened {
		c.metrics.SetCircuitOpen(true)
		c.logger.WarnContext(ctx, "affiliation source circuit opened", "breaker", c.breaker.Name())
	}
	if change.Closed {
		c.metrics.SetCircuitOpen(false)
		c.logger.InfoContext(ctx, "affiliation source circuit closed", "breaker", c.breaker.Name())
	}
}

func transportError(ctx context.Context, op string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return NewSourceError(ErrorTimeout, op, "request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return NewSourceError(ErrorInternal, op, "request cancelled", err)
	}
	return NewSourceError(ErrorUpstreamOutage, op, "transport failure", err)
}

// statusError maps a non-200 status. 420 is the upstream's error-limit status.
func statusError(op string, status int) error {
	msg := fmt.Sprintf("unexpected status %d", status)
	switch {
	case status == http.StatusNotFound || status == http.StatusGone:
		return NewSourceError(ErrorNotFound, op, msg, nil)
	case status == 420 || status == http.StatusTooManyRequests:
		return NewSourceError(ErrorRateLimited, op, msg, nil)
	case status >= 500:
		return NewSourceError(ErrorUpstreamOutage, op, msg, nil)
	default:
		return NewSourceError(ErrorBadData, op, msg, nil)
	}
}
