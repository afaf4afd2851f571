package history

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sanspareilsmyn/historylens/internal/config"
	"github.com/sanspareilsmyn/historylens/internal/message"
)

// TimeFormat is the timestamp layout used in request paths and query values.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

const maxResponseBytes = 64 << 20

// Client talks to a Home Assistant style REST API. It implements series.HistorySource.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New builds a client from cfg. A non-positive RequestsPerSecond disables rate limiting.
func New(cfg config.HistoryConfig, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, cfg.BaseURL)
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	logger.Info("History client created",
		zap.String("base_url", u.Redacted()),
		zap.Duration("timeout", cfg.Timeout),
		zap.Float64("requests_per_second", cfg.RequestsPerSecond),
		zap.Bool("token_set", cfg.Token != ""),
	)
	return &Client{
		baseURL: u,
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}, nil
}

// PeriodURL builds the history/period request for one entity. A zero start
// leaves the period open (the host applies its default), a zero end omits end_time.
func (c *Client) PeriodURL(entityID string, start, end time.Time, skipInitialState bool) string {
	segments := []string{"api", "history", "period"}
	if !start.IsZero() {
		segments = append(segments, start.UTC().Format(TimeFormat))
	}
	u := c.baseURL.JoinPath(segments...)

	q := url.Values{}
	q.Set("filter_entity_id", entityID)
	if !end.IsZero() {
		q.Set("end_time", end.UTC().Format(TimeFormat))
	}
	if skipInitialState {
		q.Set("skip_initial_state", "")
	}
	q.Set("minimal_response", "")
	q.Set("no_attributes", "")
	u.RawQuery = q.Encode()
	return u.String()
}

// Fetch returns the observations of entityID between start and end in time order.
func (c *Client) Fetch(ctx context.Context, entityID string, start, end time.Time, skipInitialState bool) ([]message.Observation, error) {
	target := c.PeriodURL(entityID, start, end, skipInitialState)
	body, status, err := c.get(ctx, target)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: %d from %s: %s", ErrUnexpectedStatus, status, redact(target), message.Snippet(string(body), 120))
	}

	observations, err := message.ParseHistoryJSON(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeResponse, err)
	}
	c.logger.Sugar().Debugw("History fetched",
		"entity_id", entityID,
		"start", start,
		"end", end,
		"skip_initial_state", skipInitialState,
		"observations", len(observations),
	)
	return observations, nil
}

// State returns the current host state of entityID, or nil when the host does not know it.
func (c *Client) State(ctx context.Context, entityID string) (*message.EntityState, error) {
	target := c.baseURL.JoinPath("api", "states", entityID).String()
	body, status, err := c.get(ctx, target)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		c.logger.Debug("Entity unknown to host", zap.String("entity_id", entityID))
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %d from %s: %s", ErrUnexpectedStatus, status, redact(target), message.Snippet(string(body), 120))
	}

	st, err := message.ParseStateJSON(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeResponse, err)
	}
	return st, nil
}

func (c *Client) get(ctx context.Context, target string) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrHistoryRequest, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrHistoryRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrHistoryRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: reading body: %w", ErrHistoryRequest, err)
	}
	return body, resp.StatusCode, nil
}

func redact(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	return u.Redacted()
}
