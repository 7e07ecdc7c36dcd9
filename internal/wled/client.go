// Package wled sends resolved pixel states to WLED controllers over their
// JSON HTTP API. It is the one place that knows the wire protocol; the
// resolver only ever sees the Gateway contract.
package wled

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/picklight/picklight/internal/light"
)

// Green is the highlight colour for active drawers.
var Green = [3]int{0, 255, 0}

// segment is one WLED segment definition in a /json/state payload.
type segment struct {
	ID    int      `json:"id"`
	Start int      `json:"start"`
	Stop  int      `json:"stop"` // exclusive, matching the WLED API
	On    bool     `json:"on"`
	Col   [][3]int `json:"col,omitempty"`
}

// statePayload is the full-state body posted to /json/state.
type statePayload struct {
	On       bool      `json:"on"`
	Segments []segment `json:"seg"`
}

// Client implements light.Gateway against real WLED controllers.
type Client struct {
	http   *http.Client
	log    *zap.Logger
	scheme string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each controller request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithLogger attaches a structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient builds a WLED gateway client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:   &http.Client{Timeout: 5 * time.Second},
		log:    zap.NewNop(),
		scheme: "http",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ light.Gateway = (*Client)(nil)

// Apply posts the full pixel state for one controller. Every declared
// drawer range becomes a WLED segment: active ranges light green, the rest
// switch off. A terminating zero-stop segment removes any segments beyond
// the declared set, so a layout that shrank cannot leave a stale light on.
func (c *Client) Apply(ctx context.Context, state light.ControllerState) error {
	payload := statePayload{On: true}
	for i, seg := range state.Segments {
		s := segment{
			ID:    i,
			Start: seg.Range.Start,
			Stop:  seg.Range.End(),
			On:    seg.Active,
		}
		if seg.Active {
			s.Col = [][3]int{Green}
		}
		payload.Segments = append(payload.Segments, s)
	}
	// WLED drops the zero-stop segment and everything above it; without the
	// terminator, unmentioned higher segments keep their old state.
	payload.Segments = append(payload.Segments, segment{ID: len(state.Segments), Stop: 0})

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize controller state: %w", err)
	}

	url := fmt.Sprintf("%s://%s/json/state", c.scheme, state.Endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", state.Endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug("applying pixel state",
		zap.String("endpoint", state.Endpoint),
		zap.Int("segments", len(payload.Segments)))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach controller %s: %w", state.Endpoint, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("controller %s rejected the state: HTTP %d", state.Endpoint, resp.StatusCode)
	}
	return nil
}
