// Package scorer talks to the external scoring service that assigns one score
// per feature row.
package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfolio/advisor/internal/domain"
)

// ScoreRequest is the wire payload sent to the scoring service. The schema
// version lets the service reject rows built against a layout it was not
// trained on.
type ScoreRequest struct {
	SchemaVersion int         `json:"schema_version"`
	Columns       []string    `json:"columns"`
	Rows          [][]float64 `json:"rows"`
}

// ScoreResponse carries one score per submitted row, same order.
type ScoreResponse struct {
	Scores []float64 `json:"scores"`
}

// Client for the external scoring service.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new scorer client.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     log.With().Str("client", "scorer").Logger(),
	}
}

// Score submits the feature matrix and returns scores aligned with the input
// rows. Any transport, decoding, or contract failure surfaces as a
// ScorerUnavailableError so callers can map it uniformly.
func (c *Client) Score(ctx context.Context, req ScoreRequest) ([]float64, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &domain.ScorerUnavailableError{Cause: fmt.Errorf("failed to marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/score", bytes.NewReader(body))
	if err != nil {
		return nil, &domain.ScorerUnavailableError{Cause: fmt.Errorf("failed to build request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &domain.ScorerUnavailableError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &domain.ScorerUnavailableError{
			Cause: fmt.Errorf("scorer returned status %d: %s", resp.StatusCode, string(msg)),
		}
	}

	var decoded ScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &domain.ScorerUnavailableError{Cause: fmt.Errorf("failed to decode response: %w", err)}
	}

	if len(decoded.Scores) != len(req.Rows) {
		return nil, &domain.ScorerUnavailableError{
			Cause: fmt.Errorf("scorer returned %d scores for %d rows", len(decoded.Scores), len(req.Rows)),
		}
	}

	c.log.Debug().Int("rows", len(req.Rows)).Msg("Scored feature matrix")
	return decoded.Scores, nil
}

// Healthy reports whether the scoring service responds to its health probe.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
