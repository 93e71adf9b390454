// Package planner talks to the navigation stack's plan service over HTTP.
package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/inaiurai/fleetdispatch/internal/models"
)

// ErrEmptyPlan is returned when the planner answers with no poses.
var ErrEmptyPlan = errors.New("planner returned empty plan")

type planRequest struct {
	FrameID   string      `json:"frame_id"`
	Start     models.Pose `json:"start"`
	Goal      models.Pose `json:"goal"`
	Tolerance float64     `json:"tolerance"`
}

type planResponse struct {
	Poses []models.Pose `json:"poses"`
}

// Client posts plan requests to <BaseURL>/plan.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a Client whose HTTP calls are bounded by timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Plan returns the ordered route from start to goal. An empty route is an error.
func (c *Client) Plan(ctx context.Context, start, goal models.Pose, tolerance float64) ([]models.Pose, error) {
	body, err := json.Marshal(planRequest{FrameID: "map", Start: start, Goal: goal, Tolerance: tolerance})
	if err != nil {
		return nil, fmt.Errorf("marshal plan request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/plan", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create plan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call planner: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("planner returned status %d", resp.StatusCode)
	}
	var out planResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	if len(out.Poses) == 0 {
		return nil, ErrEmptyPlan
	}
	return out.Poses, nil
}
