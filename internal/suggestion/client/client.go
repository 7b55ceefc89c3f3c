// Package client calls the remote grievance classifier over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"civicchain/internal/suggestion/models"
)

const maxResponseBytes = 64 << 10

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type textRequest struct {
	Text string `json:"text"`
}

type departmentResponse struct {
	SuggestedDepartment string  `json:"suggestedDepartment"`
	Confidence          float64 `json:"confidence"`
	Reasoning           string  `json:"reasoning"`
	Category            string  `json:"category"`
}

type priorityResponse struct {
	Priority       string `json:"priority"`
	Reasoning      string `json:"reasoning"`
	AffectedPeople string `json:"affectedPeople"`
	Timeframe      string `json:"timeframe"`
}

func (c *Client) SuggestDepartment(ctx context.Context, text string) (*models.DepartmentSuggestion, error) {
	var out departmentResponse
	if err := c.post(ctx, "/v1/suggest-department", text, &out); err != nil {
		return nil, err
	}
	if out.SuggestedDepartment == "" {
		return nil, fmt.Errorf("classifier returned no department")
	}
	return &models.DepartmentSuggestion{
		Department: out.SuggestedDepartment,
		Category:   out.Category,
		Confidence: out.Confidence,
		Reasoning:  out.Reasoning,
		Source:     models.SourceClassifier,
	}, nil
}

func (c *Client) AnalyzePriority(ctx context.Context, text string) (*models.PriorityAnalysis, error) {
	var out priorityResponse
	if err := c.post(ctx, "/v1/analyze-priority", text, &out); err != nil {
		return nil, err
	}
	if out.Priority == "" {
		return nil, fmt.Errorf("classifier returned no priority")
	}
	return &models.PriorityAnalysis{
		Priority:       strings.ToLower(out.Priority),
		Reasoning:      out.Reasoning,
		AffectedPeople: out.AffectedPeople,
		Timeframe:      out.Timeframe,
		Source:         models.SourceClassifier,
	}, nil
}

func (c *Client) post(ctx context.Context, path, text string, out any) error {
	body, err := json.Marshal(textRequest{Text: text})
	if err != nil {
		return fmt.Errorf("marshal classifier request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build classifier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("classifier request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode classifier response: %w", err)
	}
	return nil
}
