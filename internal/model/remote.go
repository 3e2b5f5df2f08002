package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avi5049/cardio-risk/internal/domain"
)

// RemoteScorer calls an external inference server that hosts the frozen model.
type RemoteScorer struct {
	serviceURL string
	httpClient *http.Client
}

type remoteRequest struct {
	Features     []float64 `json:"features"`
	FeatureNames []string  `json:"feature_names"`
}

type remoteResponse struct {
	Probability *float64 `json:"probability"`
}

// NewRemoteScorer creates a scorer for the given base URL.
func NewRemoteScorer(serviceURL string, timeout time.Duration) *RemoteScorer {
	return &RemoteScorer{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Score posts the feature vector and returns the positive-class probability.
func (s *RemoteScorer) Score(ctx context.Context, x []float64) (float64, error) {
	body, err := json.Marshal(remoteRequest{Features: x, FeatureNames: domain.FeatureNames[:]})
	if err != nil {
		return 0, fmt.Errorf("remote scorer: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/predict", s.serviceURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("remote scorer: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("remote scorer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("remote scorer: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("remote scorer: decode response: %w", err)
	}
	if out.Probability == nil {
		return 0, fmt.Errorf("remote scorer: response has no probability")
	}
	return *out.Probability, nil
}

// Health checks that the inference server answers.
func (s *RemoteScorer) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.serviceURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("remote scorer: create health request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote scorer: health check failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote scorer: health check returned status %d", resp.StatusCode)
	}
	return nil
}
