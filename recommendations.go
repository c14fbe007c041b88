package viewsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Recommendation is one AI-generated land-management action.
type Recommendation struct {
	ID                    string    `json:"id,omitempty"`
	LocationID            string    `json:"location_id,omitempty"`
	Priority              string    `json:"priority"`
	Category              string    `json:"category"`
	ActionTitle           string    `json:"action_title"`
	ActionDescription     string    `json:"action_description"`
	UrgencyHours          int       `json:"urgency_hours"`
	ExpectedRiskReduction float64   `json:"expected_risk_reduction"`
	ExpectedCostUSD       float64   `json:"expected_cost_usd"`
	RecommendedSpecies    []Species `json:"recommended_species,omitempty"`
	Status                string    `json:"status,omitempty"`
	CreatedAt             string    `json:"created_at,omitempty"`
}

// Species is a plant species suggested by a recommendation.
type Species struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// RecommendationOption is a RecommendationClient option function
type RecommendationOption func(*RecommendationClient)

// RecommendationHTTPClient is an option for setting the HTTP client.
func RecommendationHTTPClient(client *http.Client) RecommendationOption {
	return func(c *RecommendationClient) {
		c.httpClient = client
	}
}

// RecommendationLogger is an option for setting the logger
func RecommendationLogger(logger *log.Logger) RecommendationOption {
	return func(c *RecommendationClient) {
		c.logger = logger.WithFields(log.Fields{"component": "recommendations"})
	}
}

// RecommendationClient talks to the recommendation-generation service. The
// service's response envelope has drifted across deployments, so decoding
// tries a fixed list of candidate shapes rather than assuming one.
type RecommendationClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Entry
}

// NewRecommendationClient returns a new RecommendationClient.
func NewRecommendationClient(baseURL string, opts ...RecommendationOption) *RecommendationClient {
	c := &RecommendationClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     log.WithFields(log.Fields{"component": "recommendations"}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Fetch returns the stored recommendations for a location.
func (c *RecommendationClient) Fetch(ctx context.Context, locationID string) ([]Recommendation, error) {
	url := fmt.Sprintf("%s/api/recommendations/%s", c.baseURL, locationID)
	return c.do(ctx, http.MethodGet, url)
}

// Generate asks the service to produce fresh recommendations for a location.
func (c *RecommendationClient) Generate(ctx context.Context, locationID string) ([]Recommendation, error) {
	url := fmt.Sprintf("%s/api/recommendations/generate/%s", c.baseURL, locationID)
	return c.do(ctx, http.MethodPost, url)
}

func (c *RecommendationClient) do(ctx context.Context, method, url string) ([]Recommendation, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recommendation request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read recommendation response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recommendation service returned status %d", resp.StatusCode)
	}

	recs, err := decodeRecommendations(body)
	if err != nil {
		return nil, err
	}

	c.logger.WithField("count", len(recs)).Debug("decoded recommendations")
	return recs, nil
}

// decodeRecommendations unwraps a recommendation list from whichever envelope
// the service responded with. Candidate paths are tried in priority order and
// the first array-typed match wins:
//
//	1. a bare top-level array
//	2. {"recommendations": [...]}
//	3. {"data": [...]}
//	4. {"data": {"recommendations": [...]}}
func decodeRecommendations(body []byte) ([]Recommendation, error) {
	for _, candidate := range candidateArrays(body) {
		var recs []Recommendation
		if err := json.Unmarshal(candidate, &recs); err == nil {
			return recs, nil
		}
	}
	return nil, fmt.Errorf("no recommendation list found in response")
}

func candidateArrays(body []byte) []json.RawMessage {
	var candidates []json.RawMessage

	if isJSONArray(body) {
		candidates = append(candidates, body)
	}

	var envelope struct {
		Recommendations json.RawMessage `json:"recommendations"`
		Data            json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return candidates
	}

	if isJSONArray(envelope.Recommendations) {
		candidates = append(candidates, envelope.Recommendations)
	}
	if isJSONArray(envelope.Data) {
		candidates = append(candidates, envelope.Data)
	}

	if len(envelope.Data) > 0 && !isJSONArray(envelope.Data) {
		var inner struct {
			Recommendations json.RawMessage `json:"recommendations"`
		}
		if err := json.Unmarshal(envelope.Data, &inner); err == nil && isJSONArray(inner.Recommendations) {
			candidates = append(candidates, inner.Recommendations)
		}
	}

	return candidates
}

func isJSONArray(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
