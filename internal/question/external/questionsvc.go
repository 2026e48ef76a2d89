package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrNeedsGeneration signals the remote service has no stock for the request
// and expects an out-of-band generation step. Callers treat it as a fallback
// trigger, not a failure.
var ErrNeedsGeneration = errors.New("remote question service needs generation")

// QuestionServiceClient fetches question packs from the authoritative remote
// question service.
type QuestionServiceClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewQuestionServiceClient(baseURL, apiKey string, httpClient *http.Client) *QuestionServiceClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &QuestionServiceClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// FetchQuery keys a remote pack request. Session is a stable per-client
// session identifier, generated once and reused.
type FetchQuery struct {
	Category   string
	Difficulty string
	Count      int
	Mode       string
	Session    string
	UserID     string
}

// RemoteQuestion is the wire shape returned by the question service.
type RemoteQuestion struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt"`
	Choices       []string `json:"choices"`
	CorrectChoice int      `json:"correct_choice"`
	Category      string   `json:"category"`
	Difficulty    string   `json:"difficulty"`
	Explanation   string   `json:"explanation"`
}

type packResponse struct {
	Status    string           `json:"status"`
	Questions []RemoteQuestion `json:"questions"`
}

// Fetch requests a pack. A "needs_generation" status maps to
// ErrNeedsGeneration; any transport or non-2xx failure is returned as-is so
// the caller can fall through its tier chain.
func (c *QuestionServiceClient) Fetch(ctx context.Context, q FetchQuery) ([]RemoteQuestion, error) {
	if c.baseURL == "" {
		return nil, errors.New("question service not configured")
	}

	values := url.Values{}
	values.Set("category", q.Category)
	values.Set("count", fmt.Sprint(q.Count))
	values.Set("session", q.Session)
	if q.Difficulty != "" {
		values.Set("difficulty", q.Difficulty)
	}
	if q.Mode != "" {
		values.Set("mode", q.Mode)
	}
	if q.UserID != "" {
		values.Set("user", q.UserID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/packs?%s", c.baseURL, values.Encode()), nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("question service non-200: %d", resp.StatusCode)
	}

	var payload packResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Status == "needs_generation" {
		return nil, ErrNeedsGeneration
	}
	return payload.Questions, nil
}
