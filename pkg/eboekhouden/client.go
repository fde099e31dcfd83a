package eboekhouden

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ClientConfig represents the configuration for the E-Boekhouden API client.
type ClientConfig struct {
	APIURL     string
	APIToken   string
	Username   string
	Timeout    time.Duration // Default: 30 seconds
	MaxRetries int           // Default: 3
}

// Client is an E-Boekhouden REST API client.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiToken     string
	username     string
	sessionToken string
	maxRetries   int
	backoff      time.Duration
}

// NewClient creates a new E-Boekhouden API client.
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxRetries := config.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:    config.APIURL,
		apiToken:   config.APIToken,
		username:   config.Username,
		maxRetries: maxRetries,
		backoff:    500 * time.Millisecond,
	}
}

// SetSessionToken sets the session token for API requests.
func (c *Client) SetSessionToken(token string) {
	c.sessionToken = token
}

// CreateSession obtains a session token from the API token.
func (c *Client) CreateSession() (string, error) {
	sessionURL := fmt.Sprintf("%s/v1/session", c.baseURL)

	payload, err := json.Marshal(map[string]string{
		"accessToken": c.apiToken,
		"source":      c.username,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal session request: %w", err)
	}

	req, err := http.NewRequest("POST", sessionURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.doWithRetry(req, payload)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.parseError(resp)
	}

	var sessionResp SessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sessionResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	c.sessionToken = sessionResp.Token
	return c.sessionToken, nil
}

// ListMutations lists mutations with optional parameters.
func (c *Client) ListMutations(params map[string]string) ([]Mutation, error) {
	var mutResp MutationsResponse
	if err := c.getJSON("/v1/mutation", params, &mutResp); err != nil {
		return nil, err
	}
	return mutResp.Items, nil
}

// FetchAllMutations fetches all mutations in a date range with pagination.
func (c *Client) FetchAllMutations(dateFrom, dateTo string) ([]Mutation, error) {
	var allMutations []Mutation
	offset := 0
	limit := 500

	for {
		params := map[string]string{
			"dateFrom": dateFrom,
			"dateTo":   dateTo,
			"limit":    fmt.Sprintf("%d", limit),
			"offset":   fmt.Sprintf("%d", offset),
		}

		mutations, err := c.ListMutations(params)
		if err != nil {
			return nil, fmt.Errorf("failed to list mutations (offset=%d): %w", offset, err)
		}

		if len(mutations) == 0 {
			break
		}

		allMutations = append(allMutations, mutations...)

		if len(mutations) < limit {
			break
		}

		offset += limit
	}

	return allMutations, nil
}

// FetchRelation fetches a single relation by ID.
func (c *Client) FetchRelation(id int64) (*Relation, error) {
	var relResp RelationsResponse
	params := map[string]string{"id": fmt.Sprintf("%d", id)}
	if err := c.getJSON("/v1/relation", params, &relResp); err != nil {
		return nil, err
	}
	if len(relResp.Items) == 0 {
		return nil, nil
	}
	return &relResp.Items[0], nil
}

// FetchAllRelations fetches all relations with pagination.
func (c *Client) FetchAllRelations() ([]Relation, error) {
	var allRelations []Relation
	offset := 0
	limit := 500

	for {
		params := map[string]string{
			"limit":  fmt.Sprintf("%d", limit),
			"offset": fmt.Sprintf("%d", offset),
		}

		var relResp RelationsResponse
		if err := c.getJSON("/v1/relation", params, &relResp); err != nil {
			return nil, fmt.Errorf("failed to list relations (offset=%d): %w", offset, err)
		}

		if len(relResp.Items) == 0 {
			break
		}

		allRelations = append(allRelations, relResp.Items...)

		if len(relResp.Items) < limit {
			break
		}

		offset += limit
	}

	return allRelations, nil
}

// getJSON performs an authenticated GET request and decodes the JSON response.
func (c *Client) getJSON(path string, params map[string]string, out interface{}) error {
	queryParams := url.Values{}
	for k, v := range params {
		queryParams.Set(k, v)
	}

	endpoint := fmt.Sprintf("%s%s", c.baseURL, path)
	if len(queryParams) > 0 {
		endpoint = fmt.Sprintf("%s?%s", endpoint, queryParams.Encode())
	}

	req, err := http.NewRequest("GET", endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.sessionToken))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.doWithRetry(req, nil)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// doWithRetry executes a request, retrying transient failures with doubling
// backoff. Network errors and 5xx responses are transient; 4xx are terminal.
func (c *Client) doWithRetry(req *http.Request, body []byte) (*http.Response, error) {
	var lastErr error
	wait := c.backoff

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(wait)
			wait *= 2
		}

		if body != nil {
			req.Body = io.NopCloser(bytes.NewReader(body))
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("E-Boekhouden API error (status %d)", resp.StatusCode)
			resp.Body.Close()
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries, lastErr)
}

// parseError parses an error response from the E-Boekhouden API.
func (c *Client) parseError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("E-Boekhouden API error (status %d): failed to read error response", resp.StatusCode)
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return fmt.Errorf("E-Boekhouden API error (status %d): %s", resp.StatusCode, string(body))
	}

	if errResp.ErrorDescription != "" {
		return fmt.Errorf("E-Boekhouden API error: %s - %s", errResp.Error, errResp.ErrorDescription)
	}

	return fmt.Errorf("E-Boekhouden API error: %s", errResp.Error)
}
