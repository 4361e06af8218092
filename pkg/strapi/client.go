// Package strapi provides a client for the Strapi-compatible backend that
// stores data proposals and member records.
package strapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pubgrove/scholar-cli/internal/model"
)

// Client defines the backend operations the aggregation pipeline needs:
// read previously delivered URLs, write a new proposal, and patch member
// contact details discovered along the way.
type Client interface {
	// ExistingURLs returns the set of URLs already delivered for a member.
	// Any error degrades to an empty set at the call site.
	ExistingURLs(ctx context.Context, memberID string) (map[string]struct{}, error)
	// SubmitProposal writes a proposal and returns the created entry ID.
	SubmitProposal(ctx context.Context, proposal *model.Proposal) (*SubmitResult, error)
	// UpdateMember patches a member's contact details.
	UpdateMember(ctx context.Context, memberID string, details MemberDetails) error
	// Health probes backend reachability.
	Health(ctx context.Context) error
}

// SubmitResult is the acknowledgment for a stored proposal.
type SubmitResult struct {
	ID int `json:"id"`
}

// MemberDetails carries the directory-sourced fields for a member update.
type MemberDetails struct {
	Title string `json:"title,omitempty"`
	Room  string `json:"room,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for tests).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a backend client authenticated with a bearer token.
func NewClient(baseURL, token string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		token:   token,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) do(ctx context.Context, method, path string, payload any) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, eris.Wrap(err, "strapi: marshal payload")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, eris.Wrap(err, "strapi: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, eris.Wrap(err, "strapi: request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, eris.Wrap(err, "strapi: read response")
	}
	return respBody, resp.StatusCode, nil
}

// proposalEnvelope matches the Strapi create-entry wire shape.
type proposalEnvelope struct {
	Data proposalData `json:"data"`
}

type proposalData struct {
	Member      string            `json:"member,omitempty"`
	ScrapedData []model.Candidate `json:"scrapedData"`
}

func (c *httpClient) SubmitProposal(ctx context.Context, proposal *model.Proposal) (*SubmitResult, error) {
	payload := proposalEnvelope{
		Data: proposalData{
			Member:      proposal.MemberID,
			ScrapedData: proposal.Candidates,
		},
	}

	body, status, err := c.do(ctx, http.MethodPost, "/api/data-proposals", payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, eris.Errorf("strapi: submit proposal: status %d: %s", status, string(body))
	}

	var resp struct {
		Data SubmitResult `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "strapi: unmarshal submit response")
	}
	return &resp.Data, nil
}

func (c *httpClient) ExistingURLs(ctx context.Context, memberID string) (map[string]struct{}, error) {
	if memberID == "" {
		return map[string]struct{}{}, nil
	}

	query := url.Values{}
	query.Set("filters[member][documentId][$eq]", memberID)

	body, status, err := c.do(ctx, http.MethodGet, "/api/data-proposals?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("strapi: list proposals: status %d: %s", status, string(body))
	}

	var resp struct {
		Data []struct {
			ScrapedData []struct {
				URL string `json:"url"`
			} `json:"scrapedData"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "strapi: unmarshal proposals")
	}

	urls := make(map[string]struct{})
	for _, proposal := range resp.Data {
		for _, item := range proposal.ScrapedData {
			if item.URL != "" {
				urls[item.URL] = struct{}{}
			}
		}
	}
	return urls, nil
}

func (c *httpClient) UpdateMember(ctx context.Context, memberID string, details MemberDetails) error {
	if memberID == "" {
		return eris.New("strapi: update member: empty member id")
	}

	payload := map[string]any{"data": details}
	body, status, err := c.do(ctx, http.MethodPut, "/api/members/"+url.PathEscape(memberID), payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return eris.Errorf("strapi: update member: status %d: %s", status, string(body))
	}
	return nil
}

func (c *httpClient) Health(ctx context.Context) error {
	_, status, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return eris.Errorf("strapi: health: status %d", status)
	}
	return nil
}
