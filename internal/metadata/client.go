package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sagoresarker/edge-speed-compare/internal/models"
)

// Client asks a running service's /api/metadata route instead of resolving
// locally.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultDNSTimeout + DefaultSizeTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type metadataEnvelope struct {
	Success bool            `json:"success"`
	Data    models.Metadata `json:"data"`
	Error   string          `json:"error"`
}

func (c *Client) Resolve(ctx context.Context, target string) (models.Metadata, error) {
	endpoint := c.baseURL + "/api/metadata?url=" + url.QueryEscape(target)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Metadata{}, fmt.Errorf("build metadata request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Metadata{}, fmt.Errorf("metadata request: %w", err)
	}
	defer resp.Body.Close()

	var env metadataEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return models.Metadata{}, fmt.Errorf("decode metadata response: %w", err)
	}
	if !env.Success {
		return models.Metadata{}, fmt.Errorf("metadata service: %s (status %d)", env.Error, resp.StatusCode)
	}
	return env.Data, nil
}
