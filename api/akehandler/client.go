package akehandler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pqops/ake-orchestrator/interfaces"
)

// Client talks to a running orchestrator over its inbound HTTP surface.
type Client struct {
	// ServerAddr is the base URL of the orchestrator.
	ServerAddr string

	// HTTPClient is used for all requests; defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// SelectAkeRequest is the request body for SelectAke. Zero values are
// omitted so the server applies its defaults.
type SelectAkeRequest struct {
	PayloadHintBytes   int64  `json:"payloadHintBytes,omitempty"`
	PolicyPreferredSig string `json:"policyPreferredSig,omitempty"`
	Level              string `json:"level,omitempty"`
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// Health fetches the orchestrator's composed backend health report.
func (c *Client) Health(ctx context.Context) (*interfaces.HealthReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ServerAddr+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("could not initialize request: %w", err)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request health endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("health endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var report interfaces.HealthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("could not parse health response: %w", err)
	}
	return &report, nil
}

// SelectAke runs one AKE round trip through the orchestrator. A 502 comes
// back as an error carrying the server's detail string.
func (c *Client) SelectAke(ctx context.Context, request SelectAkeRequest) (*interfaces.AkeResult, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("could not encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ServerAddr+"/select/ake", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not initialize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request select/ake endpoint: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read select/ake response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("%s: %s", errResp.Error, errResp.Detail)
		}
		return nil, fmt.Errorf("select/ake endpoint returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result interfaces.AkeResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("could not parse select/ake response: %w", err)
	}
	return &result, nil
}
