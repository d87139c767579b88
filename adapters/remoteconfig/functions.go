// Package remoteconfig fetches named configuration documents.
package remoteconfig

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cyberauditpro/cyberaudit/ports"
)

// FunctionsClient invokes hosted edge functions that return configuration
// as JSON, e.g. POST {base}/functions/v1/get-walletconnect-config
type FunctionsClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ ports.ConfigBackend = (*FunctionsClient)(nil)

// NewFunctionsClient creates a client for the project at baseURL
func NewFunctionsClient(baseURL, apiKey string) *FunctionsClient {
	return &FunctionsClient{
		baseURL: strings.TrimRight(baseURL, "/") + "/functions/v1/",
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchConfig invokes the function called name and decodes its JSON body into out
func (c *FunctionsClient) FetchConfig(ctx context.Context, name string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+name, bytes.NewReader([]byte("{}")))
	if err != nil {
		return fmt.Errorf("build config request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch config %s: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read config %s: %w", name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch config %s: status %d: %s", name, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode config %s: %w", name, err)
	}
	return nil
}
