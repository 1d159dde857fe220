package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/coho-storage/blobwarden/core"
)

var _ Client = (*HTTPClient)(nil)

type HTTPConfig struct {
	// Publisher receives writes and serves provider listings.
	Publisher string
	Timeout   time.Duration
}

func NewHTTP(cfg HTTPConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPClient{
		publisher: cfg.Publisher,
		hc: &http.Client{
			Timeout: timeout,
		},
	}
}

type HTTPClient struct {
	publisher string
	hc        *http.Client
}

type writeResp struct {
	BlobID string `json:"blobId"`
}

type providersResp struct {
	Providers []string `json:"providers"`
}

func (c *HTTPClient) Write(ctx context.Context, data []byte) (core.BlobID, error) {
	u, err := url.JoinPath(c.publisher, "v1", "blobs")
	if err != nil {
		return "", fmt.Errorf("join publisher url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("construct write request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("write blob: unexpected status %s", resp.Status)
	}

	var wr writeResp
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return "", fmt.Errorf("decode write response: %w", err)
	}

	blobID, err := core.ParseBlobID(wr.BlobID)
	if err != nil {
		return "", fmt.Errorf("write response: %w", err)
	}

	log.Debugw("blob written", "blob", blobID)
	return blobID, nil
}

func (c *HTTPClient) ReadFrom(ctx context.Context, endpoint string, blobID core.BlobID) ([]byte, error) {
	u, err := url.JoinPath(endpoint, "v1", "blobs", blobID.String())
	if err != nil {
		return nil, fmt.Errorf("join endpoint url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("construct read request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("read blob from %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("read blob from %s: unexpected status %s", endpoint, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read blob body from %s: %w", endpoint, err)
	}

	return data, nil
}

func (c *HTTPClient) Providers(ctx context.Context, blobID core.BlobID) ([]string, error) {
	u, err := url.JoinPath(c.publisher, "v1", "blobs", blobID.String(), "providers")
	if err != nil {
		return nil, fmt.Errorf("join publisher url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("construct providers request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list providers: unexpected status %s", resp.Status)
	}

	var pr providersResp
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode providers response: %w", err)
	}

	return pr.Providers, nil
}
