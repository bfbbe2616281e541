package devicetest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ethereum-optimism/optimism/op-service/client"
	"github.com/ethereum/go-ethereum/log"
)

// maxManifestBytes bounds the manifest body that is read
const maxManifestBytes = 4 << 20

// Manifest is the JSON document describing the served artifact
type Manifest struct {
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
	SDK  string `json:"sdkVersion,omitempty"`
}

// HTTPManifestFetcher fetches manifests over HTTP
type HTTPManifestFetcher struct {
	Platform string // Sent as the Exponent-Platform header when set
	Log      log.Logger
}

// Fetch downloads and decodes the manifest at url
func (f *HTTPManifestFetcher) Fetch(ctx context.Context, url string) (*Manifest, error) {
	logger := f.Log
	if logger == nil {
		logger = log.NewLogger(log.DiscardHandler())
	}

	headers := http.Header{}
	headers.Set("Accept", "application/json")
	if f.Platform != "" {
		headers.Set("Exponent-Platform", f.Platform)
	}

	resp, err := client.NewBasicHTTPClient(url, logger).Get(ctx, "", nil, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manifest from %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("manifest request to %s returned %s", url, resp.Status)
	}
	return ParseManifest(body)
}

// ParseManifest decodes a manifest body
func ParseManifest(body []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// ValidateManifest fails unless the manifest name is exactly expected
func ValidateManifest(m *Manifest, expected string) error {
	if m == nil {
		return &ManifestError{Expected: expected}
	}
	if m.Name != expected {
		return &ManifestError{Expected: expected, Got: m.Name}
	}
	return nil
}
