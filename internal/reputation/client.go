// File: internal/reputation/client.go
package reputation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/smishguard/api/schemas"
)

// ErrOracleStatus wraps a non-200 answer from the oracle.
var ErrOracleStatus = errors.New("unexpected reputation oracle status")

// maxResponseBytes caps how much of an oracle answer is read.
const maxResponseBytes = 4 << 20

// HTTPDoer is the part of an HTTP client the oracle client needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// -- Wire format (Safe Browsing v4 threatMatches:find) --

type findRequest struct {
	Client     clientInfo `json:"client"`
	ThreatInfo threatInfo `json:"threatInfo"`
}

type clientInfo struct {
	ClientID      string `json:"clientId"`
	ClientVersion string `json:"clientVersion"`
}

type threatInfo struct {
	ThreatTypes      []schemas.ThreatType `json:"threatTypes"`
	PlatformTypes    []string             `json:"platformTypes"`
	ThreatEntryTypes []string             `json:"threatEntryTypes"`
	ThreatEntries    []threatEntry        `json:"threatEntries"`
}

type threatEntry struct {
	URL string `json:"url"`
}

type findResponse struct {
	Matches []wireMatch `json:"matches"`
}

type wireMatch struct {
	ThreatType      schemas.ThreatType `json:"threatType"`
	PlatformType    string             `json:"platformType"`
	ThreatEntryType string             `json:"threatEntryType"`
	Threat          threatEntry        `json:"threat"`
	CacheDuration   string             `json:"cacheDuration"`
}

// ClientOptions configures the oracle client.
type ClientOptions struct {
	Endpoint      string
	APIKey        string
	ClientID      string
	ClientVersion string
}

// Client talks to the reputation oracle. It performs exactly one POST per
// call and knows nothing about caching.
type Client struct {
	opts   ClientOptions
	http   HTTPDoer
	logger *zap.Logger
}

// NewClient creates an oracle client.
func NewClient(opts ClientOptions, httpClient HTTPDoer, logger *zap.Logger) (*Client, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("http client cannot be nil")
	}
	if _, err := url.Parse(opts.Endpoint); err != nil || opts.Endpoint == "" {
		return nil, fmt.Errorf("invalid oracle endpoint %q", opts.Endpoint)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{opts: opts, http: httpClient, logger: logger.Named("oracle")}, nil
}

// Configured reports whether an API key is available.
func (c *Client) Configured() bool { return c.opts.APIKey != "" }

// FindThreatMatches looks every URL up in a single request and returns the
// matches. An empty slice means no URL is known to be dangerous.
func (c *Client) FindThreatMatches(ctx context.Context, urls []string) ([]schemas.ThreatMatch, error) {
	payload, err := json.Marshal(c.buildRequest(urls))
	if err != nil {
		return nil, fmt.Errorf("failed to encode lookup request: %w", err)
	}

	endpoint, err := url.Parse(c.opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid oracle endpoint: %w", err)
	}
	q := endpoint.Query()
	q.Set("key", c.opts.APIKey)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read lookup response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Reputation oracle returned an error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncate(body, 256)))
		return nil, fmt.Errorf("%w: %d", ErrOracleStatus, resp.StatusCode)
	}

	var decoded findResponse
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, fmt.Errorf("failed to decode lookup response: %w", err)
		}
	}

	matches := make([]schemas.ThreatMatch, 0, len(decoded.Matches))
	for _, m := range decoded.Matches {
		matches = append(matches, schemas.ThreatMatch{
			URL:           m.Threat.URL,
			ThreatType:    m.ThreatType,
			PlatformType:  m.PlatformType,
			CacheDuration: m.CacheDuration,
		})
	}
	return matches, nil
}

func (c *Client) buildRequest(urls []string) findRequest {
	entries := make([]threatEntry, len(urls))
	for i, u := range urls {
		entries[i] = threatEntry{URL: u}
	}
	return findRequest{
		Client: clientInfo{ClientID: c.opts.ClientID, ClientVersion: c.opts.ClientVersion},
		ThreatInfo: threatInfo{
			ThreatTypes:      schemas.AllThreatTypes,
			PlatformTypes:    []string{"ANY_PLATFORM"},
			ThreatEntryTypes: []string{"URL"},
			ThreatEntries:    entries,
		},
	}
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
