// File: internal/urlextract/expander.go
package urlextract

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultExpandTimeout bounds a single shortener resolution.
const DefaultExpandTimeout = 5 * time.Second

// HTTPDoer is the part of an HTTP client the expander needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Expander resolves shortener links to their destination by following
// redirects with a HEAD request.
type Expander struct {
	client  HTTPDoer
	timeout time.Duration
	logger  *zap.Logger
}

// NewExpander creates an Expander. The client must follow redirects. A
// non-positive timeout falls back to DefaultExpandTimeout.
func NewExpander(client HTTPDoer, timeout time.Duration, logger *zap.Logger) *Expander {
	if timeout <= 0 {
		timeout = DefaultExpandTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Expander{client: client, timeout: timeout, logger: logger.Named("expander")}
}

// Expand returns the final URL reached from shortURL. Any failure, including
// a timeout or a cancelled context, returns shortURL unchanged.
func (e *Expander) Expand(ctx context.Context, shortURL string) string {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, shortURL, nil)
	if err != nil {
		e.logger.Debug("Cannot build expansion request", zap.String("url", shortURL), zap.Error(err))
		return shortURL
	}

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Warn("Short URL expansion failed", zap.String("url", shortURL), zap.Error(err))
		return shortURL
	}
	defer resp.Body.Close()

	if resp.Request == nil || resp.Request.URL == nil {
		return shortURL
	}
	final := resp.Request.URL.String()
	if final != shortURL {
		e.logger.Debug("Expanded short URL", zap.String("url", shortURL), zap.String("target", final))
	}
	return final
}
