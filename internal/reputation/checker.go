// File: internal/reputation/checker.go
package reputation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/smishguard/api/schemas"
	"github.com/xkilldash9x/smishguard/internal/config"
)

// DefaultTimeout bounds a single oracle lookup.
const DefaultTimeout = 10 * time.Second

// Oracle is the outbound lookup used by the Checker. *Client implements it.
type Oracle interface {
	Configured() bool
	FindThreatMatches(ctx context.Context, urls []string) ([]schemas.ThreatMatch, error)
}

// Options tunes the Checker.
type Options struct {
	Timeout          time.Duration
	RateLimit        float64 // lookups per second, 0 disables pacing
	Burst            int
	BreakerThreshold int // consecutive failures before the oracle is skipped, 0 disables
	BreakerCooldown  time.Duration
	Clock            Clock
}

// OptionsFromConfig maps the reputation config section onto checker options.
func OptionsFromConfig(cfg config.ReputationConfig) Options {
	return Options{
		Timeout:          cfg.Timeout,
		RateLimit:        cfg.RateLimit,
		Burst:            cfg.Burst,
		BreakerThreshold: cfg.Breaker.FailureThreshold,
		BreakerCooldown:  cfg.Breaker.Cooldown,
	}
}

// ClientOptionsFromConfig maps the reputation config section onto client options.
func ClientOptionsFromConfig(cfg config.ReputationConfig) ClientOptions {
	return ClientOptions{
		Endpoint:      cfg.Endpoint,
		APIKey:        cfg.APIKey,
		ClientID:      cfg.ClientID,
		ClientVersion: cfg.ClientVersion,
	}
}

// Checker answers reputation queries cache first and batches every miss into
// a single oracle lookup. A failed lookup never writes to the cache and is
// reported as Success=false, which callers must read as "unknown".
type Checker struct {
	oracle  Oracle
	cache   *Cache
	limiter *rate.Limiter
	breaker *breaker
	timeout time.Duration
	now     Clock
	logger  *zap.Logger
}

var _ schemas.ReputationChecker = (*Checker)(nil)

// NewChecker wires an oracle and an owned cache into a Checker.
func NewChecker(oracle Oracle, cache *Cache, opts Options, logger *zap.Logger) (*Checker, error) {
	if oracle == nil {
		return nil, fmt.Errorf("oracle cannot be nil")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	c := &Checker{
		oracle:  oracle,
		cache:   cache,
		breaker: newBreaker(opts.BreakerThreshold, opts.BreakerCooldown, opts.Clock),
		timeout: opts.Timeout,
		now:     opts.Clock,
		logger:  logger.Named("reputation"),
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c, nil
}

// Check evaluates urls, consulting the cache first.
func (c *Checker) Check(ctx context.Context, urls []string) schemas.ReputationBatchResult {
	return c.check(ctx, dedupe(urls), true)
}

// CheckSingle is Check for one URL.
func (c *Checker) CheckSingle(ctx context.Context, url string) schemas.ReputationBatchResult {
	return c.Check(ctx, []string{url})
}

// Refresh looks every URL up again, ignoring cached verdicts. Successful
// answers still replace the cache entries.
func (c *Checker) Refresh(ctx context.Context, urls []string) schemas.ReputationBatchResult {
	return c.check(ctx, dedupe(urls), false)
}

// ClearCache forgets every cached verdict.
func (c *Checker) ClearCache() {
	c.cache.Clear()
	c.logger.Info("Reputation cache cleared")
}

// Configured reports whether the oracle has credentials.
func (c *Checker) Configured() bool { return c.oracle.Configured() }

// BreakerState is "closed", "open" or "half-open".
func (c *Checker) BreakerState() string { return c.breaker.State().String() }

// batch accumulates the per-URL outcome of one Check call.
type batch struct {
	dangerous map[string]struct{}
	threats   []schemas.ThreatMatch
}

func (b *batch) flag(url string, matches []schemas.ThreatMatch) {
	b.dangerous[url] = struct{}{}
	b.threats = append(b.threats, matches...)
}

func (c *Checker) check(ctx context.Context, urls []string, useCache bool) schemas.ReputationBatchResult {
	if len(urls) == 0 {
		return schemas.ReputationBatchResult{
			Success:       true,
			AllSafe:       true,
			Threats:       []schemas.ThreatMatch{},
			SafeURLs:      []string{},
			DangerousURLs: []string{},
			Message:       "No URLs to check.",
		}
	}

	b := &batch{dangerous: make(map[string]struct{})}
	misses := urls
	hits := 0
	if useCache {
		misses = make([]string, 0, len(urls))
		for _, u := range urls {
			verdict, ok := c.cache.Get(u)
			if !ok {
				misses = append(misses, u)
				continue
			}
			hits++
			if verdict.IsThreat() {
				b.flag(u, verdict.Matches)
			}
		}
	}

	if len(misses) == 0 {
		c.logger.Debug("Reputation answered from cache", zap.Int("urls", len(urls)))
		result := c.assemble(urls, b)
		result.CacheHits = hits
		result.Message = fmt.Sprintf("Answered from cache (%d dangerous).", len(result.DangerousURLs))
		return result
	}

	matches, err := c.lookup(ctx, misses)
	if err != nil {
		return failure(err, hits)
	}

	byURL := make(map[string][]schemas.ThreatMatch, len(matches))
	for _, m := range matches {
		byURL[m.URL] = append(byURL[m.URL], m)
	}

	checkedAt := c.now()
	verdicts := make([]schemas.ReputationVerdict, 0, len(misses))
	for _, u := range misses {
		found := byURL[u]
		verdict := schemas.ReputationVerdict{
			URL:         u,
			Success:     true,
			ThreatFound: boolPtr(len(found) > 0),
			Matches:     found,
			CheckedAt:   checkedAt,
		}
		for _, m := range found {
			verdict.ThreatTypes = append(verdict.ThreatTypes, m.ThreatType)
		}
		if len(found) > 0 {
			b.flag(u, found)
		}
		verdicts = append(verdicts, verdict)
	}
	c.cache.Put(verdicts...)

	result := c.assemble(urls, b)
	result.CacheHits = hits
	result.Queried = len(misses)
	if result.AllSafe {
		result.Message = fmt.Sprintf("All %d URLs are safe.", len(urls))
		if len(urls) == 1 {
			result.Message = "The URL is safe."
		}
	} else {
		noun := "URLs"
		if len(result.DangerousURLs) == 1 {
			noun = "URL"
		}
		result.Message = fmt.Sprintf("%d dangerous %s found.", len(result.DangerousURLs), noun)
	}

	c.logger.Info("Reputation lookup complete",
		zap.Int("queried", len(misses)),
		zap.Int("cache_hits", hits),
		zap.Int("dangerous", len(result.DangerousURLs)))
	return result
}

// lookup runs one guarded oracle call for the misses.
func (c *Checker) lookup(ctx context.Context, misses []string) ([]schemas.ThreatMatch, error) {
	if !c.oracle.Configured() {
		return nil, errNotConfigured
	}
	if !c.breaker.Allow() {
		c.logger.Debug("Skipping oracle, circuit open", zap.Int("urls", len(misses)))
		return nil, ErrBreakerOpen
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(callCtx); err != nil {
			c.breaker.Release()
			return nil, fmt.Errorf("rate limiter: %w", contextErr(callCtx, err))
		}
	}

	matches, err := c.oracle.FindThreatMatches(callCtx, misses)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			// The caller went away; that says nothing about the oracle.
			c.breaker.Release()
		} else {
			c.breaker.Record(false)
		}
		err = contextErr(callCtx, err)
		c.logger.Warn("Reputation lookup failed", zap.Int("urls", len(misses)), zap.Error(err))
		return nil, err
	}
	c.breaker.Record(true)
	return matches, nil
}

// assemble splits urls into dangerous and safe in input order.
func (c *Checker) assemble(urls []string, b *batch) schemas.ReputationBatchResult {
	result := schemas.ReputationBatchResult{
		Success:       true,
		Threats:       b.threats,
		SafeURLs:      []string{},
		DangerousURLs: []string{},
	}
	if result.Threats == nil {
		result.Threats = []schemas.ThreatMatch{}
	}
	for _, u := range urls {
		if _, bad := b.dangerous[u]; bad {
			result.DangerousURLs = append(result.DangerousURLs, u)
		} else {
			result.SafeURLs = append(result.SafeURLs, u)
		}
	}
	result.AllSafe = len(result.DangerousURLs) == 0
	return result
}

var (
	errNotConfigured = errors.New("reputation oracle not configured")
	errTimeout       = errors.New("reputation lookup timed out")
)

// contextErr prefers a clear timeout error over whatever the transport said.
func contextErr(callCtx context.Context, err error) error {
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", errTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", errTimeout, err)
	}
	return err
}

func failure(err error, hits int) schemas.ReputationBatchResult {
	msg := err.Error()
	switch {
	case errors.Is(err, errNotConfigured), errors.Is(err, ErrBreakerOpen):
	case errors.Is(err, errTimeout):
		msg = "Reputation lookup timed out."
	default:
		msg = "Reputation lookup failed: " + msg
	}
	return schemas.ReputationBatchResult{
		Success:       false,
		Threats:       []schemas.ThreatMatch{},
		SafeURLs:      []string{},
		DangerousURLs: []string{},
		Message:       msg,
		CacheHits:     hits,
	}
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func boolPtr(b bool) *bool { return &b }
