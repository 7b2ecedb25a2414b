package reputation

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/smishguard/api/schemas"
	"github.com/xkilldash9x/smishguard/internal/config"
)

const malwareURL = "http://testsafebrowsing.appspot.com/apiv4/ANY_PLATFORM/MALWARE/URL/"

// oracleFunc decides the answer for one decoded lookup request.
type oracleFunc func(w http.ResponseWriter, r *http.Request, req findRequest)

type testOracle struct {
	*httptest.Server
	calls atomic.Int32
}

func newTestOracle(t *testing.T, fn oracleFunc) *testOracle {
	t.Helper()
	o := &testOracle{}
	o.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o.calls.Add(1)
		var req findRequest
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fn(w, r, req)
	}))
	t.Cleanup(o.Server.Close)
	return o
}

// respondMatches flags every requested URL that appears in bad.
func respondMatches(bad ...string) oracleFunc {
	flagged := make(map[string]bool)
	for _, b := range bad {
		flagged[b] = true
	}
	return func(w http.ResponseWriter, r *http.Request, req findRequest) {
		var resp findResponse
		for _, e := range req.ThreatInfo.ThreatEntries {
			if flagged[e.URL] {
				resp.Matches = append(resp.Matches, wireMatch{
					ThreatType:      schemas.ThreatMalware,
					PlatformType:    "ANY_PLATFORM",
					ThreatEntryType: "URL",
					Threat:          threatEntry{URL: e.URL},
					CacheDuration:   "300s",
				})
			}
		}
		if len(resp.Matches) == 0 {
			w.Write([]byte("{}"))
			return
		}
		out, _ := json.Marshal(resp)
		w.Write(out)
	}
}

func newTestChecker(t *testing.T, o *testOracle, clock *fakeClock, opts Options) (*Checker, *Cache) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	client, err := NewClient(ClientOptions{
		Endpoint:      o.URL + "/v4/threatMatches:find",
		APIKey:        "test-key",
		ClientID:      "smishguard",
		ClientVersion: "1.0.0",
	}, o.Client(), logger)
	require.NoError(t, err)

	cache := NewCache(time.Hour, clock.Now)
	opts.Clock = clock.Now
	checker, err := NewChecker(client, cache, opts, logger)
	require.NoError(t, err)
	return checker, cache
}

func TestChecker_EmptyInput(t *testing.T) {
	o := newTestOracle(t, respondMatches())
	checker, _ := newTestChecker(t, o, newFakeClock(), Options{})

	result := checker.Check(context.Background(), nil)
	assert.True(t, result.Success)
	assert.True(t, result.AllSafe)
	assert.Empty(t, result.DangerousURLs)
	assert.Zero(t, o.calls.Load())
}

func TestChecker_WireFormat(t *testing.T) {
	type captured struct {
		key, method, contentType string
		body                     []byte
	}
	seen := make(chan captured, 1)
	o := newTestOracle(t, func(w http.ResponseWriter, r *http.Request, req findRequest) {
		b, _ := json.Marshal(req)
		seen <- captured{
			key:         r.URL.Query().Get("key"),
			method:      r.Method,
			contentType: r.Header.Get("Content-Type"),
			body:        b,
		}
		w.Write([]byte("{}"))
	})
	checker, _ := newTestChecker(t, o, newFakeClock(), Options{})

	result := checker.Check(context.Background(), []string{"http://a.test", "http://b.test", "http://a.test"})
	require.True(t, result.Success)

	assert.Equal(t, int32(1), o.calls.Load(), "all misses go out in a single request")
	got := <-seen
	assert.Equal(t, "test-key", got.key)
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "application/json", got.contentType)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(got.body, &raw))
	assert.Equal(t, map[string]interface{}{
		"client": map[string]interface{}{"clientId": "smishguard", "clientVersion": "1.0.0"},
		"threatInfo": map[string]interface{}{
			"threatTypes":      []interface{}{"MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE", "POTENTIALLY_HARMFUL_APPLICATION"},
			"platformTypes":    []interface{}{"ANY_PLATFORM"},
			"threatEntryTypes": []interface{}{"URL"},
			"threatEntries": []interface{}{
				map[string]interface{}{"url": "http://a.test"},
				map[string]interface{}{"url": "http://b.test"},
			},
		},
	}, raw)
}

func TestChecker_CacheTTL(t *testing.T) {
	clock := newFakeClock()
	o := newTestOracle(t, respondMatches())
	checker, _ := newTestChecker(t, o, clock, Options{})
	ctx := context.Background()

	first := checker.Check(ctx, []string{"https://google.com"})
	require.True(t, first.Success)
	assert.True(t, first.AllSafe)
	assert.Equal(t, 1, first.Queried)
	assert.Equal(t, int32(1), o.calls.Load())

	clock.Advance(59 * time.Minute)
	second := checker.Check(ctx, []string{"https://google.com"})
	assert.True(t, second.Success)
	assert.Equal(t, 1, second.CacheHits)
	assert.Equal(t, int32(1), o.calls.Load(), "a 59 minute old verdict is served from cache")

	clock.Advance(2 * time.Minute)
	third := checker.Check(ctx, []string{"https://google.com"})
	assert.True(t, third.Success)
	assert.Equal(t, 0, third.CacheHits)
	assert.Equal(t, int32(2), o.calls.Load(), "a 61 minute old verdict triggers a fresh lookup")
}

func TestChecker_MessageCountsThreats(t *testing.T) {
	const other = "http://phish.test/login"
	o := newTestOracle(t, respondMatches(malwareURL, other))
	checker, _ := newTestChecker(t, o, newFakeClock(), Options{})

	result := checker.Check(context.Background(), []string{malwareURL, other})
	require.True(t, result.Success)
	assert.Equal(t, "2 dangerous URLs found.", result.Message)

	safe := checker.Check(context.Background(), []string{"https://google.com"})
	require.True(t, safe.Success)
	assert.Equal(t, "The URL is safe.", safe.Message)
}

func TestChecker_ThreatsAreCachedAndMerged(t *testing.T) {
	clock := newFakeClock()
	o := newTestOracle(t, respondMatches(malwareURL))
	checker, cache := newTestChecker(t, o, clock, Options{})
	ctx := context.Background()

	result := checker.Check(ctx, []string{malwareURL, "https://google.com"})
	require.True(t, result.Success)
	assert.False(t, result.AllSafe)
	assert.Equal(t, []string{malwareURL}, result.DangerousURLs)
	assert.Equal(t, []string{"https://google.com"}, result.SafeURLs)
	require.Len(t, result.Threats, 1)
	assert.Equal(t, schemas.ThreatMalware, result.Threats[0].ThreatType)
	assert.Equal(t, "1 dangerous URL found.", result.Message)

	cached, ok := cache.Get(malwareURL)
	require.True(t, ok)
	assert.True(t, cached.IsThreat())
	assert.Equal(t, []schemas.ThreatType{schemas.ThreatMalware}, cached.ThreatTypes)

	// A new URL plus the cached threat: only the new one is queried and the
	// cached threat is merged back in.
	merged := checker.Check(ctx, []string{malwareURL, "https://example.com"})
	require.True(t, merged.Success)
	assert.Equal(t, 1, merged.CacheHits)
	assert.Equal(t, 1, merged.Queried)
	assert.Equal(t, []string{malwareURL}, merged.DangerousURLs)
	assert.Len(t, merged.Threats, 1)

	// Everything cached: no call at all.
	calls := o.calls.Load()
	allHit := checker.Check(ctx, []string{malwareURL, "https://google.com"})
	assert.Equal(t, calls, o.calls.Load())
	assert.Equal(t, 2, allHit.CacheHits)
	assert.Equal(t, []string{malwareURL}, allHit.DangerousURLs)
	assert.Contains(t, allHit.Message, "cache")
}

func TestChecker_Timeout(t *testing.T) {
	release := make(chan struct{})
	o := newTestOracle(t, func(w http.ResponseWriter, r *http.Request, req findRequest) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	checker, cache := newTestChecker(t, o, newFakeClock(), Options{Timeout: 50 * time.Millisecond})

	result := checker.CheckSingle(context.Background(), "http://slow.test")
	assert.False(t, result.Success)
	assert.Empty(t, result.DangerousURLs)
	assert.Empty(t, result.SafeURLs)
	assert.Equal(t, "Reputation lookup timed out.", result.Message)
	assert.Zero(t, cache.Len(), "a failed lookup must not write to the cache")
}

func TestChecker_Cancelled(t *testing.T) {
	started := make(chan struct{})
	o := newTestOracle(t, func(w http.ResponseWriter, r *http.Request, req findRequest) {
		close(started)
		<-r.Context().Done()
	})
	checker, cache := newTestChecker(t, o, newFakeClock(), Options{BreakerThreshold: 1, BreakerCooldown: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	result := checker.Check(ctx, []string{"http://a.test"})
	assert.False(t, result.Success)
	assert.Zero(t, cache.Len())
	assert.Equal(t, "closed", checker.BreakerState(), "caller cancellation is not an oracle failure")
}

func TestChecker_Non200(t *testing.T) {
	o := newTestOracle(t, func(w http.ResponseWriter, r *http.Request, req findRequest) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	checker, cache := newTestChecker(t, o, newFakeClock(), Options{})

	result := checker.Check(context.Background(), []string{"http://a.test"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "503")
	assert.Zero(t, cache.Len())
}

func TestChecker_Refresh(t *testing.T) {
	o := newTestOracle(t, respondMatches())
	checker, _ := newTestChecker(t, o, newFakeClock(), Options{})
	ctx := context.Background()

	checker.Check(ctx, []string{"http://a.test"})
	result := checker.Refresh(ctx, []string{"http://a.test"})
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Queried)
	assert.Equal(t, int32(2), o.calls.Load())
}

func TestChecker_ClearCache(t *testing.T) {
	o := newTestOracle(t, respondMatches())
	checker, cache := newTestChecker(t, o, newFakeClock(), Options{})

	checker.Check(context.Background(), []string{"http://a.test"})
	require.Equal(t, 1, cache.Len())
	checker.ClearCache()
	assert.Zero(t, cache.Len())
}

// -- In-process oracle tests --

type stubOracle struct {
	configured bool
	calls      atomic.Int32
	err        atomic.Pointer[error]
}

func (s *stubOracle) Configured() bool { return s.configured }

func (s *stubOracle) FindThreatMatches(ctx context.Context, urls []string) ([]schemas.ThreatMatch, error) {
	s.calls.Add(1)
	if p := s.err.Load(); p != nil {
		return nil, *p
	}
	return nil, nil
}

func (s *stubOracle) failWith(err error) {
	if err == nil {
		s.err.Store(nil)
		return
	}
	s.err.Store(&err)
}

func TestChecker_NotConfigured(t *testing.T) {
	defer goleak.VerifyNone(t)
	oracle := &stubOracle{}
	checker, err := NewChecker(oracle, NewCache(time.Hour, nil), Options{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	result := checker.Check(context.Background(), []string{"http://a.test"})
	assert.False(t, result.Success)
	assert.Equal(t, "reputation oracle not configured", result.Message)
	assert.Zero(t, oracle.calls.Load())
	assert.False(t, checker.Configured())
}

func TestChecker_CircuitBreaker(t *testing.T) {
	defer goleak.VerifyNone(t)
	clock := newFakeClock()
	oracle := &stubOracle{configured: true}
	oracle.failWith(errors.New("connection refused"))

	checker, err := NewChecker(oracle, NewCache(time.Hour, clock.Now), Options{
		BreakerThreshold: 2,
		BreakerCooldown:  30 * time.Second,
		Clock:            clock.Now,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result := checker.Check(ctx, []string{"http://a.test"})
		assert.False(t, result.Success)
		assert.Contains(t, result.Message, "connection refused")
	}
	assert.Equal(t, "open", checker.BreakerState())

	result := checker.Check(ctx, []string{"http://a.test"})
	assert.False(t, result.Success)
	assert.Equal(t, ErrBreakerOpen.Error(), result.Message)
	assert.Equal(t, int32(2), oracle.calls.Load(), "open circuit skips the oracle")

	clock.Advance(31 * time.Second)
	oracle.failWith(nil)
	result = checker.Check(ctx, []string{"http://a.test"})
	assert.True(t, result.Success)
	assert.Equal(t, int32(3), oracle.calls.Load())
	assert.Equal(t, "closed", checker.BreakerState())
}

func TestNewChecker_Validation(t *testing.T) {
	_, err := NewChecker(nil, NewCache(time.Hour, nil), Options{}, nil)
	assert.Error(t, err)
	_, err = NewChecker(&stubOracle{}, nil, Options{}, nil)
	assert.Error(t, err)

	_, err = NewClient(ClientOptions{Endpoint: "http://x"}, nil, nil)
	assert.Error(t, err)
	_, err = NewClient(ClientOptions{}, http.DefaultClient, nil)
	assert.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.NewDefaultConfig().Reputation
	opts := OptionsFromConfig(cfg)
	assert.Equal(t, 10*time.Second, opts.Timeout)
	assert.Equal(t, 5, opts.BreakerThreshold)

	clientOpts := ClientOptionsFromConfig(cfg)
	assert.Equal(t, "https://safebrowsing.googleapis.com/v4/threatMatches:find", clientOpts.Endpoint)
	assert.Equal(t, "smishguard", clientOpts.ClientID)
}

func TestThreatMatch_Describe(t *testing.T) {
	m := schemas.ThreatMatch{URL: "http://x.test/", ThreatType: schemas.ThreatSocialEngineering}
	assert.Equal(t, "http://x.test/ (phishing)", m.Describe())
}
