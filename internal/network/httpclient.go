// File: internal/network/httpclient.go
package network

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"github.com/xkilldash9x/smishguard/internal/config"
	"github.com/xkilldash9x/smishguard/internal/observability"
)

// Defaults for the outbound client. Traffic is a handful of oracle calls and
// shortener HEADs per request, so the pool stays small.
const (
	DefaultDialTimeout           = 5 * time.Second
	DefaultKeepAliveInterval     = 15 * time.Second
	DefaultTLSHandshakeTimeout   = 5 * time.Second
	DefaultResponseHeaderTimeout = 10 * time.Second
	DefaultRequestTimeout        = 30 * time.Second

	DefaultMaxIdleConns        = 32
	DefaultMaxIdleConnsPerHost = 8
	DefaultMaxConnsPerHost     = 16
	DefaultIdleConnTimeout     = 90 * time.Second

	// DefaultMaxRedirects bounds redirect chains when FollowRedirects is set.
	DefaultMaxRedirects = 10

	requiredMinTLSVersion = tls.VersionTLS12
)

// ErrTooManyRedirects is returned when a redirect chain exceeds MaxRedirects.
var ErrTooManyRedirects = errors.New("too many redirects")

var defaultSecureCipherSuites = []uint16{
	tls.TLS_AES_256_GCM_SHA384,
	tls.TLS_CHACHA20_POLY1305_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
}

// ClientConfig holds the configuration for the HTTP client and transport layers.
type ClientConfig struct {
	// Security settings
	IgnoreTLSErrors bool
	TLSConfig       *tls.Config

	// Timeout settings
	RequestTimeout        time.Duration
	DialTimeout           time.Duration
	KeepAlive             time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration

	// Connection pool settings
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration

	// Protocol settings
	ForceHTTP2         bool
	DisableKeepAlives  bool
	DisableCompression bool

	// Redirect policy. The oracle client never follows redirects; the
	// shortener expander does.
	FollowRedirects bool
	MaxRedirects    int

	ProxyURL *url.URL

	Logger *zap.Logger
}

// Client is a wrapper around the standard http.Client and can be used as a
// drop in replacement. It is safe for concurrent use.
//
// The caller is responsible for closing Response.Body.
type Client struct {
	*http.Client
}

// NewDefaultClientConfig creates a configuration suitable for oracle traffic.
func NewDefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		RequestTimeout:        DefaultRequestTimeout,
		DialTimeout:           DefaultDialTimeout,
		KeepAlive:             DefaultKeepAliveInterval,
		TLSHandshakeTimeout:   DefaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
		MaxIdleConns:          DefaultMaxIdleConns,
		MaxIdleConnsPerHost:   DefaultMaxIdleConnsPerHost,
		MaxConnsPerHost:       DefaultMaxConnsPerHost,
		IdleConnTimeout:       DefaultIdleConnTimeout,
		ForceHTTP2:            true,
		MaxRedirects:          DefaultMaxRedirects,
		Logger:                observability.GetLogger().Named("httpclient"),
	}
}

// ClientConfigFromNetwork maps the application network section onto a client
// configuration.
func ClientConfigFromNetwork(netCfg config.NetworkConfig, logger *zap.Logger) (*ClientConfig, error) {
	cfg := NewDefaultClientConfig()
	if logger != nil {
		cfg.Logger = logger.Named("httpclient")
	}
	if netCfg.Timeout > 0 {
		cfg.RequestTimeout = netCfg.Timeout
	}
	cfg.IgnoreTLSErrors = netCfg.IgnoreTLSErrors

	if netCfg.Proxy.Enabled {
		proxyURL, err := url.Parse(netCfg.Proxy.Address)
		if err != nil || proxyURL.Host == "" {
			return nil, fmt.Errorf("invalid proxy address %q", netCfg.Proxy.Address)
		}
		cfg.ProxyURL = proxyURL
	}
	return cfg, nil
}

// NewHTTPTransport creates and configures an http.Transport based on the provided configuration.
func NewHTTPTransport(cfg *ClientConfig) *http.Transport {
	if cfg == nil {
		cfg = NewDefaultClientConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAlive,
	}
	tlsConfig := configureTLS(cfg)

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSClientConfig:       tlsConfig,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		DisableKeepAlives:     cfg.DisableKeepAlives,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		DisableCompression:    cfg.DisableCompression,
		ForceAttemptHTTP2:     cfg.ForceHTTP2,
	}

	if cfg.ProxyURL != nil {
		transport.Proxy = http.ProxyURL(cfg.ProxyURL)
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	if cfg.ForceHTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			cfg.Logger.Warn("Failed to configure HTTP/2 transport, falling back to HTTP/1.1", zap.Error(err))
		}
	} else if len(tlsConfig.NextProtos) == 0 {
		tlsConfig.NextProtos = []string{"http/1.1"}
	}

	return transport
}

// NewClient creates the client wrapper using the configured transport.
func NewClient(cfg *ClientConfig) *Client {
	if cfg == nil {
		cfg = NewDefaultClientConfig()
	}

	standardClient := &http.Client{
		Transport:     NewHTTPTransport(cfg),
		Timeout:       cfg.RequestTimeout,
		CheckRedirect: redirectPolicy(cfg),
	}
	return &Client{Client: standardClient}
}

func redirectPolicy(cfg *ClientConfig) func(*http.Request, []*http.Request) error {
	if !cfg.FollowRedirects {
		return func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	limit := cfg.MaxRedirects
	if limit <= 0 {
		limit = DefaultMaxRedirects
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= limit {
			return fmt.Errorf("%w: stopped after %d hops", ErrTooManyRedirects, limit)
		}
		return nil
	}
}

// configureTLS clones any caller supplied TLS config and fills in secure
// defaults. The minimum version is never allowed below TLS 1.2.
func configureTLS(cfg *ClientConfig) *tls.Config {
	var tlsConfig *tls.Config
	if cfg.TLSConfig != nil {
		tlsConfig = cfg.TLSConfig.Clone()
	} else {
		tlsConfig = &tls.Config{}
	}

	if tlsConfig.MinVersion < requiredMinTLSVersion {
		tlsConfig.MinVersion = requiredMinTLSVersion
	}
	if len(tlsConfig.CipherSuites) == 0 {
		tlsConfig.CipherSuites = defaultSecureCipherSuites
	}
	if tlsConfig.ClientSessionCache == nil {
		tlsConfig.ClientSessionCache = tls.NewLRUClientSessionCache(64)
	}

	tlsConfig.InsecureSkipVerify = cfg.IgnoreTLSErrors
	return tlsConfig
}
