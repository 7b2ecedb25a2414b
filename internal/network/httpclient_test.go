// internal/network/httpclient_test.go
package network

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/smishguard/internal/config"
)

func testConfig(t *testing.T) *ClientConfig {
	t.Helper()
	cfg := NewDefaultClientConfig()
	cfg.Logger = zaptest.NewLogger(t)
	return cfg
}

// -- Test Cases: Configuration and Defaults --

func TestNewDefaultClientConfig(t *testing.T) {
	cfg := NewDefaultClientConfig()

	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	assert.Equal(t, DefaultResponseHeaderTimeout, cfg.ResponseHeaderTimeout)
	assert.Equal(t, DefaultMaxIdleConns, cfg.MaxIdleConns)
	assert.True(t, cfg.ForceHTTP2, "HTTP/2 should be preferred by default")
	assert.False(t, cfg.FollowRedirects)
	assert.NotNil(t, cfg.Logger)
}

func TestClientConfigFromNetwork(t *testing.T) {
	t.Run("maps timeout and TLS override", func(t *testing.T) {
		cfg, err := ClientConfigFromNetwork(config.NetworkConfig{Timeout: 7 * time.Second, IgnoreTLSErrors: true}, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.Equal(t, 7*time.Second, cfg.RequestTimeout)
		assert.True(t, cfg.IgnoreTLSErrors)
		assert.Nil(t, cfg.ProxyURL)
	})

	t.Run("parses proxy", func(t *testing.T) {
		cfg, err := ClientConfigFromNetwork(config.NetworkConfig{
			Proxy: config.ProxyConfig{Enabled: true, Address: "http://127.0.0.1:8080"},
		}, nil)
		require.NoError(t, err)
		require.NotNil(t, cfg.ProxyURL)
		assert.Equal(t, "127.0.0.1:8080", cfg.ProxyURL.Host)
	})

	t.Run("rejects malformed proxy", func(t *testing.T) {
		_, err := ClientConfigFromNetwork(config.NetworkConfig{
			Proxy: config.ProxyConfig{Enabled: true, Address: "not a url"},
		}, nil)
		assert.Error(t, err)
	})
}

func TestConfigureTLS(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		tlsConfig := configureTLS(testConfig(t))

		require.NotNil(t, tlsConfig)
		assert.Equal(t, uint16(requiredMinTLSVersion), tlsConfig.MinVersion)
		assert.False(t, tlsConfig.InsecureSkipVerify)
		assert.Equal(t, defaultSecureCipherSuites, tlsConfig.CipherSuites)
		assert.NotNil(t, tlsConfig.ClientSessionCache)
	})

	t.Run("custom config is cloned and merged", func(t *testing.T) {
		customTLS := &tls.Config{ServerName: "custom.sni"}
		cfg := testConfig(t)
		cfg.TLSConfig = customTLS
		cfg.IgnoreTLSErrors = true

		tlsConfig := configureTLS(cfg)

		assert.Equal(t, "custom.sni", tlsConfig.ServerName)
		assert.NotEmpty(t, tlsConfig.CipherSuites)
		assert.True(t, tlsConfig.InsecureSkipVerify)
		assert.NotSame(t, customTLS, tlsConfig)
		assert.False(t, customTLS.InsecureSkipVerify, "Original object should not be modified")
	})

	t.Run("weak minimum version is raised", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS10}

		assert.Equal(t, uint16(requiredMinTLSVersion), configureTLS(cfg).MinVersion)
	})

	t.Run("stricter settings are respected", func(t *testing.T) {
		ciphers := []uint16{tls.TLS_AES_256_GCM_SHA384}
		cfg := testConfig(t)
		cfg.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS13, CipherSuites: ciphers}

		tlsConfig := configureTLS(cfg)
		assert.Equal(t, uint16(tls.VersionTLS13), tlsConfig.MinVersion)
		assert.Equal(t, ciphers, tlsConfig.CipherSuites)
	})
}

// -- Test Cases: Transport Creation --

func TestNewHTTPTransport_ConfigurationMapping(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxIdleConns = 55
	cfg.IdleConnTimeout = 99 * time.Second
	cfg.DisableCompression = true
	cfg.DisableKeepAlives = true

	transport := NewHTTPTransport(cfg)

	assert.Equal(t, 55, transport.MaxIdleConns)
	assert.Equal(t, 99*time.Second, transport.IdleConnTimeout)
	assert.True(t, transport.DisableCompression)
	assert.True(t, transport.DisableKeepAlives)
	assert.NotNil(t, transport.DialContext)
}

func TestNewHTTPTransport_Proxy(t *testing.T) {
	proxyURL, _ := url.Parse("http://proxy.example.com:8080")
	cfg := testConfig(t)
	cfg.ProxyURL = proxyURL

	transport := NewHTTPTransport(cfg)
	require.NotNil(t, transport.Proxy)

	req, _ := http.NewRequest(http.MethodGet, "http://target.com", nil)
	resultURL, err := transport.Proxy(req)
	require.NoError(t, err)
	assert.Equal(t, proxyURL, resultURL)
}

func TestNewHTTPTransport_HTTP2(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		transport := NewHTTPTransport(testConfig(t))

		assert.True(t, transport.ForceAttemptHTTP2)
		assert.Equal(t, []string{"h2", "http/1.1"}, transport.TLSClientConfig.NextProtos)
	})

	t.Run("disabled", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.ForceHTTP2 = false
		transport := NewHTTPTransport(cfg)

		assert.False(t, transport.ForceAttemptHTTP2)
		assert.Equal(t, []string{"http/1.1"}, transport.TLSClientConfig.NextProtos)
	})
}

// -- Test Cases: Client Behavior --

func TestNewClient_RedirectPolicy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			http.Redirect(w, r, "/landing", http.StatusFound)
		case "/loop":
			http.Redirect(w, r, "/loop", http.StatusFound)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	t.Run("not followed by default", func(t *testing.T) {
		resp, err := NewClient(testConfig(t)).Get(server.URL)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/landing", resp.Header.Get("Location"))
	})

	t.Run("followed when enabled", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.FollowRedirects = true
		resp, err := NewClient(cfg).Get(server.URL)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "/landing", resp.Request.URL.Path)
	})

	t.Run("loops are bounded", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.FollowRedirects = true
		cfg.MaxRedirects = 3
		_, err := NewClient(cfg).Get(server.URL + "/loop")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTooManyRedirects))
	})
}

func TestClient_TimeoutBehavior(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	cfg := testConfig(t)
	cfg.RequestTimeout = 100 * time.Millisecond
	client := NewClient(cfg)

	start := time.Now()
	resp, err := client.Get(server.URL)
	duration := time.Since(start)

	require.Error(t, err)
	assert.Nil(t, resp)
	var urlErr *url.Error
	require.True(t, errors.As(err, &urlErr))
	assert.True(t, urlErr.Timeout() || errors.Is(urlErr.Err, context.DeadlineExceeded))
	assert.Less(t, duration, 2*time.Second)
}

func TestClient_HTTPS_Integration(t *testing.T) {
	server := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Hello, client")
	}))
	server.StartTLS()
	defer server.Close()

	pool := x509.NewCertPool()
	pool.AddCert(server.Certificate())

	cfg := testConfig(t)
	cfg.TLSConfig = &tls.Config{RootCAs: pool}
	resp, err := NewClient(cfg).Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hello, client\n", string(body))
}

func TestClient_InsecureSkipVerify_Integration(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK Insecure"))
	}))
	defer server.Close()

	_, err := NewClient(testConfig(t)).Get(server.URL)
	assert.Error(t, err, "Default client should fail on untrusted certificate")

	cfg := testConfig(t)
	cfg.IgnoreTLSErrors = true
	resp, err := NewClient(cfg).Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "OK Insecure", string(body))
}
