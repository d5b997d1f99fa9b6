package netutil

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

const (
	// defaultDialerTimeout is the default net.Dialer Timeout value for transport of the HTTP client.
	defaultDialerTimeout = 30 * time.Second

	// defaultDialerKeepAlive is the default net.Dialer KeepAlive value for transport of the HTTP client.
	defaultDialerKeepAlive = 30 * time.Second

	// defaultIdleConnTimeout is the default IdleConnTimeout value for transport of the HTTP client.
	defaultIdleConnTimeout = 90 * time.Second

	// defaultContinueTimeout is the default ContinueTimeout value for transport of the HTTP client.
	defaultContinueTimeout = 5 * time.Second

	// defaultResponseHeaderTimeout is the default ResponseHeaderTimeout value for transport of the HTTP client.
	//
	// NOTE: Zero means no limit, object transfers may legitimately take a long time to return headers when the
	// service is validating a large upload.
	defaultResponseHeaderTimeout = 0 * time.Second

	// defaultTLSHandshakeTimeout is the default TLSHandshakeTimeout value for transport of the HTTP client.
	defaultTLSHandshakeTimeout = 10 * time.Second
)

// HTTPTimeouts encapsulates the timeouts for a HTTP transport; nil attributes fall back to sane defaults.
type HTTPTimeouts struct {
	Dialer                  *time.Duration
	KeepAlive               *time.Duration
	TransportIdleConn       *time.Duration
	TransportContinue       *time.Duration
	TransportResponseHeader *time.Duration
	TransportTLSHandshake   *time.Duration
}

// NewHTTPTransport returns a new HTTP transport using the given TLS config and timeouts.
//
// NOTE: The transport never buffers request/response bodies itself, object transfers are streamed.
func NewHTTPTransport(tlsConfig *tls.Config, timeouts HTTPTimeouts) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   timeoutOrDefault(timeouts.Dialer, defaultDialerTimeout),
		KeepAlive: timeoutOrDefault(timeouts.KeepAlive, defaultDialerKeepAlive),
	}

	return &http.Transport{
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		Proxy:                 http.ProxyFromEnvironment,
		TLSClientConfig:       tlsConfig,
		DialContext:           dialer.DialContext,
		IdleConnTimeout:       timeoutOrDefault(timeouts.TransportIdleConn, defaultIdleConnTimeout),
		ExpectContinueTimeout: timeoutOrDefault(timeouts.TransportContinue, defaultContinueTimeout),
		ResponseHeaderTimeout: timeoutOrDefault(timeouts.TransportResponseHeader, defaultResponseHeaderTimeout),
		TLSHandshakeTimeout:   timeoutOrDefault(timeouts.TransportTLSHandshake, defaultTLSHandshakeTimeout),
	}
}

// timeoutOrDefault returns the given timeout if it's not nil, otherwise it returns the given default value.
func timeoutOrDefault(timeout *time.Duration, defaultTimeout time.Duration) time.Duration {
	if timeout != nil {
		return *timeout
	}

	return defaultTimeout
}
