// Package http builds the HTTP clients used for portal API calls and bulk
// file transfer, including proxy support with basic and NTLM authentication.
package http

import (
	"crypto/tls"
	"net"
	nethttp "net/http"
	"os"

	"github.com/onscale/onscale-go/internal/config"
	"github.com/onscale/onscale-go/internal/constants"
	"golang.org/x/net/http2"
)

// NewClient creates an HTTP client honoring the proxy settings. A nil
// settings value behaves like an empty one: direct connections, proxy from
// environment left untouched.
func NewClient(settings *config.Settings) (*nethttp.Client, error) {
	if settings == nil {
		settings = &config.Settings{}
	}
	return configureClient(settings)
}

// NewTransferClient creates an HTTP client tuned for large file transfers
// against presigned URIs: a larger connection pool, no response
// compression, and HTTP/2 where the path allows it.
//
// Per-operation deadlines come from request contexts; the client itself
// carries no overall timeout so multi-gigabyte transfers are not cut off.
func NewTransferClient(settings *config.Settings) (*nethttp.Client, error) {
	if settings == nil {
		settings = &config.Settings{}
	}
	client, err := NewClient(settings)
	if err != nil {
		return nil, err
	}
	client.Timeout = 0

	tr, ok := client.Transport.(*nethttp.Transport)
	if !ok {
		// NTLM mode wraps the transport in a negotiator; transfer tuning
		// is skipped there.
		return client, nil
	}

	tr.MaxIdleConns = 512
	tr.MaxIdleConnsPerHost = 100
	tr.MaxConnsPerHost = 100
	tr.DisableCompression = true
	tr.ForceAttemptHTTP2 = true
	_ = http2.ConfigureTransport(tr)

	if !http2Usable(settings) {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	client.Transport = tr
	return client, nil
}

// http2Usable reports whether HTTP/2 should be attempted. Proxies often
// mishandle HTTP/2 multiplexing mid-transfer, so any active proxy disables
// it unless FORCE_HTTP2=true.
func http2Usable(settings *config.Settings) bool {
	if os.Getenv("DISABLE_HTTP2") == "true" {
		return false
	}
	if os.Getenv("FORCE_HTTP2") == "true" {
		return true
	}

	var proxyActive bool
	switch settings.ProxyMode {
	case "", "no-proxy":
		proxyActive = false
	case "system":
		proxyActive = os.Getenv("HTTP_PROXY") != "" || os.Getenv("HTTPS_PROXY") != "" ||
			os.Getenv("http_proxy") != "" || os.Getenv("https_proxy") != ""
	default:
		proxyActive = true
	}
	return !proxyActive
}

func baseTransport() *nethttp.Transport {
	return &nethttp.Transport{
		DialContext: (&net.Dialer{
			Timeout:   constants.HTTPDialTimeout,
			KeepAlive: constants.HTTPDialKeepAlive,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		MaxConnsPerHost:       100,
		IdleConnTimeout:       constants.HTTPIdleConnTimeout,
		TLSHandshakeTimeout:   constants.HTTPTLSHandshakeTimeout,
		ExpectContinueTimeout: constants.HTTPExpectContinueTimeout,
	}
}
