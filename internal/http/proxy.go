package http

import (
	"fmt"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"

	ntlmssp "github.com/Azure/go-ntlmssp"
	"github.com/onscale/onscale-go/internal/config"
	"github.com/onscale/onscale-go/internal/logging"
	"golang.org/x/net/http/httpproxy"
)

// configureClient applies the proxy mode from settings to a fresh client.
func configureClient(settings *config.Settings) (*nethttp.Client, error) {
	transport := baseTransport()

	switch strings.ToLower(settings.ProxyMode) {
	case "", "no-proxy":
		transport.Proxy = nil

	case "system":
		transport.Proxy = nethttp.ProxyFromEnvironment

	case "ntlm":
		if settings.ProxyHost == "" {
			logging.Global().Warn().Msg("proxy mode is ntlm but host is missing, using direct connections")
			transport.Proxy = nil
			break
		}
		transport.Proxy = proxyFuncWithBypass(buildProxyURL(settings), settings.NoProxy)
		return &nethttp.Client{
			Transport: ntlmssp.Negotiator{RoundTripper: transport},
			Timeout:   300 * time.Second,
		}, nil

	case "basic":
		if settings.ProxyHost == "" {
			logging.Global().Warn().Msg("proxy mode is basic but host is missing, using direct connections")
			transport.Proxy = nil
			break
		}
		if settings.ProxyUser != "" && settings.ProxyPassword == "" {
			logging.Global().Warn().Msg("proxy user configured but password missing, proxy auth disabled")
		}
		transport.Proxy = proxyFuncWithBypass(buildProxyURL(settings), settings.NoProxy)

	default:
		return nil, fmt.Errorf("unsupported proxy mode: %s", settings.ProxyMode)
	}

	return &nethttp.Client{
		Transport: transport,
		Timeout:   300 * time.Second,
	}, nil
}

// buildProxyURL constructs the proxy URL from settings.
func buildProxyURL(settings *config.Settings) *url.URL {
	port := settings.ProxyPort
	if port == 0 {
		port = 8080
	}
	proxyURL := &url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", settings.ProxyHost, port),
	}
	// Credentials are only embedded when complete; an empty password in the
	// URL breaks auth with some proxies.
	if settings.ProxyUser != "" && settings.ProxyPassword != "" {
		proxyURL.User = url.UserPassword(settings.ProxyUser, settings.ProxyPassword)
	}
	return proxyURL
}

// proxyFuncWithBypass returns a proxy function honoring the NoProxy bypass
// list. With an empty list it is equivalent to nethttp.ProxyURL.
func proxyFuncWithBypass(proxyURL *url.URL, noProxy string) func(*nethttp.Request) (*url.URL, error) {
	if noProxy == "" {
		return nethttp.ProxyURL(proxyURL)
	}
	cfg := httpproxy.Config{
		HTTPProxy:  proxyURL.String(),
		HTTPSProxy: proxyURL.String(),
		NoProxy:    noProxy,
	}
	proxyFunc := cfg.ProxyFunc()
	return func(req *nethttp.Request) (*url.URL, error) {
		result, err := proxyFunc(req.URL)
		if result == nil {
			logging.Global().Debug().Str("host", req.URL.Host).Msg("proxy bypass, direct connection")
		} else {
			logging.Global().Debug().Str("host", req.URL.Host).Str("proxy", result.Host).Msg("request proxied")
		}
		return result, err
	}
}

// NeedsProxyPassword reports whether the proxy configuration requires a
// password that has not been provided. The CLI uses this to decide whether
// to prompt interactively.
func NeedsProxyPassword(settings *config.Settings) bool {
	mode := strings.ToLower(settings.ProxyMode)
	if mode != "basic" && mode != "ntlm" {
		return false
	}
	return settings.ProxyUser != "" && settings.ProxyPassword == ""
}
