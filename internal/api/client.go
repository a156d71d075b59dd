// Package api is the typed client for the OnScale portal REST API.
//
// Requests are retried on 5xx responses and transport errors with an
// exponential backoff; 4xx responses are terminal and surface as *APIError.
// All requests are paced by a client-side rate limiter so bursts of small
// calls do not trip the portal throttle.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	nethttp "net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/onscale/onscale-go/internal/config"
	"github.com/onscale/onscale-go/internal/constants"
	httpclient "github.com/onscale/onscale-go/internal/http"
	"github.com/onscale/onscale-go/internal/logging"
)

// backoffUnit scales retry sleeps; tests shrink it.
var backoffUnit = time.Second

// Client talks to one portal on behalf of one authenticated user.
type Client struct {
	baseURL string
	token   string
	http    *retryablehttp.Client
	limiter *rate.Limiter
	log     *logging.Logger
	debug   bool
}

// NewClient creates a client for the named portal ("prod", "test", ...).
func NewClient(portal, token string, settings *config.Settings) (*Client, error) {
	return NewClientWithBaseURL(fmt.Sprintf("https://%s.portal.onscale.com/api", portal), token, settings)
}

// NewClientWithBaseURL creates a client against an explicit API base URL.
func NewClientWithBaseURL(baseURL, token string, settings *config.Settings) (*Client, error) {
	if settings == nil {
		settings = &config.Settings{}
	}

	inner, err := httpclient.NewClient(settings)
	if err != nil {
		return nil, err
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = inner
	rc.RetryMax = constants.MaxRetries
	rc.Logger = nil
	rc.CheckRetry = checkRetry
	rc.Backoff = backoff

	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    rc,
		limiter: rate.NewLimiter(rate.Limit(constants.APIRequestsPerSecond), constants.APIBurst),
		log:     logging.Global(),
		debug:   settings.DebugOutput,
	}, nil
}

// BaseURL returns the API base URL this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// checkRetry retries transport errors and 5xx responses. 4xx is terminal.
func checkRetry(ctx context.Context, resp *nethttp.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	return resp.StatusCode >= 500, nil
}

// backoff sleeps base^attempt: 2s, 4s, 8s... matching the portal's
// documented client behavior.
func backoff(_, _ time.Duration, attemptNum int, _ *nethttp.Response) time.Duration {
	secs := math.Pow(constants.RetryBackoffSeconds, float64(attemptNum+1))
	return time.Duration(secs) * backoffUnit
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode %s payload: %w", endpoint, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Content-Type", "application/json")

	if c.debug {
		c.log.Debug().Str("method", method).Str("endpoint", endpoint).Msg("api request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, endpoint, out)
}

func decodeResponse(resp *nethttp.Response, endpoint string, out any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}
	if resp.StatusCode >= 400 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Message:    string(data),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload, out any) error {
	return c.do(ctx, nethttp.MethodPost, endpoint, payload, out)
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	return c.do(ctx, nethttp.MethodGet, endpoint, nil, out)
}

func (c *Client) delete(ctx context.Context, endpoint string, payload, out any) error {
	return c.do(ctx, nethttp.MethodDelete, endpoint, payload, out)
}

// postFile uploads a file via multipart form. The payload's JSON fields are
// flattened into form fields alongside the "file" part, matching the
// portal's blob upload contract.
func (c *Client) postFile(ctx context.Context, endpoint, filePath string, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	fields, err := payloadFields(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", endpoint, err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return fmt.Errorf("failed to write form field %s: %w", key, err)
		}
	}

	source, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer source.Close()

	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, source); err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, nethttp.MethodPost, c.baseURL+endpoint, body.Bytes())
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	if c.debug {
		c.log.Debug().Str("endpoint", endpoint).Str("file", filePath).Msg("api file upload")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, endpoint, out)
}

// payloadFields flattens a payload struct into string form fields.
func payloadFields(payload any) (map[string]string, error) {
	if payload == nil {
		return nil, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(raw))
	for key, value := range raw {
		fields[key] = fmt.Sprint(value)
	}
	return fields, nil
}
