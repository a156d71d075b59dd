package constants

import (
	"time"
)

// File streaming and chunking
const (
	// StreamBufferSize - read buffer for hashing, chunking and crypto streaming (64 KiB)
	StreamBufferSize = 64 * 1024

	// ChunkSize - default max size of one on-disk chunk file (1 GB)
	// Files above this are split before upload so individual requests stay
	// below the portal's single-request limit.
	ChunkSize = 1_000_000_000

	// ChunkPattern - suffix every chunk file name carries:
	// "<basename>._<total:05d>_<index:05d>". The fixed-width zero padding
	// makes lexicographic order equal numeric order, and embedding the total
	// lets any reader validate completeness without a manifest.
	ChunkPattern = `\._[0-9]{5}_[0-9]{5}$`
)

// REST retry policy (5xx only; 4xx is terminal)
const (
	// MaxRetries - attempts per REST request before surfacing the error
	MaxRetries = 5

	// RetryBackoffSeconds - base for the per-attempt backoff (base^attempt seconds)
	RetryBackoffSeconds = 2
)

// Generic retry policy (internal/retry)
const (
	// RetryWaitCapSeconds - ceiling for the 2^attempt backoff of the generic
	// retry wrapper
	RetryWaitCapSeconds = 128

	// TransferRetryTimeout - wall-clock budget for one upload or download
	// request, including its retries
	TransferRetryTimeout = 480 * time.Second
)

// Websocket listening
const (
	// SocketPollInterval - how often a listener re-checks its completion
	// predicate and timeout
	SocketPollInterval = 1 * time.Second

	// SocketRetryDelay - fixed delay before reconnecting after an abnormal close
	SocketRetryDelay = 1 * time.Second

	// EstimateTimeout - bounded wait for estimate results on the user socket
	EstimateTimeout = 10 * time.Minute
)

// HTTP client tuning
const (
	// HTTPDialTimeout - timeout for establishing a TCP connection
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - TCP keep-alive interval
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPIdleConnTimeout - how long idle pooled connections stay open
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - generous to tolerate slow corporate networks
	HTTPTLSHandshakeTimeout = 60 * time.Second

	// HTTPExpectContinueTimeout - wait for a 100-continue response
	HTTPExpectContinueTimeout = 1 * time.Second
)

// API request pacing
const (
	// APIRequestsPerSecond - client-side pacing so bursts of small requests
	// do not trip the portal throttle
	APIRequestsPerSecond = 5

	// APIBurst - bucket size for the request pacer
	APIBurst = 10
)
