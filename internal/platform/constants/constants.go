// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Security: JWT issuers.
  - Queue: Redis stream and key names used by the generation worker.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "refgen-api"
	WorkerName = "refgen-worker"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	// Plan generation waits on the LLM inside the request, so this is longer than usual.
	DefaultWriteTimeout = 150 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// PlanRequestTimeout is the deadline for the plan endpoint, which calls the LLM synchronously.
	PlanRequestTimeout = 120 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 20.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 40

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in JWTs.
	AuthIssuer = "refgen.app"

	// RefreshTokenCookieName is the HttpOnly cookie carrying the opaque refresh token.
	RefreshTokenCookieName = "refgen_refresh"

	// RefreshTokenCookiePath scopes the refresh cookie to the auth routes.
	RefreshTokenCookiePath = "/api/v1/auth"
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldError   = "error"
	FieldCode    = "code"
	FieldItems   = "items"
	FieldTotal   = "total"
	FieldMessage = "message"
	FieldStatus  = "status"
)

// # Redis Keys (Queue Taxonomy)

const (
	// StreamEssayGeneration is the Redis stream carrying essay generation jobs.
	StreamEssayGeneration = "refgen:essay-generation"

	// ConsumerGroupWorkers is the consumer group shared by all generation workers.
	ConsumerGroupWorkers = "refgen-workers"

	// RedisPrefixTask prefixes the hash that tracks a single task's state.
	RedisPrefixTask = "refgen:task:"

	// TaskStateTTL is how long finished task state is kept for status polling.
	TaskStateTTL = 7 * 24 * time.Hour
)
