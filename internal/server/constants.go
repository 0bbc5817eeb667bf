// Package server provides the HTTP and WebSocket control surface
package server

import "time"

// Server configuration constants
const (
	// Per-connection WebSocket command rate limiting
	RateLimitMessages = 10          // Max commands per connection per window
	RateLimitWindow   = time.Second // Sliding window duration
)
