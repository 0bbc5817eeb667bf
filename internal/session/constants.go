// Package session runs the capture-analyze-dedup-notify loop
package session

import "time"

// Session configuration constants
const (
	// Cadence of the sampling tick
	DefaultInterval = 5 * time.Second

	// Max perceptual-hash Hamming distance for two frames to count as the
	// same screen (skip the analysis call)
	MaxHashDistance = 5

	// Event channel buffer size
	EventBuffer = 16
)

// User-facing status strings. Failures surface as one of these, never as a
// raw diagnostic.
const (
	StatusReady            = "Ready to start"
	StatusRequesting       = "Requesting screen capture..."
	StatusScanning         = "Scanning screen..."
	StatusPausedBySystem   = "⚠️ Paused by system. Use split screen."
	StatusSearching        = "Searching for offers..."
	StatusWaiting          = "👀 Waiting for new offer..."
	StatusStopped          = "Monitor stopped"
	StatusPermissionDenied = "Error: screen capture permission denied"
)
