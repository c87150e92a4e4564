package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 5
	DBMaxIdleConns    = 2
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Reconnect backoff for failed dial attempts
const (
	ReconnectMinBackoff = time.Second
	ReconnectMaxBackoff = 30 * time.Second
)

// Pairing code PNG size in pixels
const QRImageSize = 300

// Rate limit window for the send endpoint
const SendRateLimitWindow = time.Minute

// Interval between in-process sweeps (rate limit windows)
const CleanupJobInterval = time.Minute

// Name shown in the phone's linked devices list
const DeviceName = "WA Gateway"
