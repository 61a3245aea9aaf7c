package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 30 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const CleanupJobInterval = time.Minute

// Upper bounds on configurable TTLs
const (
	MaxRequestTTLSeconds   = 1800
	MaxActiveWindowSeconds = 1800
)

// Rate limiting
const (
	DefaultRateLimitPerMin = 60
	AnonymousRateLimit     = 30
	AnonymousRateWindow    = time.Minute
	LoginRateLimit         = 5
	LoginRateWindow        = time.Minute
)
