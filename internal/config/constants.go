package config

import "time"

// Timeout constants
const (
	WorkerShutdownTimeout = 30 * time.Second
	ServerShutdownTimeout = 30 * time.Second
	VersionProbeTimeout   = 3 * time.Second

	// Database timeouts
	DatabaseConnMaxLifetime = 5 * time.Minute

	// Worker timeouts
	WorkerMaxUserBackoff = 1 * time.Hour
)

// Worker bookkeeping limits
const (
	WorkerMaxHistory      = 100
	WorkerMaxActivityLogs = 500
)

// Planner defaults
const (
	DefaultPlannerInterval    = 1 * time.Hour
	DefaultPlannerConcurrency = 4
	DefaultAnalyticsWeeks     = 4
	DefaultCacheTTL           = 10 * time.Minute
)

// DefaultCircuitBreakerCooldown applies when a threshold is set without a cooldown
const DefaultCircuitBreakerCooldown = 30 * time.Second

// Security configuration constants
const (
	// Content Security Policy
	DefaultCSP = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self'; img-src 'self' data:;"
)
