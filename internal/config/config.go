package config

import "time"

// Config holds runtime settings for the journal sync client.
type Config struct {
	// EndpointURL is the base URL of the sync backend.
	EndpointURL string
	// AuthToken is the bearer token sent with every request.
	AuthToken string
	// UserID identifies the account rows are merged into.
	UserID string
	// DatabasePath is the local SQLite file.
	DatabasePath string
	// SyncInterval is the base auto-sync cadence; MaxSyncInterval caps the
	// stretched interval after failed cycles.
	SyncInterval    time.Duration
	MaxSyncInterval time.Duration
	// HTTPTimeout bounds every request to the backend.
	HTTPTimeout time.Duration
	// PushBatchSize and PullBatchSize bound one pipeline round trip.
	PushBatchSize int
	PullBatchSize int
	// SyncEnabled is the initial state of the sync gate.
	SyncEnabled bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.EndpointURL = "http://127.0.0.1:8080"
	c.DatabasePath = "journalsync.db"
	c.SyncInterval = 30 * time.Second
	c.MaxSyncInterval = 10 * time.Minute
	c.HTTPTimeout = 30 * time.Second
	c.PushBatchSize = 100
	c.PullBatchSize = 200
	c.SyncEnabled = true
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
