package redis

// Config holds Redis connection settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379/0)
	URL string `env:"URL, default=redis://localhost:6379"`

	// Pool settings
	PoolSize     int `env:"POOL_SIZE, default=10"`
	MinIdleConns int `env:"MIN_IDLE_CONNS, default=2"`

	// ScanBatch is the COUNT hint used when sweeping expired sessions
	ScanBatch int64 `env:"SCAN_BATCH, default=100"`
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		ScanBatch:    100,
	}
}
