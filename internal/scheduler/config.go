package scheduler

import "time"

// Pool sizing defaults.
const (
	DefaultMinPoolSize        = 4
	DefaultMaxPoolSize        = 16
	DefaultKeepAlive          = 1000 * time.Millisecond
	DefaultBackgroundPoolSize = 6
)

// Config sizes the two pools.
type Config struct {
	// MinPoolSize is the number of immediate workers kept alive while idle.
	MinPoolSize int

	// MaxPoolSize caps the number of immediate workers.
	MaxPoolSize int

	// KeepAlive is how long an idle immediate worker above MinPoolSize
	// waits for work before it exits.
	KeepAlive time.Duration

	// BackgroundPoolSize is the fixed number of scheduled-pool workers.
	BackgroundPoolSize int
}

// DefaultConfig returns the default pool sizing.
func DefaultConfig() Config {
	return Config{
		MinPoolSize:        DefaultMinPoolSize,
		MaxPoolSize:        DefaultMaxPoolSize,
		KeepAlive:          DefaultKeepAlive,
		BackgroundPoolSize: DefaultBackgroundPoolSize,
	}
}

// normalise replaces unusable values with their defaults. Each replacement
// is logged at error level; a bad setting never stops activation.
func (c Config) normalise(logger Logger) Config {
	if c.MinPoolSize < 1 {
		logger.Error("invalid thread pool property value",
			"property", "min", "value", c.MinPoolSize, "default", DefaultMinPoolSize)
		c.MinPoolSize = DefaultMinPoolSize
	}
	if c.MaxPoolSize < 1 {
		logger.Error("invalid thread pool property value",
			"property", "max", "value", c.MaxPoolSize, "default", DefaultMaxPoolSize)
		c.MaxPoolSize = DefaultMaxPoolSize
	}
	if c.MaxPoolSize < c.MinPoolSize {
		logger.Error("invalid thread pool property value",
			"property", "max", "value", c.MaxPoolSize, "min", c.MinPoolSize)
		c.MaxPoolSize = c.MinPoolSize
	}
	if c.KeepAlive <= 0 {
		logger.Error("invalid thread pool property value",
			"property", "keepAlive", "value", c.KeepAlive, "default", DefaultKeepAlive)
		c.KeepAlive = DefaultKeepAlive
	}
	if c.BackgroundPoolSize < 1 {
		logger.Error("invalid thread pool property value",
			"property", "background.size", "value", c.BackgroundPoolSize, "default", DefaultBackgroundPoolSize)
		c.BackgroundPoolSize = DefaultBackgroundPoolSize
	}
	return c
}
