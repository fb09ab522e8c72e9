package archive

import "time"

// WriterConfig contains configuration for batch writers.
type WriterConfig struct {
	BatchSize     int           // rows per batch insert
	FlushInterval time.Duration // max time a row sits unflushed
	BufferSize    int           // input ring capacity
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     500,
		FlushInterval: 2 * time.Second,
		BufferSize:    20000,
	}
}

func (c WriterConfig) withDefaults() WriterConfig {
	def := DefaultWriterConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = def.FlushInterval
	}
	if c.BufferSize <= 0 {
		c.BufferSize = def.BufferSize
	}
	return c
}

// WriterMetrics holds counters for a writer.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
}
