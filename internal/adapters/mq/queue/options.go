package queue

// Option applies a configuration option to an InMemoryQueue.
type Option func(*config)

type config struct {
	capacity int
	name     string
	onSize   func(int)
}

// WithCapacity sets the maximum number of buffered items.
func WithCapacity(capacity int) Option {
	return func(c *config) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}

// WithName labels queue errors in metrics.
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

// WithSizeGauge reports the queue length after every enqueue and dequeue.
func WithSizeGauge(fn func(int)) Option {
	return func(c *config) {
		c.onSize = fn
	}
}
