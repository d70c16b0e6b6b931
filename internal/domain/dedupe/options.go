package dedupe

// Option applies a configuration option to a Deduper.
type Option func(*InMemoryDeduper)

// WithMaxSize bounds the number of remembered keys. When full the oldest key
// is evicted. A non-positive size is unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *InMemoryDeduper) {
		d.maxSize = maxSize
	}
}
