package cooldown

import "github.com/rs/zerolog"

// Option is a functional option for configuring a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for config construction events.
// The default logger discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger.With().Str("component", "cooldown").Logger()
	}
}

// WithStrictConfig makes CreateConfig reject malformed specs instead of
// tolerating them.
func WithStrictConfig() Option {
	return func(r *Registry) {
		r.strict = true
	}
}
