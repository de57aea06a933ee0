package loader

import "log/slog"

// Option configures Load, Read and FromMemory.
type Option interface {
	IsOption()
}

type loadConfig struct {
	logger *slog.Logger
}

type loadOption struct {
	apply func(*loadConfig)
}

func (*loadOption) IsOption() {}

// WithLogger routes loader warnings to l. A nil logger silences them.
func WithLogger(l *slog.Logger) Option {
	return &loadOption{apply: func(c *loadConfig) {
		if l == nil {
			l = slog.New(slog.DiscardHandler)
		}
		c.logger = l
	}}
}

func parseOptions(opts []Option) loadConfig {
	cfg := loadConfig{logger: slog.Default()}
	for _, opt := range opts {
		if o, ok := opt.(*loadOption); ok && o.apply != nil {
			o.apply(&cfg)
		}
	}
	return cfg
}
