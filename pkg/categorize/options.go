package categorize

import "go.uber.org/zap"

// Option configures a Manager or a Catalog.
type Option func(*options)

type options struct {
	logger *zap.SugaredLogger
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
