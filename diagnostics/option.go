package diagnostics

import "github.com/tochemey/seqexec/logger"

// Option configures a Reporter at construction time.
type Option interface {
	apply(*Reporter)
}

type optionFunc func(*Reporter)

func (f optionFunc) apply(r *Reporter) { f(r) }

// WithLogger configures the reporter to log through log instead of the
// default no-op logger.
func WithLogger(log logger.Logger) Option {
	return optionFunc(func(r *Reporter) { r.log = log })
}
