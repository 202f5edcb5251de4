package container

import (
	"time"

	"go.uber.org/zap"
)

// Monitor receives container activity. Implementations must be safe for
// concurrent use; framework/metrics provides a Prometheus one.
type Monitor interface {
	ComponentResolved(key ComponentKey, elapsed time.Duration, err error)
	ComponentConstructed(info DefinitionInfo, elapsed time.Duration, err error)
	ComponentDestroyed(info DefinitionInfo, err error)
}

type nopMonitor struct{}

func (nopMonitor) ComponentResolved(ComponentKey, time.Duration, error)      {}
func (nopMonitor) ComponentConstructed(DefinitionInfo, time.Duration, error) {}
func (nopMonitor) ComponentDestroyed(DefinitionInfo, error)                  {}

// Option configures a Builder and the Container it builds.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	monitor Monitor
}

func defaultOptions() options {
	return options{logger: zap.NewNop(), monitor: nopMonitor{}}
}

// WithLogger sets the logger used for build results, construction failures
// and teardown errors.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMonitor sets the Monitor notified of resolutions, constructions and
// destructions.
func WithMonitor(m Monitor) Option {
	return func(o *options) {
		if m != nil {
			o.monitor = m
		}
	}
}
