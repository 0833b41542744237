package gateway

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"PClient/global/config"
)

// Options tune one gateway connection. The zero value works for tests against
// a local server; OptionsFromConfig builds the production set.
type Options struct {
	// Token is attached to Identify and Resume payloads built by the Handle.
	Token string

	// HandshakeTimeout bounds dial + waiting for Hello.
	HandshakeTimeout time.Duration
	// ReplyTimeout bounds Identify waiting for READY and Resume waiting for
	// RESUMED.
	ReplyTimeout time.Duration

	// Dialer opens transports; nil means gorilla over the real network.
	Dialer Dialer
	// Registry maps dispatch names to decoders; nil means only protocol
	// traffic is understood and every dispatch is dropped after sequence
	// tracking.
	Registry *Registry

	// Backoff paces reconnect attempts; nil means exponential with a 60s cap
	// and no stop.
	Backoff backoff.BackOff
	// JitterFn overrides heartbeat jitter, for tests.
	JitterFn func() float64

	// BusQueueSize is the per-event-type delivery queue depth.
	BusQueueSize int

	// Properties reported in Identify built by the Handle.
	Properties IdentifyProperties
}

func (o Options) withDefaults() Options {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.ReplyTimeout <= 0 {
		o.ReplyTimeout = 5 * time.Second
	}
	if o.Dialer == nil {
		o.Dialer = DialWebsocket
	}
	if o.Registry == nil {
		o.Registry = NewRegistry()
	}
	if o.Backoff == nil {
		o.Backoff = defaultBackoff(60 * time.Second)
	}
	if o.BusQueueSize <= 0 {
		o.BusQueueSize = 1024
	}
	return o
}

func defaultBackoff(maxInterval time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = maxInterval
	b.MaxElapsedTime = 0 // retry until told to stop
	return b
}

// OptionsFromConfig maps the file/env configuration onto connection options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Token:            cfg.Token,
		HandshakeTimeout: cfg.HandshakeTimeout.Std(),
		ReplyTimeout:     cfg.ReplyTimeout.Std(),
		Backoff:          defaultBackoff(cfg.ReconnectMaxInterval.Std()),
		BusQueueSize:     cfg.BusQueueSize,
		Properties: IdentifyProperties{
			OS:      cfg.OS,
			Browser: cfg.Browser,
			Device:  cfg.Device,
		},
	}
}
