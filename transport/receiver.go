package transport

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
	metrics "github.com/rcrowley/go-metrics"
	"github.com/rs/zerolog"

	"github.com/chabad360/midiosc/midi"
	"github.com/chabad360/midiosc/osc"
)

// DefaultReadTimeout bounds each socket read so cancellation is noticed.
const DefaultReadTimeout = time.Second

// Sink accepts events without blocking.
type Sink interface {
	Offer(e midi.Event) bool
}

// ReceiverOptions configure a Receiver. Zero values select the defaults.
type ReceiverOptions struct {
	Codec       *midi.Codec
	Policy      Policy
	ReadTimeout time.Duration
	Logger      zerolog.Logger
	Registry    metrics.Registry
}

// ReceiverStats are the Receiver counters.
type ReceiverStats struct {
	Received   metrics.Counter
	Forwarded  metrics.Counter
	Dropped    metrics.Counter
	Unmatched  metrics.Counter
	Malformed  metrics.Counter
	ReadErrors metrics.Counter
}

func newReceiverStats(r metrics.Registry) *ReceiverStats {
	if r == nil {
		r = metrics.DefaultRegistry
	}
	return &ReceiverStats{
		Received:   metrics.NewRegisteredCounter("receiver.received", r),
		Forwarded:  metrics.NewRegisteredCounter("receiver.forwarded", r),
		Dropped:    metrics.NewRegisteredCounter("receiver.dropped", r),
		Unmatched:  metrics.NewRegisteredCounter("receiver.unmatched", r),
		Malformed:  metrics.NewRegisteredCounter("receiver.malformed", r),
		ReadErrors: metrics.NewRegisteredCounter("receiver.errors.read", r),
	}
}

// Receiver reads OSC datagrams from a socket and offers the MIDI events they
// carry to a Sink.
type Receiver struct {
	conn   net.PacketConn
	sink   Sink
	codec  *midi.Codec
	policy Policy
	logger zerolog.Logger
	stats  *ReceiverStats
	server *osc.Server

	dropping bool
}

// Listen binds a UDP socket on addr and returns a Receiver for it.
func Listen(addr string, sink Sink, opts ReceiverOptions) (*Receiver, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %s", addr)
	}
	return NewReceiver(conn, sink, opts), nil
}

// NewReceiver returns a Receiver reading from conn. The Receiver owns conn.
func NewReceiver(conn net.PacketConn, sink Sink, opts ReceiverOptions) *Receiver {
	if opts.Codec == nil {
		opts.Codec = midi.NewCodec("")
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}

	r := &Receiver{
		conn:   conn,
		sink:   sink,
		codec:  opts.Codec,
		policy: opts.Policy,
		logger: opts.Logger.With().Str("component", "receiver").Logger(),
		stats:  newReceiverStats(opts.Registry),
	}
	r.server = &osc.Server{
		Handler:      r.handle,
		ErrorHandler: r.handleError,
		ReadTimeout:  opts.ReadTimeout,
	}
	return r
}

// Addr is the local address of the socket.
func (r *Receiver) Addr() net.Addr {
	return r.conn.LocalAddr()
}

// Stats returns the Receiver counters.
func (r *Receiver) Stats() *ReceiverStats {
	return r.stats
}

// Close closes the socket. Run closes it too.
func (r *Receiver) Close() error {
	return r.conn.Close()
}

// Run serves datagrams until ctx is done, then closes the socket.
func (r *Receiver) Run(ctx context.Context) error {
	defer r.conn.Close()
	r.logger.Info().Stringer("addr", r.conn.LocalAddr()).Str("address", r.codec.OSCAddress()).Msg("receiving")

	err := r.server.Serve(ctx, r.conn)
	if ctx.Err() != nil {
		return nil
	}
	return errors.Wrap(err, "serve")
}

func (r *Receiver) handle(p osc.Packet, addr net.Addr) {
	r.stats.Received.Inc(1)

	events, err := r.codec.Events(p)
	if err != nil {
		r.stats.Unmatched.Inc(1)
		r.policy.report(r.logger, err, addr, "ignoring packet")
		return
	}

	for _, e := range events {
		if !r.sink.Offer(e) {
			r.stats.Dropped.Inc(1)
			// Warn once per run of drops; the counter has the total.
			if !r.dropping {
				r.logger.Warn().Stringer("event", e).Msg("inbound queue full, dropping events")
			} else {
				r.logger.Debug().Stringer("event", e).Msg("inbound queue full, dropping events")
			}
			r.dropping = true
			continue
		}
		if r.dropping {
			r.logger.Info().Int64("dropped", r.stats.Dropped.Count()).Msg("inbound queue accepting events again")
			r.dropping = false
		}
		r.stats.Forwarded.Inc(1)
	}
}

func (r *Receiver) handleError(err error, addr net.Addr) {
	var perr *osc.ParseError
	if errors.As(err, &perr) {
		r.stats.Malformed.Inc(1)
		r.policy.report(r.logger, perr.Err, addr, "ignoring malformed datagram")
		return
	}
	r.stats.ReadErrors.Inc(1)
	r.logger.Warn().Err(err).Msg("receive failed")
}
