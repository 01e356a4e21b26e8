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
	"github.com/chabad360/midiosc/ring"
)

// Source hands out events, blocking until one is available.
type Source interface {
	Take(ctx context.Context) (midi.Event, error)
}

// SenderOptions configure a Sender. Zero values select the defaults.
type SenderOptions struct {
	// LocalAddr binds the sending socket. Empty picks an ephemeral port.
	LocalAddr string
	Codec     *midi.Codec
	Logger    zerolog.Logger
	Registry  metrics.Registry
}

// SenderStats are the Sender counters.
type SenderStats struct {
	Sent         metrics.Counter
	EncodeErrors metrics.Counter
	SendErrors   metrics.Counter
	SendTime     metrics.Timer
}

func newSenderStats(r metrics.Registry) *SenderStats {
	if r == nil {
		r = metrics.DefaultRegistry
	}
	return &SenderStats{
		Sent:         metrics.NewRegisteredCounter("sender.sent", r),
		EncodeErrors: metrics.NewRegisteredCounter("sender.errors.encode", r),
		SendErrors:   metrics.NewRegisteredCounter("sender.errors.send", r),
		SendTime:     metrics.NewRegisteredTimer("sender.send", r),
	}
}

// Sender takes events from a Source and sends each one as an OSC datagram.
type Sender struct {
	client  *osc.Client
	source  Source
	codec   *midi.Codec
	logger  zerolog.Logger
	stats   *SenderStats
	failing bool
}

// Dial connects a UDP socket to addr and returns a Sender for it. The socket
// is bound to opts.LocalAddr when set.
func Dial(addr string, source Source, opts SenderOptions) (*Sender, error) {
	client, err := osc.DialFrom(opts.LocalAddr, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}
	return NewSender(client, source, opts), nil
}

// NewSender returns a Sender writing to client. The Sender owns client.
func NewSender(client *osc.Client, source Source, opts SenderOptions) *Sender {
	if opts.Codec == nil {
		opts.Codec = midi.NewCodec("")
	}
	return &Sender{
		client: client,
		source: source,
		codec:  opts.Codec,
		logger: opts.Logger.With().Str("component", "sender").Logger(),
		stats:  newSenderStats(opts.Registry),
	}
}

// Addr is the destination address.
func (s *Sender) Addr() net.Addr {
	return s.client.RemoteAddr()
}

// Stats returns the Sender counters.
func (s *Sender) Stats() *SenderStats {
	return s.stats
}

// Close closes the socket. Run closes it too.
func (s *Sender) Close() error {
	return s.client.Close()
}

// Run sends events until ctx is done or the source is closed, then closes
// the socket.
func (s *Sender) Run(ctx context.Context) error {
	defer s.client.Close()
	s.logger.Info().
		Stringer("from", s.client.LocalAddr()).
		Stringer("to", s.client.RemoteAddr()).
		Str("address", s.codec.OSCAddress()).
		Msg("sending")

	for {
		e, err := s.source.Take(ctx)
		switch {
		case err == nil:
			s.send(e)
		case err == ring.ErrClosed, ctx.Err() != nil:
			return nil
		default:
			return errors.Wrap(err, "take")
		}
	}
}

func (s *Sender) send(e midi.Event) {
	if err := e.Validate(); err != nil {
		s.stats.EncodeErrors.Inc(1)
		s.logger.Warn().Err(err).Msg("skipping event")
		return
	}

	start := time.Now()
	err := s.client.Send(s.codec.Message(e))
	s.stats.SendTime.UpdateSince(start)
	if err != nil {
		s.stats.SendErrors.Inc(1)
		// Only the first of a run of failures is worth a warning.
		if !s.failing {
			s.logger.Warn().Err(err).Stringer("event", e).Msg("send failed")
		} else {
			s.logger.Debug().Err(err).Stringer("event", e).Msg("send failed")
		}
		s.failing = true
		return
	}
	if s.failing {
		s.logger.Info().Msg("send recovered")
		s.failing = false
	}
	s.stats.Sent.Inc(1)
}
