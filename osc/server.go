package osc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime"
	"time"
)

// HandlerFunc is called for every packet the Server parses.
type HandlerFunc func(packet Packet, addr net.Addr)

// ErrorHandlerFunc is called for every packet the Server fails to read or parse.
type ErrorHandlerFunc func(err error, addr net.Addr)

// ParseError is reported when a datagram is received but isn't a valid OSC packet.
type ParseError struct {
	Addr net.Addr
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("osc: invalid packet from %v: %v", e.Addr, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Server represents an OSC server. The server listens on Addr for incoming OSC packets and bundles.
// Packets are handled one at a time, in the order they are received.
type Server struct {
	Addr         string
	Handler      HandlerFunc
	ErrorHandler ErrorHandlerFunc
	ReadTimeout  time.Duration
}

// ListenAndServe creates a server for addr and serves packets to handler until ctx is done.
func ListenAndServe(ctx context.Context, addr string, handler HandlerFunc) error {
	s := &Server{Addr: addr, Handler: handler}
	return s.ListenAndServe(ctx)
}

// ListenAndServe retrieves incoming OSC packets and dispatches the retrieved OSC packets.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.ListenPacket("udp", s.Addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	return s.Serve(ctx, ln)
}

// Serve retrieves incoming OSC packets from the given connection and dispatches retrieved OSC packets.
// Malformed packets and transient read errors are passed to the ErrorHandler and serving continues.
// Serve returns when ctx is done or the connection is closed.
func (s *Server) Serve(ctx context.Context, c net.PacketConn) error {
	if s.Handler == nil {
		return fmt.Errorf("Serve: no handler")
	}

	// Unblock a pending read as soon as the context is done.
	stop := context.AfterFunc(ctx, func() {
		c.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	b := bPool.Get().(*[]byte)
	defer bPool.Put(b)

	var tempDelay time.Duration
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		p, addr, err := s.readFromConnection(c, *b)
		if err != nil {
			var perr *ParseError
			switch {
			case ctx.Err() != nil:
				return ctx.Err()
			case errors.As(err, &perr):
				s.reportError(err, addr)
				continue
			case errors.Is(err, net.ErrClosed):
				return err
			case isTimeout(err):
				continue
			}

			s.reportError(err, addr)
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay *= 2
			}
			if max := 1 * time.Second; tempDelay > max {
				tempDelay = max
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(tempDelay):
			}
			continue
		}
		tempDelay = 0
		s.serve(p, addr)
	}
}

func (s *Server) serve(p Packet, a net.Addr) {
	defer func() {
		if err := recover(); err != nil {
			buf := make([]byte, 4096)
			buf = buf[:runtime.Stack(buf, false)]
			s.reportError(fmt.Errorf("osc: panic handling packet from %s: %v\n%s", a, err, buf), a)
		}
	}()
	s.Handler(p, a)
}

func (s *Server) reportError(err error, a net.Addr) {
	if s.ErrorHandler != nil {
		s.ErrorHandler(err, a)
	}
}

// ReceivePacket listens for incoming OSC packets and returns the packet if one is received.
func (s *Server) ReceivePacket(c net.PacketConn) (Packet, net.Addr, error) {
	b := bPool.Get().(*[]byte)
	defer bPool.Put(b)

	return s.readFromConnection(c, *b)
}

// readFromConnection retrieves OSC packets. Parse failures are returned as *ParseError.
func (s *Server) readFromConnection(c net.PacketConn, b []byte) (Packet, net.Addr, error) {
	if s.ReadTimeout != 0 {
		if err := c.SetReadDeadline(time.Now().Add(s.ReadTimeout)); err != nil {
			return nil, nil, err
		}
	}

	n, a, err := c.ReadFrom(b)
	if err != nil {
		return nil, a, err
	}

	p, err := ParsePacket(b[:n])
	if err != nil {
		return nil, a, &ParseError{Addr: a, Err: err}
	}
	return p, a, nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
