// Package transport runs the network side of the bridge: a Receiver that
// turns OSC datagrams into events for the device and a Sender that turns
// device events into OSC datagrams.
package transport

import (
	"net"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Policy says how datagrams without usable MIDI events are reported.
type Policy int

const (
	// PolicyWarn logs them at warn level.
	PolicyWarn Policy = iota
	// PolicyDebug logs them at debug level.
	PolicyDebug
	// PolicySilent only counts them.
	PolicySilent
)

// ParsePolicy parses warn, debug or silent.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "warn", "":
		return PolicyWarn, nil
	case "debug":
		return PolicyDebug, nil
	case "silent":
		return PolicySilent, nil
	default:
		return 0, errors.Errorf("unknown unmatched policy %q", s)
	}
}

func (p Policy) String() string {
	switch p {
	case PolicyWarn:
		return "warn"
	case PolicyDebug:
		return "debug"
	case PolicySilent:
		return "silent"
	default:
		return "unknown"
	}
}

func (p Policy) report(logger zerolog.Logger, err error, addr net.Addr, msg string) {
	var ev *zerolog.Event
	switch p {
	case PolicyWarn:
		ev = logger.Warn()
	case PolicyDebug:
		ev = logger.Debug()
	default:
		return
	}
	if addr != nil {
		ev = ev.Stringer("from", addr)
	}
	ev.Err(err).Msg(msg)
}
