// Package rtmidi is a device backend built on virtual rtmidi ports. rtmidi
// has no process callback, so periods are run from a ticker. It needs cgo and
// is only built with -tags rtmidi; other builds get a stub whose Open fails.
package rtmidi

import "time"

const (
	// DefaultPeriod is how often the processor runs.
	DefaultPeriod = time.Millisecond
	// DefaultFrames is the nominal period size passed to the processor.
	DefaultFrames = 48

	pendingEvents = 1024
)
