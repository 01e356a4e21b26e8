//go:build !rtmidi

package rtmidi

import (
	"github.com/pkg/errors"

	"github.com/chabad360/midiosc/bridge"
)

// Available reports whether this build includes the backend.
const Available = false

// Open always fails. Build with -tags rtmidi for the real backend.
func Open(name string, obs bridge.Observer) (bridge.Device, error) {
	return nil, errors.New("rtmidi backend is not included in this build (build with -tags rtmidi)")
}
