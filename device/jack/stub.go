//go:build !jack

package jack

import (
	"github.com/pkg/errors"

	"github.com/chabad360/midiosc/bridge"
)

// Available reports whether this build includes the backend.
const Available = false

// Open always fails. Build with -tags jack for the real backend.
func Open(name string, obs bridge.Observer) (bridge.Device, error) {
	return nil, errors.New("jack backend is not included in this build (build with -tags jack)")
}
