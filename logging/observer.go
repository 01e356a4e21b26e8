package logging

import (
	"github.com/rs/zerolog"

	"github.com/chabad360/midiosc/bridge"
)

// Observer logs device messages: info at debug level, errors at warn.
type Observer struct {
	Logger zerolog.Logger
}

var _ bridge.Observer = Observer{}

func (o Observer) OnInfo(msg string) {
	o.Logger.Debug().Msg(msg)
}

func (o Observer) OnError(msg string) {
	o.Logger.Warn().Msg(msg)
}
