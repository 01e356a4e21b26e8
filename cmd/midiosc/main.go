// Command midiosc bridges MIDI device ports and OSC over UDP.
//
//	midiosc -s[=ADDR:PORT] -r[=ADDR:PORT] [-n NAME] [-c COUNT]
//
// With -s every event on input_<i> is sent as an OSC message tagged with port
// i. With -r every MIDI argument received is played on output_<port>.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	metrics "github.com/rcrowley/go-metrics"
	"github.com/rs/zerolog"

	"github.com/chabad360/midiosc/bridge"
	"github.com/chabad360/midiosc/config"
	"github.com/chabad360/midiosc/device/jack"
	"github.com/chabad360/midiosc/device/loopback"
	"github.com/chabad360/midiosc/device/rtmidi"
	"github.com/chabad360/midiosc/logging"
	"github.com/chabad360/midiosc/midi"
	"github.com/chabad360/midiosc/ring"
	"github.com/chabad360/midiosc/transport"
	"github.com/chabad360/midiosc/worker"
)

const app = "midiosc"

func main() {
	os.Exit(realMain(os.Args[1:]))
}

func realMain(args []string) int {
	cfg, err := config.Parse(app, args, os.Stderr)
	switch {
	case err == flag.ErrHelp:
		return 0
	case errors.Cause(err) == config.ErrUsage:
		fmt.Fprintf(os.Stderr, "%s: %v\n", app, err)
		return 2
	case err != nil:
		fmt.Fprintf(os.Stderr, "%s: %v\n", app, err)
		return 1
	}

	logCfg := logging.DefaultConfig(logging.ProfileRuntime)
	if lvl, ok := logging.ParseLevel(cfg.LogLevel); ok {
		logCfg.Level = lvl
	}
	logging.ApplyEnv(&logCfg)
	logger := logging.New(app, logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs := logging.Observer{Logger: logger.With().Str("component", "device").Logger()}
	dev, err := openDevice(cfg.Backend, cfg.Name, obs)
	if err != nil {
		logger.Error().Err(err).Str("backend", cfg.Backend).Msg("cannot open device")
		return 1
	}

	if err := run(ctx, cfg, dev, logger); err != nil {
		logger.Error().Err(err).Msg("exiting")
		return 1
	}
	return 0
}

func openDevice(backend, name string, obs bridge.Observer) (bridge.Device, error) {
	switch backend {
	case "jack":
		return jack.Open(name, obs)
	case "rtmidi":
		return rtmidi.Open(name, obs)
	case "loopback":
		return loopback.New(name, obs), nil
	default:
		return nil, errors.Errorf("unknown backend %q", backend)
	}
}

// run bridges dev until ctx is done or a worker fails. dev is closed on return.
func run(ctx context.Context, cfg config.Config, dev bridge.Device, logger zerolog.Logger) (err error) {
	defer func() {
		if cerr := dev.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close device")
		}
	}()

	mode, err := cfg.Mode()
	if err != nil {
		return err
	}
	policy, err := transport.ParsePolicy(cfg.Unmatched)
	if err != nil {
		return err
	}

	registry := metrics.NewRegistry()
	codec := &midi.Codec{Address: cfg.Address, AcceptBundles: cfg.AcceptBundles}

	ports, err := bridge.NewPortTable(dev, cfg.Count, mode)
	if err != nil {
		return errors.Wrap(err, "register ports")
	}

	var (
		outQ, inQ bridge.Queue
		outbound  *ring.Queue[midi.Event]
		sender    *transport.Sender
		receiver  *transport.Receiver
	)
	if mode.Sends() {
		outbound = ring.New[midi.Event](cfg.QueueSize)
		outQ = outbound
		sender, err = transport.Dial(cfg.SendTo, outbound, transport.SenderOptions{
			LocalAddr: cfg.SendFrom,
			Codec:     codec,
			Logger:    logger,
			Registry:  registry,
		})
		if err != nil {
			return err
		}
	}
	if mode.Receives() {
		inbound := ring.New[midi.Event](cfg.QueueSize)
		inQ = inbound
		receiver, err = transport.Listen(cfg.ReceiveFrom, inbound, transport.ReceiverOptions{
			Codec:       codec,
			Policy:      policy,
			ReadTimeout: cfg.ReadTimeout,
			Logger:      logger,
			Registry:    registry,
		})
		if err != nil {
			if sender != nil {
				sender.Close()
			}
			return err
		}
	}

	b, err := bridge.New(ports, outQ, inQ, bridge.Options{
		MaxEvents: cfg.MaxEvents,
		Stats:     bridge.NewStats(registry),
	})
	if err == nil {
		err = errors.Wrap(dev.Activate(b), "activate device")
	}
	if err != nil {
		if sender != nil {
			sender.Close()
		}
		if receiver != nil {
			receiver.Close()
		}
		return err
	}

	g := worker.NewGroup(ctx, logger)
	if sender != nil {
		g.Go("sender", sender)
	}
	if receiver != nil {
		g.Go("receiver", receiver)
	}
	g.Go("monitor", bridge.NewMonitor(registry, cfg.StatsInterval,
		logger.With().Str("component", "monitor").Logger()))
	if t, ok := dev.(worker.Task); ok {
		g.Go("device", t)
	}

	logger.Info().
		Str("mode", mode.String()).
		Int("ports", cfg.Count).
		Str("backend", cfg.Backend).
		Str("name", cfg.Name).
		Msg("running")

	<-g.Context().Done()
	logger.Info().Msg("shutting down")
	b.Stop()
	if outbound != nil {
		outbound.Close()
	}
	return g.Wait()
}
