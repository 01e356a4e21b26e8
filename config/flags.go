package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrUsage wraps every command line error that should print usage.
var ErrUsage = errors.New("usage")

// endpoint is a flag that may be given bare (-s) or with a value (-s=host:port).
type endpoint struct {
	value *string
}

func (e endpoint) String() string {
	if e.value == nil {
		return ""
	}
	return *e.value
}

func (e endpoint) Set(v string) error {
	switch v {
	case "true":
		*e.value = DefaultEndpoint
	case "false":
		*e.value = ""
	default:
		*e.value = v
	}
	return nil
}

func (endpoint) IsBoolFlag() bool { return true }

// Parse builds a Config from command line arguments. The -config file, if
// any, is applied over Default and every flag given on the command line wins
// over the file. Flag syntax errors and a missing direction are wrapped
// around ErrUsage, -h is reported as flag.ErrHelp.
func Parse(name string, args []string, output io.Writer) (Config, error) {
	var (
		flags      Config
		configPath string
	)

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() { usage(fs, name) }

	def := Default()
	send, recv := endpoint{&flags.SendTo}, endpoint{&flags.ReceiveFrom}
	fs.Var(send, "s", "send MIDI from the device to `ADDR:PORT` (bare -s uses "+DefaultEndpoint+")")
	fs.Var(send, "send-to", "same as -s")
	fs.StringVar(&flags.SendFrom, "send-from", def.SendFrom, "bind the sending socket to `ADDR:PORT`")
	fs.Var(recv, "r", "receive MIDI for the device on `ADDR:PORT` (bare -r uses "+DefaultEndpoint+")")
	fs.Var(recv, "receive-from", "same as -r")
	fs.StringVar(&flags.Name, "n", def.Name, "device client `name`")
	fs.StringVar(&flags.Name, "name", def.Name, "same as -n")
	fs.IntVar(&flags.Count, "c", def.Count, "number of ports per direction (1-255)")
	fs.IntVar(&flags.Count, "count", def.Count, "same as -c")
	fs.StringVar(&configPath, "config", "", "TOML configuration `file`")
	fs.StringVar(&flags.Backend, "backend", def.Backend, "device backend: "+strings.Join(Backends, ", "))
	fs.StringVar(&flags.Address, "address", def.Address, "OSC `address` for MIDI messages")
	fs.BoolVar(&flags.AcceptBundles, "accept-bundles", def.AcceptBundles, "unpack MIDI messages from OSC bundles")
	fs.IntVar(&flags.QueueSize, "queue", def.QueueSize, "queue capacity per direction")
	fs.StringVar(&flags.Unmatched, "unmatched", def.Unmatched, "report unmatched packets: "+strings.Join(Policies, ", "))
	fs.DurationVar(&flags.StatsInterval, "stats-interval", def.StatsInterval, "how often to log counters, 0 to disable")
	fs.StringVar(&flags.LogLevel, "log-level", def.LogLevel, "minimum log `level`")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return Config{}, err
		}
		return Config{}, errors.Wrap(ErrUsage, err.Error())
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return Config{}, errors.Wrapf(ErrUsage, "unexpected argument %q (use -s=ADDR:PORT)", fs.Arg(0))
	}

	cfg := def
	if configPath != "" {
		if err := cfg.overlay(configPath); err != nil {
			return Config{}, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "s", "send-to":
			cfg.SendTo = flags.SendTo
		case "send-from":
			cfg.SendFrom = flags.SendFrom
		case "r", "receive-from":
			cfg.ReceiveFrom = flags.ReceiveFrom
		case "n", "name":
			cfg.Name = flags.Name
		case "c", "count":
			cfg.Count = flags.Count
		case "backend":
			cfg.Backend = flags.Backend
		case "address":
			cfg.Address = flags.Address
		case "accept-bundles":
			cfg.AcceptBundles = flags.AcceptBundles
		case "queue":
			cfg.QueueSize = flags.QueueSize
		case "unmatched":
			cfg.Unmatched = flags.Unmatched
		case "stats-interval":
			cfg.StatsInterval = flags.StatsInterval
		case "log-level":
			cfg.LogLevel = flags.LogLevel
		}
	})

	if err := cfg.Validate(); err != nil {
		if errors.Cause(err) == ErrNoTransport {
			fs.Usage()
			return Config{}, errors.Wrap(ErrUsage, err.Error())
		}
		return Config{}, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

func usage(fs *flag.FlagSet, name string) {
	w := fs.Output()
	fmt.Fprintf(w, "Usage: %s [-s[=ADDR:PORT]] [-r[=ADDR:PORT]] [-n NAME] [-c COUNT] [options]\n\n", name)
	fmt.Fprintf(w, "Bridges MIDI device ports and OSC over UDP. At least one of -s and -r is required.\n")
	fmt.Fprintf(w, "Backends in this build: %s (jack and rtmidi need -tags jack or -tags rtmidi).\n\n",
		strings.Join(BuiltBackends(), ", "))
	fs.PrintDefaults()
}

// String summarises the configuration for the startup log.
func (c Config) String() string {
	return fmt.Sprintf("name=%s send_to=%q receive_from=%q count=%d backend=%s address=%s queue=%d stats=%s",
		c.Name, c.SendTo, c.ReceiveFrom, c.Count, c.Backend, c.Address, c.QueueSize, c.StatsInterval.Round(time.Millisecond))
}
