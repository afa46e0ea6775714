// Package commands implements the creds-tool CLI commands.
package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/lucasdietrich/caniot-creds/pkg/log"
	"github.com/lucasdietrich/caniot-creds/pkg/provision"
	"github.com/lucasdietrich/caniot-creds/pkg/slotstore"
	"github.com/lucasdietrich/caniot-creds/pkg/target"
)

// EnvOptions selects the target and how to reach it.
type EnvOptions struct {
	// TargetPath is a target YAML file. Empty means the STM32F4 defaults.
	TargetPath string

	// ImagePath selects a raw flash image instead of the programmer.
	ImagePath string

	// EventLog is an optional CBOR event log to append to.
	EventLog string

	// Logger receives operational messages. Defaults to slog.Default().
	Logger *slog.Logger

	// Stderr receives programmer diagnostics.
	Stderr io.Writer
}

// Env is an opened target shared by the device commands.
type Env struct {
	Target target.Config
	Store  *slotstore.Store
	Prov   *provision.Provisioner
	Logger *slog.Logger

	backend string
	events  *log.FileLogger
}

// OpenEnv loads the target and wires the store, the provisioner and the
// event loggers.
func OpenEnv(opts EnvOptions) (*Env, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cfg := target.Default()
	if opts.TargetPath != "" {
		var err error
		if cfg, err = target.Load(opts.TargetPath); err != nil {
			return nil, err
		}
	}

	var transport slotstore.Transport
	backend := "openocd"
	if opts.ImagePath != "" {
		transport = cfg.ImageTransport(opts.ImagePath)
		backend = "image:" + opts.ImagePath
	} else {
		transport = cfg.OpenOCDTransport(opts.Stderr, opts.Logger)
	}

	store, err := slotstore.NewStore(cfg.Geometry(), transport)
	if err != nil {
		return nil, err
	}

	env := &Env{
		Target:  cfg,
		Store:   store,
		Logger:  opts.Logger,
		backend: backend,
	}

	var events log.Logger = log.NewSlogAdapter(opts.Logger)
	if opts.EventLog != "" {
		fl, err := log.NewFileLogger(opts.EventLog)
		if err != nil {
			return nil, fmt.Errorf("open event log: %w", err)
		}
		env.events = fl
		events = log.NewMultiLogger(events, fl)
	}

	env.Prov, err = provision.New(provision.Config{
		Store:  store,
		Logger: events,
		Target: cfg.Name + " (" + backend + ")",
	})
	if err != nil {
		env.Close()
		return nil, err
	}
	return env, nil
}

// Backend describes how the target is reached.
func (e *Env) Backend() string {
	return e.backend
}

// Close flushes and closes the event log.
func (e *Env) Close() error {
	if e.events == nil {
		return nil
	}
	return errors.Join(e.events.Err(), e.events.Close())
}
