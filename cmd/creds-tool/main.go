// Command creds-tool provisions and inspects the credential region of a
// device's flash.
//
// The region is reached either through an OpenOCD-driven debug probe or
// through a raw flash image file (-image). The target layout defaults to the
// STM32F4 firmware and can be overridden with a YAML file (-target).
//
// Usage:
//
//	creds-tool <command> [flags]
//
// Commands:
//
//	provision  Write the credentials listed in a manifest into free slots
//	list       List slots and their status
//	show       Describe one slot
//	erase      Erase the whole credential region
//	verify     Check the device against recorded provisioning reports
//	dump       Hexdump the region or one slot
//	shell      Interactive console
//	log        View a provisioning event log
//
// Examples:
//
//	# Erase, provision and verify a board
//	creds-tool provision -erase -verify creds.yaml
//
//	# Build a flash image offline and inspect it
//	creds-tool provision -image flash.bin -erase creds.yaml
//	creds-tool list -image flash.bin -v
//
//	# Show what was written in the last sessions
//	creds-tool log -category slot events.clog
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/lucasdietrich/caniot-creds/cmd/creds-tool/commands"
	"github.com/lucasdietrich/caniot-creds/cmd/creds-tool/interactive"
)

const usage = `creds-tool - Credential Slot Store provisioning tool

Usage:
  creds-tool <command> [flags]

Commands:
  provision  Write the credentials listed in a manifest into free slots
  list       List slots and their status
  show       Describe one slot
  erase      Erase the whole credential region
  verify     Check the device against recorded provisioning reports
  dump       Hexdump the region or one slot
  shell      Interactive console
  log        View a provisioning event log

Use "creds-tool <command> -help" for more information about a command.
`

const defaultStatePath = ".creds/reports.json"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "provision":
		err = runProvision(ctx, args)
	case "list":
		err = runList(ctx, args)
	case "show":
		err = runShow(ctx, args)
	case "erase":
		err = runErase(ctx, args)
	case "verify":
		err = runVerify(ctx, args)
	case "dump":
		err = runDump(ctx, args)
	case "shell":
		err = runShell(ctx, args)
	case "log":
		err = runLog(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	if err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// deviceFlags are shared by every command that talks to a target.
type deviceFlags struct {
	target   *string
	image    *string
	eventLog *string
	logLevel *string
	verbose  *bool
}

func addDeviceFlags(fs *flag.FlagSet) deviceFlags {
	return deviceFlags{
		target:   fs.String("target", "", "Target YAML file (default: STM32F4 layout)"),
		image:    fs.String("image", "", "Use a raw flash image file instead of OpenOCD"),
		eventLog: fs.String("event-log", "", "Append provisioning events to this CBOR log file"),
		logLevel: fs.String("log-level", "info", "Log level (debug, info, warn, error)"),
		verbose:  fs.Bool("openocd-output", false, "Show OpenOCD diagnostics on stderr"),
	}
}

func (f deviceFlags) open() (*commands.Env, error) {
	if err := setLogLevel(*f.logLevel); err != nil {
		return nil, err
	}
	opts := commands.EnvOptions{
		TargetPath: *f.target,
		ImagePath:  *f.image,
		EventLog:   *f.eventLog,
	}
	if *f.verbose {
		opts.Stderr = os.Stderr
	}
	return commands.OpenEnv(opts)
}

func newFlagSet(name, synopsis, usageLine string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `creds-tool %s - %s

Usage:
  creds-tool %s

Flags:
`, name, synopsis, usageLine)
		fs.PrintDefaults()
	}
	return fs
}

func runProvision(ctx context.Context, args []string) error {
	fs := newFlagSet("provision", "Write the credentials listed in a manifest into free slots",
		"provision [flags] <manifest.yaml>")
	dev := addDeviceFlags(fs)
	erase := fs.Bool("erase", false, "Erase the region before provisioning")
	verify := fs.Bool("verify", false, "Read every written slot back")
	dryRun := fs.Bool("dry-run", false, "Provision an in-memory copy of the region only")
	state := fs.String("state", defaultStatePath, "Provisioning report file (empty disables)")
	dump := fs.Bool("dump", false, "Hexdump the region afterwards")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: manifest path required")
		fs.Usage()
		os.Exit(1)
	}

	env, err := dev.open()
	if err != nil {
		return err
	}
	defer env.Close()

	return commands.RunProvision(ctx, env, commands.ProvisionOptions{
		Manifest:  fs.Arg(0),
		Erase:     *erase,
		Verify:    *verify,
		DryRun:    *dryRun,
		StatePath: *state,
		Dump:      *dump,
	}, os.Stdout)
}

func runList(ctx context.Context, args []string) error {
	fs := newFlagSet("list", "List slots and their status", "list [flags]")
	dev := addDeviceFlags(fs)
	all := fs.Bool("a", false, "Include unallocated slots")
	verbose := fs.Bool("v", false, "Describe each valid payload")
	if err := fs.Parse(args); err != nil {
		return err
	}

	env, err := dev.open()
	if err != nil {
		return err
	}
	defer env.Close()

	return commands.RunList(ctx, env, commands.ListOptions{All: *all, Verbose: *verbose}, os.Stdout)
}

func runShow(ctx context.Context, args []string) error {
	fs := newFlagSet("show", "Describe one slot", "show [flags] <slot>")
	dev := addDeviceFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: slot number required")
		fs.Usage()
		os.Exit(1)
	}
	slot, err := strconv.Atoi(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid slot %q: %w", fs.Arg(0), err)
	}

	env, err := dev.open()
	if err != nil {
		return err
	}
	defer env.Close()

	return commands.RunShow(ctx, env, slot, os.Stdout)
}

func runErase(ctx context.Context, args []string) error {
	fs := newFlagSet("erase", "Erase the whole credential region", "erase [flags]")
	dev := addDeviceFlags(fs)
	state := fs.String("state", defaultStatePath, "Provisioning report file to clear")
	if err := fs.Parse(args); err != nil {
		return err
	}

	env, err := dev.open()
	if err != nil {
		return err
	}
	defer env.Close()

	return commands.RunErase(ctx, env, *state, os.Stdout)
}

func runVerify(ctx context.Context, args []string) error {
	fs := newFlagSet("verify", "Check the device against recorded provisioning reports", "verify [flags]")
	dev := addDeviceFlags(fs)
	state := fs.String("state", defaultStatePath, "Provisioning report file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	env, err := dev.open()
	if err != nil {
		return err
	}
	defer env.Close()

	return commands.RunVerify(ctx, env, *state, os.Stdout)
}

func runDump(ctx context.Context, args []string) error {
	fs := newFlagSet("dump", "Hexdump the region or one slot", "dump [flags]")
	dev := addDeviceFlags(fs)
	slot := fs.Int("slot", -1, "Dump only this slot")
	raw := fs.Bool("raw", false, "Write raw bytes instead of a hexdump")
	output := fs.String("o", "", "Output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	env, err := dev.open()
	if err != nil {
		return err
	}
	defer env.Close()

	return commands.RunDump(ctx, env, commands.DumpOptions{Slot: *slot, Raw: *raw, Output: *output}, os.Stdout)
}

func runShell(ctx context.Context, args []string) error {
	fs := newFlagSet("shell", "Interactive console", "shell [flags]")
	dev := addDeviceFlags(fs)
	state := fs.String("state", defaultStatePath, "Provisioning report file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	env, err := dev.open()
	if err != nil {
		return err
	}
	defer env.Close()

	sh, err := interactive.New(env, *state)
	if err != nil {
		return err
	}
	sh.Run(ctx)
	return nil
}

func runLog(args []string) error {
	fs := newFlagSet("log", "View a provisioning event log", "log [flags] <file.clog>")
	session := fs.String("session", "", "Filter by session ID")
	category := fs.String("category", "", "Filter by category (session, transport, slot, verify, error)")
	slot := fs.Int("slot", -1, "Filter by slot")
	since := fs.String("since", "", "Only events at or after this time (RFC3339)")
	until := fs.String("until", "", "Only events before this time (RFC3339)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}

	return commands.RunView(fs.Arg(0), commands.ViewOptions{
		SessionID: *session,
		Category:  *category,
		Slot:      *slot,
		Since:     *since,
		Until:     *until,
	}, os.Stdout)
}
