// Package interactive provides the creds-tool interactive console.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/lucasdietrich/caniot-creds/cmd/creds-tool/commands"
)

// Shell runs commands against one opened target.
type Shell struct {
	env       *commands.Env
	statePath string
	rl        *readline.Instance
	out       io.Writer

	// armed is set by "erase" and cleared by anything but "erase yes".
	armed bool
}

// New creates a shell over env. statePath is the report file used by
// provision, verify and erase.
func New(env *commands.Env, statePath string) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "creds> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Shell{env: env, statePath: statePath, rl: rl, out: rl.Stdout()}, nil
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("list", readline.PcItem("all"), readline.PcItem("verbose")),
		readline.PcItem("show"),
		readline.PcItem("dump"),
		readline.PcItem("provision"),
		readline.PcItem("verify"),
		readline.PcItem("erase"),
		readline.PcItem("target"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (s *Shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (s *Shell) Stderr() io.Writer {
	return s.rl.Stderr()
}

// Run reads commands until EOF, "quit" or ctx is done.
func (s *Shell) Run(ctx context.Context) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			return
		}

		if !s.Exec(ctx, line) {
			return
		}
	}
}

// Exec runs one command line and reports whether the shell should continue.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	out := s.out
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	armed := s.armed
	s.armed = false

	var err error
	switch cmd {
	case "help", "?":
		s.printHelp()

	case "list", "ls", "l":
		opts := commands.ListOptions{}
		for _, a := range args {
			switch a {
			case "all", "-a":
				opts.All = true
			case "verbose", "-v":
				opts.Verbose = true
			}
		}
		err = commands.RunList(ctx, s.env, opts, out)

	case "show", "s":
		var slot int
		if slot, err = slotArg(args); err == nil {
			err = commands.RunShow(ctx, s.env, slot, out)
		}

	case "dump", "d":
		slot := -1
		if len(args) > 0 {
			slot, err = slotArg(args)
		}
		if err == nil {
			err = commands.RunDump(ctx, s.env, commands.DumpOptions{Slot: slot}, out)
		}

	case "provision", "p":
		if len(args) < 1 {
			fmt.Fprintln(out, "Usage: provision <manifest> [erase] [verify]")
			break
		}
		opts := commands.ProvisionOptions{Manifest: args[0], StatePath: s.statePath}
		for _, a := range args[1:] {
			switch a {
			case "erase":
				opts.Erase = true
			case "verify":
				opts.Verify = true
			case "dry-run":
				opts.DryRun = true
			}
		}
		err = commands.RunProvision(ctx, s.env, opts, out)

	case "verify", "v":
		err = commands.RunVerify(ctx, s.env, s.statePath, out)

	case "erase":
		if !armed || len(args) != 1 || args[0] != "yes" {
			fmt.Fprintf(out, "This erases %s. Type 'erase yes' to confirm.\n", s.env.Store.Geometry())
			s.armed = true
			break
		}
		err = commands.RunErase(ctx, s.env, s.statePath, out)

	case "target", "t":
		fmt.Fprintf(out, "%s via %s\n", s.env.Target, s.env.Backend())

	case "quit", "exit", "q":
		fmt.Fprintln(out, "Exiting...")
		return false

	default:
		fmt.Fprintf(out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}

	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
	}
	return true
}

func slotArg(args []string) (int, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("slot number required")
	}
	slot, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid slot %q", args[0])
	}
	return slot, nil
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
Credential Store Commands:
  Inspection:
    list [all] [verbose]   - List allocated slots (all: include free slots)
    show <slot>            - Show one slot in detail
    dump [slot]            - Hexdump the region or one slot
    target                 - Show the target geometry

  Provisioning:
    provision <manifest> [erase] [verify] [dry-run]
                           - Write the manifest's credentials into free slots
    verify                 - Check the device against the recorded reports
    erase                  - Erase the whole region (asks for confirmation)

  Other:
    help                   - Show this help
    quit                   - Exit`)
}
