package slotstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CommandRunner runs an external program to completion.
type CommandRunner func(ctx context.Context, stderr io.Writer, name string, args ...string) error

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, stderr io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = stderr
	return cmd.Run()
}

// OpenOCDConfig configures the OpenOCD transport.
type OpenOCDConfig struct {
	// Binary is the openocd executable (default "openocd").
	Binary string

	// BaseArgs select the interface and target, e.g.
	// "-f interface/stlink.cfg -f target/stm32f4x.cfg".
	BaseArgs []string

	// FlashBase is the memory-mapped address of the flash bank. Erase uses
	// absolute addresses; bank reads and writes use bank offsets.
	FlashBase uint32

	// Bank is the flash bank number.
	Bank int

	// TempDir holds the transfer files (default os.TempDir()).
	TempDir string

	// Stderr receives openocd diagnostics (default io.Discard).
	Stderr io.Writer

	// Logger is the optional logger for debug output.
	Logger *slog.Logger

	// Runner executes openocd (default ExecRunner).
	Runner CommandRunner
}

// OpenOCDTransport drives a hardware debug probe through the openocd CLI.
// Each operation is a separate openocd invocation that halts the target,
// performs the flash command and shuts down.
type OpenOCDTransport struct {
	cfg OpenOCDConfig
}

// NewOpenOCDTransport creates a transport, applying defaults.
func NewOpenOCDTransport(cfg OpenOCDConfig) *OpenOCDTransport {
	if cfg.Binary == "" {
		cfg.Binary = "openocd"
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.Stderr == nil {
		cfg.Stderr = io.Discard
	}
	if cfg.Runner == nil {
		cfg.Runner = ExecRunner
	}
	return &OpenOCDTransport{cfg: cfg}
}

// ReadRegion dumps the range to a temporary file and reads it back.
func (o *OpenOCDTransport) ReadRegion(ctx context.Context, offset, length uint32) ([]byte, error) {
	path, cleanup, err := o.tempFile("read", nil)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := o.run(ctx, fmt.Sprintf("flash read_bank %d %s 0x%08x 0x%x", o.cfg.Bank, path, offset, length)); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// EraseRegion erases the range. The range must be sector aligned.
func (o *OpenOCDTransport) EraseRegion(ctx context.Context, offset, length uint32) error {
	return o.run(ctx, fmt.Sprintf("flash erase_address 0x%08x 0x%x", o.cfg.FlashBase+offset, length))
}

// WriteRegion stages data in a temporary file and programs it at offset.
func (o *OpenOCDTransport) WriteRegion(ctx context.Context, offset uint32, data []byte) error {
	path, cleanup, err := o.tempFile("write", data)
	if err != nil {
		return err
	}
	defer cleanup()

	return o.run(ctx, fmt.Sprintf("flash write_bank %d %s 0x%x", o.cfg.Bank, path, offset))
}

// Args returns the openocd arguments for a flash command.
func (o *OpenOCDTransport) Args(flashCmd string) []string {
	script := strings.Join([]string{"init", "reset halt", flashCmd, "reset halt", "shutdown"}, "; ")
	args := append([]string(nil), o.cfg.BaseArgs...)
	return append(args, "-c", script)
}

func (o *OpenOCDTransport) run(ctx context.Context, flashCmd string) error {
	args := o.Args(flashCmd)
	if o.cfg.Logger != nil {
		o.cfg.Logger.Debug("openocd", "cmd", flashCmd)
	}
	if err := o.cfg.Runner(ctx, o.cfg.Stderr, o.cfg.Binary, args...); err != nil {
		return fmt.Errorf("openocd %q: %w", flashCmd, err)
	}
	return nil
}

func (o *OpenOCDTransport) tempFile(prefix string, data []byte) (string, func(), error) {
	f, err := os.CreateTemp(o.cfg.TempDir, "openocd-"+prefix+"-*.bin")
	if err != nil {
		return "", nil, err
	}
	path := filepath.ToSlash(f.Name())
	cleanup := func() { _ = os.Remove(f.Name()) }

	if data != nil {
		if _, err := f.Write(data); err != nil {
			f.Close()
			cleanup()
			return "", nil, err
		}
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}

// Compile-time interface satisfaction check.
var _ Transport = (*OpenOCDTransport)(nil)
