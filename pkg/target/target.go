// Package target describes the device being provisioned: where the credential
// region lives in flash and how to reach it with a programmer.
package target

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lucasdietrich/caniot-creds/pkg/slotstore"
)

// ErrInvalidConfig is returned for target configurations that fail validation.
var ErrInvalidConfig = errors.New("invalid target configuration")

// STM32F4 defaults. The last 128 KiB of the 2 MiB bank hold 32 slots of one
// 4 KiB page each.
const (
	DefaultFlashBase = 0x08000000
	DefaultFlashSize = 0x200000
	DefaultOffset    = 0x1e0000
	DefaultSize      = 0x20000
)

// Config is a target description, usually loaded from YAML:
//
//	name: stm32f429zi
//	flash_base: 0x08000000
//	flash_size: 0x200000
//	offset: 0x1e0000
//	size: 0x20000
//	slot_size: 0x1000
//	openocd:
//	  args: -f interface/stlink.cfg -f target/stm32f4x.cfg
type Config struct {
	Name string `yaml:"name"`

	// FlashBase is the memory-mapped address of the flash bank.
	FlashBase uint32 `yaml:"flash_base"`

	// FlashSize is the bank size. Zero means "large enough for the region".
	FlashSize uint32 `yaml:"flash_size"`

	// Offset and Size locate the credential region within the bank.
	Offset uint32 `yaml:"offset"`
	Size   uint32 `yaml:"size"`

	SlotSize uint32 `yaml:"slot_size"`

	OpenOCD OpenOCD `yaml:"openocd"`
}

// OpenOCD holds programmer settings.
type OpenOCD struct {
	Binary  string `yaml:"binary"`
	Args    Args   `yaml:"args"`
	Bank    int    `yaml:"bank"`
	TempDir string `yaml:"temp_dir"`
}

// Args is a list of command-line arguments. In YAML it is either a sequence
// or a single whitespace-separated string.
type Args []string

// UnmarshalYAML accepts a scalar or a sequence.
func (a *Args) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*a = strings.Fields(value.Value)
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*a = list
		return nil
	default:
		return fmt.Errorf("line %d: args must be a string or a list", value.Line)
	}
}

// Default returns the STM32F4 target used by the firmware.
func Default() Config {
	return Config{
		Name:      "stm32f4",
		FlashBase: DefaultFlashBase,
		FlashSize: DefaultFlashSize,
		Offset:    DefaultOffset,
		Size:      DefaultSize,
		SlotSize:  slotstore.DefaultSlotSize,
		OpenOCD: OpenOCD{
			Binary: "openocd",
			Args:   Args{"-f", "interface/stlink.cfg", "-f", "target/stm32f4x.cfg"},
		},
	}
}

// Load reads a target file. Fields it leaves out keep their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read target: %w", err)
	}
	return Parse(data)
}

// Parse decodes target YAML over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the region geometry and that it fits in the bank.
func (c Config) Validate() error {
	if err := c.Geometry().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.FlashSize > 0 && uint64(c.Offset)+uint64(c.Size) > uint64(c.FlashSize) {
		return fmt.Errorf("%w: region 0x%x+0x%x exceeds flash size 0x%x",
			ErrInvalidConfig, c.Offset, c.Size, c.FlashSize)
	}
	if uint64(c.FlashBase)+uint64(c.Offset)+uint64(c.Size) > 1<<32 {
		return fmt.Errorf("%w: region end overflows the address space", ErrInvalidConfig)
	}
	if c.OpenOCD.Bank < 0 {
		return fmt.Errorf("%w: negative flash bank %d", ErrInvalidConfig, c.OpenOCD.Bank)
	}
	return nil
}

// Geometry returns the slot geometry of the credential region.
func (c Config) Geometry() slotstore.Geometry {
	return slotstore.Geometry{Offset: c.Offset, RegionSize: c.Size, SlotSize: c.SlotSize}
}

// BankSize returns the size of the flash bank, or the smallest bank that
// holds the region when FlashSize is not set.
func (c Config) BankSize() uint32 {
	if c.FlashSize > 0 {
		return c.FlashSize
	}
	return c.Offset + c.Size
}

// ImageTransport returns a transport over a raw bank image file.
func (c Config) ImageTransport(path string) *slotstore.FileTransport {
	return slotstore.NewFileTransport(path, c.BankSize())
}

// OpenOCDTransport returns a transport that drives the programmer.
func (c Config) OpenOCDTransport(stderr io.Writer, logger *slog.Logger) *slotstore.OpenOCDTransport {
	return slotstore.NewOpenOCDTransport(slotstore.OpenOCDConfig{
		Binary:    c.OpenOCD.Binary,
		BaseArgs:  c.OpenOCD.Args,
		FlashBase: c.FlashBase,
		Bank:      c.OpenOCD.Bank,
		TempDir:   c.OpenOCD.TempDir,
		Stderr:    stderr,
		Logger:    logger,
	})
}

// String returns a one-line summary.
func (c Config) String() string {
	return fmt.Sprintf("%s: flash 0x%08x, %s", c.Name, c.FlashBase, c.Geometry())
}
