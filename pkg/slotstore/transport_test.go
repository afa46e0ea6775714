package slotstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTransport(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryTransport(64)

	t.Run("StartsErased", func(t *testing.T) {
		data, err := mem.ReadRegion(ctx, 0, 64)
		require.NoError(t, err)
		assert.Equal(t, bytes.Repeat([]byte{0xFF}, 64), data)
	})

	t.Run("ProgramClearsBitsOnly", func(t *testing.T) {
		require.NoError(t, mem.WriteRegion(ctx, 8, []byte{0xF0, 0x0F}))
		require.NoError(t, mem.WriteRegion(ctx, 8, []byte{0x3C, 0xFF}))

		data, err := mem.ReadRegion(ctx, 8, 2)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x30, 0x0F}, data)
	})

	t.Run("Erase", func(t *testing.T) {
		require.NoError(t, mem.EraseRegion(ctx, 0, 16))
		data, err := mem.ReadRegion(ctx, 8, 2)
		require.NoError(t, err)
		assert.Equal(t, []byte{0xFF, 0xFF}, data)
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		_, err := mem.ReadRegion(ctx, 60, 8)
		assert.ErrorIs(t, err, ErrOutOfBounds)
		assert.ErrorIs(t, mem.WriteRegion(ctx, 63, []byte{1, 2}), ErrOutOfBounds)
		assert.ErrorIs(t, mem.EraseRegion(ctx, 0xFFFFFFFF, 2), ErrOutOfBounds)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, mem.WriteRegion(cctx, 0, []byte{0}), context.Canceled)
	})

	t.Run("ReadReturnsCopy", func(t *testing.T) {
		data, err := mem.ReadRegion(ctx, 0, 4)
		require.NoError(t, err)
		data[0] = 0x00
		again, err := mem.ReadRegion(ctx, 0, 4)
		require.NoError(t, err)
		assert.Equal(t, byte(0xFF), again[0])
	})
}

func TestFileTransport(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "images", "bank.bin")
	ft := NewFileTransport(path, 0x4000)

	t.Run("MissingImageReadsErased", func(t *testing.T) {
		data, err := ft.ReadRegion(ctx, 0x1000, 0x100)
		require.NoError(t, err)
		assert.Equal(t, bytes.Repeat([]byte{0xFF}, 0x100), data)
	})

	t.Run("WriteCreatesPaddedImage", func(t *testing.T) {
		require.NoError(t, ft.WriteRegion(ctx, 0x2000, []byte{0x01, 0x02, 0x03}))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, int64(0x2003), info.Size())

		data, err := ft.ReadRegion(ctx, 0x1FFE, 5)
		require.NoError(t, err)
		assert.Equal(t, []byte{0xFF, 0xFF, 0x01, 0x02, 0x03}, data)
	})

	t.Run("ShortImageTailReadsErased", func(t *testing.T) {
		data, err := ft.ReadRegion(ctx, 0x2000, 0x1000)
		require.NoError(t, err)
		require.Len(t, data, 0x1000)
		assert.Equal(t, []byte{0x01, 0x02, 0x03}, data[:3])
		assert.Equal(t, bytes.Repeat([]byte{0xFF}, 0x1000-3), data[3:])
	})

	t.Run("EraseThenProgram", func(t *testing.T) {
		require.NoError(t, ft.EraseRegion(ctx, 0x2000, 0x2000))
		require.NoError(t, ft.WriteRegion(ctx, 0x2000, []byte{0xAA}))
		require.NoError(t, ft.WriteRegion(ctx, 0x2000, []byte{0x0F}))

		data, err := ft.ReadRegion(ctx, 0x2000, 2)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x0A, 0xFF}, data)
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		assert.ErrorIs(t, ft.WriteRegion(ctx, 0x3FFF, []byte{1, 2}), ErrOutOfBounds)
	})
}

// fakeOpenOCD records invocations and emulates read_bank by writing the
// transfer file named in the script.
type fakeOpenOCD struct {
	calls [][]string
	image []byte
	err   error
}

func (f *fakeOpenOCD) run(_ context.Context, _ io.Writer, name string, args ...string) error {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.err != nil {
		return f.err
	}
	script := args[len(args)-1]
	for _, cmd := range strings.Split(script, "; ") {
		fields := strings.Fields(cmd)
		if len(fields) >= 4 && fields[0] == "flash" && fields[1] == "read_bank" {
			if err := os.WriteFile(fields[3], f.image, 0644); err != nil {
				return err
			}
		}
	}
	return nil
}

func TestOpenOCDTransport(t *testing.T) {
	ctx := context.Background()
	fake := &fakeOpenOCD{image: []byte{0x10, 0x01, 0x00, 0x00}}
	oo := NewOpenOCDTransport(OpenOCDConfig{
		BaseArgs:  []string{"-f", "interface/stlink.cfg", "-f", "target/stm32f4x.cfg"},
		FlashBase: 0x08000000,
		TempDir:   t.TempDir(),
		Runner:    fake.run,
	})

	t.Run("Read", func(t *testing.T) {
		data, err := oo.ReadRegion(ctx, 0x1e0000, 0x20000)
		require.NoError(t, err)
		assert.Equal(t, fake.image, data)

		call := fake.calls[len(fake.calls)-1]
		assert.Equal(t, "openocd", call[0])
		assert.Equal(t, []string{"-f", "interface/stlink.cfg", "-f", "target/stm32f4x.cfg", "-c"}, call[1:6])
		assert.Contains(t, call[6], "flash read_bank 0 ")
		assert.Contains(t, call[6], " 0x001e0000 0x20000")
		assert.True(t, strings.HasPrefix(call[6], "init; reset halt; "))
		assert.True(t, strings.HasSuffix(call[6], "; reset halt; shutdown"))
	})

	t.Run("EraseUsesAbsoluteAddress", func(t *testing.T) {
		require.NoError(t, oo.EraseRegion(ctx, 0x1e0000, 0x20000))
		call := fake.calls[len(fake.calls)-1]
		assert.Contains(t, call[len(call)-1], "flash erase_address 0x081e0000 0x20000")
	})

	t.Run("WriteStagesData", func(t *testing.T) {
		require.NoError(t, oo.WriteRegion(ctx, 0x1e1000, []byte{1, 2, 3}))
		call := fake.calls[len(fake.calls)-1]
		assert.Contains(t, call[len(call)-1], "flash write_bank 0 ")
		assert.Contains(t, call[len(call)-1], " 0x1e1000")

		leftovers, err := filepath.Glob(filepath.Join(oo.cfg.TempDir, "openocd-*"))
		require.NoError(t, err)
		assert.Empty(t, leftovers)
	})

	t.Run("Failure", func(t *testing.T) {
		fake.err = errors.New("exit status 1")
		defer func() { fake.err = nil }()

		err := oo.EraseRegion(ctx, 0, 0x1000)
		require.Error(t, err)
		assert.ErrorIs(t, err, fake.err)
		assert.Contains(t, err.Error(), "erase_address")
	})
}
