package interactive

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasdietrich/caniot-creds/cmd/creds-tool/commands"
)

func newTestShell(t *testing.T) (*Shell, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	env, err := commands.OpenEnv(commands.EnvOptions{
		ImagePath: filepath.Join(dir, "flash.bin"),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { env.Close() })

	var buf bytes.Buffer
	return &Shell{env: env, statePath: filepath.Join(dir, "state.json"), out: &buf}, &buf
}

func TestExecCommands(t *testing.T) {
	sh, out := newTestShell(t)
	ctx := context.Background()

	assert.True(t, sh.Exec(ctx, "   "))
	assert.Empty(t, out.String())

	assert.True(t, sh.Exec(ctx, "target"))
	assert.Contains(t, out.String(), "32 slots of 0x1000 bytes")
	assert.Contains(t, out.String(), "via image:")

	out.Reset()
	assert.True(t, sh.Exec(ctx, "list all"))
	assert.Contains(t, out.String(), "0/32 slots allocated")
	assert.Contains(t, out.String(), "UNALLOCATED")

	out.Reset()
	assert.True(t, sh.Exec(ctx, "show 31"))
	assert.Contains(t, out.String(), "Slot 31 @ 0x001ff000: UNALLOCATED")

	out.Reset()
	assert.True(t, sh.Exec(ctx, "show x"))
	assert.Contains(t, out.String(), `Error: invalid slot "x"`)

	out.Reset()
	assert.True(t, sh.Exec(ctx, "dump 40"))
	assert.Contains(t, out.String(), "Error:")

	out.Reset()
	assert.True(t, sh.Exec(ctx, "provision"))
	assert.Contains(t, out.String(), "Usage: provision")

	out.Reset()
	assert.True(t, sh.Exec(ctx, "verify"))
	assert.Contains(t, out.String(), "Error: no provisioning report")

	out.Reset()
	assert.True(t, sh.Exec(ctx, "frobnicate"))
	assert.Contains(t, out.String(), "Unknown command: frobnicate")

	out.Reset()
	assert.False(t, sh.Exec(ctx, "quit"))
}

func TestEraseNeedsConfirmation(t *testing.T) {
	sh, out := newTestShell(t)
	ctx := context.Background()

	sh.Exec(ctx, "erase yes")
	assert.Contains(t, out.String(), "Type 'erase yes' to confirm")
	assert.NotContains(t, out.String(), "erased region")

	out.Reset()
	sh.Exec(ctx, "erase yes")
	assert.Contains(t, out.String(), "erased region")

	// Any other command disarms the confirmation.
	out.Reset()
	sh.Exec(ctx, "erase")
	sh.Exec(ctx, "list")
	sh.Exec(ctx, "erase yes")
	assert.NotContains(t, out.String(), "erased region")
}
