package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lucasdietrich/caniot-creds/pkg/creds"
	"github.com/lucasdietrich/caniot-creds/pkg/persistence"
	"github.com/lucasdietrich/caniot-creds/pkg/slotstore"
	"github.com/lucasdietrich/caniot-creds/pkg/source"
)

// RunList reads the region and prints every slot's classification.
func RunList(ctx context.Context, env *Env, opts ListOptions, out io.Writer) error {
	records, err := env.Prov.Inspect(ctx)
	if err != nil && !errors.Is(err, slotstore.ErrTruncatedRead) {
		return err
	}
	if ferr := formatRecords(out, records, opts); ferr != nil {
		return ferr
	}
	return err
}

// RunErase wipes the region and forgets any recorded reports.
func RunErase(ctx context.Context, env *Env, statePath string, out io.Writer) error {
	if err := env.Prov.Erase(ctx); err != nil {
		return err
	}
	if statePath != "" {
		if err := persistence.NewReportStore(statePath).Clear(); err != nil {
			env.Logger.Warn("failed to clear report state", "path", statePath, "error", err)
		}
	}
	_, err := fmt.Fprintf(out, "erased %s\n", env.Store.Geometry())
	return err
}

// RunVerify checks the region against the reports recorded in statePath.
func RunVerify(ctx context.Context, env *Env, statePath string, out io.Writer) error {
	store := persistence.NewReportStore(statePath)
	state, err := store.Load()
	if err != nil {
		return err
	}
	if state == nil || len(state.Sessions) == 0 {
		return fmt.Errorf("no provisioning report in %s", statePath)
	}
	if g := state.Geometry.Geometry(); g != env.Store.Geometry() {
		return fmt.Errorf("report was written for %s, target is %s", g, env.Store.Geometry())
	}

	entries, err := store.Entries()
	if err != nil {
		return err
	}
	mismatches, err := env.Prov.Verify(ctx, entries)
	if err != nil {
		return err
	}
	if len(mismatches) > 0 {
		formatMismatches(out, mismatches)
		return fmt.Errorf("%d of %d slots failed verification", len(mismatches), len(entries))
	}
	_, err = fmt.Fprintf(out, "%d slots verified\n", len(entries))
	return err
}

// DumpOptions configures RunDump.
type DumpOptions struct {
	// Slot limits the dump to one slot. Negative means the whole region.
	Slot int

	// Raw writes the binary region to Output instead of a hexdump.
	Raw bool

	// Output is the destination file. Empty means the command's writer.
	Output string
}

// RunDump writes the region, or one slot, as a hexdump or raw bytes.
func RunDump(ctx context.Context, env *Env, opts DumpOptions, out io.Writer) error {
	geom := env.Store.Geometry()
	raw, err := env.Store.ReadRegion(ctx)
	if err != nil {
		return err
	}

	base := geom.Offset
	if opts.Slot >= 0 {
		if opts.Slot >= geom.SlotCount() {
			return &slotstore.IndexOutOfRangeError{Index: opts.Slot, Count: geom.SlotCount()}
		}
		start := opts.Slot * int(geom.SlotSize)
		end := start + int(geom.SlotSize)
		if end > len(raw) {
			return &slotstore.TruncatedReadError{Got: len(raw) / int(geom.SlotSize), Expected: geom.SlotCount()}
		}
		raw = raw[start:end]
		base = geom.SlotOffset(opts.Slot)
	}

	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if opts.Raw {
		_, err = out.Write(raw)
		return err
	}
	return writeHexdump(out, base, raw)
}

// RunShow prints one slot in detail.
func RunShow(ctx context.Context, env *Env, slot int, out io.Writer) error {
	records, err := env.Prov.Inspect(ctx)
	if err != nil && !errors.Is(err, slotstore.ErrTruncatedRead) {
		return err
	}
	if slot < 0 || slot >= len(records) {
		return &slotstore.IndexOutOfRangeError{Index: slot, Count: len(records)}
	}
	formatRecordDetail(out, env.Store.Geometry(), records[slot])
	return nil
}

func formatRecordDetail(w io.Writer, geom slotstore.Geometry, r creds.Record) {
	fmt.Fprintf(w, "Slot %d @ 0x%08x: %s\n", r.Slot, geom.SlotOffset(r.Slot), r.Status)
	if r.Status == creds.StatusUnallocated {
		return
	}
	fmt.Fprintf(w, "  ID:       %s (0x%02x, %s)\n", r.ID, uint8(r.ID), r.ID.Subsystem())
	fmt.Fprintf(w, "  Format:   %s\n", r.Format)
	fmt.Fprintf(w, "  Strength: %d\n", r.Strength)
	fmt.Fprintf(w, "  Version:  %d\n", r.Version)
	fmt.Fprintf(w, "  Size:     %d / %d bytes\n", r.Size, geom.PayloadCapacity())
	fmt.Fprintf(w, "  CRC32:    %08x\n", r.CRC32)
	if r.Revoked {
		fmt.Fprintln(w, "  Revoked:  yes")
	}
	if r.Valid() {
		if s := source.Summary(r.Format, r.Data); s != "" {
			fmt.Fprintf(w, "  Content:  %s\n", s)
		}
	}
}
