package commands

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/lucasdietrich/caniot-creds/pkg/creds"
	"github.com/lucasdietrich/caniot-creds/pkg/provision"
	"github.com/lucasdietrich/caniot-creds/pkg/source"
)

// formatEntries writes a table of written slots.
func formatEntries(w io.Writer, entries []provision.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tNAME\tID\tFORMAT\tSIZE\tCRC32")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%08x\n", e.Slot, e.Name, e.ID, e.Format, e.Size, e.CRC32)
	}
	return tw.Flush()
}

// ListOptions controls formatRecords.
type ListOptions struct {
	// All includes unallocated slots.
	All bool

	// Verbose adds a description of each valid payload.
	Verbose bool
}

// formatRecords writes a table of classified slots followed by a usage line.
func formatRecords(w io.Writer, records []creds.Record, opts ListOptions) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := "SLOT\tSTATUS\tID\tFORMAT\tSTR\tVER\tSIZE\tCRC32"
	if opts.Verbose {
		header += "\tCONTENT"
	}
	fmt.Fprintln(tw, header)

	used := 0
	for _, r := range records {
		if r.Status != creds.StatusUnallocated {
			used++
		} else if !opts.All {
			continue
		}
		fmt.Fprint(tw, formatRecord(r))
		if opts.Verbose {
			fmt.Fprintf(tw, "\t%s", source.Summary(r.Format, r.Data))
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d/%d slots allocated\n", used, len(records))
	return err
}

func formatRecord(r creds.Record) string {
	switch r.Status {
	case creds.StatusUnallocated:
		return fmt.Sprintf("%d\t%s\t-\t-\t-\t-\t-\t-", r.Slot, r.Status)
	case creds.StatusValid, creds.StatusRevoked, creds.StatusCRCError, creds.StatusSizeError:
		return fmt.Sprintf("%d\t%s\t%s\t%s\t%d\t%d\t%d\t%08x",
			r.Slot, r.Status, r.ID, r.Format, r.Strength, r.Version, r.Size, r.CRC32)
	default:
		return fmt.Sprintf("%d\t%s\t-\t-\t-\t-\t-\t-", r.Slot, r.Status)
	}
}

// formatMismatches writes one line per failed slot.
func formatMismatches(w io.Writer, mismatches []provision.Mismatch) {
	for _, m := range mismatches {
		fmt.Fprintf(w, "slot %d (%s, %s): %s\n", m.Entry.Slot, m.Entry.Name, m.Entry.ID, m.Reason)
	}
}

// writeHexdump writes data in the layout of `hexdump -C`, with offsets
// starting at base. Repeated lines are collapsed into a single "*".
func writeHexdump(w io.Writer, base uint32, data []byte) error {
	bw := bufio.NewWriter(w)
	var prev []byte
	repeating := false
	for off := 0; off < len(data); off += 16 {
		line := data[off:min(off+16, len(data))]
		if len(line) == 16 && bytes.Equal(line, prev) {
			if !repeating {
				bw.WriteString("*\n")
				repeating = true
			}
			continue
		}
		repeating = false
		prev = line

		fmt.Fprintf(bw, "%08x  ", base+uint32(off))
		for i := 0; i < 16; i++ {
			if i < len(line) {
				fmt.Fprintf(bw, "%02x ", line[i])
			} else {
				bw.WriteString("   ")
			}
			if i == 7 {
				bw.WriteByte(' ')
			}
		}
		bw.WriteString(" |")
		for _, b := range line {
			if b < 0x20 || b > 0x7e {
				b = '.'
			}
			bw.WriteByte(b)
		}
		bw.WriteString("|\n")
	}
	fmt.Fprintf(bw, "%08x\n", base+uint32(len(data)))
	return bw.Flush()
}
