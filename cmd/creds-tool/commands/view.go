package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lucasdietrich/caniot-creds/pkg/log"
)

// ViewOptions filters the events shown by RunView.
type ViewOptions struct {
	SessionID string
	Category  string
	Slot      int // negative means any slot
	Since     string
	Until     string
}

// Filter converts the options into a log.Filter.
func (o ViewOptions) Filter() (log.Filter, error) {
	f := log.Filter{SessionID: o.SessionID}
	if o.Category != "" {
		c, ok := log.ParseCategory(o.Category)
		if !ok {
			return f, fmt.Errorf("invalid category: %s (must be session, transport, slot, verify or error)", o.Category)
		}
		f.Category = &c
	}
	if o.Slot >= 0 {
		slot := o.Slot
		f.Slot = &slot
	}
	if o.Since != "" {
		t, err := time.Parse(time.RFC3339, o.Since)
		if err != nil {
			return f, fmt.Errorf("invalid -since: %w", err)
		}
		f.TimeStart = &t
	}
	if o.Until != "" {
		t, err := time.Parse(time.RFC3339, o.Until)
		if err != nil {
			return f, fmt.Errorf("invalid -until: %w", err)
		}
		f.TimeEnd = &t
	}
	return f, nil
}

// RunView prints a provisioning event log in human-readable form.
func RunView(path string, opts ViewOptions, output io.Writer) error {
	filter, err := opts.Filter()
	if err != nil {
		return err
	}
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
}

// formatEvent writes one event as a header line plus indented details.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	fmt.Fprintf(w, "%s [session:%s] %-9s", ts, shortenSessionID(event.SessionID), event.Category)
	if event.Target != "" {
		fmt.Fprintf(w, " %s", event.Target)
	}
	fmt.Fprintln(w)

	switch {
	case event.Session != nil:
		s := event.Session
		fmt.Fprintf(w, "  Phase: %s", s.Phase)
		if s.Credentials > 0 {
			fmt.Fprintf(w, "  Credentials: %d", s.Credentials)
		}
		if s.Phase != log.SessionStart {
			fmt.Fprintf(w, "  Written: %d", s.Written)
		}
		fmt.Fprintln(w)
		if s.Reason != "" {
			fmt.Fprintf(w, "  Reason: %s\n", s.Reason)
		}
	case event.Transport != nil:
		t := event.Transport
		fmt.Fprintf(w, "  %s 0x%08x+0x%x", t.Op, t.Offset, t.Length)
		if t.Duration > 0 {
			fmt.Fprintf(w, " in %s", formatDuration(t.Duration))
		}
		fmt.Fprintln(w)
	case event.Slot != nil:
		s := event.Slot
		fmt.Fprintf(w, "  Slot %d: %s %s, %d bytes, crc32 %08x\n", s.Slot, s.ID, s.Format, s.Size, s.CRC32)
		if s.Name != "" && !strings.EqualFold(s.Name, s.ID.String()) {
			fmt.Fprintf(w, "  Name: %s\n", s.Name)
		}
	case event.Verify != nil:
		v := event.Verify
		result := "OK"
		if !v.OK {
			result = "FAIL: " + v.Reason
		}
		fmt.Fprintf(w, "  Slot %d: %s %s %s\n", v.Slot, v.ID, v.Status, result)
	case event.Error != nil:
		e := event.Error
		fmt.Fprintf(w, "  Op: %s\n", e.Op)
		if e.Slot != nil {
			fmt.Fprintf(w, "  Slot: %d\n", *e.Slot)
		}
		if e.Credential != "" {
			fmt.Fprintf(w, "  Credential: %s\n", e.Credential)
		}
		fmt.Fprintf(w, "  Message: %s\n", e.Message)
	}

	fmt.Fprintln(w)
}

// shortenSessionID returns the first 8 characters of the session ID.
func shortenSessionID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dus", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
