package log

import (
	"context"
	"fmt"
	"log/slog"
)

// SlogAdapter writes provisioning events to an slog.Logger.
// Errors are logged at Error level, everything else at Info or Debug.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session", event.SessionID),
		slog.String("category", event.Category.String()),
	}
	if event.Target != "" {
		attrs = append(attrs, slog.String("target", event.Target))
	}

	level := slog.LevelInfo
	msg := "provisioning"

	switch {
	case event.Session != nil:
		msg = "session"
		attrs = append(attrs, slog.String("phase", event.Session.Phase.String()))
		if event.Session.Credentials > 0 {
			attrs = append(attrs, slog.Int("credentials", event.Session.Credentials))
		}
		if event.Session.Phase != SessionStart {
			attrs = append(attrs, slog.Int("written", event.Session.Written))
		}
		if event.Session.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Session.Reason))
		}
		if event.Session.Phase == SessionAbort {
			level = slog.LevelWarn
		}
	case event.Transport != nil:
		msg = "transport"
		level = slog.LevelDebug
		attrs = append(attrs,
			slog.String("op", event.Transport.Op.String()),
			slog.Uint64("offset", uint64(event.Transport.Offset)),
			slog.Uint64("length", uint64(event.Transport.Length)),
		)
		if event.Transport.Duration > 0 {
			attrs = append(attrs, slog.Duration("duration", event.Transport.Duration))
		}
	case event.Slot != nil:
		msg = "slot written"
		attrs = append(attrs,
			slog.Int("slot", event.Slot.Slot),
			slog.String("id", event.Slot.ID.String()),
			slog.String("format", event.Slot.Format.String()),
			slog.Uint64("size", uint64(event.Slot.Size)),
			slog.String("crc32", fmt.Sprintf("%08x", event.Slot.CRC32)),
		)
		if event.Slot.Name != "" {
			attrs = append(attrs, slog.String("name", event.Slot.Name))
		}
	case event.Verify != nil:
		msg = "slot verified"
		attrs = append(attrs,
			slog.Int("slot", event.Verify.Slot),
			slog.String("id", event.Verify.ID.String()),
			slog.String("status", event.Verify.Status.String()),
			slog.Bool("ok", event.Verify.OK),
		)
		if event.Verify.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Verify.Reason))
		}
		if !event.Verify.OK {
			level = slog.LevelWarn
		}
	case event.Error != nil:
		msg = "provisioning error"
		level = slog.LevelError
		attrs = append(attrs,
			slog.String("op", event.Error.Op),
			slog.String("error", event.Error.Message),
		)
		if event.Error.Slot != nil {
			attrs = append(attrs, slog.Int("slot", *event.Error.Slot))
		}
		if event.Error.Credential != "" {
			attrs = append(attrs, slog.String("credential", event.Error.Credential))
		}
	}

	a.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
