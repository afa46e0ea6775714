// Package log captures provisioning events for the credential store.
//
// This package defines the Logger interface and Event types recorded while a
// provisioning session runs: session start/end, every transport operation,
// every slot written and every verification result. It is separate from
// operational logging (slog): the event log is a complete machine-readable
// trace of what was done to a device's credential region.
//
// # Basic Usage
//
// Callers configure logging by handing a Logger to the provisioner:
//
//	// For development: log to console via slog
//	p := provision.New(store, provision.WithLogger(log.NewSlogAdapter(slog.Default())))
//
//	// For production: keep a binary trace per device
//	fl, _ := log.NewFileLogger("/var/lib/creds/device-42.clog")
//
//	// Both: use MultiLogger
//	provision.WithLogger(log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl))
//
// # Event Types
//
//   - Session: provisioning session lifecycle (SessionEvent)
//   - Transport: erase/read/write of the storage medium (TransportEvent)
//   - Slot: a credential written into a slot (SlotEvent)
//   - Verify: read-back verification of a slot (VerifyEvent)
//   - Error: failures at any stage (ErrorEventData)
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with integer keys, written
// with the .clog extension. The creds-tool log command renders them.
package log
