// Package persistence keeps provisioning reports on disk.
//
// The JSON state file remembers what each session wrote, and where, so a
// later run can verify a device against it without the original sources.
package persistence
