package creds

import (
	"bytes"
	"fmt"
	"strings"
)

// Format is the encoding of a credential payload.
type Format uint8

const (
	FormatUnknown Format = 0
	FormatPEM     Format = 1
	FormatDER     Format = 2
)

// pemPrefix starts every PEM-armored block.
var pemPrefix = []byte("-----BEGIN")

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatPEM:
		return "PEM"
	case FormatDER:
		return "DER"
	case FormatUnknown:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("FORMAT(%d)", uint8(f))
	}
}

// Known reports whether f is one of the defined formats.
func (f Format) Known() bool {
	return f <= FormatDER
}

// ParseFormat parses "pem", "der" or "unknown" (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pem":
		return FormatPEM, nil
	case "der":
		return FormatDER, nil
	case "", "unknown":
		return FormatUnknown, nil
	default:
		return FormatUnknown, fmt.Errorf("unknown credential format %q", s)
	}
}

// DetectFormat guesses the format of raw credential bytes. PEM data starts
// with a "-----BEGIN" armor line; DER data starts with an ASN.1 SEQUENCE tag.
func DetectFormat(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, pemPrefix):
		return FormatPEM
	case len(data) > 0 && data[0] == 0x30:
		return FormatDER
	default:
		return FormatUnknown
	}
}
