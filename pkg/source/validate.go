package source

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
	"time"

	"github.com/lucasdietrich/caniot-creds/pkg/creds"
)

// Validate checks that data is well-formed for format. PEM data must hold at
// least one block, and certificate or private key blocks must parse. DER data
// must parse as a certificate or a private key. Unknown formats are not
// checked.
func Validate(format creds.Format, data []byte) error {
	switch format {
	case creds.FormatPEM:
		return validatePEM(data)
	case creds.FormatDER:
		_, err := parseDER(data)
		return err
	default:
		return nil
	}
}

func validatePEM(data []byte) error {
	rest := data
	blocks := 0
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		blocks++
		if _, err := parseBlock(block); err != nil {
			return fmt.Errorf("%w: %s block %d: %v", ErrInvalidPEM, block.Type, blocks, err)
		}
	}
	if blocks == 0 {
		return ErrInvalidPEM
	}
	return nil
}

// parseBlock parses the blocks it knows and ignores the others.
func parseBlock(block *pem.Block) (any, error) {
	switch block.Type {
	case "CERTIFICATE":
		return x509.ParseCertificate(block.Bytes)
	case "PRIVATE KEY":
		return x509.ParsePKCS8PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	default:
		return nil, nil
	}
}

func parseDER(data []byte) (any, error) {
	if cert, err := x509.ParseCertificate(data); err == nil {
		return cert, nil
	}
	if key, err := x509.ParsePKCS8PrivateKey(data); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(data); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(data); err == nil {
		return key, nil
	}
	return nil, ErrInvalidDER
}

// Summary returns a one-line description of a credential payload, such as
// "certificate CN=device-01 (expires 2026-01-02)" or "EC private key".
// PEM payloads may carry a trailing NUL. Unparseable data yields "".
func Summary(format creds.Format, data []byte) string {
	var parsed []any
	switch format {
	case creds.FormatPEM:
		rest := data
		for {
			var block *pem.Block
			block, rest = pem.Decode(rest)
			if block == nil {
				break
			}
			if v, err := parseBlock(block); err == nil && v != nil {
				parsed = append(parsed, v)
			}
		}
	case creds.FormatDER:
		if v, err := parseDER(data); err == nil {
			parsed = append(parsed, v)
		}
	}
	if len(parsed) == 0 {
		return ""
	}

	s := describe(parsed[0])
	if len(parsed) > 1 {
		s += fmt.Sprintf(" (+%d more)", len(parsed)-1)
	}
	return s
}

func describe(v any) string {
	switch k := v.(type) {
	case *x509.Certificate:
		name := k.Subject.CommonName
		if name == "" {
			name = k.Subject.String()
		}
		kind := "certificate"
		if k.IsCA {
			kind = "CA certificate"
		}
		return fmt.Sprintf("%s CN=%s (expires %s)", kind, name, k.NotAfter.UTC().Format(time.DateOnly))
	case *ecdsa.PrivateKey:
		return fmt.Sprintf("EC private key (%s)", k.Curve.Params().Name)
	case *rsa.PrivateKey:
		return fmt.Sprintf("RSA private key (%d bits)", k.N.BitLen())
	case ed25519.PrivateKey:
		return "Ed25519 private key"
	default:
		return strings.TrimPrefix(fmt.Sprintf("%T", v), "*")
	}
}
