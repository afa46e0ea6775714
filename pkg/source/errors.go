package source

import (
	"errors"
	"fmt"
)

// Source errors.
var (
	ErrManifest      = errors.New("invalid manifest")
	ErrInvalidPEM    = errors.New("invalid PEM data")
	ErrInvalidDER    = errors.New("DER data is neither a certificate nor a private key")
	ErrPKCS12        = errors.New("invalid PKCS#12 bundle")
	ErrMissingSecret = errors.New("PKCS#12 password not set")
)

// ManifestError locates a problem in a manifest document.
type ManifestError struct {
	Line int
	Key  string
	Err  error
}

func (e *ManifestError) Error() string {
	switch {
	case e.Line > 0 && e.Key != "":
		return fmt.Sprintf("manifest line %d (%s): %v", e.Line, e.Key, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("manifest line %d: %v", e.Line, e.Err)
	default:
		return fmt.Sprintf("manifest: %v", e.Err)
	}
}

func (e *ManifestError) Unwrap() error { return e.Err }

func (e *ManifestError) Is(target error) bool { return target == ErrManifest }

// LoadError reports a manifest entry whose source could not be loaded.
type LoadError struct {
	Name string
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s from %s: %v", e.Name, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
