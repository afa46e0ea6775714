package source

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/lucasdietrich/caniot-creds/pkg/creds"
	"github.com/lucasdietrich/caniot-creds/pkg/provision"
)

// Warning is a non-fatal observation about a manifest entry.
type Warning struct {
	Name    string
	Message string
}

func (w Warning) String() string {
	return w.Name + ": " + w.Message
}

// ResolveOptions configures Resolve.
type ResolveOptions struct {
	// LookupEnv reads PKCS#12 passwords. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Resolve loads every entry of the manifest, in order. Sources that fail to
// load or validate return a *LoadError. Format disagreements and sources of
// unknown format are reported as warnings; unknown formats are stored as-is.
func (m *Manifest) Resolve(opts ResolveOptions) ([]provision.Credential, []Warning, error) {
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}

	batch := make([]provision.Credential, 0, len(m.Entries))
	var warnings []Warning
	for _, e := range m.Entries {
		path := m.resolvePath(e.Path)
		c, w, err := m.load(e, path, opts)
		if err != nil {
			return nil, warnings, &LoadError{Name: e.Name, Path: path, Err: err}
		}
		for _, msg := range w {
			warnings = append(warnings, Warning{Name: e.Name, Message: msg})
		}
		batch = append(batch, c)
	}
	return batch, warnings, nil
}

func (m *Manifest) load(e Entry, path string, opts ResolveOptions) (provision.Credential, []string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return provision.Credential{}, nil, err
	}

	data := raw
	if e.PKCS12 != nil {
		password := ""
		if e.PKCS12.PasswordEnv != "" {
			v, ok := opts.LookupEnv(e.PKCS12.PasswordEnv)
			if !ok {
				return provision.Credential{}, nil, fmt.Errorf("%w: $%s", ErrMissingSecret, e.PKCS12.PasswordEnv)
			}
			password = v
		}
		format := e.Format
		if format == creds.FormatUnknown {
			format = expectedFormat(e.ID)
		}
		data, err = ExtractPKCS12(raw, password, e.PKCS12.Part, format)
		if err != nil {
			return provision.Credential{}, nil, err
		}
	}
	if len(data) == 0 {
		return provision.Credential{}, nil, errors.New("source is empty")
	}

	var warnings []string
	detected := creds.DetectFormat(data)
	format := e.Format
	switch {
	case format == creds.FormatUnknown:
		format = detected
	case detected != format:
		warnings = append(warnings, fmt.Sprintf("declared %s but content looks like %s", format, detected))
	}
	if format == creds.FormatUnknown {
		warnings = append(warnings, "format not recognized, stored as UNKNOWN")
	} else if want := expectedFormat(e.ID); want != format {
		warnings = append(warnings, fmt.Sprintf("%s is usually %s, got %s", e.ID, want, format))
	}

	if err := Validate(format, data); err != nil {
		return provision.Credential{}, nil, err
	}

	return provision.Credential{
		Name:     e.Name,
		ID:       e.ID,
		Format:   format,
		Strength: e.Strength,
		Version:  e.Version,
		Data:     data,
	}, warnings, nil
}

// expectedFormat returns the format implied by the credential's name.
func expectedFormat(id creds.CredentialID) creds.Format {
	if strings.HasSuffix(id.String(), "_DER") {
		return creds.FormatDER
	}
	return creds.FormatPEM
}
