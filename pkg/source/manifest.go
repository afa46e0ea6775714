package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lucasdietrich/caniot-creds/pkg/creds"
)

// Manifest is an ordered list of credential sources.
type Manifest struct {
	// Dir is the base directory for relative paths. Empty means the
	// working directory.
	Dir string

	Entries []Entry
}

// Entry describes where one credential comes from.
type Entry struct {
	// Name is the key as written in the manifest.
	Name string

	ID   creds.CredentialID
	Path string

	// Format is FormatUnknown when the manifest leaves it to detection.
	Format   creds.Format
	Strength int
	Version  int

	// PKCS12 is set when Path is a PKCS#12 bundle.
	PKCS12 *PKCS12Source

	// Line is the manifest line of the key.
	Line int
}

// PKCS12Source selects what to extract from a PKCS#12 bundle.
type PKCS12Source struct {
	// Part is "key" or "cert".
	Part string `yaml:"part"`

	// PasswordEnv names the environment variable holding the password.
	// Empty means no password.
	PasswordEnv string `yaml:"password_env"`
}

// PKCS#12 parts.
const (
	PartKey  = "key"
	PartCert = "cert"
)

type yamlEntry struct {
	Path     string        `yaml:"path"`
	Format   string        `yaml:"format"`
	Strength int           `yaml:"strength"`
	Version  int           `yaml:"version"`
	PKCS12   *PKCS12Source `yaml:"pkcs12"`
}

// LoadManifest reads a manifest file. Relative source paths are resolved
// against the file's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}
	m.Dir = filepath.Dir(path)
	return m, nil
}

// ParseManifest parses manifest data. JSON documents are accepted since
// they are valid YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ManifestError{Err: err}
	}

	m := &Manifest{}
	if root.Kind == 0 {
		return m, nil
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, &ManifestError{Err: errors.New("expected a document")}
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, &ManifestError{Line: doc.Line, Err: errors.New("expected a mapping of credential names")}
	}

	seen := make(map[creds.CredentialID]string)
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, value := doc.Content[i], doc.Content[i+1]
		entry, err := parseEntry(key, value)
		if err != nil {
			return nil, &ManifestError{Line: key.Line, Key: key.Value, Err: err}
		}
		if prev, ok := seen[entry.ID]; ok {
			return nil, &ManifestError{
				Line: key.Line,
				Key:  key.Value,
				Err:  fmt.Errorf("%s already listed as %s", entry.ID, prev),
			}
		}
		seen[entry.ID] = key.Value
		m.Entries = append(m.Entries, entry)
	}
	return m, nil
}

func parseEntry(key, value *yaml.Node) (Entry, error) {
	id, err := creds.ParseCredentialID(key.Value)
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{Name: key.Value, ID: id, Line: key.Line}

	switch value.Kind {
	case yaml.ScalarNode:
		entry.Path = value.Value
	case yaml.MappingNode:
		var y yamlEntry
		if err := value.Decode(&y); err != nil {
			return Entry{}, err
		}
		entry.Path = y.Path
		entry.Strength = y.Strength
		entry.Version = y.Version
		if y.Format != "" {
			f, err := creds.ParseFormat(y.Format)
			if err != nil {
				return Entry{}, err
			}
			entry.Format = f
		}
		if y.PKCS12 != nil {
			p := *y.PKCS12
			p.Part = strings.ToLower(p.Part)
			if p.Part != PartKey && p.Part != PartCert {
				return Entry{}, fmt.Errorf("pkcs12 part %q: want %q or %q", y.PKCS12.Part, PartKey, PartCert)
			}
			entry.PKCS12 = &p
		}
	default:
		return Entry{}, errors.New("value must be a path or a mapping")
	}

	if entry.Path == "" {
		return Entry{}, errors.New("missing path")
	}
	if entry.Strength < 0 || entry.Strength > 0xFF {
		return Entry{}, fmt.Errorf("strength %d out of range 0-255", entry.Strength)
	}
	if entry.Version < 0 || entry.Version > 0xFF {
		return Entry{}, fmt.Errorf("version %d out of range 0-255", entry.Version)
	}
	return entry, nil
}

// resolvePath joins a relative path onto the manifest directory.
func (m *Manifest) resolvePath(p string) string {
	if filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, p)
}
