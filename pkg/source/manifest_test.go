package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasdietrich/caniot-creds/pkg/creds"
)

func TestParseManifestKeepsOrder(t *testing.T) {
	data := []byte(`
CRED_AWS_ROOT_CA1: certs/AmazonRootCA1.pem
CRED_HTTPS_SERVER_PRIVATE_KEY: certs/server.key
https_server_certificate_der:
  path: certs/server.der
  format: DER
  strength: 3
  version: 7
CRED_AWS_PRIVATE_KEY_DER:
  path: device.p12
  pkcs12:
    part: KEY
    password_env: P12_PASS
`)
	m, err := ParseManifest(data)
	require.NoError(t, err)
	require.Len(t, m.Entries, 4)

	wantIDs := []creds.CredentialID{
		creds.AWSRootCA1,
		creds.HTTPSServerPrivateKey,
		creds.HTTPSServerCertificateDER,
		creds.AWSPrivateKeyDER,
	}
	for i, want := range wantIDs {
		assert.Equal(t, want, m.Entries[i].ID, "entry %d", i)
	}

	e := m.Entries[2]
	assert.Equal(t, "https_server_certificate_der", e.Name)
	assert.Equal(t, "certs/server.der", e.Path)
	assert.Equal(t, creds.FormatDER, e.Format)
	assert.Equal(t, 3, e.Strength)
	assert.Equal(t, 7, e.Version)
	assert.Equal(t, 4, e.Line)

	// Path-only entries leave the format to detection.
	assert.Equal(t, creds.FormatUnknown, m.Entries[0].Format)

	p := m.Entries[3].PKCS12
	require.NotNil(t, p)
	assert.Equal(t, PartKey, p.Part)
	assert.Equal(t, "P12_PASS", p.PasswordEnv)
}

func TestParseManifestJSON(t *testing.T) {
	data := []byte(`{
  "CRED_HTTPS_SERVER_PRIVATE_KEY": "./creds/key.pem",
  "CRED_HTTPS_SERVER_CERTIFICATE": "./creds/cert.pem",
  "CRED_AWS_ROOT_CA3_DER": {"path": "./creds/ca3.der", "version": 1}
}`)
	m, err := ParseManifest(data)
	require.NoError(t, err)
	require.Len(t, m.Entries, 3)
	assert.Equal(t, creds.HTTPSServerCertificate, m.Entries[1].ID)
	assert.Equal(t, 1, m.Entries[2].Version)
}

func TestParseManifestEmpty(t *testing.T) {
	m, err := ParseManifest(nil)
	require.NoError(t, err)
	assert.Empty(t, m.Entries)
}

func TestParseManifestErrors(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantLine int
	}{
		{"NotMapping", "- a\n- b\n", 1},
		{"UnknownName", "CRED_AWS_ROOT_CA1: a.pem\nCRED_NOPE: b.pem\n", 2},
		{"Duplicate", "CRED_AWS_ROOT_CA1: a.pem\naws_root_ca1: b.pem\n", 2},
		{"MissingPath", "CRED_AWS_ROOT_CA1:\n  format: pem\n", 1},
		{"BadFormat", "CRED_AWS_ROOT_CA1:\n  path: a\n  format: p7b\n", 1},
		{"BadPart", "CRED_AWS_ROOT_CA1:\n  path: a\n  pkcs12:\n    part: chain\n", 1},
		{"StrengthRange", "CRED_AWS_ROOT_CA1:\n  path: a\n  strength: 256\n", 1},
		{"VersionRange", "CRED_AWS_ROOT_CA1:\n  path: a\n  version: -1\n", 1},
		{"SequenceValue", "CRED_AWS_ROOT_CA1: [a, b]\n", 1},
		{"Syntax", "CRED_AWS_ROOT_CA1: [\n", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.data))
			require.ErrorIs(t, err, ErrManifest)

			var merr *ManifestError
			require.ErrorAs(t, err, &merr)
			assert.Equal(t, tt.wantLine, merr.Line)
		})
	}
}

func TestLoadManifestSetsDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "creds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("CRED_AWS_ROOT_CA1: ca1.pem\nCRED_AWS_ROOT_CA3: /abs/ca3.pem\n"), 0o600))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, dir, m.Dir)
	assert.Equal(t, filepath.Join(dir, "ca1.pem"), m.resolvePath(m.Entries[0].Path))
	assert.Equal(t, "/abs/ca3.pem", m.resolvePath(m.Entries[1].Path))
}

func TestLoadManifestMissingFile(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
