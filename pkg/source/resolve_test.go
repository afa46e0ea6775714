package source

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasdietrich/caniot-creds/pkg/creds"
)

type testMaterial struct {
	certDER []byte
	certPEM []byte
	keyDER  []byte
	keyPEM  []byte
}

func newTestMaterial(t *testing.T) testMaterial {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "caniot-device"},
		NotBefore:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:     time.Date(2034, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	certDER, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	return testMaterial{
		certDER: certDER,
		certPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}),
		keyDER:  keyDER,
		keyPEM:  pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}),
	}
}

func writeFiles(t *testing.T, files map[string][]byte) string {
	t.Helper()
	dir := t.TempDir()
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o600))
	}
	return dir
}

func loadManifest(t *testing.T, dir, manifest string) *Manifest {
	t.Helper()
	path := filepath.Join(dir, "creds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o600))
	m, err := LoadManifest(path)
	require.NoError(t, err)
	return m
}

func TestResolve(t *testing.T) {
	mat := newTestMaterial(t)
	dir := writeFiles(t, map[string][]byte{
		"server.key": mat.keyPEM,
		"server.crt": mat.certPEM,
		"server.der": mat.certDER,
		"key.der":    mat.keyDER,
	})
	m := loadManifest(t, dir, `
CRED_HTTPS_SERVER_PRIVATE_KEY: server.key
CRED_HTTPS_SERVER_CERTIFICATE: server.crt
CRED_HTTPS_SERVER_CERTIFICATE_DER:
  path: server.der
  version: 2
CRED_HTTPS_SERVER_PRIVATE_KEY_DER: key.der
`)

	batch, warnings, err := m.Resolve(ResolveOptions{})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, batch, 4)

	assert.Equal(t, creds.HTTPSServerPrivateKey, batch[0].ID)
	assert.Equal(t, creds.FormatPEM, batch[0].Format)
	assert.Equal(t, mat.keyPEM, batch[0].Data)
	assert.Equal(t, "CRED_HTTPS_SERVER_PRIVATE_KEY", batch[0].Name)

	assert.Equal(t, creds.FormatPEM, batch[1].Format)
	assert.Equal(t, creds.FormatDER, batch[2].Format)
	assert.Equal(t, 2, batch[2].Version)
	assert.Equal(t, mat.certDER, batch[2].Data)
	assert.Equal(t, creds.FormatDER, batch[3].Format)
}

func TestResolveWarnings(t *testing.T) {
	mat := newTestMaterial(t)
	dir := writeFiles(t, map[string][]byte{
		"ca.pem":   mat.certPEM,
		"blob.bin": []byte("opaque credential"),
	})
	m := loadManifest(t, dir, `
CRED_AWS_ROOT_CA1_DER: ca.pem
CRED_AWS_ROOT_CA3: blob.bin
`)

	batch, warnings, err := m.Resolve(ResolveOptions{})
	require.NoError(t, err)
	require.Len(t, batch, 2)
	require.Len(t, warnings, 2)

	assert.Equal(t, creds.FormatPEM, batch[0].Format)
	assert.Equal(t, "CRED_AWS_ROOT_CA1_DER", warnings[0].Name)
	assert.Contains(t, warnings[0].Message, "usually DER")

	assert.Equal(t, creds.FormatUnknown, batch[1].Format)
	assert.Equal(t, []byte("opaque credential"), batch[1].Data)
	assert.Contains(t, warnings[1].String(), "CRED_AWS_ROOT_CA3: format not recognized")
}

func TestResolveDeclaredFormatMismatch(t *testing.T) {
	mat := newTestMaterial(t)
	dir := writeFiles(t, map[string][]byte{"ca.der": mat.certDER})
	m := loadManifest(t, dir, "CRED_AWS_ROOT_CA1:\n  path: ca.der\n  format: pem\n")

	_, warnings, err := m.Resolve(ResolveOptions{})
	assert.ErrorIs(t, err, ErrInvalidPEM)
	assert.Empty(t, warnings)
}

func TestResolveErrors(t *testing.T) {
	mat := newTestMaterial(t)
	dir := writeFiles(t, map[string][]byte{
		"broken.pem": []byte("-----BEGIN CERTIFICATE-----\nnot base64\n"),
		"corrupt.pem": pem.EncodeToMemory(&pem.Block{
			Type:  "CERTIFICATE",
			Bytes: mat.certDER[:len(mat.certDER)/2],
		}),
		"bad.der":  {0x30, 0x03, 0x01, 0x02, 0x03},
		"empty":    {},
		"junk.p12": []byte("not a pfx"),
	})

	tests := []struct {
		name     string
		manifest string
		want     error
	}{
		{"MissingFile", "CRED_AWS_ROOT_CA1: nope.pem\n", os.ErrNotExist},
		{"NoPEMBlock", "CRED_AWS_ROOT_CA1: broken.pem\n", ErrInvalidPEM},
		{"CorruptCertificate", "CRED_AWS_ROOT_CA1: corrupt.pem\n", ErrInvalidPEM},
		{"BadDER", "CRED_AWS_ROOT_CA1_DER: bad.der\n", ErrInvalidDER},
		{"BadPKCS12", "CRED_AWS_PRIVATE_KEY:\n  path: junk.p12\n  pkcs12:\n    part: key\n", ErrPKCS12},
		{"MissingPassword", "CRED_AWS_PRIVATE_KEY:\n  path: junk.p12\n  pkcs12:\n    part: key\n    password_env: NOT_SET\n", ErrMissingSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := loadManifest(t, dir, tt.manifest)
			_, _, err := m.Resolve(ResolveOptions{
				LookupEnv: func(string) (string, bool) { return "", false },
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var lerr *LoadError
			require.ErrorAs(t, err, &lerr)
			assert.Equal(t, m.Entries[0].Name, lerr.Name)
		})
	}

	t.Run("Empty", func(t *testing.T) {
		m := loadManifest(t, dir, "CRED_AWS_ROOT_CA1: empty\n")
		_, _, err := m.Resolve(ResolveOptions{})
		assert.ErrorContains(t, err, "source is empty")
	})
}

func TestResolvePasswordLookup(t *testing.T) {
	dir := writeFiles(t, map[string][]byte{"junk.p12": []byte("not a pfx")})
	m := loadManifest(t, dir, "CRED_AWS_CERTIFICATE:\n  path: junk.p12\n  pkcs12:\n    part: cert\n    password_env: P12_PASS\n")

	var asked string
	_, _, err := m.Resolve(ResolveOptions{
		LookupEnv: func(name string) (string, bool) {
			asked = name
			return "secret", true
		},
	})
	assert.Equal(t, "P12_PASS", asked)
	assert.ErrorIs(t, err, ErrPKCS12, "password found, decoding fails on the bundle itself")
}

func TestValidate(t *testing.T) {
	mat := newTestMaterial(t)

	assert.NoError(t, Validate(creds.FormatPEM, mat.certPEM))
	assert.NoError(t, Validate(creds.FormatPEM, append(append([]byte(nil), mat.keyPEM...), mat.certPEM...)))
	assert.NoError(t, Validate(creds.FormatPEM, pem.EncodeToMemory(&pem.Block{Type: "DH PARAMETERS", Bytes: []byte{1}})))
	assert.NoError(t, Validate(creds.FormatDER, mat.certDER))
	assert.NoError(t, Validate(creds.FormatDER, mat.keyDER))
	assert.NoError(t, Validate(creds.FormatUnknown, []byte("anything")))

	assert.ErrorIs(t, Validate(creds.FormatPEM, mat.certDER), ErrInvalidPEM)
	assert.ErrorIs(t, Validate(creds.FormatDER, mat.certPEM), ErrInvalidDER)
}

func TestSummary(t *testing.T) {
	mat := newTestMaterial(t)

	assert.Equal(t, "certificate CN=caniot-device (expires 2034-01-01)", Summary(creds.FormatDER, mat.certDER))
	assert.Equal(t, "EC private key (P-256)", Summary(creds.FormatPEM, append(mat.keyPEM, 0x00)))

	both := append(append([]byte(nil), mat.certPEM...), mat.keyPEM...)
	assert.Equal(t, "certificate CN=caniot-device (expires 2034-01-01) (+1 more)", Summary(creds.FormatPEM, both))

	assert.Empty(t, Summary(creds.FormatDER, []byte{0x30, 0x00}))
	assert.Empty(t, Summary(creds.FormatUnknown, mat.certDER))
}

func TestExtractPKCS12RejectsGarbage(t *testing.T) {
	_, err := ExtractPKCS12([]byte{0x30, 0x00}, "", PartCert, creds.FormatDER)
	assert.True(t, errors.Is(err, ErrPKCS12))
}
