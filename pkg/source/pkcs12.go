package source

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/pkcs12"

	"github.com/lucasdietrich/caniot-creds/pkg/creds"
)

// ExtractPKCS12 pulls the private key or the leaf certificate out of a
// PKCS#12 bundle. Keys are returned as PKCS#8. The result is DER unless
// format is FormatPEM.
func ExtractPKCS12(bundle []byte, password, part string, format creds.Format) ([]byte, error) {
	key, cert, err := pkcs12.Decode(bundle, password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPKCS12, err)
	}

	var block pem.Block
	switch part {
	case PartKey:
		der, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPKCS12, err)
		}
		block = pem.Block{Type: "PRIVATE KEY", Bytes: der}
	case PartCert:
		block = pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}
	default:
		return nil, fmt.Errorf("%w: unknown part %q", ErrPKCS12, part)
	}

	if format == creds.FormatPEM {
		return pem.EncodeToMemory(&block), nil
	}
	return block.Bytes, nil
}
