package creds

import (
	"fmt"
	"strings"
)

// CredentialID identifies the role of a credential on the device.
// Values are namespaced by subsystem: the high nibble selects the subsystem.
type CredentialID uint8

// HTTPS server credentials.
const (
	HTTPSServerPrivateKey     CredentialID = 0x10
	HTTPSServerCertificate    CredentialID = 0x11
	HTTPSServerPrivateKeyDER  CredentialID = 0x12
	HTTPSServerCertificateDER CredentialID = 0x13
	HTTPSServerClientCA       CredentialID = 0x14
	HTTPSServerClientCADER    CredentialID = 0x15
)

// AWS IoT credentials.
const (
	AWSPrivateKey     CredentialID = 0x20
	AWSCertificate    CredentialID = 0x21
	AWSPrivateKeyDER  CredentialID = 0x22
	AWSCertificateDER CredentialID = 0x23
	AWSRootCA1        CredentialID = 0x24
	AWSRootCA3        CredentialID = 0x25
	AWSRootCA1DER     CredentialID = 0x26
	AWSRootCA3DER     CredentialID = 0x27
)

// Subsystem groups credential IDs by value range.
type Subsystem uint8

const (
	SubsystemUnknown Subsystem = 0
	SubsystemHTTPS   Subsystem = 1
	SubsystemAWS     Subsystem = 2
)

// String returns the subsystem name.
func (s Subsystem) String() string {
	switch s {
	case SubsystemHTTPS:
		return "HTTPS"
	case SubsystemAWS:
		return "AWS"
	default:
		return "UNKNOWN"
	}
}

var credentialNames = map[CredentialID]string{
	HTTPSServerPrivateKey:     "CRED_HTTPS_SERVER_PRIVATE_KEY",
	HTTPSServerCertificate:    "CRED_HTTPS_SERVER_CERTIFICATE",
	HTTPSServerPrivateKeyDER:  "CRED_HTTPS_SERVER_PRIVATE_KEY_DER",
	HTTPSServerCertificateDER: "CRED_HTTPS_SERVER_CERTIFICATE_DER",
	HTTPSServerClientCA:       "CRED_HTTPS_SERVER_CLIENT_CA",
	HTTPSServerClientCADER:    "CRED_HTTPS_SERVER_CLIENT_CA_DER",
	AWSPrivateKey:             "CRED_AWS_PRIVATE_KEY",
	AWSCertificate:            "CRED_AWS_CERTIFICATE",
	AWSPrivateKeyDER:          "CRED_AWS_PRIVATE_KEY_DER",
	AWSCertificateDER:         "CRED_AWS_CERTIFICATE_DER",
	AWSRootCA1:                "CRED_AWS_ROOT_CA1",
	AWSRootCA3:                "CRED_AWS_ROOT_CA3",
	AWSRootCA1DER:             "CRED_AWS_ROOT_CA1_DER",
	AWSRootCA3DER:             "CRED_AWS_ROOT_CA3_DER",
}

var credentialsByName = func() map[string]CredentialID {
	m := make(map[string]CredentialID, len(credentialNames))
	for id, name := range credentialNames {
		m[name] = id
	}
	return m
}()

// String returns the symbolic name of the credential ID, or its hex value
// when the ID is not part of the known set.
func (id CredentialID) String() string {
	if name, ok := credentialNames[id]; ok {
		return name
	}
	return fmt.Sprintf("0x%02x", uint8(id))
}

// Known reports whether id is one of the defined credential IDs.
func (id CredentialID) Known() bool {
	_, ok := credentialNames[id]
	return ok
}

// Subsystem returns the subsystem the ID belongs to.
func (id CredentialID) Subsystem() Subsystem {
	switch id & 0xF0 {
	case 0x10:
		return SubsystemHTTPS
	case 0x20:
		return SubsystemAWS
	default:
		return SubsystemUnknown
	}
}

// ParseCredentialID resolves a symbolic name such as CRED_AWS_ROOT_CA1.
// The CRED_ prefix is optional and matching is case-insensitive.
func ParseCredentialID(name string) (CredentialID, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	if !strings.HasPrefix(key, "CRED_") {
		key = "CRED_" + key
	}
	if id, ok := credentialsByName[key]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("unknown credential id %q", name)
}

// CredentialIDs returns all known credential IDs in ascending order.
func CredentialIDs() []CredentialID {
	ids := make([]CredentialID, 0, len(credentialNames))
	for id := CredentialID(0); ; id++ {
		if id.Known() {
			ids = append(ids, id)
		}
		if id == 0xFF {
			break
		}
	}
	return ids
}
