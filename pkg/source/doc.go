// Package source loads credential batches from a manifest.
//
// A manifest is a YAML (or JSON) mapping from symbolic credential names to
// their source. The value is either a file path or a mapping:
//
//	CRED_HTTPS_SERVER_PRIVATE_KEY: certs/server.key
//	CRED_HTTPS_SERVER_CERTIFICATE_DER:
//	  path: certs/server.der
//	  format: der
//	  version: 2
//	CRED_AWS_PRIVATE_KEY_DER:
//	  path: certs/device.p12
//	  pkcs12:
//	    part: key
//	    password_env: DEVICE_P12_PASSWORD
//
// Entries are provisioned in document order. Relative paths are resolved
// against the manifest's directory. When no format is given it is detected
// from the content: data starting with "-----BEGIN" is PEM, data starting
// with an ASN.1 SEQUENCE tag (0x30) is DER.
package source
