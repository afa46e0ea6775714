// Package provision writes batches of credentials into a slot store.
//
// A Provisioner runs one session at a time. A session optionally erases the
// region, reads and classifies it once, then writes each credential of the
// batch into the first free slot, in order. PEM payloads get a trailing NUL
// byte because the device's TLS stack parses PEM as a C string; the NUL is
// part of the stored size and checksum.
//
// Batches are not transactional. The first capacity, encoding, allocation or
// transport failure aborts the remaining entries; slots already written stay
// valid and are listed in the returned Report. A slot whose write failed has
// undefined contents and the region must be erased before provisioning again.
//
// Every step is reported to the injected log.Logger.
package provision
