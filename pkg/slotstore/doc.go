// Package slotstore manages the credential region of a device's flash.
//
// A Store combines a region Geometry with a Transport that moves bytes to
// and from the storage medium. The Store only ever erases the whole region,
// writes whole slots and reads the whole region; it never touches bytes
// outside the region.
//
// # Write model
//
// Flash writes are not atomic. If a WriteSlot call fails or is interrupted
// (including through context cancellation inside the transport), the
// contents of that slot are undefined. The only recovery is to erase the
// entire region and provision every credential again. Slots are never
// erased individually.
//
// A Store is not safe for concurrent use. Callers that expose it as a
// service must serialize whole sessions; see the provision package.
package slotstore
