// Package hash provides the checksum used for swap records.
//
// Every frame written to a swap file carries an xxHash64 of its bytes. The
// check runs before decompression, so corruption in the file surfaces as a
// checksum mismatch instead of garbage pixels.
//
//	sum := hash.Sum64(frame)
package hash
