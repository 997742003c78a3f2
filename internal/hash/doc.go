// Package hash provides the checksum used by the table format.
//
// Encoded tables carry a CRC32-Castagnoli (CRC32C) checksum of their stored
// body. Go's crc32 package uses hardware instructions (SSE4.2, ARM CRC) when
// available.
//
// For one-shot checksums:
//
//	checksum := hash.CRC32C(data)
//
// For streaming checksums:
//
//	h := hash.NewCRC32C()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	checksum := h.Sum32()
package hash
