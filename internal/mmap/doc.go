// Package mmap provides read-only memory-mapped files.
//
// Compiled tables are loaded from local disk through a Mapping, so the
// decoder reads the file without copying it into the Go heap first.
// Platforms without mmap fall back to reading the file into memory.
//
//	m, err := mmap.Open(path)
//	if err != nil {
//	    return err
//	}
//	defer m.Close()
//	data := m.Bytes()
package mmap
