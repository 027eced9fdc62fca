package crc

import (
	"fmt"
	"hash/crc32"
	"io"
)

// VerifyRange computes the CRC-32/IEEE checksum of the length bytes of r
// beginning at offset and compares it against want, as recorded for a
// packed object entry in its pack index.
func VerifyRange(r io.ReaderAt, offset, length int64, want uint32) error {
	h := crc32.NewIEEE()
	if _, err := io.Copy(h, io.NewSectionReader(r, offset, length)); err != nil {
		return err
	}
	if got := h.Sum32(); got != want {
		return fmt.Errorf("crc: mismatch at offset %d: want %08x, got %08x", offset, want, got)
	}
	return nil
}
