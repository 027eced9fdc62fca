// Copyright (c) 2017- GitHub, Inc. and Git LFS contributors
// SPDX-License-Identifier: MIT

package pack

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/bsdmp/got/modules/plumbing"
)

// https://git-scm.com/docs/gitformat-pack#_version_2_pack_idx_files_support_packs_larger_than_4_gib

const (
	indexVersion2 = 2

	// indexHeaderWidth is the width of the magic plus version fields that
	// open every version 2 index.
	indexHeaderWidth = 4 + 4

	// indexFanoutEntries is the number of entries in the fanout table.
	indexFanoutEntries = 256
	// indexFanoutWidth is the width, in bytes, of the entire fanout table.
	indexFanoutWidth = indexFanoutEntries * 4

	// indexNamesOffset is the offset of the sorted object id table,
	// immediately following the header and fanout table.
	indexNamesOffset = indexHeaderWidth + indexFanoutWidth

	// largeOffsetFlag marks a small-offset table slot as an index into the
	// large-offset table rather than a literal offset.
	largeOffsetFlag = 0x80000000
)

var indexMagic = [4]byte{0xff, 't', 'O', 'c'}

// IndexEntry describes where one object lives inside the packfile that a
// given Index describes.
type IndexEntry struct {
	OID        plumbing.Hash
	PackOffset uint64
	CRC        uint32
}

// Index is a decoded "pack-*.idx" version 2 file: a sorted table of object
// ids, along with the packfile byte offset and CRC-32 of each one. Decoding
// parses only the header, fanout table, and trailer (every byte is still
// read once to verify the trailing checksum); per-object lookups are
// served directly from the underlying reader.
type Index struct {
	fanout [indexFanoutEntries]uint32

	namesOffset         int64
	crcOffset           int64
	offsetsOffset       int64
	largeOffsetsOffset  int64
	trailerOffset       int64

	packChecksum  plumbing.Hash
	indexChecksum plumbing.Hash

	r io.ReaderAt
}

// Count returns the number of objects described by the index.
func (i *Index) Count() int {
	return int(i.fanout[indexFanoutEntries-1])
}

// PackChecksum returns the SHA-1 of the packfile this index describes, as
// recorded in the index trailer.
func (i *Index) PackChecksum() plumbing.Hash {
	return i.packChecksum
}

// Close closes the index if the underlying data stream is closeable.
func (i *Index) Close() error {
	if c, ok := i.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// DecodeIndex decodes the header, fanout table, and trailer of an index
// whose underlying bytes are supplied by r. It verifies the trailing index
// checksum against the bytes that precede it, but does not eagerly decode
// any object entries.
func DecodeIndex(path string, r io.ReaderAt) (*Index, error) {
	var magic [4]byte
	if _, err := r.ReadAt(magic[:], 0); err != nil {
		return nil, &plumbing.ErrBadIndex{Path: path, Reason: "short read of magic"}
	}
	if !bytes.Equal(magic[:], indexMagic[:]) {
		return nil, &plumbing.ErrBadIndex{Path: path, Reason: "bad magic"}
	}

	var versionBytes [4]byte
	if _, err := r.ReadAt(versionBytes[:], 4); err != nil {
		return nil, &plumbing.ErrBadIndex{Path: path, Reason: "short read of version"}
	}
	if v := binary.BigEndian.Uint32(versionBytes[:]); v != indexVersion2 {
		return nil, &plumbing.ErrBadIndex{Path: path, Reason: "unsupported index version"}
	}

	fanoutBytes := make([]byte, indexFanoutWidth)
	if _, err := r.ReadAt(fanoutBytes, indexHeaderWidth); err != nil {
		return nil, &plumbing.ErrBadIndex{Path: path, Reason: "truncated fanout table"}
	}

	idx := &Index{r: r}
	prev := uint32(0)
	for n := 0; n < indexFanoutEntries; n++ {
		v := binary.BigEndian.Uint32(fanoutBytes[n*4:])
		if v < prev {
			return nil, &plumbing.ErrBadIndex{Path: path, Reason: "non-monotonic fanout table"}
		}
		idx.fanout[n] = v
		prev = v
	}

	count := int64(idx.Count())
	idx.namesOffset = indexNamesOffset
	idx.crcOffset = idx.namesOffset + count*plumbing.HashSize
	idx.offsetsOffset = idx.crcOffset + count*4
	idx.largeOffsetsOffset = idx.offsetsOffset + count*4

	// The width of the large-offset table cannot be known up front: it
	// holds exactly as many 8-byte entries as there are small-offset
	// slots with the top bit set, and that isn't known until those slots
	// are read. The trailer therefore has to be located from the end of
	// the file rather than computed forward, so the caller is required
	// to report the index file's total size via an io.Seeker-like
	// capability, or the trailer is read directly via ReaderAt at a
	// negative offset from a size obtained out of band.
	size, err := sizeOf(r)
	if err != nil {
		return nil, &plumbing.ErrBadIndex{Path: path, Reason: "cannot determine file size: " + err.Error()}
	}
	idx.trailerOffset = size - 2*plumbing.HashSize
	if idx.trailerOffset < idx.largeOffsetsOffset {
		return nil, &plumbing.ErrBadIndex{Path: path, Reason: "file too short for trailer"}
	}

	var trailer [2 * plumbing.HashSize]byte
	if _, err := r.ReadAt(trailer[:], idx.trailerOffset); err != nil {
		return nil, &plumbing.ErrBadIndex{Path: path, Reason: "short read of trailer"}
	}
	copy(idx.packChecksum[:], trailer[:plumbing.HashSize])
	copy(idx.indexChecksum[:], trailer[plumbing.HashSize:])

	if err := idx.verifyChecksum(path, size); err != nil {
		return nil, err
	}

	return idx, nil
}

// verifyChecksum recomputes the SHA-1 of every byte preceding the trailing
// index checksum and compares it against the value recorded there.
func (i *Index) verifyChecksum(path string, size int64) error {
	h := plumbing.NewHasher()
	sr := io.NewSectionReader(i.r, 0, size-plumbing.HashSize)
	if _, err := io.Copy(h, sr); err != nil {
		return &plumbing.ErrBadIndex{Path: path, Reason: "could not hash index: " + err.Error()}
	}
	got := h.Sum()
	if got != i.indexChecksum {
		return &plumbing.ErrBadIndexChecksum{Path: path, Want: i.indexChecksum, Got: got}
	}
	return nil
}

func sizeOf(r io.ReaderAt) (int64, error) {
	if s, ok := r.(interface{ Size() int64 }); ok {
		return s.Size(), nil
	}
	if s, ok := r.(interface {
		Stat() (os.FileInfo, error)
	}); ok {
		fi, err := s.Stat()
		if err != nil {
			return 0, err
		}
		return fi.Size(), nil
	}
	if s, ok := r.(io.Seeker); ok {
		return s.Seek(0, io.SeekEnd)
	}
	return 0, io.ErrUnexpectedEOF
}

func (i *Index) nameAt(pos int64) (plumbing.Hash, error) {
	var h plumbing.Hash
	if _, err := i.r.ReadAt(h[:], i.namesOffset+pos*plumbing.HashSize); err != nil {
		return h, err
	}
	return h, nil
}

func (i *Index) crcAt(pos int64) (uint32, error) {
	var b [4]byte
	if _, err := i.r.ReadAt(b[:], i.crcOffset+pos*4); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func (i *Index) offsetAt(pos int64) (uint64, error) {
	var b [4]byte
	if _, err := i.r.ReadAt(b[:], i.offsetsOffset+pos*4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(b[:])
	if v&largeOffsetFlag == 0 {
		return uint64(v), nil
	}

	var lb [8]byte
	largePos := int64(v &^ largeOffsetFlag)
	if largePos >= int64(i.Count()) || i.largeOffsetsOffset+(largePos+1)*8 > i.trailerOffset {
		return 0, &plumbing.ErrBadIndex{Reason: "large-offset reference out of range"}
	}
	if _, err := i.r.ReadAt(lb[:], i.largeOffsetsOffset+largePos*8); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(lb[:]), nil
}

// entryAt assembles the full IndexEntry located at position pos in the
// sorted object table.
func (i *Index) entryAt(pos int64) (*IndexEntry, error) {
	oid, err := i.nameAt(pos)
	if err != nil {
		return nil, err
	}
	offset, err := i.offsetAt(pos)
	if err != nil {
		return nil, err
	}
	crc, err := i.crcAt(pos)
	if err != nil {
		return nil, err
	}
	return &IndexEntry{OID: oid, PackOffset: offset, CRC: crc}, nil
}

// bucket returns the [left, right) position bounds, within the sorted
// object table, of every object whose id begins with name's leading byte.
func (i *Index) bucket(name plumbing.Hash) (left, right int64) {
	if name[0] == 0 {
		left = 0
	} else {
		left = int64(i.fanout[name[0]-1])
	}
	if name[0] == 255 {
		right = int64(i.Count())
	} else {
		right = int64(i.fanout[name[0]])
	}
	return left, right
}

// Entry returns the IndexEntry for the object named exactly by name, using
// binary search bounded by the fanout table: O(log n) in the number of
// objects sharing name's leading byte.
func (i *Index) Entry(name plumbing.Hash) (*IndexEntry, error) {
	left, right := i.bucket(name)

	for left < right {
		mid := left + (right-left)/2

		got, err := i.nameAt(mid)
		if err != nil {
			return nil, err
		}

		switch bytes.Compare(name[:], got[:]) {
		case 0:
			return i.entryAt(mid)
		case -1:
			right = mid
		default:
			left = mid + 1
		}
	}

	return nil, errObjectNotFound
}

// Search resolves a possibly-abbreviated object id prefix to the single
// full Hash it identifies. Ambiguous prefixes are not disambiguated; the
// first match encountered is returned.
func (i *Index) Search(prefix plumbing.Hash) (plumbing.Hash, error) {
	left, right := i.bucket(prefix)
	shortened := prefix.Shorten()

	for left < right {
		mid := left + (right-left)/2

		got, err := i.nameAt(mid)
		if err != nil {
			return plumbing.ZeroHash, err
		}

		switch bytes.Compare(prefix[:shortened], got[:shortened]) {
		case 0:
			return got, nil
		case -1:
			right = mid
		default:
			left = mid + 1
		}
	}

	return plumbing.ZeroHash, errObjectNotFound
}

// Each iterates every entry in the index in ascending object-id order,
// stopping and returning the first error that fn returns.
func (i *Index) Each(fn func(*IndexEntry) error) error {
	n := int64(i.Count())
	for pos := int64(0); pos < n; pos++ {
		entry, err := i.entryAt(pos)
		if err != nil {
			return err
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	return nil
}
