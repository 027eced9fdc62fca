package plumbing

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"hash"
	"io"
	"sort"
	"strconv"
)

const (
	// HashSize is the width, in bytes, of a SHA-1 object id.
	HashSize = 20
	// HashHexSize is the width, in bytes, of the hexadecimal text form of a
	// Hash.
	HashHexSize = HashSize * 2

	reverseHexTable = "" +
		"\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff" +
		"\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff" +
		"\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff" +
		"\x00\x01\x02\x03\x04\x05\x06\x07\x08\x09\xff\xff\xff\xff\xff\xff" +
		"\xff\x0a\x0b\x0c\x0d\x0e\x0f\xff\xff\xff\xff\xff\xff\xff\xff\xff" +
		"\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff" +
		"\xff\x0a\x0b\x0c\x0d\x0e\x0f\xff\xff\xff\xff\xff\xff\xff\xff\xff" +
		"\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff" +
		"\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff" +
		"\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff" +
		"\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff" +
		"\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff" +
		"\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff" +
		"\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff" +
		"\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff" +
		"\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff\xff"
)

// Hash is a 20-byte SHA-1 object id. Equality and ordering are plain
// byte comparisons; the zero Hash never names a real object.
type Hash [HashSize]byte

// ZeroHash is the Hash with every byte zero.
var ZeroHash Hash

// NewHash returns a new Hash from a hexadecimal object id. Malformed input
// decodes to whatever hex.DecodeString manages to read; callers that must
// reject bad input should use NewHashEx.
func NewHash(s string) Hash {
	b, _ := hex.DecodeString(s)

	var h Hash
	copy(h[:], b)

	return h
}

// NewHashEx parses s as a 40-character hex object id, rejecting anything
// else.
func NewHashEx(s string) (Hash, error) {
	if !ValidateHashHex(s) {
		return ZeroHash, &ErrBadObjectName{Name: s}
	}
	return NewHash(s), nil
}

func (h Hash) IsZero() bool {
	return h == ZeroHash
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

func (h *Hash) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	hashBytes, _ := hex.DecodeString(s)
	copy(h[:], hashBytes)
	return nil
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	hashBytes, _ := hex.DecodeString(string(text))
	copy(h[:], hashBytes)
	return nil
}

// Shorten returns the length, in bytes, of the shortest prefix of h that
// still uniquely distinguishes it from the zero hash: trailing zero bytes
// (down to a floor of 4) are dropped.
func (h Hash) Shorten() int {
	i := HashSize - 1
	for ; i >= 4; i-- {
		if h[i] != 0 {
			return i + 1
		}
	}
	return i + 1
}

// Prefix renders the shortened, abbreviated form of h.
func (h Hash) Prefix() string {
	return hex.EncodeToString(h[:h.Shorten()])
}

// HashesSort sorts a slice of Hashes into ascending lexicographic order.
func HashesSort(a []Hash) {
	sort.Sort(HashSlice(a))
}

// HashSlice attaches the methods of sort.Interface to []Hash, sorting in
// increasing byte order.
type HashSlice []Hash

func (p HashSlice) Len() int           { return len(p) }
func (p HashSlice) Less(i, j int) bool { return bytes.Compare(p[i][:], p[j][:]) < 0 }
func (p HashSlice) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }

// Compare returns -1, 0 or +1 as a is lexicographically less than, equal
// to, or greater than b.
func Compare(a, b Hash) int {
	return bytes.Compare(a[:], b[:])
}

// ValidateHashHex reports whether s is exactly 40 lowercase-or-uppercase hex
// characters.
func ValidateHashHex(s string) bool {
	if len(s) != HashHexSize {
		return false
	}
	for i := 0; i < len(s); i++ {
		if c := reverseHexTable[s[i]]; c > 0x0f {
			return false
		}
	}
	return true
}

// IsLooseDir reports whether s looks like the two-character fanout
// directory name used under objects/.
func IsLooseDir(s string) bool {
	if len(s) != 2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if c := reverseHexTable[s[i]]; c > 0x0f {
			return false
		}
	}
	return true
}

// Hasher is the streaming SHA-1 hash engine used both for object identity
// and for verifying pack index integrity. Git's object and pack formats are
// defined in terms of SHA-1 specifically, so this wraps the standard
// library implementation rather than a faster or stronger general-purpose
// hash: any other algorithm would simply produce ids that are not object
// ids.
type Hasher struct {
	hash.Hash
}

// NewHasher returns a fresh, ready-to-use Hasher.
func NewHasher() Hasher {
	return Hasher{Hash: sha1.New()}
}

// Sum finalizes the hash and returns it as a Hash. Calling Write after Sum
// is a programmer error; hash.Hash does not support it and neither does
// this wrapper.
func (h Hasher) Sum() (sum Hash) {
	copy(sum[:], h.Hash.Sum(nil))
	return
}

// VerifyContentHash recomputes an object's id from its kind and payload,
// the same "<kind> SP <size> NUL <payload>" framing used for both loose
// object storage and object identity, and compares it against oid. It is
// the round-trip check every object read ultimately rests on, whether the
// bytes came from a loose file or from resolving a delta chain.
func VerifyContentHash(oid Hash, kind ObjectType, payload []byte) error {
	h := NewHasher()
	_, _ = io.WriteString(h, kind.String())
	_, _ = io.WriteString(h, " ")
	_, _ = io.WriteString(h, strconv.Itoa(len(payload)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(payload)

	if got := h.Sum(); got != oid {
		return &ErrBadObject{OID: oid, Reason: "content hash does not match object id"}
	}
	return nil
}
