package plumbing

import "fmt"

// ObjectType identifies one of the four content-addressed object kinds a
// repository stores. OffsetDelta and RefDelta are transport-only encodings
// that only ever appear inside a packfile; they never name a plain object.
type ObjectType int8

const (
	InvalidObject ObjectType = iota
	CommitObject
	TreeObject
	BlobObject
	TagObject
	OffsetDeltaObject
	RefDeltaObject
)

func (t ObjectType) String() string {
	switch t {
	case CommitObject:
		return "commit"
	case TreeObject:
		return "tree"
	case BlobObject:
		return "blob"
	case TagObject:
		return "tag"
	case OffsetDeltaObject:
		return "ofs-delta"
	case RefDeltaObject:
		return "ref-delta"
	default:
		return "invalid"
	}
}

// IsPlain reports whether t is one of the four storable object kinds, as
// opposed to a transport-only delta encoding.
func (t ObjectType) IsPlain() bool {
	switch t {
	case CommitObject, TreeObject, BlobObject, TagObject:
		return true
	default:
		return false
	}
}

// ParseObjectTypeWord maps a loose object header's type word ("commit",
// "tree", "blob", "tag") to an ObjectType.
func ParseObjectTypeWord(word string) (ObjectType, error) {
	switch word {
	case "commit":
		return CommitObject, nil
	case "tree":
		return TreeObject, nil
	case "blob":
		return BlobObject, nil
	case "tag":
		return TagObject, nil
	default:
		return InvalidObject, &ErrBadObject{Reason: fmt.Sprintf("unrecognized object type %q", word)}
	}
}

// PackedObjectType maps the 3-bit kind field of a packfile entry header
// (values 1-7) to an ObjectType. Kind 5 is reserved by the pack format and
// is never valid.
func PackedObjectType(kind byte) (ObjectType, error) {
	switch kind {
	case 1:
		return CommitObject, nil
	case 2:
		return TreeObject, nil
	case 3:
		return BlobObject, nil
	case 4:
		return TagObject, nil
	case 6:
		return OffsetDeltaObject, nil
	case 7:
		return RefDeltaObject, nil
	default:
		return InvalidObject, &ErrUnsupportedObjectKind{Kind: kind}
	}
}
