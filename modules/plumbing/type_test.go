package plumbing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectTypeString(t *testing.T) {
	cases := map[ObjectType]string{
		CommitObject:      "commit",
		TreeObject:        "tree",
		BlobObject:        "blob",
		TagObject:         "tag",
		OffsetDeltaObject: "ofs-delta",
		RefDeltaObject:    "ref-delta",
		InvalidObject:     "invalid",
	}
	for typ, want := range cases {
		assert.Equal(t, want, typ.String())
	}
}

func TestObjectTypeIsPlain(t *testing.T) {
	assert.True(t, CommitObject.IsPlain())
	assert.True(t, BlobObject.IsPlain())
	assert.False(t, OffsetDeltaObject.IsPlain())
	assert.False(t, RefDeltaObject.IsPlain())
}

func TestParseObjectTypeWord(t *testing.T) {
	typ, err := ParseObjectTypeWord("tree")
	require.NoError(t, err)
	assert.Equal(t, TreeObject, typ)

	_, err = ParseObjectTypeWord("bogus")
	require.Error(t, err)
}

func TestPackedObjectType(t *testing.T) {
	typ, err := PackedObjectType(6)
	require.NoError(t, err)
	assert.Equal(t, OffsetDeltaObject, typ)

	typ, err = PackedObjectType(7)
	require.NoError(t, err)
	assert.Equal(t, RefDeltaObject, typ)

	_, err = PackedObjectType(5)
	require.Error(t, err)
	assert.IsType(t, &ErrUnsupportedObjectKind{}, err)
}
