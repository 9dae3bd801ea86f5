package classfile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// One synthetic entry per tag. TestConstantRoundTrip fails if a tag is added
// to KnownConstantTags without a sample here.
var sampleConstants = map[ConstantTag]ConstantPoolEntry{
	TagUtf8:               &ConstantUtf8{Bytes: []byte{'h', 'i', 0xC0, 0x80}},
	TagInteger:            &ConstantInteger{Bytes: 0xFFFFFFFE},
	TagFloat:              &ConstantFloat{Bytes: math.Float32bits(1.5)},
	TagLong:               &ConstantLong{HighBytes: 0x01020304, LowBytes: 0x05060708},
	TagDouble:             &ConstantDouble{HighBytes: 0x3FF00000, LowBytes: 0},
	TagClass:              &ConstantClass{NameIndex: 0x0102},
	TagString:             &ConstantString{StringIndex: 7},
	TagFieldref:           &ConstantFieldref{ClassIndex: 1, NameAndTypeIndex: 2},
	TagMethodref:          &ConstantMethodref{ClassIndex: 3, NameAndTypeIndex: 4},
	TagInterfaceMethodref: &ConstantInterfaceMethodref{ClassIndex: 5, NameAndTypeIndex: 6},
	TagNameAndType:        &ConstantNameAndType{NameIndex: 8, DescriptorIndex: 9},
	TagMethodHandle:       &ConstantMethodHandle{ReferenceKind: 6, ReferenceIndex: 0xBEEF},
	TagMethodType:         &ConstantMethodType{DescriptorIndex: 10},
	TagDynamic:            &ConstantDynamic{BootstrapMethodAttrIndex: 0, NameAndTypeIndex: 11},
	TagModule:             &ConstantModule{NameIndex: 12},
	TagPackage:            &ConstantPackage{NameIndex: 13},
}

func TestConstantRoundTrip(t *testing.T) {
	tags := KnownConstantTags()
	require.Len(t, sampleConstants, len(tags))

	for _, tag := range tags {
		entry, ok := sampleConstants[tag]
		require.True(t, ok, "no sample for %s", tag)

		t.Run(tag.String(), func(t *testing.T) {
			assert.Equal(t, tag, entry.Tag())

			wire := AppendConstant(nil, entry)
			assert.Equal(t, byte(tag), wire[0])

			c := newCursor(wire)
			got, err := readConstant(c)
			require.NoError(t, err)
			assert.Equal(t, entry, got)
			assert.Equal(t, tag, got.Tag())
			assert.Zero(t, c.remaining())
			assert.Equal(t, len(wire), c.off)

			for n := 0; n < len(wire); n++ {
				_, err := readConstant(newCursor(wire[:n]))
				assert.ErrorIs(t, err, ErrTruncatedInput, "prefix of %d bytes", n)
			}
		})
	}
}

func TestConstantPayloadWidths(t *testing.T) {
	widths := map[ConstantTag]int{
		TagInteger: 4, TagFloat: 4, TagLong: 8, TagDouble: 8, TagClass: 2,
		TagString: 2, TagFieldref: 4, TagMethodref: 4, TagInterfaceMethodref: 4,
		TagNameAndType: 4, TagMethodHandle: 3, TagMethodType: 2, TagDynamic: 4,
		TagModule: 2, TagPackage: 2,
	}
	for tag, width := range widths {
		wire := AppendConstant(nil, sampleConstants[tag])
		assert.Len(t, wire, 1+width, "%s", tag)
	}
	assert.Len(t, AppendConstant(nil, utf8("abc")), 1+2+3)
}

func TestConstantAccessors(t *testing.T) {
	assert.Equal(t, int32(-2), sampleConstants[TagInteger].(*ConstantInteger).Int32())
	assert.Equal(t, float32(1.5), sampleConstants[TagFloat].(*ConstantFloat).Float32())
	assert.Equal(t, int64(0x0102030405060708), sampleConstants[TagLong].(*ConstantLong).Int64())
	assert.Equal(t, 1.0, sampleConstants[TagDouble].(*ConstantDouble).Float64())
	assert.Equal(t, int64(-1), (&ConstantLong{HighBytes: 0xFFFFFFFF, LowBytes: 0xFFFFFFFF}).Int64())
	assert.Equal(t, "hi\xc0\x80", sampleConstants[TagUtf8].(*ConstantUtf8).String())
}

func TestConstantTagString(t *testing.T) {
	assert.Equal(t, "Utf8", TagUtf8.String())
	assert.Equal(t, "InterfaceMethodref", TagInterfaceMethodref.String())
	assert.Equal(t, "ConstantTag(18)", ConstantTag(18).String())
	assert.True(t, TagLong.Wide())
	assert.True(t, TagDouble.Wide())
	assert.False(t, TagInteger.Wide())
}

func TestConstantPoolLookups(t *testing.T) {
	pool := sampleClass().ConstantPool

	t.Run("utf8", func(t *testing.T) {
		s, err := pool.Utf8(5)
		require.NoError(t, err)
		assert.Equal(t, "main", s)
	})

	t.Run("class name", func(t *testing.T) {
		s, err := pool.ClassName(4)
		require.NoError(t, err)
		assert.Equal(t, "java/lang/Object", s)
	})

	t.Run("member ref", func(t *testing.T) {
		ref, err := pool.MemberRef(9)
		require.NoError(t, err)
		assert.Equal(t, &MemberRef{ClassName: "Hello", Name: "main", Descriptor: "([Ljava/lang/String;)V"}, ref)
	})

	t.Run("index zero", func(t *testing.T) {
		_, err := pool.Entry(0)
		assert.ErrorIs(t, err, ErrBadIndex)
	})

	t.Run("index past end", func(t *testing.T) {
		_, err := pool.Utf8(uint16(len(pool) + 1))
		assert.ErrorIs(t, err, ErrBadIndex)
	})

	t.Run("wrong tag", func(t *testing.T) {
		_, err := pool.Utf8(2)
		assert.ErrorIs(t, err, ErrWrongTag)
		assert.Contains(t, err.Error(), "Class")

		_, err = pool.MemberRef(1)
		assert.ErrorIs(t, err, ErrWrongTag)
	})

	t.Run("broken chain", func(t *testing.T) {
		broken := ConstantPool{&ConstantClass{NameIndex: 1}}
		_, err := broken.ClassName(1)
		assert.ErrorIs(t, err, ErrWrongTag)
	})
}

func TestAccessFlagsString(t *testing.T) {
	assert.Equal(t, "public super", (AccPublic | AccSuper).String())
	assert.Equal(t, "public final interface abstract", (AccPublic | AccFinal | AccInterface | AccAbstract).String())
	assert.Equal(t, "", AccessFlags(0).String())
	assert.True(t, (AccPublic | AccStatic).Has(AccStatic))
	assert.False(t, AccPublic.Has(AccPublic|AccStatic))
}
