package types

import (
	"math"
	"testing"

	"github.com/daimatz/classparse/pkg/classfile"
	"github.com/daimatz/classparse/pkg/heap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Byte(-1), "byte(-1)"},
		{Short(300), "short(300)"},
		{Int(5), "int(5)"},
		{Long(math.MaxInt64), "long(9223372036854775807)"},
		{Char('A'), "char(65)"},
		{Float(1.5), "float(1.5)"},
		{Double(-0.25), "double(-0.25)"},
		{Boolean(true), "boolean(true)"},
		{ReturnAddress(12), "returnAddress(12)"},
		{Null, "reference(null)"},
		{Reference(0x2a), "reference(0x2a)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.String())
		})
	}
}

func TestKinds(t *testing.T) {
	t.Run("width", func(t *testing.T) {
		assert.Equal(t, 2, Long(0).Width())
		assert.Equal(t, 2, Double(0).Width())
		for _, v := range []Value{Byte(0), Short(0), Int(0), Char(0), Float(0), Boolean(false), ReturnAddress(0), Null} {
			assert.Equal(t, 1, v.Width(), v.Kind().String())
		}
	})

	t.Run("categories", func(t *testing.T) {
		assert.True(t, KindReturnAddress.IsPrimitive())
		assert.True(t, KindBoolean.IsPrimitive())
		assert.False(t, KindReference.IsPrimitive())

		assert.True(t, KindChar.IsIntegral())
		assert.True(t, KindLong.IsIntegral())
		assert.False(t, KindBoolean.IsIntegral())
		assert.False(t, KindFloat.IsIntegral())

		assert.True(t, KindFloat.IsFloatingPoint())
		assert.True(t, KindDouble.IsFloatingPoint())
		assert.False(t, KindInt.IsFloatingPoint())

		assert.True(t, KindReference.IsReference())
		assert.False(t, KindInt.IsReference())
	})

	t.Run("zero values match their kind", func(t *testing.T) {
		for k := KindByte; k <= KindReference; k++ {
			z := Zero(k)
			require.NotNil(t, z, k.String())
			assert.Equal(t, k, z.Kind())
		}
		assert.Nil(t, Zero(Kind(99)))
		assert.Equal(t, "Kind(99)", Kind(99).String())
	})

	t.Run("slots", func(t *testing.T) {
		assert.Equal(t, 0, Slots())
		assert.Equal(t, 5, Slots(Int(1), Long(2), Null, Double(3)))
	})
}

func TestFromConstant(t *testing.T) {
	tests := []struct {
		name  string
		entry classfile.ConstantPoolEntry
		want  Value
	}{
		{"integer", &classfile.ConstantInteger{Bytes: 0xFFFFFFFF}, Int(-1)},
		{"float", &classfile.ConstantFloat{Bytes: math.Float32bits(2.5)}, Float(2.5)},
		{"long", &classfile.ConstantLong{HighBytes: 0x00000001, LowBytes: 0x00000002}, Long(1<<32 | 2)},
		{"double", &classfile.ConstantDouble{
			HighBytes: uint32(math.Float64bits(3.25) >> 32),
			LowBytes:  uint32(math.Float64bits(3.25)),
		}, Double(3.25)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromConstant(tt.entry)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("not loadable", func(t *testing.T) {
		_, err := FromConstant(&classfile.ConstantUtf8{Bytes: []byte("x")})
		assert.ErrorIs(t, err, ErrNotLoadable)
		_, err = FromConstant(nil)
		assert.ErrorIs(t, err, ErrNotLoadable)
	})
}

func TestFromDescriptor(t *testing.T) {
	tests := map[string]Value{
		"B":                  Byte(0),
		"S":                  Short(0),
		"I":                  Int(0),
		"J":                  Long(0),
		"C":                  Char(0),
		"F":                  Float(0),
		"D":                  Double(0),
		"Z":                  Boolean(false),
		"Ljava/lang/String;": Null,
		"[I":                 Null,
	}
	for desc, want := range tests {
		got, err := FromDescriptor(desc)
		require.NoError(t, err, desc)
		assert.Equal(t, want, got, desc)
	}

	for _, desc := range []string{"", "V", "Q"} {
		_, err := FromDescriptor(desc)
		assert.ErrorIs(t, err, ErrBadDescriptor, desc)
	}
}

func pointClass() *classfile.ClassFile {
	return &classfile.ClassFile{
		Magic: classfile.Magic,
		ConstantPool: classfile.ConstantPool{
			&classfile.ConstantUtf8{Bytes: []byte("Point")},
			&classfile.ConstantClass{NameIndex: 1},
			&classfile.ConstantUtf8{Bytes: []byte("x")},
			&classfile.ConstantUtf8{Bytes: []byte("I")},
			&classfile.ConstantUtf8{Bytes: []byte("next")},
			&classfile.ConstantUtf8{Bytes: []byte("LPoint;")},
			&classfile.ConstantUtf8{Bytes: []byte("COUNT")},
			&classfile.ConstantUtf8{Bytes: []byte("J")},
		},
		ThisClass: 2,
		Fields: []classfile.FieldInfo{
			{MemberInfo: classfile.MemberInfo{NameIndex: 3, DescriptorIndex: 4}},
			{MemberInfo: classfile.MemberInfo{NameIndex: 5, DescriptorIndex: 6}},
			{MemberInfo: classfile.MemberInfo{AccessFlags: classfile.AccStatic, NameIndex: 7, DescriptorIndex: 8}},
		},
	}
}

func TestObjectsOnHeap(t *testing.T) {
	h := heap.New(nil)

	obj, err := NewObject(pointClass())
	require.NoError(t, err)
	assert.Equal(t, "Point", obj.ClassName)
	assert.Equal(t, map[string]Value{"x": Int(0), "next": Null}, obj.Fields)

	ref := Reference(h.Alloc(obj))
	assert.False(t, ref.IsNull())

	inner := &Object{ClassName: "Point", Fields: map[string]Value{"x": Int(7), "next": Null}}
	obj.Fields["next"] = Reference(h.Alloc(inner))
	obj.Fields["x"] = Int(42)

	got, err := Deref[*Object](h, ref)
	require.NoError(t, err)
	assert.Equal(t, Int(42), got.Fields["x"])

	next, err := Deref[*Object](h, got.Fields["next"].(Reference))
	require.NoError(t, err)
	assert.Equal(t, Int(7), next.Fields["x"])

	_, err = Deref[*Object](h, Null)
	assert.ErrorIs(t, err, heap.ErrUnallocated)
	_, err = Deref[*Array](h, ref)
	assert.ErrorIs(t, err, heap.ErrWrongType)
}

func TestNewObjectBadDescriptor(t *testing.T) {
	cf := pointClass()
	cf.ConstantPool[3] = &classfile.ConstantUtf8{Bytes: []byte("V")}
	_, err := NewObject(cf)
	assert.ErrorIs(t, err, ErrBadDescriptor)
}

func TestNewArray(t *testing.T) {
	a, err := NewArray("J", 3)
	require.NoError(t, err)
	assert.Equal(t, []Value{Long(0), Long(0), Long(0)}, a.Elements)
	assert.Equal(t, 6, Slots(a.Elements...))

	_, err = NewArray("", 1)
	assert.ErrorIs(t, err, ErrBadDescriptor)

	a, err = NewArray("I", 0)
	require.NoError(t, err)
	assert.Empty(t, a.Elements)

	_, err = NewArray("I", -1)
	assert.ErrorIs(t, err, ErrBadLength)
}
