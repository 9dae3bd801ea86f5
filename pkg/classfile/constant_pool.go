package classfile

import (
	"fmt"
	"math"
)

// ConstantTag is the one-byte discriminant in front of every constant pool entry.
type ConstantTag uint8

// Constant pool tags
const (
	TagUtf8               ConstantTag = 1
	TagInteger            ConstantTag = 3
	TagFloat              ConstantTag = 4
	TagLong               ConstantTag = 5
	TagDouble             ConstantTag = 6
	TagClass              ConstantTag = 7
	TagString             ConstantTag = 8
	TagFieldref           ConstantTag = 9
	TagMethodref          ConstantTag = 10
	TagInterfaceMethodref ConstantTag = 11
	TagNameAndType        ConstantTag = 12
	TagMethodHandle       ConstantTag = 15
	TagMethodType         ConstantTag = 16
	TagDynamic            ConstantTag = 17
	TagModule             ConstantTag = 19
	TagPackage            ConstantTag = 20
)

var tagNames = map[ConstantTag]string{
	TagUtf8:               "Utf8",
	TagInteger:            "Integer",
	TagFloat:              "Float",
	TagLong:               "Long",
	TagDouble:             "Double",
	TagClass:              "Class",
	TagString:             "String",
	TagFieldref:           "Fieldref",
	TagMethodref:          "Methodref",
	TagInterfaceMethodref: "InterfaceMethodref",
	TagNameAndType:        "NameAndType",
	TagMethodHandle:       "MethodHandle",
	TagMethodType:         "MethodType",
	TagDynamic:            "Dynamic",
	TagModule:             "Module",
	TagPackage:            "Package",
}

func (t ConstantTag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ConstantTag(%d)", uint8(t))
}

// Wide reports whether the tag occupies two constant pool slots in the
// official format.
func (t ConstantTag) Wide() bool {
	return t == TagLong || t == TagDouble
}

// KnownConstantTags returns every tag the decoder accepts, in wire order.
func KnownConstantTags() []ConstantTag {
	return []ConstantTag{
		TagUtf8, TagInteger, TagFloat, TagLong, TagDouble, TagClass, TagString,
		TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType,
		TagMethodHandle, TagMethodType, TagDynamic, TagModule, TagPackage,
	}
}

// ConstantPoolEntry is implemented only by the Constant* types in this package.
type ConstantPoolEntry interface {
	Tag() ConstantTag
	constant()
}

// ConstantUtf8 holds a length-prefixed string payload, copied from the input.
type ConstantUtf8 struct {
	// Bytes is the raw modified-UTF-8 payload; it is not validated.
	Bytes []byte
}

func (c *ConstantUtf8) Tag() ConstantTag { return TagUtf8 }
func (c *ConstantUtf8) String() string   { return string(c.Bytes) }

// ConstantInteger holds the raw big-endian bits of an int.
type ConstantInteger struct {
	Bytes uint32
}

func (c *ConstantInteger) Tag() ConstantTag { return TagInteger }
func (c *ConstantInteger) Int32() int32     { return int32(c.Bytes) }

type ConstantFloat struct {
	Bytes uint32
}

func (c *ConstantFloat) Tag() ConstantTag { return TagFloat }
func (c *ConstantFloat) Float32() float32 { return math.Float32frombits(c.Bytes) }

// ConstantLong holds the two big-endian words of a long, high word first.
// In a real class file it also occupies the pool slot after it.
type ConstantLong struct {
	HighBytes uint32
	LowBytes  uint32
}

func (c *ConstantLong) Tag() ConstantTag { return TagLong }
func (c *ConstantLong) Int64() int64 {
	return int64(uint64(c.HighBytes)<<32 | uint64(c.LowBytes))
}

// ConstantDouble holds the IEEE 754 bits of a double split like ConstantLong.
type ConstantDouble struct {
	HighBytes uint32
	LowBytes  uint32
}

func (c *ConstantDouble) Tag() ConstantTag { return TagDouble }
func (c *ConstantDouble) Float64() float64 {
	return math.Float64frombits(uint64(c.HighBytes)<<32 | uint64(c.LowBytes))
}

// ConstantClass names a class or interface through a Utf8 entry.
type ConstantClass struct {
	NameIndex uint16
}

func (c *ConstantClass) Tag() ConstantTag { return TagClass }

type ConstantString struct {
	StringIndex uint16
}

func (c *ConstantString) Tag() ConstantTag { return TagString }

type ConstantFieldref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantFieldref) Tag() ConstantTag { return TagFieldref }

type ConstantMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantMethodref) Tag() ConstantTag { return TagMethodref }

type ConstantInterfaceMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantInterfaceMethodref) Tag() ConstantTag { return TagInterfaceMethodref }

// ConstantNameAndType pairs a member name with its descriptor.
type ConstantNameAndType struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

func (c *ConstantNameAndType) Tag() ConstantTag { return TagNameAndType }

// ConstantMethodHandle is a one-byte reference kind (1 to 9) and the index
// of the field or method it refers to. The kind is not range checked.
type ConstantMethodHandle struct {
	ReferenceKind  uint8
	ReferenceIndex uint16
}

func (c *ConstantMethodHandle) Tag() ConstantTag { return TagMethodHandle }

type ConstantMethodType struct {
	DescriptorIndex uint16
}

func (c *ConstantMethodType) Tag() ConstantTag { return TagMethodType }

// ConstantDynamic refers to an entry of the BootstrapMethods attribute,
// which stays raw bytes in this package.
type ConstantDynamic struct {
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (c *ConstantDynamic) Tag() ConstantTag { return TagDynamic }

type ConstantModule struct {
	NameIndex uint16
}

func (c *ConstantModule) Tag() ConstantTag { return TagModule }

type ConstantPackage struct {
	NameIndex uint16
}

func (c *ConstantPackage) Tag() ConstantTag { return TagPackage }

func (*ConstantUtf8) constant()               {}
func (*ConstantInteger) constant()            {}
func (*ConstantFloat) constant()              {}
func (*ConstantLong) constant()               {}
func (*ConstantDouble) constant()             {}
func (*ConstantClass) constant()              {}
func (*ConstantString) constant()             {}
func (*ConstantFieldref) constant()           {}
func (*ConstantMethodref) constant()          {}
func (*ConstantInterfaceMethodref) constant() {}
func (*ConstantNameAndType) constant()        {}
func (*ConstantMethodHandle) constant()       {}
func (*ConstantMethodType) constant()         {}
func (*ConstantDynamic) constant()            {}
func (*ConstantModule) constant()             {}
func (*ConstantPackage) constant()            {}

// readConstant reads one tag byte and the payload it selects.
func readConstant(c *cursor) (ConstantPoolEntry, error) {
	tagOff := c.off
	raw, err := c.u8("tag")
	if err != nil {
		return nil, err
	}

	switch tag := ConstantTag(raw); tag {
	case TagUtf8:
		length, err := c.u16("length")
		if err != nil {
			return nil, err
		}
		b, err := c.bytes(int(length), "bytes")
		if err != nil {
			return nil, err
		}
		return &ConstantUtf8{Bytes: b}, nil

	case TagInteger:
		v, err := c.u32("bytes")
		if err != nil {
			return nil, err
		}
		return &ConstantInteger{Bytes: v}, nil

	case TagFloat:
		v, err := c.u32("bytes")
		if err != nil {
			return nil, err
		}
		return &ConstantFloat{Bytes: v}, nil

	case TagLong, TagDouble:
		high, err := c.u32("high_bytes")
		if err != nil {
			return nil, err
		}
		low, err := c.u32("low_bytes")
		if err != nil {
			return nil, err
		}
		if tag == TagLong {
			return &ConstantLong{HighBytes: high, LowBytes: low}, nil
		}
		return &ConstantDouble{HighBytes: high, LowBytes: low}, nil

	case TagClass:
		idx, err := c.u16("name_index")
		if err != nil {
			return nil, err
		}
		return &ConstantClass{NameIndex: idx}, nil

	case TagString:
		idx, err := c.u16("string_index")
		if err != nil {
			return nil, err
		}
		return &ConstantString{StringIndex: idx}, nil

	case TagFieldref, TagMethodref, TagInterfaceMethodref:
		classIdx, err := c.u16("class_index")
		if err != nil {
			return nil, err
		}
		natIdx, err := c.u16("name_and_type_index")
		if err != nil {
			return nil, err
		}
		switch tag {
		case TagFieldref:
			return &ConstantFieldref{ClassIndex: classIdx, NameAndTypeIndex: natIdx}, nil
		case TagMethodref:
			return &ConstantMethodref{ClassIndex: classIdx, NameAndTypeIndex: natIdx}, nil
		default:
			return &ConstantInterfaceMethodref{ClassIndex: classIdx, NameAndTypeIndex: natIdx}, nil
		}

	case TagNameAndType:
		nameIdx, err := c.u16("name_index")
		if err != nil {
			return nil, err
		}
		descIdx, err := c.u16("descriptor_index")
		if err != nil {
			return nil, err
		}
		return &ConstantNameAndType{NameIndex: nameIdx, DescriptorIndex: descIdx}, nil

	case TagMethodHandle:
		kind, err := c.u8("reference_kind")
		if err != nil {
			return nil, err
		}
		idx, err := c.u16("reference_index")
		if err != nil {
			return nil, err
		}
		return &ConstantMethodHandle{ReferenceKind: kind, ReferenceIndex: idx}, nil

	case TagMethodType:
		idx, err := c.u16("descriptor_index")
		if err != nil {
			return nil, err
		}
		return &ConstantMethodType{DescriptorIndex: idx}, nil

	case TagDynamic:
		bsmIdx, err := c.u16("bootstrap_method_attr_index")
		if err != nil {
			return nil, err
		}
		natIdx, err := c.u16("name_and_type_index")
		if err != nil {
			return nil, err
		}
		return &ConstantDynamic{BootstrapMethodAttrIndex: bsmIdx, NameAndTypeIndex: natIdx}, nil

	case TagModule:
		idx, err := c.u16("name_index")
		if err != nil {
			return nil, err
		}
		return &ConstantModule{NameIndex: idx}, nil

	case TagPackage:
		idx, err := c.u16("name_index")
		if err != nil {
			return nil, err
		}
		return &ConstantPackage{NameIndex: idx}, nil

	default:
		return nil, &DecodeError{Field: "tag", Offset: tagOff, Err: &UnknownConstantTagError{Tag: raw}}
	}
}

// readConstantPool decodes count-1 entries. With wide set, the slot after a
// Long or Double is left nil instead of being read from the input.
func readConstantPool(c *cursor, count uint16, wide bool) (ConstantPool, error) {
	if count == 0 {
		return ConstantPool{}, nil
	}
	pool := make(ConstantPool, count-1)
	for i := 0; i < len(pool); i++ {
		entry, err := readConstant(c)
		if err != nil {
			return nil, fmt.Errorf("constant_pool[%d]: %w", i+1, err)
		}
		pool[i] = entry
		if wide && entry.Tag().Wide() && i+1 < len(pool) {
			i++
		}
	}
	return pool, nil
}
