package classfile

import (
	"encoding/binary"
	"fmt"
)

// byteWriter appends big-endian values to a growing buffer.
type byteWriter struct {
	buf []byte
}

func (w *byteWriter) u8(v uint8)     { w.buf = append(w.buf, v) }
func (w *byteWriter) u16(v uint16)   { w.buf = binary.BigEndian.AppendUint16(w.buf, v) }
func (w *byteWriter) u32(v uint32)   { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }
func (w *byteWriter) bytes(b []byte) { w.buf = append(w.buf, b...) }

// MarshalBinary encodes the tree back into the wire format. Every count is
// written from the length of its slice. Slots left nil by WideConstants are
// skipped, since they have no bytes on the wire.
func (cf *ClassFile) MarshalBinary() ([]byte, error) {
	if len(cf.ConstantPool) >= 0xFFFF {
		return nil, fmt.Errorf("constant pool has %d entries, max %d", len(cf.ConstantPool), 0xFFFE)
	}
	for _, c := range []struct {
		field string
		n     int
	}{
		{"interfaces", len(cf.Interfaces)},
		{"fields", len(cf.Fields)},
		{"methods", len(cf.Methods)},
	} {
		if c.n > 0xFFFF {
			return nil, fmt.Errorf("%d %s, max %d", c.n, c.field, 0xFFFF)
		}
	}
	w := &byteWriter{}
	w.u32(cf.Magic)
	w.u16(cf.MinorVersion)
	w.u16(cf.MajorVersion)
	w.u16(cf.ConstantPoolCount())
	for i, e := range cf.ConstantPool {
		if e == nil {
			continue
		}
		if u, ok := e.(*ConstantUtf8); ok && len(u.Bytes) > 0xFFFF {
			return nil, fmt.Errorf("constant_pool[%d]: utf8 length %d, max %d", i+1, len(u.Bytes), 0xFFFF)
		}
		w.buf = AppendConstant(w.buf, e)
	}
	w.u16(uint16(cf.AccessFlags))
	w.u16(cf.ThisClass)
	w.u16(cf.SuperClass)
	w.u16(cf.InterfacesCount())
	for _, i := range cf.Interfaces {
		w.u16(i)
	}
	w.u16(cf.FieldsCount())
	for i := range cf.Fields {
		if err := w.member(&cf.Fields[i].MemberInfo); err != nil {
			return nil, fmt.Errorf("fields[%d]: %w", i, err)
		}
	}
	w.u16(cf.MethodsCount())
	for i := range cf.Methods {
		if err := w.member(&cf.Methods[i].MemberInfo); err != nil {
			return nil, fmt.Errorf("methods[%d]: %w", i, err)
		}
	}
	if err := w.attributes(cf.Attributes); err != nil {
		return nil, err
	}
	return w.buf, nil
}

func (w *byteWriter) member(m *MemberInfo) error {
	w.u16(uint16(m.AccessFlags))
	w.u16(m.NameIndex)
	w.u16(m.DescriptorIndex)
	return w.attributes(m.Attributes)
}

func (w *byteWriter) attributes(attrs []AttributeInfo) error {
	if len(attrs) > 0xFFFF {
		return fmt.Errorf("%d attributes, max %d", len(attrs), 0xFFFF)
	}
	w.u16(uint16(len(attrs)))
	for i := range attrs {
		w.u16(attrs[i].NameIndex)
		w.u32(attrs[i].Length())
		w.bytes(attrs[i].Info)
	}
	return nil
}

// AppendConstant appends the wire form of e, tag byte included, to b.
// Utf8 payloads longer than 65535 bytes are truncated to fit the length
// prefix; callers that need a faithful encoding must check the length first.
func AppendConstant(b []byte, e ConstantPoolEntry) []byte {
	w := &byteWriter{buf: b}
	w.u8(uint8(e.Tag()))
	switch c := e.(type) {
	case *ConstantUtf8:
		n := len(c.Bytes)
		if n > 0xFFFF {
			n = 0xFFFF
		}
		w.u16(uint16(n))
		w.bytes(c.Bytes[:n])
	case *ConstantInteger:
		w.u32(c.Bytes)
	case *ConstantFloat:
		w.u32(c.Bytes)
	case *ConstantLong:
		w.u32(c.HighBytes)
		w.u32(c.LowBytes)
	case *ConstantDouble:
		w.u32(c.HighBytes)
		w.u32(c.LowBytes)
	case *ConstantClass:
		w.u16(c.NameIndex)
	case *ConstantString:
		w.u16(c.StringIndex)
	case *ConstantFieldref:
		w.u16(c.ClassIndex)
		w.u16(c.NameAndTypeIndex)
	case *ConstantMethodref:
		w.u16(c.ClassIndex)
		w.u16(c.NameAndTypeIndex)
	case *ConstantInterfaceMethodref:
		w.u16(c.ClassIndex)
		w.u16(c.NameAndTypeIndex)
	case *ConstantNameAndType:
		w.u16(c.NameIndex)
		w.u16(c.DescriptorIndex)
	case *ConstantMethodHandle:
		w.u8(c.ReferenceKind)
		w.u16(c.ReferenceIndex)
	case *ConstantMethodType:
		w.u16(c.DescriptorIndex)
	case *ConstantDynamic:
		w.u16(c.BootstrapMethodAttrIndex)
		w.u16(c.NameAndTypeIndex)
	case *ConstantModule:
		w.u16(c.NameIndex)
	case *ConstantPackage:
		w.u16(c.NameIndex)
	default:
		panic(fmt.Sprintf("classfile: no encoding for constant %T", e))
	}
	return w.buf
}
