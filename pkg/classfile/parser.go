package classfile

import (
	"fmt"
	"io"
	"os"
)

// Options selects decoder policies that go beyond the plain structural walk.
// The zero value decodes purely by shape.
type Options struct {
	// WideConstants reserves the slot after each Long and Double entry, as the
	// official format does. The reserved slot is stored as nil so that the pool
	// still has constant_pool_count-1 elements.
	WideConstants bool

	// CheckMagic rejects input whose first four bytes are not 0xCAFEBABE.
	CheckMagic bool
}

// Decode decodes b with the zero Options.
func Decode(b []byte) (*ClassFile, []byte, error) {
	return Options{}.Decode(b)
}

// Decode walks b as a class file. On success it returns the tree and the bytes
// left over after the top-level attributes table. On failure the tree is nil
// and the error wraps a *DecodeError naming the innermost field.
func (o Options) Decode(b []byte) (*ClassFile, []byte, error) {
	c := newCursor(b)
	cf, err := o.readClassFile(c)
	if err != nil {
		return nil, nil, err
	}
	return cf, c.buf, nil
}

// Parse reads all of r and decodes it. Trailing input is an error.
func (o Options) Parse(r io.Reader) (*ClassFile, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading class file: %w", err)
	}
	return o.DecodeExact(b)
}

// DecodeExact decodes b and fails with ErrTrailingBytes if anything is left over.
func (o Options) DecodeExact(b []byte) (*ClassFile, error) {
	cf, rest, err := o.Decode(b)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, &DecodeError{Field: "end of class file", Offset: len(b) - len(rest), Err: ErrTrailingBytes}
	}
	return cf, nil
}

// ParseFile opens and parses a .class file from the given path.
func (o Options) ParseFile(path string) (*ClassFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cf, err := o.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cf, nil
}

func (o Options) readClassFile(c *cursor) (*ClassFile, error) {
	cf := &ClassFile{}
	var err error

	magicOff := c.off
	if cf.Magic, err = c.u32("magic"); err != nil {
		return nil, err
	}
	if o.CheckMagic && cf.Magic != Magic {
		return nil, &DecodeError{Field: "magic", Offset: magicOff,
			Err: fmt.Errorf("%w: 0x%08X (expected 0xCAFEBABE)", ErrBadMagic, cf.Magic)}
	}

	if cf.MinorVersion, err = c.u16("minor_version"); err != nil {
		return nil, err
	}
	if cf.MajorVersion, err = c.u16("major_version"); err != nil {
		return nil, err
	}

	cpCount, err := c.u16("constant_pool_count")
	if err != nil {
		return nil, err
	}
	if cf.ConstantPool, err = readConstantPool(c, cpCount, o.WideConstants); err != nil {
		return nil, err
	}

	flags, err := c.u16("access_flags")
	if err != nil {
		return nil, err
	}
	cf.AccessFlags = AccessFlags(flags)
	if cf.ThisClass, err = c.u16("this_class"); err != nil {
		return nil, err
	}
	if cf.SuperClass, err = c.u16("super_class"); err != nil {
		return nil, err
	}

	if cf.Interfaces, err = readInterfaces(c); err != nil {
		return nil, err
	}

	fieldsCount, err := c.u16("fields_count")
	if err != nil {
		return nil, err
	}
	cf.Fields = make([]FieldInfo, fieldsCount)
	for i := range cf.Fields {
		m, err := readMember(c)
		if err != nil {
			return nil, fmt.Errorf("fields[%d]: %w", i, err)
		}
		cf.Fields[i] = FieldInfo{m}
	}

	methodsCount, err := c.u16("methods_count")
	if err != nil {
		return nil, err
	}
	cf.Methods = make([]MethodInfo, methodsCount)
	for i := range cf.Methods {
		m, err := readMember(c)
		if err != nil {
			return nil, fmt.Errorf("methods[%d]: %w", i, err)
		}
		cf.Methods[i] = MethodInfo{m}
	}

	if cf.Attributes, err = readAttributes(c); err != nil {
		return nil, err
	}
	return cf, nil
}

func readInterfaces(c *cursor) ([]uint16, error) {
	count, err := c.u16("interfaces_count")
	if err != nil {
		return nil, err
	}
	interfaces := make([]uint16, count)
	for i := range interfaces {
		if interfaces[i], err = c.u16("interfaces"); err != nil {
			return nil, fmt.Errorf("interfaces[%d]: %w", i, err)
		}
	}
	return interfaces, nil
}

// readMember reads one field_info or method_info record.
func readMember(c *cursor) (MemberInfo, error) {
	var m MemberInfo
	flags, err := c.u16("access_flags")
	if err != nil {
		return m, err
	}
	m.AccessFlags = AccessFlags(flags)
	if m.NameIndex, err = c.u16("name_index"); err != nil {
		return m, err
	}
	if m.DescriptorIndex, err = c.u16("descriptor_index"); err != nil {
		return m, err
	}
	if m.Attributes, err = readAttributes(c); err != nil {
		return m, err
	}
	return m, nil
}

// readAttributes reads attributes_count followed by that many attribute_info blocks.
func readAttributes(c *cursor) ([]AttributeInfo, error) {
	count, err := c.u16("attributes_count")
	if err != nil {
		return nil, err
	}
	attrs := make([]AttributeInfo, count)
	for i := range attrs {
		if attrs[i], err = readAttribute(c); err != nil {
			return nil, fmt.Errorf("attributes[%d]: %w", i, err)
		}
	}
	return attrs, nil
}

func readAttribute(c *cursor) (AttributeInfo, error) {
	var a AttributeInfo
	var err error
	if a.NameIndex, err = c.u16("attribute_name_index"); err != nil {
		return a, err
	}
	length, err := c.u32("attribute_length")
	if err != nil {
		return a, err
	}
	if uint64(length) > uint64(c.remaining()) {
		return a, c.truncated("info")
	}
	a.Info, err = c.bytes(int(length), "info")
	return a, err
}
