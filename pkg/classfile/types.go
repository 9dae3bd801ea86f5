package classfile

import (
	"sort"
	"strings"
)

// Magic is the expected value of the first four bytes of a class file.
const Magic = 0xCAFEBABE

// AccessFlags is the 16-bit access and property mask of a class or member.
type AccessFlags uint16

// Access flags
const (
	AccPublic     AccessFlags = 0x0001
	AccPrivate    AccessFlags = 0x0002
	AccProtected  AccessFlags = 0x0004
	AccStatic     AccessFlags = 0x0008
	AccFinal      AccessFlags = 0x0010
	AccSuper      AccessFlags = 0x0020
	AccVolatile   AccessFlags = 0x0040
	AccTransient  AccessFlags = 0x0080
	AccNative     AccessFlags = 0x0100
	AccInterface  AccessFlags = 0x0200
	AccAbstract   AccessFlags = 0x0400
	AccStrict     AccessFlags = 0x0800
	AccSynthetic  AccessFlags = 0x1000
	AccAnnotation AccessFlags = 0x2000
	AccEnum       AccessFlags = 0x4000
	AccModule     AccessFlags = 0x8000
)

var classFlagNames = map[AccessFlags]string{
	AccPublic:     "public",
	AccFinal:      "final",
	AccSuper:      "super",
	AccInterface:  "interface",
	AccAbstract:   "abstract",
	AccSynthetic:  "synthetic",
	AccAnnotation: "annotation",
	AccEnum:       "enum",
	AccModule:     "module",
}

func (f AccessFlags) Has(flag AccessFlags) bool { return f&flag == flag }

// String renders the class-level flags that are set, e.g. "public super".
// Bits without a class-level meaning are ignored.
func (f AccessFlags) String() string {
	var names []string
	var bits []int
	for flag := range classFlagNames {
		if f.Has(flag) {
			bits = append(bits, int(flag))
		}
	}
	sort.Ints(bits)
	for _, b := range bits {
		names = append(names, classFlagNames[AccessFlags(b)])
	}
	return strings.Join(names, " ")
}

// ClassFile is the decoded tree. Every count in the wire format is derived
// from the length of the matching slice.
type ClassFile struct {
	Magic        uint32
	MinorVersion uint16
	MajorVersion uint16
	ConstantPool ConstantPool
	AccessFlags  AccessFlags
	ThisClass    uint16
	// SuperClass is 0 when the class has no superclass.
	SuperClass uint16
	Interfaces []uint16
	Fields     []FieldInfo
	Methods    []MethodInfo
	Attributes []AttributeInfo
}

func (cf *ClassFile) ConstantPoolCount() uint16 { return uint16(len(cf.ConstantPool) + 1) }
func (cf *ClassFile) InterfacesCount() uint16   { return uint16(len(cf.Interfaces)) }
func (cf *ClassFile) FieldsCount() uint16       { return uint16(len(cf.Fields)) }
func (cf *ClassFile) MethodsCount() uint16      { return uint16(len(cf.Methods)) }
func (cf *ClassFile) AttributesCount() uint16   { return uint16(len(cf.Attributes)) }

// ClassName returns the internal name of this class.
func (cf *ClassFile) ClassName() (string, error) {
	return cf.ConstantPool.ClassName(cf.ThisClass)
}

// SuperClassName returns the internal name of the super class.
// Returns "" if SuperClass is 0 or cannot be resolved.
func (cf *ClassFile) SuperClassName() string {
	if cf.SuperClass == 0 {
		return ""
	}
	name, err := cf.ConstantPool.ClassName(cf.SuperClass)
	if err != nil {
		return ""
	}
	return name
}

// FindMethod finds a method by name and descriptor.
func (cf *ClassFile) FindMethod(name, descriptor string) *MethodInfo {
	for i := range cf.Methods {
		m := &cf.Methods[i]
		if cf.utf8Is(m.NameIndex, name) && cf.utf8Is(m.DescriptorIndex, descriptor) {
			return m
		}
	}
	return nil
}

// FindField finds a field by name (first match).
func (cf *ClassFile) FindField(name string) *FieldInfo {
	for i := range cf.Fields {
		if cf.utf8Is(cf.Fields[i].NameIndex, name) {
			return &cf.Fields[i]
		}
	}
	return nil
}

// FindAttribute finds a class-level attribute by name.
func (cf *ClassFile) FindAttribute(name string) *AttributeInfo {
	return findAttribute(cf.ConstantPool, cf.Attributes, name)
}

func (cf *ClassFile) utf8Is(index uint16, want string) bool {
	s, err := cf.ConstantPool.Utf8(index)
	return err == nil && s == want
}

// MemberInfo is the shared shape of field_info and method_info.
type MemberInfo struct {
	AccessFlags     AccessFlags
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []AttributeInfo
}

func (m *MemberInfo) AttributesCount() uint16 { return uint16(len(m.Attributes)) }

// FindAttribute finds one of the member's attributes by name.
func (m *MemberInfo) FindAttribute(pool ConstantPool, name string) *AttributeInfo {
	return findAttribute(pool, m.Attributes, name)
}

// FieldInfo represents a field in a class file.
type FieldInfo struct {
	MemberInfo
}

// MethodInfo represents a method in a class file.
type MethodInfo struct {
	MemberInfo
}

// AttributeInfo is an attribute with its payload left uninterpreted.
type AttributeInfo struct {
	NameIndex uint16
	Info      []byte
}

func (a *AttributeInfo) Length() uint32 { return uint32(len(a.Info)) }

func findAttribute(pool ConstantPool, attrs []AttributeInfo, name string) *AttributeInfo {
	for i := range attrs {
		if s, err := pool.Utf8(attrs[i].NameIndex); err == nil && s == name {
			return &attrs[i]
		}
	}
	return nil
}
