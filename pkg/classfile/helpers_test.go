package classfile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func utf8(s string) *ConstantUtf8 { return &ConstantUtf8{Bytes: []byte(s)} }

// sampleClass builds a small but complete class: one interface, one field with
// a ConstantValue attribute, one method with a Code attribute and a class-level
// SourceFile attribute.
func sampleClass() *ClassFile {
	return &ClassFile{
		Magic:        Magic,
		MinorVersion: 0,
		MajorVersion: 61,
		ConstantPool: ConstantPool{
			utf8("Hello"),                                          // 1
			&ConstantClass{NameIndex: 1},                           // 2
			utf8("java/lang/Object"),                               // 3
			&ConstantClass{NameIndex: 3},                           // 4
			utf8("main"),                                           // 5
			utf8("([Ljava/lang/String;)V"),                         // 6
			utf8("Code"),                                           // 7
			&ConstantNameAndType{NameIndex: 5, DescriptorIndex: 6}, // 8
			&ConstantMethodref{ClassIndex: 2, NameAndTypeIndex: 8}, // 9
			utf8("count"),                                          // 10
			utf8("I"),                                              // 11
			&ConstantInteger{Bytes: 42},                            // 12
			utf8("SourceFile"),                                     // 13
			utf8("Hello.java"),                                     // 14
			utf8("java/lang/Runnable"),                             // 15
			&ConstantClass{NameIndex: 15},                          // 16
			utf8("ConstantValue"),                                  // 17
		},
		AccessFlags: AccPublic | AccSuper,
		ThisClass:   2,
		SuperClass:  4,
		Interfaces:  []uint16{16},
		Fields: []FieldInfo{{MemberInfo{
			AccessFlags:     AccPrivate | AccStatic | AccFinal,
			NameIndex:       10,
			DescriptorIndex: 11,
			Attributes:      []AttributeInfo{{NameIndex: 17, Info: []byte{0x00, 0x0C}}},
		}}},
		Methods: []MethodInfo{{MemberInfo{
			AccessFlags:     AccPublic | AccStatic,
			NameIndex:       5,
			DescriptorIndex: 6,
			Attributes: []AttributeInfo{{
				NameIndex: 7,
				// max_stack=1 max_locals=1 code_length=1 return, no handlers, no attributes
				Info: []byte{0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0xB1, 0x00, 0x00, 0x00, 0x00},
			}},
		}}},
		Attributes: []AttributeInfo{{NameIndex: 13, Info: []byte{0x00, 0x0E}}},
	}
}

func encode(t *testing.T, cf *ClassFile) []byte {
	t.Helper()
	b, err := cf.MarshalBinary()
	require.NoError(t, err)
	return b
}

// minimalClass is the smallest useful class file: one Utf8 entry "foo" and
// every other table empty.
var minimalClass = []byte{
	0xCA, 0xFE, 0xBA, 0xBE, // magic
	0x00, 0x00, // minor_version
	0x00, 0x34, // major_version = 52
	0x00, 0x02, // constant_pool_count
	0x01, 0x00, 0x03, 0x66, 0x6F, 0x6F, // Utf8 "foo"
	0x00, 0x00, // access_flags
	0x00, 0x00, // this_class
	0x00, 0x00, // super_class
	0x00, 0x00, // interfaces_count
	0x00, 0x00, // fields_count
	0x00, 0x00, // methods_count
	0x00, 0x00, // attributes_count
}
