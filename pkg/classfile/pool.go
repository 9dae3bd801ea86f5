package classfile

import (
	"errors"
	"fmt"
)

var (
	ErrBadIndex = errors.New("invalid constant pool index")
	ErrWrongTag = errors.New("constant pool entry has unexpected tag")
)

// ConstantPool stores entries in wire order. Indices used by the rest of the
// class file are 1-based: index i names pool[i-1]. Slots reserved after a
// Long or Double by Options.WideConstants are nil.
type ConstantPool []ConstantPoolEntry

// Entry returns the entry at the 1-based index.
func (p ConstantPool) Entry(index uint16) (ConstantPoolEntry, error) {
	if index == 0 || int(index) > len(p) || p[index-1] == nil {
		return nil, fmt.Errorf("%w %d", ErrBadIndex, index)
	}
	return p[index-1], nil
}

func lookup[T ConstantPoolEntry](p ConstantPool, index uint16, want ConstantTag) (T, error) {
	var zero T
	e, err := p.Entry(index)
	if err != nil {
		return zero, err
	}
	v, ok := e.(T)
	if !ok {
		return zero, fmt.Errorf("%w: index %d is %s, want %s", ErrWrongTag, index, e.Tag(), want)
	}
	return v, nil
}

// Utf8 returns the text of the Utf8 entry at index.
func (p ConstantPool) Utf8(index uint16) (string, error) {
	u, err := lookup[*ConstantUtf8](p, index, TagUtf8)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// ClassName returns the internal name referenced by the Class entry at index.
func (p ConstantPool) ClassName(index uint16) (string, error) {
	class, err := lookup[*ConstantClass](p, index, TagClass)
	if err != nil {
		return "", err
	}
	return p.Utf8(class.NameIndex)
}

// NameAndType resolves a NameAndType entry to its name and descriptor text.
func (p ConstantPool) NameAndType(index uint16) (name, descriptor string, err error) {
	nat, err := lookup[*ConstantNameAndType](p, index, TagNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = p.Utf8(nat.NameIndex); err != nil {
		return "", "", fmt.Errorf("resolving name: %w", err)
	}
	if descriptor, err = p.Utf8(nat.DescriptorIndex); err != nil {
		return "", "", fmt.Errorf("resolving descriptor: %w", err)
	}
	return name, descriptor, nil
}

// MemberRef holds a resolved Fieldref, Methodref or InterfaceMethodref.
type MemberRef struct {
	ClassName  string
	Name       string
	Descriptor string
}

// MemberRef resolves any of the three member reference kinds.
func (p ConstantPool) MemberRef(index uint16) (*MemberRef, error) {
	e, err := p.Entry(index)
	if err != nil {
		return nil, err
	}
	var classIdx, natIdx uint16
	switch ref := e.(type) {
	case *ConstantFieldref:
		classIdx, natIdx = ref.ClassIndex, ref.NameAndTypeIndex
	case *ConstantMethodref:
		classIdx, natIdx = ref.ClassIndex, ref.NameAndTypeIndex
	case *ConstantInterfaceMethodref:
		classIdx, natIdx = ref.ClassIndex, ref.NameAndTypeIndex
	default:
		return nil, fmt.Errorf("%w: index %d is %s, want a member reference", ErrWrongTag, index, e.Tag())
	}

	className, err := p.ClassName(classIdx)
	if err != nil {
		return nil, fmt.Errorf("resolving %s class: %w", e.Tag(), err)
	}
	name, desc, err := p.NameAndType(natIdx)
	if err != nil {
		return nil, fmt.Errorf("resolving %s name and type: %w", e.Tag(), err)
	}
	return &MemberRef{ClassName: className, Name: name, Descriptor: desc}, nil
}
