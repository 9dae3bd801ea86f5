package types

import (
	"errors"
	"fmt"

	"github.com/daimatz/classparse/pkg/classfile"
	"github.com/daimatz/classparse/pkg/heap"
)

var (
	// ErrNotLoadable is returned by FromConstant for pool entries that do
	// not denote a primitive value.
	ErrNotLoadable = errors.New("constant is not a primitive value")

	// ErrBadDescriptor is returned by FromDescriptor for malformed input.
	ErrBadDescriptor = errors.New("bad field descriptor")

	// ErrBadLength is returned by NewArray for a negative length.
	ErrBadLength = errors.New("negative array length")
)

// FromConstant converts an Integer, Float, Long or Double pool entry.
func FromConstant(e classfile.ConstantPoolEntry) (Value, error) {
	switch c := e.(type) {
	case *classfile.ConstantInteger:
		return Int(c.Int32()), nil
	case *classfile.ConstantFloat:
		return Float(c.Float32()), nil
	case *classfile.ConstantLong:
		return Long(c.Int64()), nil
	case *classfile.ConstantDouble:
		return Double(c.Float64()), nil
	case nil:
		return nil, fmt.Errorf("empty slot: %w", ErrNotLoadable)
	}
	return nil, fmt.Errorf("%s: %w", e.Tag(), ErrNotLoadable)
}

// FromDescriptor returns the zero value for a field descriptor such as "I",
// "J" or "Ljava/lang/String;".
func FromDescriptor(desc string) (Value, error) {
	if desc == "" {
		return nil, fmt.Errorf("empty descriptor: %w", ErrBadDescriptor)
	}
	switch desc[0] {
	case 'B':
		return Byte(0), nil
	case 'S':
		return Short(0), nil
	case 'I':
		return Int(0), nil
	case 'J':
		return Long(0), nil
	case 'C':
		return Char(0), nil
	case 'F':
		return Float(0), nil
	case 'D':
		return Double(0), nil
	case 'Z':
		return Boolean(false), nil
	case 'L', '[':
		return Null, nil
	}
	return nil, fmt.Errorf("%q: %w", desc, ErrBadDescriptor)
}

// Object is a class instance as stored on a heap.
type Object struct {
	ClassName string
	Fields    map[string]Value
}

// NewObject creates an Object of class cf with every field set to the zero
// value of its descriptor. Static fields are skipped.
func NewObject(cf *classfile.ClassFile) (*Object, error) {
	name, err := cf.ClassName()
	if err != nil {
		return nil, err
	}
	obj := &Object{ClassName: name, Fields: make(map[string]Value)}
	for i := range cf.Fields {
		f := &cf.Fields[i]
		if f.AccessFlags.Has(classfile.AccStatic) {
			continue
		}
		fname, err := cf.ConstantPool.Utf8(f.NameIndex)
		if err != nil {
			return nil, fmt.Errorf("fields[%d]: %w", i, err)
		}
		desc, err := cf.ConstantPool.Utf8(f.DescriptorIndex)
		if err != nil {
			return nil, fmt.Errorf("fields[%d]: %w", i, err)
		}
		if obj.Fields[fname], err = FromDescriptor(desc); err != nil {
			return nil, fmt.Errorf("fields[%d]: %w", i, err)
		}
	}
	return obj, nil
}

// Array is an array instance as stored on a heap.
type Array struct {
	Elements []Value
}

// NewArray creates an array of n zero values of the element descriptor.
func NewArray(elem string, n int) (*Array, error) {
	if n < 0 {
		return nil, fmt.Errorf("new array of %s: length %d: %w", elem, n, ErrBadLength)
	}
	zero, err := FromDescriptor(elem)
	if err != nil {
		return nil, err
	}
	a := &Array{Elements: make([]Value, n)}
	for i := range a.Elements {
		a.Elements[i] = zero
	}
	return a, nil
}

// Deref loads the object r refers to from h.
func Deref[T any](h *heap.Heap, r Reference) (T, error) {
	return heap.Load[T](h, r.Handle())
}
