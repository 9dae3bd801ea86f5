// Package types models the JVM's primitive and reference values.
package types

import (
	"fmt"
	"strconv"

	"github.com/daimatz/classparse/pkg/heap"
)

// Kind identifies the type of a Value.
type Kind int

const (
	KindByte Kind = iota
	KindShort
	KindInt
	KindLong
	KindChar
	KindFloat
	KindDouble
	KindBoolean
	KindReturnAddress
	KindReference
)

var kindNames = [...]string{
	KindByte:          "byte",
	KindShort:         "short",
	KindInt:           "int",
	KindLong:          "long",
	KindChar:          "char",
	KindFloat:         "float",
	KindDouble:        "double",
	KindBoolean:       "boolean",
	KindReturnAddress: "returnAddress",
	KindReference:     "reference",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsPrimitive reports whether k is anything but a reference.
func (k Kind) IsPrimitive() bool { return k >= KindByte && k <= KindReturnAddress }

// IsIntegral reports whether k is byte, short, int, long or char.
func (k Kind) IsIntegral() bool {
	switch k {
	case KindByte, KindShort, KindInt, KindLong, KindChar:
		return true
	}
	return false
}

func (k Kind) IsFloatingPoint() bool { return k == KindFloat || k == KindDouble }
func (k Kind) IsReference() bool     { return k == KindReference }

// Width is the number of local variable slots a value of kind k occupies.
func (k Kind) Width() int {
	if k == KindLong || k == KindDouble {
		return 2
	}
	return 1
}

// Value is a typed JVM value.
type Value interface {
	Kind() Kind
	// Width is 2 for long and double, 1 otherwise.
	Width() int
	// String formats the value as kind(value), e.g. "int(5)".
	String() string
}

type (
	Byte          int8
	Short         int16
	Int           int32
	Long          int64
	Char          uint16
	Float         float32
	Double        float64
	Boolean       bool
	ReturnAddress uint32
	// Reference points at a heap allocation. The zero Reference is null.
	Reference heap.Handle
)

func (Byte) Kind() Kind          { return KindByte }
func (Short) Kind() Kind         { return KindShort }
func (Int) Kind() Kind           { return KindInt }
func (Long) Kind() Kind          { return KindLong }
func (Char) Kind() Kind          { return KindChar }
func (Float) Kind() Kind         { return KindFloat }
func (Double) Kind() Kind        { return KindDouble }
func (Boolean) Kind() Kind       { return KindBoolean }
func (ReturnAddress) Kind() Kind { return KindReturnAddress }
func (Reference) Kind() Kind     { return KindReference }

func (v Byte) Width() int          { return v.Kind().Width() }
func (v Short) Width() int         { return v.Kind().Width() }
func (v Int) Width() int           { return v.Kind().Width() }
func (v Long) Width() int          { return v.Kind().Width() }
func (v Char) Width() int          { return v.Kind().Width() }
func (v Float) Width() int         { return v.Kind().Width() }
func (v Double) Width() int        { return v.Kind().Width() }
func (v Boolean) Width() int       { return v.Kind().Width() }
func (v ReturnAddress) Width() int { return v.Kind().Width() }
func (v Reference) Width() int     { return v.Kind().Width() }

func (v Byte) String() string   { return format(v, strconv.FormatInt(int64(v), 10)) }
func (v Short) String() string  { return format(v, strconv.FormatInt(int64(v), 10)) }
func (v Int) String() string    { return format(v, strconv.FormatInt(int64(v), 10)) }
func (v Long) String() string   { return format(v, strconv.FormatInt(int64(v), 10)) }
func (v Char) String() string   { return format(v, strconv.FormatUint(uint64(v), 10)) }
func (v Float) String() string  { return format(v, strconv.FormatFloat(float64(v), 'g', -1, 32)) }
func (v Double) String() string { return format(v, strconv.FormatFloat(float64(v), 'g', -1, 64)) }
func (v Boolean) String() string {
	return format(v, strconv.FormatBool(bool(v)))
}
func (v ReturnAddress) String() string { return format(v, strconv.FormatUint(uint64(v), 10)) }

func (v Reference) String() string {
	if v.IsNull() {
		return format(v, "null")
	}
	return format(v, fmt.Sprintf("%#x", uint64(v)))
}

// Handle returns the heap handle v refers to.
func (v Reference) Handle() heap.Handle { return heap.Handle(v) }
func (v Reference) IsNull() bool        { return heap.Handle(v).IsNull() }

// Null is the null reference.
const Null = Reference(heap.Null)

func format(v Value, s string) string { return v.Kind().String() + "(" + s + ")" }

// Zero returns the default value of kind k, or nil for an unknown kind.
func Zero(k Kind) Value {
	switch k {
	case KindByte:
		return Byte(0)
	case KindShort:
		return Short(0)
	case KindInt:
		return Int(0)
	case KindLong:
		return Long(0)
	case KindChar:
		return Char(0)
	case KindFloat:
		return Float(0)
	case KindDouble:
		return Double(0)
	case KindBoolean:
		return Boolean(false)
	case KindReturnAddress:
		return ReturnAddress(0)
	case KindReference:
		return Null
	}
	return nil
}

// Slots sums the widths of vs.
func Slots(vs ...Value) int {
	n := 0
	for _, v := range vs {
		n += v.Width()
	}
	return n
}
