package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/daimatz/classparse/pkg/classfile"
	"github.com/davecgh/go-spew/spew"
	"github.com/segmentio/encoding/json"
)

// summary is the resolved, human-oriented view of a class file printed by the
// text and json formats.
type summary struct {
	Name              string          `json:"name"`
	Super             string          `json:"super,omitempty"`
	Version           string          `json:"version"`
	AccessFlags       string          `json:"access_flags"`
	ConstantPoolCount uint16          `json:"constant_pool_count"`
	Interfaces        []string        `json:"interfaces"`
	Fields            []memberSummary `json:"fields"`
	Methods           []memberSummary `json:"methods"`
	Attributes        []string        `json:"attributes"`
}

type memberSummary struct {
	Name        string   `json:"name"`
	Descriptor  string   `json:"descriptor"`
	AccessFlags uint16   `json:"access_flags"`
	Attributes  []string `json:"attributes,omitempty"`
}

// unresolved is printed where a pool index does not lead to a Utf8 entry.
func unresolved(index uint16) string { return fmt.Sprintf("#%d", index) }

func utf8Or(pool classfile.ConstantPool, index uint16) string {
	s, err := pool.Utf8(index)
	if err != nil {
		return unresolved(index)
	}
	return s
}

func classOr(pool classfile.ConstantPool, index uint16) string {
	s, err := pool.ClassName(index)
	if err != nil {
		return unresolved(index)
	}
	return s
}

func attributeNames(pool classfile.ConstantPool, attrs []classfile.AttributeInfo) []string {
	names := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = fmt.Sprintf("%s (%d bytes)", utf8Or(pool, a.NameIndex), a.Length())
	}
	return names
}

func summarizeMember(pool classfile.ConstantPool, m *classfile.MemberInfo) memberSummary {
	return memberSummary{
		Name:        utf8Or(pool, m.NameIndex),
		Descriptor:  utf8Or(pool, m.DescriptorIndex),
		AccessFlags: uint16(m.AccessFlags),
		Attributes:  attributeNames(pool, m.Attributes),
	}
}

// summarize resolves names through the pool. It never fails: indexes that do
// not resolve are shown as "#n".
func summarize(cf *classfile.ClassFile) *summary {
	pool := cf.ConstantPool
	s := &summary{
		Name:              classOr(pool, cf.ThisClass),
		Version:           fmt.Sprintf("%d.%d", cf.MajorVersion, cf.MinorVersion),
		AccessFlags:       cf.AccessFlags.String(),
		ConstantPoolCount: cf.ConstantPoolCount(),
		Interfaces:        make([]string, len(cf.Interfaces)),
		Fields:            make([]memberSummary, len(cf.Fields)),
		Methods:           make([]memberSummary, len(cf.Methods)),
		Attributes:        attributeNames(pool, cf.Attributes),
	}
	if cf.SuperClass != 0 {
		s.Super = classOr(pool, cf.SuperClass)
	}
	for i, idx := range cf.Interfaces {
		s.Interfaces[i] = classOr(pool, idx)
	}
	for i := range cf.Fields {
		s.Fields[i] = summarizeMember(pool, &cf.Fields[i].MemberInfo)
	}
	for i := range cf.Methods {
		s.Methods[i] = summarizeMember(pool, &cf.Methods[i].MemberInfo)
	}
	return s
}

var spewConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// writeClass prints cf in the given format.
func writeClass(w io.Writer, format string, cf *classfile.ClassFile) error {
	switch format {
	case "spew":
		spewConfig.Fdump(w, cf)
		return nil
	case "json":
		b, err := json.MarshalIndent(summarize(cf), "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	}
	return writeText(w, summarize(cf))
}

func writeText(w io.Writer, s *summary) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "class %s\n", s.Name)
	if s.Super != "" {
		fmt.Fprintf(&sb, "  extends %s\n", s.Super)
	}
	for _, i := range s.Interfaces {
		fmt.Fprintf(&sb, "  implements %s\n", i)
	}
	fmt.Fprintf(&sb, "  version: %s\n", s.Version)
	fmt.Fprintf(&sb, "  flags: %s\n", s.AccessFlags)
	fmt.Fprintf(&sb, "  constant pool: %d entries\n", s.ConstantPoolCount-1)
	writeMembers(&sb, "fields", s.Fields)
	writeMembers(&sb, "methods", s.Methods)
	if len(s.Attributes) > 0 {
		fmt.Fprintf(&sb, "  attributes:\n")
		for _, a := range s.Attributes {
			fmt.Fprintf(&sb, "    %s\n", a)
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeMembers(sb *strings.Builder, title string, members []memberSummary) {
	if len(members) == 0 {
		return
	}
	fmt.Fprintf(sb, "  %s:\n", title)
	for _, m := range members {
		fmt.Fprintf(sb, "    %s %s (flags 0x%04X)\n", m.Name, m.Descriptor, m.AccessFlags)
		for _, a := range m.Attributes {
			fmt.Fprintf(sb, "      %s\n", a)
		}
	}
}

// describeError renders a decode failure as
// "error: <kind> at <path> (offset N)". Errors that carry no position are
// printed as "error: <message>".
func describeError(err error) string {
	var de *classfile.DecodeError
	if !errors.As(err, &de) {
		return "error: " + err.Error()
	}
	path := strings.TrimSuffix(err.Error(), de.Error())
	path = strings.ReplaceAll(strings.TrimSuffix(path, ": "), ": ", ".")
	field := de.Field
	if path != "" {
		field = path + "." + field
	}
	return fmt.Sprintf("error: %v at %s (offset %d)", de.Err, field, de.Offset)
}
