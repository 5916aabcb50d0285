package javaobj

import (
	"fmt"
	"sort"
	"strings"
)

// Dump renders content and every live instance in the handle table as
// a debugging-oriented text view. It is not meant to be a stable or
// parseable format.
func (p *Parser) Dump(content []ParsedContent) string {
	var b strings.Builder

	b.WriteString("//// BEGIN stream content output\n")
	for _, c := range content {
		fmt.Fprintf(&b, "%s\n", describe(c))
	}
	b.WriteString("//// END stream content output\n\n")

	b.WriteString("//// BEGIN instance dump\n")
	entries := p.handles.all()
	handles := make([]uint32, 0, len(entries))
	for handle := range entries {
		handles = append(handles, handle)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	for _, handle := range handles {
		carrier, ok := entries[handle].(Carrier)
		if !ok {
			continue
		}
		dumpInstance(&b, carrier)
	}
	b.WriteString("//// END instance dump\n")

	return b.String()
}

func dumpInstance(b *strings.Builder, carrier Carrier) {
	instance := carrier.Base()
	fmt.Fprintf(b, "[instance 0x%x: 0x%x / %s\n", instance.Handle, instance.ClassDesc.GetHandle(), instance.ClassDesc.Name)

	if len(instance.Annotations) > 0 {
		b.WriteString("\tobject annotations:\n")
		for cd, contents := range instance.Annotations {
			fmt.Fprintf(b, "\t%s\n", cd.Name)
			for _, c := range contents {
				fmt.Fprintf(b, "\t\t%s\n", describe(c))
			}
		}
	}

	if len(instance.FieldData) > 0 {
		b.WriteString("\tfield data:\n")
		for cd, values := range instance.FieldData {
			for field, v := range values {
				line := fmt.Sprintf("\t\t%s.%s: ", cd.Name, field.Name)
				if ref, ok := v.(Handled); ok {
					if ref.GetHandle() == instance.Handle {
						line += "this"
					} else {
						line += fmt.Sprintf("r0x%x", ref.GetHandle())
					}
				} else {
					line += fmt.Sprintf("%v", v)
				}
				fmt.Fprintln(b, line)
			}
		}
	}

	b.WriteString("]\n")
}

func describe(c ParsedContent) string {
	if c == nil {
		return "null"
	}
	switch v := c.(type) {
	case *JavaString:
		return fmt.Sprintf("String(0x%x, %q)", v.Handle, v.Value)
	case *ClassDesc:
		return fmt.Sprintf("ClassDesc(0x%x, %s)", v.Handle, v.Name)
	case *JavaClass:
		return fmt.Sprintf("Class(0x%x, %s)", v.Handle, v.ClassDesc)
	case *JavaArray:
		return fmt.Sprintf("Array(0x%x, %d elements)", v.Handle, len(v.Elements))
	case *JavaEnum:
		return fmt.Sprintf("Enum(0x%x, %s)", v.Handle, v.Constant.Value)
	case *BlockData:
		return fmt.Sprintf("BlockData(%d bytes)", len(v.Data))
	case *ExceptionState:
		return fmt.Sprintf("Exception(%d raw bytes)", len(v.RawBytes))
	case Carrier:
		base := v.Base()
		return fmt.Sprintf("Instance(0x%x, %s)", base.Handle, base.ClassDesc)
	default:
		return fmt.Sprintf("%v", v)
	}
}
