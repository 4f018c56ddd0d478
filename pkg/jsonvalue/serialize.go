package jsonvalue

import (
	"strings"
	"unicode/utf8"
)

const hexDigits = "0123456789abcdef"

// Serialize renders the canonical form: object keys sorted, numbers emitted
// as their original literal and strings escaped per JSON.
func (v Value) Serialize() string {
	var b strings.Builder
	v.writeCompact(&b)
	return b.String()
}

func (v Value) writeCompact(b *strings.Builder) {
	switch v.kind {
	case KindNull:
		b.WriteString("null")
	case KindBool:
		if v.b {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case KindInteger, KindDecimal:
		b.WriteString(v.s)
	case KindString:
		writeQuoted(b, v.s)
	case KindArray:
		b.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				b.WriteByte(',')
			}
			e.writeCompact(b)
		}
		b.WriteByte(']')
	case KindObject:
		b.WriteByte('{')
		for i, k := range v.Keys() {
			if i > 0 {
				b.WriteByte(',')
			}
			writeQuoted(b, k)
			b.WriteByte(':')
			v.obj[k].writeCompact(b)
		}
		b.WriteByte('}')
	}
}

// PrettyPrint renders an indented form with two spaces per level and sorted keys.
func (v Value) PrettyPrint() string {
	var b strings.Builder
	v.writePretty(&b, 0)
	return b.String()
}

func (v Value) writePretty(b *strings.Builder, indent int) {
	switch v.kind {
	case KindArray:
		if len(v.arr) == 0 {
			b.WriteString("[]")
			return
		}
		b.WriteString("[\n")
		for i, e := range v.arr {
			if i > 0 {
				b.WriteString(",\n")
			}
			b.WriteString(strings.Repeat(" ", indent+2))
			e.writePretty(b, indent+2)
		}
		b.WriteByte('\n')
		b.WriteString(strings.Repeat(" ", indent))
		b.WriteByte(']')
	case KindObject:
		if len(v.obj) == 0 {
			b.WriteString("{}")
			return
		}
		b.WriteString("{\n")
		for i, k := range v.Keys() {
			if i > 0 {
				b.WriteString(",\n")
			}
			b.WriteString(strings.Repeat(" ", indent+2))
			writeQuoted(b, k)
			b.WriteString(": ")
			v.obj[k].writePretty(b, indent+2)
		}
		b.WriteByte('\n')
		b.WriteString(strings.Repeat(" ", indent))
		b.WriteByte('}')
	default:
		v.writeCompact(b)
	}
}

// Escape returns s escaped for inclusion in a JSON string literal.
func Escape(s string) string {
	var b strings.Builder
	writeEscaped(&b, s)
	return b.String()
}

func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	writeEscaped(b, s)
	b.WriteByte('"')
}

func writeEscaped(b *strings.Builder, s string) {
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch c {
			case '"':
				b.WriteString(`\"`)
			case '\\':
				b.WriteString(`\\`)
			case '\b':
				b.WriteString(`\b`)
			case '\f':
				b.WriteString(`\f`)
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			default:
				if c < 0x20 {
					b.WriteString(`\u00`)
					b.WriteByte(hexDigits[c>>4])
					b.WriteByte(hexDigits[c&0xF])
				} else {
					b.WriteByte(c)
				}
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteString(`�`)
		} else {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
}
