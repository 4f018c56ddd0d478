package generators

import (
	"fmt"
	"regexp/syntax"
	"strings"
	"unicode"
)

// maxRepeat caps unbounded repetitions such as * and + when generating.
const maxRepeat = 4

// generateFromRegex returns a random string matched by pattern.
func generateFromRegex(ctx *Context, pattern string) (string, error) {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return "", fmt.Errorf("%w: regex %q: %v", ErrInvalidGenerator, pattern, err)
	}
	var b strings.Builder
	writeRegex(ctx, &b, re.Simplify())
	return b.String(), nil
}

func writeRegex(ctx *Context, b *strings.Builder, re *syntax.Regexp) {
	switch re.Op {
	case syntax.OpLiteral:
		for _, r := range re.Rune {
			if re.Flags&syntax.FoldCase != 0 && ctx.intN(2) == 1 {
				r = unicode.SimpleFold(r)
			}
			b.WriteRune(r)
		}
	case syntax.OpCharClass:
		b.WriteRune(pickFromClass(ctx, re.Rune))
	case syntax.OpAnyCharNotNL, syntax.OpAnyChar:
		b.WriteByte(alphanumeric[ctx.intN(len(alphanumeric))])
	case syntax.OpCapture:
		writeRegex(ctx, b, re.Sub[0])
	case syntax.OpConcat:
		for _, sub := range re.Sub {
			writeRegex(ctx, b, sub)
		}
	case syntax.OpAlternate:
		writeRegex(ctx, b, re.Sub[ctx.intN(len(re.Sub))])
	case syntax.OpStar:
		repeat(ctx, b, re.Sub[0], 0, maxRepeat)
	case syntax.OpPlus:
		repeat(ctx, b, re.Sub[0], 1, maxRepeat)
	case syntax.OpQuest:
		repeat(ctx, b, re.Sub[0], 0, 1)
	case syntax.OpRepeat:
		hi := re.Max
		if hi < 0 {
			hi = re.Min + maxRepeat
		}
		repeat(ctx, b, re.Sub[0], re.Min, hi)
	}
	// Anchors, word boundaries and empty matches produce no text.
}

func repeat(ctx *Context, b *strings.Builder, re *syntax.Regexp, lo, hi int) {
	n := lo
	if hi > lo {
		n += ctx.intN(hi - lo + 1)
	}
	for i := 0; i < n; i++ {
		writeRegex(ctx, b, re)
	}
}

// pickFromClass picks a rune from a class given as inclusive range pairs,
// preferring printable ASCII.
func pickFromClass(ctx *Context, ranges []rune) rune {
	var printable []rune
	for i := 0; i+1 < len(ranges); i += 2 {
		lo, hi := ranges[i], ranges[i+1]
		if lo < 0x20 {
			lo = 0x20
		}
		if hi > 0x7e {
			hi = 0x7e
		}
		if lo <= hi {
			printable = append(printable, lo, hi)
		}
	}
	if len(printable) == 0 {
		printable = ranges
	}
	if len(printable) == 0 {
		return 'x'
	}

	total := 0
	for i := 0; i+1 < len(printable); i += 2 {
		total += int(printable[i+1]-printable[i]) + 1
	}
	n := ctx.intN(total)
	for i := 0; i+1 < len(printable); i += 2 {
		size := int(printable[i+1]-printable[i]) + 1
		if n < size {
			return printable[i] + rune(n)
		}
		n -= size
	}
	return printable[0]
}
