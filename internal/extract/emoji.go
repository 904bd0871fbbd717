package extract

import (
	"strings"
	"unicode"
)

// pictographic covers emoji, their modifiers and joiners. Symbols such as
// "℃" or "½" that carry meaning in a recipe are outside these ranges.
var pictographic = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x200d, Hi: 0x200d, Stride: 1}, // zero width joiner
		{Lo: 0x20e3, Hi: 0x20e3, Stride: 1}, // keycap
		{Lo: 0x2300, Hi: 0x23ff, Stride: 1},
		{Lo: 0x2600, Hi: 0x27bf, Stride: 1},
		{Lo: 0x2b00, Hi: 0x2bff, Stride: 1},
		{Lo: 0xfe00, Hi: 0xfe0f, Stride: 1}, // variation selectors
	},
	R32: []unicode.Range32{
		{Lo: 0x1f000, Hi: 0x1faff, Stride: 1},
		{Lo: 0xe0020, Hi: 0xe007f, Stride: 1}, // tag sequences
	},
}

// StripEmoji removes pictographic characters from s.
func StripEmoji(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.Is(pictographic, r) {
			return -1
		}
		return r
	}, s)
}
