package classfile

import (
	"errors"
	"unicode/utf16"
	"unicode/utf8"
)

// Class files store strings in "modified UTF-8": NUL is written as the
// two-byte form C0 80 and supplementary characters are written as two
// three-byte surrogates instead of one four-byte sequence.

func appendModifiedUTF8(dst []byte, s string) []byte {
	for _, r := range s {
		switch {
		case r >= 0x01 && r <= 0x7f:
			dst = append(dst, byte(r))
		case r <= 0x7ff:
			dst = append(dst, 0xc0|byte(r>>6), 0x80|byte(r&0x3f))
		case r <= 0xffff:
			dst = appendThreeByte(dst, r)
		default:
			hi, lo := utf16.EncodeRune(r)
			dst = appendThreeByte(dst, hi)
			dst = appendThreeByte(dst, lo)
		}
	}
	return dst
}

func appendThreeByte(dst []byte, r rune) []byte {
	return append(dst, 0xe0|byte(r>>12), 0x80|byte((r>>6)&0x3f), 0x80|byte(r&0x3f))
}

func modifiedUTF8Len(s string) int {
	n := 0
	for _, r := range s {
		switch {
		case r >= 0x01 && r <= 0x7f:
			n++
		case r <= 0x7ff:
			n += 2
		case r <= 0xffff:
			n += 3
		default:
			n += 6
		}
	}
	return n
}

var errBadModifiedUTF8 = errors.New("malformed modified UTF-8")

func decodeModifiedUTF8(b []byte) (string, error) {
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c&0x80 == 0:
			if c == 0 {
				return "", errBadModifiedUTF8
			}
			units = append(units, uint16(c))
			i++
		case c&0xe0 == 0xc0:
			if i+1 >= len(b) || b[i+1]&0xc0 != 0x80 {
				return "", errBadModifiedUTF8
			}
			units = append(units, uint16(c&0x1f)<<6|uint16(b[i+1]&0x3f))
			i += 2
		case c&0xf0 == 0xe0:
			if i+2 >= len(b) || b[i+1]&0xc0 != 0x80 || b[i+2]&0xc0 != 0x80 {
				return "", errBadModifiedUTF8
			}
			units = append(units, uint16(c&0x0f)<<12|uint16(b[i+1]&0x3f)<<6|uint16(b[i+2]&0x3f))
			i += 3
		default:
			return "", errBadModifiedUTF8
		}
	}
	runes := utf16.Decode(units)
	buf := make([]byte, 0, len(runes))
	for _, r := range runes {
		buf = utf8.AppendRune(buf, r)
	}
	return string(buf), nil
}
