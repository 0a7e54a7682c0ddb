package table

import "fmt"

const hexDigits = "0123456789ABCDEF"

// Hex is a byte rendered as "0xNN". It is a value, so two of them never share
// storage.
type Hex [4]byte

func ByteToHex(b byte) Hex {
	return Hex{'0', 'x', hexDigits[b>>4], hexDigits[b&0x0F]}
}

func (h Hex) String() string {
	return string(h[:])
}

// ParseHex decodes a "0xNN" string produced by ByteToHex. Lower case digits
// are accepted too.
func ParseHex(s string) (byte, error) {
	if len(s) != 4 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return 0, fmt.Errorf("invalid hex byte %q", s)
	}
	hi, ok := nibble(s[2])
	if !ok {
		return 0, fmt.Errorf("invalid hex byte %q", s)
	}
	lo, ok := nibble(s[3])
	if !ok {
		return 0, fmt.Errorf("invalid hex byte %q", s)
	}
	return hi<<4 | lo, nil
}

func nibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
