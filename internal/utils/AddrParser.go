package utils

import (
	"fmt"
	"ip_forest/internal/dataType"
	"math/bits"
	"strconv"
	"strings"
)

// MaxAddrLen is the length of the longest dotted-quad, "255.255.255.255".
const MaxAddrLen = 15

// ParseOctet parses a decimal byte. Every character must be a digit.
func ParseOctet(s string) (uint8, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty octet", dataType.ErrMalformedAddress)
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: bad octet %q", dataType.ErrMalformedAddress, s)
		}
		n = n*10 + int(c-'0')
		if n > 255 {
			return 0, fmt.Errorf("%w: octet %q out of range", dataType.ErrMalformedAddress, s)
		}
	}
	return uint8(n), nil
}

// ParseDottedQuad parses "a.b.c.d" into a host order address.
func ParseDottedQuad(s string) (uint32, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, fmt.Errorf("%w: %q is not a dotted quad", dataType.ErrMalformedAddress, s)
	}
	var addr uint32
	for _, p := range parts {
		b, err := ParseOctet(p)
		if err != nil {
			return 0, err
		}
		addr = addr<<8 | uint32(b)
	}
	return addr, nil
}

// ParseMaskBits parses a prefix length 0..32 and returns its mask.
func ParseMaskBits(s string) (uint32, error) {
	b, err := ParseOctet(s)
	if err != nil {
		return 0, err
	}
	if b > 32 {
		return 0, fmt.Errorf("%w: prefix length %d over 32", dataType.ErrMalformedAddress, b)
	}
	return MaskFromBits(int(b)), nil
}

// ParseAddress decodes a dotted quad, or a bare prefix length when there is
// no dot in s. Rule files use the same decoding on both sides of "/".
func ParseAddress(s string) (uint32, error) {
	if strings.Contains(s, ".") {
		return ParseDottedQuad(s)
	}
	return ParseMaskBits(s)
}

// MaskFromBits returns the mask with the n leading bits set.
func MaskFromBits(n int) uint32 {
	if n <= 0 {
		return 0
	}
	if n >= 32 {
		return 0xFFFFFFFF
	}
	return ^uint32(0) << (32 - n)
}

// MaskBits returns the prefix length of mask, and false when the ones are
// not contiguous from the top.
func MaskBits(mask uint32) (int, bool) {
	n := bits.LeadingZeros32(^mask)
	return n, MaskFromBits(n) == mask
}

func FormatAddress(addr uint32) string {
	return strconv.Itoa(int(addr>>24)) + "." +
		strconv.Itoa(int(addr>>16&0xFF)) + "." +
		strconv.Itoa(int(addr>>8&0xFF)) + "." +
		strconv.Itoa(int(addr&0xFF))
}

func FormatBlock(b dataType.CidrBlock) string {
	n, _ := MaskBits(b.Mask)
	return FormatAddress(b.Addr) + "/" + strconv.Itoa(n)
}
