package utils

import (
	"fmt"
	"ip_forest/internal/dataType"
	"strings"
)

// ParseLine decodes one rule line into CIDR blocks. Accepted forms:
//
//	192.168.0.9
//	192.168.0.0/24
//	192.168.0.0/255.255.255.0
//	192.168.0.10-30
//	192.168.0.10-192.168.1.200
//
// With a nil out only the block count is returned. Otherwise out must hold
// at least that many blocks and is filled from the start.
func ParseLine(line string, out []dataType.CidrBlock) (int, error) {
	var n int
	emit := func(addr, mask uint32) {
		if out != nil && n < len(out) {
			out[n] = dataType.CidrBlock{Addr: addr, Mask: mask}
		}
		n++
	}

	var err error
	if idx := strings.IndexByte(line, '-'); idx >= 0 {
		err = parseRange(line[:idx], line[idx+1:], emit)
	} else if idx := strings.IndexByte(line, '/'); idx >= 0 {
		err = parseCIDR(line[:idx], line[idx+1:], emit)
	} else {
		err = parseCIDR(line, "32", emit)
	}
	if err != nil {
		return -1, err
	}
	if out != nil && len(out) < n {
		return -1, fmt.Errorf("%w: %q needs %d blocks, got room for %d", dataType.ErrParse, line, n, len(out))
	}
	return n, nil
}

// ParseLineBlocks counts, allocates and fills in one go.
func ParseLineBlocks(line string) ([]dataType.CidrBlock, error) {
	n, err := ParseLine(line, nil)
	if err != nil {
		return nil, err
	}
	blocks := make([]dataType.CidrBlock, n)
	if _, err := ParseLine(line, blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

func parseAddrSide(s string) (uint32, error) {
	if len(s) > MaxAddrLen {
		return 0, fmt.Errorf("%w: address %q longer than %d characters", dataType.ErrParse, s, MaxAddrLen)
	}
	addr, err := ParseAddress(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", dataType.ErrParse, err)
	}
	return addr, nil
}

func parseCIDR(addrText, maskText string, emit func(addr, mask uint32)) error {
	addr, err := parseAddrSide(addrText)
	if err != nil {
		return err
	}
	mask, err := ParseAddress(maskText)
	if err != nil {
		return fmt.Errorf("%w: %w", dataType.ErrParse, err)
	}
	if _, ok := MaskBits(mask); !ok {
		return fmt.Errorf("%w: %w: mask %s is not contiguous", dataType.ErrParse, dataType.ErrMalformedAddress, maskText)
	}
	emit(addr, mask)
	return nil
}

func parseRange(lowText, highText string, emit func(addr, mask uint32)) error {
	low, err := parseAddrSide(lowText)
	if err != nil {
		return err
	}

	var high uint32
	if strings.Contains(highText, ".") {
		if high, err = parseAddrSide(highText); err != nil {
			return err
		}
	} else {
		// "10.0.0.1-30" only replaces the last octet
		last, err := ParseOctet(highText)
		if err != nil {
			return fmt.Errorf("%w: %w", dataType.ErrParse, err)
		}
		high = low&^0xFF | uint32(last)
	}

	return splitRange(low, high, 32, emit)
}
