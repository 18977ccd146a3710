package utils

import (
	"fmt"
	"ip_forest/internal/dataType"
)

// maskUp has bits [i, 31] set.
func maskUp(i int) uint32 {
	if i >= 32 {
		return 0
	}
	return ^uint32(0) << i
}

// maskDown has bits [0, i] set.
func maskDown(i int) uint32 {
	if i >= 31 {
		return 0xFFFFFFFF
	}
	return uint32(1)<<(i+1) - 1
}

// SplitRange returns the minimal list of CIDR blocks covering [low, high],
// in ascending address order.
func SplitRange(low, high uint32) ([]dataType.CidrBlock, error) {
	n, err := CountRange(low, high)
	if err != nil {
		return nil, err
	}
	blocks := make([]dataType.CidrBlock, 0, n)
	err = splitRange(low, high, 32, func(addr, mask uint32) {
		blocks = append(blocks, dataType.CidrBlock{Addr: addr, Mask: mask})
	})
	return blocks, err
}

// CountRange returns how many blocks SplitRange would produce.
func CountRange(low, high uint32) (int, error) {
	n := 0
	err := splitRange(low, high, 32, func(_, _ uint32) { n++ })
	return n, err
}

// splitRange covers [low, high], which lies inside one aligned subtree of
// 2^length addresses. low and high share every bit from length up.
func splitRange(low, high uint32, length int, emit func(addr, mask uint32)) error {
	if low > high {
		return fmt.Errorf("%w: inverted range %s-%s", dataType.ErrParse, FormatAddress(low), FormatAddress(high))
	}

	if length == 0 || low == high {
		emit(low, 0xFFFFFFFF)
		return nil
	}

	// skip the shared prefix, b ends on the first differing bit
	b := length - 1
	for b >= 0 && low&(1<<b) == high&(1<<b) {
		b--
	}
	prefix := low & maskUp(b+1)

	// the range fills the subtree right above b
	below := maskDown(b)
	if low&below == 0 && high&below == below {
		emit(prefix, ^below)
		return nil
	}

	// low's highest set bit under b
	lb := -1
	for i := b - 1; i >= 0; i-- {
		if low&(1<<i) != 0 {
			lb = i
			break
		}
	}

	if lb >= 0 {
		if err := splitRange(low, low|maskDown(lb), lb, emit); err != nil {
			return err
		}
	} else {
		// low sits on the start of the lower half, which is then full
		lb = b
		emit(prefix, maskUp(b))
	}

	for j := lb + 1; j < b; j++ {
		emit(prefix|1<<j, maskUp(j))
	}

	return splitRange(high&maskUp(b), high, b, emit)
}
