package utils

import (
	"errors"
	"ip_forest/internal/dataType"
	"math/rand"
	"testing"
)

func blockSize(b dataType.CidrBlock) uint64 {
	return uint64(^b.Mask) + 1
}

// checkCover verifies blocks are aligned, ascending, disjoint and cover
// exactly [low, high].
func checkCover(t *testing.T, low, high uint32, blocks []dataType.CidrBlock) {
	t.Helper()
	if len(blocks) == 0 {
		t.Fatalf("SplitRange(%#08x, %#08x) returned no blocks", low, high)
	}
	next := uint64(low)
	var total uint64
	for i, b := range blocks {
		if _, ok := MaskBits(b.Mask); !ok {
			t.Fatalf("block %d has non contiguous mask %#08x", i, b.Mask)
		}
		if b.Addr&^b.Mask != 0 {
			t.Fatalf("block %d %s is not aligned", i, FormatBlock(b))
		}
		if uint64(b.Addr) != next {
			t.Fatalf("block %d %s starts at %#08x, expected %#08x", i, FormatBlock(b), b.Addr, next)
		}
		next += blockSize(b)
		total += blockSize(b)
	}
	if next != uint64(high)+1 {
		t.Fatalf("blocks end at %#x, expected %#x", next, uint64(high)+1)
	}
	if total != uint64(high)-uint64(low)+1 {
		t.Fatalf("Expected %d addresses, got %d", uint64(high)-uint64(low)+1, total)
	}
}

func TestSplitRangeSingleAddress(t *testing.T) {
	for _, x := range []uint32{0, 1, 0x0A000001, 0xC0A800FF, 0xFFFFFFFF} {
		blocks, err := SplitRange(x, x)
		if err != nil {
			t.Fatalf("SplitRange(%#08x, %#08x): %v", x, x, err)
		}
		if len(blocks) != 1 || blocks[0].Addr != x || blocks[0].Mask != 0xFFFFFFFF {
			t.Errorf("Expected one /32 for %#08x, got %v", x, blocks)
		}
	}
}

func TestSplitRangeWholeSpace(t *testing.T) {
	blocks, err := SplitRange(0, 0xFFFFFFFF)
	if err != nil {
		t.Fatalf("SplitRange: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Addr != 0 || blocks[0].Mask != 0 {
		t.Errorf("Expected a single /0, got %v", blocks)
	}
}

func TestSplitRangeInverted(t *testing.T) {
	_, err := SplitRange(10, 5)
	if !errors.Is(err, dataType.ErrParse) {
		t.Errorf("Expected ErrParse for an inverted range, got %v", err)
	}
	if _, err := CountRange(10, 5); err == nil {
		t.Errorf("Expected CountRange to fail on an inverted range")
	}
}

func TestSplitRangeKnownBlocks(t *testing.T) {
	tests := []struct {
		low, high string
		want      []string
	}{
		{"192.168.0.10", "192.168.0.30", []string{
			"192.168.0.10/31", "192.168.0.12/30", "192.168.0.16/29",
			"192.168.0.24/30", "192.168.0.28/31", "192.168.0.30/32",
		}},
		{"10.0.0.0", "10.0.0.255", []string{"10.0.0.0/24"}},
		{"10.0.0.0", "10.0.1.255", []string{"10.0.0.0/23"}},
		{"0.0.0.0", "0.0.0.3", []string{"0.0.0.0/30"}},
		{"10.0.0.1", "10.0.0.2", []string{"10.0.0.1/32", "10.0.0.2/32"}},
		{"0.0.0.1", "255.255.255.255", nil},
	}
	for _, tt := range tests {
		low, _ := ParseDottedQuad(tt.low)
		high, _ := ParseDottedQuad(tt.high)
		blocks, err := SplitRange(low, high)
		if err != nil {
			t.Fatalf("SplitRange(%s, %s): %v", tt.low, tt.high, err)
		}
		checkCover(t, low, high, blocks)
		if tt.want == nil {
			continue
		}
		if len(blocks) != len(tt.want) {
			t.Errorf("SplitRange(%s, %s) = %d blocks, want %d", tt.low, tt.high, len(blocks), len(tt.want))
			continue
		}
		for i, b := range blocks {
			if got := FormatBlock(b); got != tt.want[i] {
				t.Errorf("SplitRange(%s, %s)[%d] = %s, want %s", tt.low, tt.high, i, got, tt.want[i])
			}
		}
	}
}

func TestSplitRangeUpperHalf(t *testing.T) {
	// 0.0.0.1 - 255.255.255.255 needs one block per prefix length 1..32
	blocks, err := SplitRange(1, 0xFFFFFFFF)
	if err != nil {
		t.Fatalf("SplitRange: %v", err)
	}
	if len(blocks) != 32 {
		t.Errorf("Expected 32 blocks, got %d", len(blocks))
	}
}

func TestSplitRangeRandomCoverage(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		a, b := rng.Uint32(), rng.Uint32()
		if i%2 == 0 {
			// keep some ranges short
			b = a + uint32(rng.Intn(4096))
			if b < a {
				b = 0xFFFFFFFF
			}
		}
		if a > b {
			a, b = b, a
		}
		blocks, err := SplitRange(a, b)
		if err != nil {
			t.Fatalf("SplitRange(%#08x, %#08x): %v", a, b, err)
		}
		checkCover(t, a, b, blocks)

		n, err := CountRange(a, b)
		if err != nil || n != len(blocks) {
			t.Fatalf("CountRange(%#08x, %#08x) = %d (%v), expected %d", a, b, n, err, len(blocks))
		}
		// a minimal cover never needs more than two blocks per prefix length
		if len(blocks) > 62 {
			t.Fatalf("SplitRange(%#08x, %#08x) produced %d blocks", a, b, len(blocks))
		}
	}
}

// Two neighbouring blocks of the same size that could merge into an aligned
// parent mean the cover is not minimal.
func TestSplitRangeMinimal(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 1000; i++ {
		a := rng.Uint32() >> uint(rng.Intn(32))
		b := a + uint32(rng.Intn(1<<16))
		if b < a {
			continue
		}
		blocks, err := SplitRange(a, b)
		if err != nil {
			t.Fatalf("SplitRange: %v", err)
		}
		for j := 1; j < len(blocks); j++ {
			prev, cur := blocks[j-1], blocks[j]
			if prev.Mask != cur.Mask || prev.Mask == 0 {
				continue
			}
			parent := prev.Mask << 1
			if prev.Addr&parent == cur.Addr&parent {
				t.Fatalf("SplitRange(%#08x, %#08x): %s and %s should be one block",
					a, b, FormatBlock(prev), FormatBlock(cur))
			}
		}
	}
}

// greedyCount takes the largest aligned block that fits at every step,
// which gives the smallest possible cover.
func greedyCount(low, high uint32) int {
	n := 0
	cur, end := uint64(low), uint64(high)
	for cur <= end {
		size := uint64(1)
		for size < 1<<32 && cur&(size*2-1) == 0 && cur+size*2-1 <= end {
			size *= 2
		}
		cur += size
		n++
	}
	return n
}

func TestSplitRangeSmallRangesExhaustive(t *testing.T) {
	for low := uint32(0); low <= 300; low++ {
		for high := low; high <= 300; high++ {
			blocks, err := SplitRange(low, high)
			if err != nil {
				t.Fatalf("SplitRange(%d, %d): %v", low, high, err)
			}
			if want := greedyCount(low, high); len(blocks) != want {
				t.Fatalf("SplitRange(%d, %d) = %d blocks, want %d", low, high, len(blocks), want)
			}
			checkCover(t, low, high, blocks)
		}
	}
}

func TestSplitRangeAlignedPowersOfTwo(t *testing.T) {
	for bits := 0; bits <= 32; bits++ {
		size := uint64(1) << (32 - bits)
		low := uint32(0x0A000000) & MaskFromBits(bits)
		high := uint32(uint64(low) + size - 1)
		blocks, err := SplitRange(low, high)
		if err != nil {
			t.Fatalf("SplitRange(/%d): %v", bits, err)
		}
		if len(blocks) != 1 || blocks[0].Addr != low || blocks[0].Mask != MaskFromBits(bits) {
			t.Errorf("Expected a single /%d for %s-%s, got %v", bits, FormatAddress(low), FormatAddress(high), blocks)
		}
	}
}
