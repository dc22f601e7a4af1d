package rowkit

import "testing"

// TestKernelMaskEquivalence exercises the "mask equivalence" property: the
// SWAR and scalar variants must produce bit-identical masks for the same
// input and carry state, for every block size each variant supports.
func TestKernelMaskEquivalence(t *testing.T) {
	inputs := [][]byte{
		[]byte(""),
		[]byte("a,b,c"),
		[]byte(`a,"b,b",c`),
		[]byte("a\r\nb\r\nc"),
		[]byte(`"quoted"` + "\n" + "plain,row"),
		make([]byte, 70), // longer than the widest block, filled below
	}
	for i := range inputs[5] {
		inputs[5][i] = byte('a' + i%5)
	}

	blockSizes := []int{blockSizeNarrow, blockSizeMedium, blockSizeWide}
	for _, data := range inputs {
		for _, bs := range blockSizes {
			for _, carry := range []bool{false, true} {
				scalar := computeBlockMasksScalar(data, bs, ',', '"', carry)
				swar := computeBlockMasksSWAR(data, bs, ',', '"', carry)
				if scalar != swar {
					t.Fatalf("block size %d carry %v: scalar=%+v swar=%+v input=%q", bs, carry, scalar, swar, data)
				}
			}
		}
	}
}

func TestNewKernelReturnsAVariant(t *testing.T) {
	k := newKernel()
	if k.BlockSize() <= 0 {
		t.Fatalf("expected a positive block size, got %d", k.BlockSize())
	}
}

func TestPrefixXOR64(t *testing.T) {
	cases := []struct {
		in, want uint64
	}{
		{0, 0},
		{1, 0xFFFFFFFFFFFFFFFF},
		{0b101, 0b011},
		{0b1, 0xFFFFFFFFFFFFFFFF},
	}
	for _, c := range cases {
		if got := prefixXOR64(c.in); got != c.want {
			t.Errorf("prefixXOR64(%b) = %b, want %b", c.in, got, c.want)
		}
	}
}

func TestSwarByteMatch(t *testing.T) {
	var word uint64
	for i := 0; i < 8; i++ {
		b := byte('a')
		if i == 3 {
			b = ','
		}
		word |= uint64(b) << uint(i*8)
	}
	mask := compactByteMatch(swarByteMatch(word, ','))
	if mask != 1<<3 {
		t.Fatalf("expected bit 3 set, got %08b", mask)
	}
}

func TestFinishBlockCarryPropagation(t *testing.T) {
	// A single quote byte mid-block: everything after it should be "in
	// quote" for the rest of the block when no carry comes in.
	var q uint64 = 1 << 2
	b := finishBlock(0, q, 0, false, 8)
	// prefix-XOR is inclusive: bits 2..7 (the opening quote itself and
	// everything after it) are set; bits 0..1 are not.
	want := uint64(0b11111100)
	got := prefixXOR64(q) & (uint64(1)<<8 - 1)
	if got != want {
		t.Fatalf("prefixXOR64 sanity check failed: got %08b want %08b", got, want)
	}
	if !b.CarryOut {
		t.Fatalf("expected carry out with an odd number of quote bytes")
	}
}
