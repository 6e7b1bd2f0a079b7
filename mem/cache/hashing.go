package cache

// primitivePolynomials[k] is a primitive polynomial over GF(2) of degree k.
var primitivePolynomials = [...]uint64{
	0x1,
	0x3, 0x7, 0xB, 0x13, 0x25, 0x43, 0x89, 0x11D,
	0x211, 0x409, 0x805, 0x1053, 0x201B, 0x4443, 0x8003, 0x1100B,
}

// bitwiseHash folds the bits above the index into the index.
func bitwiseHash(higherBits, index uint64, numSets int) int {
	return int((index ^ higherBits) & uint64(numSets-1))
}

// ipolyHash returns the block number modulo a primitive polynomial whose
// degree is log2(numSets).
func ipolyHash(blockNum uint64, numSets int) int {
	degree := log2(uint64(numSets))
	poly := primitivePolynomials[degree]

	for i := 63; i >= int(degree); i-- {
		if blockNum&(1<<uint(i)) != 0 {
			blockNum ^= poly << (uint(i) - degree)
		}
	}

	return int(blockNum)
}
