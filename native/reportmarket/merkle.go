package reportmarket

import (
	"bytes"
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// LeafHash builds the canonical claim leaf: keccak256 of the claimant bytes
// followed by the claim amount as little-endian u64. The off-chain tree
// builder must use the identical construction.
func LeafHash(claimant [20]byte, amount uint64) [32]byte {
	buf := make([]byte, len(claimant)+8)
	copy(buf, claimant[:])
	binary.LittleEndian.PutUint64(buf[len(claimant):], amount)
	var leaf [32]byte
	copy(leaf[:], ethcrypto.Keccak256(buf))
	return leaf
}

// VerifyProof recomputes the root from a leaf and its sibling path. At each
// level the pair is ordered byte-wise before hashing, so verification does
// not depend on which side each sibling sat in the off-chain tree.
func VerifyProof(leaf [32]byte, proof [][32]byte, root [32]byte) bool {
	computed := leaf
	for _, sibling := range proof {
		computed = hashPair(computed, sibling)
	}
	return computed == root
}

func hashPair(a, b [32]byte) [32]byte {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256(a[:], b[:]))
	return out
}
