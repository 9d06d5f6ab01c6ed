// Package merkletree builds the off-chain distribution tree over
// (claimant, amount) pairs. It is the backend collaborator's side of the
// earnings protocol: the root it produces is what the on-chain verifier in
// native/reportmarket checks proofs against.
package merkletree

import (
	"bytes"
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/sadiqsaidu/solvend/native/reportmarket"
)

var ErrNoLeaves = errors.New("merkletree: no leaves")

// Item is one distribution entry.
type Item struct {
	Claimant [20]byte
	Amount   uint64
}

// Tree is an immutable Merkle tree. Pairs are ordered byte-wise before
// hashing so proofs carry no direction bits; an odd node is promoted to the
// next level unchanged.
type Tree struct {
	layers [][][32]byte
}

// Build constructs the tree for the given items. Leaf order is preserved, so
// proof indexes match item indexes.
func Build(items []Item) (*Tree, error) {
	if len(items) == 0 {
		return nil, ErrNoLeaves
	}
	leaves := make([][32]byte, len(items))
	for i, item := range items {
		leaves[i] = reportmarket.LeafHash(item.Claimant, item.Amount)
	}
	layers := [][][32]byte{leaves}
	layer := leaves
	for len(layer) > 1 {
		next := make([][32]byte, 0, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			if i+1 == len(layer) {
				next = append(next, layer[i])
				continue
			}
			next = append(next, hashPair(layer[i], layer[i+1]))
		}
		layers = append(layers, next)
		layer = next
	}
	return &Tree{layers: layers}, nil
}

// Root returns the tree root.
func (t *Tree) Root() [32]byte {
	top := t.layers[len(t.layers)-1]
	return top[0]
}

// Len returns the number of leaves.
func (t *Tree) Len() int {
	return len(t.layers[0])
}

// Proof returns the sibling path for the leaf at index, ordered bottom-up.
func (t *Tree) Proof(index int) ([][32]byte, error) {
	if index < 0 || index >= t.Len() {
		return nil, fmt.Errorf("merkletree: index %d out of range", index)
	}
	proof := make([][32]byte, 0, len(t.layers)-1)
	for _, layer := range t.layers[:len(t.layers)-1] {
		var sibling int
		if index%2 == 0 {
			sibling = index + 1
		} else {
			sibling = index - 1
		}
		if sibling < len(layer) {
			proof = append(proof, layer[sibling])
		}
		index /= 2
	}
	return proof, nil
}

func hashPair(a, b [32]byte) [32]byte {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256(a[:], b[:]))
	return out
}
