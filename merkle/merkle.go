// Package merkle implements the deterministic Merkle commitment over an
// ordered, non-empty sequence of 32-byte leaf pre-images (CANONICAL spec
// §4.4): tree construction with the duplicate-last-node odd-level rule,
// root computation, and inclusion proofs with a fixed L/R direction
// encoding.
package merkle

import (
	"errors"

	"github.com/noeticanlabs/cnsc-haai-sub000/khash"
)

// ErrEmptyInput is returned when Root or Prove is called with no leaves.
var ErrEmptyInput = errors.New("merkle: leaf list must be non-empty")

// ErrIndexOutOfRange is returned by Prove when i is not a valid leaf index.
var ErrIndexOutOfRange = errors.New("merkle: index out of range")

// ErrBadMerkleProof is returned by Verify on any mismatch, wrong length,
// or malformed direction token.
var ErrBadMerkleProof = errors.New("merkle: bad inclusion proof")

// Direction indicates which side of a parent node the sibling occupies
// while climbing from leaf to root. L means "the sibling is the left
// child, my node is the right child" and R is the mirror. No other
// spelling is conformant (spec §4.4).
type Direction string

const (
	Left  Direction = "L"
	Right Direction = "R"
)

// ProofStep is one element of an inclusion proof: a sibling hash and the
// side it sits on.
type ProofStep struct {
	Sibling khash.Digest `json:"sibling"`
	Dir     Direction    `json:"dir"`
}

// Root computes the Merkle root over preimages in order: each preimage is
// hashed into a leaf with MerkleLeaf, then combined bottom-up with
// MerkleInternal. When a level has an odd number of nodes, the last node
// is duplicated — hashed against itself — before promotion.
func Root(preimages [][]byte) (khash.Digest, error) {
	if len(preimages) == 0 {
		return khash.Digest{}, ErrEmptyInput
	}
	level := leavesOf(preimages)
	for len(level) > 1 {
		level = promote(level)
	}
	return level[0], nil
}

// Prove builds the inclusion proof for leaf index i: an ordered list of
// (sibling, direction) pairs from the leaf toward the root.
func Prove(preimages [][]byte, i int) ([]ProofStep, error) {
	if len(preimages) == 0 {
		return nil, ErrEmptyInput
	}
	if i < 0 || i >= len(preimages) {
		return nil, ErrIndexOutOfRange
	}

	level := leavesOf(preimages)
	idx := i
	var proof []ProofStep
	for len(level) > 1 {
		var step ProofStep
		if idx%2 == 0 {
			// This node is the left child. Its sibling is to the right,
			// or itself (duplicated) if it is the odd node out.
			if idx+1 < len(level) {
				step = ProofStep{Sibling: level[idx+1], Dir: Right}
			} else {
				step = ProofStep{Sibling: level[idx], Dir: Right}
			}
		} else {
			step = ProofStep{Sibling: level[idx-1], Dir: Left}
		}
		proof = append(proof, step)
		level = promote(level)
		idx = idx / 2
	}
	return proof, nil
}

// Verify recomputes the root by folding proof onto MerkleLeaf(preimage)
// and compares it to root. It fails with ErrBadMerkleProof on any
// mismatch, wrong proof shape, or unrecognized direction token.
func Verify(preimage []byte, proof []ProofStep, root khash.Digest) error {
	cur := khash.MerkleLeaf(preimage)
	for _, step := range proof {
		switch step.Dir {
		case Left:
			cur = khash.MerkleInternal(step.Sibling, cur)
		case Right:
			cur = khash.MerkleInternal(cur, step.Sibling)
		default:
			return ErrBadMerkleProof
		}
	}
	if cur != root {
		return ErrBadMerkleProof
	}
	return nil
}

func leavesOf(preimages [][]byte) []khash.Digest {
	level := make([]khash.Digest, len(preimages))
	for i, p := range preimages {
		level[i] = khash.MerkleLeaf(p)
	}
	return level
}

func promote(level []khash.Digest) []khash.Digest {
	next := make([]khash.Digest, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		if i+1 == len(level) {
			next = append(next, khash.MerkleInternal(level[i], level[i]))
			continue
		}
		next = append(next, khash.MerkleInternal(level[i], level[i+1]))
	}
	return next
}
