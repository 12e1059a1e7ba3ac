// Package khash wraps SHA-256 with the domain separators CANONICAL spec
// §4.3 mandates. The kernel never calls sha256 bare — every call site uses
// one of these typed helpers, each prepending an exact byte-literal domain
// tag before hashing.
package khash

import (
	"crypto/sha256"
)

// Digest is a 32-byte hash output.
type Digest [32]byte

// Domain separator tags, exact byte literals (§4.3 table).
var (
	domainReceiptID = []byte("COH_RECEIPT_ID_V1\n")
	domainChain     = []byte("COH_CHAIN_DIGEST_V1\n")
	domainState     = []byte("COH_STATE_V1\n")
	domainSlab      = []byte("COH_SLAB_V1\n")
	domainGenesis   = []byte("COH_GENESIS_V1\n")

	merkleLeafTag     byte = 0x00
	merkleInternalTag byte = 0x01
)

func hash(parts ...[]byte) Digest {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// ReceiptID computes receipt_id = H(DOMAIN_RECEIPT_ID || canonicalBytes).
func ReceiptID(canonicalBytes []byte) Digest {
	return hash(domainReceiptID, canonicalBytes)
}

// ChainDigest computes chain_digest = H(DOMAIN_CHAIN || prev || rid). prev
// is typed Digest, so it is always exactly 32 bytes by construction and
// ChainDigest cannot itself observe a malformed prev; a wire-supplied prev
// that isn't 32-byte hex is rejected earlier, at internal/wire.ParseChainDigest.
func ChainDigest(prev Digest, rid Digest) Digest {
	return hash(domainChain, prev[:], rid[:])
}

// StateHash computes state_hash = H(DOMAIN_STATE || canonicalBytes) for a
// producer-supplied cognitive-state serialization. The kernel treats the
// state as opaque: it only ever sees these bytes and this hash.
func StateHash(canonicalBytes []byte) Digest {
	return hash(domainState, canonicalBytes)
}

// SlabBinding computes H(DOMAIN_SLAB || root || ...) used to bind a slab
// seal's proposal_commitment to its Merkle root (§6 "Sealed-batch schema").
func SlabBinding(root Digest, extra ...[]byte) Digest {
	parts := append([][]byte{domainSlab, root[:]}, extra...)
	return hash(parts...)
}

// GenesisChainDigest is the fixed 32-byte seed GENESIS_CHAIN_DIGEST =
// H(DOMAIN_GENESIS), hashed once and reused for the life of the protocol.
func GenesisChainDigest() Digest {
	return hash(domainGenesis)
}

// MerkleLeaf computes H(0x00 || preimage).
func MerkleLeaf(preimage []byte) Digest {
	return hash([]byte{merkleLeafTag}, preimage)
}

// MerkleInternal computes H(0x01 || left || right).
func MerkleInternal(left, right Digest) Digest {
	return hash([]byte{merkleInternalTag}, left[:], right[:])
}
