// Package slab implements batch (slab) sealing (CANONICAL spec §4.7): a
// seal summarizes the last L non-seal records since the previous seal
// under a Merkle root, and is itself chained into the trajectory as an
// ordinary record.
package slab

import (
	"encoding/binary"
	"errors"

	"github.com/noeticanlabs/cnsc-haai-sub000/khash"
	"github.com/noeticanlabs/cnsc-haai-sub000/merkle"
	"github.com/noeticanlabs/cnsc-haai-sub000/q18"
)

// ErrBadSlab is returned when a seal's declared fields do not match the
// recomputed summary of its member records.
var ErrBadSlab = errors.New("slab: seal does not match member records")

// SideTable carries a seal's declared summary fields. These live outside
// the hashed record core (spec §6 "Sealed-batch schema"); only the
// binding hash derived from them is hashed, via Binding.
type SideTable struct {
	Root               khash.Digest
	FirstChainDigest   khash.Digest
	LastChainDigest    khash.Digest
	FinalBudgetAfter   q18.Q
	FinalNextStateHash khash.Digest
	ParentSlabRoot     khash.Digest
	DeclaredLength     int
}

// Binding computes the hash a seal's record core.proposal_commitment
// field must equal: H(DOMAIN_SLAB || root || first_chain_digest ||
// last_chain_digest || final_budget_after || final_next_state_hash ||
// parent_slab_root || declared_length). The spec leaves the exact tail
// of this binding unspecified ("…"); this concrete byte layout is our
// pinned resolution, recorded in DESIGN.md.
func (s SideTable) Binding() khash.Digest {
	var budgetBE [8]byte
	binary.BigEndian.PutUint64(budgetBE[:], uint64(s.FinalBudgetAfter))
	var lenBE [8]byte
	binary.BigEndian.PutUint64(lenBE[:], uint64(s.DeclaredLength))

	return khash.SlabBinding(
		s.Root,
		s.FirstChainDigest[:],
		s.LastChainDigest[:],
		budgetBE[:],
		s.FinalNextStateHash[:],
		s.ParentSlabRoot[:],
		lenBE[:],
	)
}

// Summarize recomputes the expected SideTable from the ordered member
// receipt ids collected since the previous seal, the chain digests of
// the first and last member, the running budget and state hash after
// the last member, and the parent seal's root (or the genesis chain
// digest, for the first slab in a trajectory).
func Summarize(memberReceiptIDs []khash.Digest, firstChainDigest, lastChainDigest khash.Digest, finalBudgetAfter q18.Q, finalNextStateHash khash.Digest, parentSlabRoot khash.Digest) (SideTable, error) {
	preimages := make([][]byte, len(memberReceiptIDs))
	for i, rid := range memberReceiptIDs {
		cp := rid
		preimages[i] = cp[:]
	}
	root, err := merkle.Root(preimages)
	if err != nil {
		return SideTable{}, err
	}
	return SideTable{
		Root:               root,
		FirstChainDigest:   firstChainDigest,
		LastChainDigest:    lastChainDigest,
		FinalBudgetAfter:   finalBudgetAfter,
		FinalNextStateHash: finalNextStateHash,
		ParentSlabRoot:     parentSlabRoot,
		DeclaredLength:     len(memberReceiptIDs),
	}, nil
}

// Verify checks a seal's declared SideTable against the recomputed
// summary of its actual member records. The seal's declared length must
// equal the number of collected member records (spec §4.7 step 1: "L
// must equal the seal's declared length"). It returns ErrBadSlab on any
// discrepancy.
func Verify(declared SideTable, memberReceiptIDs []khash.Digest, firstChainDigest, lastChainDigest khash.Digest, finalBudgetAfter q18.Q, finalNextStateHash khash.Digest, parentSlabRoot khash.Digest) error {
	if declared.DeclaredLength != len(memberReceiptIDs) {
		return ErrBadSlab
	}
	got, err := Summarize(memberReceiptIDs, firstChainDigest, lastChainDigest, finalBudgetAfter, finalNextStateHash, parentSlabRoot)
	if err != nil {
		return ErrBadSlab
	}
	if got != declared {
		return ErrBadSlab
	}
	return nil
}

// VerifyInclusion checks that leafPreimage (an exact receipt_id under
// proof) is included under seal.Root via the Merkle inclusion proof
// mechanism (spec §4.7 last paragraph).
func VerifyInclusion(seal SideTable, leafPreimage []byte, proof []merkle.ProofStep) error {
	if err := merkle.Verify(leafPreimage, proof, seal.Root); err != nil {
		return merkle.ErrBadMerkleProof
	}
	return nil
}
