// Package record implements the transition-receipt data model (CANONICAL
// spec §3–§4.3): the hash-bearing core of a record, its content-addressed
// receipt id, and its history-dependent chain digest.
package record

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/noeticanlabs/cnsc-haai-sub000/canon"
	"github.com/noeticanlabs/cnsc-haai-sub000/khash"
	"github.com/noeticanlabs/cnsc-haai-sub000/q18"
)

// ActionTag is a closed enumerated action kind. Adding a new tag is a
// versioned protocol change (spec §9), not a runtime extension — there is
// intentionally no registration API.
type ActionTag string

const (
	// ActionStep is an ordinary state-transition record.
	ActionStep ActionTag = "STEP"
	// ActionSlabSeal marks a record as a batch (slab) summary (§4.7).
	ActionSlabSeal ActionTag = "SLAB_SEAL"
)

// Valid reports whether t is a member of the closed action_tag set.
func (t ActionTag) Valid() bool {
	switch t {
	case ActionStep, ActionSlabSeal:
		return true
	default:
		return false
	}
}

// ErrMalformedRecord is returned when a Core fails structural validation
// before it ever reaches the hasher.
var ErrMalformedRecord = errors.New("record: malformed core")

// Core holds the hash-bearing, strictly canonical fields of a transition
// receipt. Metadata (producer labels, timestamps, notes) is deliberately
// absent from this type: it is not consensus-relevant and must never flow
// into a hash (spec §3).
type Core struct {
	PrevStateHash      khash.Digest
	NextStateHash      khash.Digest
	RiskDelta          q18.Q
	BudgetBefore       q18.Q
	BudgetAfter        q18.Q
	Kappa              q18.Q
	ActionTag          ActionTag
	ProposalCommitment khash.Digest
}

// Validate checks structural well-formedness that must hold before the
// core is canonicalized: a recognized action_tag and non-negative
// budgets. It does not apply the admissibility law (see package budget)
// or any chain-linkage check (see package verifier).
func (c Core) Validate() error {
	if !c.ActionTag.Valid() {
		return fmt.Errorf("%w: unrecognized action_tag %q", ErrMalformedRecord, c.ActionTag)
	}
	if c.BudgetBefore < 0 || c.BudgetAfter < 0 {
		return fmt.Errorf("%w: negative budget", ErrMalformedRecord)
	}
	return nil
}

// Canonical converts the core into the canonical value mandated by the
// wire schema (spec §6): an object whose keys — exactly — are
// action_tag, budget_after, budget_before, kappa, next_state_hash,
// prev_state_hash, proposal_commitment, risk_delta. Hash fields are
// lowercase hex strings of length 64.
func (c Core) Canonical() canon.Value {
	return canon.Object(map[string]canon.Value{
		"action_tag":          canon.Str(string(c.ActionTag)),
		"budget_after":        canon.Int(c.BudgetAfter),
		"budget_before":       canon.Int(c.BudgetBefore),
		"kappa":               canon.Int(c.Kappa),
		"next_state_hash":     canon.Str(hexDigest(c.NextStateHash)),
		"prev_state_hash":     canon.Str(hexDigest(c.PrevStateHash)),
		"proposal_commitment": canon.Str(hexDigest(c.ProposalCommitment)),
		"risk_delta":          canon.Int(c.RiskDelta),
	})
}

// CanonicalBytes is canon.Bytes(c.Canonical()).
func (c Core) CanonicalBytes() ([]byte, error) {
	return canon.Bytes(c.Canonical())
}

// ReceiptID computes receipt_id = H(DOMAIN_RECEIPT_ID || canonical_bytes(core)).
// It is a pure content hash, independent of any prior history.
func (c Core) ReceiptID() (khash.Digest, error) {
	b, err := c.CanonicalBytes()
	if err != nil {
		return khash.Digest{}, err
	}
	return khash.ReceiptID(b), nil
}

// ChainDigest computes chain_digest = H(DOMAIN_CHAIN || prevChainDigest || receiptID).
func ChainDigest(prevChainDigest, receiptID khash.Digest) khash.Digest {
	return khash.ChainDigest(prevChainDigest, receiptID)
}

func hexDigest(d khash.Digest) string {
	return hex.EncodeToString(d[:])
}

// GenesisStateHash is GENESIS_STATE_HASH: the hash of the canonical empty
// state, defined once per deployment (spec §6). Deployments that version
// their genesis state should not rely on this default; it exists for
// devnets and tests that have no producer-defined genesis state.
func GenesisStateHash() khash.Digest {
	b, _ := canon.Bytes(canon.Object(map[string]canon.Value{}))
	return khash.StateHash(b)
}
