// Package wire is the shared JSON wire encoding for record cores, slab
// side tables, and inclusion proofs (spec §6 "External interfaces"),
// used by both cmd/cohctl and cmd/cohd so the two ambient front ends
// never drift on request/response shape.
package wire

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/noeticanlabs/cnsc-haai-sub000/canon"
	"github.com/noeticanlabs/cnsc-haai-sub000/khash"
	"github.com/noeticanlabs/cnsc-haai-sub000/merkle"
	"github.com/noeticanlabs/cnsc-haai-sub000/q18"
	"github.com/noeticanlabs/cnsc-haai-sub000/record"
	"github.com/noeticanlabs/cnsc-haai-sub000/slab"
)

// RecordJSON is the wire shape of a record core: exactly the eight keys
// spec §6 names. The four scalar fields decode as json.Number rather
// than int64 so a producer submitting a float literal (e.g. "risk_delta":
// 0.5) reaches Record/parseQ18 instead of failing generically at
// json.Decode — the float rejection must come from the canonical-value
// algebra, not from encoding/json's own type mismatch error.
type RecordJSON struct {
	ActionTag          string      `json:"action_tag"`
	BudgetAfter        json.Number `json:"budget_after"`
	BudgetBefore       json.Number `json:"budget_before"`
	Kappa              json.Number `json:"kappa"`
	NextStateHash      string      `json:"next_state_hash"`
	PrevStateHash      string      `json:"prev_state_hash"`
	ProposalCommitment string      `json:"proposal_commitment"`
	RiskDelta          json.Number `json:"risk_delta"`
}

// SlabJSON is the side-table shape of a sealed batch (spec §6
// "Sealed-batch schema").
type SlabJSON struct {
	Root               string `json:"root"`
	FirstChainDigest   string `json:"first_chain_digest"`
	LastChainDigest    string `json:"last_chain_digest"`
	FinalBudgetAfter   int64  `json:"final_budget_after"`
	FinalNextStateHash string `json:"final_next_state_hash"`
	ParentSlabRoot     string `json:"parent_slab_root"`
	DeclaredLength     int    `json:"declared_length"`
}

// ProofStepJSON is one inclusion-proof element: {"sibling": <64 hex>,
// "dir": "L" | "R"}.
type ProofStepJSON struct {
	Sibling string `json:"sibling"`
	Dir     string `json:"dir"`
}

// ParseDigest decodes a lowercase hex string into a 32-byte digest.
func ParseDigest(s string) (khash.Digest, error) {
	var d khash.Digest
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return d, fmt.Errorf("expected 32-byte hex, got %q", s)
	}
	copy(d[:], b)
	return d, nil
}

// ErrBadPrevDigest is returned when a field that plays the "prev" role in a
// chain-digest computation (a genesis chain digest or a slab's parent-slab
// root) does not decode to exactly 32 bytes. Unlike the other digest-shaped
// wire fields, which fail as a generic malformed record, this one maps to
// its own rejection kind because the prev-digest malformation is what
// khash.ChainDigest's contract is built around.
var ErrBadPrevDigest = errors.New("wire: prev digest must be 32-byte hex")

// ParseChainDigest is ParseDigest for a field that plays the "prev" role in
// a chain-digest computation. On failure it returns ErrBadPrevDigest rather
// than the generic ParseDigest error so callers can classify it distinctly.
func ParseChainDigest(s string) (khash.Digest, error) {
	d, err := ParseDigest(s)
	if err != nil {
		return d, fmt.Errorf("%w: %s", ErrBadPrevDigest, err)
	}
	return d, nil
}

// parseQ18 converts a wire-decoded JSON number into a Q18 scalar. Integer
// literals convert directly. Non-integer literals are routed through
// canon.FromAny so a genuine float (e.g. "0.5") is rejected with
// canon.ErrFloatInConsensusPath rather than a generic parse error; anything
// else that doesn't parse as a float is an overflow or malformed literal.
func parseQ18(n json.Number) (q18.Q, error) {
	if i, err := n.Int64(); err == nil {
		return q18.Q(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("%q: %w", n.String(), q18.ErrOverflow)
	}
	if _, err := canon.FromAny(f); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("%q: %w", n.String(), q18.ErrOverflow)
}

// Record converts a RecordJSON into a record.Core.
func Record(r RecordJSON) (record.Core, error) {
	prev, err := ParseDigest(r.PrevStateHash)
	if err != nil {
		return record.Core{}, fmt.Errorf("prev_state_hash: %w", err)
	}
	next, err := ParseDigest(r.NextStateHash)
	if err != nil {
		return record.Core{}, fmt.Errorf("next_state_hash: %w", err)
	}
	commit, err := ParseDigest(r.ProposalCommitment)
	if err != nil {
		return record.Core{}, fmt.Errorf("proposal_commitment: %w", err)
	}
	riskDelta, err := parseQ18(r.RiskDelta)
	if err != nil {
		return record.Core{}, fmt.Errorf("risk_delta: %w", err)
	}
	budgetBefore, err := parseQ18(r.BudgetBefore)
	if err != nil {
		return record.Core{}, fmt.Errorf("budget_before: %w", err)
	}
	budgetAfter, err := parseQ18(r.BudgetAfter)
	if err != nil {
		return record.Core{}, fmt.Errorf("budget_after: %w", err)
	}
	kappa, err := parseQ18(r.Kappa)
	if err != nil {
		return record.Core{}, fmt.Errorf("kappa: %w", err)
	}
	return record.Core{
		PrevStateHash:      prev,
		NextStateHash:      next,
		RiskDelta:          riskDelta,
		BudgetBefore:       budgetBefore,
		BudgetAfter:        budgetAfter,
		Kappa:              kappa,
		ActionTag:          record.ActionTag(r.ActionTag),
		ProposalCommitment: commit,
	}, nil
}

// Slab converts a *SlabJSON into a *slab.SideTable, passing nil through.
func Slab(s *SlabJSON) (*slab.SideTable, error) {
	if s == nil {
		return nil, nil
	}
	root, err := ParseDigest(s.Root)
	if err != nil {
		return nil, fmt.Errorf("root: %w", err)
	}
	first, err := ParseDigest(s.FirstChainDigest)
	if err != nil {
		return nil, fmt.Errorf("first_chain_digest: %w", err)
	}
	last, err := ParseDigest(s.LastChainDigest)
	if err != nil {
		return nil, fmt.Errorf("last_chain_digest: %w", err)
	}
	finalState, err := ParseDigest(s.FinalNextStateHash)
	if err != nil {
		return nil, fmt.Errorf("final_next_state_hash: %w", err)
	}
	parent, err := ParseChainDigest(s.ParentSlabRoot)
	if err != nil {
		return nil, fmt.Errorf("parent_slab_root: %w", err)
	}
	return &slab.SideTable{
		Root:               root,
		FirstChainDigest:   first,
		LastChainDigest:    last,
		FinalBudgetAfter:   q18.Q(s.FinalBudgetAfter),
		FinalNextStateHash: finalState,
		ParentSlabRoot:     parent,
		DeclaredLength:     s.DeclaredLength,
	}, nil
}

// ProofSteps converts wire proof steps into merkle.ProofStep values.
func ProofSteps(steps []ProofStepJSON) ([]merkle.ProofStep, error) {
	out := make([]merkle.ProofStep, len(steps))
	for i, p := range steps {
		sib, err := ParseDigest(p.Sibling)
		if err != nil {
			return nil, fmt.Errorf("proof[%d].sibling: %w", i, err)
		}
		out[i] = merkle.ProofStep{Sibling: sib, Dir: merkle.Direction(p.Dir)}
	}
	return out, nil
}
