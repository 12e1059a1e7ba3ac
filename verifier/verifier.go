// Package verifier implements the trajectory verifier (CANONICAL spec
// §4.6): a pure, synchronous function of an initial state hash, an
// initial budget, a fixed kappa, a genesis chain digest, and a sequence
// of records, producing either Accept or a typed, pinpointed Reject.
package verifier

import (
	"errors"
	"fmt"

	"github.com/noeticanlabs/cnsc-haai-sub000/budget"
	"github.com/noeticanlabs/cnsc-haai-sub000/khash"
	"github.com/noeticanlabs/cnsc-haai-sub000/q18"
	"github.com/noeticanlabs/cnsc-haai-sub000/record"
	"github.com/noeticanlabs/cnsc-haai-sub000/slab"
)

// Kind is one of the rejection codes enumerated in spec §6.
type Kind string

const (
	KindFloatInConsensusPath Kind = "FloatInConsensusPath"
	KindOverflow             Kind = "Overflow"
	KindDivByZero            Kind = "DivByZero"
	KindBadPrevDigest        Kind = "BadPrevDigest"
	KindStateDiscontinuity   Kind = "StateDiscontinuity"
	KindBudgetDiscontinuity  Kind = "BudgetDiscontinuity"
	KindKappaMismatch        Kind = "KappaMismatch"
	KindNegativeBudget       Kind = "NegativeBudget"
	KindInsufficientBudget   Kind = "InsufficientBudget"
	KindBudgetNotDebited     Kind = "BudgetNotDebited"
	KindBudgetNotConserved   Kind = "BudgetNotConserved"
	KindBadMerkleProof       Kind = "BadMerkleProof"
	KindBadSlab              Kind = "BadSlab"
	KindMalformedRecord      Kind = "MalformedRecord"
)

// RejectError is the typed rejection a caller receives: a kind, the
// zero-based index of the failing record, and a short machine-readable
// detail string. Rejection is terminal — Verify does not attempt to
// recover or continue past it.
type RejectError struct {
	Kind   Kind
	Index  int
	Detail string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("reject[%d] %s: %s", e.Index, e.Kind, e.Detail)
}

func reject(index int, kind Kind, detail string) error {
	return &RejectError{Kind: kind, Index: index, Detail: detail}
}

// Params are the trajectory-initial, immutable inputs to Verify.
type Params struct {
	InitialStateHash khash.Digest
	InitialBudget    q18.Q
	Kappa            q18.Q
	Genesis          khash.Digest
	// SlabSize is the protocol constant L bounding the number of
	// non-seal records folded into one slab (spec §3, "bounded by a
	// protocol constant, e.g. 1024").
	SlabSize int
}

// RecordInput is one record's core plus, for SLAB_SEAL records only, its
// side table (spec §6 "Sealed-batch schema": side-table fields live
// outside the hashed core).
type RecordInput struct {
	Core record.Core
	Slab *slab.SideTable
}

// Source is a pull iterator over a trajectory's records. Implementations
// must not require the full trajectory to be materialized at once (spec
// §5: "Implementations MUST NOT buffer the full trajectory").
type Source interface {
	// Next returns the next record, or ok=false when the trajectory is
	// exhausted. err is a producer-side delivery failure, not a kernel
	// rejection; Verify maps it to REJECT(MalformedRecord, ...).
	Next() (rec RecordInput, ok bool, err error)
}

// SliceSource adapts an in-memory slice to Source, for tests and small
// trajectories. Production hosts with long trajectories should implement
// Source directly over a stream.
type SliceSource struct {
	records []RecordInput
	pos     int
}

func NewSliceSource(records []RecordInput) *SliceSource {
	return &SliceSource{records: records}
}

func (s *SliceSource) Next() (RecordInput, bool, error) {
	if s.pos >= len(s.records) {
		return RecordInput{}, false, nil
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, true, nil
}

// Outcome is the result of an accepted trajectory.
type Outcome struct {
	FinalStateHash   khash.Digest
	FinalBudget      q18.Q
	FinalChainDigest khash.Digest
}

// errSlabWindowOverflow guards the O(L) memory bound: a producer that
// never seals within SlabSize non-seal records is itself non-conformant.
var errSlabWindowOverflow = errors.New("verifier: unsealed record window exceeds configured slab size")

// Verify consumes src in order and decides ACCEPT or REJECT(kind, index,
// detail). It is a pure function of params and the records src yields:
// no wall clock, no randomness, no ambient state.
func Verify(params Params, src Source) (Outcome, error) {
	sHash := params.InitialStateHash
	bBefore := params.InitialBudget
	prevCD := params.Genesis

	var window []khash.Digest
	windowFirstCD := params.Genesis
	parentSlabRoot := params.Genesis

	idx := 0
	for {
		in, ok, err := src.Next()
		if err != nil {
			return Outcome{}, reject(idx, KindMalformedRecord, err.Error())
		}
		if !ok {
			break
		}
		core := in.Core

		if err := core.Validate(); err != nil {
			return Outcome{}, reject(idx, KindMalformedRecord, err.Error())
		}

		rid, err := core.ReceiptID()
		if err != nil {
			return Outcome{}, reject(idx, KindMalformedRecord, err.Error())
		}
		cd := record.ChainDigest(prevCD, rid)

		if core.PrevStateHash != sHash {
			return Outcome{}, reject(idx, KindStateDiscontinuity, "prev_state_hash does not match running state")
		}
		if core.BudgetBefore != bBefore {
			return Outcome{}, reject(idx, KindBudgetDiscontinuity, "budget_before does not match running budget")
		}
		if core.Kappa != params.Kappa {
			return Outcome{}, reject(idx, KindKappaMismatch, "kappa does not match trajectory kappa")
		}

		if err := budget.Admit(core.RiskDelta, core.BudgetBefore, core.BudgetAfter, core.Kappa); err != nil {
			return Outcome{}, reject(idx, mapBudgetErr(err), err.Error())
		}

		if core.ActionTag == record.ActionSlabSeal {
			if in.Slab == nil {
				return Outcome{}, reject(idx, KindBadSlab, "SLAB_SEAL record missing side table")
			}
			declared := *in.Slab
			if declared.ParentSlabRoot != parentSlabRoot {
				return Outcome{}, reject(idx, KindBadSlab, "parent_slab_root does not match previous seal")
			}
			if core.ProposalCommitment != declared.Binding() {
				return Outcome{}, reject(idx, KindBadSlab, "proposal_commitment does not bind declared slab fields")
			}
			if err := slab.Verify(declared, window, windowFirstCD, prevCD, bBefore, sHash, parentSlabRoot); err != nil {
				return Outcome{}, reject(idx, KindBadSlab, err.Error())
			}
			parentSlabRoot = declared.Root
			window = nil
			windowFirstCD = cd
		} else {
			if len(window) == 0 {
				windowFirstCD = cd
			}
			if len(window) >= params.SlabSize {
				return Outcome{}, reject(idx, KindBadSlab, errSlabWindowOverflow.Error())
			}
			window = append(window, rid)
		}

		sHash = core.NextStateHash
		bBefore = core.BudgetAfter
		prevCD = cd
		idx++
	}

	return Outcome{FinalStateHash: sHash, FinalBudget: bBefore, FinalChainDigest: prevCD}, nil
}

func mapBudgetErr(err error) Kind {
	switch {
	case errors.Is(err, budget.ErrNegativeBudget):
		return KindNegativeBudget
	case errors.Is(err, budget.ErrBudgetNotConserved):
		return KindBudgetNotConserved
	case errors.Is(err, budget.ErrInsufficientBudget):
		return KindInsufficientBudget
	case errors.Is(err, budget.ErrBudgetNotDebited):
		return KindBudgetNotDebited
	case errors.Is(err, q18.ErrOverflow):
		return KindOverflow
	case errors.Is(err, q18.ErrDivByZero):
		// budget.Admit never calls q18.Div (the admissibility law only needs
		// Mul and Sub), so this arm has no current construction site. It
		// stays mapped because q18.Div is part of the Q18 package's exposed
		// arithmetic contract, and any future budget-law variant that
		// divides would need this mapping already in place.
		return KindDivByZero
	default:
		return KindMalformedRecord
	}
}
