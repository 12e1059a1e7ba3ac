// Command cohfixtures emits the S1-S6 conformance vectors from the
// kernel specification as JSON files under testdata/vectors, so that any
// other language's implementation can replay the same trajectories and
// compare its receipt ids, chain digests, and final outcomes bit for
// bit. Grounded on the teacher's cmd/gen-conformance-fixtures: a small
// standalone generator that writes fixture files rather than serving
// requests.
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/noeticanlabs/cnsc-haai-sub000/canon"
	"github.com/noeticanlabs/cnsc-haai-sub000/khash"
	"github.com/noeticanlabs/cnsc-haai-sub000/merkle"
	"github.com/noeticanlabs/cnsc-haai-sub000/q18"
	"github.com/noeticanlabs/cnsc-haai-sub000/record"
	"github.com/noeticanlabs/cnsc-haai-sub000/verifier"
)

type recordVector struct {
	ActionTag          string `json:"action_tag"`
	BudgetAfter        int64  `json:"budget_after"`
	BudgetBefore       int64  `json:"budget_before"`
	Kappa              int64  `json:"kappa"`
	NextStateHash      string `json:"next_state_hash"`
	PrevStateHash      string `json:"prev_state_hash"`
	ProposalCommitment string `json:"proposal_commitment"`
	RiskDelta          int64  `json:"risk_delta"`
}

type vector struct {
	Name              string         `json:"name"`
	InitialStateHash  string         `json:"initial_state_hash"`
	InitialBudget     int64          `json:"initial_budget"`
	Kappa             int64          `json:"kappa"`
	Records           []recordVector `json:"records"`
	ExpectOk          bool           `json:"expect_ok"`
	ExpectKind        string         `json:"expect_kind,omitempty"`
	ExpectIndex       int            `json:"expect_index,omitempty"`
	ExpectFinalState  string         `json:"expect_final_state_hash,omitempty"`
	ExpectFinalBudget int64          `json:"expect_final_budget,omitempty"`
}

func hx(d khash.Digest) string { return hex.EncodeToString(d[:]) }

func stateAt(n int) khash.Digest {
	return khash.StateHash([]byte(fmt.Sprintf(`{"step":%d}`, n)))
}

func commitmentAt(n int) khash.Digest {
	return khash.ReceiptID([]byte(fmt.Sprintf(`{"candidate":%d}`, n)))
}

func buildS1() vector {
	s0 := record.GenesisStateHash()
	const scale = int64(q18.Scale)
	recs := make([]recordVector, 0, 3)
	prevState := s0
	for i := 0; i < 3; i++ {
		next := stateAt(i + 1)
		recs = append(recs, recordVector{
			ActionTag:          string(record.ActionStep),
			BudgetBefore:       100 * scale,
			BudgetAfter:        100 * scale,
			Kappa:              scale,
			RiskDelta:          -20 * scale,
			PrevStateHash:      hx(prevState),
			NextStateHash:      hx(next),
			ProposalCommitment: hx(commitmentAt(i)),
		})
		prevState = next
	}
	return vector{
		Name:             "S1-pure-descent",
		InitialStateHash: hx(s0),
		InitialBudget:    100 * scale,
		Kappa:            scale,
		Records:          recs,
		ExpectOk:         true,
		ExpectFinalState: hx(prevState),
		ExpectFinalBudget: 100 * scale,
	}
}

func buildS2() vector {
	s0 := record.GenesisStateHash()
	const scale = int64(q18.Scale)
	deltas := []int64{30 * scale, 20 * scale, -10 * scale}
	budget := 100 * scale
	prevState := s0
	recs := make([]recordVector, 0, len(deltas))
	for i, d := range deltas {
		before := budget
		after := before
		if d > 0 {
			after = before - d // kappa = 1.0 so required == d exactly
		}
		next := stateAt(i + 1)
		recs = append(recs, recordVector{
			ActionTag:          string(record.ActionStep),
			BudgetBefore:       before,
			BudgetAfter:        after,
			Kappa:              scale,
			RiskDelta:          d,
			PrevStateHash:      hx(prevState),
			NextStateHash:      hx(next),
			ProposalCommitment: hx(commitmentAt(100 + i)),
		})
		budget = after
		prevState = next
	}
	return vector{
		Name:             "S2-controlled-ascent",
		InitialStateHash: hx(s0),
		InitialBudget:    100 * scale,
		Kappa:            scale,
		Records:          recs,
		ExpectOk:         true,
		ExpectFinalState: hx(prevState),
		ExpectFinalBudget: 50 * scale,
	}
}

func buildS3() vector {
	s0 := record.GenesisStateHash()
	const scale = int64(q18.Scale)
	s1 := stateAt(1)
	s2 := stateAt(2)
	recs := []recordVector{
		{
			ActionTag:          string(record.ActionStep),
			BudgetBefore:       100 * scale,
			BudgetAfter:        40 * scale,
			Kappa:              scale,
			RiskDelta:          60 * scale,
			PrevStateHash:      hx(s0),
			NextStateHash:      hx(s1),
			ProposalCommitment: hx(commitmentAt(200)),
		},
		{
			ActionTag:          string(record.ActionStep),
			BudgetBefore:       40 * scale,
			BudgetAfter:        0,
			Kappa:              scale,
			RiskDelta:          50 * scale,
			PrevStateHash:      hx(s1),
			NextStateHash:      hx(s2),
			ProposalCommitment: hx(commitmentAt(201)),
		},
	}
	return vector{
		Name:             "S3-overbudget-reject",
		InitialStateHash: hx(s0),
		InitialBudget:    100 * scale,
		Kappa:            scale,
		Records:          recs,
		ExpectOk:         false,
		ExpectKind:       string(verifier.KindInsufficientBudget),
		ExpectIndex:      1,
	}
}

func buildS5() vector {
	// Chain tamper: flip a bit of record 2's next_state_hash, recompute
	// downstream chain digests honestly (i.e., keep record 3's
	// prev_state_hash as the *original* next_state_hash), which forces
	// StateDiscontinuity at index 3.
	s0 := record.GenesisStateHash()
	const scale = int64(q18.Scale)
	states := make([]khash.Digest, 6)
	states[0] = s0
	for i := 1; i <= 5; i++ {
		states[i] = stateAt(i)
	}
	tampered := states[3]
	tampered[0] ^= 0x01

	recs := make([]recordVector, 0, 5)
	for i := 0; i < 5; i++ {
		next := states[i+1]
		if i == 2 {
			next = tampered
		}
		recs = append(recs, recordVector{
			ActionTag:          string(record.ActionStep),
			BudgetBefore:       100 * scale,
			BudgetAfter:        100 * scale,
			Kappa:              scale,
			RiskDelta:          0,
			PrevStateHash:      hx(states[i]),
			NextStateHash:      hx(next),
			ProposalCommitment: hx(commitmentAt(300 + i)),
		})
	}
	return vector{
		Name:             "S5-chain-tamper",
		InitialStateHash: hx(s0),
		InitialBudget:    100 * scale,
		Kappa:            scale,
		Records:          recs,
		ExpectOk:         false,
		ExpectKind:       string(verifier.KindStateDiscontinuity),
		ExpectIndex:      3,
	}
}

// floatInjectionVector documents S4: a producer attempting a float
// risk_delta is rejected at canonicalization, before any hash runs. It
// carries no trajectory fields because the rejection is a property of
// the canonical-value algebra itself, independent of any one wire shape;
// this module's own test suite additionally replays the rejection
// through the full JSON request decode path (see
// TestConformanceS4FloatInjectionWire).
type floatInjectionVector struct {
	Name           string      `json:"name"`
	RawValue       interface{} `json:"raw_value"`
	ExpectRejected bool        `json:"expect_rejected"`
	ExpectErr      string      `json:"expect_err"`
}

func buildS4() floatInjectionVector {
	return floatInjectionVector{
		Name:           "S4-float-injection",
		RawValue:       map[string]interface{}{"risk_delta": 0.5},
		ExpectRejected: true,
		ExpectErr:      canon.ErrFloatInConsensusPath.Error(),
	}
}

type merkleInclusionVector struct {
	Name          string   `json:"name"`
	Leaves        []string `json:"leaves"`
	Root          string   `json:"root"`
	ProofIndex    int      `json:"proof_index"`
	Proof         []wire   `json:"proof"`
	ExpectHolds   bool     `json:"expect_holds"`
	TamperedIndex int      `json:"tampered_leaf_byte_index"`
}

type wire struct {
	Sibling string `json:"sibling"`
	Dir     string `json:"dir"`
}

func buildS6() merkleInclusionVector {
	leaves := make([][]byte, 5)
	hexLeaves := make([]string, 5)
	for i := range leaves {
		leaves[i] = []byte{'R', byte(i)}
		hexLeaves[i] = hex.EncodeToString(leaves[i])
	}
	root, err := merkle.Root(leaves)
	if err != nil {
		panic(err)
	}
	proof, err := merkle.Prove(leaves, 2)
	if err != nil {
		panic(err)
	}
	wireProof := make([]wire, len(proof))
	for i, p := range proof {
		wireProof[i] = wire{Sibling: hex.EncodeToString(p.Sibling[:]), Dir: string(p.Dir)}
	}
	return merkleInclusionVector{
		Name:        "S6-merkle-inclusion",
		Leaves:      hexLeaves,
		Root:        hex.EncodeToString(root[:]),
		ProofIndex:  2,
		Proof:       wireProof,
		ExpectHolds: true,
	}
}

func main() {
	outDir := flag.String("out", "testdata/vectors", "output directory for vector JSON files")
	flag.Parse()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "cohfixtures:", err)
		os.Exit(1)
	}

	vectors := []vector{buildS1(), buildS2(), buildS3(), buildS5()}
	for _, v := range vectors {
		writeVector(*outDir, v.Name, v)
	}

	s4 := buildS4()
	writeVector(*outDir, s4.Name, s4)

	s6 := buildS6()
	writeVector(*outDir, s6.Name, s6)
}

func writeVector(outDir, name string, v interface{}) {
	path := filepath.Join(outDir, name+".json")
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "cohfixtures:", err)
		os.Exit(1)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "cohfixtures:", err)
		os.Exit(1)
	}
	fmt.Println("wrote", path)
}
