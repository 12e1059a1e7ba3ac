// Command cohctl is a JSON-stdin/stdout request/response CLI over the
// consensus kernel, grounded on the teacher's rubin-consensus-cli
// op-switch shape: decode one Request from stdin, dispatch on Op,
// encode one Response to stdout.
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/noeticanlabs/cnsc-haai-sub000/canon"
	"github.com/noeticanlabs/cnsc-haai-sub000/internal/wire"
	"github.com/noeticanlabs/cnsc-haai-sub000/khash"
	"github.com/noeticanlabs/cnsc-haai-sub000/merkle"
	"github.com/noeticanlabs/cnsc-haai-sub000/q18"
	"github.com/noeticanlabs/cnsc-haai-sub000/slab"
	"github.com/noeticanlabs/cnsc-haai-sub000/verifier"
)

// Request is the single JSON object cohctl reads from stdin.
type Request struct {
	Op string `json:"op"`

	// canonicalize
	Value json.RawMessage `json:"value,omitempty"`

	// verify-trajectory
	InitialStateHash string            `json:"initial_state_hash,omitempty"`
	InitialBudget    int64             `json:"initial_budget,omitempty"`
	Kappa            int64             `json:"kappa,omitempty"`
	Genesis          string            `json:"genesis_chain_digest,omitempty"`
	SlabSize         int               `json:"slab_size,omitempty"`
	Records          []wire.RecordJSON `json:"records,omitempty"`
	Slabs            []*wire.SlabJSON  `json:"slabs,omitempty"`

	// prove-inclusion
	ReceiptIDs   []string             `json:"receipt_ids,omitempty"`
	LeafIndex    int                  `json:"leaf_index,omitempty"`
	Proof        []wire.ProofStepJSON `json:"proof,omitempty"`
	Root         string               `json:"root,omitempty"`
	LeafPreimage string               `json:"leaf_preimage,omitempty"`
}

// Response is the single JSON object cohctl writes to stdout.
type Response struct {
	Ok               bool                 `json:"ok"`
	Err              string               `json:"err,omitempty"`
	Index            int                  `json:"index,omitempty"`
	Detail           string               `json:"detail,omitempty"`
	CanonicalHex     string               `json:"canonical_hex,omitempty"`
	RootHex          string               `json:"root,omitempty"`
	Proof            []wire.ProofStepJSON `json:"proof,omitempty"`
	FinalStateHash   string               `json:"final_state_hash,omitempty"`
	FinalBudget      int64                `json:"final_budget,omitempty"`
	FinalChainDigest string               `json:"final_chain_digest,omitempty"`
}

func writeResp(w io.Writer, resp Response) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(resp)
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResp(os.Stdout, Response{Ok: false, Err: fmt.Sprintf("bad request: %v", err)})
		return
	}

	switch req.Op {
	case "canonicalize":
		handleCanonicalize(req)
	case "verify-trajectory":
		handleVerifyTrajectory(req)
	case "prove-inclusion":
		handleProveInclusion(req)
	case "merkle-root":
		handleMerkleRoot(req)
	default:
		writeResp(os.Stdout, Response{Ok: false, Err: fmt.Sprintf("unknown op %q", req.Op)})
	}
}

func handleCanonicalize(req Request) {
	var generic interface{}
	dec := json.NewDecoder(bytes.NewReader(req.Value))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		writeResp(os.Stdout, Response{Ok: false, Err: "bad value json"})
		return
	}
	v, err := canon.FromAny(generic)
	if err != nil {
		writeResp(os.Stdout, Response{Ok: false, Err: err.Error()})
		return
	}
	b, err := canon.Bytes(v)
	if err != nil {
		writeResp(os.Stdout, Response{Ok: false, Err: err.Error()})
		return
	}
	writeResp(os.Stdout, Response{Ok: true, CanonicalHex: hex.EncodeToString(b)})
}

func handleVerifyTrajectory(req Request) {
	initState, err := wire.ParseDigest(req.InitialStateHash)
	if err != nil {
		writeResp(os.Stdout, Response{Ok: false, Err: err.Error()})
		return
	}
	genesis := khash.GenesisChainDigest()
	if req.Genesis != "" {
		genesis, err = wire.ParseChainDigest(req.Genesis)
		if err != nil {
			if errors.Is(err, wire.ErrBadPrevDigest) {
				writeResp(os.Stdout, Response{Ok: false, Err: string(verifier.KindBadPrevDigest), Detail: err.Error()})
				return
			}
			writeResp(os.Stdout, Response{Ok: false, Err: err.Error()})
			return
		}
	}
	slabSize := req.SlabSize
	if slabSize <= 0 {
		slabSize = 1024
	}

	params := verifier.Params{
		InitialStateHash: initState,
		InitialBudget:    q18.Q(req.InitialBudget),
		Kappa:            q18.Q(req.Kappa),
		Genesis:          genesis,
		SlabSize:         slabSize,
	}

	recs := make([]verifier.RecordInput, 0, len(req.Records))
	for i, rj := range req.Records {
		core, err := wire.Record(rj)
		if err != nil {
			if errors.Is(err, canon.ErrFloatInConsensusPath) {
				writeResp(os.Stdout, Response{Ok: false, Err: string(verifier.KindFloatInConsensusPath), Index: i, Detail: err.Error()})
				return
			}
			writeResp(os.Stdout, Response{Ok: false, Err: err.Error(), Index: i})
			return
		}
		var sideTable *slab.SideTable
		if i < len(req.Slabs) {
			sideTable, err = wire.Slab(req.Slabs[i])
			if err != nil {
				if errors.Is(err, wire.ErrBadPrevDigest) {
					writeResp(os.Stdout, Response{Ok: false, Err: string(verifier.KindBadPrevDigest), Index: i, Detail: err.Error()})
					return
				}
				writeResp(os.Stdout, Response{Ok: false, Err: err.Error(), Index: i})
				return
			}
		}
		recs = append(recs, verifier.RecordInput{Core: core, Slab: sideTable})
	}

	out, err := verifier.Verify(params, verifier.NewSliceSource(recs))
	if err != nil {
		if re, ok := err.(*verifier.RejectError); ok {
			writeResp(os.Stdout, Response{Ok: false, Err: string(re.Kind), Index: re.Index, Detail: re.Detail})
			return
		}
		writeResp(os.Stdout, Response{Ok: false, Err: err.Error()})
		return
	}
	writeResp(os.Stdout, Response{
		Ok:               true,
		FinalStateHash:   hex.EncodeToString(out.FinalStateHash[:]),
		FinalBudget:      int64(out.FinalBudget),
		FinalChainDigest: hex.EncodeToString(out.FinalChainDigest[:]),
	})
}

func handleMerkleRoot(req Request) {
	preimages := make([][]byte, 0, len(req.ReceiptIDs))
	for _, h := range req.ReceiptIDs {
		b, err := hex.DecodeString(h)
		if err != nil || len(b) != 32 {
			writeResp(os.Stdout, Response{Ok: false, Err: "bad receipt id hex"})
			return
		}
		preimages = append(preimages, b)
	}
	root, err := merkle.Root(preimages)
	if err != nil {
		writeResp(os.Stdout, Response{Ok: false, Err: err.Error()})
		return
	}
	writeResp(os.Stdout, Response{Ok: true, RootHex: hex.EncodeToString(root[:])})
}

func handleProveInclusion(req Request) {
	preimages := make([][]byte, 0, len(req.ReceiptIDs))
	for _, h := range req.ReceiptIDs {
		b, err := hex.DecodeString(h)
		if err != nil || len(b) != 32 {
			writeResp(os.Stdout, Response{Ok: false, Err: "bad receipt id hex"})
			return
		}
		preimages = append(preimages, b)
	}

	if req.Proof != nil {
		root, err := wire.ParseDigest(req.Root)
		if err != nil {
			writeResp(os.Stdout, Response{Ok: false, Err: err.Error()})
			return
		}
		leaf, err := hex.DecodeString(req.LeafPreimage)
		if err != nil {
			writeResp(os.Stdout, Response{Ok: false, Err: "bad leaf_preimage hex"})
			return
		}
		steps, err := wire.ProofSteps(req.Proof)
		if err != nil {
			writeResp(os.Stdout, Response{Ok: false, Err: err.Error()})
			return
		}
		if err := merkle.Verify(leaf, steps, root); err != nil {
			writeResp(os.Stdout, Response{Ok: false, Err: err.Error()})
			return
		}
		writeResp(os.Stdout, Response{Ok: true})
		return
	}

	// Generate mode: build the proof for req.LeafIndex.
	steps, err := merkle.Prove(preimages, req.LeafIndex)
	if err != nil {
		writeResp(os.Stdout, Response{Ok: false, Err: err.Error()})
		return
	}
	root, err := merkle.Root(preimages)
	if err != nil {
		writeResp(os.Stdout, Response{Ok: false, Err: err.Error()})
		return
	}
	out := make([]wire.ProofStepJSON, len(steps))
	for i, s := range steps {
		out[i] = wire.ProofStepJSON{Sibling: hex.EncodeToString(s.Sibling[:]), Dir: string(s.Dir)}
	}
	writeResp(os.Stdout, Response{Ok: true, Proof: out, RootHex: hex.EncodeToString(root[:])})
}
