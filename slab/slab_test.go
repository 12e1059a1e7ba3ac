package slab

import (
	"errors"
	"testing"

	"github.com/noeticanlabs/cnsc-haai-sub000/khash"
	"github.com/noeticanlabs/cnsc-haai-sub000/merkle"
	"github.com/noeticanlabs/cnsc-haai-sub000/q18"
)

func members(n int) []khash.Digest {
	out := make([]khash.Digest, n)
	for i := range out {
		out[i] = khash.ReceiptID([]byte{byte(i)})
	}
	return out
}

func TestSummarizeAndVerifyRoundTrip(t *testing.T) {
	ids := members(4)
	first := khash.ChainDigest(khash.GenesisChainDigest(), ids[0])
	last := khash.ChainDigest(first, ids[3])
	finalState := khash.StateHash([]byte("state"))
	parent := khash.GenesisChainDigest()
	finalBudget := q18.Q(50 * q18.Scale)

	declared, err := Summarize(ids, first, last, finalBudget, finalState, parent)
	if err != nil {
		t.Fatal(err)
	}
	if err := Verify(declared, ids, first, last, finalBudget, finalState, parent); err != nil {
		t.Fatalf("Verify(matching) = %v, want nil", err)
	}
}

func TestVerifyRejectsWrongLength(t *testing.T) {
	ids := members(4)
	first := khash.ChainDigest(khash.GenesisChainDigest(), ids[0])
	last := khash.ChainDigest(first, ids[3])
	declared, err := Summarize(ids, first, last, 0, khash.Digest{}, khash.Digest{})
	if err != nil {
		t.Fatal(err)
	}
	if err := Verify(declared, ids[:3], first, last, 0, khash.Digest{}, khash.Digest{}); !errors.Is(err, ErrBadSlab) {
		t.Fatalf("Verify(wrong length) = %v, want ErrBadSlab", err)
	}
}

func TestVerifyRejectsTamperedRoot(t *testing.T) {
	ids := members(4)
	first := khash.ChainDigest(khash.GenesisChainDigest(), ids[0])
	last := khash.ChainDigest(first, ids[3])
	declared, err := Summarize(ids, first, last, 0, khash.Digest{}, khash.Digest{})
	if err != nil {
		t.Fatal(err)
	}
	declared.Root[0] ^= 0xff
	if err := Verify(declared, ids, first, last, 0, khash.Digest{}, khash.Digest{}); !errors.Is(err, ErrBadSlab) {
		t.Fatalf("Verify(tampered root) = %v, want ErrBadSlab", err)
	}
}

func TestVerifyRejectsMismatchedMembers(t *testing.T) {
	ids := members(4)
	first := khash.ChainDigest(khash.GenesisChainDigest(), ids[0])
	last := khash.ChainDigest(first, ids[3])
	declared, err := Summarize(ids, first, last, 0, khash.Digest{}, khash.Digest{})
	if err != nil {
		t.Fatal(err)
	}
	other := members(4)
	other[2] = khash.ReceiptID([]byte("not a member"))
	if err := Verify(declared, other, first, last, 0, khash.Digest{}, khash.Digest{}); !errors.Is(err, ErrBadSlab) {
		t.Fatalf("Verify(different members) = %v, want ErrBadSlab", err)
	}
}

func TestBindingChangesWithEachField(t *testing.T) {
	base := SideTable{
		Root:               khash.Digest{1},
		FirstChainDigest:   khash.Digest{2},
		LastChainDigest:    khash.Digest{3},
		FinalBudgetAfter:   100,
		FinalNextStateHash: khash.Digest{4},
		ParentSlabRoot:     khash.Digest{5},
		DeclaredLength:     3,
	}
	b0 := base.Binding()

	withRoot := base
	withRoot.Root[0] ^= 0xff
	if withRoot.Binding() == b0 {
		t.Fatal("Binding insensitive to Root")
	}

	withFirst := base
	withFirst.FirstChainDigest[0] ^= 0xff
	if withFirst.Binding() == b0 {
		t.Fatal("Binding insensitive to FirstChainDigest")
	}

	withLast := base
	withLast.LastChainDigest[0] ^= 0xff
	if withLast.Binding() == b0 {
		t.Fatal("Binding insensitive to LastChainDigest")
	}

	withBudget := base
	withBudget.FinalBudgetAfter++
	if withBudget.Binding() == b0 {
		t.Fatal("Binding insensitive to FinalBudgetAfter")
	}

	withState := base
	withState.FinalNextStateHash[0] ^= 0xff
	if withState.Binding() == b0 {
		t.Fatal("Binding insensitive to FinalNextStateHash")
	}

	withParent := base
	withParent.ParentSlabRoot[0] ^= 0xff
	if withParent.Binding() == b0 {
		t.Fatal("Binding insensitive to ParentSlabRoot")
	}

	withLen := base
	withLen.DeclaredLength++
	if withLen.Binding() == b0 {
		t.Fatal("Binding insensitive to DeclaredLength")
	}
}

func TestVerifyInclusion(t *testing.T) {
	ids := members(5)
	preimages := make([][]byte, len(ids))
	for i, id := range ids {
		cp := id
		preimages[i] = cp[:]
	}
	root, err := merkle.Root(preimages)
	if err != nil {
		t.Fatal(err)
	}
	seal := SideTable{Root: root}

	proof, err := merkle.Prove(preimages, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifyInclusion(seal, preimages[2], proof); err != nil {
		t.Fatalf("VerifyInclusion(valid) = %v, want nil", err)
	}

	proof[0].Sibling[0] ^= 0xff
	if err := VerifyInclusion(seal, preimages[2], proof); err == nil {
		t.Fatal("VerifyInclusion(tampered proof) = nil, want error")
	}
}
