package core

import "testing"

func entityProposal(e *Entity) *Proposal {
	if e == nil {
		return nil
	}
	return e.Proposal
}

func proposalTxHash(b byte) TxHash {
	var h TxHash
	h[0] = b
	return h
}

func TestNewProposalDeltaCreatesThenUndoRemoves(t *testing.T) {
	hash := proposalTxHash(1)
	d := &NewProposalDelta{Index: 0, TxHash: hash, SubmittedEpoch: 4}

	applied, err := d.Apply(nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	p := entityProposal(applied)
	if p.Status != ProposalOpen || p.SubmittedEpoch != 4 {
		t.Fatalf("unexpected state: %+v", p)
	}

	undone, err := d.Undo(applied)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if undone != nil {
		t.Fatalf("expected undo of a submission to remove the proposal, got %+v", undone)
	}
}

func TestNewProposalDeltaRejectsDuplicateSubmission(t *testing.T) {
	hash := proposalTxHash(2)
	seed := &Entity{Kind: KindProposal, Proposal: &Proposal{Index: 0, TxHash: hash, Status: ProposalOpen}}

	d := &NewProposalDelta{Index: 0, TxHash: hash, SubmittedEpoch: 1}
	if _, err := d.Apply(seed); err == nil {
		t.Fatalf("expected an error on duplicate proposal submission")
	}
}

func TestProposalEnactmentDeltaRoundTrip(t *testing.T) {
	hash := proposalTxHash(3)
	seed := &Entity{Kind: KindProposal, Proposal: &Proposal{Index: 1, TxHash: hash, Status: ProposalOpen}}

	d := &ProposalEnactmentDelta{Index: 1, TxHash: hash, Status: ProposalEnacted, ResolvedEpoch: 10}
	applied, err := d.Apply(seed)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	p := entityProposal(applied)
	if p.Status != ProposalEnacted || p.ResolvedEpoch == nil || *p.ResolvedEpoch != 10 {
		t.Fatalf("unexpected state: %+v", p)
	}

	undone, err := d.Undo(applied)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	up := entityProposal(undone)
	if up.Status != ProposalOpen || up.ResolvedEpoch != nil {
		t.Fatalf("expected undo to restore the open, unresolved state, got %+v", up)
	}
}

func TestProposalExpirationDeltaNoOpOnResolvedProposal(t *testing.T) {
	hash := proposalTxHash(4)
	resolved := Epoch(5)
	seed := &Entity{Kind: KindProposal, Proposal: &Proposal{Index: 2, TxHash: hash, Status: ProposalEnacted, ResolvedEpoch: &resolved}}

	d := &ProposalExpirationDelta{Index: 2, TxHash: hash, CurrentEpoch: 100}
	applied, err := d.Apply(seed)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if entityProposal(applied).Status != ProposalEnacted {
		t.Fatalf("expected an already-resolved proposal to be left untouched, got %+v", entityProposal(applied))
	}
}

func TestProposalExpirationDeltaExpiresThenUndoRestores(t *testing.T) {
	hash := proposalTxHash(5)
	seed := &Entity{Kind: KindProposal, Proposal: &Proposal{Index: 3, TxHash: hash, Status: ProposalOpen}}

	d := &ProposalExpirationDelta{Index: 3, TxHash: hash, CurrentEpoch: 50}
	applied, err := d.Apply(seed)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	p := entityProposal(applied)
	if p.Status != ProposalExpired || p.ResolvedEpoch == nil || *p.ResolvedEpoch != 50 {
		t.Fatalf("unexpected state: %+v", p)
	}

	undone, err := d.Undo(applied)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	up := entityProposal(undone)
	if up.Status != ProposalOpen || up.ResolvedEpoch != nil {
		t.Fatalf("expected undo to restore the open, unresolved state, got %+v", up)
	}
}
