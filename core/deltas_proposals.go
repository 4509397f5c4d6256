package core

import "ledgercore/corerr"

func proposalKey(idx uint32, txHash TxHash) EntityKey {
	k := make(EntityKey, 0, 4+len(txHash))
	k = append(k, byte(idx>>24), byte(idx>>16), byte(idx>>8), byte(idx))
	k = append(k, txHash[:]...)
	return k
}

func wrapProposal(p *Proposal) *Entity { return &Entity{Kind: KindProposal, Proposal: p} }

// NewProposalDelta creates a governance-action proposal entity at
// submission. Proposals are never re-created once seen: Apply errors if the
// key already exists.
type NewProposalDelta struct {
	Index          uint32
	TxHash         TxHash
	SubmittedEpoch Epoch
}

func (d *NewProposalDelta) Key() NsKey {
	return NsKey{Ns: NsProposals, Key: proposalKey(d.Index, d.TxHash)}
}

func (d *NewProposalDelta) Apply(existing *Entity) (*Entity, error) {
	if existing != nil && existing.Proposal != nil {
		return nil, corerr.Invariant("proposals", "duplicate proposal submission")
	}
	p := &Proposal{
		Index:          d.Index,
		TxHash:         d.TxHash,
		SubmittedEpoch: d.SubmittedEpoch,
		Status:         ProposalOpen,
	}
	return wrapProposal(p), nil
}

func (d *NewProposalDelta) Undo(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Proposal == nil {
		return nil, corerr.Invariant("proposals", "undo submission on missing proposal")
	}
	return nil, nil
}

// ProposalEnactmentDelta stamps the terminal status a proposal reaches when
// its governance vote resolves: ratified then enacted, or dropped outright.
type ProposalEnactmentDelta struct {
	Index        uint32
	TxHash       TxHash
	Status       ProposalStatus
	ResolvedEpoch Epoch

	prevStatus   ProposalStatus
	prevResolved *Epoch
}

func (d *ProposalEnactmentDelta) Key() NsKey {
	return NsKey{Ns: NsProposals, Key: proposalKey(d.Index, d.TxHash)}
}

func (d *ProposalEnactmentDelta) Apply(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Proposal == nil {
		return nil, corerr.Invariant("proposals", "enactment on missing proposal")
	}
	p := existing.Proposal
	d.prevStatus = p.Status
	d.prevResolved = p.ResolvedEpoch
	p.Status = d.Status
	e := d.ResolvedEpoch
	p.ResolvedEpoch = &e
	return wrapProposal(p), nil
}

func (d *ProposalEnactmentDelta) Undo(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Proposal == nil {
		return nil, corerr.Invariant("proposals", "undo enactment on missing proposal")
	}
	p := existing.Proposal
	p.Status = d.prevStatus
	p.ResolvedEpoch = d.prevResolved
	return wrapProposal(p), nil
}

// ProposalExpirationDelta is the sweep that stamps ProposalExpired on any
// still-open proposal once its lifetime (tracked by the caller against the
// governance-action-lifetime protocol parameter) has elapsed.
type ProposalExpirationDelta struct {
	Index        uint32
	TxHash       TxHash
	CurrentEpoch Epoch

	touched bool
}

func (d *ProposalExpirationDelta) Key() NsKey {
	return NsKey{Ns: NsProposals, Key: proposalKey(d.Index, d.TxHash)}
}

func (d *ProposalExpirationDelta) Apply(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Proposal == nil {
		return nil, corerr.Invariant("proposals", "expire missing proposal")
	}
	p := existing.Proposal
	if p.Status != ProposalOpen {
		return wrapProposal(p), nil
	}
	d.touched = true
	p.Status = ProposalExpired
	e := d.CurrentEpoch
	p.ResolvedEpoch = &e
	return wrapProposal(p), nil
}

func (d *ProposalExpirationDelta) Undo(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Proposal == nil {
		return nil, corerr.Invariant("proposals", "undo expiration on missing proposal")
	}
	if !d.touched {
		return existing, nil
	}
	p := existing.Proposal
	p.Status = ProposalOpen
	p.ResolvedEpoch = nil
	return wrapProposal(p), nil
}
