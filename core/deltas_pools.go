package core

import "ledgercore/corerr"

func wrapPool(p *PoolState) *Entity { return &Entity{Kind: KindPool, Pool: p} }

// PoolRegistrationDelta creates or updates a pool's static parameters.
// Re-registering a currently-retiring pool clears RetiringEpoch but
// preserves BlocksMinted accrued this epoch, and takes effect immediately
// rather than waiting for the next epoch boundary.
type PoolRegistrationDelta struct {
	OperatorHash []byte
	Pledge       uint64
	Cost         uint64
	Margin       float64
	RewardAccount []byte
	Owners       [][]byte
	Relays       [][]byte

	prev    *PoolState
	wasNew  bool
}

func (d *PoolRegistrationDelta) Key() NsKey {
	return NsKey{Ns: NsPools, Key: EntityKey(d.OperatorHash)}
}

func (d *PoolRegistrationDelta) Apply(existing *Entity) (*Entity, error) {
	if existing != nil && existing.Pool != nil {
		prev := *existing.Pool
		d.prev = &prev
		p := existing.Pool
		p.Pledge, p.Cost, p.Margin = d.Pledge, d.Cost, d.Margin
		p.RewardAccount = d.RewardAccount
		p.Owners, p.Relays = d.Owners, d.Relays
		p.RetiringEpoch = nil // re-registration cancels any pending retirement
		return wrapPool(p), nil
	}
	d.wasNew = true
	p := &PoolState{
		OperatorHash:  append([]byte(nil), d.OperatorHash...),
		Pledge:        d.Pledge,
		Cost:          d.Cost,
		Margin:        d.Margin,
		RewardAccount: d.RewardAccount,
		Owners:        d.Owners,
		Relays:        d.Relays,
	}
	return wrapPool(p), nil
}

func (d *PoolRegistrationDelta) Undo(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Pool == nil {
		return nil, corerr.Invariant("pools", "undo registration on missing pool")
	}
	if d.wasNew {
		return nil, nil
	}
	return wrapPool(d.prev), nil
}

// PoolDeRegistrationDelta stamps a retirement epoch on a pool.
type PoolDeRegistrationDelta struct {
	OperatorHash  []byte
	RetiringEpoch Epoch
	prevRetiring  *Epoch
}

func (d *PoolDeRegistrationDelta) Key() NsKey {
	return NsKey{Ns: NsPools, Key: EntityKey(d.OperatorHash)}
}

func (d *PoolDeRegistrationDelta) Apply(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Pool == nil {
		return nil, corerr.Invariant("pools", "deregister missing pool")
	}
	p := existing.Pool
	d.prevRetiring = p.RetiringEpoch
	e := d.RetiringEpoch
	p.RetiringEpoch = &e
	return wrapPool(p), nil
}

func (d *PoolDeRegistrationDelta) Undo(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Pool == nil {
		return nil, corerr.Invariant("pools", "undo deregistration on missing pool")
	}
	p := existing.Pool
	p.RetiringEpoch = d.prevRetiring
	return wrapPool(p), nil
}

// MintedBlocksIncDelta increments a pool's minted-block counter for its
// current epoch window.
type MintedBlocksIncDelta struct {
	OperatorHash []byte
}

func (d *MintedBlocksIncDelta) Key() NsKey {
	return NsKey{Ns: NsPools, Key: EntityKey(d.OperatorHash)}
}

func (d *MintedBlocksIncDelta) Apply(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Pool == nil {
		return nil, corerr.Invariant("pools", "minted block on missing pool")
	}
	p := existing.Pool
	p.BlocksMinted++
	return wrapPool(p), nil
}

func (d *MintedBlocksIncDelta) Undo(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Pool == nil {
		return nil, corerr.Invariant("pools", "undo minted block on missing pool")
	}
	p := existing.Pool
	p.BlocksMinted--
	return wrapPool(p), nil
}

// PoolTransitionDelta rotates ActiveStake's MARK/SET/GO window at an epoch
// boundary, mirroring AccountTransitionDelta.
type PoolTransitionDelta struct {
	OperatorHash []byte
	NextEpoch    Epoch
	prev         EpochValue[uint64]
}

func (d *PoolTransitionDelta) Key() NsKey {
	return NsKey{Ns: NsPools, Key: EntityKey(d.OperatorHash)}
}

func (d *PoolTransitionDelta) Apply(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Pool == nil {
		return nil, corerr.Invariant("pools", "transition on missing pool")
	}
	p := existing.Pool
	d.prev = p.ActiveStake
	if err := p.ActiveStake.Transition(d.NextEpoch); err != nil {
		return nil, err
	}
	return wrapPool(p), nil
}

func (d *PoolTransitionDelta) Undo(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Pool == nil {
		return nil, corerr.Invariant("pools", "undo transition on missing pool")
	}
	p := existing.Pool
	p.ActiveStake = d.prev
	return wrapPool(p), nil
}

// PoolRetirementDelta is the sweep that removes a pool once the current
// epoch has reached its RetiringEpoch. Undo must restore the entire removed
// entity, not just a field.
type PoolRetirementDelta struct {
	OperatorHash []byte
	CurrentEpoch Epoch
	removed      *PoolState
	didRemove    bool
}

func (d *PoolRetirementDelta) Key() NsKey {
	return NsKey{Ns: NsPools, Key: EntityKey(d.OperatorHash)}
}

func (d *PoolRetirementDelta) Apply(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Pool == nil {
		return nil, corerr.Invariant("pools", "retire missing pool")
	}
	p := existing.Pool
	if p.RetiringEpoch == nil || d.CurrentEpoch < *p.RetiringEpoch {
		return wrapPool(p), nil // not yet due; no-op this sweep pass
	}
	prev := *p
	d.removed = &prev
	d.didRemove = true
	return nil, nil
}

func (d *PoolRetirementDelta) Undo(existing *Entity) (*Entity, error) {
	if !d.didRemove {
		if existing == nil || existing.Pool == nil {
			return nil, corerr.Invariant("pools", "undo no-op retirement on missing pool")
		}
		return existing, nil
	}
	return wrapPool(d.removed), nil
}

// PoolDelegatorDropDelta is the sweep that clears an account's delegation
// when the target pool is swept away by PoolRetirementDelta.
type PoolDelegatorDropDelta struct {
	Credential []byte
	prevPoolID []byte
}

func (d *PoolDelegatorDropDelta) Key() NsKey {
	return NsKey{Ns: NsAccounts, Key: EntityKey(d.Credential)}
}

func (d *PoolDelegatorDropDelta) Apply(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Account == nil {
		return nil, corerr.Invariant("accounts", "drop delegation on missing account")
	}
	a := existing.Account
	d.prevPoolID = a.PoolID
	a.PoolID = nil
	return wrapAccount(a), nil
}

func (d *PoolDelegatorDropDelta) Undo(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Account == nil {
		return nil, corerr.Invariant("accounts", "undo delegation drop on missing account")
	}
	a := existing.Account
	a.PoolID = d.prevPoolID
	return wrapAccount(a), nil
}

// AssignPoolRewardsDelta is the Rupd-time sweep crediting a pool's leader
// reward; it must run before any AssignDelegatorRewardsDelta for the same
// pool within the same Rupd unit.
type AssignPoolRewardsDelta struct {
	OperatorHash []byte
	Amount       uint64
	preReward    uint64
}

func (d *AssignPoolRewardsDelta) Key() NsKey {
	return NsKey{Ns: NsPools, Key: EntityKey(d.OperatorHash)}
}

func (d *AssignPoolRewardsDelta) Apply(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Pool == nil {
		return nil, corerr.Invariant("pools", "reward assignment on missing pool")
	}
	p := existing.Pool
	d.preReward = p.RewardPot
	p.RewardPot += d.Amount
	return wrapPool(p), nil
}

func (d *AssignPoolRewardsDelta) Undo(existing *Entity) (*Entity, error) {
	if existing == nil || existing.Pool == nil {
		return nil, corerr.Invariant("pools", "undo reward assignment on missing pool")
	}
	p := existing.Pool
	p.RewardPot = d.preReward
	return wrapPool(p), nil
}

func stakeLogKey(operatorHash []byte, epoch Epoch) EntityKey {
	k := make(EntityKey, 0, len(operatorHash)+8)
	k = append(k, operatorHash...)
	k = append(k, byte(epoch>>56), byte(epoch>>48), byte(epoch>>40), byte(epoch>>32),
		byte(epoch>>24), byte(epoch>>16), byte(epoch>>8), byte(epoch))
	return k
}

func wrapStakeLog(s *StakeLog) *Entity { return &Entity{Kind: KindStakeLog, StakeLog: s} }

// StakeLogAppendDelta appends the one-time `stakes` row recording a pool's
// leader reward credit for one epoch. Append-only: Apply errors if a row
// already exists at this (pool, epoch) key.
type StakeLogAppendDelta struct {
	OperatorHash []byte
	Epoch        Epoch
	Amount       uint64
}

func (d *StakeLogAppendDelta) Key() NsKey {
	return NsKey{Ns: NsStakes, Key: stakeLogKey(d.OperatorHash, d.Epoch)}
}

func (d *StakeLogAppendDelta) Apply(existing *Entity) (*Entity, error) {
	if existing != nil && existing.StakeLog != nil {
		return nil, corerr.Invariant("stakes", "duplicate stake log row")
	}
	return wrapStakeLog(&StakeLog{
		OperatorHash: append([]byte(nil), d.OperatorHash...),
		Epoch:        d.Epoch,
		Amount:       d.Amount,
	}), nil
}

func (d *StakeLogAppendDelta) Undo(existing *Entity) (*Entity, error) {
	if existing == nil || existing.StakeLog == nil {
		return nil, corerr.Invariant("stakes", "undo append on missing stake log row")
	}
	return nil, nil
}

// NewAssignPoolRewardsSweep builds the paired deltas a Rupd sweep must push
// together whenever it credits a pool's leader reward: the pool's reward
// pot, and the matching append-only stake-log row for this epoch.
func NewAssignPoolRewardsSweep(operatorHash []byte, epoch Epoch, amount uint64) []Delta {
	return []Delta{
		&AssignPoolRewardsDelta{OperatorHash: operatorHash, Amount: amount},
		&StakeLogAppendDelta{OperatorHash: operatorHash, Epoch: epoch, Amount: amount},
	}
}
