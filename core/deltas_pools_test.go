package core

import "testing"

func entityPool(e *Entity) *PoolState {
	if e == nil {
		return nil
	}
	return e.Pool
}

func TestPoolRegistrationDeltaCreatesThenUndoRemoves(t *testing.T) {
	d := &PoolRegistrationDelta{OperatorHash: []byte("op-1"), Pledge: 100, Cost: 5}

	applied, err := d.Apply(nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if entityPool(applied).Pledge != 100 {
		t.Fatalf("Pledge = %d, want 100", entityPool(applied).Pledge)
	}

	undone, err := d.Undo(applied)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if undone != nil {
		t.Fatalf("expected undo of a first-sighting registration to remove the pool, got %+v", undone)
	}
}

func TestPoolRegistrationDeltaReRegistrationClearsRetirement(t *testing.T) {
	epoch := Epoch(10)
	seed := &Entity{Kind: KindPool, Pool: &PoolState{OperatorHash: []byte("op-2"), Pledge: 1, RetiringEpoch: &epoch}}

	d := &PoolRegistrationDelta{OperatorHash: []byte("op-2"), Pledge: 50}
	applied, err := d.Apply(seed)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if entityPool(applied).RetiringEpoch != nil {
		t.Fatalf("expected re-registration to clear RetiringEpoch")
	}

	undone, err := d.Undo(applied)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if entityPool(undone).RetiringEpoch == nil || *entityPool(undone).RetiringEpoch != epoch {
		t.Fatalf("expected undo to restore RetiringEpoch, got %+v", entityPool(undone))
	}
}

func TestPoolRetirementDeltaNoOpBeforeDue(t *testing.T) {
	epoch := Epoch(20)
	seed := &Entity{Kind: KindPool, Pool: &PoolState{OperatorHash: []byte("op-3"), RetiringEpoch: &epoch}}

	d := &PoolRetirementDelta{OperatorHash: []byte("op-3"), CurrentEpoch: 10}
	applied, err := d.Apply(seed)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if applied == nil || applied.Pool == nil {
		t.Fatalf("expected the pool to survive a not-yet-due retirement sweep")
	}
}

func TestPoolRetirementDeltaRemovesWhenDueThenUndoRestores(t *testing.T) {
	epoch := Epoch(5)
	seed := &Entity{Kind: KindPool, Pool: &PoolState{OperatorHash: []byte("op-4"), Pledge: 77, RetiringEpoch: &epoch}}

	d := &PoolRetirementDelta{OperatorHash: []byte("op-4"), CurrentEpoch: 5}
	applied, err := d.Apply(seed)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if applied != nil {
		t.Fatalf("expected the pool to be removed once retirement is due, got %+v", applied)
	}

	undone, err := d.Undo(applied)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if entityPool(undone).Pledge != 77 {
		t.Fatalf("expected undo to restore the removed pool, got %+v", entityPool(undone))
	}
}

func TestMintedBlocksIncDeltaRoundTrip(t *testing.T) {
	seed := &Entity{Kind: KindPool, Pool: &PoolState{OperatorHash: []byte("op-5"), BlocksMinted: 4}}

	d := &MintedBlocksIncDelta{OperatorHash: []byte("op-5")}
	applied, err := d.Apply(seed)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if entityPool(applied).BlocksMinted != 5 {
		t.Fatalf("BlocksMinted = %d, want 5", entityPool(applied).BlocksMinted)
	}

	undone, err := d.Undo(applied)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if entityPool(undone).BlocksMinted != 4 {
		t.Fatalf("after undo BlocksMinted = %d, want 4", entityPool(undone).BlocksMinted)
	}
}
