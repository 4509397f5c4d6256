package core

import "testing"

func TestRewardLogAppendDeltaFirstAppend(t *testing.T) {
	d := &RewardLogAppendDelta{Credential: []byte("cred"), Epoch: 9, Amount: 500}

	applied, err := d.Apply(nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if applied.RewardLog == nil || applied.RewardLog.Amount != 500 || applied.RewardLog.Epoch != 9 {
		t.Fatalf("unexpected reward log row: %+v", applied.RewardLog)
	}
}

func TestRewardLogAppendDeltaRejectsDuplicate(t *testing.T) {
	seed := &Entity{Kind: KindRewardLog, RewardLog: &RewardLog{Credential: []byte("cred"), Epoch: 9, Amount: 500}}
	d := &RewardLogAppendDelta{Credential: []byte("cred"), Epoch: 9, Amount: 500}

	if _, err := d.Apply(seed); err == nil {
		t.Fatalf("expected duplicate append to be rejected")
	}
}

func TestRewardLogAppendDeltaUndoRemovesRow(t *testing.T) {
	d := &RewardLogAppendDelta{Credential: []byte("cred"), Epoch: 9, Amount: 500}
	applied, err := d.Apply(nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	undone, err := d.Undo(applied)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if undone != nil {
		t.Fatalf("expected undo of an append to remove the row, got %+v", undone)
	}
}

func TestRewardLogAppendDeltaUndoOnMissingRowRejected(t *testing.T) {
	d := &RewardLogAppendDelta{Credential: []byte("cred"), Epoch: 9, Amount: 500}
	if _, err := d.Undo(nil); err == nil {
		t.Fatalf("expected undo on a missing reward log row to be rejected")
	}
}

func TestNewAssignDelegatorRewardsSweepReturnsPairedDeltas(t *testing.T) {
	deltas := NewAssignDelegatorRewardsSweep([]byte("cred"), 9, 500)
	if len(deltas) != 2 {
		t.Fatalf("len(deltas) = %d, want 2", len(deltas))
	}
	if _, ok := deltas[0].(*AssignDelegatorRewardsDelta); !ok {
		t.Fatalf("deltas[0] = %T, want *AssignDelegatorRewardsDelta", deltas[0])
	}
	if _, ok := deltas[1].(*RewardLogAppendDelta); !ok {
		t.Fatalf("deltas[1] = %T, want *RewardLogAppendDelta", deltas[1])
	}
	if deltas[1].Key().Ns != NsRewards {
		t.Fatalf("deltas[1] namespace = %v, want %v", deltas[1].Key().Ns, NsRewards)
	}
}

func TestStakeLogAppendDeltaFirstAppend(t *testing.T) {
	d := &StakeLogAppendDelta{OperatorHash: []byte("op"), Epoch: 9, Amount: 700}

	applied, err := d.Apply(nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if applied.StakeLog == nil || applied.StakeLog.Amount != 700 || applied.StakeLog.Epoch != 9 {
		t.Fatalf("unexpected stake log row: %+v", applied.StakeLog)
	}
}

func TestStakeLogAppendDeltaRejectsDuplicate(t *testing.T) {
	seed := &Entity{Kind: KindStakeLog, StakeLog: &StakeLog{OperatorHash: []byte("op"), Epoch: 9, Amount: 700}}
	d := &StakeLogAppendDelta{OperatorHash: []byte("op"), Epoch: 9, Amount: 700}

	if _, err := d.Apply(seed); err == nil {
		t.Fatalf("expected duplicate append to be rejected")
	}
}

func TestStakeLogAppendDeltaUndoRemovesRow(t *testing.T) {
	d := &StakeLogAppendDelta{OperatorHash: []byte("op"), Epoch: 9, Amount: 700}
	applied, err := d.Apply(nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	undone, err := d.Undo(applied)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if undone != nil {
		t.Fatalf("expected undo of an append to remove the row, got %+v", undone)
	}
}

func TestStakeLogAppendDeltaUndoOnMissingRowRejected(t *testing.T) {
	d := &StakeLogAppendDelta{OperatorHash: []byte("op"), Epoch: 9, Amount: 700}
	if _, err := d.Undo(nil); err == nil {
		t.Fatalf("expected undo on a missing stake log row to be rejected")
	}
}

func TestNewAssignPoolRewardsSweepReturnsPairedDeltas(t *testing.T) {
	deltas := NewAssignPoolRewardsSweep([]byte("op"), 9, 700)
	if len(deltas) != 2 {
		t.Fatalf("len(deltas) = %d, want 2", len(deltas))
	}
	if _, ok := deltas[0].(*AssignPoolRewardsDelta); !ok {
		t.Fatalf("deltas[0] = %T, want *AssignPoolRewardsDelta", deltas[0])
	}
	if _, ok := deltas[1].(*StakeLogAppendDelta); !ok {
		t.Fatalf("deltas[1] = %T, want *StakeLogAppendDelta", deltas[1])
	}
	if deltas[1].Key().Ns != NsStakes {
		t.Fatalf("deltas[1] namespace = %v, want %v", deltas[1].Key().Ns, NsStakes)
	}
}
