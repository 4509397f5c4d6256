package core

import "testing"

func TestEncodeDecodeEntityRoundTrip(t *testing.T) {
	retiring := Epoch(12)
	resolved := Epoch(3)

	cases := []struct {
		name string
		ns   Namespace
		e    Entity
	}{
		{"account", NsAccounts, Entity{Kind: KindAccount, Account: &AccountState{
			Credential: []byte("cred"), ControlledAmount: 500, PoolID: []byte("pool"), Registered: true,
		}}},
		{"pool", NsPools, Entity{Kind: KindPool, Pool: &PoolState{
			OperatorHash: []byte("op"), Pledge: 10, Margin: 0.05, RetiringEpoch: &retiring,
		}}},
		{"asset", NsAssets, Entity{Kind: KindAsset, Asset: &AssetState{
			PolicyID: []byte("policy"), AssetName: []byte("name"), Quantity: -7,
		}}},
		{"epoch", NsEpochs, Entity{Kind: KindEpoch, Epoch: &EpochState{
			Epoch: 4, Version: EpochSet, BlocksMinted: 9, PParams: NewPParamsSet(8),
		}}},
		{"drep", NsDReps, Entity{Kind: KindDRep, DRep: &DRepState{
			DRepID: []byte("drep"), Deposit: 100, Active: true,
		}}},
		{"proposal", NsProposals, Entity{Kind: KindProposal, Proposal: &Proposal{
			Index: 1, TxHash: proposalTxHash(9), Status: ProposalEnacted, ResolvedEpoch: &resolved,
		}}},
		{"era", NsEras, Entity{Kind: KindEra, Era: &EraRecord{
			ProtocolVersion: 9, EpochLength: 432000, SlotLength: 1,
		}}},
		{"datum", NsDatums, Entity{Kind: KindDatum, Datum: &DatumState{
			Hash: [32]byte{1, 2, 3}, Bytes: []byte("cbor"), Refcount: 2,
		}}},
		{"reward_log", NsRewards, Entity{Kind: KindRewardLog, RewardLog: &RewardLog{
			Credential: []byte("cred"), Epoch: 7, Amount: 1000,
		}}},
		{"stake_log", NsStakes, Entity{Kind: KindStakeLog, StakeLog: &StakeLog{
			OperatorHash: []byte("op"), Epoch: 7, Amount: 5000,
		}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ns, b, err := EncodeEntity(tc.e)
			if err != nil {
				t.Fatalf("EncodeEntity: %v", err)
			}
			if ns != tc.ns {
				t.Fatalf("namespace = %q, want %q", ns, tc.ns)
			}
			decoded, err := DecodeEntity(ns, b)
			if err != nil {
				t.Fatalf("DecodeEntity: %v", err)
			}
			if decoded.Kind != tc.e.Kind {
				t.Fatalf("decoded kind = %v, want %v", decoded.Kind, tc.e.Kind)
			}
		})
	}
}

func TestDecodeEntityRejectsUnknownNamespace(t *testing.T) {
	if _, err := DecodeEntity(Namespace("bogus"), nil); err == nil {
		t.Fatalf("expected an error decoding an unknown namespace")
	}
}
