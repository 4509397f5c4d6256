package core

import "testing"

func TestNamespaceOfCoversEveryKind(t *testing.T) {
	kinds := []EntityKind{KindAccount, KindPool, KindAsset, KindEpoch, KindDRep, KindProposal, KindEra, KindDatum, KindRewardLog, KindStakeLog}
	for _, k := range kinds {
		ns, err := NamespaceOf(k)
		if err != nil {
			t.Fatalf("NamespaceOf(%v): %v", k, err)
		}
		back, err := KindForNamespace(ns)
		if err != nil {
			t.Fatalf("KindForNamespace(%v): %v", ns, err)
		}
		if back != k {
			t.Fatalf("round trip mismatch: kind %v -> ns %v -> kind %v", k, ns, back)
		}
	}
}

func TestNamespaceOfRejectsUnknownKind(t *testing.T) {
	if _, err := NamespaceOf(EntityKind(255)); err == nil {
		t.Fatalf("expected an error for an unknown entity kind")
	}
}

func TestKindForNamespaceRejectsUnknownNamespace(t *testing.T) {
	if _, err := KindForNamespace(Namespace("bogus")); err == nil {
		t.Fatalf("expected an error for an unknown namespace")
	}
}
