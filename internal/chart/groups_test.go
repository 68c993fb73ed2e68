package chart

import (
	"testing"

	"github.com/tinoosan/bookkeeping/internal/ledger"
)

func TestTemplate_UniqueNumbersPerType(t *testing.T) {
	seen := map[string]bool{}
	for _, g := range Template() {
		key := g.FormattedNumber()
		if seen[key] {
			t.Fatalf("duplicate group %s", key)
		}
		seen[key] = true
		if g.Number < 0 || g.Number > 99 {
			t.Fatalf("group %s out of range", key)
		}
	}
	if len(seen) != len(GroupsFor(nil)) {
		t.Fatalf("template size %d != groups %d", len(seen), len(GroupsFor(nil)))
	}
}

func TestGroupsFor_Type(t *testing.T) {
	typ := ledger.AccountTypeAsset
	if len(GroupsFor(&typ)) == 0 {
		t.Fatalf("expected asset groups")
	}
}
