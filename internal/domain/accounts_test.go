package domain

import (
	"testing"
)

func TestAccounts_GetCreatesOnce(t *testing.T) {
	accounts := Accounts{}

	first := accounts.Get(1)
	if first == nil {
		t.Fatalf("expected account to be created")
	}
	if !first.Total().IsZero() || first.Frozen() {
		t.Fatalf("expected empty account, got total=%s frozen=%v", first.Total(), first.Frozen())
	}

	if again := accounts.Get(1); again != first {
		t.Fatalf("expected the same account instance on second lookup")
	}
	if len(accounts) != 1 {
		t.Fatalf("expected 1 account, got %d", len(accounts))
	}
}

func TestAccounts_SnapshotSortedByClient(t *testing.T) {
	accounts := Accounts{}
	mustApply(t, accounts.Get(3), 1, Deposit(d(3)))
	mustApply(t, accounts.Get(1), 1, Deposit(d(10)))
	mustApply(t, accounts.Get(1), 1, Dispute())
	mustApply(t, accounts.Get(2), 1, Deposit(d(2)))

	snapshot := accounts.Snapshot()
	if len(snapshot) != 3 {
		t.Fatalf("expected 3 balances, got %d", len(snapshot))
	}
	for i, want := range []ClientID{1, 2, 3} {
		if snapshot[i].Client != want {
			t.Fatalf("expected client %d at position %d, got %d", want, i, snapshot[i].Client)
		}
	}

	first := snapshot[0]
	if !first.Available.IsZero() || !first.Held.Equal(d(10)) || !first.Total.Equal(d(10)) || first.Locked {
		t.Fatalf("unexpected balance for client 1: %+v", first)
	}
}

func TestAccounts_Merge(t *testing.T) {
	left := Accounts{}
	left.Get(1)
	right := Accounts{}
	right.Get(2)

	left.Merge(right)
	if len(left) != 2 {
		t.Fatalf("expected merged map to hold 2 accounts, got %d", len(left))
	}
}
