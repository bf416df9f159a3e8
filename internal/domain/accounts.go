package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Balance is a read-only view of an account for reporting.
type Balance struct {
	Client    ClientID
	Available decimal.Decimal
	Held      decimal.Decimal
	Total     decimal.Decimal
	Locked    bool
}

// Accounts maps client ids to their accounts. It is owned by a single writer.
type Accounts map[ClientID]*Account

// Get returns the account for client, creating it on first reference.
func (as Accounts) Get(client ClientID) *Account {
	acc, ok := as[client]
	if !ok {
		acc = NewAccount()
		as[client] = acc
	}
	return acc
}

// Merge moves every account of other into as. Client sets must be disjoint.
func (as Accounts) Merge(other Accounts) {
	for client, acc := range other {
		as[client] = acc
	}
}

// Snapshot returns the balances of all accounts ordered by client id.
func (as Accounts) Snapshot() []Balance {
	out := make([]Balance, 0, len(as))
	for client, acc := range as {
		out = append(out, Balance{
			Client:    client,
			Available: acc.Available(),
			Held:      acc.Held(),
			Total:     acc.Total(),
			Locked:    acc.Frozen(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Client < out[j].Client })
	return out
}
