package domain

import (
	"github.com/shopspring/decimal"
)

// DepositState tracks the dispute lifecycle of an accepted deposit.
type DepositState uint8

const (
	DepositNormal DepositState = iota
	DepositUnderDispute
	// DepositChargeback is terminal.
	DepositChargeback
)

func (s DepositState) String() string {
	switch s {
	case DepositNormal:
		return "normal"
	case DepositUnderDispute:
		return "under_dispute"
	case DepositChargeback:
		return "chargeback"
	default:
		return "unknown"
	}
}

// DepositRecord is the disputable state kept for an accepted deposit.
type DepositRecord struct {
	State  DepositState
	Amount decimal.Decimal
}

// Account holds the balances of a single client. The zero value is not
// usable; create accounts with NewAccount. An Account is not safe for
// concurrent use.
type Account struct {
	available decimal.Decimal
	held      decimal.Decimal
	frozen    bool
	deposits  map[TransactionID]*DepositRecord
	usedIDs   map[TransactionID]struct{}
}

// NewAccount creates an empty account.
func NewAccount() *Account {
	return &Account{
		available: decimal.Zero,
		held:      decimal.Zero,
		deposits:  make(map[TransactionID]*DepositRecord),
		usedIDs:   make(map[TransactionID]struct{}),
	}
}

func (a *Account) Available() decimal.Decimal { return a.available }

func (a *Account) Held() decimal.Decimal { return a.held }

// Total returns available + held.
func (a *Account) Total() decimal.Decimal { return a.available.Add(a.held) }

func (a *Account) Frozen() bool { return a.frozen }

// DepositRecord returns a copy of the record stored for a deposit id.
func (a *Account) DepositRecord(id TransactionID) (DepositRecord, bool) {
	rec, ok := a.deposits[id]
	if !ok {
		return DepositRecord{}, false
	}
	return *rec, true
}

// Apply applies tx under the given id. On error the account is left unchanged,
// except that a withdrawal consumes its id once the uniqueness check passes.
func (a *Account) Apply(id TransactionID, tx Transaction) error {
	if a.frozen {
		return ErrAccountIsFrozen
	}

	switch tx.Kind {
	case KindDeposit:
		return a.deposit(id, tx.Amount)
	case KindWithdrawal:
		return a.withdraw(id, tx.Amount)
	case KindDispute:
		return a.dispute(id)
	case KindResolve:
		return a.resolve(id)
	case KindChargeback:
		return a.chargeback(id)
	default:
		return ErrInvalidType
	}
}

func (a *Account) deposit(id TransactionID, amount decimal.Decimal) error {
	if err := a.claimID(id); err != nil {
		return err
	}

	a.deposits[id] = &DepositRecord{State: DepositNormal, Amount: amount}
	a.available = a.available.Add(amount)
	return nil
}

func (a *Account) withdraw(id TransactionID, amount decimal.Decimal) error {
	// The id stays consumed even if the withdrawal is rejected below.
	if err := a.claimID(id); err != nil {
		return err
	}

	if a.available.LessThan(amount) {
		return &AvailableAmountTooLowError{Have: a.available, Want: amount}
	}

	a.available = a.available.Sub(amount)
	return nil
}

func (a *Account) dispute(id TransactionID) error {
	rec, err := a.depositInState(id, DepositNormal)
	if err != nil {
		return err
	}

	// Funds already withdrawn cannot be held.
	if a.available.LessThan(rec.Amount) {
		return &AvailableAmountTooLowError{Have: a.available, Want: rec.Amount}
	}

	rec.State = DepositUnderDispute
	a.available = a.available.Sub(rec.Amount)
	a.held = a.held.Add(rec.Amount)
	return nil
}

func (a *Account) resolve(id TransactionID) error {
	rec, err := a.depositInState(id, DepositUnderDispute)
	if err != nil {
		return err
	}

	rec.State = DepositNormal
	a.available = a.available.Add(rec.Amount)
	a.held = a.held.Sub(rec.Amount)
	return nil
}

func (a *Account) chargeback(id TransactionID) error {
	rec, err := a.depositInState(id, DepositUnderDispute)
	if err != nil {
		return err
	}

	rec.State = DepositChargeback
	a.held = a.held.Sub(rec.Amount)
	a.frozen = true
	return nil
}

func (a *Account) claimID(id TransactionID) error {
	if _, used := a.usedIDs[id]; used {
		return &InvalidTransactionIDError{ID: id}
	}
	a.usedIDs[id] = struct{}{}
	return nil
}

func (a *Account) depositInState(id TransactionID, want DepositState) (*DepositRecord, error) {
	rec, ok := a.deposits[id]
	if !ok {
		return nil, &InvalidTransactionIDError{ID: id}
	}
	if rec.State != want {
		return nil, ErrInvalidTransactionState
	}
	return rec, nil
}
