package domain

import (
	"github.com/shopspring/decimal"
)

// ClientID identifies the owner of an account.
type ClientID uint16

// TransactionID identifies a transaction within an account.
type TransactionID uint32

// TransactionKind enumerates the supported transaction variants.
type TransactionKind uint8

const (
	KindDeposit TransactionKind = iota + 1
	KindWithdrawal
	KindDispute
	KindResolve
	KindChargeback
)

// Record type tags as they appear in the input.
const (
	TypeDeposit    = "deposit"
	TypeWithdrawal = "withdrawal"
	TypeDispute    = "dispute"
	TypeResolve    = "resolve"
	TypeChargeback = "chargeback"
)

func (k TransactionKind) String() string {
	switch k {
	case KindDeposit:
		return TypeDeposit
	case KindWithdrawal:
		return TypeWithdrawal
	case KindDispute:
		return TypeDispute
	case KindResolve:
		return TypeResolve
	case KindChargeback:
		return TypeChargeback
	default:
		return "unknown"
	}
}

// Transaction is an immutable, typed transaction. Amount is only set for
// deposits and withdrawals; the other kinds reference a prior deposit by id.
type Transaction struct {
	Kind   TransactionKind
	Amount decimal.Decimal
}

func Deposit(amount decimal.Decimal) Transaction {
	return Transaction{Kind: KindDeposit, Amount: amount}
}

func Withdrawal(amount decimal.Decimal) Transaction {
	return Transaction{Kind: KindWithdrawal, Amount: amount}
}

func Dispute() Transaction {
	return Transaction{Kind: KindDispute}
}

func Resolve() Transaction {
	return Transaction{Kind: KindResolve}
}

func Chargeback() Transaction {
	return Transaction{Kind: KindChargeback}
}

// Record is a single raw input row. Type is expected to be whitespace-trimmed.
type Record struct {
	Type   string
	Client ClientID
	TxID   TransactionID
	Amount *decimal.Decimal
}

// ParseTransaction converts a raw record into a typed transaction.
func ParseTransaction(r Record) (Transaction, error) {
	switch r.Type {
	case TypeDeposit, TypeWithdrawal:
		if r.Amount == nil {
			return Transaction{}, ErrMissingAmount
		}
		if r.Type == TypeDeposit {
			return Deposit(*r.Amount), nil
		}
		return Withdrawal(*r.Amount), nil
	case TypeDispute:
		return Dispute(), nil
	case TypeResolve:
		return Resolve(), nil
	case TypeChargeback:
		return Chargeback(), nil
	default:
		return Transaction{}, ErrInvalidType
	}
}
