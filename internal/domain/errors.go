package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// Parse errors
	ErrMissingAmount   = errors.New("missing amount")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrMalformedRecord = errors.New("malformed record")

	// Processing errors
	ErrAccountIsFrozen         = errors.New("account is frozen")
	ErrInvalidTransactionID    = errors.New("invalid transaction id")
	ErrAvailableAmountTooLow   = errors.New("available amount too low")
	ErrInvalidTransactionState = errors.New("transaction is not in the expected state")

	// Lookup errors
	ErrRunNotFound = errors.New("run not found")
)

// InvalidTransactionIDError reports a duplicate id or a reference to an unknown deposit.
type InvalidTransactionIDError struct {
	ID TransactionID
}

func (e *InvalidTransactionIDError) Error() string {
	return fmt.Sprintf("%s: %d", ErrInvalidTransactionID, e.ID)
}

func (e *InvalidTransactionIDError) Is(target error) bool {
	return target == ErrInvalidTransactionID
}

// AvailableAmountTooLowError reports that available funds cannot cover an amount.
type AvailableAmountTooLowError struct {
	Have decimal.Decimal
	Want decimal.Decimal
}

func (e *AvailableAmountTooLowError) Error() string {
	return fmt.Sprintf("available amount %s is less than requested amount %s", e.Have, e.Want)
}

func (e *AvailableAmountTooLowError) Is(target error) bool {
	return target == ErrAvailableAmountTooLow
}

// IsParseError reports whether err belongs to the record parsing family.
func IsParseError(err error) bool {
	return errors.Is(err, ErrMissingAmount) ||
		errors.Is(err, ErrInvalidType) ||
		errors.Is(err, ErrMalformedRecord)
}

// IsProcessingError reports whether err is a ledger rejection.
func IsProcessingError(err error) bool {
	return errors.Is(err, ErrAccountIsFrozen) ||
		errors.Is(err, ErrInvalidTransactionID) ||
		errors.Is(err, ErrAvailableAmountTooLow) ||
		errors.Is(err, ErrInvalidTransactionState)
}

// ErrorReason returns a short stable label for err, used for metrics and logs.
func ErrorReason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrMissingAmount):
		return "missing_amount"
	case errors.Is(err, ErrInvalidType):
		return "invalid_type"
	case errors.Is(err, ErrMalformedRecord):
		return "malformed_record"
	case errors.Is(err, ErrAccountIsFrozen):
		return "account_frozen"
	case errors.Is(err, ErrInvalidTransactionID):
		return "invalid_transaction_id"
	case errors.Is(err, ErrAvailableAmountTooLow):
		return "available_too_low"
	case errors.Is(err, ErrInvalidTransactionState):
		return "invalid_transaction_state"
	default:
		return "unknown"
	}
}
