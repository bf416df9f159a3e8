package dto

import (
	"github.com/iho/txengine/internal/adapter/csvio"
	"github.com/iho/txengine/internal/domain"
)

// BalanceResponse represents a client balance in API responses. Amounts are
// rendered with four fractional digits, matching the CSV report.
type BalanceResponse struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

// BalanceFromDomain converts a domain balance to response.
func BalanceFromDomain(b domain.Balance) BalanceResponse {
	return BalanceResponse{
		Client:    uint16(b.Client),
		Available: b.Available.StringFixed(csvio.Scale),
		Held:      b.Held.StringFixed(csvio.Scale),
		Total:     b.Total.StringFixed(csvio.Scale),
		Locked:    b.Locked,
	}
}

// BalancesFromDomain converts domain balances to responses.
func BalancesFromDomain(balances []domain.Balance) []BalanceResponse {
	result := make([]BalanceResponse, len(balances))
	for i, b := range balances {
		result[i] = BalanceFromDomain(b)
	}
	return result
}

// ReplayResponse is the JSON form of a replay run.
type ReplayResponse struct {
	RunID      string            `json:"run_id"`
	Applied    int               `json:"applied"`
	Rejected   int               `json:"rejected"`
	Malformed  int               `json:"malformed"`
	DurationMs int64             `json:"duration_ms"`
	Exported   bool              `json:"exported"`
	Balances   []BalanceResponse `json:"balances"`
}

// RunBalancesResponse lists balances previously exported for a run.
type RunBalancesResponse struct {
	RunID    string            `json:"run_id"`
	Balances []BalanceResponse `json:"balances"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
