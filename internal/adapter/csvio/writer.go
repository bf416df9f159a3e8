package csvio

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/iho/txengine/internal/domain"
)

// Scale is the number of fractional digits rendered for balances.
const Scale = 4

var outputHeader = []string{"client", "available", "held", "total", "locked"}

// Writer renders balances as CSV. It implements usecase.BalanceWriter.
type Writer struct {
	w io.Writer
}

// NewWriter creates a Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write renders the header followed by one row per balance.
func (w *Writer) Write(balances []domain.Balance) error {
	cw := csv.NewWriter(w.w)

	if err := cw.Write(outputHeader); err != nil {
		return err
	}

	row := make([]string, len(outputHeader))
	for _, b := range balances {
		row[0] = strconv.FormatUint(uint64(b.Client), 10)
		row[1] = b.Available.StringFixed(Scale)
		row[2] = b.Held.StringFixed(Scale)
		row[3] = b.Total.StringFixed(Scale)
		row[4] = strconv.FormatBool(b.Locked)
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
