package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iho/txengine/internal/domain"
)

// Input column names.
const (
	ColumnType   = "type"
	ColumnClient = "client"
	ColumnTx     = "tx"
	ColumnAmount = "amount"
)

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// Reader decodes transaction records from CSV. Fields are whitespace-trimmed
// and rows may omit trailing columns. It implements usecase.RecordSource.
type Reader struct {
	csv     *csv.Reader
	columns map[string]int
	started bool
}

// NewReader creates a Reader. The header row is read on the first call to Next.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	return &Reader{csv: cr}
}

// Next returns the next record. Rows that cannot be decoded are reported with
// an error wrapping domain.ErrMalformedRecord.
func (r *Reader) Next() (domain.Record, error) {
	if !r.started {
		if err := r.readHeader(); err != nil {
			return domain.Record{}, err
		}
		r.started = true
	}

	fields, err := r.csv.Read()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return domain.Record{}, fmt.Errorf("%w: %v", domain.ErrMalformedRecord, err)
		}
		return domain.Record{}, err
	}

	line, _ := r.csv.FieldPos(0)
	return r.decode(line, fields)
}

func (r *Reader) readHeader() error {
	header, err := r.csv.Read()
	if err != nil {
		return err
	}

	r.columns = make(map[string]int, len(header))
	for i, name := range header {
		r.columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, required := range []string{ColumnType, ColumnClient, ColumnTx} {
		if _, ok := r.columns[required]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}
	return nil
}

func (r *Reader) field(fields []string, column string) (string, bool) {
	idx, ok := r.columns[column]
	if !ok || idx >= len(fields) {
		return "", false
	}
	return strings.TrimSpace(fields[idx]), true
}

func (r *Reader) decode(line int, fields []string) (domain.Record, error) {
	var record domain.Record

	typ, ok := r.field(fields, ColumnType)
	if !ok {
		return record, malformed(line, "missing type")
	}
	record.Type = typ

	client, ok := r.field(fields, ColumnClient)
	if !ok {
		return record, malformed(line, "missing client")
	}
	clientID, err := strconv.ParseUint(client, 10, 16)
	if err != nil {
		return record, malformed(line, "invalid client %q", client)
	}
	record.Client = domain.ClientID(clientID)

	tx, ok := r.field(fields, ColumnTx)
	if !ok {
		return record, malformed(line, "missing tx")
	}
	txID, err := strconv.ParseUint(tx, 10, 32)
	if err != nil {
		return record, malformed(line, "invalid tx %q", tx)
	}
	record.TxID = domain.TransactionID(txID)

	if raw, ok := r.field(fields, ColumnAmount); ok && raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return record, malformed(line, "invalid amount %q", raw)
		}
		if amount.IsNegative() {
			return record, malformed(line, "negative amount %q", raw)
		}
		record.Amount = &amount
	}

	return record, nil
}

func malformed(line int, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", domain.ErrMalformedRecord, line, fmt.Sprintf(format, args...))
}
