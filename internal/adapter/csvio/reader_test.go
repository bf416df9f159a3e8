package csvio

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/txengine/internal/domain"
)

type item struct {
	record domain.Record
	err    error
}

func readAll(t *testing.T, input string) []item {
	t.Helper()
	r := NewReader(strings.NewReader(input))

	var out []item
	for {
		record, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil && !errors.Is(err, domain.ErrMalformedRecord) {
			t.Fatalf("unexpected fatal error: %v", err)
		}
		out = append(out, item{record: record, err: err})
	}
}

func TestReader_DecodesRecords(t *testing.T) {
	input := "type, client, tx, amount\n" +
		"deposit, 1, 1, 1.0\n" +
		"  withdrawal ,2,5,  0.1234 \n" +
		"dispute, 1, 1\n" +
		"resolve, 1, 1,\n" +
		"chargeback,65535,4294967295,\n"

	items := readAll(t, input)
	require.Len(t, items, 5)
	for _, it := range items {
		require.NoError(t, it.err)
	}

	assert.Equal(t, "deposit", items[0].record.Type)
	assert.Equal(t, domain.ClientID(1), items[0].record.Client)
	require.NotNil(t, items[0].record.Amount)
	assert.True(t, items[0].record.Amount.Equal(decimal.NewFromInt(1)))

	assert.Equal(t, "withdrawal", items[1].record.Type)
	assert.Equal(t, domain.TransactionID(5), items[1].record.TxID)
	assert.True(t, items[1].record.Amount.Equal(decimal.RequireFromString("0.1234")))

	assert.Nil(t, items[2].record.Amount, "missing amount column")
	assert.Nil(t, items[3].record.Amount, "empty amount column")

	assert.Equal(t, domain.ClientID(65535), items[4].record.Client)
	assert.Equal(t, domain.TransactionID(4294967295), items[4].record.TxID)
}

func TestReader_HeaderOrderIndependent(t *testing.T) {
	items := readAll(t, "client,amount,tx,type\n3,2.5,9,deposit\n")
	require.Len(t, items, 1)
	require.NoError(t, items[0].err)
	assert.Equal(t, domain.ClientID(3), items[0].record.Client)
	assert.Equal(t, domain.TransactionID(9), items[0].record.TxID)
	assert.Equal(t, "deposit", items[0].record.Type)
}

func TestReader_MalformedRowsAreSkippable(t *testing.T) {
	input := "type,client,tx,amount\n" +
		"deposit,abc,1,1.0\n" +
		"deposit,70000,1,1.0\n" +
		"deposit,1,-1,1.0\n" +
		"deposit,1,1,ten\n" +
		"deposit,1,1,-5\n" +
		"deposit\n" +
		"deposit,1,2,3.0\n"

	items := readAll(t, input)
	require.Len(t, items, 7)
	for i, it := range items[:6] {
		assert.ErrorIs(t, it.err, domain.ErrMalformedRecord, "row %d", i)
	}
	require.NoError(t, items[6].err)
	assert.Equal(t, domain.TransactionID(2), items[6].record.TxID)

	assert.Contains(t, items[0].err.Error(), "line 2")
}

func TestReader_EmptyInput(t *testing.T) {
	r := NewReader(strings.NewReader(""))
	_, err := r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_MissingColumn(t *testing.T) {
	r := NewReader(strings.NewReader("type,client,amount\ndeposit,1,1\n"))
	_, err := r.Next()
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.NotErrorIs(t, err, domain.ErrMalformedRecord)
}
