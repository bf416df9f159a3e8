package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/txengine/internal/domain"
)

const (
	upsertRunSQL = `INSERT INTO replay_runs (run_id, clients)
VALUES ($1, $2)
ON CONFLICT (run_id) DO UPDATE SET clients = EXCLUDED.clients, exported_at = now()`

	upsertBalanceSQL = `INSERT INTO balances (run_id, client, available, held, total, locked)
VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6)
ON CONFLICT (run_id, client) DO UPDATE SET
    available = EXCLUDED.available,
    held = EXCLUDED.held,
    total = EXCLUDED.total,
    locked = EXCLUDED.locked`

	runExistsSQL = `SELECT EXISTS (SELECT 1 FROM replay_runs WHERE run_id = $1)`

	latestRunSQL = `SELECT run_id FROM replay_runs ORDER BY exported_at DESC LIMIT 1`

	selectBalancesSQL = `SELECT client, available::text, held::text, total::text, locked
FROM balances
WHERE run_id = $1
ORDER BY client`
)

type pgxQuerier interface {
	pgxPool
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// BalanceExporter implements usecase.BalanceExporter using PostgreSQL.
// All rows of a run are written in one transaction, retried on transient
// errors.
type BalanceExporter struct {
	db      pgxQuerier
	txm     *TxManager
	retrier *Retrier
}

// NewBalanceExporter creates a new BalanceExporter.
func NewBalanceExporter(db pgxQuerier, retrier *Retrier) *BalanceExporter {
	return &BalanceExporter{
		db:      db,
		txm:     NewTxManager(db),
		retrier: retrier,
	}
}

func (e *BalanceExporter) Name() string {
	return "postgres"
}

// Export upserts the run header and every balance row.
func (e *BalanceExporter) Export(ctx context.Context, runID string, balances []domain.Balance) error {
	write := func() error {
		return e.txm.WithTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, upsertRunSQL, runID, len(balances)); err != nil {
				return fmt.Errorf("failed to upsert run %s: %w", runID, err)
			}

			for _, b := range balances {
				_, err := tx.Exec(ctx, upsertBalanceSQL,
					runID,
					int32(b.Client),
					b.Available.String(),
					b.Held.String(),
					b.Total.String(),
					b.Locked,
				)
				if err != nil {
					return fmt.Errorf("failed to upsert balance for client %d: %w", b.Client, err)
				}
			}
			return nil
		})
	}

	if e.retrier == nil {
		return write()
	}
	return e.retrier.Retry(ctx, "export "+runID, write)
}

// LatestRunID returns the id of the most recently exported run.
func (e *BalanceExporter) LatestRunID(ctx context.Context) (string, error) {
	var runID string
	err := e.db.QueryRow(ctx, latestRunSQL).Scan(&runID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrRunNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query latest run: %w", err)
	}
	return runID, nil
}

// Load reads back the balances exported for runID, ordered by client.
func (e *BalanceExporter) Load(ctx context.Context, runID string) ([]domain.Balance, error) {
	var exists bool
	if err := e.db.QueryRow(ctx, runExistsSQL, runID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to query run %s: %w", runID, err)
	}
	if !exists {
		return nil, domain.ErrRunNotFound
	}

	rows, err := e.db.Query(ctx, selectBalancesSQL, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	balances := []domain.Balance{}
	for rows.Next() {
		var (
			client                 int32
			available, held, total string
			locked                 bool
		)
		if err := rows.Scan(&client, &available, &held, &total, &locked); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}

		b := domain.Balance{Client: domain.ClientID(client), Locked: locked}
		if b.Available, err = decimal.NewFromString(available); err != nil {
			return nil, err
		}
		if b.Held, err = decimal.NewFromString(held); err != nil {
			return nil, err
		}
		if b.Total, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}

	return balances, rows.Err()
}
