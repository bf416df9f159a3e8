package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/iho/txengine/internal/domain"
)

// Hash fields stored per client balance.
const (
	fieldAvailable = "available"
	fieldHeld      = "held"
	fieldTotal     = "total"
	fieldLocked    = "locked"
)

// BalanceExporter implements usecase.BalanceExporter using Redis.
//
// Layout, relative to prefix:
//
//	run:<runID>                number of clients, written for every run
//	run:<runID>:clients        set of client ids
//	run:<runID>:client:<id>    hash {available, held, total, locked}
//	latest_run                 id of the most recent export
type BalanceExporter struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewBalanceExporter creates a new BalanceExporter. A zero ttl keeps keys forever.
func NewBalanceExporter(client *redis.Client, prefix string, ttl time.Duration) *BalanceExporter {
	return &BalanceExporter{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (e *BalanceExporter) Name() string {
	return "redis"
}

// Export writes all balances of a run in a single MULTI/EXEC.
func (e *BalanceExporter) Export(ctx context.Context, runID string, balances []domain.Balance) error {
	_, err := e.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		clientsKey := e.clientsKey(runID)

		for _, b := range balances {
			key := e.balanceKey(runID, b.Client)
			pipe.HSet(ctx, key,
				fieldAvailable, b.Available.String(),
				fieldHeld, b.Held.String(),
				fieldTotal, b.Total.String(),
				fieldLocked, strconv.FormatBool(b.Locked),
			)
			pipe.SAdd(ctx, clientsKey, strconv.FormatUint(uint64(b.Client), 10))
			if e.ttl > 0 {
				pipe.Expire(ctx, key, e.ttl)
			}
		}
		if e.ttl > 0 && len(balances) > 0 {
			pipe.Expire(ctx, clientsKey, e.ttl)
		}

		pipe.Set(ctx, e.runKey(runID), len(balances), e.ttl)
		pipe.Set(ctx, e.prefix+"latest_run", runID, e.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to export balances to redis: %w", err)
	}

	return nil
}

// LatestRunID returns the id of the most recently exported run.
func (e *BalanceExporter) LatestRunID(ctx context.Context) (string, error) {
	runID, err := e.client.Get(ctx, e.prefix+"latest_run").Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrRunNotFound
	}
	return runID, err
}

// Load reads back the balances exported for runID, ordered by client. A run
// that exported no clients loads as an empty slice.
func (e *BalanceExporter) Load(ctx context.Context, runID string) ([]domain.Balance, error) {
	exists, err := e.client.Exists(ctx, e.runKey(runID)).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, domain.ErrRunNotFound
	}

	members, err := e.client.SMembers(ctx, e.clientsKey(runID)).Result()
	if err != nil {
		return nil, err
	}

	balances := make([]domain.Balance, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid client id %q in run %s: %w", m, runID, err)
		}

		fields, err := e.client.HGetAll(ctx, e.balanceKey(runID, domain.ClientID(id))).Result()
		if err != nil {
			return nil, err
		}

		b, err := balanceFromHash(domain.ClientID(id), fields)
		if err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}

	sort.Slice(balances, func(i, j int) bool { return balances[i].Client < balances[j].Client })
	return balances, nil
}

func (e *BalanceExporter) runKey(runID string) string {
	return e.prefix + "run:" + runID
}

func (e *BalanceExporter) clientsKey(runID string) string {
	return e.prefix + "run:" + runID + ":clients"
}

func (e *BalanceExporter) balanceKey(runID string, client domain.ClientID) string {
	return e.prefix + "run:" + runID + ":client:" + strconv.FormatUint(uint64(client), 10)
}

func balanceFromHash(client domain.ClientID, fields map[string]string) (domain.Balance, error) {
	b := domain.Balance{Client: client}

	var err error
	if b.Available, err = decimal.NewFromString(fields[fieldAvailable]); err != nil {
		return b, fmt.Errorf("invalid available for client %d: %w", client, err)
	}
	if b.Held, err = decimal.NewFromString(fields[fieldHeld]); err != nil {
		return b, fmt.Errorf("invalid held for client %d: %w", client, err)
	}
	if b.Total, err = decimal.NewFromString(fields[fieldTotal]); err != nil {
		return b, fmt.Errorf("invalid total for client %d: %w", client, err)
	}
	if b.Locked, err = strconv.ParseBool(fields[fieldLocked]); err != nil {
		return b, fmt.Errorf("invalid locked for client %d: %w", client, err)
	}

	return b, nil
}
