package postgres

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/iho/txengine/internal/infrastructure/logger"
)

func fastRetrier(log zerolog.Logger) *Retrier {
	return NewRetrier(RetryPolicy{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxElapsedTime:  100 * time.Millisecond,
	}, log)
}

func TestRetrierRetriesOnRetryableError(t *testing.T) {
	r := fastRetrier(zerolog.Nop())

	attempts := 0
	err := r.Retry(context.Background(), "export", func() error {
		attempts++
		if attempts < 2 {
			return &pgconn.PgError{Code: pgErrDeadlock}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetrierGivesUpAfterMaxRetries(t *testing.T) {
	r := fastRetrier(zerolog.Nop())

	attempts := 0
	err := r.Retry(context.Background(), "export", func() error {
		attempts++
		return &pgconn.PgError{Code: pgErrSerializationFailure}
	})

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Fatalf("expected pg error, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetrierStopsOnPermanentError(t *testing.T) {
	r := NewRetrier(DefaultRetryPolicy(), zerolog.Nop())
	attempts := 0
	permanentErr := errors.New("permanent")

	err := r.Retry(context.Background(), "export", func() error {
		attempts++
		return permanentErr
	})

	if !errors.Is(err, permanentErr) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestRetrierStopsWhenContextCancelled(t *testing.T) {
	r := fastRetrier(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := r.Retry(ctx, "export", func() error {
		attempts++
		cancel()
		return &pgconn.PgError{Code: pgErrDeadlock}
	})

	if err == nil {
		t.Fatalf("expected an error after cancellation")
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestRetrierLogsRunID(t *testing.T) {
	var buf bytes.Buffer
	r := fastRetrier(zerolog.New(&buf))
	ctx := logger.WithRunID(context.Background(), "run-42")

	attempts := 0
	_ = r.Retry(ctx, "export run-42", func() error {
		attempts++
		if attempts == 1 {
			return &pgconn.PgError{Code: pgErrAdminShutdown}
		}
		return nil
	})

	out := buf.String()
	for _, want := range []string{`"run_id":"run-42"`, `"op":"export run-42"`, `"attempt":1`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in log output, got %s", want, out)
		}
	}
}

func TestNewRetrierFillsDefaults(t *testing.T) {
	r := NewRetrier(RetryPolicy{MaxRetries: 7}, zerolog.Nop())
	def := DefaultRetryPolicy()

	if r.policy.MaxRetries != 7 {
		t.Fatalf("expected MaxRetries 7, got %d", r.policy.MaxRetries)
	}
	if r.policy.InitialInterval != def.InitialInterval || r.policy.MaxElapsedTime != def.MaxElapsedTime {
		t.Fatalf("expected defaults to fill zero fields, got %+v", r.policy)
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&pgconn.PgError{Code: pgErrDeadlock}, true},
		{&pgconn.PgError{Code: pgErrCannotConnectNow}, true},
		{&pgconn.PgError{Code: "23505"}, false},
		{errors.New("other"), false},
	}

	for _, tt := range tests {
		if got := isRetryableError(tt.err); got != tt.want {
			t.Fatalf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
