// Package numerator implements core/numerator.Generator on PostgreSQL.
package numerator

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "stockledger/internal/core/numerator"
)

// Querier is the part of pgx the numerator needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierFunc resolves the querier for a call, normally the caller's transaction.
type QuerierFunc func(ctx context.Context) Querier

// Service allocates numbers with one UPSERT ... RETURNING per call on
// sys_sequences(sequence_type, year). The row lock taken by the UPSERT is held
// until the caller's transaction ends, so concurrent postings serialize on it
// and a rollback releases the number again.
type Service struct {
	querier QuerierFunc
}

var _ corenumerator.Generator = (*Service)(nil)

// New creates a numerator bound to the given querier source.
func New(querier QuerierFunc) *Service {
	return &Service{querier: querier}
}

// GetNextNumber implements corenumerator.Generator.
func (s *Service) GetNextNumber(ctx context.Context, cfg corenumerator.Config, at time.Time) (string, error) {
	if cfg.Prefix == "" {
		return "", fmt.Errorf("numerator: empty prefix")
	}

	year := at.UTC().Year()
	var num int64
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (sequence_type, year, current_val)
		VALUES ($1, $2, 1)
		ON CONFLICT (sequence_type, year) DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`, cfg.Prefix, year).Scan(&num)
	if err != nil {
		return "", fmt.Errorf("next %s number for %d: %w", cfg.Prefix, year, err)
	}

	return corenumerator.Format(cfg, at.UTC(), num), nil
}

// SetNextNumber moves a sequence so that the next allocation returns value+1.
// Used when importing documents numbered elsewhere.
func (s *Service) SetNextNumber(ctx context.Context, cfg corenumerator.Config, at time.Time, value int64) error {
	var result int64
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (sequence_type, year, current_val)
		VALUES ($1, $2, $3)
		ON CONFLICT (sequence_type, year) DO UPDATE SET current_val = $3
		RETURNING current_val
	`, cfg.Prefix, at.UTC().Year(), value).Scan(&result)
	if err != nil {
		return fmt.Errorf("set %s sequence: %w", cfg.Prefix, err)
	}
	return nil
}
