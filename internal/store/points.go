package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/chdqbank/qbank/internal/practice"
)

// ErrUnknownSource is returned when a score event names no stored response.
var ErrUnknownSource = errors.New("store: score source not found")

// IncrementPoints appends a +1 ledger entry for the user owning the response
// named by ev.SourceID. The (source, source_id) pair is unique, so repeating
// an event awards nothing.
func (s *Store) IncrementPoints(ctx context.Context, ev practice.ScoreEvent) error {
	if ev.Source != practice.ScoreSourcePracticeResponse {
		return fmt.Errorf("increment points: unsupported source %q", ev.Source)
	}

	b := builder()
	query, args := b.Select("user_id").
		From(b.Table(tableResponses)).
		Where(entsql.EQ("id", ev.SourceID)).
		Query()
	var userID string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("increment points for %s: %w", ev.SourceID, ErrUnknownSource)
		}
		return fmt.Errorf("resolve score source: %w", err)
	}

	query, args = b.Insert(tablePointEvents).
		Columns("user_id", "source", "source_id", "delta", "created_at").
		Values(userID, ev.Source, ev.SourceID, 1, s.nowMillis()).
		OnConflict(
			entsql.ConflictColumns("source", "source_id"),
			entsql.DoNothing(),
		).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert point event: %w", err)
	}
	return nil
}

// PointsSince sums the points of userID earned at or after since. A zero
// since sums the whole ledger.
func (s *Store) PointsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	pred := entsql.EQ("user_id", userID)
	if !since.IsZero() {
		pred = entsql.And(pred, entsql.GTE("created_at", since.UTC().UnixMilli()))
	}
	b := builder()
	query, args := b.Select(entsql.Sum("delta")).
		From(b.Table(tablePointEvents)).
		Where(pred).
		Query()
	var total sql.NullInt64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum points: %w", err)
	}
	return int(total.Int64), nil
}
