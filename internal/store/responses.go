package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/chdqbank/qbank/internal/practice"
)

var responseColumns = []string{
	"id", "question_id", "choice_id", "is_correct", "ms_to_answer", "flagged", "created_at", "updated_at",
}

// ResponseRecord is a stored response with its question and timestamps.
type ResponseRecord struct {
	practice.Response
	QuestionID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResponse(sc rowScanner) (ResponseRecord, error) {
	var (
		rec       ResponseRecord
		choiceID  sql.NullString
		ms        sql.NullInt64
		createdAt int64
		updatedAt int64
	)
	err := sc.Scan(&rec.ID, &rec.QuestionID, &choiceID, &rec.IsCorrect, &ms, &rec.Flagged, &createdAt, &updatedAt)
	if err != nil {
		return ResponseRecord{}, err
	}
	rec.ChoiceID = stringPtr(choiceID)
	rec.MsToAnswer = intPtr(ms)
	rec.CreatedAt = fromMillis(createdAt)
	rec.UpdatedAt = fromMillis(updatedAt)
	return rec, nil
}

func (s *Store) queryResponses(ctx context.Context, query string, args []any) ([]ResponseRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}
	defer rows.Close()

	var out []ResponseRecord
	for rows.Next() {
		rec, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate responses: %w", err)
	}
	return out, nil
}

// newestFirst selects the responses matching pred ordered by creation
// time, newest first.
func newestFirst(pred *entsql.Predicate) *entsql.Selector {
	b := builder()
	return b.Select(responseColumns...).
		From(b.Table(tableResponses)).
		Where(pred).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id"))
}

// LatestResponse returns the most recently created response of userID for
// questionID, or nil if none exists.
func (s *Store) LatestResponse(ctx context.Context, userID, questionID string) (*practice.Response, error) {
	query, args := newestFirst(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("question_id", questionID))).
		Limit(1).
		Query()
	rec, err := scanResponse(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query latest response: %w", err)
	}
	return &rec.Response, nil
}

// ResponsesFor returns the latest response of userID for each of the given
// questions. Questions without a response are absent from the map.
func (s *Store) ResponsesFor(ctx context.Context, userID string, questionIDs []string) (map[string]practice.Response, error) {
	out := make(map[string]practice.Response, len(questionIDs))
	if len(questionIDs) == 0 {
		return out, nil
	}
	query, args := newestFirst(entsql.And(entsql.EQ("user_id", userID), entsql.In("question_id", inArgs(questionIDs)...))).
		Query()
	recs, err := s.queryResponses(ctx, query, args)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if _, seen := out[rec.QuestionID]; !seen {
			out[rec.QuestionID] = rec.Response
		}
	}
	return out, nil
}

// InsertResponse creates the response row of a (user, question) pair. A
// second insert for the same pair fails on the unique index.
func (s *Store) InsertResponse(ctx context.Context, r practice.NewResponse) (*practice.Response, error) {
	id := uuid.NewString()
	now := s.nowMillis()
	var ms sql.NullInt64
	if r.MsToAnswer != nil {
		ms = sql.NullInt64{Int64: int64(*r.MsToAnswer), Valid: true}
	}

	query, args := builder().Insert(tableResponses).
		Columns("id", "user_id", "question_id", "choice_id", "is_correct", "ms_to_answer", "flagged", "created_at", "updated_at").
		Values(id, r.UserID, r.QuestionID, nullString(r.ChoiceID), r.IsCorrect, ms, r.Flagged, now, now).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("insert response: %w", err)
	}
	rec, err := s.responseByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &rec.Response, nil
}

// UpdateResponse applies patch to the response with the given id and
// returns the updated row, or nil if no such row exists.
func (s *Store) UpdateResponse(ctx context.Context, id string, patch practice.ResponsePatch) (*practice.Response, error) {
	u := builder().Update(tableResponses).Set("updated_at", s.nowMillis())
	if patch.ChoiceID != nil {
		u = u.Set("choice_id", *patch.ChoiceID)
	}
	if patch.MsToAnswer != nil {
		u = u.Set("ms_to_answer", *patch.MsToAnswer)
	}
	if patch.IsCorrect != nil {
		u = u.Set("is_correct", *patch.IsCorrect)
	}
	if patch.Flagged != nil {
		u = u.Set("flagged", *patch.Flagged)
	}

	query, args := u.Where(entsql.EQ("id", id)).Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update response: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, nil
	}
	rec, err := s.responseByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &rec.Response, nil
}

func (s *Store) responseByID(ctx context.Context, id string) (*ResponseRecord, error) {
	b := builder()
	query, args := b.Select(responseColumns...).
		From(b.Table(tableResponses)).
		Where(entsql.EQ("id", id)).
		Query()
	rec, err := scanResponse(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", id, err)
	}
	return &rec, nil
}

// ResponsesSince returns the responses of userID created at or after since,
// oldest first. A zero since returns every response.
func (s *Store) ResponsesSince(ctx context.Context, userID string, since time.Time) ([]ResponseRecord, error) {
	pred := entsql.EQ("user_id", userID)
	if !since.IsZero() {
		pred = entsql.And(pred, entsql.GTE("created_at", since.UTC().UnixMilli()))
	}
	b := builder()
	query, args := b.Select(responseColumns...).
		From(b.Table(tableResponses)).
		Where(pred).
		OrderBy(entsql.Asc("created_at")).
		Query()
	return s.queryResponses(ctx, query, args)
}

// FlaggedItem is a flagged response joined with its question.
type FlaggedItem struct {
	ResponseRecord
	Slug   string
	StemMD string
	LeadIn *string
	Topic  *string
	Lesion *string
}

// FlaggedResponses returns the flagged responses of userID, newest first.
func (s *Store) FlaggedResponses(ctx context.Context, userID string) ([]FlaggedItem, error) {
	b := builder()
	r := b.Table(tableResponses).As("r")
	q := b.Table(tableQuestions).As("q")
	query, args := b.Select(
		r.C("id"), r.C("question_id"), r.C("choice_id"), r.C("is_correct"), r.C("ms_to_answer"),
		r.C("flagged"), r.C("created_at"), r.C("updated_at"),
		q.C("slug"), q.C("stem_md"), q.C("lead_in"), q.C("topic"), q.C("lesion"),
	).
		From(r).
		Join(q).On(r.C("question_id"), q.C("id")).
		Where(entsql.And(entsql.EQ(r.C("user_id"), userID), entsql.EQ(r.C("flagged"), true))).
		OrderBy(entsql.Desc(r.C("created_at"))).
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query flagged responses: %w", err)
	}
	defer rows.Close()

	var out []FlaggedItem
	for rows.Next() {
		var (
			item                  FlaggedItem
			choiceID              sql.NullString
			ms                    sql.NullInt64
			createdAt, updatedAt  int64
			leadIn, topic, lesion sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.QuestionID, &choiceID, &item.IsCorrect, &ms,
			&item.Flagged, &createdAt, &updatedAt,
			&item.Slug, &item.StemMD, &leadIn, &topic, &lesion); err != nil {
			return nil, fmt.Errorf("scan flagged response: %w", err)
		}
		item.ChoiceID = stringPtr(choiceID)
		item.MsToAnswer = intPtr(ms)
		item.CreatedAt = fromMillis(createdAt)
		item.UpdatedAt = fromMillis(updatedAt)
		item.LeadIn = stringPtr(leadIn)
		item.Topic = stringPtr(topic)
		item.Lesion = stringPtr(lesion)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flagged responses: %w", err)
	}
	return out, nil
}

// Unflag clears the flag of a response owned by userID. It reports whether
// a row was changed.
func (s *Store) Unflag(ctx context.Context, userID, responseID string) (bool, error) {
	query, args := builder().Update(tableResponses).
		Set("flagged", false).
		Set("updated_at", s.nowMillis()).
		Where(entsql.And(entsql.EQ("id", responseID), entsql.EQ("user_id", userID))).
		Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("unflag response: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unflag response: %w", err)
	}
	return n > 0, nil
}
