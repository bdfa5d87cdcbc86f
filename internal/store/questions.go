package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/chdqbank/qbank/internal/practice"
)

var questionColumns = []string{
	"id", "slug", "stem_md", "lead_in", "explanation_brief_md", "explanation_deep_md",
	"topic", "subtopic", "lesion", "difficulty", "media_bundle", "context_panels",
}

// questionDoc is the loosely typed row shape served to the normalizer.
type questionDoc struct {
	ID                 string            `json:"id"`
	Slug               string            `json:"slug"`
	StemMD             string            `json:"stem_md"`
	LeadIn             *string           `json:"lead_in"`
	ExplanationBriefMD *string           `json:"explanation_brief_md"`
	ExplanationDeepMD  *string           `json:"explanation_deep_md"`
	Topic              *string           `json:"topic"`
	Subtopic           *string           `json:"subtopic"`
	Lesion             *string           `json:"lesion"`
	Difficulty         *string           `json:"difficulty"`
	MediaBundle        json.RawMessage   `json:"media_bundle"`
	ContextPanels      json.RawMessage   `json:"context_panels"`
	Choices            []practice.Choice `json:"choices"`
}

// questionFilter selects published questions matching the non-"all" filters.
func questionFilter(f practice.Filters) *entsql.Predicate {
	preds := []*entsql.Predicate{entsql.EQ("status", StatusPublished)}
	if f.Topic != "" && f.Topic != practice.AllValue {
		preds = append(preds, entsql.EQ("topic", f.Topic))
	}
	if f.Lesion != "" && f.Lesion != practice.AllValue {
		preds = append(preds, entsql.EQ("lesion", f.Lesion))
	}
	if f.Difficulty != "" && f.Difficulty != practice.AllValue {
		preds = append(preds, entsql.EQ("difficulty", f.Difficulty))
	}
	return entsql.And(preds...)
}

// FetchQuestions returns one page of published questions ordered by id,
// each with its choices, as JSON rows plus the exact filtered count.
func (s *Store) FetchQuestions(ctx context.Context, q practice.PageQuery) (*practice.QuestionPage, error) {
	size := q.PageSize
	if size <= 0 {
		size = practice.PageSize
	}
	page := max(q.Page, 0)
	b := builder()

	countQuery, countArgs := b.Select().
		From(b.Table(tableQuestions)).
		Where(questionFilter(q.Filters)).
		Count().
		Query()
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}

	query, args := b.Select(questionColumns...).
		From(b.Table(tableQuestions)).
		Where(questionFilter(q.Filters)).
		OrderBy(entsql.Asc("id")).
		Limit(size).
		Offset(page * size).
		Query()
	docs, err := scanQuestionDocs(ctx, s.db, query, args)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	choices, err := s.choicesFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	rows := make([]json.RawMessage, 0, len(docs))
	for _, d := range docs {
		d.Choices = choices[d.ID]
		raw, err := json.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("encode question %s: %w", d.ID, err)
		}
		rows = append(rows, raw)
	}
	return &practice.QuestionPage{Rows: rows, Total: &total}, nil
}

func scanQuestionDocs(ctx context.Context, db querier, query string, args []any) ([]questionDoc, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var docs []questionDoc
	for rows.Next() {
		var (
			d                                    questionDoc
			leadIn, brief, deep, topic, subtopic sql.NullString
			lesion, difficulty, media, panels    sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.Slug, &d.StemMD, &leadIn, &brief, &deep,
			&topic, &subtopic, &lesion, &difficulty, &media, &panels); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		d.LeadIn = stringPtr(leadIn)
		d.ExplanationBriefMD = stringPtr(brief)
		d.ExplanationDeepMD = stringPtr(deep)
		d.Topic = stringPtr(topic)
		d.Subtopic = stringPtr(subtopic)
		d.Lesion = stringPtr(lesion)
		d.Difficulty = stringPtr(difficulty)
		if media.Valid {
			d.MediaBundle = json.RawMessage(media.String)
		}
		if panels.Valid {
			d.ContextPanels = json.RawMessage(panels.String)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return docs, nil
}

// choicesFor returns the choices of each question keyed by question id.
func (s *Store) choicesFor(ctx context.Context, questionIDs []string) (map[string][]practice.Choice, error) {
	out := make(map[string][]practice.Choice, len(questionIDs))
	if len(questionIDs) == 0 {
		return out, nil
	}
	b := builder()
	query, args := b.Select("id", "question_id", "label", "text_md", "is_correct").
		From(b.Table(tableChoices)).
		Where(entsql.In("question_id", inArgs(questionIDs)...)).
		OrderBy(entsql.Asc("question_id"), entsql.Asc("label")).
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query choices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c practice.Choice
		var questionID string
		if err := rows.Scan(&c.ID, &questionID, &c.Label, &c.TextMD, &c.IsCorrect); err != nil {
			return nil, fmt.Errorf("scan choice: %w", err)
		}
		out[questionID] = append(out[questionID], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate choices: %w", err)
	}
	return out, nil
}

// Topics returns the distinct topics of published questions.
func (s *Store) Topics(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, "topic")
}

// Lesions returns the distinct lesions of published questions.
func (s *Store) Lesions(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, "lesion")
}

func (s *Store) distinct(ctx context.Context, column string) ([]string, error) {
	b := builder()
	query, args := b.Select(column).
		Distinct().
		From(b.Table(tableQuestions)).
		Where(entsql.And(entsql.EQ("status", StatusPublished), entsql.NotNull(column))).
		OrderBy(entsql.Asc(column)).
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s values: %w", column, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", column, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ChoiceInput is one authored answer option.
type ChoiceInput struct {
	Label     string
	TextMD    string
	IsCorrect bool
}

// QuestionInput is an authored question keyed by slug.
type QuestionInput struct {
	Slug               string
	StemMD             string
	LeadIn             *string
	ExplanationBriefMD *string
	ExplanationDeepMD  *string
	Topic              *string
	Subtopic           *string
	Lesion             *string
	Difficulty         *string
	Status             string
	Media              *practice.MediaBundle
	ContextPanels      []practice.ContextPanel
	Choices            []ChoiceInput
}

// UpsertQuestions inserts or updates each question by slug and replaces its
// choice set, all in one transaction. Existing question ids are kept so
// stored responses stay attached. It returns the question ids in input order.
func (s *Store) UpsertQuestions(ctx context.Context, inputs []QuestionInput) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(inputs))
	for _, in := range inputs {
		id, err := s.upsertQuestion(ctx, tx, in)
		if err != nil {
			return nil, fmt.Errorf("upsert %s: %w", in.Slug, err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}
	return ids, nil
}

func (s *Store) upsertQuestion(ctx context.Context, tx querier, in QuestionInput) (string, error) {
	b := builder()
	now := s.nowMillis()
	status := in.Status
	if status == "" {
		status = StatusPublished
	}

	media, err := marshalNullable(in.Media)
	if err != nil {
		return "", fmt.Errorf("encode media: %w", err)
	}
	var panels sql.NullString
	if len(in.ContextPanels) > 0 {
		if panels, err = marshalNullable(in.ContextPanels); err != nil {
			return "", fmt.Errorf("encode context panels: %w", err)
		}
	}

	query, args := b.Select("id").
		From(b.Table(tableQuestions)).
		Where(entsql.EQ("slug", in.Slug)).
		Query()
	var id string
	err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	switch {
	case err == nil:
		query, args = b.Update(tableQuestions).
			Set("stem_md", in.StemMD).
			Set("lead_in", nullString(in.LeadIn)).
			Set("explanation_brief_md", nullString(in.ExplanationBriefMD)).
			Set("explanation_deep_md", nullString(in.ExplanationDeepMD)).
			Set("topic", nullString(in.Topic)).
			Set("subtopic", nullString(in.Subtopic)).
			Set("lesion", nullString(in.Lesion)).
			Set("difficulty", nullString(in.Difficulty)).
			Set("status", status).
			Set("media_bundle", media).
			Set("context_panels", panels).
			Set("updated_at", now).
			Where(entsql.EQ("id", id)).
			Query()
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.NewString()
		query, args = b.Insert(tableQuestions).
			Columns("id", "slug", "stem_md", "lead_in", "explanation_brief_md", "explanation_deep_md",
				"topic", "subtopic", "lesion", "difficulty", "status", "media_bundle", "context_panels",
				"created_at", "updated_at").
			Values(id, in.Slug, in.StemMD, nullString(in.LeadIn), nullString(in.ExplanationBriefMD),
				nullString(in.ExplanationDeepMD), nullString(in.Topic), nullString(in.Subtopic),
				nullString(in.Lesion), nullString(in.Difficulty), status, media, panels, now, now).
			Query()
	default:
		return "", fmt.Errorf("lookup slug: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("write question: %w", err)
	}

	labels := make([]any, 0, len(in.Choices))
	for _, c := range in.Choices {
		labels = append(labels, c.Label)
	}
	prune := entsql.EQ("question_id", id)
	if len(labels) > 0 {
		prune = entsql.And(prune, entsql.NotIn("label", labels...))
	}
	query, args = b.Delete(tableChoices).Where(prune).Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("prune choices: %w", err)
	}

	for _, c := range in.Choices {
		query, args = b.Insert(tableChoices).
			Columns("id", "question_id", "label", "text_md", "is_correct").
			Values(ChoiceID(id, c.Label), id, c.Label, c.TextMD, c.IsCorrect).
			OnConflict(
				entsql.ConflictColumns("question_id", "label"),
				entsql.ResolveWithNewValues(),
			).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return "", fmt.Errorf("write choice %s: %w", c.Label, err)
		}
	}
	return id, nil
}

// ChoiceID derives a stable choice id from its question and label, so a
// re-import keeps ids referenced by stored responses.
func ChoiceID(questionID, label string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("qbank/choice/"+questionID+"/"+label)).String()
}

func marshalNullable(v any) (sql.NullString, error) {
	switch t := v.(type) {
	case *practice.MediaBundle:
		if t == nil {
			return sql.NullString{}, nil
		}
	case []practice.ContextPanel:
		if t == nil {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
