package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chdqbank/qbank/internal/practice"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	s, err := Open(dsn)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

func seedQuestion(t *testing.T, s *Store, slug, topic, difficulty, status string) string {
	t.Helper()
	ids, err := s.UpsertQuestions(context.Background(), []QuestionInput{{
		Slug:       slug,
		StemMD:     "Stem for " + slug,
		LeadIn:     ptr("Which is most likely?"),
		Topic:      ptr(topic),
		Lesion:     ptr(topic + "-lesion"),
		Difficulty: ptr(difficulty),
		Status:     status,
		Choices: []ChoiceInput{
			{Label: "B", TextMD: "wrong", IsCorrect: false},
			{Label: "A", TextMD: "right", IsCorrect: true},
		},
	}})
	require.NoError(t, err)
	return ids[0]
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	require.NotNil(t, s.DB())
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestDefaultDBPath(t *testing.T) {
	dir := t.TempDir()

	t.Run("env override", func(t *testing.T) {
		t.Setenv("QBANK_DB", dir+"/custom/bank.db")
		p, err := DefaultDBPath()
		require.NoError(t, err)
		assert.Equal(t, dir+"/custom/bank.db", p)
		assert.DirExists(t, dir+"/custom")
	})

	t.Run("xdg", func(t *testing.T) {
		t.Setenv("QBANK_DB", "")
		t.Setenv("XDG_DATA_HOME", dir)
		p, err := DefaultDBPath()
		require.NoError(t, err)
		assert.Equal(t, dir+"/qbank/qbank.db", p)
	})
}

func TestFetchQuestions_FiltersAndPaging(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for i := range 12 {
		seedQuestion(t, s, fmt.Sprintf("valve-%02d", i), "Valvular", "easy", StatusPublished)
	}
	seedQuestion(t, s, "cm-1", "Cardiomyopathy", "hard", StatusPublished)
	seedQuestion(t, s, "draft-1", "Valvular", "easy", StatusDraft)

	page, err := s.FetchQuestions(ctx, practice.PageQuery{Page: 0, PageSize: 10, Filters: practice.DefaultFilters()})
	require.NoError(t, err)
	require.NotNil(t, page.Total)
	assert.Equal(t, 13, *page.Total)
	assert.Len(t, page.Rows, 10)

	page, err = s.FetchQuestions(ctx, practice.PageQuery{Page: 1, PageSize: 10, Filters: practice.DefaultFilters()})
	require.NoError(t, err)
	assert.Len(t, page.Rows, 3)

	f := practice.DefaultFilters()
	f.Difficulty = "hard"
	page, err = s.FetchQuestions(ctx, practice.PageQuery{PageSize: 10, Filters: f})
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, 1, *page.Total)

	q, err := practice.NormalizeQuestion(page.Rows[0])
	require.NoError(t, err)
	assert.Equal(t, "cm-1", q.Slug)
	require.Len(t, q.Choices, 2)
	assert.Equal(t, "A", q.Choices[0].Label)
	assert.True(t, q.Choices[0].IsCorrect)
	assert.Equal(t, ChoiceID(q.ID, "A"), q.Choices[0].ID)
}

func TestFetchQuestions_OrderedByID(t *testing.T) {
	s := openTestStore(t)
	for i := range 5 {
		seedQuestion(t, s, fmt.Sprintf("q-%d", i), "Valvular", "med", StatusPublished)
	}
	page, err := s.FetchQuestions(context.Background(), practice.PageQuery{PageSize: 10, Filters: practice.DefaultFilters()})
	require.NoError(t, err)

	var prev string
	for _, raw := range page.Rows {
		var head struct{ ID string }
		require.NoError(t, json.Unmarshal(raw, &head))
		assert.Greater(t, head.ID, prev)
		prev = head.ID
	}
}

func TestUpsertQuestions_KeepsIDsAndReplacesChoices(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id := seedQuestion(t, s, "as-1", "Valvular", "easy", StatusPublished)

	media := &practice.MediaBundle{ID: "m1", MurmurURL: ptr("https://cdn/as.mp3")}
	ids, err := s.UpsertQuestions(ctx, []QuestionInput{{
		Slug:    "as-1",
		StemMD:  "Revised stem",
		Status:  StatusPublished,
		Media:   media,
		Choices: []ChoiceInput{{Label: "A", TextMD: "now wrong"}, {Label: "C", TextMD: "now right", IsCorrect: true}},
	}})
	require.NoError(t, err)
	assert.Equal(t, id, ids[0])

	page, err := s.FetchQuestions(ctx, practice.PageQuery{PageSize: 10, Filters: practice.DefaultFilters()})
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	q, err := practice.NormalizeQuestion(page.Rows[0])
	require.NoError(t, err)
	assert.Equal(t, "Revised stem", q.StemMD)
	assert.Nil(t, q.Topic)
	require.NotNil(t, q.Media)
	assert.Equal(t, "https://cdn/as.mp3", *q.Media.MurmurURL)

	labels := []string{}
	for _, c := range q.Choices {
		labels = append(labels, c.Label)
	}
	assert.Equal(t, []string{"A", "C"}, labels)
	correct, ok := q.CorrectChoice()
	require.True(t, ok)
	assert.Equal(t, "C", correct.Label)
}

func TestTopicsAndLesions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedQuestion(t, s, "v1", "Valvular", "easy", StatusPublished)
	seedQuestion(t, s, "v2", "Valvular", "easy", StatusPublished)
	seedQuestion(t, s, "c1", "Congenital", "med", StatusPublished)
	seedQuestion(t, s, "x1", "Hidden", "med", StatusDraft)

	topics, err := s.Topics(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Congenital", "Valvular"}, topics)

	lesions, err := s.Lesions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Congenital-lesion", "Valvular-lesion"}, lesions)
}

func TestResponses_InsertUpdateLookup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	qid := seedQuestion(t, s, "q1", "Valvular", "easy", StatusPublished)

	got, err := s.LatestResponse(ctx, "u1", qid)
	require.NoError(t, err)
	assert.Nil(t, got)

	inserted, err := s.InsertResponse(ctx, practice.NewResponse{
		UserID:     "u1",
		QuestionID: qid,
		ChoiceID:   ptr(ChoiceID(qid, "B")),
		MsToAnswer: ptr(4200),
	})
	require.NoError(t, err)
	require.NotNil(t, inserted)
	assert.False(t, inserted.IsCorrect)
	assert.Equal(t, 4200, *inserted.MsToAnswer)

	_, err = s.InsertResponse(ctx, practice.NewResponse{UserID: "u1", QuestionID: qid})
	assert.Error(t, err, "second row for the same pair must fail")

	updated, err := s.UpdateResponse(ctx, inserted.ID, practice.ResponsePatch{
		ChoiceID:  ptr(ChoiceID(qid, "A")),
		IsCorrect: ptr(true),
		Flagged:   ptr(true),
	})
	require.NoError(t, err)
	assert.True(t, updated.IsCorrect)
	assert.True(t, updated.Flagged)
	assert.Equal(t, 4200, *updated.MsToAnswer, "untouched field kept")

	latest, err := s.LatestResponse(ctx, "u1", qid)
	require.NoError(t, err)
	assert.Equal(t, *updated, *latest)

	missing, err := s.UpdateResponse(ctx, "nope", practice.ResponsePatch{Flagged: ptr(false)})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestResponses_NewestCreatedFirst(t *testing.T) {
	query, _ := newestFirst(entsql.EQ("user_id", "u1")).Query()
	assert.Regexp(t, `ORDER BY .?created_at.? DESC`, query)
}

func TestResponsesFor(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	q1 := seedQuestion(t, s, "q1", "Valvular", "easy", StatusPublished)
	q2 := seedQuestion(t, s, "q2", "Valvular", "easy", StatusPublished)
	q3 := seedQuestion(t, s, "q3", "Valvular", "easy", StatusPublished)

	_, err := s.InsertResponse(ctx, practice.NewResponse{UserID: "u1", QuestionID: q1, Flagged: true})
	require.NoError(t, err)
	_, err = s.InsertResponse(ctx, practice.NewResponse{UserID: "u2", QuestionID: q2, Flagged: true})
	require.NoError(t, err)

	got, err := s.ResponsesFor(ctx, "u1", []string{q1, q2, q3})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, got, q1)

	empty, err := s.ResponsesFor(ctx, "u1", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestIncrementPoints_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	qid := seedQuestion(t, s, "q1", "Valvular", "easy", StatusPublished)
	r, err := s.InsertResponse(ctx, practice.NewResponse{UserID: "u1", QuestionID: qid, ChoiceID: ptr("a"), IsCorrect: true})
	require.NoError(t, err)

	ev := practice.ScoreEvent{Source: practice.ScoreSourcePracticeResponse, SourceID: r.ID}
	require.NoError(t, s.IncrementPoints(ctx, ev))
	require.NoError(t, s.IncrementPoints(ctx, ev))

	points, err := s.PointsSince(ctx, "u1", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, points)

	none, err := s.PointsSince(ctx, "u2", time.Time{})
	require.NoError(t, err)
	assert.Zero(t, none)

	err = s.IncrementPoints(ctx, practice.ScoreEvent{Source: practice.ScoreSourcePracticeResponse, SourceID: "missing"})
	assert.True(t, errors.Is(err, ErrUnknownSource))
}

func TestPointsAndResponsesSince(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	q1 := seedQuestion(t, s, "q1", "Valvular", "easy", StatusPublished)
	q2 := seedQuestion(t, s, "q2", "Valvular", "easy", StatusPublished)

	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return base })
	r1, err := s.InsertResponse(ctx, practice.NewResponse{UserID: "u1", QuestionID: q1, ChoiceID: ptr("a"), IsCorrect: true})
	require.NoError(t, err)
	require.NoError(t, s.IncrementPoints(ctx, practice.ScoreEvent{Source: practice.ScoreSourcePracticeResponse, SourceID: r1.ID}))

	s.SetClock(func() time.Time { return base.Add(8 * 24 * time.Hour) })
	r2, err := s.InsertResponse(ctx, practice.NewResponse{UserID: "u1", QuestionID: q2, ChoiceID: ptr("a"), IsCorrect: true})
	require.NoError(t, err)
	require.NoError(t, s.IncrementPoints(ctx, practice.ScoreEvent{Source: practice.ScoreSourcePracticeResponse, SourceID: r2.ID}))

	since := base.Add(7 * 24 * time.Hour)
	recent, err := s.ResponsesSince(ctx, "u1", since)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, q2, recent[0].QuestionID)
	assert.True(t, base.Add(8*24*time.Hour).Equal(recent[0].CreatedAt))

	all, err := s.ResponsesSince(ctx, "u1", time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	weekly, err := s.PointsSince(ctx, "u1", since)
	require.NoError(t, err)
	assert.Equal(t, 1, weekly)
}

func TestFlaggedResponses(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	q1 := seedQuestion(t, s, "first", "Valvular", "easy", StatusPublished)
	q2 := seedQuestion(t, s, "second", "Valvular", "easy", StatusPublished)
	q3 := seedQuestion(t, s, "third", "Valvular", "easy", StatusPublished)

	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	for i, qid := range []string{q1, q2, q3} {
		s.SetClock(func() time.Time { return base.Add(time.Duration(i) * time.Minute) })
		_, err := s.InsertResponse(ctx, practice.NewResponse{UserID: "u1", QuestionID: qid, Flagged: qid != q2})
		require.NoError(t, err)
	}

	items, err := s.FlaggedResponses(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "third", items[0].Slug)
	assert.Equal(t, "first", items[1].Slug)
	assert.Equal(t, "Stem for third", items[0].StemMD)
	require.NotNil(t, items[0].LeadIn)
	assert.True(t, items[0].Flagged)

	changed, err := s.Unflag(ctx, "u2", items[0].ID)
	require.NoError(t, err)
	assert.False(t, changed, "other users cannot unflag")

	changed, err = s.Unflag(ctx, "u1", items[0].ID)
	require.NoError(t, err)
	assert.True(t, changed)

	items, err = s.FlaggedResponses(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "first", items[0].Slug)
}

func TestUsers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u, err := s.UserByEmail(ctx, "resident@example.com")
	require.NoError(t, err)
	assert.Nil(t, u)

	created, err := s.CreateUser(ctx, " Resident@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "resident@example.com", created.Email)
	require.NotNil(t, created.Alias)
	assert.Equal(t, "resident", *created.Alias)

	found, err := s.UserByEmail(ctx, "RESIDENT@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)

	byID, err := s.UserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, byID.Email)

	_, err = s.CreateUser(ctx, "resident@example.com")
	assert.Error(t, err)
}
