package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chdqbank/qbank/internal/practice"
	"github.com/chdqbank/qbank/internal/store"
)

type mockSource struct {
	recs      []store.ResponseRecord
	points    map[time.Time]int
	err       error
	sinceSeen []time.Time
}

func (m *mockSource) ResponsesSince(_ context.Context, _ string, since time.Time) ([]store.ResponseRecord, error) {
	m.sinceSeen = append(m.sinceSeen, since)
	if m.err != nil {
		return nil, m.err
	}
	var out []store.ResponseRecord
	for _, r := range m.recs {
		if !r.CreatedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockSource) PointsSince(_ context.Context, _ string, since time.Time) (int, error) {
	return m.points[since], nil
}

func answered(at time.Time, correct bool) store.ResponseRecord {
	c := "c"
	return store.ResponseRecord{
		Response:  practice.Response{ChoiceID: &c, IsCorrect: correct},
		CreatedAt: at,
	}
}

func flagOnly(at time.Time) store.ResponseRecord {
	return store.ResponseRecord{Response: practice.Response{Flagged: true}, CreatedAt: at}
}

// Wednesday.
var now = time.Date(2026, 3, 18, 15, 30, 0, 0, time.UTC)

func TestWeekStart(t *testing.T) {
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{now, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 3, 22, 23, 59, 0, 0, time.UTC), time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		assert.True(t, tt.want.Equal(WeekStart(tt.in)), "WeekStart(%v) = %v", tt.in, WeekStart(tt.in))
	}
}

func TestWeeklyTrend(t *testing.T) {
	src := &mockSource{recs: []store.ResponseRecord{
		answered(now.AddDate(0, 0, -70), true), // outside window
		answered(now.AddDate(0, 0, -14), true),
		answered(now.AddDate(0, 0, -14), false),
		answered(now, true),
		flagOnly(now),
	}}
	svc := NewService(src)

	points, err := svc.WeeklyTrend(context.Background(), "u1", 4, now)
	require.NoError(t, err)
	require.Len(t, points, 4)
	assert.True(t, points[0].WeekStart.Equal(time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Feb 23", points[0].Label)

	assert.Equal(t, 0, points[0].Attempts)
	assert.Nil(t, points[0].Accuracy)
	assert.Equal(t, 2, points[1].Attempts)
	require.NotNil(t, points[1].Accuracy)
	assert.InDelta(t, 50.0, *points[1].Accuracy, 1e-9)
	assert.Equal(t, 0, points[2].Attempts)
	assert.Equal(t, 1, points[3].Attempts)
	assert.InDelta(t, 100.0, *points[3].Accuracy, 1e-9)

	assert.True(t, src.sinceSeen[0].Equal(points[0].WeekStart))
	assert.Equal(t, 1, WeeklyStreak(points))
}

func TestWeeklyTrendError(t *testing.T) {
	svc := NewService(&mockSource{err: errors.New("offline")})
	_, err := svc.WeeklyTrend(context.Background(), "u1", 0, now)
	assert.ErrorContains(t, err, "offline")
}

func TestWeeklyStreak(t *testing.T) {
	mk := func(attempts ...int) []TrendPoint {
		out := make([]TrendPoint, len(attempts))
		for i, a := range attempts {
			out[i].Attempts = a
		}
		return out
	}
	assert.Equal(t, 0, WeeklyStreak(nil))
	assert.Equal(t, 0, WeeklyStreak(mk(3, 2, 0)))
	assert.Equal(t, 2, WeeklyStreak(mk(3, 0, 1, 4)))
	assert.Equal(t, 3, WeeklyStreak(mk(1, 1, 1)))
}

func TestDashboard(t *testing.T) {
	src := &mockSource{
		recs: []store.ResponseRecord{
			answered(now.AddDate(0, 0, -30), true),
			answered(now, false),
			flagOnly(now),
		},
		points: map[time.Time]int{
			{}:            7,
			WeekStart(now): 2,
		},
	}
	src.recs[1].Flagged = true

	d, err := NewService(src).Dashboard(context.Background(), "u1", now)
	require.NoError(t, err)
	assert.Equal(t, Dashboard{
		TotalAttempts:   2,
		CorrectAttempts: 1,
		FlaggedCount:    2,
		WeeklyPoints:    2,
		AllTimePoints:   7,
	}, d)
}
