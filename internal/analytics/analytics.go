// Package analytics summarizes a learner's practice history.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/chdqbank/qbank/internal/store"
)

// DefaultWeeks is the trend window shown by default.
const DefaultWeeks = 8

// Source reads practice history.
type Source interface {
	ResponsesSince(ctx context.Context, userID string, since time.Time) ([]store.ResponseRecord, error)
	PointsSince(ctx context.Context, userID string, since time.Time) (int, error)
}

// TrendPoint is one week of practice.
type TrendPoint struct {
	WeekStart time.Time
	Label     string
	Attempts  int
	Correct   int
	// Accuracy is a percentage, nil for weeks without attempts.
	Accuracy *float64
}

// Dashboard holds the headline counters.
type Dashboard struct {
	TotalAttempts   int
	CorrectAttempts int
	FlaggedCount    int
	WeeklyPoints    int
	AllTimePoints   int
}

// Service computes analytics from a Source.
type Service struct {
	src Source
}

// NewService creates an analytics service.
func NewService(src Source) *Service {
	return &Service{src: src}
}

// WeekStart returns the UTC Monday 00:00 of the week containing t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// WeeklyTrend returns the last weeks weeks of attempts, oldest first,
// ending with the week containing now.
func (s *Service) WeeklyTrend(ctx context.Context, userID string, weeks int, now time.Time) ([]TrendPoint, error) {
	if weeks <= 0 {
		weeks = DefaultWeeks
	}
	earliest := WeekStart(now).AddDate(0, 0, -7*(weeks-1))
	recs, err := s.src.ResponsesSince(ctx, userID, earliest)
	if err != nil {
		return nil, fmt.Errorf("load trend responses: %w", err)
	}
	return BucketWeekly(recs, weeks, now), nil
}

// BucketWeekly groups answered responses into weekly buckets. Responses
// outside the window and flag-only rows are ignored.
func BucketWeekly(recs []store.ResponseRecord, weeks int, now time.Time) []TrendPoint {
	earliest := WeekStart(now).AddDate(0, 0, -7*(weeks-1))
	points := make([]TrendPoint, weeks)
	for i := range points {
		start := earliest.AddDate(0, 0, 7*i)
		points[i] = TrendPoint{WeekStart: start, Label: start.Format("Jan 2")}
	}

	for _, r := range recs {
		if !r.Answered() {
			continue
		}
		ws := WeekStart(r.CreatedAt)
		if ws.Before(earliest) {
			continue
		}
		i := int(ws.Sub(earliest).Hours() / (24 * 7))
		if i >= weeks {
			continue
		}
		points[i].Attempts++
		if r.IsCorrect {
			points[i].Correct++
		}
	}

	for i := range points {
		if points[i].Attempts > 0 {
			acc := float64(points[i].Correct) / float64(points[i].Attempts) * 100
			points[i].Accuracy = &acc
		}
	}
	return points
}

// WeeklyStreak counts the trailing weeks with at least one attempt.
func WeeklyStreak(points []TrendPoint) int {
	streak := 0
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].Attempts == 0 {
			break
		}
		streak++
	}
	return streak
}

// Dashboard returns the headline counters of userID as of now.
func (s *Service) Dashboard(ctx context.Context, userID string, now time.Time) (Dashboard, error) {
	recs, err := s.src.ResponsesSince(ctx, userID, time.Time{})
	if err != nil {
		return Dashboard{}, fmt.Errorf("load responses: %w", err)
	}

	var d Dashboard
	for _, r := range recs {
		if r.Flagged {
			d.FlaggedCount++
		}
		if !r.Answered() {
			continue
		}
		d.TotalAttempts++
		if r.IsCorrect {
			d.CorrectAttempts++
		}
	}

	if d.WeeklyPoints, err = s.src.PointsSince(ctx, userID, WeekStart(now)); err != nil {
		return Dashboard{}, fmt.Errorf("load weekly points: %w", err)
	}
	if d.AllTimePoints, err = s.src.PointsSince(ctx, userID, time.Time{}); err != nil {
		return Dashboard{}, fmt.Errorf("load points: %w", err)
	}
	return d, nil
}
