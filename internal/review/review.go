// Package review serves the learner's queue of flagged questions.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chdqbank/qbank/internal/practice"
	"github.com/chdqbank/qbank/internal/store"
)

// MsgUnflagged is shown after a question leaves the queue.
const MsgUnflagged = "Removed from review queue. Nice work!"

// ErrNotFlagged is returned when unflagging a response that is not in the
// learner's queue.
var ErrNotFlagged = errors.New("review: response is not flagged by this user")

// Repo reads and updates flagged responses.
type Repo interface {
	FlaggedResponses(ctx context.Context, userID string) ([]store.FlaggedItem, error)
	Unflag(ctx context.Context, userID, responseID string) (bool, error)
}

// Item is one entry of the review queue.
type Item struct {
	ResponseID string
	QuestionID string
	Slug       string
	Prompt     string
	Answered   bool
	IsCorrect  bool
	FlaggedAt  string
}

// Service lists and clears flagged questions for the signed-in user.
type Service struct {
	repo Repo
	auth practice.Auth
}

// NewService creates a review service.
func NewService(repo Repo, auth practice.Auth) *Service {
	return &Service{repo: repo, auth: auth}
}

// Queue returns the flagged questions, newest first.
func (s *Service) Queue(ctx context.Context) ([]Item, error) {
	userID, ok := s.auth.CurrentUser()
	if !ok {
		return nil, practice.ErrNoSession
	}
	flagged, err := s.repo.FlaggedResponses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load review queue: %w", err)
	}

	items := make([]Item, 0, len(flagged))
	for _, f := range flagged {
		items = append(items, Item{
			ResponseID: f.ID,
			QuestionID: f.QuestionID,
			Slug:       f.Slug,
			Prompt:     Prompt(f.StemMD, f.LeadIn),
			Answered:   f.Answered(),
			IsCorrect:  f.IsCorrect,
			FlaggedAt:  f.CreatedAt.Format("2006-01-02"),
		})
	}
	return items, nil
}

// Unflag removes a response from the queue.
func (s *Service) Unflag(ctx context.Context, responseID string) error {
	userID, ok := s.auth.CurrentUser()
	if !ok {
		return practice.ErrNoSession
	}
	changed, err := s.repo.Unflag(ctx, userID, responseID)
	if err != nil {
		return fmt.Errorf("unflag %s: %w", responseID, err)
	}
	if !changed {
		return ErrNotFlagged
	}
	return nil
}

// Prompt joins the stem and the lead-in into one line of plain text.
func Prompt(stem string, leadIn *string) string {
	text := strings.Join(strings.Fields(stem), " ")
	if leadIn != nil && strings.TrimSpace(*leadIn) != "" {
		text += " " + strings.TrimSpace(*leadIn)
	}
	return text
}
