// Package importer loads authored questions from the admin CSV format.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/chdqbank/qbank/internal/practice"
	"github.com/chdqbank/qbank/internal/store"
)

// ChoiceLabels are the choice columns in order.
var ChoiceLabels = []string{"A", "B", "C", "D", "E"}

var requiredHeaders = []string{"slug", "stem_md", "choiceA", "choiceB", "correct_label"}

var statuses = []string{store.StatusDraft, store.StatusPublished, store.StatusArchived}

// ErrMissingHeader is returned when a required column is absent.
var ErrMissingHeader = errors.New("importer: missing required column")

// RowError reports a CSV row that failed validation.
type RowError struct {
	Line int
	Slug string
	Err  error
}

func (e *RowError) Error() string {
	if e.Slug != "" {
		return fmt.Sprintf("line %d (%s): %v", e.Line, e.Slug, e.Err)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Result summarizes an import.
type Result struct {
	Imported int
	Rejected []*RowError
}

// Upserter persists validated questions.
type Upserter interface {
	UpsertQuestions(ctx context.Context, inputs []store.QuestionInput) ([]string, error)
}

// Importer validates CSV rows and writes the valid ones in one batch.
type Importer struct {
	repo   Upserter
	logger *slog.Logger
}

// New creates an Importer.
func New(repo Upserter, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Importer{repo: repo, logger: logger}
}

// Import parses r and upserts every valid row. Invalid rows are reported in
// the result and do not stop the import; a malformed file or a write
// failure returns an error and imports nothing.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Result, error) {
	inputs, rejected, err := Parse(r)
	if err != nil {
		return Result{}, err
	}
	for _, re := range rejected {
		im.logger.Warn("rejected csv row", "line", re.Line, "slug", re.Slug, "error", re.Err)
	}
	if len(inputs) == 0 {
		return Result{Rejected: rejected}, nil
	}

	ids, err := im.repo.UpsertQuestions(ctx, inputs)
	if err != nil {
		return Result{Rejected: rejected}, fmt.Errorf("import questions: %w", err)
	}
	im.logger.Info("imported questions", "count", len(ids), "rejected", len(rejected))
	return Result{Imported: len(ids), Rejected: rejected}, nil
}

// Parse reads the CSV and converts each valid row. Row errors carry the
// 1-based line of the file.
func Parse(r io.Reader) ([]store.QuestionInput, []*RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		cols[h] = i
	}
	for _, h := range requiredHeaders {
		if _, ok := cols[h]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingHeader, h)
		}
	}

	var (
		inputs   []store.QuestionInput
		rejected []*RowError
		seen     = make(map[string]int)
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		row := record{cols: cols, values: rec}
		if row.blank() {
			continue
		}

		slug := row.get("slug")
		in, err := row.question()
		if err == nil {
			if first, dup := seen[slug]; dup {
				err = fmt.Errorf("duplicate slug, first seen on line %d", first)
			}
		}
		if err != nil {
			rejected = append(rejected, &RowError{Line: line, Slug: slug, Err: err})
			continue
		}
		seen[slug] = line
		inputs = append(inputs, in)
	}
	return inputs, rejected, nil
}

// record is one CSV row addressed by header name.
type record struct {
	cols   map[string]int
	values []string
}

func (r record) get(name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(r.values) {
		return ""
	}
	return strings.TrimSpace(r.values[i])
}

func (r record) optional(name string) *string {
	if v := r.get(name); v != "" {
		return &v
	}
	return nil
}

func (r record) blank() bool {
	for _, v := range r.values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (r record) question() (store.QuestionInput, error) {
	in := store.QuestionInput{
		Slug:               r.get("slug"),
		StemMD:             r.get("stem_md"),
		LeadIn:             r.optional("lead_in"),
		ExplanationBriefMD: r.optional("explanation_brief_md"),
		ExplanationDeepMD:  r.optional("explanation_deep_md"),
		Topic:              r.optional("topic"),
		Subtopic:           r.optional("subtopic"),
		Lesion:             r.optional("lesion"),
		Difficulty:         r.optional("difficulty"),
		Status:             strings.ToLower(r.get("status")),
	}
	if in.Slug == "" {
		return in, errors.New("slug is required")
	}
	if in.StemMD == "" {
		return in, errors.New("stem_md is required")
	}
	if in.Difficulty != nil && !slices.Contains(practice.Difficulties, *in.Difficulty) {
		return in, fmt.Errorf("difficulty %q must be one of %s", *in.Difficulty, strings.Join(practice.Difficulties, ", "))
	}
	if in.Status == "" {
		in.Status = store.StatusPublished
	} else if !slices.Contains(statuses, in.Status) {
		return in, fmt.Errorf("status %q must be one of %s", in.Status, strings.Join(statuses, ", "))
	}

	correct := strings.ToUpper(r.get("correct_label"))
	found := false
	for _, label := range ChoiceLabels {
		text := r.get("choice" + label)
		if text == "" {
			continue
		}
		isCorrect := label == correct
		found = found || isCorrect
		in.Choices = append(in.Choices, store.ChoiceInput{Label: label, TextMD: text, IsCorrect: isCorrect})
	}
	if len(in.Choices) < 2 {
		return in, fmt.Errorf("need at least two choices, got %d", len(in.Choices))
	}
	if !found {
		return in, fmt.Errorf("correct_label %q does not name a provided choice", r.get("correct_label"))
	}

	media := &practice.MediaBundle{
		MurmurURL:  r.optional("media_murmur"),
		CXRURL:     r.optional("media_cxr"),
		EKGURL:     r.optional("media_ekg"),
		DiagramURL: r.optional("media_diagram"),
		AltText:    r.optional("alt_text"),
	}
	if media.MurmurURL != nil || media.CXRURL != nil || media.EKGURL != nil || media.DiagramURL != nil || media.AltText != nil {
		media.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("qbank/media/"+in.Slug)).String()
		in.Media = media
	}
	return in, nil
}
