package practice

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const questionRowSchemaURL = "schema://question-row.json"

// questionRowSchema describes the loosely typed rows returned by the question
// query. Optional descriptive fields may be missing or null.
const questionRowSchema = `{
  "type": "object",
  "required": ["id", "slug", "stem_md"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "slug": {"type": "string"},
    "stem_md": {"type": "string"},
    "lead_in": {"type": ["string", "null"]},
    "explanation_brief_md": {"type": ["string", "null"]},
    "explanation_deep_md": {"type": ["string", "null"]},
    "topic": {"type": ["string", "null"]},
    "subtopic": {"type": ["string", "null"]},
    "lesion": {"type": ["string", "null"]},
    "difficulty": {"enum": ["easy", "med", "hard", null]},
    "media_bundle": {
      "type": ["object", "null"],
      "required": ["id"],
      "properties": {
        "id": {"type": "string"},
        "murmur_url": {"type": ["string", "null"]},
        "cxr_url": {"type": ["string", "null"]},
        "ekg_url": {"type": ["string", "null"]},
        "diagram_url": {"type": ["string", "null"]},
        "alt_text": {"type": ["string", "null"]}
      }
    },
    "context_panels": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["id", "kind"],
        "properties": {
          "id": {"type": "string"},
          "kind": {"enum": ["labs", "formula"]},
          "title": {"type": ["string", "null"]},
          "labs": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["label", "value"],
              "properties": {
                "label": {"type": "string"},
                "value": {"type": "string"},
                "unit": {"type": ["string", "null"]}
              }
            }
          },
          "formulas": {
            "type": ["array", "null"],
            "items": {
              "type": "object",
              "required": ["name", "expression"],
              "properties": {
                "name": {"type": "string"},
                "expression": {"type": "string"}
              }
            }
          },
          "body_md": {"type": ["string", "null"]}
        }
      }
    },
    "choices": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["id", "label", "text_md", "is_correct"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "label": {"type": "string", "minLength": 1},
          "text_md": {"type": "string"},
          "is_correct": {"type": "boolean"}
        }
      }
    }
  }
}`

var compiledRowSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(questionRowSchema))
	if err != nil {
		return nil, fmt.Errorf("parse question row schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(questionRowSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	return c.Compile(questionRowSchemaURL)
})

// questionRow mirrors the wire shape of a question query row.
type questionRow struct {
	ID                 string         `json:"id"`
	Slug               string         `json:"slug"`
	StemMD             string         `json:"stem_md"`
	LeadIn             *string        `json:"lead_in"`
	ExplanationBriefMD *string        `json:"explanation_brief_md"`
	ExplanationDeepMD  *string        `json:"explanation_deep_md"`
	Topic              *string        `json:"topic"`
	Subtopic           *string        `json:"subtopic"`
	Lesion             *string        `json:"lesion"`
	Difficulty         *string        `json:"difficulty"`
	MediaBundle        *MediaBundle   `json:"media_bundle"`
	ContextPanels      []ContextPanel `json:"context_panels"`
	Choices            []Choice       `json:"choices"`
}

// NormalizeQuestion validates one raw row and converts it to a Question.
// Missing choices become an empty list and choices are ordered by label.
func NormalizeQuestion(raw json.RawMessage) (Question, error) {
	return normalizeWith(newLabelCollator(), raw)
}

// NormalizeRows converts every valid row. Rows failing validation are
// skipped and reported as *RowError values joined into the returned error;
// the valid rows are returned regardless.
func NormalizeRows(rows []json.RawMessage) ([]Question, error) {
	col := newLabelCollator()
	out := make([]Question, 0, len(rows))
	var errs []error
	for i, raw := range rows {
		q, err := normalizeWith(col, raw)
		if err != nil {
			errs = append(errs, &RowError{Index: i, ID: rowID(raw), Err: err})
			continue
		}
		out = append(out, q)
	}
	return out, errors.Join(errs...)
}

func normalizeWith(col *collate.Collator, raw json.RawMessage) (Question, error) {
	if err := validateRow(raw); err != nil {
		return Question{}, err
	}

	var row questionRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return Question{}, fmt.Errorf("decode row: %w", err)
	}

	choices := slices.Clone(row.Choices)
	if choices == nil {
		choices = []Choice{}
	}
	slices.SortStableFunc(choices, func(a, b Choice) int {
		return col.CompareString(a.Label, b.Label)
	})

	q := Question{
		ID:                row.ID,
		Slug:              row.Slug,
		StemMD:            row.StemMD,
		LeadIn:            row.LeadIn,
		ExplanationDeepMD: row.ExplanationDeepMD,
		Topic:             row.Topic,
		Subtopic:          row.Subtopic,
		Lesion:            row.Lesion,
		Difficulty:        row.Difficulty,
		Media:             row.MediaBundle,
		ContextPanels:     row.ContextPanels,
		Choices:           choices,
	}
	if row.ExplanationBriefMD != nil {
		q.ExplanationBriefMD = *row.ExplanationBriefMD
	}
	return q, nil
}

func validateRow(raw json.RawMessage) error {
	schema, err := compiledRowSchema()
	if err != nil {
		return fmt.Errorf("compile question row schema: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// rowID extracts the id of a row for error reporting, best effort.
func rowID(raw json.RawMessage) string {
	var head struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &head)
	return head.ID
}

// newLabelCollator returns a collator for choice labels. Collators keep
// internal buffers, so each normalization pass gets its own.
func newLabelCollator() *collate.Collator {
	return collate.New(language.English)
}
