package store

import (
	"context"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table names.
const (
	tableUsers       = "users"
	tableQuestions   = "questions"
	tableChoices     = "choices"
	tableResponses   = "responses"
	tablePointEvents = "point_events"
)

// Question statuses. Only published questions are served to learners.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Timestamps are stored as UTC Unix milliseconds.
var (
	usersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "email", Type: field.TypeString, Unique: true},
		{Name: "alias", Type: field.TypeString, Nullable: true},
		{Name: "created_at", Type: field.TypeInt64},
	}
	usersTable = &schema.Table{
		Name:       tableUsers,
		Columns:    usersColumns,
		PrimaryKey: []*schema.Column{usersColumns[0]},
	}

	questionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "slug", Type: field.TypeString, Unique: true},
		{Name: "stem_md", Type: field.TypeString},
		{Name: "lead_in", Type: field.TypeString, Nullable: true},
		{Name: "explanation_brief_md", Type: field.TypeString, Nullable: true},
		{Name: "explanation_deep_md", Type: field.TypeString, Nullable: true},
		{Name: "topic", Type: field.TypeString, Nullable: true},
		{Name: "subtopic", Type: field.TypeString, Nullable: true},
		{Name: "lesion", Type: field.TypeString, Nullable: true},
		{Name: "difficulty", Type: field.TypeString, Nullable: true},
		{Name: "status", Type: field.TypeString},
		{Name: "media_bundle", Type: field.TypeString, Nullable: true},
		{Name: "context_panels", Type: field.TypeString, Nullable: true},
		{Name: "created_at", Type: field.TypeInt64},
		{Name: "updated_at", Type: field.TypeInt64},
	}
	questionsTable = &schema.Table{
		Name:       tableQuestions,
		Columns:    questionsColumns,
		PrimaryKey: []*schema.Column{questionsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "question_status_topic", Columns: []*schema.Column{questionsColumns[10], questionsColumns[6]}},
			{Name: "question_status_lesion", Columns: []*schema.Column{questionsColumns[10], questionsColumns[8]}},
		},
	}

	choicesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "question_id", Type: field.TypeString},
		{Name: "label", Type: field.TypeString},
		{Name: "text_md", Type: field.TypeString},
		{Name: "is_correct", Type: field.TypeBool},
	}
	choicesTable = &schema.Table{
		Name:       tableChoices,
		Columns:    choicesColumns,
		PrimaryKey: []*schema.Column{choicesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "choices_questions_choices",
				Columns:    []*schema.Column{choicesColumns[1]},
				RefColumns: []*schema.Column{questionsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "choice_question_id_label", Unique: true, Columns: []*schema.Column{choicesColumns[1], choicesColumns[2]}},
		},
	}

	responsesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "user_id", Type: field.TypeString},
		{Name: "question_id", Type: field.TypeString},
		{Name: "choice_id", Type: field.TypeString, Nullable: true},
		{Name: "is_correct", Type: field.TypeBool},
		{Name: "ms_to_answer", Type: field.TypeInt, Nullable: true},
		{Name: "flagged", Type: field.TypeBool},
		{Name: "created_at", Type: field.TypeInt64},
		{Name: "updated_at", Type: field.TypeInt64},
	}
	responsesTable = &schema.Table{
		Name:       tableResponses,
		Columns:    responsesColumns,
		PrimaryKey: []*schema.Column{responsesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "responses_questions_responses",
				Columns:    []*schema.Column{responsesColumns[2]},
				RefColumns: []*schema.Column{questionsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "response_user_id_question_id", Unique: true, Columns: []*schema.Column{responsesColumns[1], responsesColumns[2]}},
			{Name: "response_user_id_created_at", Columns: []*schema.Column{responsesColumns[1], responsesColumns[7]}},
		},
	}

	pointEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "user_id", Type: field.TypeString},
		{Name: "source", Type: field.TypeString},
		{Name: "source_id", Type: field.TypeString},
		{Name: "delta", Type: field.TypeInt},
		{Name: "created_at", Type: field.TypeInt64},
	}
	pointEventsTable = &schema.Table{
		Name:       tablePointEvents,
		Columns:    pointEventsColumns,
		PrimaryKey: []*schema.Column{pointEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "pointevent_source_source_id", Unique: true, Columns: []*schema.Column{pointEventsColumns[2], pointEventsColumns[3]}},
			{Name: "pointevent_user_id_created_at", Columns: []*schema.Column{pointEventsColumns[1], pointEventsColumns[5]}},
		},
	}

	tables = []*schema.Table{
		usersTable,
		questionsTable,
		choicesTable,
		responsesTable,
		pointEventsTable,
	}
)

func init() {
	choicesTable.ForeignKeys[0].RefTable = questionsTable
	responsesTable.ForeignKeys[0].RefTable = questionsTable
}

// migrate creates or updates every table.
func migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return err
	}
	return m.Create(ctx, tables...)
}
