package practice

import "context"

// QuestionSource serves pages of published questions.
type QuestionSource interface {
	// FetchQuestions returns the rows of one page ordered by id ascending,
	// filtered by the non-"all" values of q.Filters.
	FetchQuestions(ctx context.Context, q PageQuery) (*QuestionPage, error)
}

// ResponseStore persists per-user responses.
type ResponseStore interface {
	// LatestResponse returns the most recent response of userID for
	// questionID, or nil if none exists.
	LatestResponse(ctx context.Context, userID, questionID string) (*Response, error)

	// ResponsesFor returns the latest response per question for the given ids.
	// Questions without a response are absent from the result.
	ResponsesFor(ctx context.Context, userID string, questionIDs []string) (map[string]Response, error)

	// InsertResponse creates a row and returns it as persisted.
	InsertResponse(ctx context.Context, r NewResponse) (*Response, error)

	// UpdateResponse applies patch to the row with the given id and returns
	// the updated row, or nil if no such row exists.
	UpdateResponse(ctx context.Context, id string, patch ResponsePatch) (*Response, error)
}

// Scorer runs the points side effect for a newly correct response.
type Scorer interface {
	IncrementPoints(ctx context.Context, ev ScoreEvent) error
}

// Auth exposes the signed-in user from cached session state.
type Auth interface {
	CurrentUser() (userID string, ok bool)
}

// Backend bundles the remote collaborators. A single store value usually
// satisfies all three.
type Backend interface {
	QuestionSource
	ResponseStore
	Scorer
}
