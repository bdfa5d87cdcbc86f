package practice

import (
	"errors"
	"fmt"
)

// User-facing messages surfaced through the session error state.
const (
	MsgSignInRequired = "You must be signed in to save your progress."
	MsgLoadResponse   = "We couldn't load your previous response. Check your connection and try again."
	MsgLoadResponses  = "We couldn't load your previous responses. Check your connection and try again."
	MsgSubmitResponse = "We couldn't submit your response. Please check your connection and try again."
	MsgUpdateResponse = "We couldn't update your response. Please try again."
	MsgSaveFlag       = "We couldn't save the flag. Please check your connection and try again."
	MsgUpdateFlag     = "We couldn't update the flag. Please try again."
	MsgPointsWarning  = "Your answer was saved, but we couldn't update your points. Please try again later."
)

// Write operations reported in WriteError.Op.
const (
	OpLookupResponse = "lookup response"
	OpInsertResponse = "insert response"
	OpUpdateResponse = "update response"
	OpInsertFlag     = "insert flag"
	OpUpdateFlag     = "update flag"
)

var (
	// ErrNoSession is returned when a write is attempted without a signed-in user.
	ErrNoSession = errors.New("practice: no signed-in user")

	// ErrSubmitPending is returned when a write starts while another write
	// of the same session is still in flight.
	ErrSubmitPending = errors.New("practice: a response write is already in progress")

	// ErrUnknownChoice is returned when the submitted choice does not belong
	// to the current question.
	ErrUnknownChoice = errors.New("practice: choice does not belong to the current question")

	// errMissingRow marks a write that succeeded without returning the row.
	errMissingRow = errors.New("store returned no row")
)

// WriteError reports a failed remote write. Message is the fixed text shown
// to the learner; the caller must roll back any optimistic state.
type WriteError struct {
	Op      string
	Message string
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// RowError reports a raw question row rejected by the normalizer.
type RowError struct {
	Index int
	ID    string
	Err   error
}

func (e *RowError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("question row %d (%s): %v", e.Index, e.ID, e.Err)
	}
	return fmt.Sprintf("question row %d: %v", e.Index, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }
