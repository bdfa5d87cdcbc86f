package practice

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Deps are the collaborators of a Session.
type Deps struct {
	Questions QuestionSource
	Responses ResponseStore
	Scorer    Scorer
	Auth      Auth
	Logger    *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithConfig overrides the engine configuration.
func WithConfig(cfg Config) Option {
	return func(s *Session) { s.cfg = cfg.withDefaults() }
}

// WithRand sets the random source used to shuffle each page.
func WithRand(rng func() float64) Option {
	return func(s *Session) { s.rng = rng }
}

// WithFilters sets the filters of the first load.
func WithFilters(f Filters) Option {
	return func(s *Session) { s.filters = f.normalized() }
}

// Session owns the question list and response map of one practice run.
//
// All methods are safe for concurrent use. Remote calls are made without
// holding the lock, so loads may overlap; results of a load started under
// an older filter version are discarded when it completes. Writes
// (HandleAnswer, HandleFlagChange) are serialized: a write started while
// another is in flight returns ErrSubmitPending.
type Session struct {
	questions QuestionSource
	responses ResponseStore
	scorer    Scorer
	auth      Auth
	logger    *slog.Logger
	cfg       Config
	rng       func() float64

	mu          sync.Mutex
	items       []Question
	index       int
	page        int
	hasMore     bool
	inFlight    int
	loadedPages map[int]bool
	filters     Filters
	version     uint64
	generation  uint64
	entries     ResponseMap
	answers     map[string]AnswerState
	writing     bool
	errMsg      string
	closed      bool
}

// NewSession creates an idle session. Call Start to load the first page.
func NewSession(deps Deps, opts ...Option) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Session{
		questions:   deps.Questions,
		responses:   deps.Responses,
		scorer:      deps.Scorer,
		auth:        deps.Auth,
		logger:      logger,
		cfg:         DefaultConfig(),
		filters:     DefaultFilters(),
		hasMore:     true,
		loadedPages: make(map[int]bool),
		entries:     make(ResponseMap),
		answers:     make(map[string]AnswerState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start replaces the list with page 0 and hydrates the first question.
// It returns the number of questions loaded.
func (s *Session) Start(ctx context.Context) int {
	n := s.LoadPage(ctx, 0, true)
	s.HydrateCurrent(ctx)
	return n
}

// Close marks the session inactive. Results of calls still in flight are
// dropped instead of being applied.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// LoadPage fetches one page under the current filters and merges it into
// the list, or replaces the list when replace is set. A non-replace load
// is skipped while any load is in flight or when the page is already
// loaded. It returns the number of questions the page contributed; read
// failures are recorded in the error state and yield 0.
func (s *Session) LoadPage(ctx context.Context, page int, replace bool) int {
	s.mu.Lock()
	if s.closed || (!replace && (s.inFlight > 0 || s.loadedPages[page])) {
		s.mu.Unlock()
		return 0
	}
	version := s.version
	query := PageQuery{Page: page, PageSize: s.cfg.PageSize, Filters: s.filters}
	s.inFlight++
	s.errMsg = ""
	s.mu.Unlock()

	res, err := s.questions.FetchQuestions(ctx, query)
	if err == nil && res == nil {
		res = &QuestionPage{}
	}

	var questions []Question
	rowCount := 0
	if err == nil {
		rowCount = len(res.Rows)
		var rowErr error
		questions, rowErr = NormalizeRows(res.Rows)
		if rowErr != nil {
			s.logger.Warn("skipping invalid question rows", "page", page, "error", rowErr)
		}
		questions = ShuffleQuestions(questions, s.rng)
	}

	s.mu.Lock()
	s.inFlight--
	if s.closed {
		s.mu.Unlock()
		return 0
	}
	if version != s.version {
		s.mu.Unlock()
		s.logger.Debug("discarding stale page", "page", page, "version", version)
		return 0
	}
	if err != nil {
		s.errMsg = err.Error()
		s.mu.Unlock()
		s.logger.Warn("load question page", "page", page, "error", err)
		return 0
	}

	base := s.items
	if replace {
		base = nil
	}
	s.items = MergeQuestionPages(base, questions)
	if replace {
		s.loadedPages = map[int]bool{page: true}
		s.index = 0
		s.page = page
	} else {
		s.loadedPages[page] = true
		s.page = max(s.page, page)
	}
	s.hasMore = DetermineHasMore(res.Total, len(s.items), rowCount, s.cfg.PageSize)

	var pending []string
	generation := s.generation
	if s.cfg.HydratePages {
		for _, q := range questions {
			if !s.entries.Checked(q.ID) {
				pending = append(pending, q.ID)
			}
		}
	}
	s.mu.Unlock()

	if len(pending) > 0 {
		s.hydratePage(ctx, generation, pending)
	}
	return len(questions)
}

// hydratePage bulk-loads responses for questions never checked.
func (s *Session) hydratePage(ctx context.Context, generation uint64, ids []string) {
	userID, ok := s.currentUser()
	if !ok {
		return
	}
	found, err := s.responses.ResponsesFor(ctx, userID, ids)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || generation != s.generation {
		return
	}
	if err != nil {
		s.errMsg = MsgLoadResponses
		s.logger.Warn("hydrate page responses", "questions", len(ids), "error", err)
		return
	}
	for _, id := range ids {
		if s.entries.Checked(id) {
			continue
		}
		if r, ok := found[id]; ok {
			s.entries.Set(id, &r)
		} else {
			s.entries.Set(id, nil)
		}
	}
}

// HydrateCurrent looks up the stored response for the current question
// if it has never been checked.
func (s *Session) HydrateCurrent(ctx context.Context) {
	userID, ok := s.currentUser()
	if !ok {
		return
	}

	s.mu.Lock()
	q, has := s.current()
	if s.closed || !has || s.entries.Checked(q.ID) {
		s.mu.Unlock()
		return
	}
	generation := s.generation
	s.mu.Unlock()

	resp, err := s.responses.LatestResponse(ctx, userID, q.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || generation != s.generation {
		return
	}
	if err != nil {
		s.errMsg = MsgLoadResponse
		s.logger.Warn("lookup response", "question", q.ID, "error", err)
		return
	}
	if !s.entries.Checked(q.ID) {
		s.entries.Set(q.ID, resp)
	}
}

// UpdateFilters merges patch into the active filters. An unchanged result
// only clears the error. Otherwise the list, responses and position are
// reset and page 0 is reloaded. It reports whether a reload happened.
func (s *Session) UpdateFilters(ctx context.Context, patch FilterPatch) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	next := s.filters.Apply(patch)
	if next == s.filters {
		s.errMsg = ""
		s.mu.Unlock()
		return false
	}
	s.filters = next
	s.version++
	s.resetResponses()
	s.items = nil
	s.index = 0
	s.page = 0
	s.hasMore = true
	s.loadedPages = make(map[int]bool)
	s.mu.Unlock()

	s.logger.Debug("filters changed", "topic", next.Topic, "lesion", next.Lesion, "difficulty", next.Difficulty)
	s.LoadPage(ctx, 0, true)
	s.HydrateCurrent(ctx)
	return true
}

// ResetResponses forgets every response and answer state, for use when the
// signed-in user changes. The question list and position are kept; writes
// and lookups still in flight are not applied.
func (s *Session) ResetResponses() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.resetResponses()
	s.errMsg = ""
}

// resetResponses starts a new response generation. Callers hold s.mu.
func (s *Session) resetResponses() {
	s.generation++
	s.entries = make(ResponseMap)
	s.answers = make(map[string]AnswerState)
}

// Next advances to the following question. At the end of the loaded list
// it requests the next page and advances only if that page added
// questions. It reports whether the index moved.
func (s *Session) Next(ctx context.Context) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if s.index+1 < len(s.items) {
		s.index++
		s.mu.Unlock()
		return true
	}
	hasMore, page := s.hasMore, s.page
	s.mu.Unlock()

	if !hasMore {
		return false
	}
	if s.LoadPage(ctx, page+1, false) == 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	total := len(s.items)
	if total == 0 {
		return false
	}
	prev := s.index
	s.index = min(s.index+1, total-1)
	return s.index != prev
}

// Prefetch loads the next page when the learner is near the end of the
// loaded list and more pages may exist.
func (s *Session) Prefetch(ctx context.Context) int {
	s.mu.Lock()
	should := !s.closed && ShouldLoadNextPage(s.index, len(s.items), s.hasMore, s.cfg.PrefetchThreshold)
	page := s.page + 1
	s.mu.Unlock()
	if !should {
		return 0
	}
	return s.LoadPage(ctx, page, false)
}

// writeTarget is the session state a write works against.
type writeTarget struct {
	question   Question
	userID     string
	entry      Entry
	prev       AnswerState
	generation uint64
}

// live reports whether results of w may still be applied: the session is
// open and neither the filters nor the user changed since w began.
// Callers hold s.mu.
func (s *Session) live(w *writeTarget) bool {
	return !s.closed && w.generation == s.generation
}

// beginWrite claims the write slot. A nil target with a nil error means
// there is nothing to write to.
func (s *Session) beginWrite() (*writeTarget, error) {
	userID, signedIn := s.currentUser()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil
	}
	q, ok := s.current()
	if !ok {
		return nil, nil
	}
	if !signedIn {
		s.errMsg = MsgSignInRequired
		return nil, ErrNoSession
	}
	if s.writing {
		return nil, ErrSubmitPending
	}
	s.writing = true
	return &writeTarget{
		question: q,
		userID:   userID,
		entry:      s.entries.Entry(q.ID),
		prev:       s.answerState(q.ID),
		generation: s.generation,
	}, nil
}

func (s *Session) endWrite() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writing = false
}

// resolveExisting returns the stored response for the write target,
// consulting the store only when the map has never been checked.
func (s *Session) resolveExisting(ctx context.Context, w *writeTarget) (*Response, error) {
	if w.entry.State != NotChecked {
		return w.entry.Response, nil
	}
	resp, err := s.responses.LatestResponse(ctx, w.userID, w.question.ID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.live(w) && !s.entries.Checked(w.question.ID) {
		s.entries.Set(w.question.ID, resp)
	}
	s.mu.Unlock()
	return resp, nil
}

// failWrite records msg, rolls back the answer state when answer is set,
// and returns the error the caller must handle.
func (s *Session) failWrite(w *writeTarget, op, msg string, err error, answer bool) error {
	s.mu.Lock()
	if s.live(w) {
		s.errMsg = msg
		if answer {
			s.answers[w.question.ID] = s.answerState(w.question.ID).revert(w.prev)
		}
	}
	s.mu.Unlock()
	s.logger.Warn("response write failed", "op", op, "question", w.question.ID, "error", err)
	return &WriteError{Op: op, Message: msg, Err: err}
}

// HandleAnswer records choice as the learner's answer to the current
// question, inserting the response row on first write and updating it
// afterwards. Points are awarded once, when the saved response becomes
// correct for the first time; a scoring failure leaves the answer saved
// and only sets a warning. Write failures return a *WriteError after
// rolling the answer state back.
func (s *Session) HandleAnswer(ctx context.Context, choice Choice, elapsed time.Duration, flagged bool) error {
	w, err := s.beginWrite()
	if err != nil || w == nil {
		return err
	}
	defer s.endWrite()

	qid := w.question.ID
	idx := slices.IndexFunc(w.question.Choices, func(c Choice) bool { return c.ID == choice.ID })
	if idx < 0 {
		return ErrUnknownChoice
	}
	choice = w.question.Choices[idx]

	s.mu.Lock()
	if s.live(w) {
		s.answers[qid] = w.prev.submitting(choice.ID)
	}
	s.mu.Unlock()

	existing, err := s.resolveExisting(ctx, w)
	if err != nil {
		return s.failWrite(w, OpLookupResponse, MsgLoadResponse, err, true)
	}
	wasCorrect := existing != nil && existing.IsCorrect

	choiceID := choice.ID
	isCorrect := choice.IsCorrect
	ms := int(elapsed / time.Millisecond)

	var saved *Response
	if existing != nil {
		saved, err = s.responses.UpdateResponse(ctx, existing.ID, ResponsePatch{
			ChoiceID:   &choiceID,
			IsCorrect:  &isCorrect,
			MsToAnswer: &ms,
			Flagged:    &flagged,
		})
		if err == nil && saved == nil {
			err = errMissingRow
		}
		if err != nil {
			return s.failWrite(w, OpUpdateResponse, MsgUpdateResponse, err, true)
		}
	} else {
		saved, err = s.responses.InsertResponse(ctx, NewResponse{
			UserID:     w.userID,
			QuestionID: qid,
			ChoiceID:   &choiceID,
			IsCorrect:  isCorrect,
			MsToAnswer: &ms,
			Flagged:    flagged,
		})
		if err == nil && saved == nil {
			err = errMissingRow
		}
		if err != nil {
			return s.failWrite(w, OpInsertResponse, MsgSubmitResponse, err, true)
		}
	}

	s.mu.Lock()
	if s.live(w) {
		s.entries.Set(qid, saved)
		s.answers[qid] = s.answers[qid].answered()
	} else {
		s.logger.Debug("response saved after reset", "question", qid, "response", saved.ID)
	}
	s.mu.Unlock()

	if saved.IsCorrect && !wasCorrect && s.scorer != nil {
		ev := ScoreEvent{Source: ScoreSourcePracticeResponse, SourceID: saved.ID}
		if err := s.scorer.IncrementPoints(ctx, ev); err != nil {
			s.logger.Warn("increment points", "response", saved.ID, "error", err)
			s.setWriteError(w, MsgPointsWarning)
			return nil
		}
	}

	s.setWriteError(w, "")
	return nil
}

// HandleFlagChange sets the flag on the current question's response,
// creating an unanswered flag-only row when none exists.
func (s *Session) HandleFlagChange(ctx context.Context, flagged bool) error {
	w, err := s.beginWrite()
	if err != nil || w == nil {
		return err
	}
	defer s.endWrite()

	existing, err := s.resolveExisting(ctx, w)
	if err != nil {
		return s.failWrite(w, OpLookupResponse, MsgLoadResponse, err, false)
	}

	var saved *Response
	if existing != nil {
		saved, err = s.responses.UpdateResponse(ctx, existing.ID, ResponsePatch{Flagged: &flagged})
		if err == nil && saved == nil {
			err = errMissingRow
		}
		if err != nil {
			return s.failWrite(w, OpUpdateFlag, MsgUpdateFlag, err, false)
		}
	} else {
		saved, err = s.responses.InsertResponse(ctx, NewResponse{
			UserID:     w.userID,
			QuestionID: w.question.ID,
			Flagged:    flagged,
		})
		if err == nil && saved == nil {
			err = errMissingRow
		}
		if err != nil {
			return s.failWrite(w, OpInsertFlag, MsgSaveFlag, err, false)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live(w) {
		s.entries.Set(w.question.ID, saved)
		s.errMsg = ""
	}
	return nil
}

func (s *Session) setError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.errMsg = msg
	}
}

// setWriteError sets msg unless w was superseded.
func (s *Session) setWriteError(w *writeTarget, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live(w) {
		s.errMsg = msg
	}
}

// ClearError dismisses the current error message.
func (s *Session) ClearError() {
	s.setError("")
}

func (s *Session) currentUser() (string, bool) {
	if s.auth == nil {
		return "", false
	}
	return s.auth.CurrentUser()
}

// current returns the question at the index. Callers hold s.mu.
func (s *Session) current() (Question, bool) {
	if s.index < 0 || s.index >= len(s.items) {
		return Question{}, false
	}
	return s.items[s.index], true
}

// answerState returns the local state of questionID. Callers hold s.mu.
func (s *Session) answerState(questionID string) AnswerState {
	if st, ok := s.answers[questionID]; ok {
		return st
	}
	return answerStateFrom(s.entries.Entry(questionID))
}

// AnswerState returns the submission state of questionID.
func (s *Session) AnswerState(questionID string) AnswerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answerState(questionID)
}

// Responses returns a copy of the response map.
func (s *Session) Responses() ResponseMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.clone()
}

// Stats recomputes the session statistics.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeStats(s.entries)
}

// Snapshot is a read-only copy of everything the UI renders.
type Snapshot struct {
	Questions       []Question
	Index           int
	Current         *Question
	CurrentResponse *Response
	CurrentAnswer   AnswerState
	Loading         bool
	Submitting      bool
	Error           string
	HasMore         bool
	Filters         Filters
	Stats           Stats
	Complete        bool
}

// Snapshot returns the current UI-visible state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := ComputeStats(s.entries)
	snap := Snapshot{
		Questions:  slices.Clone(s.items),
		Index:      s.index,
		Loading:    s.inFlight > 0,
		Submitting: s.writing,
		Error:      s.errMsg,
		HasMore:    s.hasMore,
		Filters:    s.filters,
		Stats:      st,
		Complete:   SessionComplete(s.hasMore, len(s.items), s.index, st),
	}
	if q, ok := s.current(); ok {
		snap.Current = &q
		e := s.entries.Entry(q.ID)
		if e.Response != nil {
			r := *e.Response
			snap.CurrentResponse = &r
		}
		snap.CurrentAnswer = s.answerState(q.ID)
	}
	return snap
}
