package practice

// loadedMsg is sent when a page load or filter reload has finished.
type loadedMsg struct {
	Count int
}

// navigatedMsg is sent when Next has run and the new question is hydrated.
type navigatedMsg struct {
	Moved bool
}

// writeDoneMsg is sent when an answer or flag write has finished. The
// learner-facing error text is already on the session; Err is kept for
// tests and logging.
type writeDoneMsg struct {
	Err error
}

type signedOutMsg struct{}
