package practice

import "math"

// Stats summarizes the responses of a session.
type Stats struct {
	TotalAnswered int
	TotalCorrect  int
	// Accuracy is nil until something has been answered.
	Accuracy *float64
	// AverageMs is nil when no answered response carries a timing.
	AverageMs *int
	Flagged   int
}

// ComputeStats reduces a response map. Flag-only responses count toward
// Flagged but not toward accuracy or timing.
func ComputeStats(m ResponseMap) Stats {
	var st Stats
	var totalMs, timed int
	for _, r := range m.Responses() {
		if r.Flagged {
			st.Flagged++
		}
		if r.ChoiceID == nil {
			continue
		}
		st.TotalAnswered++
		if r.IsCorrect {
			st.TotalCorrect++
		}
		if r.MsToAnswer != nil {
			totalMs += *r.MsToAnswer
			timed++
		}
	}
	if st.TotalAnswered > 0 {
		acc := float64(st.TotalCorrect) / float64(st.TotalAnswered)
		st.Accuracy = &acc
	}
	if timed > 0 {
		avg := int(math.Round(float64(totalMs) / float64(timed)))
		st.AverageMs = &avg
	}
	return st
}

// SessionComplete reports whether the learner has reached the last question
// of an exhausted, non-empty list after answering at least once.
func SessionComplete(hasMore bool, loaded, index int, st Stats) bool {
	return !hasMore && loaded > 0 && index >= loaded-1 && st.TotalAnswered > 0
}
