package practice

import (
	"math"
	"math/rand/v2"
	"slices"
)

// PageSize is the number of questions requested per page.
const PageSize = 10

// MergeQuestionPages combines a loaded list with a new page. Existing order
// is kept, a question present in both is replaced in place by the incoming
// copy, and new ids are appended in incoming order.
func MergeQuestionPages(existing, incoming []Question) []Question {
	if len(existing) == 0 {
		return slices.Clone(incoming)
	}

	pos := make(map[string]int, len(existing)+len(incoming))
	merged := make([]Question, 0, len(existing)+len(incoming))
	for _, q := range existing {
		if i, ok := pos[q.ID]; ok {
			merged[i] = q
			continue
		}
		pos[q.ID] = len(merged)
		merged = append(merged, q)
	}
	for _, q := range incoming {
		if i, ok := pos[q.ID]; ok {
			merged[i] = q
			continue
		}
		pos[q.ID] = len(merged)
		merged = append(merged, q)
	}
	return merged
}

// ShuffleQuestions returns a Fisher-Yates shuffled copy of list. rng must
// return values in [0, 1); nil uses the default uniform source.
func ShuffleQuestions[T any](list []T, rng func() float64) []T {
	if rng == nil {
		rng = rand.Float64
	}
	out := slices.Clone(list)
	for i := len(out) - 1; i > 0; i-- {
		j := int(math.Floor(rng() * float64(i+1)))
		if j > i {
			j = i
		}
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// SeededRand returns a deterministic uniform source for ShuffleQuestions.
func SeededRand(seed uint64) func() float64 {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return r.Float64
}

// DetermineHasMore reports whether another page may exist. With a known
// total it compares the loaded count; otherwise a full last page implies more.
func DetermineHasMore(total *int, loaded, lastPageLen, pageSize int) bool {
	if total != nil {
		return loaded < *total
	}
	return lastPageLen == pageSize
}

// ShouldLoadNextPage reports whether the learner at index is within
// threshold questions of the end of the loaded list.
func ShouldLoadNextPage(index, loaded int, hasMore bool, threshold int) bool {
	if !hasMore || loaded == 0 {
		return false
	}
	return index >= loaded-threshold
}
