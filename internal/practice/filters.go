package practice

// AllValue disables a filter dimension.
const AllValue = "all"

// Difficulty levels accepted by the difficulty filter.
var Difficulties = []string{"easy", "med", "hard"}

// Filters is the active question predicate. Each dimension is either
// AllValue or an exact value to match.
type Filters struct {
	Topic      string
	Lesion     string
	Difficulty string
}

// DefaultFilters matches every published question.
func DefaultFilters() Filters {
	return Filters{Topic: AllValue, Lesion: AllValue, Difficulty: AllValue}
}

// FilterPatch changes the dimensions that are non-nil.
type FilterPatch struct {
	Topic      *string
	Lesion     *string
	Difficulty *string
}

// Apply returns f with patch merged in. Empty values mean AllValue.
func (f Filters) Apply(patch FilterPatch) Filters {
	if patch.Topic != nil {
		f.Topic = filterValue(*patch.Topic)
	}
	if patch.Lesion != nil {
		f.Lesion = filterValue(*patch.Lesion)
	}
	if patch.Difficulty != nil {
		f.Difficulty = filterValue(*patch.Difficulty)
	}
	return f.normalized()
}

// IsAll reports whether no dimension is restricted.
func (f Filters) IsAll() bool {
	n := f.normalized()
	return n.Topic == AllValue && n.Lesion == AllValue && n.Difficulty == AllValue
}

func (f Filters) normalized() Filters {
	return Filters{
		Topic:      filterValue(f.Topic),
		Lesion:     filterValue(f.Lesion),
		Difficulty: filterValue(f.Difficulty),
	}
}

func filterValue(v string) string {
	if v == "" {
		return AllValue
	}
	return v
}
