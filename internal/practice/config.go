package practice

// Config tunes paging and hydration.
type Config struct {
	// PageSize is the number of questions per page. Default: PageSize.
	PageSize int

	// PrefetchThreshold is how close to the end of the loaded list the
	// learner gets before the next page is requested. Default: 2.
	PrefetchThreshold int

	// HydratePages bulk-loads responses for every loaded page in addition
	// to the per-question lookup. Default: false.
	HydratePages bool
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		PageSize:          PageSize,
		PrefetchThreshold: 2,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
	if c.PrefetchThreshold <= 0 {
		c.PrefetchThreshold = d.PrefetchThreshold
	}
	return c
}
