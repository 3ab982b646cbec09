package memory

// TierConfig sets how many conversations land in each recency tier when a
// persona's history is sliced newest-first. Anything past the three tiers
// stays searchable but is not surfaced in default context assembly.
type TierConfig struct {
	Immediate int
	Recent    int
	LongTerm  int
}

func DefaultTierConfig() TierConfig {
	return TierConfig{
		Immediate: 2,
		Recent:    5,
		LongTerm:  10,
	}
}

func (c TierConfig) Total() int {
	return c.Immediate + c.Recent + c.LongTerm
}
