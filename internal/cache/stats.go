package cache

// Stats holds per-tier cache counters. Counters are monotonic and reset
// only by an explicit clear of the owning tier.
type Stats struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Evictions     int64 `json:"evictions"`
	Invalidations int64 `json:"invalidations"`
	Size          int   `json:"size"`
	Capacity      int   `json:"capacity"`
}

// AllStats aggregates stats from the three tiers.
type AllStats struct {
	Pinned Stats `json:"pinned"`
	System Stats `json:"system"`
	Schema Stats `json:"schema"`
}

// Total sums the three tiers into one Stats. Capacity is only meaningful
// for the system tier and is carried through unchanged.
func (a AllStats) Total() Stats {
	return Stats{
		Hits:          a.Pinned.Hits + a.System.Hits + a.Schema.Hits,
		Misses:        a.Pinned.Misses + a.System.Misses + a.Schema.Misses,
		Evictions:     a.Pinned.Evictions + a.System.Evictions + a.Schema.Evictions,
		Invalidations: a.Pinned.Invalidations + a.System.Invalidations + a.Schema.Invalidations,
		Size:          a.Pinned.Size + a.System.Size + a.Schema.Size,
		Capacity:      a.System.Capacity,
	}
}
