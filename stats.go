package hoard

// Stats is a point-in-time snapshot of the cache's counters.
type Stats struct {
	Hits         uint64
	Misses       uint64
	LocalHits    uint64
	Sets         uint64
	Deletes      uint64
	LockTimeouts uint64
	LocalEntries int
	// LocalEvictions counts entries displaced from the local tier by
	// capacity pressure.
	LocalEvictions int64
}

// HitRate returns the fraction of lookups served from either tier,
// or 0 if there have been no lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Stats returns a snapshot of the cache's counters.
func (c *Cache) Stats() Stats {
	s := Stats{
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		LocalHits:    c.localHits.Load(),
		Sets:         c.sets.Load(),
		Deletes:      c.deletes.Load(),
		LockTimeouts: c.lockTimeouts.Load(),
	}
	if c.local != nil {
		s.LocalEntries = c.local.Len()
		s.LocalEvictions = c.local.Evictions()
	}
	return s
}
