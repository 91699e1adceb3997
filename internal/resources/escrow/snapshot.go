package escrow

import "time"

// Snapshot bundles the decoded agreement record with its milestones.
// A refresh always replaces the snapshot wholesale, never merges into it
type Snapshot struct {
	Agreement  *Agreement
	Milestones []*Milestone

	SchemaVersion  int
	FetchedAt      time.Time
	DecodeWarnings []string
}

// Milestone returns the milestone at index, nil if out of range
func (s *Snapshot) Milestone(index int) *Milestone {
	if index < 0 || index >= len(s.Milestones) {
		return nil
	}
	return s.Milestones[index]
}

// Fresh reports whether the snapshot is still usable for time-sensitive
// decisions. A stale snapshot must be refetched before submission
func (s *Snapshot) Fresh(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.FetchedAt) <= maxAge
}
