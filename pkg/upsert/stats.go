package upsert

import "fmt"

// Stats tallies outcomes across a pass.
type Stats struct {
	Created int `json:"created" yaml:"created"`
	Updated int `json:"updated" yaml:"updated"`
	Skipped int `json:"skipped" yaml:"skipped"`
	Error   int `json:"error" yaml:"error"`
}

// Add counts one outcome.
func (s *Stats) Add(o Outcome) {
	switch o {
	case Created:
		s.Created++
	case Updated:
		s.Updated++
	case Skipped:
		s.Skipped++
	case Error:
		s.Error++
	}
}

// Merge adds other into s.
func (s *Stats) Merge(other Stats) {
	s.Created += other.Created
	s.Updated += other.Updated
	s.Skipped += other.Skipped
	s.Error += other.Error
}

// Total returns the number of counted outcomes.
func (s Stats) Total() int {
	return s.Created + s.Updated + s.Skipped + s.Error
}

// Summary returns the one-line report sent at the end of a cycle.
func (s Stats) Summary() string {
	return fmt.Sprintf("Created: %d | Updated: %d | Skipped: %d | Errors: %d", s.Created, s.Updated, s.Skipped, s.Error)
}
