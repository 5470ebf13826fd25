package reconcile

import (
	"fmt"

	"github.com/noxenys/AI-Knowledge-Agent/pkg/records"
)

// Decision is what a cycle does with one record.
type Decision int

// Decisions, one per row of the per-record policy.
const (
	// DecisionSkip leaves the record untouched.
	DecisionSkip Decision = iota
	// DecisionForceActive rewrites a self-managed record as Active with its own content.
	DecisionForceActive
	// DecisionRefresh writes the fetched remote content as Active.
	DecisionRefresh
	// DecisionHealed writes content from a replacement source as Active.
	DecisionHealed
	// DecisionMarkBroken keeps local content and sets Broken.
	DecisionMarkBroken
	// DecisionStayBroken leaves an already Broken record untouched.
	DecisionStayBroken
)

// String returns the decision name.
func (d Decision) String() string {
	switch d {
	case DecisionSkip:
		return "skip"
	case DecisionForceActive:
		return "force_active"
	case DecisionRefresh:
		return "refresh"
	case DecisionHealed:
		return "healed"
	case DecisionMarkBroken:
		return "mark_broken"
	case DecisionStayBroken:
		return "stay_broken"
	}
	return fmt.Sprintf("Decision(%d)", int(d))
}

// Writes reports whether the decision goes through the upsert engine.
func (d Decision) Writes() bool {
	switch d {
	case DecisionForceActive, DecisionRefresh, DecisionHealed, DecisionMarkBroken:
		return true
	case DecisionSkip, DecisionStayBroken:
		return false
	}
	return false
}

// Observation is everything the policy needs to know about one record.
// Later fields are only meaningful when earlier ones call for them.
type Observation struct {
	SelfManaged bool
	Status      records.Status

	// Reachable is true when the source fetch succeeded.
	Reachable bool
	// ContentMatches is true when the stored content already equals the remote text.
	ContentMatches bool

	// Healed is true when a replacement source was found and fetched.
	Healed bool
}

// Decide maps an observation to a decision. It performs no I/O.
func Decide(o Observation) Decision {
	if o.SelfManaged {
		switch o.Status {
		case records.StatusActive:
			return DecisionSkip
		case records.StatusBroken, records.StatusReview, records.StatusUnknown:
			return DecisionForceActive
		}
		return DecisionForceActive
	}

	if o.Reachable {
		if o.ContentMatches && o.Status == records.StatusActive {
			return DecisionSkip
		}
		return DecisionRefresh
	}

	if o.Healed {
		return DecisionHealed
	}

	switch o.Status {
	case records.StatusBroken:
		return DecisionStayBroken
	case records.StatusActive, records.StatusReview, records.StatusUnknown:
		return DecisionMarkBroken
	}
	return DecisionMarkBroken
}
