package fixture

import "fmt"

// Observed is what a run produced, in the terms a fixture can assert on.
type Observed struct {
	Clusters       int
	Contradictions int
	Forced         int
	Resolved       int
	Unresolved     int
}

// Mismatches lists every expectation that got does not meet. A nil
// Expectation expects nothing.
func (e *Expectation) Mismatches(got Observed) []string {
	if e == nil {
		return nil
	}
	var out []string
	check := func(name string, want *int, have int) {
		if want != nil && *want != have {
			out = append(out, fmt.Sprintf("%s: expected %d, got %d", name, *want, have))
		}
	}
	check("clusters", e.Clusters, got.Clusters)
	check("contradictions", e.Contradictions, got.Contradictions)
	check("forced", e.Forced, got.Forced)
	check("resolved", e.Resolved, got.Resolved)
	check("unresolved", e.Unresolved, got.Unresolved)
	return out
}
