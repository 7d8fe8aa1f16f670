package scoring

// DefaultParetoLimit is the largest result set for which the frontier is
// computed; above it the quadratic dominance check is skipped.
const DefaultParetoLimit = 5000

// MarkParetoFrontier sets ParetoOptimal on every candidate not dominated by
// another. Normalized values are orientation-resolved, so higher is better on
// every criterion.
// O(n^2) dominance check; callers bound n with a limit.
func MarkParetoFrontier(results []ScoredCandidate, criteria []CriterionSpec) {
	for i := range results {
		dominated := false
		for j := range results {
			if i == j {
				continue
			}
			if dominates(results[j].Values, results[i].Values, criteria) {
				dominated = true
				break
			}
		}
		results[i].ParetoOptimal = !dominated
	}
}

// dominates returns true if a is >= b on every criterion and strictly better
// on at least one.
func dominates(a, b map[string]float64, criteria []CriterionSpec) bool {
	strictly := false
	for _, c := range criteria {
		if a[c.Name] < b[c.Name] {
			return false
		}
		if a[c.Name] > b[c.Name] {
			strictly = true
		}
	}
	return strictly
}
