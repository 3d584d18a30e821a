package reduceside

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckDone compares the most recent two snapshots' sampled Numeric values and reports
// convergence when the maximum element-wise absolute difference is below
// stopDifference, or when the wall-clock elapsed since jobStart exceeds stopMaxTime
// (spec.md §4.3). stopMaxTime <= 0 means no hard cap: JobConfig's zero value leaves
// StopMaxTimeMs unset, and that must mean "run until stopDifference converges", not
// "converge instantly on the first check". A key present in only one of the two
// samples is ignored: it has not yet had two consecutive snapshots to compare.
func (e *PriorityStateEngine) CheckDone(stopDifference float64, stopMaxTime time.Duration, jobStart time.Time) bool {
	if stopMaxTime > 0 && time.Since(jobStart) >= stopMaxTime {
		return true
	}

	e.snapshotMu.RLock()
	defer e.snapshotMu.RUnlock()

	if len(e.priorNumeric) == 0 {
		return false
	}

	threshold := decimal.NewFromFloat(stopDifference)

	for key, current := range e.lastNumeric {
		prior, ok := e.priorNumeric[key]
		if !ok {
			continue
		}

		diff := decimal.NewFromFloat(current).Sub(decimal.NewFromFloat(prior)).Abs()
		if diff.GreaterThanOrEqual(threshold) {
			return false
		}
	}

	return true
}
