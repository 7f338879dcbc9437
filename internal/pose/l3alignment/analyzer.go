package l3alignment

import (
	"fmt"

	"github.com/banshee-data/posture.report/internal/pose/l1keypoints"
)

// Analyzer runs every check in its table against a pose. Checks never
// interact and none exits early.
type Analyzer struct {
	checks []Check
}

// NewAnalyzer builds an analyzer over DefaultChecks, replacing the
// threshold of any region named in overrides.
func NewAnalyzer(overrides map[Region]float64) (*Analyzer, error) {
	checks := DefaultChecks()
	for region, th := range overrides {
		if !region.Valid() {
			return nil, fmt.Errorf("threshold override for unknown region %q", region)
		}
		if th < 0 {
			return nil, fmt.Errorf("threshold for %s must be non-negative, got %f", region, th)
		}
		for i := range checks {
			if checks[i].Region == region {
				checks[i].Threshold = th
			}
		}
	}
	return &Analyzer{checks: checks}, nil
}

// Checks returns a copy of the table.
func (a *Analyzer) Checks() []Check {
	out := make([]Check, len(a.checks))
	copy(out, a.checks)
	return out
}

// Analyze returns one result per check, in table order. The caller is
// responsible for gating the pose first.
func (a *Analyzer) Analyze(pose l1keypoints.Pose) []Result {
	results := make([]Result, len(a.checks))
	for i, c := range a.checks {
		results[i] = c.Evaluate(pose)
	}
	return results
}
