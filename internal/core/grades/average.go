// Package grades computes subject and overall averages from normalized grade
// snapshots. Real-world report cards are partial and inconsistent, so nothing
// here returns an error: an average that cannot be computed is the Undefined
// sentinel, and NaN inputs are carried through and filtered at the edges.
package grades

import (
	"math"
	"sort"
	"time"

	"github.com/papillon/aggregator/internal/core/domain"
)

// Undefined is the sentinel returned when an average cannot be computed.
const Undefined = -1

// Target selects which slot of each grade is averaged.
type Target string

const (
	TargetStudent Target = "student"
	TargetAverage Target = "average"
	TargetMin     Target = "min"
	TargetMax     Target = "max"
)

// ParseTarget maps a request string to a Target, defaulting to the student
// slot.
func ParseTarget(s string) Target {
	switch Target(s) {
	case TargetAverage, TargetMin, TargetMax:
		return Target(s)
	}
	return TargetStudent
}

func slot(g domain.Grade, t Target) domain.GradeValue {
	switch t {
	case TargetAverage:
		return g.Average
	case TargetMin:
		return g.Min
	case TargetMax:
		return g.Max
	}
	return g.Student
}

// usable reports whether a grade participates in averaging at all: the
// selected slot must hold a finite non-negative number and the grade must
// carry weight.
func usable(g domain.Grade, t Target) bool {
	v := slot(g, t)
	return v.Defined() && v.Value >= 0 && g.Coefficient != 0
}

// SubjectAverage computes the weighted average of one subject's grades.
//
// In the default (Pronote) mode every grade is brought to a 20-point scale
// before weighting and the result is clamped to 20. In math mode the raw
// values are weighted on their own scale with no rescaling or clamping.
//
// Optional grades are decided in a separate pass against averages computed
// over the full set: an optional grade is kept only when dropping it would
// not raise the average. Bonus grades contribute value−outOf/2 at flat
// weight 1 and are skipped entirely when that delta is negative.
func SubjectAverage(subject []domain.Grade, target Target, mathMode bool) float64 {
	excluded := optionalExclusions(subject, target, mathMode)
	return accumulate(subject, target, mathMode, excluded)
}

// optionalExclusions returns the set of optional grades that must be left
// out. Each optional grade is judged by comparing the full-set average with
// and without it, so iteration order cannot change the outcome.
func optionalExclusions(subject []domain.Grade, target Target, mathMode bool) map[int]bool {
	var excluded map[int]bool
	for i, g := range subject {
		if !g.IsOptional || !usable(g, target) {
			continue
		}
		with := accumulate(subject, target, mathMode, nil)
		without := accumulate(subject, target, mathMode, map[int]bool{i: true})
		if without > with {
			if excluded == nil {
				excluded = make(map[int]bool)
			}
			excluded[i] = true
		}
	}
	return excluded
}

func accumulate(subject []domain.Grade, target Target, mathMode bool, excluded map[int]bool) float64 {
	var sum, outSum, weight float64

	for i, g := range subject {
		if excluded[i] || !usable(g, target) {
			continue
		}
		value := slot(g, target).Value
		outOf := g.OutOf.Value

		switch {
		case g.IsBonus:
			// Bonus points never subtract.
			delta := value - outOf/2
			if delta < 0 {
				continue
			}
			sum += delta
			outSum++
			weight++
		case mathMode:
			sum += value * g.Coefficient
			weight += g.Coefficient
		case needsRescale(value, outOf, g.Coefficient):
			on20 := value / outOf * 20
			sum += on20 * g.Coefficient
			outSum += 20 * g.Coefficient
		default:
			sum += value * g.Coefficient
			outSum += outOf * g.Coefficient
		}
	}

	if mathMode {
		if weight == 0 {
			return Undefined
		}
		avg := sum / weight
		if math.IsNaN(avg) {
			return Undefined
		}
		return avg
	}

	if outSum == 0 {
		return Undefined
	}
	avg := math.Min(sum/outSum*20, 20)
	if math.IsNaN(avg) {
		return Undefined
	}
	return avg
}

// needsRescale reports whether a grade's own scale diverges enough from /20
// that it must be rescaled before weighting: values above 20, scales above
// 20, or fractional coefficients on a near-20 scale.
func needsRescale(value, outOf, coefficient float64) bool {
	return value > 20 || (coefficient < 1 && outOf-20 >= -5) || outOf > 20
}

// OverallAverage groups grades by subject, averages each subject, and
// returns the arithmetic mean of the subjects that produced a defined
// average. Subjects with no computable average are excluded from the
// denominator, not counted as zero.
func OverallAverage(all []domain.Grade, target Target, mathMode bool) float64 {
	if len(all) == 0 {
		return Undefined
	}

	grouped := make(map[string][]domain.Grade)
	order := make([]string, 0, len(all))
	for _, g := range all {
		key := g.SubjectKey()
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], g)
	}

	var total float64
	var counted int
	for _, key := range order {
		avg := SubjectAverage(grouped[key], target, mathMode)
		if avg == Undefined {
			continue
		}
		total += avg
		counted++
	}
	if counted == 0 {
		return Undefined
	}
	return total / float64(counted)
}

// AverageDiff describes a single grade's marginal impact on its subject
// average. Difference is without-minus-with, so a grade that raises the
// average yields a negative difference.
type AverageDiff struct {
	With       float64
	Without    float64
	Difference float64
}

// AverageDiffGrade computes the subject average with every grade in list and
// without the first grade of target, matched by ID.
func AverageDiffGrade(target []domain.Grade, list []domain.Grade, t Target, mathMode bool) AverageDiff {
	with := SubjectAverage(list, t, mathMode)

	without := with
	if len(target) > 0 {
		rest := make([]domain.Grade, 0, len(list))
		for _, g := range list {
			if g.ID == target[0].ID {
				continue
			}
			rest = append(rest, g)
		}
		without = SubjectAverage(rest, t, mathMode)
	}

	return AverageDiff{
		With:       with,
		Without:    without,
		Difference: without - with,
	}
}

// HistoryPoint is one snapshot of the overall average over time.
type HistoryPoint struct {
	Value float64   `json:"value"`
	Date  time.Time `json:"date"`
}

// AveragesHistory produces the chronological trajectory of the overall
// average: one point per grade (average over everything up to and including
// that grade) plus a final synthetic point. Input order is not trusted; the
// result is re-sorted by date and NaN points are dropped. When final is nil
// the closing point is computed from the full set.
func AveragesHistory(all []domain.Grade, target Target, final *float64, mathMode bool) []HistoryPoint {
	history := make([]HistoryPoint, 0, len(all)+1)
	for i := range all {
		history = append(history, HistoryPoint{
			Value: OverallAverage(all[:i+1], target, mathMode),
			Date:  all[i].Timestamp,
		})
	}

	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Date.Before(history[j].Date)
	})

	closing := OverallAverage(all, target, mathMode)
	if final != nil {
		closing = *final
	}
	history = append(history, HistoryPoint{Value: closing, Date: time.Now()})

	kept := history[:0]
	for _, p := range history {
		if math.IsNaN(p.Value) {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}
