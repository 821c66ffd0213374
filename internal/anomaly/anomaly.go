// Package anomaly flags emissions values that deviate from their
// period-over-period and historical baselines.
package anomaly

import (
	"fmt"
	"math"
)

// FindingType classifies a single anomaly signal.
type FindingType string

const (
	MissingData         FindingType = "MISSING_DATA"
	SignificantIncrease FindingType = "SIGNIFICANT_INCREASE"
	ModerateIncrease    FindingType = "MODERATE_INCREASE"
	SignificantDecrease FindingType = "SIGNIFICANT_DECREASE"
	StatisticalAnomaly  FindingType = "STATISTICAL_ANOMALY"
	NoBaseline          FindingType = "NO_BASELINE"
	ZeroOrNegative      FindingType = "ZERO_OR_NEGATIVE"
)

// Finding is one detected anomaly. A single evaluation may yield several
// findings; they are independent signals, not mutually exclusive states.
type Finding struct {
	Type   FindingType `json:"type"`
	Reason string      `json:"reason"`
}

// PercentChange computes the period-over-period change in percent. A zero
// previous value maps to 100 when current is positive and 0 otherwise, so
// a cold start does not divide by zero.
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return (current - previous) / previous * 100
}

// Detect evaluates a current emissions value against the optional previous
// period value and the historical series for the same facility/category.
//
// A nil or NaN current value short-circuits to a single MISSING_DATA finding.
// All remaining checks run independently; callers get every signal that
// fires, in a fixed order (change bands, statistical, baseline, sign).
func Detect(current, previous *float64, historical []float64) []Finding {
	if current == nil || math.IsNaN(*current) {
		return []Finding{{
			Type:   MissingData,
			Reason: "no current value submitted for this period",
		}}
	}
	cur := *current

	var findings []Finding

	if previous != nil {
		change := PercentChange(cur, *previous)
		switch {
		case change > 50:
			findings = append(findings, Finding{
				Type:   SignificantIncrease,
				Reason: fmt.Sprintf("emissions increased %.1f%% versus previous period", change),
			})
		case change > 25:
			findings = append(findings, Finding{
				Type:   ModerateIncrease,
				Reason: fmt.Sprintf("emissions increased %.1f%% versus previous period", change),
			})
		case change < -50:
			findings = append(findings, Finding{
				Type:   SignificantDecrease,
				Reason: fmt.Sprintf("emissions decreased %.1f%% versus previous period", -change),
			})
		}
	}

	series := compact(historical)
	if len(series) >= 3 {
		mean, stddev := meanStddev(series)
		z := 0.0
		if stddev != 0 {
			z = math.Abs(cur-mean) / stddev
		}
		if z > 2 {
			findings = append(findings, Finding{
				Type:   StatisticalAnomaly,
				Reason: fmt.Sprintf("current value is %.2f standard deviations from the historical mean %.2f", z, mean),
			})
		}
	} else if previous == nil && len(series) == 0 {
		findings = append(findings, Finding{
			Type:   NoBaseline,
			Reason: "no previous period or historical data to compare against",
		})
	}

	if cur <= 0 && previous != nil && *previous > 0 {
		findings = append(findings, Finding{
			Type:   ZeroOrNegative,
			Reason: fmt.Sprintf("current value %.2f is zero or negative while previous period reported %.2f", cur, *previous),
		})
	}

	return findings
}

// compact drops NaN entries so sparse history does not poison the stats.
func compact(values []float64) []float64 {
	out := values[:0:0]
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func meanStddev(values []float64) (mean, stddev float64) {
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}
