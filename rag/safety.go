package rag

import (
	"strconv"
	"time"

	"legal-rag/legal"
)

// SafetyFlags mark answer characteristics the caller must surface to the
// user.
type SafetyFlags struct {
	UseOfForce           bool `json:"use_of_force"`
	JurisdictionSpecific bool `json:"jurisdiction_specific"`
	PotentiallyOutdated  bool `json:"potentially_outdated"`
	LowConfidence        bool `json:"low_confidence"`
}

// SafetyReport is the evaluator's verdict on one answer.
type SafetyReport struct {
	Confidence float64     `json:"confidence_score"`
	Flags      SafetyFlags `json:"flags"`
	Warnings   []string    `json:"safety_warnings"`
}

const (
	lowConfidenceThreshold = 0.7
	outdatedAfterYears     = 10
)

// SafetyEvaluator derives a confidence score from retrieval quality and
// raises content flags from the question and retrieved chunks.
type SafetyEvaluator struct {
	now func() time.Time
}

func NewSafetyEvaluator() *SafetyEvaluator {
	return &SafetyEvaluator{now: time.Now}
}

// Evaluate computes the confidence score and flags for an answer built from
// the given results.
func (s *SafetyEvaluator) Evaluate(question string, results []SearchResult) SafetyReport {
	report := SafetyReport{
		Confidence: s.confidence(results),
	}

	report.Flags.UseOfForce = legal.MatchesUseOfForce(question) || anyResult(results, func(r SearchResult) bool {
		return legal.MatchesUseOfForce(r.Content)
	})
	report.Flags.JurisdictionSpecific = anyResult(results, func(r SearchResult) bool {
		return r.Jurisdiction != "" && r.Jurisdiction != legal.JurisdictionFederal
	})
	report.Flags.PotentiallyOutdated = s.hasOutdatedSource(results)
	report.Flags.LowConfidence = report.Confidence < lowConfidenceThreshold

	report.Warnings = warnings(report.Flags)
	return report
}

// confidence starts from the top result's final score and applies
// multiplicative adjustments for result count, retrieval quality, and
// citation alignment, clamped to [0,1]. Results arrive sorted by final
// score, so the first entry is the top hit.
func (s *SafetyEvaluator) confidence(results []SearchResult) float64 {
	if len(results) == 0 {
		return 0
	}

	var semSum, kwSum float64
	citMin := 1.0
	for _, r := range results {
		semSum += r.Breakdown.Semantic
		kwSum += r.Breakdown.Keyword
		if r.Breakdown.Citation < citMin {
			citMin = r.Breakdown.Citation
		}
	}
	n := float64(len(results))
	conf := results[0].FinalScore

	if len(results) >= 5 {
		conf *= 1.10
	} else if len(results) < 2 {
		conf *= 0.80
	}
	if semSum/n > 0.8 {
		conf *= 1.05
	}
	if kwSum/n > 0.8 {
		conf *= 1.05
	}
	if citMin < 0.5 {
		conf *= 0.90
	}

	return clamp01(conf)
}

func (s *SafetyEvaluator) hasOutdatedSource(results []SearchResult) bool {
	cutoff := s.now().Year() - outdatedAfterYears
	for _, r := range results {
		for _, d := range legal.Dates(r.Content) {
			if y, ok := yearOf(d); ok && y < cutoff {
				return true
			}
		}
	}
	return false
}

// yearOf pulls the four-digit year off a matched date string. ISO dates
// lead with the year; the other matched forms end with it.
func yearOf(date string) (int, bool) {
	if len(date) < 4 {
		return 0, false
	}
	if y, err := strconv.Atoi(date[:4]); err == nil && y >= 1000 {
		return y, true
	}
	y, err := strconv.Atoi(date[len(date)-4:])
	if err != nil || y < 1000 {
		return 0, false
	}
	return y, true
}

func warnings(f SafetyFlags) []string {
	var w []string
	if f.UseOfForce {
		w = append(w, "This answer involves use-of-force guidance. Verify against your agency's current use-of-force policy before acting.")
	}
	if f.JurisdictionSpecific {
		w = append(w, "Sources include jurisdiction-specific material that may not apply outside that jurisdiction.")
	}
	if f.PotentiallyOutdated {
		w = append(w, "Some source material is more than ten years old and may have been superseded.")
	}
	if f.LowConfidence {
		w = append(w, "Retrieval confidence is low. Treat this answer as a starting point and confirm with primary sources.")
	}
	return w
}

func anyResult(results []SearchResult, pred func(SearchResult) bool) bool {
	for _, r := range results {
		if pred(r) {
			return true
		}
	}
	return false
}
