package commandcenter

import (
	"math"
	"strings"
)

// ComprehensiveInputs bundles the four component scores blended into a
// single per-truck health figure by GET /truck/{id}/comprehensive.
type ComprehensiveInputs struct {
	PredictiveScore float64 // 0-100, from the risk engine
	DriverScore     float64 // 0-100, driver-behavior score (idle ratio, harsh events)
	ComponentScore  float64 // 0-100, sensor/component health
	DTCString       string  // raw DTC codes reported by the truck, may be empty
}

// ComprehensiveResult is the blended health figure and its status band.
type ComprehensiveResult struct {
	OverallScore float64
	Status       string // healthy, attention, warning, critical
	DTCScore     float64
}

// dtcScoreFor derives a 0-100 score from a raw DTC code string: no codes is
// healthy; each distinct code knocks points off, floored at 0.
func dtcScoreFor(dtcString string) float64 {
	dtcString = strings.TrimSpace(dtcString)
	if dtcString == "" {
		return 100
	}
	codes := strings.FieldsFunc(dtcString, func(r rune) bool {
		return r == ',' || r == ';' || r == ' '
	})
	distinct := make(map[string]bool)
	for _, c := range codes {
		if c = strings.TrimSpace(c); c != "" {
			distinct[c] = true
		}
	}
	score := 100 - float64(len(distinct))*20
	return math.Max(0, score)
}

// Comprehensive blends the four component scores per spec.md §4.8:
// overall = round(0.3*predictive + 0.2*driver + 0.3*component + 0.2*dtc, 1).
func Comprehensive(in ComprehensiveInputs) ComprehensiveResult {
	dtcScore := dtcScoreFor(in.DTCString)
	overall := 0.3*in.PredictiveScore + 0.2*in.DriverScore + 0.3*in.ComponentScore + 0.2*dtcScore
	overall = math.Round(overall*10) / 10

	var status string
	switch {
	case overall >= 80:
		status = "healthy"
	case overall >= 60:
		status = "attention"
	case overall >= 40:
		status = "warning"
	default:
		status = "critical"
	}

	return ComprehensiveResult{OverallScore: overall, Status: status, DTCScore: dtcScore}
}
