package livecalls

import (
	"math"

	"github.com/MikeSquared-Agency/supportdesk/internal/support"
)

// Sentiment bands shown on the call list.
const (
	BandPositive = "positive"
	BandNeutral  = "neutral"
	BandNegative = "negative"
)

// SentimentBand buckets a sentiment score: positive at 0.7 and above,
// neutral at 0.4 and above, negative below.
func SentimentBand(score float64) string {
	switch {
	case score >= 0.7:
		return BandPositive
	case score >= 0.4:
		return BandNeutral
	default:
		return BandNegative
	}
}

// StatusFor maps a roll in [0,1) to a call status, weighted towards AI handling.
func StatusFor(roll float64) support.LiveCallStatus {
	switch {
	case roll < 0.65:
		return support.CallAIHandling
	case roll < 0.85:
		return support.CallQueued
	default:
		return support.CallHandoffRequested
	}
}

// AlertLevelFor derives the alert level: a handoff is critical, low sentiment
// is a warning.
func AlertLevelFor(status support.LiveCallStatus, sentiment float64) support.AlertLevel {
	switch {
	case status == support.CallHandoffRequested:
		return support.AlertCritical
	case sentiment < 0.4:
		return support.AlertWarning
	default:
		return support.AlertNormal
	}
}

// SentimentFromRoll maps a roll in [0,1) onto [0.3, 1.0] at two decimals.
func SentimentFromRoll(roll float64) float64 {
	return clamp(math.Round((0.3+roll*0.7)*100) / 100)
}

func clamp(score float64) float64 {
	if score < 0.0 {
		return 0.0
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}

// KPI summarizes an organization's call floor.
type KPI struct {
	LiveConcurrentCalls int     `json:"live_concurrent_calls"`
	InterventionRate    int     `json:"intervention_rate"`
	AvgResolutionMs     float64 `json:"avg_resolution_ms"`
}

// ComputeKPI splits calls into active and ended and derives the dashboard KPIs.
// It returns the active calls in their original order.
func ComputeKPI(calls []support.LiveCall) ([]support.LiveCall, KPI) {
	active := make([]support.LiveCall, 0, len(calls))
	var handoffs, ended int
	var totalMs float64
	for _, c := range calls {
		if c.Status == support.CallEnded {
			ended++
			if c.EndedAt != nil {
				totalMs += float64(c.EndedAt.Sub(c.StartedAt).Milliseconds())
			}
			continue
		}
		active = append(active, c)
		if c.Status == support.CallHandoffRequested {
			handoffs++
		}
	}

	kpi := KPI{LiveConcurrentCalls: len(active)}
	if len(active) > 0 {
		kpi.InterventionRate = int(math.Round(float64(handoffs) / float64(len(active)) * 100))
	}
	if ended > 0 {
		kpi.AvgResolutionMs = totalMs / float64(ended)
	}
	return active, kpi
}
