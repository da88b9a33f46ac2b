package livecalls

import (
	"math"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/supportdesk/internal/support"
)

func TestSentimentBand(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  string
	}{
		{"top", 1.0, BandPositive},
		{"positive boundary", 0.7, BandPositive},
		{"just below positive", 0.69, BandNeutral},
		{"neutral boundary", 0.4, BandNeutral},
		{"just below neutral", 0.39, BandNegative},
		{"zero", 0.0, BandNegative},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SentimentBand(tt.score); got != tt.want {
				t.Errorf("SentimentBand(%f) = %q, want %q", tt.score, got, tt.want)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		roll float64
		want support.LiveCallStatus
	}{
		{0.0, support.CallAIHandling},
		{0.6499, support.CallAIHandling},
		{0.65, support.CallQueued},
		{0.8499, support.CallQueued},
		{0.85, support.CallHandoffRequested},
		{0.99, support.CallHandoffRequested},
	}

	for _, tt := range tests {
		if got := StatusFor(tt.roll); got != tt.want {
			t.Errorf("StatusFor(%f) = %q, want %q", tt.roll, got, tt.want)
		}
	}
}

func TestAlertLevelFor(t *testing.T) {
	tests := []struct {
		name      string
		status    support.LiveCallStatus
		sentiment float64
		want      support.AlertLevel
	}{
		{"handoff is critical even when happy", support.CallHandoffRequested, 0.95, support.AlertCritical},
		{"low sentiment warns", support.CallAIHandling, 0.39, support.AlertWarning},
		{"boundary is normal", support.CallQueued, 0.4, support.AlertNormal},
		{"normal", support.CallAIHandling, 0.8, support.AlertNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AlertLevelFor(tt.status, tt.sentiment); got != tt.want {
				t.Errorf("AlertLevelFor(%q, %f) = %q, want %q", tt.status, tt.sentiment, got, tt.want)
			}
		})
	}
}

func TestSentimentFromRoll(t *testing.T) {
	tests := []struct {
		roll float64
		want float64
	}{
		{0.0, 0.3},
		{0.5, 0.65},
		{0.999999, 1.0},
		{0.123, 0.39},
	}

	for _, tt := range tests {
		got := SentimentFromRoll(tt.roll)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("SentimentFromRoll(%f) = %f, want %f", tt.roll, got, tt.want)
		}
	}
}

func TestComputeKPI(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	end1 := start.Add(2 * time.Minute)
	end2 := start.Add(4 * time.Minute)

	calls := []support.LiveCall{
		{Status: support.CallAIHandling, StartedAt: start},
		{Status: support.CallHandoffRequested, StartedAt: start},
		{Status: support.CallQueued, StartedAt: start},
		{Status: support.CallEnded, StartedAt: start, EndedAt: &end1},
		{Status: support.CallEnded, StartedAt: start, EndedAt: &end2},
		{Status: support.CallEnded, StartedAt: start},
	}

	active, kpi := ComputeKPI(calls)

	if len(active) != 3 {
		t.Fatalf("expected 3 active calls, got %d", len(active))
	}
	if kpi.LiveConcurrentCalls != 3 {
		t.Errorf("expected 3 concurrent calls, got %d", kpi.LiveConcurrentCalls)
	}
	if kpi.InterventionRate != 33 {
		t.Errorf("expected intervention rate 33, got %d", kpi.InterventionRate)
	}
	// (120000 + 240000 + 0) / 3
	if kpi.AvgResolutionMs != 120000 {
		t.Errorf("expected avg resolution 120000ms, got %f", kpi.AvgResolutionMs)
	}
}

func TestComputeKPI_Empty(t *testing.T) {
	active, kpi := ComputeKPI(nil)
	if len(active) != 0 {
		t.Errorf("expected no active calls, got %d", len(active))
	}
	if kpi != (KPI{}) {
		t.Errorf("expected zero KPI, got %+v", kpi)
	}
}
