package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromScore(t *testing.T) {
	testCases := []struct {
		name     string
		score    float64
		expected Severity
	}{
		{name: "critical", score: 9.5, expected: SeverityCritical},
		{name: "critical lower boundary", score: 9.0, expected: SeverityCritical},
		{name: "high", score: 7.5, expected: SeverityHigh},
		{name: "high lower boundary", score: 7.0, expected: SeverityHigh},
		{name: "just below high", score: 6.9, expected: SeverityMedium},
		{name: "medium", score: 5.0, expected: SeverityMedium},
		{name: "medium lower boundary", score: 4.0, expected: SeverityMedium},
		{name: "low", score: 2.0, expected: SeverityLow},
		{name: "low upper boundary", score: 3.9, expected: SeverityLow},
		{name: "zero", score: 0.0, expected: SeverityUnknown},
		{name: "negative", score: -1.0, expected: SeverityUnknown},
		{name: "maximum", score: 10.0, expected: SeverityCritical},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, FromScore(tc.score))
		})
	}
}

func TestFromLabel(t *testing.T) {
	testCases := []struct {
		name     string
		label    string
		expected Severity
	}{
		{name: "critical upper", label: "CRITICAL", expected: SeverityCritical},
		{name: "critical lower", label: "critical", expected: SeverityCritical},
		{name: "high", label: "high", expected: SeverityHigh},
		{name: "medium", label: "MEDIUM", expected: SeverityMedium},
		{name: "moderate alias", label: "Moderate", expected: SeverityMedium},
		{name: "low", label: "LOW", expected: SeverityLow},
		{name: "unknown", label: "unknown", expected: SeverityUnknown},
		{name: "garbage", label: "not-a-severity", expected: SeverityUnknown},
		{name: "empty", label: "", expected: SeverityUnknown},
		{name: "numeric text stays unknown", label: "9.8", expected: SeverityUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, FromLabel(tc.label))
		})
	}
}

func TestSummarize(t *testing.T) {
	long := ""
	for i := 0; i < 300; i++ {
		long += "あ"
	}

	testCases := []struct {
		name        string
		description string
		expectedLen int
	}{
		{name: "short passes through", description: "a short description", expectedLen: 19},
		{name: "multi-byte truncated by characters", description: long, expectedLen: 200},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := Summarize(tc.description)
			assert.Len(t, []rune(s), tc.expectedLen)
		})
	}
}

func TestSeverityRank(t *testing.T) {
	assert.Less(t, SeverityCritical.Rank(), SeverityHigh.Rank())
	assert.Less(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Less(t, SeverityMedium.Rank(), SeverityLow.Rank())
	assert.Less(t, SeverityLow.Rank(), SeverityUnknown.Rank())
}
