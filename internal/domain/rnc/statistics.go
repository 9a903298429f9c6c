package rnc

import "math"

type Statistics struct {
	Total                 int               `json:"total"`
	Open                  int               `json:"open"`
	Closed                int               `json:"closed"`
	Approved              int               `json:"approved"`
	Refused               int               `json:"refused"`
	AverageResolutionDays *float64          `json:"average_resolution_time"`
	MonthlyOpened         map[string]int    `json:"monthly_opened"`
	ByStatus              map[Status]int    `json:"by_status"`
	ByCondition           map[Condition]int `json:"by_condition"`
}

// StatisticsBuilder accumulates statistics one record at a time so large scans never hold the full set.
type StatisticsBuilder struct {
	stats           Statistics
	resolutionDays  float64
	resolutionCount int
}

func NewStatisticsBuilder() *StatisticsBuilder {
	return &StatisticsBuilder{
		stats: Statistics{
			MonthlyOpened: make(map[string]int),
			ByStatus:      make(map[Status]int),
			ByCondition:   make(map[Condition]int),
		},
	}
}

func (b *StatisticsBuilder) Add(r RNC) {
	b.stats.Total++
	b.stats.ByStatus[r.Status]++
	b.stats.ByCondition[r.Condition]++

	if r.IsClosed() {
		b.stats.Closed++
	} else {
		b.stats.Open++
	}
	switch r.Condition {
	case ConditionApproved:
		b.stats.Approved++
	case ConditionScrapped:
		b.stats.Refused++
	}

	if !r.DateOfOccurrence.IsZero() {
		b.stats.MonthlyOpened[r.DateOfOccurrence.UTC().Format("2006-01")]++
	}

	if days, ok := ResolutionDays(r); ok && r.IsClosed() {
		b.resolutionDays += days
		b.resolutionCount++
	}
}

func (b *StatisticsBuilder) Result() Statistics {
	out := b.stats
	out.AverageResolutionDays = nil
	if b.resolutionCount > 0 {
		avg := roundTo2(b.resolutionDays / float64(b.resolutionCount))
		out.AverageResolutionDays = &avg
	}

	out.MonthlyOpened = cloneMap(b.stats.MonthlyOpened)
	out.ByStatus = cloneMap(b.stats.ByStatus)
	out.ByCondition = cloneMap(b.stats.ByCondition)
	return out
}

func ComputeStatistics(items []RNC) Statistics {
	b := NewStatisticsBuilder()
	for _, item := range items {
		b.Add(item)
	}
	return b.Result()
}

// ResolutionDays is the closing delay of one report, if it has both dates.
func ResolutionDays(r RNC) (float64, bool) {
	if r.ClosingDate == nil || r.DateOfOccurrence.IsZero() {
		return 0, false
	}
	return r.ClosingDate.Sub(r.DateOfOccurrence).Hours() / 24, true
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

func cloneMap[K comparable](in map[K]int) map[K]int {
	out := make(map[K]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
