package temporal

import (
	"sort"
	"time"
)

// HourBucket is one hour-of-day histogram bin
type HourBucket struct {
	Hour  int `json:"hour"`
	Count int `json:"event_count"`
}

// DayBucket is one day-of-week histogram bin (0 = Sunday)
type DayBucket struct {
	Day   int    `json:"day_of_week"`
	Name  string `json:"day_name"`
	Count int    `json:"event_count"`
}

// Pattern holds both histograms plus their peaks
type Pattern struct {
	ByHour      []HourBucket `json:"by_hour"`
	ByDay       []DayBucket  `json:"by_day"`
	PeakHours   []int        `json:"peak_hours"`
	PeakDays    []int        `json:"peak_days"`
	TotalEvents int          `json:"total_events"`
}

// Analyze buckets flagged event timestamps into 24 hour-of-day bins and
// 7 day-of-week bins (UTC). Peaks are the top-3 bins by count, ties
// broken by the earlier hour/day. Pure aggregation, idempotent.
func Analyze(events []time.Time) Pattern {
	var hours [24]int
	var days [7]int

	for _, ts := range events {
		utc := ts.UTC()
		hours[utc.Hour()]++
		days[int(utc.Weekday())]++
	}

	p := Pattern{
		ByHour:      make([]HourBucket, 24),
		ByDay:       make([]DayBucket, 7),
		TotalEvents: len(events),
	}
	for h := 0; h < 24; h++ {
		p.ByHour[h] = HourBucket{Hour: h, Count: hours[h]}
	}
	for d := 0; d < 7; d++ {
		p.ByDay[d] = DayBucket{Day: d, Name: time.Weekday(d).String(), Count: days[d]}
	}

	p.PeakHours = topBins(hours[:], 3)
	p.PeakDays = topBins(days[:], 3)

	return p
}

// topBins returns the indexes of the n largest non-empty bins, ties
// broken by the earlier index.
func topBins(counts []int, n int) []int {
	idx := make([]int, 0, len(counts))
	for i, c := range counts {
		if c > 0 {
			idx = append(idx, i)
		}
	}
	sort.Slice(idx, func(i, j int) bool {
		if counts[idx[i]] != counts[idx[j]] {
			return counts[idx[i]] > counts[idx[j]]
		}
		return idx[i] < idx[j]
	})
	if len(idx) > n {
		idx = idx[:n]
	}
	return idx
}
