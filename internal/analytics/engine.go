package analytics

// Package analytics derives read-only statistics from historical attack
// data: a rolling frequency series, a severity heatmap, and top-tag
// rankings. Everything here is a pure function of the input slice and an
// explicit "now" reference instant; the engine never reads the clock, so
// identical inputs always produce identical output.
//
// Calendar-day bucketing truncates to midnight in now's location before
// differencing, and window membership uses the ceiling of the absolute
// time difference in days. Around DST transitions a 23h/25h "day" can
// therefore shift an event's computed day gap by one near local midnight.
// That boundary behavior is inherited from the historical data this was
// built against and is kept as-is rather than silently corrected.
//
// Active (not yet ended) attacks are excluded from every aggregation: an
// in-progress episode must not bias historical statistics.

import (
	"math"
	"sort"
	"time"

	"github.com/attacklog/attacklog/internal/models"
)

// Default aggregation windows.
const (
	DefaultFrequencyWindowDays = 30
	DefaultHeatmapWindowDays   = 90
	DefaultTopTagsLimit        = 5
)

// dateFormat is the calendar-day bucket label, local to "now".
const dateFormat = "2006-01-02"

// FrequencyBucket is one calendar-day slot of the frequency series.
type FrequencyBucket struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// HeatmapBucket is one calendar-day slot of the severity heatmap.
// AttackCount distinguishes "no data" (average 0, count 0) from genuinely
// low-severity days; downstream rendering must never conflate the two.
type HeatmapBucket struct {
	Date                   string  `json:"date"`
	AverageInitialSeverity float64 `json:"averageInitialSeverity"`
	AttackCount            int     `json:"attackCount"`
}

// TagCount is one entry of a top-tag ranking.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TagField selects which tag occurrences TopTags counts.
type TagField string

const (
	TagFieldTriggers    TagField = "triggers"
	TagFieldMitigations TagField = "mitigations"
)

// Valid reports whether f names a known tag field.
func (f TagField) Valid() bool {
	return f == TagFieldTriggers || f == TagFieldMitigations
}

// Engine computes aggregations. It is stateless; a single instance can be
// shared freely.
type Engine struct{}

// NewEngine creates an aggregation engine.
func NewEngine() *Engine { return &Engine{} }

// FrequencySeries returns one bucket per calendar day for the windowDays
// days ending at now's day, oldest first. An attack counts toward its
// start day if it has ended and its start day falls within the window.
// Days with zero attacks appear with count 0; the series always has
// exactly windowDays entries.
func (e *Engine) FrequencySeries(attacks []models.Attack, now time.Time, windowDays int) []FrequencyBucket {
	if windowDays <= 0 {
		windowDays = DefaultFrequencyWindowDays
	}

	loc := now.Location()
	nowDay := dayStart(now, loc)

	buckets := make([]FrequencyBucket, windowDays)
	index := make(map[string]int, windowDays)
	for i := range buckets {
		date := nowDay.AddDate(0, 0, -(windowDays - 1 - i)).Format(dateFormat)
		buckets[i].Date = date
		index[date] = i
	}

	for _, a := range attacks {
		if a.Active() {
			continue
		}
		day := dayStart(a.StartTime, loc)
		if !inWindow(nowDay, day, windowDays) {
			continue
		}
		if i, ok := index[day.Format(dateFormat)]; ok {
			buckets[i].Count++
		}
	}
	return buckets
}

// SeverityHeatmap returns one bucket per calendar day for the windowDays
// days ending at now's day, oldest first. The average uses each ended
// attack's initial severity, not its final severity. A bucket with no
// attacks reports average 0 and attack count 0.
func (e *Engine) SeverityHeatmap(attacks []models.Attack, now time.Time, windowDays int) []HeatmapBucket {
	if windowDays <= 0 {
		windowDays = DefaultHeatmapWindowDays
	}

	loc := now.Location()
	nowDay := dayStart(now, loc)

	buckets := make([]HeatmapBucket, windowDays)
	index := make(map[string]int, windowDays)
	totals := make([]int, windowDays)
	for i := range buckets {
		date := nowDay.AddDate(0, 0, -(windowDays - 1 - i)).Format(dateFormat)
		buckets[i].Date = date
		index[date] = i
	}

	for _, a := range attacks {
		if a.Active() {
			continue
		}
		day := dayStart(a.StartTime, loc)
		if !inWindow(nowDay, day, windowDays) {
			continue
		}
		i, ok := index[day.Format(dateFormat)]
		if !ok {
			continue
		}
		totals[i] += clampSeverity(a.InitialSeverity)
		buckets[i].AttackCount++
	}

	for i := range buckets {
		if buckets[i].AttackCount > 0 {
			buckets[i].AverageInitialSeverity = float64(totals[i]) / float64(buckets[i].AttackCount)
		}
	}
	return buckets
}

// TopTags counts tag occurrences across all ended attacks and returns the
// limit highest-count tags, ordered by count descending. Ties keep the
// order tags were first encountered in the input. No data yields an empty
// slice, never an error.
func (e *Engine) TopTags(attacks []models.Attack, field TagField, limit int) []TagCount {
	if limit <= 0 {
		limit = DefaultTopTagsLimit
	}

	counts := make(map[string]int)
	var order []string
	add := func(tag string) {
		if _, seen := counts[tag]; !seen {
			order = append(order, tag)
		}
		counts[tag]++
	}

	for _, a := range attacks {
		if a.Active() {
			continue
		}
		switch field {
		case TagFieldTriggers:
			for _, t := range a.LocationTriggers {
				add(t)
			}
		case TagFieldMitigations:
			for _, m := range a.MitigationAttempts {
				for _, t := range m.Tags {
					add(t)
				}
			}
		}
	}

	ranked := make([]TagCount, 0, len(order))
	for _, tag := range order {
		ranked = append(ranked, TagCount{Tag: tag, Count: counts[tag]})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// dayStart truncates t to local midnight in loc.
func dayStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// inWindow reports whether attackDay falls within the windowDays-day
// window ending at nowDay, using ceiling-of-absolute-difference day
// arithmetic (see the package comment for the DST caveat).
func inWindow(nowDay, attackDay time.Time, windowDays int) bool {
	diff := nowDay.Sub(attackDay)
	if diff < 0 {
		diff = -diff
	}
	days := int(math.Ceil(diff.Hours() / 24))
	return days <= windowDays-1
}

// clampSeverity guards aggregation against out-of-range persisted values;
// the store rejects them on write, so this only matters for hand-edited
// data files.
func clampSeverity(sev int) int {
	if sev < 0 {
		return 0
	}
	if sev > models.SeverityMax {
		return models.SeverityMax
	}
	return sev
}
