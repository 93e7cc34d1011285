// Package core holds the domain types and the pure aggregation
// functions backing the dashboard. Every aggregation is a single pass
// over an already-filtered row set; nothing here touches storage.
package core

import "sort"

// EmptyKeyLabel stands in for rows whose grouping key is blank.
const EmptyKeyLabel = "(未設定)"

// DefaultTopN is the chart ranking depth used when the requested value
// is missing or not a positive number.
const DefaultTopN = 20

type (
	// TypeCount is one bar of the sales-by-chip-type chart.
	TypeCount struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	// Bucket aggregates count and revenue under one grouping key.
	Bucket struct {
		Key     string `json:"key"`
		Count   int    `json:"count"`
		Revenue int64  `json:"revenue"`
	}

	// Metric selects the ranking field for TopN.
	Metric string
)

const (
	MetricCount   Metric = "count"
	MetricRevenue Metric = "revenue"
)

// Totals returns the KPI pair for a row set: row count and summed
// price_total.
func Totals(rows []Sale) (count int, revenue int64) {
	for _, r := range rows {
		revenue += r.PriceTotal
	}
	return len(rows), revenue
}

// CountByType counts rows per chip type, emitting entries in
// first-seen order so chart bars stay stable across refreshes.
func CountByType(rows []Sale) []TypeCount {
	idx := make(map[string]int)
	var out []TypeCount
	for _, r := range rows {
		i, ok := idx[r.ChipType]
		if !ok {
			idx[r.ChipType] = len(out)
			out = append(out, TypeCount{Name: r.ChipType})
			i = len(out) - 1
		}
		out[i].Count++
	}
	return out
}

func groupBy(rows []Sale, key func(Sale) string, includeEmpty bool) []Bucket {
	idx := make(map[string]int)
	var out []Bucket
	for _, r := range rows {
		k := key(r)
		if k == "" {
			if !includeEmpty {
				continue
			}
			k = EmptyKeyLabel
		}
		i, ok := idx[k]
		if !ok {
			idx[k] = len(out)
			out = append(out, Bucket{Key: k})
			i = len(out) - 1
		}
		out[i].Count++
		out[i].Revenue += r.PriceTotal
	}
	return out
}

// ByChipNumber aggregates count and revenue per chip number.
// Rows without a chip number fold into the EmptyKeyLabel bucket, which
// is only emitted when includeEmpty is set.
func ByChipNumber(rows []Sale, includeEmpty bool) []Bucket {
	return groupBy(rows, func(s Sale) string { return s.ChipNumber }, includeEmpty)
}

// BySizeDigits aggregates count and revenue per 5-digit size code,
// with the same empty-key handling as ByChipNumber.
func BySizeDigits(rows []Sale, includeEmpty bool) []Bucket {
	return groupBy(rows, func(s Sale) string { return s.SizeDigits }, includeEmpty)
}

// SizeClassBuckets returns the fixed S, M, L buckets. All three are
// always present, even with zero matching rows.
func SizeClassBuckets(rows []Sale) []Bucket {
	out := []Bucket{{Key: "S"}, {Key: "M"}, {Key: "L"}}
	for _, r := range rows {
		for i := range out {
			if string(r.SizeCls) == out[i].Key {
				out[i].Count++
				out[i].Revenue += r.PriceTotal
			}
		}
	}
	return out
}

// NormalizeTopN clamps a requested ranking depth to a usable value:
// anything below 1 falls back to DefaultTopN.
func NormalizeTopN(n int) int {
	if n < 1 {
		return DefaultTopN
	}
	return n
}

// TopN returns the n highest buckets by the chosen metric, sorted
// descending. The sort is stable, so ties keep their aggregation
// order. The input slice is not modified.
func TopN(buckets []Bucket, metric Metric, n int) []Bucket {
	n = NormalizeTopN(n)
	sorted := make([]Bucket, len(buckets))
	copy(sorted, buckets)
	sort.SliceStable(sorted, func(i, j int) bool {
		if metric == MetricRevenue {
			return sorted[i].Revenue > sorted[j].Revenue
		}
		return sorted[i].Count > sorted[j].Count
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
