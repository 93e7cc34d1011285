package core

import "testing"

func sampleRows() []Sale {
	return []Sale{
		{ChipType: "ショートオーバル", ChipNumber: "N-01", SizeCls: SizeM, SizeDigits: "15458", PriceTotal: 3200},
		{ChipType: "ベリーショート", ChipNumber: "N-02", SizeCls: SizeS, SizeDigits: "26569", PriceTotal: 2800},
		{ChipType: "ショートオーバル", ChipNumber: "N-01", SizeCls: SizeM, SizeDigits: "15458", PriceTotal: 3000},
		{ChipType: "ショートオーバル", PriceTotal: 1500},
	}
}

func TestTotals(t *testing.T) {
	rows := sampleRows()
	count, revenue := Totals(rows)
	if count != len(rows) {
		t.Fatalf("count = %d, want %d", count, len(rows))
	}
	if revenue != 3200+2800+3000+1500 {
		t.Fatalf("revenue = %d", revenue)
	}

	count, revenue = Totals(nil)
	if count != 0 || revenue != 0 {
		t.Fatalf("empty set: count=%d revenue=%d", count, revenue)
	}
}

func TestCountByType(t *testing.T) {
	got := CountByType(sampleRows())
	if len(got) != 2 {
		t.Fatalf("expected 2 types, got %d", len(got))
	}
	// First-seen order, counts summing to the row count.
	if got[0].Name != "ショートオーバル" || got[0].Count != 3 {
		t.Fatalf("first entry = %+v", got[0])
	}
	if got[1].Name != "ベリーショート" || got[1].Count != 1 {
		t.Fatalf("second entry = %+v", got[1])
	}
	if got[0].Count+got[1].Count != len(sampleRows()) {
		t.Fatalf("counts do not sum to row count")
	}
}

func TestByChipNumber(t *testing.T) {
	rows := sampleRows()

	got := ByChipNumber(rows, false)
	if len(got) != 2 {
		t.Fatalf("expected 2 buckets without empties, got %d", len(got))
	}
	if got[0].Key != "N-01" || got[0].Count != 2 || got[0].Revenue != 6200 {
		t.Fatalf("N-01 bucket = %+v", got[0])
	}

	got = ByChipNumber(rows, true)
	if len(got) != 3 {
		t.Fatalf("expected 3 buckets with empties, got %d", len(got))
	}
	last := got[len(got)-1]
	if last.Key != EmptyKeyLabel || last.Count != 1 || last.Revenue != 1500 {
		t.Fatalf("sentinel bucket = %+v", last)
	}
}

func TestBySizeDigits(t *testing.T) {
	got := BySizeDigits(sampleRows(), false)
	if len(got) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(got))
	}
	if got[0].Key != "15458" || got[0].Count != 2 || got[0].Revenue != 6200 {
		t.Fatalf("15458 bucket = %+v", got[0])
	}
}

func TestSizeClassBuckets(t *testing.T) {
	got := SizeClassBuckets(sampleRows())
	if len(got) != 3 {
		t.Fatalf("expected fixed 3 buckets, got %d", len(got))
	}
	want := map[string]Bucket{
		"S": {Key: "S", Count: 1, Revenue: 2800},
		"M": {Key: "M", Count: 2, Revenue: 6200},
		"L": {Key: "L"},
	}
	for _, b := range got {
		if b != want[b.Key] {
			t.Fatalf("bucket %q = %+v, want %+v", b.Key, b, want[b.Key])
		}
	}

	// Buckets exist even over an empty row set.
	if got := SizeClassBuckets(nil); len(got) != 3 {
		t.Fatalf("empty set should still yield 3 buckets, got %d", len(got))
	}
}

func TestNormalizeTopN(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, DefaultTopN},
		{-3, DefaultTopN},
		{1, 1},
		{50, 50},
	}
	for i, tc := range cases {
		if got := NormalizeTopN(tc.in); got != tc.want {
			t.Fatalf("case %d: NormalizeTopN(%d) = %d, want %d", i, tc.in, got, tc.want)
		}
	}
}

func TestTopN(t *testing.T) {
	buckets := []Bucket{
		{Key: "a", Count: 2, Revenue: 100},
		{Key: "b", Count: 5, Revenue: 50},
		{Key: "c", Count: 2, Revenue: 300},
		{Key: "d", Count: 7, Revenue: 10},
	}

	byCount := TopN(buckets, MetricCount, 3)
	if len(byCount) != 3 {
		t.Fatalf("len = %d", len(byCount))
	}
	if byCount[0].Key != "d" || byCount[1].Key != "b" {
		t.Fatalf("descending order broken: %+v", byCount)
	}
	// Stable sort: the count tie between a and c keeps input order.
	if byCount[2].Key != "a" {
		t.Fatalf("tie break should keep aggregation order, got %q", byCount[2].Key)
	}

	byRevenue := TopN(buckets, MetricRevenue, 2)
	if byRevenue[0].Key != "c" || byRevenue[1].Key != "a" {
		t.Fatalf("revenue ranking broken: %+v", byRevenue)
	}

	// N larger than the bucket count returns everything; the input
	// slice is left untouched.
	all := TopN(buckets, MetricCount, 100)
	if len(all) != len(buckets) {
		t.Fatalf("expected all buckets, got %d", len(all))
	}
	if buckets[0].Key != "a" {
		t.Fatalf("input slice was reordered")
	}

	// Bad N falls back to the default.
	if got := TopN(buckets, MetricCount, 0); len(got) != len(buckets) {
		t.Fatalf("default N should cover all 4 buckets, got %d", len(got))
	}
}
