package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chipdash/internal/cache"
	"chipdash/internal/core"
	"chipdash/internal/storage"
)

// Aggregates are memoized between mutations. Any write purges the
// whole cache since a single sale can move every filtered view.
const (
	dashboardCacheSize = 64
	dashboardCacheTTL  = time.Minute
)

// DashboardQuery carries the dashboard filter state. Zero StoreID means
// all stores; zero periods mean no bound on that side.
type DashboardQuery struct {
	StoreID      int64
	Start        core.Period
	End          core.Period
	TopN         int
	IncludeEmpty bool
}

func (q DashboardQuery) cacheKey() string {
	return fmt.Sprintf("%d|%s|%s|%d|%t", q.StoreID, q.Start, q.End, q.TopN, q.IncludeEmpty)
}

// DashboardData is every aggregate the dashboard renders, computed from
// one row fetch so all numbers describe the same snapshot.
type DashboardData struct {
	Count               int              `json:"count"`
	Revenue             int64            `json:"revenue"`
	ByType              []core.TypeCount `json:"by_type"`
	ByChipNumber        []core.Bucket    `json:"by_chip_number"`
	ByChipNumberRevenue []core.Bucket    `json:"by_chip_number_revenue"`
	BySizeDigits        []core.Bucket    `json:"by_size_digits"`
	BySizeClass         []core.Bucket    `json:"by_size_class"`
}

// DashboardService fetches the filtered row window and reduces it to
// dashboard aggregates.
type DashboardService struct {
	storage    *storage.SQLiteRepository
	fetchLimit int
	cache      *cache.LRU[DashboardData]
}

func NewDashboardService(storage *storage.SQLiteRepository, fetchLimit int) *DashboardService {
	return &DashboardService{
		storage:    storage,
		fetchLimit: fetchLimit,
		cache:      cache.NewLRU[DashboardData](dashboardCacheSize, dashboardCacheTTL),
	}
}

// Compute fetches the rows matching q and computes every aggregate.
// Top-N ranking is by count; non-positive TopN falls back to the default.
func (s *DashboardService) Compute(ctx context.Context, q DashboardQuery) (DashboardData, error) {
	key := q.cacheKey()
	if data, ok := s.cache.Get(key); ok {
		slog.DebugContext(ctx, "Dashboard cache hit", "key", key)
		return data, nil
	}

	rows, err := s.storage.ListSales(ctx, storage.SalesQuery{
		StoreID: q.StoreID,
		Start:   q.Start,
		End:     q.End,
		Limit:   s.fetchLimit,
	})
	if err != nil {
		return DashboardData{}, fmt.Errorf("fetch dashboard rows: %w", err)
	}

	n := core.NormalizeTopN(q.TopN)
	count, revenue := core.Totals(rows)
	byChip := core.ByChipNumber(rows, q.IncludeEmpty)

	data := DashboardData{
		Count:               count,
		Revenue:             revenue,
		ByType:              core.CountByType(rows),
		ByChipNumber:        core.TopN(byChip, core.MetricCount, n),
		ByChipNumberRevenue: core.TopN(byChip, core.MetricRevenue, n),
		BySizeDigits:        core.TopN(core.BySizeDigits(rows, q.IncludeEmpty), core.MetricCount, n),
		BySizeClass:         core.SizeClassBuckets(rows),
	}
	s.cache.Set(key, data)
	return data, nil
}

// Invalidate drops every memoized aggregate. Mutation handlers call
// this after a successful write.
func (s *DashboardService) Invalidate() {
	s.cache.Purge()
}
