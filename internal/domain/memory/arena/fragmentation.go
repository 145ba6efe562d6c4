package arena

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// FragReport summarizes how the reusable arena space is distributed.
// Because freed regions never coalesce, FreeRegionBytes can be spread
// across fragments too small for a future quota; the distribution
// figures make that visible before a registration fails.
type FragReport struct {
	FreeRegionCount int     `json:"free_region_count"`
	FreeRegionBytes uint32  `json:"free_region_bytes"`
	BumpHeadroom    uint32  `json:"bump_headroom"`
	LargestRegion   uint32  `json:"largest_region"`
	MeanRegion      float64 `json:"mean_region"`
	MedianRegion    float64 `json:"median_region"`
	StdevRegion     float64 `json:"stdev_region"`
	P90Region       float64 `json:"p90_region"`
}

// Fragmentation computes the free-region distribution.
func (a *Arena) Fragmentation() FragReport {
	a.mu.Lock()
	defer a.mu.Unlock()

	r := FragReport{
		FreeRegionCount: len(a.freeRegions),
		BumpHeadroom:    a.size - a.bump,
	}
	if len(a.freeRegions) == 0 {
		return r
	}

	sizes := make([]float64, 0, len(a.freeRegions))
	for _, region := range a.freeRegions {
		r.FreeRegionBytes += region.Size
		if region.Size > r.LargestRegion {
			r.LargestRegion = region.Size
		}
		sizes = append(sizes, float64(region.Size))
	}
	sort.Float64s(sizes)

	r.MeanRegion = stat.Mean(sizes, nil)
	r.MedianRegion = stat.Quantile(0.5, stat.Empirical, sizes, nil)
	r.P90Region = stat.Quantile(0.9, stat.Empirical, sizes, nil)
	if len(sizes) >= 2 {
		r.StdevRegion = math.Sqrt(stat.Variance(sizes, nil))
	}
	return r
}
