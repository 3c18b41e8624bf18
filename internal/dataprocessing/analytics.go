package dataprocessing

import (
	"gonum.org/v1/gonum/floats"

	"penguincli/pkg/contracts/domain"
)

// SexAverage is the flipper length summary for one sex on one island.
type SexAverage struct {
	Sex   string  `json:"sex"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// IslandAverages holds the per-sex summaries for one island, in the order
// each sex first appeared.
type IslandAverages struct {
	Island string       `json:"island"`
	BySex  []SexAverage `json:"by_sex"`
}

// FlipperAverages is the result of CalculateFlipperAverages. Islands are
// ordered by first appearance in the collection.
type FlipperAverages struct {
	Islands []IslandAverages `json:"islands"`
	Skipped int              `json:"skipped"` // records missing flipper length, sex or island
}

// Mean returns the mean flipper length for (island, sex).
func (a FlipperAverages) Mean(island, sex string) (float64, bool) {
	for _, isl := range a.Islands {
		if isl.Island != island {
			continue
		}
		for _, s := range isl.BySex {
			if s.Sex == sex {
				return s.Mean, true
			}
		}
	}
	return 0, false
}

// Groups returns the number of (island, sex) buckets.
func (a FlipperAverages) Groups() int {
	n := 0
	for _, isl := range a.Islands {
		n += len(isl.BySex)
	}
	return n
}

// Map returns the averages as island -> sex -> mean.
func (a FlipperAverages) Map() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(a.Islands))
	for _, isl := range a.Islands {
		inner := make(map[string]float64, len(isl.BySex))
		for _, s := range isl.BySex {
			inner[s.Sex] = s.Mean
		}
		out[isl.Island] = inner
	}
	return out
}

type flipperBucket struct {
	sum, min, max float64
	count         int
}

// CalculateFlipperAverages groups records by (island, sex) and returns the
// mean flipper length of each group. Records missing any of the three fields
// are skipped. Groups never appear without at least one record, so no mean
// divides by zero. Keys are compared verbatim.
func CalculateFlipperAverages(c *domain.Collection) FlipperAverages {
	var result FlipperAverages

	var islands []string
	sexOrder := make(map[string][]string)
	buckets := make(map[string]map[string]*flipperBucket)

	for _, rec := range c.Records() {
		if !rec.FlipperLengthMM.Valid || !rec.Sex.Valid || !rec.Island.Valid {
			result.Skipped++
			continue
		}
		island, sex, length := rec.Island.Value, rec.Sex.Value, rec.FlipperLengthMM.Value

		bySex, ok := buckets[island]
		if !ok {
			bySex = make(map[string]*flipperBucket)
			buckets[island] = bySex
			islands = append(islands, island)
		}
		b, ok := bySex[sex]
		if !ok {
			b = &flipperBucket{min: length, max: length}
			bySex[sex] = b
			sexOrder[island] = append(sexOrder[island], sex)
		}

		b.sum += length
		b.count++
		if length < b.min {
			b.min = length
		}
		if length > b.max {
			b.max = length
		}
	}

	result.Islands = make([]IslandAverages, 0, len(islands))
	for _, island := range islands {
		entry := IslandAverages{Island: island}
		for _, sex := range sexOrder[island] {
			b := buckets[island][sex]
			entry.BySex = append(entry.BySex, SexAverage{
				Sex:   sex,
				Mean:  clamp(b.sum/float64(b.count), b.min, b.max),
				Count: b.count,
				Min:   b.min,
				Max:   b.max,
			})
		}
		result.Islands = append(result.Islands, entry)
	}

	return result
}

// GroupFilter selects the subgroup examined by CalculateAboveMeanPercentage.
type GroupFilter struct {
	Species string `json:"species"`
	Sex     string `json:"sex"`
}

// ThresholdResult is the outcome of CalculateAboveMeanPercentage. A zero
// Size means no record matched the filter and Percentage is 0.
type ThresholdResult struct {
	Filter     GroupFilter `json:"filter"`
	Size       int         `json:"size"`
	Above      int         `json:"above"`
	MeanMass   float64     `json:"mean_body_mass_g"`
	Percentage float64     `json:"percentage"`
	Skipped    int         `json:"skipped"` // records missing species, sex or body mass
}

// Empty reports whether no record matched the filter.
func (r ThresholdResult) Empty() bool {
	return r.Size == 0
}

// CalculateAboveMeanPercentage returns the share of records matching filter
// whose body mass is strictly greater than the mean body mass of the matching
// records. Records at the mean are not counted. Records missing species, sex
// or body mass are skipped before filtering.
func CalculateAboveMeanPercentage(c *domain.Collection, filter GroupFilter) ThresholdResult {
	result := ThresholdResult{Filter: filter}

	var masses []float64
	for _, rec := range c.Records() {
		if !rec.Sex.Valid || !rec.Species.Valid || !rec.BodyMassG.Valid {
			result.Skipped++
			continue
		}
		if rec.Species.Value != filter.Species || rec.Sex.Value != filter.Sex {
			continue
		}
		masses = append(masses, rec.BodyMassG.Value)
	}

	result.Size = len(masses)
	if result.Size == 0 {
		return result
	}

	lo, hi := floats.Min(masses), floats.Max(masses)
	result.MeanMass = clamp(floats.Sum(masses)/float64(result.Size), lo, hi)
	if lo == hi {
		// All masses are equal, so none is strictly above the mean
		result.Percentage = 0
		return result
	}
	for _, m := range masses {
		if m > result.MeanMass {
			result.Above++
		}
	}
	result.Percentage = float64(result.Above) / float64(result.Size) * 100

	return result
}

// clamp keeps an accumulated mean inside the range of its inputs, which float
// rounding in the running sum can otherwise step outside of.
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
