// Package aggregate rolls individual community ratings up into per-book
// statistics comparable with the catalog scale.
package aggregate

import (
	"log/slog"
	"math"
	"sort"

	"github.com/lehigh-university-libraries/bookjoin/internal/models"
)

// Scale is a closed rating interval
type Scale struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Options controls aggregation
type Options struct {
	MinRatings            int
	DemographicMinRatings int
	From                  Scale // community scale
	To                    Scale // catalog scale
}

// DefaultOptions returns the standard thresholds and scales
func DefaultOptions() Options {
	return Options{
		MinRatings:            10,
		DemographicMinRatings: 5,
		From:                  Scale{Min: 1, Max: 10},
		To:                    Scale{Min: 1, Max: 5},
	}
}

// Summary holds descriptive statistics of a sample
type Summary struct {
	Count  int
	Mean   float64
	StdDev *float64 // sample standard deviation, nil when Count < 2
	Median float64
	Min    float64
	Max    float64
}

// Report counts identifiers seen and filtered
type Report struct {
	Ratings      int `yaml:"ratings" json:"ratings"`
	Identifiers  int `yaml:"identifiers" json:"identifiers"`
	Kept         int `yaml:"kept" json:"kept"`
	BelowMinimum int `yaml:"below_minimum" json:"below_minimum"`
	Demographics int `yaml:"demographic_groups" json:"demographic_groups"`
}

// Rescale maps v linearly from one scale onto another
func Rescale(v float64, from, to Scale) float64 {
	span := from.Max - from.Min
	if span == 0 {
		return to.Min
	}
	return to.Min + (v-from.Min)*(to.Max-to.Min)/span
}

// Summarize computes count, mean, sample standard deviation and median
func Summarize(values []float64) Summary {
	s := Summary{Count: len(values)}
	if s.Count == 0 {
		return s
	}

	s.Mean = calculateAverage(values)

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		s.Median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		s.Median = sorted[mid]
	}

	if s.Count >= 2 {
		var sq float64
		for _, v := range values {
			d := v - s.Mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(s.Count-1))
		s.StdDev = &std
	}

	return s
}

// Ratings groups ratings by identifier and keeps identifiers with at least
// MinRatings samples. Output is sorted by identifier.
func Ratings(ratings []models.CommunityRating, opts Options) ([]models.AggregatedRating, Report) {
	report := Report{Ratings: len(ratings)}

	groups := make(map[string][]float64)
	for _, r := range ratings {
		groups[r.Identifier] = append(groups[r.Identifier], r.Rating)
	}
	report.Identifiers = len(groups)

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.AggregatedRating, 0, len(ids))
	for _, id := range ids {
		values := groups[id]
		if len(values) < opts.MinRatings {
			report.BelowMinimum++
			continue
		}

		s := Summarize(values)
		out = append(out, models.AggregatedRating{
			Identifier:   id,
			Count:        s.Count,
			Mean:         s.Mean,
			StdDev:       s.StdDev,
			Median:       s.Median,
			RescaledMean: Rescale(s.Mean, opts.From, opts.To),
		})
	}
	report.Kept = len(out)

	slog.Info("Aggregated community ratings",
		"ratings", report.Ratings,
		"identifiers", report.Identifiers,
		"kept", report.Kept,
		"below_minimum", report.BelowMinimum,
		"min_ratings", opts.MinRatings)

	return out, report
}

// Demographics aggregates ratings per (identifier, age group). Ratings from
// users without a profile fall into the Unknown group. Groups with fewer than
// DemographicMinRatings samples are dropped.
func Demographics(ratings []models.CommunityRating, users []models.UserProfile, opts Options) []models.DemographicRating {
	groupOf := make(map[int64]string, len(users))
	for _, u := range users {
		groupOf[u.UserID] = u.AgeGroup
	}

	type key struct{ id, group string }
	groups := make(map[key][]float64)
	for _, r := range ratings {
		g, ok := groupOf[r.UserID]
		if !ok {
			g = models.AgeGroup(nil)
		}
		k := key{id: r.Identifier, group: g}
		groups[k] = append(groups[k], r.Rating)
	}

	keys := make([]key, 0, len(groups))
	for k, v := range groups {
		if len(v) >= opts.DemographicMinRatings {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].id != keys[j].id {
			return keys[i].id < keys[j].id
		}
		return keys[i].group < keys[j].group
	})

	out := make([]models.DemographicRating, 0, len(keys))
	for _, k := range keys {
		values := groups[k]
		out = append(out, models.DemographicRating{
			Identifier: k.id,
			AgeGroup:   k.group,
			Mean:       calculateAverage(values),
			Count:      len(values),
		})
	}

	slog.Debug("Aggregated demographic ratings", "groups", len(groups), "kept", len(out))
	return out
}

// calculateAverage calculates the average of a slice of floats
func calculateAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}
