// Package leveling maps cumulative experience onto ranks.
package leveling

import "eudguide/internal/models"

// Tier describes the experience span of a rank. Max is exclusive and
// meaningless when Unbounded is set.
type Tier struct {
	Rank      models.Rank `json:"level"`
	Min       int         `json:"min"`
	Max       int         `json:"max,omitempty"`
	Unbounded bool        `json:"unbounded"`
}

var tiers = []Tier{
	{Rank: models.RankBronze, Min: 0, Max: 1000},
	{Rank: models.RankSilver, Min: 1000, Max: 2000},
	{Rank: models.RankGold, Min: 2000, Max: 3000},
	{Rank: models.RankDiamond, Min: 3000, Max: 4000},
	{Rank: models.RankRuby, Min: 4000, Unbounded: true},
}

// Tiers returns the rank table in ascending order
func Tiers() []Tier {
	return append([]Tier(nil), tiers...)
}

// TierFor returns the tier of a rank
func TierFor(rank models.Rank) (Tier, bool) {
	for _, t := range tiers {
		if t.Rank == rank {
			return t, true
		}
	}
	return Tier{}, false
}

// RankOf returns the rank for a cumulative experience total.
// Negative experience is never produced by the store and is treated as zero.
func RankOf(xp int) models.Rank {
	return tierOf(xp).Rank
}

// ProgressWithinRank returns how far xp has advanced through its rank, in [0, 1].
// The top rank has no ceiling and always reports 1.
func ProgressWithinRank(xp int) float64 {
	if xp < 0 {
		xp = 0
	}
	t := tierOf(xp)
	if t.Unbounded {
		return 1
	}
	p := float64(xp-t.Min) / float64(t.Max-t.Min)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// XPToNextRank returns the experience still needed to reach the next rank,
// or 0 once the top rank is reached.
func XPToNextRank(xp int) int {
	if xp < 0 {
		xp = 0
	}
	t := tierOf(xp)
	if t.Unbounded {
		return 0
	}
	return t.Max - xp
}

func tierOf(xp int) Tier {
	for _, t := range tiers {
		if t.Unbounded || xp < t.Max {
			return t
		}
	}
	return tiers[len(tiers)-1]
}
