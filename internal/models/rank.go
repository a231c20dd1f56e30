package models

import "fmt"

// Rank is one of the five ordered experience tiers
type Rank string

const (
	RankBronze  Rank = "Bronze"
	RankSilver  Rank = "Silver"
	RankGold    Rank = "Gold"
	RankDiamond Rank = "Diamond"
	RankRuby    Rank = "Ruby"
)

// AllRanks lists the ranks in ascending order
var AllRanks = []Rank{RankBronze, RankSilver, RankGold, RankDiamond, RankRuby}

// Index returns the position of the rank in AllRanks, or -1 if unknown
func (r Rank) Index() int {
	for i, rank := range AllRanks {
		if rank == r {
			return i
		}
	}
	return -1
}

// Valid reports whether r is one of the known ranks
func (r Rank) Valid() bool {
	return r.Index() >= 0
}

// ParseRank converts a string into a Rank
func ParseRank(s string) (Rank, error) {
	r := Rank(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown rank %q", s)
	}
	return r, nil
}
