package logic

import "sort"

// MapPools is the legal map pool per season year
type MapPools map[int][]string

// DefaultMapPools returns the active duty pools used for season baselines
func DefaultMapPools() MapPools {
	return MapPools{
		2023: {"Ancient", "Anubis", "Inferno", "Mirage", "Nuke", "Overpass", "Vertigo"},
		2024: {"Ancient", "Anubis", "Dust2", "Inferno", "Mirage", "Nuke", "Vertigo"},
		2025: {"Ancient", "Dust2", "Inferno", "Mirage", "Nuke", "Overpass", "Train"},
		2026: {"Ancient", "Anubis", "Dust2", "Inferno", "Mirage", "Nuke", "Overpass"},
	}
}

// ForYear returns a copy of the pool for a year
func (p MapPools) ForYear(year int) ([]string, bool) {
	pool, ok := p[year]
	if !ok || len(pool) == 0 {
		return nil, false
	}
	out := make([]string, len(pool))
	copy(out, pool)
	return out, true
}

// Years lists configured years in ascending order
func (p MapPools) Years() []int {
	years := make([]int, 0, len(p))
	for y := range p {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
