package logic

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/mapelo/forecast-api/internal/models"
)

var ErrInvalidBracket = errors.New("invalid bracket")

// BuildBracket expands a bracket spec into an ordered match list for n seeded teams
func BuildBracket(spec models.BracketSpec, n int) (*models.Bracket, error) {
	switch spec.Kind {
	case models.SingleElimination, "":
		return singleElimination(spec, n)
	case models.DoubleElimination:
		return doubleElimination(spec, n)
	case models.CustomBracket:
		if len(spec.Matches) == 0 {
			return nil, fmt.Errorf("%w: custom bracket has no matches", ErrInvalidBracket)
		}
		b := &models.Bracket{Matches: append([]models.BracketMatch(nil), spec.Matches...)}
		if _, err := compileBracket(b, n); err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidBracket, spec.Kind)
}

func roundFormat(spec models.BracketSpec, round int) models.SeriesFormat {
	if len(spec.RoundFormats) == 0 {
		return models.FormatBO3
	}
	if round > len(spec.RoundFormats) {
		return spec.RoundFormats[len(spec.RoundFormats)-1]
	}
	return spec.RoundFormats[round-1]
}

func orDefault(f, def models.SeriesFormat) models.SeriesFormat {
	if f == "" {
		return def
	}
	return f
}

// seedOrder returns bracket positions so that seeds 1 and 2 can only meet in the final
func seedOrder(n int) []int {
	order := []int{0}
	for size := 1; size < n; size *= 2 {
		next := make([]int, 0, size*2)
		for _, s := range order {
			next = append(next, s, size*2-1-s)
		}
		order = next
	}
	return order
}

func roundCount(n int) (int, error) {
	if n < 2 || n&(n-1) != 0 {
		return 0, fmt.Errorf("%w: team count %d is not a power of two", ErrInvalidBracket, n)
	}
	return bits.TrailingZeros(uint(n)), nil
}

func matchID(prefix string, round, i int) string {
	return fmt.Sprintf("%s%d-M%d", prefix, round, i+1)
}

func winnerOf(id string) models.Slot { return models.Slot{From: id} }
func loserOf(id string) models.Slot  { return models.Slot{From: id, Loser: true} }

func singleElimination(spec models.BracketSpec, n int) (*models.Bracket, error) {
	rounds, err := roundCount(n)
	if err != nil {
		return nil, err
	}

	b := &models.Bracket{}
	order := seedOrder(n)
	alive := n
	var prev []string
	for r := 1; r <= rounds; r++ {
		count := n >> r
		ids := make([]string, count)
		for i := 0; i < count; i++ {
			m := models.BracketMatch{
				ID:     matchID("R", r, i),
				Round:  r,
				Format: roundFormat(spec, r),
			}
			if r == 1 {
				m.A = models.Slot{Seed: order[2*i]}
				m.B = models.Slot{Seed: order[2*i+1]}
			} else {
				m.A = winnerOf(prev[2*i])
				m.B = winnerOf(prev[2*i+1])
			}

			switch {
			case r == rounds:
				m.WinnerPlace, m.LoserPlace = 1, 2
			case r == rounds-1 && spec.ThirdPlaceMatch:
				// semifinal losers play on
			default:
				m.LoserPlace = alive
			}
			ids[i] = m.ID
			b.Matches = append(b.Matches, m)
		}
		alive -= count
		prev = ids
	}

	if spec.ThirdPlaceMatch && rounds >= 2 {
		semis := b.Matches[len(b.Matches)-3 : len(b.Matches)-1]
		b.Matches = append(b.Matches, models.BracketMatch{
			ID:          "3RD",
			Round:       rounds,
			Format:      roundFormat(spec, rounds-1),
			A:           loserOf(semis[0].ID),
			B:           loserOf(semis[1].ID),
			WinnerPlace: 3,
			LoserPlace:  4,
		})
	}
	return b, nil
}

// doubleElimination builds an upper bracket, a lower bracket that alternates
// drop-in and consolidation rounds, and a single grand final.
func doubleElimination(spec models.BracketSpec, n int) (*models.Bracket, error) {
	rounds, err := roundCount(n)
	if err != nil {
		return nil, err
	}
	if n < 4 {
		return nil, fmt.Errorf("%w: double elimination needs at least 4 teams", ErrInvalidBracket)
	}

	lowerFormat := orDefault(spec.LowerFormat, models.FormatBO3)
	b := &models.Bracket{}
	alive := n
	order := seedOrder(n)

	upper := func(r int, prev []string) []string {
		count := n >> r
		ids := make([]string, count)
		for i := 0; i < count; i++ {
			m := models.BracketMatch{ID: matchID("U", r, i), Round: r, Format: roundFormat(spec, r)}
			if r == 1 {
				m.A = models.Slot{Seed: order[2*i]}
				m.B = models.Slot{Seed: order[2*i+1]}
			} else {
				m.A = winnerOf(prev[2*i])
				m.B = winnerOf(prev[2*i+1])
			}
			ids[i] = m.ID
			b.Matches = append(b.Matches, m)
		}
		return ids
	}

	lowerRound := 0
	lower := func(pairs [][2]models.Slot) []string {
		lowerRound++
		ids := make([]string, len(pairs))
		for i, p := range pairs {
			m := models.BracketMatch{
				ID:         matchID("L", lowerRound, i),
				Round:      lowerRound,
				Format:     lowerFormat,
				A:          p[0],
				B:          p[1],
				LoserPlace: alive,
			}
			ids[i] = m.ID
			b.Matches = append(b.Matches, m)
		}
		alive -= len(pairs)
		return ids
	}

	upperIDs := upper(1, nil)
	var pairs [][2]models.Slot
	for i := 0; i < len(upperIDs); i += 2 {
		pairs = append(pairs, [2]models.Slot{loserOf(upperIDs[i]), loserOf(upperIDs[i+1])})
	}
	lowerIDs := lower(pairs)

	for r := 2; r <= rounds; r++ {
		upperIDs = upper(r, upperIDs)

		// drop-in: lower survivors meet upper losers in reverse order
		pairs = pairs[:0]
		for i, id := range lowerIDs {
			pairs = append(pairs, [2]models.Slot{winnerOf(id), loserOf(upperIDs[len(upperIDs)-1-i])})
		}
		lowerIDs = lower(pairs)

		if len(lowerIDs) > 1 {
			pairs = pairs[:0]
			for i := 0; i < len(lowerIDs); i += 2 {
				pairs = append(pairs, [2]models.Slot{winnerOf(lowerIDs[i]), winnerOf(lowerIDs[i+1])})
			}
			lowerIDs = lower(pairs)
		}
	}

	b.Matches = append(b.Matches, models.BracketMatch{
		ID:          "GF",
		Round:       rounds + 1,
		Format:      orDefault(spec.GrandFinalFormat, roundFormat(spec, rounds)),
		A:           winnerOf(upperIDs[0]),
		B:           winnerOf(lowerIDs[0]),
		WinnerPlace: 1,
		LoserPlace:  2,
	})
	return b, nil
}

type compiledSlot struct {
	seed  int
	from  int
	loser bool
}

type compiledMatch struct {
	id          string
	format      draftFormat
	formatName  models.SeriesFormat
	a, b        compiledSlot
	winnerPlace int
	loserPlace  int
}

type compiledBracket struct {
	matches []compiledMatch
	index   map[string]int
}

// compileBracket validates topology: slots reference earlier matches, every
// seed enters once, every outcome is either routed once or placed, and there
// is exactly one champion.
func compileBracket(b *models.Bracket, teams int) (*compiledBracket, error) {
	cb := &compiledBracket{index: make(map[string]int, len(b.Matches))}
	seeds := make([]bool, teams)
	type outcome struct {
		match int
		loser bool
	}
	routed := make(map[outcome]bool)
	champions := 0

	slot := func(m models.BracketMatch, s models.Slot) (compiledSlot, error) {
		if s.From == "" {
			if s.Seed < 0 || s.Seed >= teams {
				return compiledSlot{}, fmt.Errorf("%w: match %s seed %d out of range", ErrInvalidBracket, m.ID, s.Seed)
			}
			if seeds[s.Seed] {
				return compiledSlot{}, fmt.Errorf("%w: seed %d entered twice", ErrInvalidBracket, s.Seed)
			}
			seeds[s.Seed] = true
			return compiledSlot{seed: s.Seed, from: -1}, nil
		}
		idx, ok := cb.index[s.From]
		if !ok {
			return compiledSlot{}, fmt.Errorf("%w: match %s references unknown or later match %s", ErrInvalidBracket, m.ID, s.From)
		}
		key := outcome{idx, s.Loser}
		if routed[key] {
			return compiledSlot{}, fmt.Errorf("%w: outcome of %s routed twice", ErrInvalidBracket, s.From)
		}
		routed[key] = true
		return compiledSlot{from: idx, loser: s.Loser}, nil
	}

	for i, m := range b.Matches {
		if m.ID == "" {
			return nil, fmt.Errorf("%w: match %d has no id", ErrInvalidBracket, i)
		}
		if _, dup := cb.index[m.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate match id %s", ErrInvalidBracket, m.ID)
		}
		f, err := lookupFormat(m.Format)
		if err != nil {
			return nil, fmt.Errorf("match %s: %w", m.ID, err)
		}
		a, err := slot(m, m.A)
		if err != nil {
			return nil, err
		}
		bs, err := slot(m, m.B)
		if err != nil {
			return nil, err
		}
		if m.WinnerPlace == 1 {
			champions++
		}
		cb.index[m.ID] = i
		cb.matches = append(cb.matches, compiledMatch{
			id:          m.ID,
			format:      f,
			formatName:  m.Format,
			a:           a,
			b:           bs,
			winnerPlace: m.WinnerPlace,
			loserPlace:  m.LoserPlace,
		})
	}

	for s, used := range seeds {
		if !used {
			return nil, fmt.Errorf("%w: seed %d never enters the bracket", ErrInvalidBracket, s)
		}
	}
	if champions != 1 {
		return nil, fmt.Errorf("%w: expected one title match, found %d", ErrInvalidBracket, champions)
	}
	for i, m := range cb.matches {
		for _, loser := range []bool{false, true} {
			place := m.winnerPlace
			if loser {
				place = m.loserPlace
			}
			isRouted := routed[outcome{i, loser}]
			if isRouted == (place > 0) {
				return nil, fmt.Errorf("%w: match %s outcome (loser=%t) must be either routed or placed", ErrInvalidBracket, m.id, loser)
			}
		}
	}
	return cb, nil
}
