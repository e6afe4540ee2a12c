package logic

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapelo/forecast-api/internal/models"
)

var testPool = []string{"Ancient", "Anubis", "Dust2", "Inferno", "Mirage", "Nuke", "Overpass"}

func flatRatings(r float64) []float64 {
	out := make([]float64, len(testPool))
	for i := range out {
		out[i] = r
	}
	return out
}

func TestEqualRatingsGiveCoinFlips(t *testing.T) {
	v := NewVetoProtocol(DefaultRatingParams())
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 50; i++ {
		res, err := v.SimulateSeries(flatRatings(1000), flatRatings(1000), testPool, models.FormatBO3, rng)
		require.NoError(t, err)
		require.NotEmpty(t, res.Maps)
		for _, m := range res.Maps {
			assert.Equal(t, 0.5, m.ProbA)
		}
	}
}

func TestSimulateDraftGreedy(t *testing.T) {
	v := NewVetoProtocol(DefaultRatingParams())
	a := flatRatings(1000)
	// A's advantage runs from +60 on Ancient down to -60 on Overpass
	b := []float64{940, 960, 980, 1000, 1020, 1040, 1060}

	maps, err := v.SimulateDraft(a, b, testPool, models.FormatBO3, rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)
	assert.Equal(t, []string{"Anubis", "Nuke", "Inferno"}, maps)
}

func TestSimulateDraftBO1(t *testing.T) {
	v := NewVetoProtocol(DefaultRatingParams())
	b := []float64{940, 960, 980, 1000, 1020, 1040, 1060}

	maps, err := v.SimulateDraft(flatRatings(1000), b, testPool, models.FormatBO1, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)
	assert.Equal(t, []string{"Inferno"}, maps)
}

func TestSimulateSeriesStopsAtRequiredWins(t *testing.T) {
	v := NewVetoProtocol(DefaultRatingParams())
	rng := rand.New(rand.NewPCG(3, 9))
	b := []float64{900, 950, 1000, 1050, 1100, 1150, 1200}

	for _, format := range []models.SeriesFormat{models.FormatBO1, models.FormatBO3, models.FormatBO5, models.FormatBO5Adv} {
		need, err := WinsRequired(format)
		require.NoError(t, err)
		for i := 0; i < 20; i++ {
			res, err := v.SimulateSeries(flatRatings(1000), b, testPool, format, rng)
			require.NoError(t, err)
			assert.Equal(t, need, max(res.WinsA, res.WinsB), format)
			assert.Equal(t, res.WinsA+res.WinsB, len(res.Maps))
			if res.WinsA == need {
				assert.Equal(t, SideA, res.Winner)
			} else {
				assert.Equal(t, SideB, res.Winner)
			}
		}
	}
}

func TestDraftSequences(t *testing.T) {
	steps, err := DraftSequence(models.FormatBO5Adv)
	require.NoError(t, err)
	require.Len(t, steps, 7)
	assert.Equal(t, VetoStep{models.VetoBan, SideA}, steps[0])
	assert.Equal(t, VetoStep{models.VetoBan, SideA}, steps[1])
	assert.Equal(t, models.VetoDecider, steps[6].Kind)

	// callers get a copy
	steps[0].Kind = models.VetoPick
	again, _ := DraftSequence(models.FormatBO5Adv)
	assert.Equal(t, models.VetoBan, again[0].Kind)

	for format, picks := range map[models.SeriesFormat]int{
		models.FormatBO1: 0,
		models.FormatBO3: 2,
		models.FormatBO5: 4,
	} {
		steps, err := DraftSequence(format)
		require.NoError(t, err)
		n := 0
		for _, s := range steps {
			if s.Kind == models.VetoPick {
				n++
			}
		}
		assert.Equal(t, picks, n, format)
	}
}

func TestVetoInputErrors(t *testing.T) {
	v := NewVetoProtocol(DefaultRatingParams())
	rng := rand.New(rand.NewPCG(1, 1))

	_, err := v.SimulateSeries(flatRatings(1000), flatRatings(1000), testPool, "BO7", rng)
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = v.SimulateSeries(flatRatings(1000)[:6], flatRatings(1000)[:6], testPool[:6], models.FormatBO3, rng)
	assert.ErrorIs(t, err, ErrPoolSize)

	_, err = v.SimulateDraft(flatRatings(1000), flatRatings(1000)[:5], testPool, models.FormatBO3, rng)
	assert.ErrorIs(t, err, ErrPoolSize)

	assert.ErrorIs(t, CheckPool(models.FormatBO5, 8), ErrPoolSize)
	assert.NoError(t, CheckPool(models.FormatBO5, 7))
}
