package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapelo/forecast-api/internal/models"
)

const cupYAML = `
name: Spring Cup
start_date: 2026-04-01T00:00:00Z
map_pool: [Ancient, Anubis, Dust2, Inferno, Mirage, Nuke, Overpass]
teams:
  - {id: 10, name: Alpha}
  - {id: 11, name: Bravo}
  - {id: 12, name: Charlie}
  - {id: 13, name: Delta}
bracket:
  kind: double_elimination
  round_formats: [BO3, BO3]
  grand_final_format: BO5
observed:
  - {match_id: U1-M1, winner_id: 10}
actual_results:
  winner: 10
  runner_up: 12
  top4: [10, 12, 11, 13]
`

func TestFileTournaments(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "spring-cup.yaml"), []byte(cupYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [unterminated\n"), 0o644))
	src := NewFileTournaments(dir)
	ctx := context.Background()

	cfg, err := src.Tournament(ctx, "spring-cup")
	require.NoError(t, err)
	assert.Equal(t, "spring-cup", cfg.ID)
	assert.Equal(t, "Spring Cup", cfg.Name)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), cfg.StartDate.UTC())
	assert.Len(t, cfg.Teams, 4)
	assert.Equal(t, int64(12), cfg.Teams[2].ID)
	assert.Len(t, cfg.MapPool, 7)
	assert.Equal(t, models.DoubleElimination, cfg.Bracket.Kind)
	assert.Equal(t, models.FormatBO5, cfg.Bracket.GrandFinalFormat)
	assert.Equal(t, []models.ObservedResult{{MatchID: "U1-M1", WinnerID: 10}}, cfg.Observed)
	require.NotNil(t, cfg.Actual)
	assert.Equal(t, int64(12), cfg.Actual.RunnerUp)

	for _, id := range []string{"missing", "../spring-cup", ""} {
		_, err := src.Tournament(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound, id)
	}

	_, err = src.Tournament(ctx, "broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestParseTournamentKeepsExplicitID(t *testing.T) {
	cfg, err := ParseTournament([]byte("id: explicit\nname: X\n"), "fallback")
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.ID)
}
