package logic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapelo/forecast-api/internal/models"
)

func TestBuildSnapshot(t *testing.T) {
	start := models.SeasonStart(2025)
	day := func(d int) time.Time { return start.AddDate(0, 0, d) }

	records := []models.RatingRecord{
		{TeamID: 2, MapName: "Nuke", Rating: 1010, RatedAt: day(3)},
		{TeamID: 1, MapName: "Mirage", Rating: 1000, RatedAt: day(0)},
		{TeamID: 1, MapName: "Mirage", Rating: 1042, RatedAt: day(5)},
		{TeamID: 1, MapName: "Mirage", Rating: 1020, RatedAt: day(2)},
		// previous season, must not leak into the snapshot
		{TeamID: 1, MapName: "Inferno", Rating: 1400, RatedAt: day(-10)},
		{TeamID: 2, MapName: "Nuke", Rating: 990, RatedAt: day(3)},
	}

	rows := BuildSnapshot(7, start, records)
	require.Len(t, rows, 2)

	assert.Equal(t, models.CurrentRating{SeasonID: 7, TeamID: 1, MapName: "Mirage", Rating: 1042, RatedAt: day(5)}, rows[0])
	// same date: the later record wins
	assert.Equal(t, 990.0, rows[1].Rating)
	assert.Equal(t, int64(2), rows[1].TeamID)
}

func TestBuildSnapshotEmpty(t *testing.T) {
	rows := BuildSnapshot(1, models.SeasonStart(2025), nil)
	assert.Empty(t, rows)
}
