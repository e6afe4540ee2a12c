package logic

import (
	"sort"
	"time"

	"github.com/mapelo/forecast-api/internal/models"
)

type teamMap struct {
	teamID  int64
	mapName string
}

// BuildSnapshot groups records by team and map and keeps the newest one dated
// at or after the season start. Records with equal dates resolve to the later
// element of the slice. Output is ordered by team then map.
func BuildSnapshot(seasonID int64, seasonStart time.Time, records []models.RatingRecord) []models.CurrentRating {
	latest := make(map[teamMap]models.RatingRecord)
	for _, r := range records {
		if r.RatedAt.Before(seasonStart) {
			continue
		}
		key := teamMap{r.TeamID, r.MapName}
		if prev, ok := latest[key]; ok && r.RatedAt.Before(prev.RatedAt) {
			continue
		}
		latest[key] = r
	}

	rows := make([]models.CurrentRating, 0, len(latest))
	for key, r := range latest {
		rows = append(rows, models.CurrentRating{
			SeasonID: seasonID,
			TeamID:   key.teamID,
			MapName:  key.mapName,
			Rating:   r.Rating,
			RatedAt:  r.RatedAt,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TeamID != rows[j].TeamID {
			return rows[i].TeamID < rows[j].TeamID
		}
		return rows[i].MapName < rows[j].MapName
	})
	return rows
}
